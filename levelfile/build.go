package levelfile

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/flickyourselfon/railhint/level"
	"github.com/flickyourselfon/railhint/rail"
)

type BuildOptions struct {
	// SkipOptimize leaves the plane graph exactly as described.
	SkipOptimize bool
}

// Built is a level together with the lookups the game side needs to drive
// it: planes by name, and rails and switches by id.
type Built struct {
	Spec       LevelSpec
	Level      *level.Level
	Start      *level.Plane
	Planes     map[string]*level.Plane
	Rails      []*rail.Rail
	Switches   []*rail.Switch
	RadioTower *rail.Switch
	Reset      *rail.ResetSwitch

	railsByID    map[int16]*rail.Rail
	railEnds     map[int16][2]*level.Plane
	switchesByID map[int16]*rail.Switch
	switchPlanes map[int16]*level.Plane
}

func (b *Built) Rail(id int16) (*rail.Rail, bool) {
	r, ok := b.railsByID[id]
	return r, ok
}

func (b *Built) Switch(id int16) (*rail.Switch, bool) {
	s, ok := b.switchesByID[id]
	return s, ok
}

// SwitchPlane is the plane a switch stands on; nil for the radio tower.
func (b *Built) SwitchPlane(id int16) *level.Plane {
	return b.switchPlanes[id]
}

func (b *Built) RailEnds(id int16) (from, to *level.Plane) {
	ends := b.railEnds[id]
	return ends[0], ends[1]
}

type switchSlot struct {
	plane *level.Plane
	index int
}

// Build turns a level description into a level graph. Switches with group
// 0 become the radio tower. A rail's connection is wired to every switch
// sharing its color and one of its groups.
func Build(spec LevelSpec, opts BuildOptions) (*Built, error) {
	l := level.New(spec.N, spec.StartTile)
	b := &Built{
		Spec:         spec,
		Level:        l,
		Planes:       map[string]*level.Plane{},
		railsByID:    map[int16]*rail.Rail{},
		railEnds:     map[int16][2]*level.Plane{},
		switchesByID: map[int16]*rail.Switch{},
		switchPlanes: map[int16]*level.Plane{},
	}

	for _, ps := range spec.Planes {
		if _, ok := b.Planes[ps.Name]; ok || ps.Name == "" {
			return nil, fmt.Errorf("level %d: %w: %q", spec.N, ErrDuplicatePlane, ps.Name)
		}
		var p *level.Plane
		if ps.Name == spec.Victory {
			p = l.AddVictoryPlane()
		} else {
			p = l.AddNewPlane()
		}
		p.SetName(ps.Name)
		for _, t := range ps.Tiles {
			p.AddTile(t[0], t[1])
		}
		b.Planes[ps.Name] = p
	}
	plane := func(name string) (*level.Plane, error) {
		p, ok := b.Planes[name]
		if !ok {
			return nil, fmt.Errorf("level %d: %w: %q", spec.N, ErrUnknownPlane, name)
		}
		return p, nil
	}
	var err error
	if b.Start, err = plane(spec.Start); err != nil {
		return nil, err
	}
	if spec.Victory != "" {
		if _, err = plane(spec.Victory); err != nil {
			return nil, err
		}
	}

	slots := map[rail.Color]map[int8]switchSlot{}
	for _, ss := range spec.Switches {
		if _, ok := b.switchesByID[ss.ID]; ok {
			return nil, fmt.Errorf("level %d: %w: %d", spec.N, ErrDuplicateSwitch, ss.ID)
		}
		color, err := rail.ParseColor(ss.Color)
		if err != nil || color == rail.NoColor {
			return nil, fmt.Errorf("level %d: %w: switch %d color %q", spec.N, ErrBadSwitch, ss.ID, ss.Color)
		}
		sw := &rail.Switch{ID: ss.ID, Color: color, Group: ss.Group, LeftX: ss.At[0], TopY: ss.At[1]}
		b.switchesByID[ss.ID] = sw
		b.Switches = append(b.Switches, sw)
		if sw.IsRadioTower() {
			b.RadioTower = sw
			l.AssignRadioTowerSwitch(sw)
			continue
		}
		p, err := plane(ss.Plane)
		if err != nil {
			return nil, err
		}
		if _, ok := slots[color][ss.Group]; ok {
			return nil, fmt.Errorf("level %d: %w: %v group %d", spec.N, ErrDuplicateSwitch, color, ss.Group)
		}
		if slots[color] == nil {
			slots[color] = map[int8]switchSlot{}
		}
		slots[color][ss.Group] = switchSlot{plane: p, index: p.AddConnectionSwitch(sw)}
		b.switchPlanes[ss.ID] = p
	}

	for i := range spec.Rails {
		rs := &spec.Rails[i]
		if _, ok := b.railsByID[rs.ID]; ok {
			return nil, fmt.Errorf("level %d: %w: %d", spec.N, ErrDuplicateRail, rs.ID)
		}
		r, err := rs.toRail()
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", spec.N, err)
		}
		from, err := plane(rs.From)
		if err != nil {
			return nil, err
		}
		to, err := plane(rs.To)
		if err != nil {
			return nil, err
		}
		b.railsByID[r.ID] = r
		b.railEnds[r.ID] = [2]*level.Plane{from, to}
		b.Rails = append(b.Rails, r)

		bmd := l.RailByteMaskData(l.TrackNextRail(r.ID, r))
		from.AddRailConnection(to, bmd, r)
		to.AddReverseRailConnection(from, r)
		for _, g := range lo.Uniq(r.Groups) {
			slot, ok := slots[r.Color][g]
			if !ok {
				log.Error().Int("level", spec.N).Int16("rail", r.ID).Stringer("color", r.Color).
					Int8("group", g).Msg("rail-group-without-switch")
				continue
			}
			slot.plane.AddRailConnectionToSwitch(bmd, slot.index)
		}
	}

	for _, cs := range spec.Connections {
		from, err := plane(cs.From)
		if err != nil {
			return nil, err
		}
		to, err := plane(cs.To)
		if err != nil {
			return nil, err
		}
		from.AddPlaneConnection(to)
		if cs.Both {
			to.AddPlaneConnection(from)
		}
	}

	if spec.Reset != nil {
		b.Reset = &rail.ResetSwitch{CenterX: spec.Reset.At[0], BottomY: spec.Reset.At[1]}
		l.AssignResetSwitch(b.Reset)
	}
	if !opts.SkipOptimize {
		l.OptimizePlanes()
	}
	return b, nil
}

// BuildAll builds every level of a file, in order.
func BuildAll(f *File, opts BuildOptions) ([]*Built, error) {
	built := make([]*Built, 0, len(f.Levels))
	for _, spec := range f.Levels {
		b, err := Build(spec, opts)
		if err != nil {
			return nil, err
		}
		built = append(built, b)
	}
	return built, nil
}

// Levels extracts the level graphs, for sizing a search workspace.
func Levels(built []*Built) []*level.Level {
	return lo.Map(built, func(b *Built, _ int) *level.Level { return b.Level })
}

// Find returns the built level numbered n.
func Find(built []*Built, n int) (*Built, bool) {
	return lo.Find(built, func(b *Built) bool { return b.Spec.N == n })
}
