// Package levelgen makes random levels and rail states, for property tests
// and benchmarks.
package levelgen

import (
	"encoding/binary"
	"fmt"

	"lukechampine.com/frand"

	"github.com/flickyourselfon/railhint/levelfile"
	"github.com/flickyourselfon/railhint/rail"
	"github.com/flickyourselfon/railhint/railmask"
)

type Options struct {
	Planes int
	Rails  int
	// Colors limits rails and switches to the first Colors colors.
	Colors           int
	Groups           int
	ExtraConnections int
	MaxRideSteps     int
	// SwitchPlanes is the chance, out of 100, that a plane gets a switch
	// when a rail group still needs one.
	SwitchPlanes int
}

func DefaultOptions() Options {
	return Options{
		Planes:           10,
		Rails:            6,
		Colors:           3,
		Groups:           2,
		ExtraConnections: 4,
		MaxRideSteps:     3,
		SwitchPlanes:     60,
	}
}

// Generator draws from its own stream so that runs can be reproduced from
// a seed.
type Generator struct {
	rng *frand.RNG
}

func New() *Generator {
	return &Generator{rng: frand.New()}
}

// NewSeeded returns a deterministic generator. seed must be 32 bytes.
func NewSeeded(seed []byte) *Generator {
	return &Generator{rng: frand.NewCustom(seed, 1024, 12)}
}

// SeedFromUint64 spreads n over a 32 byte seed for NewSeeded.
func SeedFromUint64(n uint64) []byte {
	seed := make([]byte, 32)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(seed[i*8:], n+uint64(i))
	}
	return seed
}

func (g *Generator) intn(n int) int {
	if n <= 1 {
		return 0
	}
	return g.rng.Intn(n)
}

func planeName(i int) string {
	return fmt.Sprintf("p%d", i)
}

// Level makes a random connected level. Every rail's color and group has a
// switch somewhere, and the victory plane is reached by a rail or a hop from
// some other plane.
func (g *Generator) Level(n int, opts Options) levelfile.LevelSpec {
	opts.Planes = max(opts.Planes, 2)
	opts.Colors = min(max(opts.Colors, 1), rail.ColorCount)
	opts.Groups = max(opts.Groups, 1)
	opts.MaxRideSteps = max(opts.MaxRideSteps, 1)

	spec := levelfile.LevelSpec{N: n, Start: planeName(0), Victory: "v"}
	for i := 0; i < opts.Planes; i++ {
		spec.Planes = append(spec.Planes, levelfile.PlaneSpec{
			Name:  planeName(i),
			Tiles: []levelfile.Point{{i * 4, 0}, {i*4 + 1, 0}},
		})
	}
	spec.Planes = append(spec.Planes, levelfile.PlaneSpec{Name: "v", Tiles: []levelfile.Point{{-4, 0}}})

	// a random tree keeps most of the level walkable
	for i := 1; i < opts.Planes; i++ {
		spec.Connections = append(spec.Connections, levelfile.ConnectionSpec{
			From: planeName(g.intn(i)),
			To:   planeName(i),
			Both: g.intn(4) != 0,
		})
	}
	for i := 0; i < opts.ExtraConnections; i++ {
		a, b := g.intn(opts.Planes), g.intn(opts.Planes)
		if a == b {
			continue
		}
		spec.Connections = append(spec.Connections, levelfile.ConnectionSpec{
			From: planeName(a), To: planeName(b), Both: g.intn(2) == 0,
		})
	}

	type colorGroup struct {
		color rail.Color
		group int8
	}
	needed := map[colorGroup]bool{}
	var neededOrder []colorGroup
	for i := 0; i < opts.Rails; i++ {
		color := rail.Color(g.intn(opts.Colors))
		rs := g.rail(int16(i), color, opts)
		from := g.intn(opts.Planes)
		rs.From = planeName(from)
		// the first rail always leads to victory
		if i == 0 {
			rs.To = "v"
		} else {
			to := g.intn(opts.Planes - 1)
			if to >= from {
				to++
			}
			rs.To = planeName(to)
		}
		spec.Rails = append(spec.Rails, rs)
		for _, grp := range rs.Groups {
			cg := colorGroup{color, grp}
			if !needed[cg] {
				needed[cg] = true
				neededOrder = append(neededOrder, cg)
			}
		}
	}
	if opts.Rails == 0 {
		spec.Connections = append(spec.Connections, levelfile.ConnectionSpec{
			From: planeName(g.intn(opts.Planes)), To: "v",
		})
	}

	for i, cg := range neededOrder {
		p := g.intn(opts.Planes)
		if g.intn(100) >= opts.SwitchPlanes {
			p = 0
		}
		spec.Switches = append(spec.Switches, levelfile.SwitchSpec{
			ID:    int16(i + 1),
			Color: cg.color.String(),
			Group: cg.group,
			Plane: planeName(p),
			At:    levelfile.Point{p * 4, 2},
		})
	}
	spec.Switches = append(spec.Switches, levelfile.SwitchSpec{
		ID:    0,
		Color: rail.SquareColor.String(),
		Group: 0,
		Plane: planeName(0),
		At:    levelfile.Point{0, 8},
	})
	spec.Reset = &levelfile.ResetSpec{At: levelfile.Point{2, 8}}
	return spec
}

func (g *Generator) rail(id int16, color rail.Color, opts Options) levelfile.RailSpec {
	maxOffset := int8(1 + g.intn(int(railmask.MaxTileOffset)-1))
	rs := levelfile.RailSpec{
		ID:        id,
		Color:     color.String(),
		Groups:    []int8{int8(1 + g.intn(opts.Groups))},
		MaxOffset: maxOffset,
		Magnitude: int8(1 + g.intn(int(maxOffset))),
	}
	if g.intn(3) == 0 && opts.Groups > 1 {
		other := int8(1 + g.intn(opts.Groups))
		if other != rs.Groups[0] {
			rs.Groups = append(rs.Groups, other)
		}
	}
	switch color {
	case rail.SquareColor:
		if g.intn(2) == 0 {
			rs.InitialOffset = maxOffset
		}
	case rail.SawColor:
		rs.InitialOffset = int8(g.intn(int(maxOffset)))
	default:
		rs.InitialOffset = int8(g.intn(int(maxOffset) + 1))
	}
	if g.intn(2) == 0 {
		rs.InitialDirection = 1
	} else {
		rs.InitialDirection = -1
	}
	ride := 1 + g.intn(opts.MaxRideSteps)
	for s := 0; s <= ride; s++ {
		rs.Segments = append(rs.Segments, levelfile.Point{int(id) * 2, 10 + s})
	}
	return rs
}

// File makes a file of count random levels numbered from 1.
func (g *Generator) File(count int, opts Options) *levelfile.File {
	f := &levelfile.File{}
	for i := 1; i <= count; i++ {
		f.Levels = append(f.Levels, g.Level(i, opts))
	}
	return f
}

// Scramble puts every rail of st in a random reachable-looking position and
// the player on a random plane.
func (g *Generator) Scramble(st *levelfile.State) {
	b := st.Built()
	for _, r := range b.Rails {
		var off int8
		switch r.Color {
		case rail.SquareColor:
			if g.intn(2) == 0 {
				off = r.MaxTileOffset
			}
		case rail.SawColor:
			off = int8(g.intn(int(r.MaxTileOffset)))
		default:
			off = int8(g.intn(int(r.MaxTileOffset) + 1))
		}
		dir := int8(1)
		if g.intn(2) == 0 {
			dir = -1
		}
		if err := st.SetRail(r.ID, off, dir); err != nil {
			panic(err)
		}
	}
	planes := b.Level.Planes()
	st.Plane = planes[g.intn(len(planes))]
}
