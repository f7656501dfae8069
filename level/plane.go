package level

import (
	"fmt"

	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/rail"
	"github.com/flickyourselfon/railhint/railmask"
)

const planeConnectionSteps = 1

type Tile struct {
	X int
	Y int
}

// ConnectionSwitch is an action available while standing on a plane.
type ConnectionSwitch struct {
	Switch        *rail.Switch
	AffectedRails []railmask.ByteMaskData
	Hint          hint.Hint
}

// Connection is a directed edge between planes. A gated connection is only
// open while the gating rail's tile offset bits are all zero.
type Connection struct {
	ToPlane                *Plane
	RailByteIndex          int
	RailTileOffsetByteMask uint32
	Steps                  int
	Hint                   hint.Hint

	rail *rail.Rail
}

func (c *Connection) Gated() bool {
	return c.RailByteIndex != railmask.AbsentByteIndex
}

// Rail is the rail this connection rides, or nil for plane-plane hops.
func (c *Connection) Rail() *rail.Rail {
	return c.rail
}

// Plane is a node in a level's graph: a region of tiles at one height that
// the player can walk around freely.
type Plane struct {
	owningLevel        *Level
	index              int
	name               string
	tiles              []Tile
	connectionSwitches []ConnectionSwitch
	connections        []Connection
	hasAction          bool

	left, top, right, bottom int
}

func (p *Plane) Index() int                             { return p.index }
func (p *Plane) Level() *Level                          { return p.owningLevel }
func (p *Plane) HasAction() bool                        { return p.hasAction }
func (p *Plane) Tiles() []Tile                          { return p.tiles }
func (p *Plane) Connections() []Connection              { return p.connections }
func (p *Plane) ConnectionSwitches() []ConnectionSwitch { return p.connectionSwitches }
func (p *Plane) Name() string                           { return p.name }
func (p *Plane) SetName(name string)                    { p.name = name }

func (p *Plane) String() string {
	if p.name != "" {
		return fmt.Sprintf("plane %d (%s)", p.index, p.name)
	}
	return fmt.Sprintf("plane %d", p.index)
}

func (p *Plane) AddTile(x, y int) {
	if len(p.tiles) == 0 {
		p.left, p.top, p.right, p.bottom = x, y, x, y
	} else {
		p.left = min(p.left, x)
		p.top = min(p.top, y)
		p.right = max(p.right, x)
		p.bottom = max(p.bottom, y)
	}
	p.tiles = append(p.tiles, Tile{x, y})
}

func (p *Plane) HintBounds() (left, top, right, bottom int) {
	return p.left, p.top, p.right, p.bottom
}

// AddConnectionSwitch registers a switch on this plane and returns its index
// for AddRailConnectionToSwitch.
func (p *Plane) AddConnectionSwitch(sw *rail.Switch) int {
	p.hasAction = true
	p.connectionSwitches = append(p.connectionSwitches, ConnectionSwitch{
		Switch: sw,
		Hint:   hint.ForSwitch(sw),
	})
	return len(p.connectionSwitches) - 1
}

// AddPlaneConnection adds an ungated hop to toPlane unless one already
// exists.
func (p *Plane) AddPlaneConnection(toPlane *Plane) {
	if p.isConnectedByPlanes(toPlane) {
		return
	}
	p.connections = append(p.connections, Connection{
		ToPlane:       toPlane,
		RailByteIndex: railmask.AbsentByteIndex,
		Steps:         planeConnectionSteps,
		Hint:          hint.ForPlane(toPlane),
	})
}

func (p *Plane) isConnectedByPlanes(toPlane *Plane) bool {
	for i := range p.connections {
		c := &p.connections[i]
		if c.ToPlane == toPlane && !c.Gated() {
			return true
		}
	}
	return false
}

// AddRailConnection adds an edge to toPlane gated by the rail at
// railByteMaskData.
func (p *Plane) AddRailConnection(toPlane *Plane, railByteMaskData *railmask.ByteMaskData, r *rail.Rail) {
	p.connections = append(p.connections, Connection{
		ToPlane:                toPlane,
		RailByteIndex:          railByteMaskData.ByteIndex,
		RailTileOffsetByteMask: railByteMaskData.TileOffsetMask(),
		Steps:                  r.RideSteps(),
		Hint:                   hint.ForRail(r),
		rail:                   r,
	})
}

// AddReverseRailConnection adds the return edge of a rail connection that
// toPlane already has to this plane. It reports whether that connection was
// found.
func (p *Plane) AddReverseRailConnection(toPlane *Plane, r *rail.Rail) bool {
	for i := range toPlane.connections {
		c := &toPlane.connections[i]
		if c.rail != r || c.ToPlane != p {
			continue
		}
		p.connections = append(p.connections, Connection{
			ToPlane:                toPlane,
			RailByteIndex:          c.RailByteIndex,
			RailTileOffsetByteMask: c.RailTileOffsetByteMask,
			Steps:                  c.Steps,
			Hint:                   hint.ForRail(r),
			rail:                   r,
		})
		return true
	}
	return false
}

func (p *Plane) AddRailConnectionToSwitch(railByteMaskData *railmask.ByteMaskData, connectionSwitchesIndex int) {
	cs := &p.connectionSwitches[connectionSwitchesIndex]
	cs.AffectedRails = append(cs.AffectedRails, *railByteMaskData)
}

// extendConnections copies the direct connections of every plane reachable
// through ungated hops from p, with the accumulated hop cost. The hint of an
// extended connection points at the first hop.
func (p *Plane) extendConnections(directCounts []int) {
	type reached struct {
		plane    *Plane
		steps    int
		firstHop *Plane
	}
	seen := map[*Plane]bool{p: true}
	queue := []reached{}
	for i := 0; i < directCounts[p.index]; i++ {
		c := p.connections[i]
		if c.Gated() || seen[c.ToPlane] {
			continue
		}
		seen[c.ToPlane] = true
		queue = append(queue, reached{c.ToPlane, c.Steps, c.ToPlane})
	}
	for qi := 0; qi < len(queue); qi++ {
		r := queue[qi]
		for i := 0; i < directCounts[r.plane.index]; i++ {
			c := r.plane.connections[i]
			if c.ToPlane == p {
				continue
			}
			if !c.Gated() {
				if seen[c.ToPlane] {
					continue
				}
				seen[c.ToPlane] = true
				queue = append(queue, reached{c.ToPlane, r.steps + c.Steps, r.firstHop})
			}
			if p.hasEquivalentConnection(&c) {
				continue
			}
			c.Steps += r.steps
			c.Hint = hint.ForPlane(r.firstHop)
			p.connections = append(p.connections, c)
		}
	}
}

func (p *Plane) hasEquivalentConnection(c *Connection) bool {
	for i := range p.connections {
		o := &p.connections[i]
		if o.ToPlane == c.ToPlane && o.RailByteIndex == c.RailByteIndex &&
			o.RailTileOffsetByteMask == c.RailTileOffsetByteMask {
			return true
		}
	}
	return false
}

// removeNonHasActionPlaneConnections drops ungated hops to planes where
// nothing can be done. Hops to keep are those reaching action planes or
// the victory plane.
func (p *Plane) removeNonHasActionPlaneConnections(victoryPlane *Plane) {
	kept := p.connections[:0]
	for _, c := range p.connections {
		if !c.Gated() && !c.ToPlane.hasAction && c.ToPlane != victoryPlane {
			continue
		}
		kept = append(kept, c)
	}
	clear(p.connections[len(kept):])
	p.connections = kept
}

func (p *Plane) countConnections() (planeConnections, railConnections int) {
	for i := range p.connections {
		if p.connections[i].Gated() {
			railConnections++
		} else {
			planeConnections++
		}
	}
	return planeConnections, railConnections
}
