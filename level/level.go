// Package level holds the plane graph of one puzzle and the hint search
// that runs over it.
package level

import (
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/rail"
	"github.com/flickyourselfon/railhint/railmask"
)

// RailStateFunc supplies the live movement direction (-1 or 1) and tile
// offset of a rail.
type RailStateFunc func(railID int16, r *rail.Rail) (movementDirection, tileOffset int8)

type Level struct {
	levelN    int
	startTile int

	planes           []*Plane
	railByteMasks    []railmask.ByteMaskData
	allocator        railmask.Allocator
	victoryPlane     *Plane
	minimumRailColor rail.Color
	radioTowerHint   hint.Hint
	undoResetHint    hint.Hint
	optimized        bool
}

func New(levelN, startTile int) *Level {
	return &Level{
		levelN:           levelN,
		startTile:        startTile,
		minimumRailColor: rail.NoColor,
		radioTowerHint:   hint.None,
		undoResetHint:    hint.UndoReset,
	}
}

func (l *Level) LevelN() int                  { return l.levelN }
func (l *Level) StartTile() int               { return l.startTile }
func (l *Level) Planes() []*Plane             { return l.planes }
func (l *Level) VictoryPlane() *Plane         { return l.victoryPlane }
func (l *Level) MinimumRailColor() rail.Color { return l.minimumRailColor }
func (l *Level) RadioTowerHint() hint.Hint    { return l.radioTowerHint }
func (l *Level) UndoResetHint() hint.Hint     { return l.undoResetHint }

func (l *Level) AddNewPlane() *Plane {
	p := &Plane{owningLevel: l, index: len(l.planes)}
	l.planes = append(l.planes, p)
	return p
}

// AddVictoryPlane adds the goal plane. A level has at most one.
func (l *Level) AddVictoryPlane() *Plane {
	if l.victoryPlane != nil {
		return l.victoryPlane
	}
	l.victoryPlane = l.AddNewPlane()
	l.victoryPlane.name = "victory"
	return l.victoryPlane
}

func (l *Level) AssignRadioTowerSwitch(sw *rail.Switch) {
	l.radioTowerHint = hint.ForSwitch(sw)
}

func (l *Level) AssignResetSwitch(rs *rail.ResetSwitch) {
	l.undoResetHint = hint.ForUndoReset(rs)
}

// TrackNextRail assigns a bit field to a rail and returns the index to pass
// to RailByteMaskData.
func (l *Level) TrackNextRail(railID int16, r *rail.Rail) int {
	byteIndex, bitShift := l.TrackRailByteMaskBits(railmask.BitCount)
	l.railByteMasks = append(l.railByteMasks, railmask.NewByteMaskData(r, byteIndex, bitShift))
	if l.minimumRailColor == rail.NoColor || r.Color < l.minimumRailColor {
		l.minimumRailColor = r.Color
	}
	return len(l.railByteMasks) - 1
}

func (l *Level) TrackRailByteMaskBits(nBits int) (byteIndex int, bitShift uint) {
	return l.allocator.Track(nBits)
}

func (l *Level) RailByteMaskData(i int) *railmask.ByteMaskData {
	return &l.railByteMasks[i]
}

func (l *Level) AllRailByteMaskData() []railmask.ByteMaskData {
	return l.railByteMasks
}

// RailByteMaskCount is the number of words in this level's state vector.
func (l *Level) RailByteMaskCount() int {
	return l.allocator.WordCount()
}

// OptimizePlanes collapses chains of ungated hops into direct connections
// and then drops hops to planes where the player cannot act. It is run once
// after building and must not be run again.
func (l *Level) OptimizePlanes() {
	if l.optimized {
		return
	}
	l.optimized = true
	directCounts := make([]int, len(l.planes))
	for i, p := range l.planes {
		directCounts[i] = len(p.connections)
	}
	for _, p := range l.planes {
		p.extendConnections(directCounts)
	}
	for _, p := range l.planes {
		p.removeNonHasActionPlaneConnections(l.victoryPlane)
	}
}

// LevelStats summarizes the shape of a level's graph.
type LevelStats struct {
	Planes           int
	ActionPlanes     int
	Rails            int
	Words            int
	SwitchesByColor  [rail.ColorCount]int
	PlaneConnections int
	RailConnections  int
}

func (l *Level) Stats() LevelStats {
	s := LevelStats{
		Planes:       len(l.planes),
		ActionPlanes: lo.CountBy(l.planes, func(p *Plane) bool { return p.hasAction }),
		Rails:        len(l.railByteMasks),
		Words:        l.RailByteMaskCount(),
	}
	for _, p := range l.planes {
		for _, cs := range p.connectionSwitches {
			if cs.Switch != nil && cs.Switch.Color >= 0 && cs.Switch.Color < rail.ColorCount {
				s.SwitchesByColor[cs.Switch.Color]++
			}
		}
		pc, rc := p.countConnections()
		s.PlaneConnections += pc
		s.RailConnections += rc
	}
	return s
}

func (l *Level) LogStats() {
	s := l.Stats()
	log.Info().
		Int("level", l.levelN).
		Int("planes", s.Planes).
		Int("action-planes", s.ActionPlanes).
		Int("rails", s.Rails).
		Int("words", s.Words).
		Ints("switches-by-color", s.SwitchesByColor[:]).
		Int("plane-connections", s.PlaneConnections).
		Int("rail-connections", s.RailConnections).
		Bool("optimized", l.optimized).
		Msg("level-stats")
}
