package levelfile

import (
	"errors"
	"fmt"

	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/level"
	"github.com/flickyourselfon/railhint/rail"
	"github.com/flickyourselfon/railhint/railmask"
)

var (
	ErrUnknownRail   = errors.New("unknown rail")
	ErrUnknownSwitch = errors.New("unknown switch")
	ErrNotOnPlane    = errors.New("player is not on that plane")
	ErrNoMove        = errors.New("hint is not a move")
)

type liveRail struct {
	dir int8
	off int8
}

// State is the live game state of one built level: where the player is,
// where each rail sits, and which switch color was turned on last.
type State struct {
	built *Built
	rails map[int16]liveRail

	Plane                    *level.Plane
	LastActivatedSwitchColor rail.Color
	Kicks                    int
}

// NewState starts at the level's start plane with every rail in its
// initial position and every switch color powered.
func (b *Built) NewState() *State {
	s := &State{built: b, rails: make(map[int16]liveRail, len(b.Rails))}
	s.Reset()
	s.LastActivatedSwitchColor = rail.SineColor
	return s
}

func (s *State) Built() *Built { return s.built }

// Reset puts rails back to their initial state and the player on the start
// plane, like the in-game reset switch.
func (s *State) Reset() {
	for _, r := range s.built.Rails {
		dir, off := r.InitialState()
		s.rails[r.ID] = liveRail{dir: dir, off: off}
	}
	s.Plane = s.built.Start
	s.Kicks = 0
}

// RailState matches level.RailStateFunc.
func (s *State) RailState(railID int16, _ *rail.Rail) (movementDirection, tileOffset int8) {
	lr := s.rails[railID]
	return lr.dir, lr.off
}

func (s *State) SetRail(railID int16, tileOffset, movementDirection int8) error {
	r, ok := s.built.Rail(railID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRail, railID)
	}
	if tileOffset < 0 || tileOffset > r.MaxTileOffset || tileOffset > railmask.MaxTileOffset {
		return fmt.Errorf("%w: offset %d out of range for rail %d", ErrBadRail, tileOffset, railID)
	}
	if movementDirection != 1 && movementDirection != -1 {
		return fmt.Errorf("%w: direction %d", ErrBadRail, movementDirection)
	}
	s.rails[railID] = liveRail{dir: movementDirection, off: tileOffset}
	return nil
}

// Kick activates a switch. Radio tower switches power their color; other
// switches move every rail they control.
func (s *State) Kick(switchID int16) error {
	sw, ok := s.built.Switch(switchID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSwitch, switchID)
	}
	if sw.IsRadioTower() {
		s.LastActivatedSwitchColor = max(s.LastActivatedSwitchColor, sw.Color)
		return nil
	}
	for _, r := range s.built.Rails {
		if !sw.Controls(r) {
			continue
		}
		lr := s.rails[r.ID]
		off, bounced := r.TriggerMovement(lr.dir, lr.off)
		if bounced && r.Color != rail.SawColor {
			lr.dir = -lr.dir
		}
		lr.off = off
		s.rails[r.ID] = lr
	}
	s.Kicks++
	return nil
}

// Follow applies a hint as the player would: walk to the plane, ride the
// rail, or kick the switch.
func (s *State) Follow(h hint.Hint) error {
	switch h.Kind() {
	case hint.KindPlane:
		p, ok := h.Target().(*level.Plane)
		if !ok {
			return fmt.Errorf("%w: %v", ErrNoMove, h)
		}
		s.Plane = p
	case hint.KindRail:
		r, ok := h.Target().(*rail.Rail)
		if !ok {
			return fmt.Errorf("%w: %v", ErrNoMove, h)
		}
		from, to := s.built.RailEnds(r.ID)
		switch s.Plane {
		case from:
			s.Plane = to
		case to:
			s.Plane = from
		default:
			return fmt.Errorf("%w: %v", ErrNotOnPlane, r)
		}
	case hint.KindSwitch:
		sw, ok := h.Target().(*rail.Switch)
		if !ok {
			return fmt.Errorf("%w: %v", ErrNoMove, h)
		}
		if p := s.built.SwitchPlane(sw.ID); p != nil && p != s.Plane {
			return fmt.Errorf("%w: %v", ErrNotOnPlane, sw)
		}
		return s.Kick(sw.ID)
	default:
		return fmt.Errorf("%w: %v", ErrNoMove, h)
	}
	return nil
}

func (s *State) AtVictory() bool {
	return s.Plane != nil && s.Plane == s.built.Level.VictoryPlane()
}
