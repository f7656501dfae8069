package rail

import (
	"errors"
	"fmt"
	"strings"
)

// Color is the wave shape of a rail or switch. Switches only move rails of
// their own color.
type Color int8

const (
	SquareColor Color = iota
	TriangleColor
	SawColor
	SineColor
)

const ColorCount = 4

// NoColor is the last activated switch color before any radio tower has
// been turned on.
const NoColor Color = -1

var (
	ErrUnknownColor = errors.New("unknown rail color")
	ErrBadMovement  = errors.New("rail movement out of range")
)

func (c Color) String() string {
	switch c {
	case SquareColor:
		return "square"
	case TriangleColor:
		return "triangle"
	case SawColor:
		return "saw"
	case SineColor:
		return "sine"
	case NoColor:
		return "none"
	}
	return fmt.Sprintf("color(%d)", int(c))
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "square", "0":
		return SquareColor, nil
	case "triangle", "1":
		return TriangleColor, nil
	case "saw", "2":
		return SawColor, nil
	case "sine", "3":
		return SineColor, nil
	case "none", "-1":
		return NoColor, nil
	}
	return NoColor, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

type Segment struct {
	X int
	Y int
}

// Rail is a movable puzzle element. Its tile offset is how far it sits
// below its base height; a rail can only be ridden at offset 0.
type Rail struct {
	ID                       int16
	Color                    Color
	Groups                   []int8
	InitialTileOffset        int8
	InitialMovementDirection int8
	MaxTileOffset            int8
	MovementMagnitude        int8
	Segments                 []Segment
}

// TriggerMovement moves the rail one kick in the given direction, starting
// from tileOffset. It returns the new offset and whether the movement hit
// an end of the rail's range.
func (r *Rail) TriggerMovement(movementDirection, tileOffset int8) (int8, bool) {
	switch r.Color {
	case SquareColor:
		if tileOffset == 0 {
			return r.MaxTileOffset, false
		}
		return 0, false
	case TriangleColor:
		tileOffset += r.MovementMagnitude * movementDirection
		if tileOffset < 0 {
			return -tileOffset, true
		} else if tileOffset > r.MaxTileOffset {
			return r.MaxTileOffset*2 - tileOffset, true
		}
		return tileOffset, false
	case SawColor:
		tileOffset += r.MovementMagnitude * movementDirection
		if tileOffset < 0 {
			return tileOffset + r.MaxTileOffset, true
		} else if tileOffset >= r.MaxTileOffset {
			return tileOffset - r.MaxTileOffset, true
		}
		return tileOffset, false
	default:
		return tileOffset, false
	}
}

// CheckMovement reports rails whose kicks could leave [0, MaxTileOffset].
// Triangle and saw rails need a magnitude in [1, MaxTileOffset].
func (r *Rail) CheckMovement() error {
	if r.Color != TriangleColor && r.Color != SawColor {
		return nil
	}
	if r.MovementMagnitude < 1 || r.MovementMagnitude > r.MaxTileOffset {
		return fmt.Errorf("%w: rail %d magnitude %d with max offset %d",
			ErrBadMovement, r.ID, r.MovementMagnitude, r.MaxTileOffset)
	}
	return nil
}

// InitialState is the rail's state when its level starts. A zero
// InitialMovementDirection is read as -1.
func (r *Rail) InitialState() (movementDirection, tileOffset int8) {
	if r.InitialMovementDirection > 0 {
		return 1, r.InitialTileOffset
	}
	return -1, r.InitialTileOffset
}

// CanRide reports whether a rail at the given offset connects its planes.
func CanRide(tileOffset int8) bool {
	return tileOffset == 0
}

// RideSteps is the cost of travelling along the rail from one end to the
// other.
func (r *Rail) RideSteps() int {
	if len(r.Segments) < 2 {
		return 1
	}
	return len(r.Segments) - 1
}

func (r *Rail) HasGroup(group int8) bool {
	for _, g := range r.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// HintBounds returns the tile bounds covered by the rail's segments.
func (r *Rail) HintBounds() (left, top, right, bottom int) {
	if len(r.Segments) == 0 {
		return 0, 0, 0, 0
	}
	left, top = r.Segments[0].X, r.Segments[0].Y
	right, bottom = left, top
	for _, s := range r.Segments[1:] {
		left = min(left, s.X)
		top = min(top, s.Y)
		right = max(right, s.X)
		bottom = max(bottom, s.Y)
	}
	return left, top, right, bottom
}

func (r *Rail) String() string {
	return fmt.Sprintf("rail %d (%v, groups %v)", r.ID, r.Color, r.Groups)
}
