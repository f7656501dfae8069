package rail

import "fmt"

// SwitchTileSize is the width and height of a switch, in tiles.
const SwitchTileSize = 2

// Switch moves every rail that shares its color and one of its groups.
// Group 0 is reserved for radio tower switches.
type Switch struct {
	ID    int16
	Color Color
	Group int8
	LeftX int
	TopY  int
}

func (s *Switch) IsRadioTower() bool {
	return s.Group == 0
}

// Controls reports whether kicking this switch moves r.
func (s *Switch) Controls(r *Rail) bool {
	return s.Color == r.Color && r.HasGroup(s.Group)
}

func (s *Switch) HintBounds() (left, top, right, bottom int) {
	return s.LeftX, s.TopY, s.LeftX + SwitchTileSize - 1, s.TopY + SwitchTileSize - 1
}

func (s *Switch) String() string {
	return fmt.Sprintf("switch %d (%v, group %d)", s.ID, s.Color, s.Group)
}

// ResetSwitch puts every rail in its level back to its initial state.
type ResetSwitch struct {
	CenterX int
	BottomY int
}

func (r *ResetSwitch) HintBounds() (left, top, right, bottom int) {
	return r.CenterX, r.BottomY - 1, r.CenterX, r.BottomY
}
