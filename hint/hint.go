// Package hint defines the result of a hint search: what the player should
// do next.
package hint

import "fmt"

type Kind uint8

const (
	KindNone Kind = iota
	KindUndoReset
	KindSearchCanceledEarly
	KindPlane
	KindRail
	KindSwitch
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUndoReset:
		return "undo-reset"
	case KindSearchCanceledEarly:
		return "search-canceled-early"
	case KindPlane:
		return "plane"
	case KindRail:
		return "rail"
	case KindSwitch:
		return "switch"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Target is anything a hint can point at. Bounds are inclusive tile
// coordinates.
type Target interface {
	HintBounds() (left, top, right, bottom int)
}

// Hint is a tagged reference. Target is nil for None and
// SearchCanceledEarly, and may be nil for UndoReset when the level has no
// reset switch.
type Hint struct {
	kind   Kind
	target Target
}

var (
	None                = Hint{kind: KindNone}
	UndoReset           = Hint{kind: KindUndoReset}
	SearchCanceledEarly = Hint{kind: KindSearchCanceledEarly}
)

func ForPlane(t Target) Hint     { return Hint{kind: KindPlane, target: t} }
func ForRail(t Target) Hint      { return Hint{kind: KindRail, target: t} }
func ForSwitch(t Target) Hint    { return Hint{kind: KindSwitch, target: t} }
func ForUndoReset(t Target) Hint { return Hint{kind: KindUndoReset, target: t} }

func (h Hint) Kind() Kind       { return h.kind }
func (h Hint) Target() Target   { return h.target }
func (h Hint) IsNone() bool     { return h.kind == KindNone }
func (h Hint) IsSwitch() bool   { return h.kind == KindSwitch }
func (h Hint) IsPlane() bool    { return h.kind == KindPlane }
func (h Hint) IsRail() bool     { return h.kind == KindRail }
func (h Hint) IsCanceled() bool { return h.kind == KindSearchCanceledEarly }

// IsAdvancement reports whether following the hint moves the player
// toward victory, as opposed to a fallback.
func (h Hint) IsAdvancement() bool {
	return h.kind == KindPlane || h.kind == KindRail || h.kind == KindSwitch
}

// Bounds returns the tile rectangle to highlight. ok is false when there is
// nothing to draw.
func (h Hint) Bounds() (left, top, right, bottom int, ok bool) {
	if h.target == nil {
		return 0, 0, 0, 0, false
	}
	left, top, right, bottom = h.target.HintBounds()
	return left, top, right, bottom, true
}

func (h Hint) String() string {
	if h.target == nil {
		return h.kind.String()
	}
	if s, ok := h.target.(fmt.Stringer); ok {
		return h.kind.String() + ": " + s.String()
	}
	l, t, r, b := h.target.HintBounds()
	return fmt.Sprintf("%v: (%d,%d)-(%d,%d)", h.kind, l, t, r, b)
}
