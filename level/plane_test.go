package level

import (
	"testing"

	"github.com/matryer/is"

	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/rail"
	"github.com/flickyourselfon/railhint/railmask"
)

func TestAddPlaneConnectionIsIdempotent(t *testing.T) {
	is := is.New(t)
	l := New(1, 0)
	a := l.AddNewPlane()
	b := l.AddNewPlane()
	a.AddPlaneConnection(b)
	a.AddPlaneConnection(b)
	is.Equal(len(a.Connections()), 1)
	is.Equal(a.Connections()[0].Hint, hint.ForPlane(b))
	is.Equal(a.Connections()[0].Steps, 1)
	is.True(!a.Connections()[0].Gated())
}

func TestReverseRailConnectionCopiesGate(t *testing.T) {
	is := is.New(t)
	l := New(1, 0)
	a := l.AddNewPlane()
	b := l.AddNewPlane()
	l.TrackNextRail(0, &rail.Rail{ID: 0})
	r := &rail.Rail{ID: 1, Segments: []rail.Segment{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}}
	bmd := l.RailByteMaskData(l.TrackNextRail(1, r))
	a.AddRailConnection(b, bmd, r)
	is.True(b.AddReverseRailConnection(a, r))
	is.True(!b.AddReverseRailConnection(a, &rail.Rail{ID: 2}))

	back := b.Connections()[0]
	is.Equal(back.ToPlane, a)
	is.Equal(back.RailByteIndex, 0)
	is.Equal(back.RailTileOffsetByteMask, railmask.BaseTileOffsetMask<<4)
	is.Equal(back.Steps, 2)
	is.Equal(back.Rail(), r)
	is.Equal(back.Hint, hint.ForRail(r))
}

func TestPlaneBounds(t *testing.T) {
	is := is.New(t)
	p := New(1, 0).AddNewPlane()
	p.AddTile(5, 5)
	p.AddTile(3, 6)
	p.AddTile(7, 4)
	l, tp, r, b := p.HintBounds()
	is.Equal([]int{l, tp, r, b}, []int{3, 4, 7, 6})
}

func TestOptimizePlanesCollapsesTransitPlanes(t *testing.T) {
	is := is.New(t)
	l := New(1, 0)
	a := l.AddNewPlane()
	transit := l.AddNewPlane()
	action := l.AddNewPlane()
	beyond := l.AddNewPlane()
	v := l.AddVictoryPlane()
	action.AddConnectionSwitch(&rail.Switch{ID: 1, Group: 1})

	r := &rail.Rail{ID: 0, Segments: []rail.Segment{{X: 0, Y: 0}, {X: 0, Y: 1}}}
	bmd := l.RailByteMaskData(l.TrackNextRail(0, r))
	a.AddPlaneConnection(transit)
	transit.AddPlaneConnection(action)
	transit.AddRailConnection(beyond, bmd, r)
	action.AddPlaneConnection(v)

	l.OptimizePlanes()

	byTarget := map[*Plane]Connection{}
	for _, c := range a.Connections() {
		byTarget[c.ToPlane] = c
	}
	_, hasTransit := byTarget[transit]
	is.True(!hasTransit)

	toAction := byTarget[action]
	is.Equal(toAction.Steps, 2)
	is.Equal(toAction.Hint, hint.ForPlane(transit))
	is.True(!toAction.Gated())

	toBeyond := byTarget[beyond]
	is.True(toBeyond.Gated())
	is.Equal(toBeyond.Steps, 2)
	is.Equal(toBeyond.Hint, hint.ForPlane(transit))

	toVictory := byTarget[v]
	is.Equal(toVictory.Steps, 3)
	is.Equal(toVictory.Hint, hint.ForPlane(transit))

	// hops straight to the victory plane are kept
	is.Equal(len(action.Connections()), 1)

	stats := l.Stats()
	is.Equal(stats.Planes, 5)
	is.Equal(stats.ActionPlanes, 1)
	is.Equal(stats.Rails, 1)

	// a second call is a no-op
	before := len(a.Connections())
	l.OptimizePlanes()
	is.Equal(len(a.Connections()), before)
}

func TestMinimumRailColor(t *testing.T) {
	is := is.New(t)
	l := New(1, 0)
	is.Equal(l.MinimumRailColor(), rail.NoColor)
	l.TrackNextRail(0, &rail.Rail{Color: rail.SawColor})
	is.Equal(l.MinimumRailColor(), rail.SawColor)
	l.TrackNextRail(1, &rail.Rail{Color: rail.TriangleColor})
	is.Equal(l.MinimumRailColor(), rail.TriangleColor)
	l.TrackNextRail(2, &rail.Rail{Color: rail.SineColor})
	is.Equal(l.MinimumRailColor(), rail.TriangleColor)
}
