package levelfile

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/level"
	"github.com/flickyourselfon/railhint/rail"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func loadTestLevels(t *testing.T, opts BuildOptions) []*Built {
	t.Helper()
	f, err := Load("testdata/abc.yaml")
	require.NoError(t, err)
	built, err := BuildAll(f, opts)
	require.NoError(t, err)
	return built
}

func newWorkspace(t *testing.T, built []*Built) *level.SearchWorkspace {
	t.Helper()
	ws, err := level.NewSearchWorkspace(level.WorkspaceOptions{})
	require.NoError(t, err)
	ws.Setup(Levels(built))
	return ws
}

func TestBuild(t *testing.T) {
	built := loadTestLevels(t, BuildOptions{})
	require.Len(t, built, 2)

	b := built[0]
	assert.Equal(t, 1, b.Level.LevelN())
	assert.Equal(t, "a", b.Start.Name())
	assert.Equal(t, b.Planes["c"], b.Level.VictoryPlane())
	require.NotNil(t, b.RadioTower)
	assert.Equal(t, hint.ForSwitch(b.RadioTower), b.Level.RadioTowerHint())
	assert.Equal(t, hint.ForUndoReset(b.Reset), b.Level.UndoResetHint())
	assert.Equal(t, rail.SquareColor, b.Level.MinimumRailColor())

	a := b.Planes["a"]
	require.Len(t, a.ConnectionSwitches(), 1)
	cs := a.ConnectionSwitches()[0]
	require.Len(t, cs.AffectedRails, 1)
	assert.Equal(t, int16(0), cs.AffectedRails[0].RailID)
	assert.Nil(t, b.SwitchPlane(0))
	assert.Equal(t, a, b.SwitchPlane(1))

	l, tp, r, bt := a.HintBounds()
	assert.Equal(t, []int{0, 0, 1, 1}, []int{l, tp, r, bt})

	two := built[1]
	stats := two.Level.Stats()
	assert.Equal(t, 5, stats.Planes)
	assert.Equal(t, 3, stats.ActionPlanes)
	assert.Equal(t, 2, stats.Rails)
	assert.Equal(t, 1, stats.Words)
	assert.Equal(t, [rail.ColorCount]int{0, 2, 1, 0}, stats.SwitchesByColor)
	// the transit plane is collapsed away
	for _, c := range two.Planes["low"].Connections() {
		assert.NotEqual(t, two.Planes["mid"], c.ToPlane)
	}

	found, ok := Find(built, 2)
	assert.True(t, ok)
	assert.Equal(t, two, found)
	_, ok = Find(built, 7)
	assert.False(t, ok)
}

func TestBuildErrors(t *testing.T) {
	base := func() LevelSpec {
		return LevelSpec{
			N:       1,
			Start:   "a",
			Victory: "b",
			Planes:  []PlaneSpec{{Name: "a"}, {Name: "b"}},
		}
	}
	cases := []struct {
		name   string
		mutate func(*LevelSpec)
		err    error
	}{
		{"unknown start", func(s *LevelSpec) { s.Start = "z" }, ErrUnknownPlane},
		{"unknown victory", func(s *LevelSpec) { s.Victory = "z" }, ErrUnknownPlane},
		{"duplicate plane", func(s *LevelSpec) { s.Planes = append(s.Planes, PlaneSpec{Name: "a"}) }, ErrDuplicatePlane},
		{"unknown connection", func(s *LevelSpec) {
			s.Connections = []ConnectionSpec{{From: "a", To: "q"}}
		}, ErrUnknownPlane},
		{"bad rail color", func(s *LevelSpec) {
			s.Rails = []RailSpec{{ID: 1, Color: "mauve", MaxOffset: 1, From: "a", To: "b"}}
		}, rail.ErrUnknownColor},
		{"rail offset beyond max", func(s *LevelSpec) {
			s.Rails = []RailSpec{{ID: 1, Color: "saw", InitialOffset: 4, MaxOffset: 3, From: "a", To: "b"}}
		}, ErrBadRail},
		{"rail magnitude beyond max", func(s *LevelSpec) {
			s.Rails = []RailSpec{{ID: 1, Color: "triangle", MaxOffset: 2, Magnitude: 5, From: "a", To: "b"}}
		}, ErrBadRail},
		{"negative rail magnitude", func(s *LevelSpec) {
			s.Rails = []RailSpec{{ID: 1, Color: "saw", MaxOffset: 3, Magnitude: -1, From: "a", To: "b"}}
		}, ErrBadRail},
		{"moving rail that cannot move", func(s *LevelSpec) {
			s.Rails = []RailSpec{{ID: 1, Color: "triangle", MaxOffset: 0, From: "a", To: "b"}}
		}, rail.ErrBadMovement},
		{"rail loops to itself", func(s *LevelSpec) {
			s.Rails = []RailSpec{{ID: 1, Color: "saw", MaxOffset: 3, From: "a", To: "a"}}
		}, ErrBadRail},
		{"duplicate rail", func(s *LevelSpec) {
			r := RailSpec{ID: 1, Color: "saw", MaxOffset: 3, From: "a", To: "b"}
			s.Rails = []RailSpec{r, r}
		}, ErrDuplicateRail},
		{"two switches for one group", func(s *LevelSpec) {
			s.Switches = []SwitchSpec{
				{ID: 1, Color: "sine", Group: 2, Plane: "a"},
				{ID: 2, Color: "sine", Group: 2, Plane: "b"},
			}
		}, ErrDuplicateSwitch},
		{"switch without color", func(s *LevelSpec) {
			s.Switches = []SwitchSpec{{ID: 1, Color: "none", Group: 2, Plane: "a"}}
		}, ErrBadSwitch},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spec := base()
			c.mutate(&spec)
			_, err := Build(spec, BuildOptions{})
			assert.ErrorIs(t, err, c.err)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("levels:\n  - n: 1\n    start: a\n    colour: red\n"))
	assert.Error(t, err)
	_, err = Parse(strings.NewReader("levels: []\n"))
	assert.ErrorIs(t, err, ErrNoLevels)
}

func TestWriteThenParse(t *testing.T) {
	is := is.New(t)
	f, err := Load("testdata/abc.yaml")
	is.NoErr(err)
	var buf bytes.Buffer
	is.NoErr(f.Write(&buf))
	again, err := Parse(&buf)
	is.NoErr(err)
	is.Equal(again, f)
}

func TestFollowHintsABC(t *testing.T) {
	is := is.New(t)
	built := loadTestLevels(t, BuildOptions{})
	ws := newWorkspace(t, built)
	b := built[0]
	st := b.NewState()
	st.LastActivatedSwitchColor = rail.NoColor
	ctx := context.Background()

	next := func() hint.Hint {
		return b.Level.GenerateHint(ctx, ws, st.Plane, st.RailState, st.LastActivatedSwitchColor)
	}

	h := next()
	is.Equal(h, hint.ForSwitch(b.RadioTower))
	is.NoErr(st.Follow(h))
	is.Equal(st.LastActivatedSwitchColor, rail.SquareColor)

	sw, _ := b.Switch(1)
	h = next()
	is.Equal(h, hint.ForSwitch(sw))
	is.NoErr(st.Follow(h))
	dir, off := st.RailState(0, nil)
	is.Equal(off, int8(0))
	is.Equal(dir, int8(-1))

	r, _ := b.Rail(0)
	h = next()
	is.Equal(h, hint.ForRail(r))
	is.NoErr(st.Follow(h))
	is.Equal(st.Plane, b.Planes["b"])

	h = next()
	is.Equal(h, hint.ForPlane(b.Planes["c"]))
	is.NoErr(st.Follow(h))
	is.True(st.AtVictory())
	is.Equal(next(), hint.None)
}

func TestFollowHintsToVictory(t *testing.T) {
	is := is.New(t)
	for _, opts := range []BuildOptions{{}, {SkipOptimize: true}} {
		built := loadTestLevels(t, opts)
		ws := newWorkspace(t, built)
		b := built[1]
		st := b.NewState()
		ctx := context.Background()

		h := b.Level.GenerateHint(ctx, ws, st.Plane, st.RailState, st.LastActivatedSwitchColor)
		kick, _ := b.Switch(11)
		is.Equal(h, hint.ForSwitch(kick))
		remaining := ws.LastStats().SolutionSteps
		is.Equal(remaining, 7)

		for moves := 0; !st.AtVictory(); moves++ {
			is.True(moves < 20)
			is.True(h.IsAdvancement())
			is.NoErr(st.Follow(h))
			h = b.Level.GenerateHint(ctx, ws, st.Plane, st.RailState, st.LastActivatedSwitchColor)
			if !st.AtVictory() {
				is.True(ws.LastStats().SolutionSteps < remaining)
				remaining = ws.LastStats().SolutionSteps
			}
		}
		is.Equal(st.Kicks, 4)
	}
}

func TestStateEdits(t *testing.T) {
	is := is.New(t)
	built := loadTestLevels(t, BuildOptions{})
	st := built[1].NewState()

	is.NoErr(st.SetRail(3, 0, 1))
	dir, off := st.RailState(3, nil)
	is.Equal([]int8{dir, off}, []int8{1, 0})
	is.True(st.SetRail(3, 4, 1) != nil)
	is.True(st.SetRail(3, 1, 0) != nil)
	is.True(st.SetRail(99, 0, 1) != nil)

	// saw wraps without flipping direction
	is.NoErr(st.Kick(12))
	is.NoErr(st.Kick(12))
	dir, off = st.RailState(4, nil)
	is.Equal([]int8{dir, off}, []int8{-1, 2})

	is.True(st.Kick(77) != nil)
	is.True(st.Follow(hint.UndoReset) != nil)
	st.Reset()
	dir, off = st.RailState(4, nil)
	is.Equal([]int8{dir, off}, []int8{-1, 1})
	is.Equal(st.Kicks, 0)
}
