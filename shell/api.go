package shell

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/flickyourselfon/railhint/config"
	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/level"
	"github.com/flickyourselfon/railhint/levelfile"
	"github.com/flickyourselfon/railhint/rail"
	"github.com/flickyourselfon/railhint/stats"
)

const maxFollowMoves = 1000

func (sc *ShellController) requireLevel() error {
	if sc.cur == nil {
		return errNoLevel
	}
	return nil
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	path := sc.cfg.GetString(config.ConfigLevelsPath)
	if len(cmd.args) > 0 {
		path = cmd.args[0]
	}
	built, err := levelfile.Get(sc.cfg, path)
	if err != nil {
		return nil, err
	}
	ws, err := level.NewSearchWorkspace(sc.cfg.SearchOptions())
	if err != nil {
		return nil, err
	}
	ws.Setup(levelfile.Levels(built))
	sc.levelsPath = path
	sc.built = built
	sc.ws = ws
	sc.timings = stats.Sample{}
	sc.steps = stats.Statistic{}
	sc.setLevel(built[0])
	return msg(fmt.Sprintf("loaded %d levels from %s\n%s", len(built), path, sc.describe())), nil
}

func (sc *ShellController) setLevel(b *levelfile.Built) {
	sc.cur = b
	sc.state = b.NewState()
	sc.lastHint = hint.None
}

func (sc *ShellController) levels(cmd *shellcmd) (*Response, error) {
	if sc.built == nil {
		return nil, errNoLevel
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%5s %7s %7s %6s %6s %s\n", "level", "planes", "actions", "rails", "words", "switches")
	for _, b := range sc.built {
		s := b.Level.Stats()
		marker := " "
		if b == sc.cur {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s%4d %7d %7d %6d %6d %v\n", marker, b.Spec.N, s.Planes, s.ActionPlanes,
			s.Rails, s.Words, s.SwitchesByColor)
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) selectLevel(cmd *shellcmd) (*Response, error) {
	if sc.built == nil {
		return nil, errNoLevel
	}
	if len(cmd.args) != 1 {
		return nil, errors.New("level <n>")
	}
	n, err := strconv.Atoi(cmd.args[0])
	if err != nil {
		return nil, err
	}
	b, ok := levelfile.Find(sc.built, n)
	if !ok {
		return nil, fmt.Errorf("no level %d in %s", n, sc.levelsPath)
	}
	sc.setLevel(b)
	return msg(sc.describe()), nil
}

func (sc *ShellController) at(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	if len(cmd.args) != 1 {
		return nil, errors.New("at <plane>")
	}
	p, ok := sc.cur.Planes[cmd.args[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", levelfile.ErrUnknownPlane, cmd.args[0])
	}
	sc.state.Plane = p
	return msg("player is on " + p.String()), nil
}

func (sc *ShellController) rail(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	if len(cmd.args) < 2 || len(cmd.args) > 3 {
		return nil, errors.New("rail <id> <offset> [direction]")
	}
	id, err := strconv.ParseInt(cmd.args[0], 10, 16)
	if err != nil {
		return nil, err
	}
	off, err := strconv.ParseInt(cmd.args[1], 10, 8)
	if err != nil {
		return nil, err
	}
	dir, _ := sc.state.RailState(int16(id), nil)
	if len(cmd.args) == 3 {
		d, err := strconv.ParseInt(cmd.args[2], 10, 8)
		if err != nil {
			return nil, err
		}
		dir = int8(d)
	}
	if err := sc.state.SetRail(int16(id), int8(off), dir); err != nil {
		return nil, err
	}
	return msg(sc.describeRails()), nil
}

func (sc *ShellController) color(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	if len(cmd.args) != 1 {
		return nil, errors.New("color <square|triangle|saw|sine|none>")
	}
	c, err := rail.ParseColor(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.state.LastActivatedSwitchColor = c
	return msg("last activated switch color is " + c.String()), nil
}

// search runs one hint search from the current state and records its
// timing.
func (sc *ShellController) search() (hint.Hint, level.SearchStats) {
	ctx, cancel := sc.searchContext()
	defer cancel()
	st := sc.state
	h := sc.cur.Level.GenerateHint(ctx, sc.ws, st.Plane, st.RailState, st.LastActivatedSwitchColor)
	ss := sc.ws.LastStats()
	sc.timings.PushDuration(ss.Duration)
	if h.IsAdvancement() {
		sc.steps.Push(float64(ss.SolutionSteps))
	}
	sc.lastHint = h
	return h, ss
}

func (sc *ShellController) hint(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	h, st := sc.search()
	return msg(describeHint(h, st)), nil
}

func describeHint(h hint.Hint, st level.SearchStats) string {
	var sb strings.Builder
	sb.WriteString(h.String())
	if l, t, r, b, ok := h.Bounds(); ok {
		fmt.Fprintf(&sb, " at (%d,%d)-(%d,%d)", l, t, r, b)
	}
	if h.IsAdvancement() {
		fmt.Fprintf(&sb, "\n%d steps to victory", st.SolutionSteps)
	}
	fmt.Fprintf(&sb, "\n%d states, %d replaced, %d comparisons in %v",
		st.StatesCreated, st.StatesReplaced, st.Comparisons, st.Duration.Round(time.Microsecond))
	if st.CanceledByLimit {
		sb.WriteString(" (step limit)")
	}
	return sb.String()
}

func (sc *ShellController) kick(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	var planeName, idStr string
	switch len(cmd.args) {
	case 1:
		idStr = cmd.args[0]
	case 2:
		planeName, idStr = cmd.args[0], cmd.args[1]
	default:
		return nil, errors.New("kick [plane] <switch>")
	}
	id, err := strconv.ParseInt(idStr, 10, 16)
	if err != nil {
		return nil, err
	}
	if planeName != "" {
		p, ok := sc.cur.Planes[planeName]
		if !ok {
			return nil, fmt.Errorf("%w: %q", levelfile.ErrUnknownPlane, planeName)
		}
		sc.state.Plane = p
	}
	sw, ok := sc.cur.Switch(int16(id))
	if !ok {
		return nil, fmt.Errorf("%w: %d", levelfile.ErrUnknownSwitch, id)
	}
	if err := sc.state.Follow(hint.ForSwitch(sw)); err != nil {
		return nil, err
	}
	return msg(sc.describe()), nil
}

// follow asks for a hint and applies it. With -moves n it repeats up to n
// times, stopping at victory or at the first hint that is not a move.
func (sc *ShellController) follow(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	moves, err := cmd.options.Int("moves", 1)
	if err != nil {
		return nil, err
	}
	if len(cmd.args) == 1 && cmd.args[0] == "all" {
		moves = maxFollowMoves
	}
	var lines []string
	for i := 0; i < moves && !sc.state.AtVictory(); i++ {
		h, _ := sc.search()
		if err := sc.state.Follow(h); err != nil {
			lines = append(lines, "stopped at "+h.String())
			break
		}
		lines = append(lines, fmt.Sprintf("%3d. %v", i+1, h))
	}
	if sc.state.AtVictory() {
		lines = append(lines, "victory")
	}
	return msg(strings.Join(lines, "\n")), nil
}

func (sc *ShellController) reset(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	sc.state.Reset()
	return msg(sc.describe()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	if err := sc.requireLevel(); err != nil {
		return nil, err
	}
	return msg(sc.describe()), nil
}

func (sc *ShellController) describe() string {
	st := sc.state
	var sb strings.Builder
	fmt.Fprintf(&sb, "level %d, player on %v", sc.cur.Spec.N, st.Plane)
	if st.AtVictory() {
		sb.WriteString(" (victory)")
	}
	fmt.Fprintf(&sb, "\nlast switch color %v, %d kicks\n", st.LastActivatedSwitchColor, st.Kicks)
	sb.WriteString(sc.describeRails())
	return sb.String()
}

func (sc *ShellController) describeRails() string {
	rails := append([]*rail.Rail(nil), sc.cur.Rails...)
	sort.Slice(rails, func(i, j int) bool { return rails[i].ID < rails[j].ID })
	lines := lo.Map(rails, func(r *rail.Rail, _ int) string {
		dir, off := sc.state.RailState(r.ID, r)
		from, to := sc.cur.RailEnds(r.ID)
		open := ""
		if rail.CanRide(off) {
			open = " open"
		}
		return fmt.Sprintf("  %v: offset %d/%d dir %+d, %s -> %s%s", r, off, r.MaxTileOffset, dir,
			from.Name(), to.Name(), open)
	})
	return strings.Join(lines, "\n")
}

func (sc *ShellController) stats(cmd *shellcmd) (*Response, error) {
	if sc.ws == nil {
		return nil, errNoLevel
	}
	if sc.timings.Iterations() == 0 {
		return msg("no searches yet"), nil
	}
	var sb strings.Builder
	t := &sc.timings
	fmt.Fprintf(&sb, "%d searches, mean %v ± %v (95%%), p50 %v, p99 %v, max %v\n",
		t.Iterations(),
		time.Duration(t.Mean()).Round(time.Microsecond),
		time.Duration(t.ConfidenceInterval(95)).Round(time.Microsecond),
		time.Duration(t.Quantile(0.5)).Round(time.Microsecond),
		time.Duration(t.Quantile(0.99)).Round(time.Microsecond),
		time.Duration(t.Max()).Round(time.Microsecond))
	if sc.steps.Iterations() > 0 {
		fmt.Fprintf(&sb, "solution steps mean %.2f stdev %.2f\n", sc.steps.Mean(), sc.steps.Stdev())
	}
	last := sc.ws.LastStats()
	fmt.Fprintf(&sb, "last: %v, %d states, %d actions checked, %d switches pruned, %d flood fills\n",
		last.Result, last.StatesCreated, last.ActionsChecked, last.SwitchesPruned, last.FloodFills)
	bins, err := cmd.options.Int("bins", 10)
	if err != nil {
		return nil, err
	}
	if err := t.FprintHistogram(&sb, bins, 30, stats.DurationLabel); err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}
