// Package bench times hint searches over many random rail states, spread
// over worker goroutines that each own a search workspace.
package bench

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/flickyourselfon/railhint/benchdb"
	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/level"
	"github.com/flickyourselfon/railhint/levelfile"
	"github.com/flickyourselfon/railhint/levelgen"
	"github.com/flickyourselfon/railhint/stats"
)

type Options struct {
	Workers        int
	StatesPerLevel int
	Seed           uint64
	Search         level.WorkspaceOptions
	// SearchTimeout bounds each search; zero means none.
	SearchTimeout time.Duration
}

type Report struct {
	Searches  []benchdb.Search
	Durations stats.Sample
	Steps     stats.Statistic
	ByResult  map[string]int
	Elapsed   time.Duration
}

type job struct {
	built *levelfile.Built
}

// Run searches StatesPerLevel scrambled states of every level. Worker w
// takes jobs w, w+Workers, ... and draws states from its own seeded
// generator, so a run is repeatable for a given seed and worker count.
func Run(ctx context.Context, built []*levelfile.Built, opts Options) (*Report, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	var jobs []job
	for _, b := range built {
		for range opts.StatesPerLevel {
			jobs = append(jobs, job{built: b})
		}
	}
	levels := levelfile.Levels(built)
	results := make([][]benchdb.Search, opts.Workers)
	steps := make([]stats.Statistic, opts.Workers)
	var done atomic.Int64

	tstart := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			ws, err := level.NewSearchWorkspace(opts.Search)
			if err != nil {
				return err
			}
			ws.Setup(levels)
			gen := levelgen.NewSeeded(levelgen.SeedFromUint64(opts.Seed + uint64(w)))
			for j := w; j < len(jobs); j += opts.Workers {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s := searchOne(ctx, ws, gen, jobs[j], opts.SearchTimeout)
				if s.SolutionSteps > 0 {
					steps[w].Push(float64(s.SolutionSteps))
				}
				results[w] = append(results[w], s)
				if n := done.Add(1); n%1000 == 0 {
					log.Info().Int64("done", n).Int("total", len(jobs)).Msg("bench-progress")
				}
			}
			log.Debug().Int("worker", w).Int("searches", ws.SearchesRun()).Msg("bench-worker-done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &Report{Elapsed: time.Since(tstart)}
	r.Searches = lo.Flatten(results)
	sort.SliceStable(r.Searches, func(i, j int) bool { return r.Searches[i].Level < r.Searches[j].Level })
	for _, s := range r.Searches {
		r.Durations.PushDuration(s.Duration)
	}
	for w := range steps {
		r.Steps.Merge(&steps[w])
	}
	r.ByResult = lo.CountValuesBy(r.Searches, func(s benchdb.Search) string { return s.Result })
	return r, nil
}

func searchOne(ctx context.Context, ws *level.SearchWorkspace, gen *levelgen.Generator, j job, timeout time.Duration) benchdb.Search {
	st := j.built.NewState()
	gen.Scramble(st)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	h := j.built.Level.GenerateHint(ctx, ws, st.Plane, st.RailState, st.LastActivatedSwitchColor)
	ss := ws.LastStats()
	return benchdb.Search{
		Level:          j.built.Spec.N,
		Result:         resultName(h),
		SolutionSteps:  ss.SolutionSteps,
		StatesCreated:  ss.StatesCreated,
		StatesReplaced: ss.StatesReplaced,
		Comparisons:    ss.Comparisons,
		Duration:       ss.Duration,
	}
}

func resultName(h hint.Hint) string {
	return h.Kind().String()
}

// Fprint writes the summary and a histogram of search durations.
func (r *Report) Fprint(w io.Writer) error {
	d := &r.Durations
	if d.Iterations() == 0 {
		_, err := fmt.Fprintln(w, "no searches")
		return err
	}
	us := func(v float64) time.Duration { return time.Duration(v).Round(time.Microsecond) }
	fmt.Fprintf(w, "%d searches in %v\n", d.Iterations(), r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "duration mean %v ± %v (95%%) stdev %v\n", us(d.Mean()), us(d.ConfidenceInterval(95)), us(d.Stdev()))
	fmt.Fprintf(w, "p50 %v  p90 %v  p99 %v  max %v\n", us(d.Quantile(0.5)), us(d.Quantile(0.9)),
		us(d.Quantile(0.99)), us(d.Max()))
	if r.Steps.Iterations() > 0 {
		fmt.Fprintf(w, "solution steps mean %.2f stdev %.2f\n", r.Steps.Mean(), r.Steps.Stdev())
	}
	kinds := lo.Keys(r.ByResult)
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-22s %d\n", k, r.ByResult[k])
	}
	return d.FprintHistogram(w, 12, 40, stats.DurationLabel)
}

// Record stores the run and every search in db.
func (r *Report) Record(ctx context.Context, db *benchdb.DB, run benchdb.Run) (int64, error) {
	id, err := db.StartRun(ctx, run)
	if err != nil {
		return 0, err
	}
	if err := db.RecordSearches(ctx, id, r.Searches); err != nil {
		return 0, err
	}
	return id, db.FinishRun(ctx, id, len(r.Searches), r.Durations.Mean(), r.Durations.Quantile(0.99))
}
