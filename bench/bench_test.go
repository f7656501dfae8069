package bench

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/flickyourselfon/railhint/benchdb"
	"github.com/flickyourselfon/railhint/levelfile"
	"github.com/flickyourselfon/railhint/levelgen"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func testLevels(t *testing.T) []*levelfile.Built {
	t.Helper()
	f, err := levelfile.Load("../levelfile/testdata/abc.yaml")
	if err != nil {
		t.Fatal(err)
	}
	built, err := levelfile.BuildAll(f, levelfile.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return built
}

func TestRunIsRepeatable(t *testing.T) {
	is := is.New(t)
	built := testLevels(t)
	opts := Options{Workers: 3, StatesPerLevel: 20, Seed: 11}

	a, err := Run(context.Background(), built, opts)
	is.NoErr(err)
	b, err := Run(context.Background(), built, opts)
	is.NoErr(err)

	is.Equal(len(a.Searches), 40)
	is.Equal(a.Durations.Iterations(), 40)
	key := func(r *Report) []string {
		return lo.Map(r.Searches, func(s benchdb.Search, _ int) string {
			return fmt.Sprintf("%s:%d", s.Result, s.SolutionSteps)
		})
	}
	is.Equal(key(a), key(b))
	is.Equal(a.ByResult, b.ByResult)
	is.Equal(lo.Sum(lo.Values(a.ByResult)), 40)
	is.Equal(a.Searches[0].Level, 1)
	is.Equal(a.Searches[39].Level, 2)
}

func TestRunCanceled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testLevels(t), Options{Workers: 2, StatesPerLevel: 5})
	is.True(err != nil)
}

func TestReportOutputAndRecord(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	g := levelgen.NewSeeded(levelgen.SeedFromUint64(5))
	built, err := levelfile.BuildAll(g.File(3, levelgen.DefaultOptions()), levelfile.BuildOptions{})
	is.NoErr(err)
	r, err := Run(ctx, built, Options{Workers: 2, StatesPerLevel: 10, Seed: 5})
	is.NoErr(err)

	var buf bytes.Buffer
	is.NoErr(r.Fprint(&buf))
	is.True(strings.HasPrefix(buf.String(), "30 searches"))

	db, err := benchdb.Open(filepath.Join(t.TempDir(), "bench.db"))
	is.NoErr(err)
	defer db.Close()
	id, err := r.Record(ctx, db, benchdb.Run{LevelsPath: "generated", HashMode: "xor", Workers: 2})
	is.NoErr(err)
	sums, err := db.LevelSummaries(ctx, id)
	is.NoErr(err)
	is.Equal(len(sums), 3)
	runs, err := db.Runs(ctx, 1)
	is.NoErr(err)
	is.Equal(runs[0].Searches, 30)
}

func TestEmptyReport(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr((&Report{}).Fprint(&buf))
	is.Equal(buf.String(), "no searches\n")
}
