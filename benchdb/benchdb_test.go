package benchdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func TestRunRoundTrip(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "bench", "runs.db"))
	is.NoErr(err)
	defer db.Close()

	id, err := db.StartRun(ctx, Run{LevelsPath: "levels.yaml", HashMode: "xor", Workers: 4})
	is.NoErr(err)
	is.NoErr(db.RecordSearches(ctx, id, []Search{
		{Level: 1, Result: "switch", SolutionSteps: 4, StatesCreated: 10, Duration: 2 * time.Millisecond},
		{Level: 1, Result: "rail", SolutionSteps: 3, StatesCreated: 30, Duration: 4 * time.Millisecond},
		{Level: 2, Result: "undo-reset", StatesCreated: 7, Duration: time.Millisecond},
	}))
	is.NoErr(db.FinishRun(ctx, id, 3, 2.3e6, 4e6))

	runs, err := db.Runs(ctx, 10)
	is.NoErr(err)
	is.Equal(len(runs), 1)
	is.Equal(runs[0].ID, id)
	is.Equal(runs[0].Searches, 3)
	is.Equal(runs[0].HashMode, "xor")

	sums, err := db.LevelSummaries(ctx, id)
	is.NoErr(err)
	is.Equal(len(sums), 2)
	is.Equal(sums[0], LevelSummary{Level: 1, Searches: 2, MeanNanos: 3e6, MaxStates: 30})
	is.Equal(sums[1].Searches, 1)

	err = db.FinishRun(ctx, id+100, 0, 0, 0)
	is.True(errors.Is(err, ErrUnknownRun))
}

func TestReopenKeepsRuns(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(path)
	is.NoErr(err)
	_, err = db.StartRun(ctx, Run{LevelsPath: "a.yaml", HashMode: "zobrist", Workers: 1})
	is.NoErr(err)
	is.NoErr(db.Close())

	db, err = Open(path)
	is.NoErr(err)
	defer db.Close()
	runs, err := db.Runs(ctx, 5)
	is.NoErr(err)
	is.Equal(len(runs), 1)
	is.Equal(runs[0].LevelsPath, "a.yaml")
}
