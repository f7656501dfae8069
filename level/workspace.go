package level

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/zobrist"
)

const (
	DefaultBucketCount         = 257
	DefaultStateMemoryFraction = 0.05

	// rough per-state footprint, including a few words of rail state
	stateFootprintBytes = 96

	unvisitedSteps = math.MaxInt
)

type WorkspaceOptions struct {
	// HashMode is one of the zobrist package modes. Empty means xor.
	HashMode    string
	BucketCount int
	// MaxSearchSteps stops the search once it would process states beyond
	// this many steps. Zero means no limit.
	MaxSearchSteps int
	// MaxStates caps the arena. If zero, the cap is StateMemoryFraction of
	// system memory; if that is also zero there is no cap.
	MaxStates           int
	StateMemoryFraction float64
}

func DefaultWorkspaceOptions() WorkspaceOptions {
	return WorkspaceOptions{
		HashMode:            zobrist.ModeXOR,
		BucketCount:         DefaultBucketCount,
		StateMemoryFraction: DefaultStateMemoryFraction,
	}
}

// SearchStats describes the last search run on a workspace.
type SearchStats struct {
	Result          hint.Hint
	StatesCreated   int
	StatesReplaced  int
	Comparisons     int
	ActionsChecked  int
	SwitchesPruned  int
	FloodFills      int
	StepsProcessed  int
	SolutionSteps   int
	CanceledByLimit bool
	Duration        time.Duration
}

type checkedPlaneData struct {
	steps         int
	frontierIndex int
	hint          hint.Hint
}

type bucketRef struct {
	plane  int32
	bucket int32
}

// SearchWorkspace holds the scratch buffers of the hint search. Buffers are
// sized for the largest level seen and reused across searches. A workspace
// must not be used by two searches at once; use one per goroutine.
type SearchWorkspace struct {
	opts    WorkspaceOptions
	hasher  zobrist.Hasher
	updater zobrist.Updater
	running atomic.Bool

	arena stateArena
	// per plane, per hash bucket
	buckets [][][]stateHandle
	touched []bucketRef

	checked       []checkedPlaneData
	checkedPlanes []int
	frontier      [][]*Plane

	nextStates   [][]stateHandle
	draft        []uint32
	sizedPlanes  int
	sizedWords   int
	setupDone    bool
	lastStats    SearchStats
	searchesRun  int
}

func NewSearchWorkspace(opts WorkspaceOptions) (*SearchWorkspace, error) {
	if opts.BucketCount <= 0 {
		opts.BucketCount = DefaultBucketCount
	}
	hasher, err := zobrist.New(opts.HashMode)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	ws := &SearchWorkspace{opts: opts, hasher: hasher}
	ws.updater, _ = hasher.(zobrist.Updater)
	ws.arena.maxStates = opts.MaxStates
	if ws.arena.maxStates == 0 && opts.StateMemoryFraction > 0 {
		totalMem := memory.TotalMemory()
		ws.arena.maxStates = int(opts.StateMemoryFraction * float64(totalMem) / stateFootprintBytes)
		log.Info().
			Int("max-states", ws.arena.maxStates).
			Uint64("total-system-memory-bytes", totalMem).
			Float64("fraction", opts.StateMemoryFraction).
			Msg("state-arena-size")
	}
	return ws, nil
}

// Setup sizes the workspace for every level that will be searched with it.
func (ws *SearchWorkspace) Setup(levels []*Level) {
	maxPlanes, maxWords := 0, 0
	for _, l := range levels {
		maxPlanes = max(maxPlanes, len(l.planes))
		maxWords = max(maxWords, l.RailByteMaskCount())
	}
	ws.grow(maxPlanes, maxWords)
	ws.setupDone = true
	log.Info().Int("levels", len(levels)).Int("max-planes", maxPlanes).
		Int("max-words", maxWords).Str("hash-mode", ws.opts.HashMode).
		Msg("hint-search-workspace-setup")
}

func (ws *SearchWorkspace) ensureCapacity(l *Level) {
	planes, words := len(l.planes), l.RailByteMaskCount()
	if planes <= ws.sizedPlanes && words <= ws.sizedWords {
		return
	}
	if ws.setupDone {
		log.Warn().Int("level", l.levelN).Int("planes", planes).Int("words", words).
			Int("sized-planes", ws.sizedPlanes).Int("sized-words", ws.sizedWords).
			Msg("hint-search-workspace-grow")
	}
	ws.grow(max(planes, ws.sizedPlanes), max(words, ws.sizedWords))
}

func (ws *SearchWorkspace) grow(planes, words int) {
	for len(ws.buckets) < planes {
		ws.buckets = append(ws.buckets, make([][]stateHandle, ws.opts.BucketCount))
	}
	for len(ws.checked) < planes {
		ws.checked = append(ws.checked, checkedPlaneData{steps: unvisitedSteps})
	}
	if len(ws.draft) < words {
		ws.draft = make([]uint32, words)
	}
	ws.hasher.Initialize(words)
	ws.sizedPlanes = max(ws.sizedPlanes, planes)
	ws.sizedWords = max(ws.sizedWords, words)
}

func (ws *SearchWorkspace) LastStats() SearchStats {
	return ws.lastStats
}

func (ws *SearchWorkspace) SearchesRun() int {
	return ws.searchesRun
}

func (ws *SearchWorkspace) Options() WorkspaceOptions {
	return ws.opts
}

func (ws *SearchWorkspace) bucketFor(hash uint32) int {
	return int(hash % uint32(ws.opts.BucketCount))
}

func (ws *SearchWorkspace) enqueue(h stateHandle, steps int) {
	for len(ws.nextStates) <= steps {
		n := len(ws.nextStates)
		if n == cap(ws.nextStates) {
			ws.nextStates = append(ws.nextStates, nil)
			continue
		}
		// reuse the queue buffer left by an earlier search
		ws.nextStates = ws.nextStates[:n+1]
		ws.nextStates[n] = ws.nextStates[n][:0]
	}
	ws.nextStates[steps] = append(ws.nextStates[steps], h)
}

// queuedFrom reports whether any state waits at step or later.
func (ws *SearchWorkspace) queuedFrom(step int) bool {
	for _, q := range ws.nextStates[step:] {
		if len(q) > 0 {
			return true
		}
	}
	return false
}

// resetFloodFill puts the per-plane bookkeeping back to unvisited.
func (ws *SearchWorkspace) resetFloodFill() {
	for _, i := range ws.checkedPlanes {
		ws.checked[i] = checkedPlaneData{steps: unvisitedSteps}
	}
	ws.checkedPlanes = ws.checkedPlanes[:0]
	for i := range ws.frontier {
		clear(ws.frontier[i])
		ws.frontier[i] = ws.frontier[i][:0]
	}
}

// release empties every structure that holds states. It runs after every
// search, however the search ended.
func (ws *SearchWorkspace) release() {
	for _, ref := range ws.touched {
		ws.buckets[ref.plane][ref.bucket] = ws.buckets[ref.plane][ref.bucket][:0]
	}
	ws.touched = ws.touched[:0]
	for i := range ws.nextStates {
		ws.nextStates[i] = ws.nextStates[i][:0]
	}
	ws.nextStates = ws.nextStates[:0]
	ws.resetFloodFill()
	ws.arena.reset()
}

// heldStates counts states still referenced by the workspace. It is zero
// between searches.
func (ws *SearchWorkspace) heldStates() int {
	n := ws.arena.count()
	for _, byBucket := range ws.buckets {
		for _, b := range byBucket {
			n += len(b)
		}
	}
	for _, q := range ws.nextStates {
		n += len(q)
	}
	return n
}
