package level

import (
	"github.com/flickyourselfon/railhint/hint"
)

type stateHandle int32

const noState stateHandle = -1

// potentialLevelState is one node of the hint search: a full rail state at
// a plane, and the step that led here.
type potentialLevelState struct {
	prior      stateHandle
	words      []uint32
	hash       uint32
	steps      int
	plane      *Plane
	hint       hint.Hint
	superseded bool
}

const slabChunkWords = 1 << 14

// stateArena owns every state of one search. Word vectors live in chunked
// slabs that are never reallocated, so a state's words stay valid while the
// states slice grows. Do not hold a *potentialLevelState across produce.
type stateArena struct {
	states    []potentialLevelState
	chunks    [][]uint32
	chunk     int
	maxStates int
}

func (a *stateArena) full() bool {
	return a.maxStates > 0 && len(a.states) >= a.maxStates
}

// copyWords stores a copy of words in the slab.
func (a *stateArena) copyWords(words []uint32) []uint32 {
	if len(words) == 0 {
		return nil
	}
	for {
		if a.chunk == len(a.chunks) {
			a.chunks = append(a.chunks, make([]uint32, 0, max(slabChunkWords, len(words))))
		}
		c := a.chunks[a.chunk]
		if len(c)+len(words) <= cap(c) {
			start := len(c)
			c = append(c, words...)
			a.chunks[a.chunk] = c
			return c[start:len(c):len(c)]
		}
		a.chunk++
	}
}

// produce adds a state and returns its handle, or noState when the arena is
// at capacity. When shareWords is set, words must already be owned by the
// arena.
func (a *stateArena) produce(
	prior stateHandle, words []uint32, shareWords bool, hash uint32, steps int, plane *Plane, h hint.Hint,
) stateHandle {
	if a.full() {
		return noState
	}
	if !shareWords {
		words = a.copyWords(words)
	}
	a.states = append(a.states, potentialLevelState{
		prior: prior,
		words: words,
		hash:  hash,
		steps: steps,
		plane: plane,
		hint:  h,
	})
	return stateHandle(len(a.states) - 1)
}

func (a *stateArena) get(h stateHandle) *potentialLevelState {
	return &a.states[h]
}

func (a *stateArena) count() int {
	return len(a.states)
}

// reset releases every state. Slab chunks are kept for the next search.
func (a *stateArena) reset() {
	clear(a.states)
	a.states = a.states[:0]
	for i := range a.chunks {
		a.chunks[i] = a.chunks[i][:0]
	}
	a.chunk = 0
}

// hintFrom returns the hint of the second state in h's chain, which is the
// first action to take from the root.
func (a *stateArena) hintFrom(h stateHandle) hint.Hint {
	cur := a.get(h)
	for cur.prior != noState && a.get(cur.prior).prior != noState {
		cur = a.get(cur.prior)
	}
	return cur.hint
}

// wordsEqual compares from the last word backward.
func wordsEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
