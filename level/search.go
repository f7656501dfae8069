package level

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flickyourselfon/railhint/hint"
	"github.com/flickyourselfon/railhint/rail"
	"github.com/flickyourselfon/railhint/railmask"
)

const (
	switchKickSteps = 1
	// every connection costs at least this much
	minConnectionSteps = 1
	// how many dequeued states between context checks
	cancelCheckInterval = 256
)

type search struct {
	ctx   context.Context
	ws    *SearchWorkspace
	level *Level
	stats SearchStats

	bestVictorySteps int
	victoryPrior     stateHandle
	victoryHint      hint.Hint
	canceled         bool
}

// GenerateHint searches for the shortest sequence of moves from the
// player's plane and the live rail state to the victory plane, and returns
// the first of those moves. Every path returns a usable hint:
//   - the radio tower hint if no switch in the level is powered yet
//   - the undo/reset hint if the victory plane cannot be reached
//   - hint.SearchCanceledEarly if ctx ends or the state arena fills up
func (l *Level) GenerateHint(
	ctx context.Context,
	ws *SearchWorkspace,
	currentPlane *Plane,
	getRailState RailStateFunc,
	lastActivatedSwitchColor rail.Color,
) hint.Hint {
	if lastActivatedSwitchColor < l.minimumRailColor {
		ws.lastStats = SearchStats{Result: l.radioTowerHint}
		return l.radioTowerHint
	}
	if l.victoryPlane == nil || currentPlane == l.victoryPlane {
		ws.lastStats = SearchStats{Result: hint.None}
		return hint.None
	}
	if !ws.running.CompareAndSwap(false, true) {
		panic("level: hint search already running on this workspace")
	}
	defer ws.running.Store(false)
	ws.ensureCapacity(l)

	start := time.Now()
	s := &search{
		ctx:              ctx,
		ws:               ws,
		level:            l,
		bestVictorySteps: unvisitedSteps,
		victoryPrior:     noState,
	}
	defer func() {
		s.stats.StatesCreated = ws.arena.count()
		s.stats.Duration = time.Since(start)
		ws.release()
		ws.lastStats = s.stats
		ws.searchesRun++
		log.Debug().
			Int("level", l.levelN).
			Stringer("result", s.stats.Result.Kind()).
			Int("states", s.stats.StatesCreated).
			Int("replaced", s.stats.StatesReplaced).
			Int("comparisons", s.stats.Comparisons).
			Int("actions", s.stats.ActionsChecked).
			Int("solution-steps", s.stats.SolutionSteps).
			Dur("duration", s.stats.Duration).
			Msg("hint-search-finished")
	}()

	base := s.loadBaseState(currentPlane, getRailState)
	result := s.run(base)
	s.stats.Result = result
	return result
}

// PreAllocate runs a search from the level's initial rail state so the
// workspace buffers reach their working size before gameplay.
func (l *Level) PreAllocate(ctx context.Context, ws *SearchWorkspace, startPlane *Plane) hint.Hint {
	initial := func(_ int16, r *rail.Rail) (int8, int8) {
		return r.InitialState()
	}
	return l.GenerateHint(ctx, ws, startPlane, initial, rail.SineColor)
}

func (s *search) loadBaseState(currentPlane *Plane, getRailState RailStateFunc) stateHandle {
	n := s.level.RailByteMaskCount()
	draft := s.ws.draft[:n]
	clear(draft)
	for i := range s.level.railByteMasks {
		bmd := &s.level.railByteMasks[i]
		dir, off := getRailState(bmd.RailID, bmd.Rail)
		bmd.Set(draft, dir, off)
	}
	base, _ := s.addNewState(currentPlane, noState, draft, false, s.ws.hasher.Hash(draft), 0, hint.None)
	return base
}

func (s *search) run(base stateHandle) hint.Hint {
	ws := s.ws
	if base == noState || s.ctx.Err() != nil {
		return hint.SearchCanceledEarly
	}
	if ws.arena.get(base).plane.hasAction {
		ws.enqueue(base, 0)
	}
	s.pursueSolutionToPlanes(base)

	maxSteps := ws.opts.MaxSearchSteps
	dequeued := 0
	for step := 0; step < len(ws.nextStates) && !s.canceled; step++ {
		if step+switchKickSteps+minConnectionSteps >= s.bestVictorySteps {
			break
		}
		if maxSteps > 0 && step > maxSteps {
			if ws.queuedFrom(step) {
				s.stats.CanceledByLimit = true
				s.canceled = true
			}
			break
		}
		if s.ctx.Err() != nil {
			s.canceled = true
			break
		}
		s.stats.StepsProcessed = step
		// the queue for this step is never appended to while it is drained
		for i := 0; i < len(ws.nextStates[step]) && !s.canceled; i++ {
			h := ws.nextStates[step][i]
			if ws.arena.get(h).superseded {
				continue
			}
			dequeued++
			if dequeued%cancelCheckInterval == 0 && s.ctx.Err() != nil {
				s.canceled = true
				break
			}
			s.pursueSolutionAfterSwitches(h)
		}
	}

	if s.victoryPrior != noState {
		s.stats.SolutionSteps = s.bestVictorySteps
		if ws.arena.get(s.victoryPrior).prior == noState {
			return s.victoryHint
		}
		return ws.arena.hintFrom(s.victoryPrior)
	}
	if s.canceled {
		return hint.SearchCanceledEarly
	}
	return s.level.undoResetHint
}

// addNewState dedups (plane, words) against the states already found at
// plane. It returns noState if an equal state exists with no more steps.
// A matching state with more steps is superseded by the new one. ok is
// false only when the arena is full.
func (s *search) addNewState(
	plane *Plane, prior stateHandle, words []uint32, shareWords bool, hash uint32, steps int, h hint.Hint,
) (handle stateHandle, ok bool) {
	ws := s.ws
	bucket := ws.bucketFor(hash)
	list := ws.buckets[plane.index][bucket]
	for i, oh := range list {
		s.stats.Comparisons++
		o := ws.arena.get(oh)
		if o.hash != hash || !wordsEqual(o.words, words) {
			continue
		}
		if o.steps <= steps {
			return noState, true
		}
		nh := ws.arena.produce(prior, words, shareWords, hash, steps, plane, h)
		if nh == noState {
			s.canceled = true
			return noState, false
		}
		o = ws.arena.get(oh)
		o.superseded = true
		o.steps = -1
		list[i] = nh
		s.stats.StatesReplaced++
		return nh, true
	}
	nh := ws.arena.produce(prior, words, shareWords, hash, steps, plane, h)
	if nh == noState {
		s.canceled = true
		return noState, false
	}
	if len(list) == 0 {
		ws.touched = append(ws.touched, bucketRef{plane: int32(plane.index), bucket: int32(bucket)})
	}
	ws.buckets[plane.index][bucket] = append(list, nh)
	return nh, true
}

// pursueSolutionToPlanes floods out from the plane of state h without
// moving any rail. Planes settle in order of steps; each action plane
// reached gets a new state queued for switch kicks, and reaching the victory
// plane records a candidate solution.
func (s *search) pursueSolutionToPlanes(h stateHandle) {
	ws := s.ws
	s.stats.FloodFills++
	defer ws.resetFloodFill()

	st := *ws.arena.get(h)
	victory := s.level.victoryPlane

	ws.checked[st.plane.index] = checkedPlaneData{steps: 0, frontierIndex: 0, hint: hint.None}
	ws.checkedPlanes = append(ws.checkedPlanes, st.plane.index)
	s.pushFrontier(st.plane, 0)

	for d := 0; d < len(ws.frontier); d++ {
		if st.steps+d >= s.bestVictorySteps {
			return
		}
		for i := 0; i < len(ws.frontier[d]); i++ {
			p := ws.frontier[d][i]
			c := ws.checked[p.index]
			if p != st.plane {
				if p == victory {
					s.bestVictorySteps = st.steps + d
					s.victoryPrior = h
					s.victoryHint = c.hint
					return
				}
				if p.hasAction {
					nh, ok := s.addNewState(p, h, st.words, true, st.hash, st.steps+d, c.hint)
					if !ok {
						return
					}
					if nh != noState {
						ws.enqueue(nh, st.steps+d)
					}
				}
			}
			for ci := range p.connections {
				conn := &p.connections[ci]
				if railmask.Blocked(st.words, conn.RailByteIndex, conn.RailTileOffsetByteMask) {
					continue
				}
				candidate := d + conn.Steps
				tc := &ws.checked[conn.ToPlane.index]
				if candidate >= tc.steps {
					continue
				}
				if tc.steps == unvisitedSteps {
					ws.checkedPlanes = append(ws.checkedPlanes, conn.ToPlane.index)
				} else {
					s.removeFromFrontier(tc.steps, tc.frontierIndex)
				}
				tc.steps = candidate
				if p == st.plane {
					tc.hint = conn.Hint
				} else {
					tc.hint = c.hint
				}
				tc.frontierIndex = s.pushFrontier(conn.ToPlane, candidate)
			}
		}
	}
}

func (s *search) pushFrontier(p *Plane, steps int) int {
	ws := s.ws
	for len(ws.frontier) <= steps {
		ws.frontier = append(ws.frontier, nil)
	}
	ws.frontier[steps] = append(ws.frontier[steps], p)
	return len(ws.frontier[steps]) - 1
}

// removeFromFrontier swaps the last plane of the bucket into index.
func (s *search) removeFromFrontier(steps, index int) {
	ws := s.ws
	bucket := ws.frontier[steps]
	last := len(bucket) - 1
	if index != last {
		moved := bucket[last]
		bucket[index] = moved
		ws.checked[moved.index].frontierIndex = index
	}
	bucket[last] = nil
	ws.frontier[steps] = bucket[:last]
}

// pursueSolutionAfterSwitches kicks each switch on the plane of state h and
// floods out from every new state that produces.
func (s *search) pursueSolutionAfterSwitches(h stateHandle) {
	ws := s.ws
	st := *ws.arena.get(h)
	steps := st.steps + switchKickSteps
	draft := ws.draft[:len(st.words)]
	for csi := range st.plane.connectionSwitches {
		cs := &st.plane.connectionSwitches[csi]
		s.stats.ActionsChecked++
		if len(cs.AffectedRails) == 0 {
			continue
		}
		// A lone rail that is already lowered only closes its gate.
		if len(cs.AffectedRails) == 1 {
			if _, off := cs.AffectedRails[0].Get(st.words); off == 0 {
				s.stats.SwitchesPruned++
				continue
			}
		}
		copy(draft, st.words)
		hash := st.hash
		for ri := range cs.AffectedRails {
			bmd := &cs.AffectedRails[ri]
			old := draft[bmd.ByteIndex]
			dir, off := bmd.Get(draft)
			newOff, bounced := bmd.Rail.TriggerMovement(dir, off)
			if bounced && bmd.Rail.Color != rail.SawColor {
				dir = -dir
			}
			bmd.Set(draft, dir, newOff)
			if ws.updater != nil {
				hash = ws.updater.Update(hash, bmd.ByteIndex, old, draft[bmd.ByteIndex])
			}
		}
		if ws.updater == nil {
			hash = ws.hasher.Hash(draft)
		}
		nh, ok := s.addNewState(st.plane, h, draft, false, hash, steps, cs.Hint)
		if !ok {
			return
		}
		if nh == noState {
			continue
		}
		ws.enqueue(nh, steps)
		s.pursueSolutionToPlanes(nh)
		if s.canceled {
			return
		}
	}
}
