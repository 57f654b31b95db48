package search

import (
	"time"

	"go.uber.org/atomic"

	"github.com/kestrelchess/kestrel/pkg/board"
)

// TimeControl mirrors the time-control parameters of a UCI "go" command: remaining
// clock and increment per side, moves to the next time control, or an explicit fixed
// move time, plus whether this is a pondering search.
type TimeControl struct {
	WhiteTime, BlackTime time.Duration
	WhiteInc, BlackInc   time.Duration
	MovesToGo            int // 0 == rest of the game
	MoveTime             time.Duration // explicit, overrides the clock-based calculation
	Ponder               bool
}

func (t TimeControl) String() string {
	if t.MoveTime > 0 {
		return t.MoveTime.String()
	}
	return t.WhiteTime.String() + "<>" + t.BlackTime.String()
}

// timeManager turns one TimeControl into soft/hard deadlines for a single search and
// arms the hard deadline as a background abort.
type timeManager struct {
	soft, hard time.Duration
	start      time.Time
	ponder     bool
}

// newDeadline computes soft/hard budgets for turn's clock. Returns nil if opt carries no
// time control (infinite search, or a search bounded only by depth/nodes).
func newDeadline(opt Options, turn board.Color) *timeManager {
	tc := opt.Time
	if tc == nil {
		return nil
	}

	tm := &timeManager{start: time.Now(), ponder: tc.Ponder}

	if tc.MoveTime > 0 {
		tm.soft, tm.hard = tc.MoveTime, tc.MoveTime
		return tm
	}

	remaining, inc := tc.WhiteTime, tc.WhiteInc
	if turn == board.Black {
		remaining, inc = tc.BlackTime, tc.BlackInc
	}
	if remaining <= 0 {
		return nil
	}

	// Assume 40 moves left in the game if the time control doesn't say otherwise. Soft
	// limit is half the per-move share of the clock plus half the increment; hard limit
	// is three times that, capped at half the remaining clock.
	moves := time.Duration(40)
	if tc.MovesToGo > 0 {
		moves = time.Duration(tc.MovesToGo) + 1
	}

	tm.soft = remaining/(2*moves) + inc/2
	tm.hard = 3 * tm.soft
	if max := remaining / 2; tm.hard > max {
		tm.hard = max
	}
	return tm
}

// arm starts the background hard-deadline timer. For a pondering search the clock only
// starts once Ponderhit fires, since the opponent's clock (not ours) runs until then.
func (tm *timeManager) arm(abort *atomic.Bool, pondered <-chan struct{}) {
	if tm.ponder {
		go func() {
			<-pondered
			tm.start = time.Now()
			time.AfterFunc(tm.hard, func() { abort.Store(true) })
		}()
		return
	}
	time.AfterFunc(tm.hard, func() { abort.Store(true) })
}

// shouldStopBeforeIteration reports whether it's worth starting another
// iterative-deepening depth: once elapsed time has passed the soft limit, the next
// (much more expensive) iteration is unlikely to finish, so the engine returns the last
// completed PV rather than risk flagging mid-iteration.
func (tm *timeManager) shouldStopBeforeIteration(depth int, last PV) bool {
	if depth <= 1 {
		return false
	}
	return time.Since(tm.start) >= tm.soft
}
