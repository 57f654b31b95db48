package eval

import (
	"context"
	"math/rand"
	"sync"

	"github.com/kestrelchess/kestrel/pkg/board"
)

// Random decorates another Evaluator with a small amount of centipawn noise, in the
// half-open range [-limit/2, limit-limit/2). A limit of 0 disables the noise and Random is a pass-
// through. Useful for engine-strength limiting and for giving otherwise-tied candidate
// moves a deterministic (seeded) tie-break.
//
// Guarded by a mutex: Lazy-SMP search workers share one Evaluator across goroutines, and
// math/rand.Rand is not safe for concurrent use without one.
type Random struct {
	next  Evaluator
	limit int

	mu   sync.Mutex
	rand *rand.Rand
}

func NewRandom(next Evaluator, limit int, seed int64) *Random {
	return &Random{
		next:  next,
		limit: limit,
		rand:  rand.New(rand.NewSource(seed)),
	}
}

func (n *Random) Evaluate(ctx context.Context, b *board.Board) Score {
	s := n.next.Evaluate(ctx, b)
	if n.limit <= 0 {
		return s
	}

	n.mu.Lock()
	noise := n.rand.Intn(n.limit) - n.limit/2
	n.mu.Unlock()

	return Clamp(s + Score(noise))
}
