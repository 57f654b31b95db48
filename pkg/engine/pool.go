package engine

import (
	"context"
	"sync"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/eval"
	"github.com/kestrelchess/kestrel/pkg/search"
)

// Pool is a Lazy-SMP launcher: Threads workers share one Searcher (one
// TranspositionTable/evaluator/node counter), each running its own independent
// iterative-deepening search from the same root. Worker 0's PV stream is reported to
// the caller; every other worker's result is discarded once found — its only
// contribution is racing ahead through the shared TT so worker 0 can reuse its entries.
type Pool struct {
	mu       sync.Mutex
	searcher *search.Searcher
	threads  int
	tagHash  search.TagHash
}

// NewPool allocates a Searcher with a hashMB-sized TT and wraps it for Threads-wide
// concurrent search.
func NewPool(ctx context.Context, hashMB uint64, ev eval.Evaluator, threads int) *Pool {
	return NewPoolWithTagHash(ctx, hashMB, ev, threads, search.ZobristTag)
}

// NewPoolWithTagHash is NewPool with an explicit TranspositionTable TagHash, preserved
// across SetHash so later "setoption Hash" calls keep the configured tag source.
func NewPoolWithTagHash(ctx context.Context, hashMB uint64, ev eval.Evaluator, threads int, tagHash search.TagHash) *Pool {
	if threads < 1 {
		threads = 1
	}
	return &Pool{searcher: search.NewSearcherWithTagHash(ctx, hashMB, ev, tagHash), threads: threads, tagHash: tagHash}
}

// SetThreads changes the worker count for subsequent Launch calls.
func (p *Pool) SetThreads(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 1 {
		n = 1
	}
	p.threads = n
}

// SetHash replaces the shared transposition table with a freshly sized one, clearing it.
func (p *Pool) SetHash(ctx context.Context, mb uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searcher.TT = search.NewTranspositionTableWithTagHash(ctx, mb<<20, p.tagHash)
}

// SetEvaluator swaps the shared static evaluator, e.g. to add or remove eval noise.
func (p *Pool) SetEvaluator(ev eval.Evaluator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searcher.Eval = ev
}

// SetTablebase installs a tablebase for root/search probing.
func (p *Pool) SetTablebase(tb search.Tablebase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searcher.TB = tb
}

// ClearHash wipes the shared TT and correction tables, for "ucinewgame".
func (p *Pool) ClearHash() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searcher.TT.Clear()
	p.searcher.Corr.Reset()
}

func (p *Pool) snapshot() (*search.Searcher, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.searcher, p.threads
}

func (p *Pool) Launch(ctx context.Context, b *board.Board, history []board.ZobristHash, opt search.Options) (search.Handle, <-chan search.PV) {
	searcher, threads := p.snapshot()

	helpers := make([]search.Handle, 0, threads-1)
	for i := 1; i < threads; i++ {
		h, out := searcher.Launch(ctx, b, history, opt)
		helpers = append(helpers, h)
		go func(out <-chan search.PV) {
			for range out {
			}
		}(out)
	}

	main, out := searcher.Launch(ctx, b, history, opt)
	return &poolHandle{main: main, helpers: helpers}, out
}

type poolHandle struct {
	main    search.Handle
	helpers []search.Handle
}

func (h *poolHandle) Halt() search.PV {
	for _, hh := range h.helpers {
		hh.Halt()
	}
	return h.main.Halt()
}

func (h *poolHandle) Ponderhit() {
	h.main.Ponderhit()
	for _, hh := range h.helpers {
		hh.Ponderhit()
	}
}

var _ search.Launcher = (*Pool)(nil)
