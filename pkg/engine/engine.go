// Package engine ties together board state, evaluation, and search into a single
// game-playing session: the piece UCI (or any other protocol driver) drives directly.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/seekerror/build"
	"github.com/seekerror/logw"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
	"github.com/kestrelchess/kestrel/pkg/eval"
	"github.com/kestrelchess/kestrel/pkg/search"
)

var version = build.NewVersion(1, 0, 0)

// Options are the engine's runtime-tunable knobs, the direct backing for UCI's
// "setoption" surface.
type Options struct {
	Threads      uint // Lazy-SMP worker count
	HashMB       uint // transposition table size, in MB
	Noise        uint // evaluation noise, in centipawns (0 disables)
	MoveOverhead uint // milliseconds of GUI/network lag; recorded, not applied to search deadlines
	SyzygyPath   string
	TTHash       search.TagHash // transposition table slot-tagging hash source
}

func (o Options) String() string {
	return fmt.Sprintf("{threads=%v, hash=%vMB, noise=%vcp, moveOverhead=%vms, syzygy=%q, ttHash=%v}",
		o.Threads, o.HashMB, o.Noise, o.MoveOverhead, o.SyzygyPath, o.TTHash)
}

// Engine encapsulates one game-playing session: the position stack (for takeback), the
// opening book, and a Lazy-SMP search pool shared across moves so the TT survives from
// one search to the next.
type Engine struct {
	name, author string

	zt   *board.ZobristTable
	seed int64
	opts Options
	book Book

	positions []*board.Board // stack; last element is the current position
	pool      *Pool
	active    search.Handle

	mu sync.Mutex
}

// Option is an engine construction option.
type Option func(*Engine)

// WithOptions sets the engine's initial runtime options.
func WithOptions(opts Options) Option {
	return func(e *Engine) { e.opts = opts }
}

// WithZobrist seeds the Zobrist table with something other than the default, e.g. for
// reproducible tests that want hashes independent of the process-global table.
func WithZobrist(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithBook installs an opening book.
func WithBook(book Book) Option {
	return func(e *Engine) { e.book = book }
}

func New(ctx context.Context, name, author string, opts ...Option) *Engine {
	e := &Engine{
		name:   name,
		author: author,
		opts:   Options{Threads: 1, HashMB: 16},
		book:   NoBook,
	}
	for _, fn := range opts {
		fn(e)
	}
	e.zt = board.NewZobristTable(e.seed)
	e.pool = NewPoolWithTagHash(ctx, uint64(e.opts.HashMB), e.evaluator(), int(e.opts.Threads), e.opts.TTHash)

	_ = e.Reset(ctx, fen.Initial)

	logw.Infof(ctx, "Initialized engine: %v, options=%v", e.Name(), e.opts)
	return e
}

func (e *Engine) evaluator() eval.Evaluator {
	var ev eval.Evaluator = eval.Material{}
	if e.opts.Noise > 0 {
		ev = eval.NewRandom(ev, int(e.opts.Noise), e.seed)
	}
	return ev
}

func (e *Engine) Name() string   { return fmt.Sprintf("%v %v", e.name, version) }
func (e *Engine) Author() string { return e.author }

func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

func (e *Engine) SetThreads(n uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Threads = n
	e.pool.SetThreads(int(n))
}

func (e *Engine) SetHash(ctx context.Context, mb uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.HashMB = mb
	e.pool.SetHash(ctx, uint64(mb))
}

func (e *Engine) SetNoise(cp uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Noise = cp
	e.pool.SetEvaluator(e.evaluator())
}

func (e *Engine) SetMoveOverhead(ms uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.MoveOverhead = ms
}

func (e *Engine) SetSyzygyPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.SyzygyPath = path
	// No bundled Syzygy probing library is in reach of this module (see DESIGN.md); the
	// path is recorded for UCI round-tripping but search.Tablebase stays NoTablebase.
}

// Board returns the current position.
func (e *Engine) Board() *board.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current()
}

func (e *Engine) current() *board.Board {
	return e.positions[len(e.positions)-1]
}

// Position returns the current position in FEN.
func (e *Engine) Position() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fen.Encode(e.current())
}

// Reset starts a new game at the given FEN position (UCI's "ucinewgame"+"position").
func (e *Engine) Reset(ctx context.Context, position string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltSearchIfActive(ctx)

	b, err := fen.Decode(e.zt, position)
	if err != nil {
		return err
	}
	e.positions = []*board.Board{b}

	logw.Infof(ctx, "New position: %v", b)
	return nil
}

// NewGame clears the shared TT and correction tables between games, per UCI's
// "ucinewgame": stale entries from an unrelated game should not bias this one. History
// tables are not shared: every search starts with empty ones.
func (e *Engine) NewGame(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltSearchIfActive(ctx)
	e.pool.ClearHash()
}

// Move applies a move given in pure algebraic coordinate notation (e.g. "e2e4",
// "a7a8q"), resolving it against the current position's legal moves.
func (e *Engine) Move(ctx context.Context, uci string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltSearchIfActive(ctx)

	from, to, promo, err := board.ParseMove(uci)
	if err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	b := e.current()
	m, ok := b.FindMove(from, to, promo)
	if !ok {
		return fmt.Errorf("illegal move: %v", uci)
	}

	next := b.MakeMove(m)
	e.positions = append(e.positions, &next)
	logw.Infof(ctx, "Move %v: %v", m, &next)
	return nil
}

// TakeBack undoes the latest move, if any was made since the last Reset.
func (e *Engine) TakeBack(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.haltSearchIfActive(ctx)

	if len(e.positions) <= 1 {
		return fmt.Errorf("no move to take back")
	}
	e.positions = e.positions[:len(e.positions)-1]
	return nil
}

// BookMoves returns the configured opening book's candidates for the current position.
func (e *Engine) BookMoves(ctx context.Context) ([]board.Move, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Find(ctx, fen.Encode(e.current()))
}

// Analyze launches a search from the current position. opt.DepthLimit of zero means no
// depth limit (bounded only by opt.Time/opt.NodesLimit/opt.Infinite).
func (e *Engine) Analyze(ctx context.Context, opt search.Options) (<-chan search.PV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return nil, fmt.Errorf("search already active")
	}

	b := e.current()
	history := make([]board.ZobristHash, 0, len(e.positions)-1)
	for _, p := range e.positions[:len(e.positions)-1] {
		history = append(history, p.Hash())
	}

	logw.Infof(ctx, "Analyze %v, opt=%+v", b, opt)

	handle, out := e.pool.Launch(ctx, b, history, opt)
	e.active = handle
	return out, nil
}

// Halt stops the active search and returns its last PV, if one was active.
func (e *Engine) Halt(ctx context.Context) (search.PV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pv, ok := e.haltSearchIfActive(ctx)
	if !ok {
		return search.PV{}, fmt.Errorf("no active search")
	}
	return pv, nil
}

// Ponderhit converts an in-flight pondering search into a normal time-limited one.
func (e *Engine) Ponderhit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		e.active.Ponderhit()
	}
}

func (e *Engine) haltSearchIfActive(ctx context.Context) (search.PV, bool) {
	if e.active == nil {
		return search.PV{}, false
	}
	pv := e.active.Halt()
	logw.Infof(ctx, "Search halted: %v", pv)
	e.active = nil
	return pv, true
}
