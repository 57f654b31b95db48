// Package search implements iterative-deepening principal variation search: move
// ordering, pruning/reduction/extension, quiescence, the transposition table, history
// tables, time management, and the Lazy-SMP worker pool that drives them concurrently.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/eval"
)

// ErrHalted indicates a search was stopped before completing its own iteration.
var ErrHalted = fmt.Errorf("search halted")

// PV is the principal variation and metadata for one completed (or aborted) iteration.
type PV struct {
	Depth    int
	SelDepth int
	Moves    []board.Move
	Score    eval.Score
	Nodes    uint64
	Time     time.Duration
	Hashfull float64
	TBHits   uint64
}

func (p PV) String() string {
	var sb strings.Builder
	for i, m := range p.Moves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(m.String())
	}
	return fmt.Sprintf("depth=%v seldepth=%v score=%v nodes=%v time=%v hashfull=%v%% tbhits=%v pv=%v",
		p.Depth, p.SelDepth, p.Score, p.Nodes, p.Time, int(100*p.Hashfull), p.TBHits, sb.String())
}

// Options holds the limits for one search, derived from the UCI "go" command.
type Options struct {
	DepthLimit  int // 0 == no limit
	NodesLimit  uint64
	Time        *TimeControl
	Infinite    bool
	SearchMoves []board.Move // restrict the root move list, if non-empty
}

// Launcher starts searches from a position and streams PVs as iterative deepening
// completes each depth.
type Launcher interface {
	// Launch starts a new search rooted at b, with history the game's hash history so
	// far (for repetition detection). Returns a Handle to control the search and a
	// channel of PVs, one per completed iteration, closed when the search ends.
	Launch(ctx context.Context, b *board.Board, history []board.ZobristHash, opt Options) (Handle, <-chan PV)
}

// Handle lets the engine stop an in-flight search and retrieve its last PV.
type Handle interface {
	// Halt stops the search if running, idempotently, and returns the last PV found.
	Halt() PV
	// Ponderhit converts a pondering search into a normally time-limited one.
	Ponderhit()
}

// Searcher is a single named instance of the engine's search: one TranspositionTable and
// one node counter shared by an Engine-managed pool of workers (the pool itself lives in
// pkg/engine, which owns Threads and spins up one worker per thread around these same
// shared fields — Lazy-SMP per spec).
type Searcher struct {
	TT     TranspositionTable
	TB     Tablebase
	Eval   eval.Evaluator
	Corr   *eval.CorrectionTable
	Nodes  *atomic.Uint64
	TBHits *atomic.Uint64
}

// NewSearcher wires a single-threaded Searcher around a fresh TT/correction table, tagging
// TT slots from the Zobrist hash's own bits.
func NewSearcher(ctx context.Context, hashMB uint64, ev eval.Evaluator) *Searcher {
	return NewSearcherWithTagHash(ctx, hashMB, ev, ZobristTag)
}

// NewSearcherWithTagHash is NewSearcher with an explicit TagHash, e.g. for the engine's
// -tt-hash=xxhash flag.
func NewSearcherWithTagHash(ctx context.Context, hashMB uint64, ev eval.Evaluator, tagHash TagHash) *Searcher {
	return &Searcher{
		TT:     NewTranspositionTableWithTagHash(ctx, hashMB<<20, tagHash),
		TB:     NoTablebase{},
		Eval:   ev,
		Corr:   eval.NewCorrectionTable(),
		Nodes:  new(atomic.Uint64),
		TBHits: new(atomic.Uint64),
	}
}

func (s *Searcher) Launch(ctx context.Context, b *board.Board, history []board.ZobristHash, opt Options) (Handle, <-chan PV) {
	s.TT.NewSearch()

	out := make(chan PV, 1)
	h := &handle{
		quit:     make(chan struct{}),
		init:     make(chan struct{}),
		pondered: make(chan struct{}),
	}
	go h.run(s, b, history, opt, out)
	return h, out
}

type handle struct {
	quit, init, pondered           chan struct{}
	initOnce, quitOnce, ponderOnce sync.Once

	mu sync.Mutex
	pv PV
}

func (h *handle) run(s *Searcher, root *board.Board, history []board.ZobristHash, opt Options, out chan PV) {
	defer h.markInitialized()
	defer close(out)

	w := &worker{
		tt:     s.TT,
		tb:     s.TB,
		ev:     s.Eval,
		corr:   s.Corr,
		hist:   NewHistory(),
		nodes:  s.Nodes,
		tbhits: s.TBHits,
		abort:  new(atomic.Bool),
		quit:   h.quit,
	}

	var deadline *timeManager
	if !opt.Infinite {
		deadline = newDeadline(opt, root.Turn())
		if deadline != nil {
			deadline.arm(w.abort, h.pondered)
		}
	}

	var prevScore eval.Score
	var best PV
	start := time.Now()
	startNodes := s.Nodes.Load()

	maxDepth := opt.DepthLimit
	if maxDepth == 0 {
		maxDepth = maxPly - 1
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if deadline != nil && deadline.shouldStopBeforeIteration(depth, best) {
			break
		}
		// The node limit is checked between iterations, so the last one may overshoot it.
		if opt.NodesLimit > 0 && s.Nodes.Load()-startNodes >= opt.NodesLimit {
			break
		}

		win := newWindow(depth, prevScore)
		var score eval.Score
		var pv []board.Move

		for {
			path := append([]board.ZobristHash{}, history...)
			score = w.searchRoot(root, path, depth, win.alpha, win.beta, opt.SearchMoves, &pv)
			if w.aborted() {
				break
			}
			if win.done(score) {
				break
			}
			if score <= win.alpha {
				win.failedLow(score)
			} else {
				win.failedHigh(score)
			}
		}
		if w.aborted() {
			break
		}

		prevScore = score
		best = PV{
			Depth:    depth,
			SelDepth: w.seldepth,
			Moves:    pv,
			Score:    score,
			Nodes:    s.Nodes.Load(),
			Time:     time.Since(start),
			Hashfull: s.TT.Used(),
			TBHits:   s.TBHits.Load(),
		}

		h.mu.Lock()
		h.pv = best
		h.mu.Unlock()

		select {
		case <-out:
		default:
		}
		out <- best

		h.markInitialized()

		if d, ok := score.MateDistance(); ok && d != 0 && 2*abs(d) <= depth {
			break // found a mate shorter than anything a deeper search could improve on
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (h *handle) Halt() PV {
	<-h.init
	h.quitOnce.Do(func() { close(h.quit) })

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pv
}

func (h *handle) Ponderhit() {
	h.ponderOnce.Do(func() { close(h.pondered) })
}

func (h *handle) markInitialized() {
	h.initOnce.Do(func() { close(h.init) })
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// worker carries one search thread's private state: its own history table, its own
// abort flag, and a node-count batch — but a TT/correction table/evaluator/node counter
// shared with every other worker in the pool.
type worker struct {
	tt     TranspositionTable
	tb     Tablebase
	ev     eval.Evaluator
	corr   *eval.CorrectionTable
	hist   *History
	nodes  *atomic.Uint64
	tbhits *atomic.Uint64
	abort  *atomic.Bool
	quit   <-chan struct{}

	seldepth    int
	staticEvals [maxPly]eval.Score
	localNodes  uint64
}

const nodeBatch = 1024

func (w *worker) bumpNodes() {
	w.localNodes++
	if w.localNodes >= nodeBatch {
		w.nodes.Add(w.localNodes)
		w.localNodes = 0
	}
}

func (w *worker) checkAbort() bool {
	if w.abort.Load() {
		return true
	}
	if isClosed(w.quit) {
		w.abort.Store(true)
		return true
	}
	return false
}

func (w *worker) aborted() bool {
	return w.abort.Load()
}

func (w *worker) evaluate(b *board.Board) eval.Score {
	raw := w.ev.Evaluate(context.Background(), b)
	return eval.Clamp(raw + w.corr.Correction(b))
}

// searchRoot drives the first ply specially: it restricts the move list to
// searchMoves (if given), always searches the first move with a full window, and
// records the winning line into pv.
func (w *worker) searchRoot(b *board.Board, path []board.ZobristHash, depth int, alpha, beta eval.Score, searchMoves []board.Move, pv *[]board.Move) eval.Score {
	w.seldepth = 0
	path = append(path, b.Hash())

	mp := NewMovePicker(b, w.hist, 0, 0, board.NoPiece, 0, false)
	best := eval.NegInfScore
	bestMove := board.Move(0)
	first := true
	moveCount := 0

	var tried []quietTry
	var triedCap []captureTry

	for {
		m, _, tactical, ok := mp.Next()
		if !ok {
			break
		}
		if len(searchMoves) > 0 && !containsMove(searchMoves, m) {
			continue
		}
		moveCount++

		next := b.MakeMove(m)
		var childPV []board.Move
		var score eval.Score

		if first {
			score = -w.search(&next, depth-1, -beta, -alpha, 1, path, false, &childPV)
		} else {
			score = -w.search(&next, depth-1, -alpha-1, -alpha, 1, path, true, &childPV)
			if score > alpha && score < beta {
				score = -w.search(&next, depth-1, -beta, -alpha, 1, path, false, &childPV)
			}
		}
		if w.aborted() {
			return 0
		}
		first = false

		_, p2, _ := b.Square(m.From())
		if !tactical {
			tried = append(tried, quietTry{move: m, piece: p2})
		} else {
			triedCap = append(triedCap, captureTry{move: m, piece: p2, captured: capturedPiece(b, m)})
		}

		if score > best {
			best = score
			bestMove = m
			*pv = append([]board.Move{m}, childPV...)
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			break
		}
	}

	if moveCount == 0 {
		return 0 // no eligible root moves: UCI layer is expected to have checked this first
	}

	if bestMove != 0 {
		_, bp, _ := b.Square(bestMove.From())
		if !bestMove.IsCapture() {
			w.hist.UpdateQuiet(b.Turn(), bestMove, bp, tried, depth, board.NoPiece, 0, false)
		} else {
			w.hist.UpdateCapture(b.Turn(), bestMove, bp, capturedPiece(b, bestMove), triedCap, depth)
		}
	}

	bound := ExactBound
	if best >= beta {
		bound = LowerBound
	}
	w.tt.Store(b.Hash(), 0, depth, bound, best, w.evaluate(b), bestMove, true)

	return best
}

func containsMove(moves []board.Move, m board.Move) bool {
	for _, x := range moves {
		if x == m {
			return true
		}
	}
	return false
}

func capturedPiece(b *board.Board, m board.Move) board.Piece {
	if m.Flag() == board.EnPassant {
		return board.Pawn
	}
	if _, c, ok := b.Square(m.To()); ok {
		return c
	}
	return board.NoPiece
}

// search is the negamax/PVS workhorse for ply >= 1, returning the score from the
// perspective of the side to move at b.
func (w *worker) search(b *board.Board, depth int, alpha, beta eval.Score, ply int, path []board.ZobristHash, cutNode bool, pv *[]board.Move) eval.Score {
	if w.checkAbort() {
		return 0
	}

	hash := b.Hash()
	path = append(path, hash)

	if isDraw(b, path) {
		return 0
	}
	if depth <= 0 || ply >= maxPly-1 {
		return w.quiescence(b, alpha, beta, ply)
	}

	pvNode := beta-alpha > 1

	// Mate-distance pruning.
	alpha = eval.Max(alpha, eval.MatedIn(ply))
	beta = eval.Min(beta, eval.MateIn(ply+1))
	if alpha >= beta {
		return alpha
	}

	w.bumpNodes()
	if ply > w.seldepth {
		w.seldepth = ply
	}

	inCheck := b.IsChecked(b.Turn())

	var ttMove board.Move
	var ttHit bool
	var entry Entry
	if entry, ttHit = w.tt.Probe(hash, ply); ttHit {
		ttMove = entry.Move
		if !pvNode && entry.Depth >= depth {
			switch entry.Bound {
			case ExactBound:
				return entry.Score
			case LowerBound:
				if entry.Score >= beta {
					return entry.Score
				}
			case UpperBound:
				if entry.Score <= alpha {
					return entry.Score
				}
			}
		}
	}

	if w.tb.MaxPieces() > 0 {
		if wdl, ok := w.tb.ProbeWDL(b); ok {
			w.tbhits.Add(1)
			return tablebaseScore(wdl, ply)
		}
	}

	var staticEval eval.Score
	switch {
	case inCheck:
		staticEval = eval.NegInfScore
	case ttHit:
		staticEval = entry.Eval
	default:
		staticEval = w.evaluate(b)
	}
	w.staticEvals[clampPly(ply)] = staticEval

	improving := false
	if !inCheck && ply >= 2 {
		improving = staticEval > w.staticEvals[clampPly(ply-2)]
	}

	// Reverse futility / static null-move pruning.
	if !pvNode && !inCheck && depth <= 8 && !staticEval.IsMate() {
		margin := eval.Score(80*depth - 40*boolToInt(improving))
		if staticEval-margin >= beta {
			return (staticEval + beta) / 2
		}
	}

	// Null-move pruning.
	if !pvNode && !inCheck && depth >= 3 && staticEval >= beta && hasNonPawnMaterial(b) {
		r := 3 + depth/6
		null := b.NullMove()
		var unused []board.Move
		score := -w.search(&null, depth-1-r, -beta, -beta+1, ply+1, path, !cutNode, &unused)
		if w.aborted() {
			return 0
		}
		if score >= beta && !score.IsMate() {
			return beta
		}
	}

	// Internal iterative reduction: a PV or cut node with no TT move is probably not
	// worth a full-depth search before we know anything about it.
	if (pvNode || cutNode) && ttMove == 0 && depth >= 4 {
		depth--
	}

	mp := NewMovePicker(b, w.hist, ttMove, ply, board.NoPiece, 0, false)

	best := eval.NegInfScore
	bestMove := board.Move(0)
	moveCount := 0
	quietCount := 0

	var tried []quietTry
	var triedCap []captureTry

	for {
		m, _, tactical, ok := mp.Next()
		if !ok {
			break
		}
		moveCount++
		if !tactical {
			quietCount++
		}

		if !pvNode && !inCheck && !tactical && depth <= 8 {
			threshold := 3 + depth*depth
			if improving {
				threshold += depth * depth / 2
			}
			if quietCount > threshold {
				mp.SkipQuiets()
				continue
			}
		}

		if !pvNode && !inCheck && !tactical && depth <= 6 && moveCount > 1 {
			margin := eval.Score(100 + 80*depth)
			if staticEval+margin <= alpha {
				continue
			}
		}

		if !pvNode && depth <= 8 && moveCount > 1 {
			threshold := -eval.Score(20 * depth * depth)
			if tactical {
				threshold = -eval.Score(90 * depth)
			}
			if eval.Score(b.SEE(m)) < threshold {
				continue
			}
		}

		extension := 0
		if m == ttMove && ttHit && entry.Depth >= depth-3 && entry.Bound != UpperBound && depth >= 7 {
			sBeta := entry.Score - eval.Score(depth)
			excl := append([]board.ZobristHash{}, path...)
			score := w.searchExcluding(b, depth/2, sBeta-1, sBeta, ply, excl, m)
			if w.aborted() {
				return 0
			}
			switch {
			case score < sBeta-eval.Score(depth):
				extension = 2
			case score < sBeta:
				extension = 1
			case sBeta >= beta:
				return sBeta // multi-cut: even a reduced search beats beta without m
			}
		}

		next := b.MakeMove(m)
		var childPV []board.Move
		var score eval.Score
		newDepth := depth - 1 + extension

		switch {
		case moveCount == 1:
			score = -w.search(&next, newDepth, -beta, -alpha, ply+1, path, false, &childPV)
		default:
			r := 0
			if depth >= 3 && moveCount > 3 && !tactical {
				r = lmrReduction(depth, moveCount)
				if pvNode {
					r--
				}
				if improving {
					r--
				}
				if cutNode {
					r++
				}
				if r < 0 {
					r = 0
				}
				if r > newDepth-1 {
					r = newDepth - 1
				}
			}
			score = -w.search(&next, newDepth-r, -alpha-1, -alpha, ply+1, path, true, &childPV)
			if score > alpha && r > 0 {
				score = -w.search(&next, newDepth, -alpha-1, -alpha, ply+1, path, !cutNode, &childPV)
			}
			if pvNode && score > alpha && score < beta {
				score = -w.search(&next, newDepth, -beta, -alpha, ply+1, path, false, &childPV)
			}
		}
		if w.aborted() {
			return 0
		}

		_, p2, _ := b.Square(m.From())
		if !tactical {
			tried = append(tried, quietTry{move: m, piece: p2})
		} else {
			triedCap = append(triedCap, captureTry{move: m, piece: p2, captured: capturedPiece(b, m)})
		}

		if score > best {
			best = score
			bestMove = m
			*pv = append([]board.Move{m}, childPV...)
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			if !tactical {
				w.hist.RecordKiller(ply, m)
				w.hist.UpdateQuiet(b.Turn(), m, p2, tried, depth, board.NoPiece, 0, false)
			} else {
				w.hist.UpdateCapture(b.Turn(), m, p2, capturedPiece(b, m), triedCap, depth)
			}
			break
		}
	}

	if moveCount == 0 {
		if inCheck {
			return eval.MatedIn(ply)
		}
		return 0
	}

	bound := ExactBound
	switch {
	case best >= beta:
		bound = LowerBound
	case best <= alpha:
		bound = UpperBound
	}
	w.tt.Store(hash, ply, depth, bound, best, staticEval, bestMove, pvNode)

	if bestMove != 0 && !bestMove.IsCapture() && !inCheck {
		w.corr.Update(b, depth, best-staticEval)
	}

	return best
}

// searchExcluding runs the reduced verification search for the singular-extension test,
// skipping the excluded move.
func (w *worker) searchExcluding(b *board.Board, depth int, alpha, beta eval.Score, ply int, path []board.ZobristHash, excluded board.Move) eval.Score {
	if depth <= 0 {
		return w.quiescence(b, alpha, beta, ply)
	}

	mp := NewMovePicker(b, w.hist, 0, ply, board.NoPiece, 0, false)
	best := eval.NegInfScore
	moveCount := 0

	for {
		m, _, _, ok := mp.Next()
		if !ok {
			break
		}
		if m == excluded {
			continue
		}
		moveCount++

		next := b.MakeMove(m)
		var childPV []board.Move
		score := -w.search(&next, depth-1, -beta, -alpha, ply+1, path, true, &childPV)
		if w.aborted() {
			return 0
		}
		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			break
		}
	}

	return best
}

// lmrReduction is a (depth, moveCount)-indexed base late-move reduction, logarithmic in
// both arguments per the conventional LMR table shape.
func lmrReduction(depth, moveCount int) int {
	d, m := float64(depth), float64(moveCount)
	r := 0.4 + logApprox(d)*logApprox(m)/2.25
	if r < 0 {
		return 0
	}
	return int(r)
}

// logApprox is a small natural-log approximation, adequate for shaping the LMR table
// without pulling in a full math.Log call on every move-loop iteration.
func logApprox(x float64) float64 {
	if x < 1 {
		return 0
	}
	n := 0.0
	for x >= 2 {
		x /= 2
		n++
	}
	return n*0.6931 + (x - 1)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func hasNonPawnMaterial(b *board.Board) bool {
	us := b.Turn()
	for p := board.Bishop; p <= board.Queen; p++ {
		if b.Pieces(us, p) != 0 {
			return true
		}
	}
	return false
}

// isDraw reports 50-move, insufficient-material, and twofold-repetition draws. It runs
// before move generation; the 50-move rule does not apply to a checkmated position, and
// checkmate/stalemate are otherwise scored by the no-legal-move branches in
// search/quiescence.
func isDraw(b *board.Board, path []board.ZobristHash) bool {
	if b.HalfmoveClock() >= 100 && b.Status() != board.Checkmate {
		return true
	}
	if insufficientMaterial(b) {
		return true
	}

	hash := b.Hash()
	limit := len(path) - 1 - b.HalfmoveClock()
	if limit < 0 {
		limit = 0
	}
	for i := len(path) - 2; i >= limit; i-- {
		if path[i] == hash {
			return true
		}
	}
	return false
}

func insufficientMaterial(b *board.Board) bool {
	const white, black = board.White, board.Black

	if b.Pieces(white, board.Pawn) != 0 || b.Pieces(black, board.Pawn) != 0 {
		return false
	}
	for p := board.Rook; p <= board.Queen; p++ {
		if b.Pieces(white, p) != 0 || b.Pieces(black, p) != 0 {
			return false
		}
	}

	whiteMinors := b.Pieces(white, board.Knight).PopCount() + b.Pieces(white, board.Bishop).PopCount()
	blackMinors := b.Pieces(black, board.Knight).PopCount() + b.Pieces(black, board.Bishop).PopCount()

	switch {
	case whiteMinors == 0 && blackMinors == 0:
		return true
	case whiteMinors+blackMinors == 1:
		return true
	case whiteMinors == 2 && blackMinors == 0 && b.Pieces(white, board.Knight) == 0:
		return sameBishopComplex(b.Pieces(white, board.Bishop))
	case blackMinors == 2 && whiteMinors == 0 && b.Pieces(black, board.Knight) == 0:
		return sameBishopComplex(b.Pieces(black, board.Bishop))
	case whiteMinors == 1 && blackMinors == 1 && b.Pieces(white, board.Bishop) != 0 && b.Pieces(black, board.Bishop) != 0:
		// KB vs KB: drawn only when both bishops run on the same color complex.
		return squareComplex(b.Pieces(white, board.Bishop)) == squareComplex(b.Pieces(black, board.Bishop))
	default:
		return false
	}
}

// sameBishopComplex reports whether a side's two bishops (e.g. from KBB-vs-K) run on the
// same color complex, making them no stronger than a single bishop for mating purposes.
func sameBishopComplex(bishops board.Bitboard) bool {
	squares := bishops.Squares()
	if len(squares) != 2 {
		return false
	}
	return squareColor(squares[0]) == squareColor(squares[1])
}

// squareComplex returns the color complex of a single-bishop bitboard's occupied square.
func squareComplex(bishop board.Bitboard) int {
	squares := bishop.Squares()
	if len(squares) != 1 {
		return -1
	}
	return squareColor(squares[0])
}

func squareColor(sq board.Square) int {
	return (int(sq.File()) + int(sq.Rank())) % 2
}
