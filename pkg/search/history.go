package search

import (
	"github.com/kestrelchess/kestrel/pkg/board"
)

// maxHistory bounds a single history table entry; matching the magnitude of a single
// Update call's amount keeps the gravity formula's decay term well-scaled.
const maxHistory = 1 << 14

// quietTable is indexed [color][piece][to-square] and captureTable [color][piece]
// [to-square][captured piece]: a single prior
// move's outcome is credited to the moving piece/destination pair, independent of the
// from-square, which both keeps the table small and generalizes across similar moves.
type quietTable [board.NumColors][board.NumPieces][board.NumSquares]int32
type captureTable [board.NumColors][board.NumPieces][board.NumSquares][board.NumPieces]int32

// killers holds up to two non-capture moves that caused a beta cutoff at a given ply,
// tried early in the move picker before falling back to history-ordered quiets.
type killers [2]board.Move

// History collects the quiet, capture, and continuation history tables plus the killer
// move table, all private per search worker (no cross-thread sharing or synchronization
// needed, unlike the shared TranspositionTable).
type History struct {
	quiet   quietTable
	capture captureTable
	cont    [board.NumPieces][board.NumSquares]quietTable // indexed by the previous move's (piece, to)
	killer  [maxPly]killers
}

// maxPly bounds the killer table; searches deeper than this share the last ply's slot.
const maxPly = 256

func NewHistory() *History {
	return &History{}
}

func (h *History) Reset() {
	*h = History{}
}

// Quiet returns the quiet-history score for a move by side, optionally combined with the
// continuation history keyed off the previous ply's (piece, to) if prev is valid.
func (h *History) Quiet(side board.Color, piece board.Piece, to board.Square, prevPiece board.Piece, prevTo board.Square, havePrev bool) int32 {
	score := h.quiet[side][piece][to]
	if havePrev {
		score += h.cont[prevPiece][prevTo][side][piece][to]
	}
	return score
}

func (h *History) Capture(side board.Color, piece board.Piece, to board.Square, captured board.Piece) int32 {
	return h.capture[side][piece][to][captured]
}

// Killer returns the two killer moves recorded for ply.
func (h *History) Killer(ply int) killers {
	return h.killer[clampPly(ply)]
}

// UpdateQuiet credits best (the move that caused a cutoff or improved alpha) and
// penalizes every other quiet move tried at this node, gravity-style, scaled by depth.
func (h *History) UpdateQuiet(side board.Color, best board.Move, bestPiece board.Piece, tried []quietTry, depth int, prevPiece board.Piece, prevTo board.Square, havePrev bool) {
	amount := historyBonus(depth)

	gravityUpdate32(&h.quiet[side][bestPiece][best.To()], amount)
	if havePrev {
		gravityUpdate32(&h.cont[prevPiece][prevTo][side][bestPiece][best.To()], amount)
	}
	for _, t := range tried {
		if t.move == best {
			continue
		}
		gravityUpdate32(&h.quiet[side][t.piece][t.move.To()], -amount)
		if havePrev {
			gravityUpdate32(&h.cont[prevPiece][prevTo][side][t.piece][t.move.To()], -amount)
		}
	}
}

func (h *History) UpdateCapture(side board.Color, best board.Move, bestPiece, bestCaptured board.Piece, tried []captureTry, depth int) {
	amount := historyBonus(depth)

	gravityUpdate32(&h.capture[side][bestPiece][best.To()][bestCaptured], amount)
	for _, t := range tried {
		if t.move == best {
			continue
		}
		gravityUpdate32(&h.capture[side][t.piece][t.move.To()][t.captured], -amount)
	}
}

// RecordKiller stores m as a killer at ply, bumping the existing primary killer down to
// secondary rather than discarding it outright.
func (h *History) RecordKiller(ply int, m board.Move) {
	p := clampPly(ply)
	if h.killer[p][0] == m {
		return
	}
	h.killer[p][1] = h.killer[p][0]
	h.killer[p][0] = m
}

func clampPly(ply int) int {
	if ply >= maxPly {
		return maxPly - 1
	}
	if ply < 0 {
		return 0
	}
	return ply
}

// quietTry/captureTry record a move tried at a node, for the penalize-the-rest step of
// UpdateQuiet/UpdateCapture.
type quietTry struct {
	move  board.Move
	piece board.Piece
}

type captureTry struct {
	move     board.Move
	piece    board.Piece
	captured board.Piece
}

// historyBonus is the gravity update's amount for a cutoff at the given depth: 16 * depth,
// capped at maxHistory.
func historyBonus(depth int) int32 {
	amount := int32(16 * depth)
	if amount > maxHistory {
		return maxHistory
	}
	return amount
}

// gravityUpdate32 nudges value toward amount, decaying proportionally to the existing
// magnitude so repeated updates saturate smoothly instead of overshooting.
func gravityUpdate32(value *int32, amount int32) {
	if amount > maxHistory {
		amount = maxHistory
	}
	if amount < -maxHistory {
		amount = -maxHistory
	}
	decay := *value * abs32(amount) / maxHistory
	*value += amount - decay
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
