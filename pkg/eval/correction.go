package eval

import (
	"github.com/kestrelchess/kestrel/pkg/board"
)

// correctionBuckets is the size of each correction table, indexed by the low bits of a
// Zobrist hash. A power of two, so correctionMask selects the index.
const correctionBuckets = 1 << 14

const correctionMask = correctionBuckets - 1

// maxCorrection bounds a single table entry. Entries are kept in 1/32 of a centipawn
// (Correction divides their sum by 32), so one entry shifts static eval by at most 256
// centipawns and the three together by at most 768, however many updates are applied.
const maxCorrection = 32 * 256

// CorrectionTable holds pawn/minor/major static-eval correction entries for both colors
// (indexed by side to move),
// per spec: a signed bias added to static_eval before it's used in pruning/ordering
// decisions, nudged after each completed non-capture best move toward the move's actual
// outcome (best_score - static_eval at that node).
type CorrectionTable struct {
	pawn  [board.NumColors][correctionBuckets]int32
	minor [board.NumColors][correctionBuckets]int32
	major [board.NumColors][correctionBuckets]int32
}

// NewCorrectionTable returns an all-zero correction table (no bias applied until trained
// by Update calls during search).
func NewCorrectionTable() *CorrectionTable {
	return &CorrectionTable{}
}

// Reset clears all entries, called on ucinewgame.
func (t *CorrectionTable) Reset() {
	*t = CorrectionTable{}
}

// Correction returns the combined bias (in centipawns) to add to a raw static evaluation
// of the board, from the perspective of the side to move.
func (t *CorrectionTable) Correction(b *board.Board) Score {
	us := b.Turn()
	h := b.Hashes()

	sum := t.pawn[us][uint64(h.Pawn)&correctionMask] +
		t.minor[us][uint64(h.Minor)&correctionMask] +
		t.major[us][uint64(h.Major)&correctionMask]

	return Score(sum / 32)
}

// Update nudges the three correction entries for b's pawn/minor/major hashes toward
// delta (bestScore - staticEval), scaled by depth so deeper, more-trustworthy searches
// move the table further per update. Only call for a non-capture best move found outside
// check, per spec (captures/in-check static evals are too noisy to correct against).
func (t *CorrectionTable) Update(b *board.Board, depth int, delta Score) {
	us := b.Turn()
	h := b.Hashes()

	weight := depth + 1
	if weight > 16 {
		weight = 16
	}
	amount := clampCorrection(int32(delta) * int32(weight))

	gravityUpdate(&t.pawn[us][uint64(h.Pawn)&correctionMask], amount)
	gravityUpdate(&t.minor[us][uint64(h.Minor)&correctionMask], amount)
	gravityUpdate(&t.major[us][uint64(h.Major)&correctionMask], amount)
}

// gravityUpdate applies the same "move toward amount, proportionally decaying the
// existing value" update used by history.go, so a single entry saturates smoothly
// instead of overshooting on a run of similar updates.
func gravityUpdate(value *int32, amount int32) {
	amount = clampCorrection(amount)
	decay := *value * abs32(amount) / maxCorrection
	*value += amount - decay
	*value = clampI32(*value, -maxCorrection, maxCorrection)
}

func clampCorrection(v int32) int32 {
	return clampI32(v, -maxCorrection, maxCorrection)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func clampI32(v, lo, hi int32) int32 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
