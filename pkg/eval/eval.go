// Package eval contains static position evaluation: the pluggable Evaluator interface,
// the centipawn Score type, and the bundled material/PST/mobility default.
package eval

import (
	"context"

	"github.com/kestrelchess/kestrel/pkg/board"
)

// Evaluator is a static position evaluator, called at the leaves of the search tree
// (and, with corrections applied, as the basis for razoring/futility cutoffs deeper in
// the tree). Evaluate must be a pure function of the board: it carries no state of its
// own between calls, which is what lets a *board.Board be handed to it fresh at every
// node under the clone-on-descent model.
type Evaluator interface {
	// Evaluate returns the position score in centipawns from the perspective of the
	// side to move.
	Evaluate(ctx context.Context, b *board.Board) Score
}

// NominalValue is a piece's textbook material value in centipawns, used for move
// ordering (MVV-LVA) and SEE-adjacent heuristics, independent of whatever weights the
// active Evaluator assigns internally.
func NominalValue(p board.Piece) Score {
	switch p {
	case board.Pawn:
		return 100
	case board.Knight, board.Bishop:
		return 300
	case board.Rook:
		return 500
	case board.Queen:
		return 900
	case board.King:
		return 10000
	default:
		return 0
	}
}

// NominalGain is the nominal material gain of playing m on b, ignoring recapture (used
// as a fast pre-SEE filter in move ordering: MVV-LVA and "is this even worth a SEE call"
// triage).
func NominalGain(b *board.Board, m board.Move) Score {
	var gain Score
	switch {
	case m.Flag() == board.EnPassant:
		gain += NominalValue(board.Pawn)
	case m.IsCapture():
		if _, captured, ok := b.Square(m.To()); ok {
			gain += NominalValue(captured)
		}
	}
	if p, ok := m.Flag().Promotion(); ok {
		gain += NominalValue(p) - NominalValue(board.Pawn)
	}
	return gain
}
