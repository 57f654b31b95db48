package search

import (
	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/eval"
)

// quiescence resolves tactical sequences beyond the main search's horizon: stand-pat on
// the static evaluation, then only ever considers captures/promotions (plus every
// evasion when in check), SEE-pruned, until the position is "quiet".
func (w *worker) quiescence(b *board.Board, alpha, beta eval.Score, ply int) eval.Score {
	if w.checkAbort() {
		return eval.ZeroScore
	}
	w.bumpNodes()

	inCheck := b.IsChecked(b.Turn())

	var staticEval eval.Score
	if !inCheck {
		staticEval = w.evaluate(b)
		if staticEval >= beta {
			return staticEval
		}
		if staticEval > alpha {
			alpha = staticEval
		}
	} else {
		staticEval = eval.NegInfScore
	}

	mp := NewMovePicker(b, w.hist, 0, ply, board.NoPiece, 0, false)
	if !inCheck {
		mp.SkipQuiets()
	}

	bestScore := staticEval
	legal := false

	for {
		m, _, tactical, ok := mp.Next()
		if !ok {
			break
		}
		if !inCheck {
			if !tactical {
				continue
			}
			// SEE-prune clearly losing captures; stand-pat already covers the
			// "don't bother" case for non-check nodes.
			if b.SEE(m) < 0 {
				continue
			}
		}

		next := b.MakeMove(m)
		legal = true

		score := -w.quiescence(&next, -beta, -alpha, ply+1)
		if w.aborted() {
			return eval.ZeroScore
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
			}
		}
		if alpha >= beta {
			break
		}
	}

	if inCheck && !legal {
		return eval.MatedIn(ply)
	}
	return bestScore
}
