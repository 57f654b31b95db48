package search

import "github.com/kestrelchess/kestrel/pkg/eval"

// aspirationDelta is the initial half-width of the aspiration window around the
// previous iteration's score, in centipawns.
const aspirationDelta = 10

// minAspirationDepth is the shallowest depth at which aspiration windows are used; below
// it the full [-inf, inf] window is searched, since a narrow window around an unstable
// shallow score tends to cost more re-searches than it saves.
const minAspirationDepth = 5

// maxAspirationScore disables aspiration once the previous score is this lopsided: a
// near-mate or heavily winning/losing score is unlikely to land inside any small window.
const maxAspirationScore = 1000

// window tracks an aspiration window across repeated fail-low/fail-high widenings within
// one iterative-deepening depth.
type window struct {
	alpha, beta eval.Score
	delta       eval.Score
}

// newWindow builds the initial window for depth around the previous iteration's score.
// If depth or prevScore disqualify aspiration, the window is the full legal range.
func newWindow(depth int, prevScore eval.Score) window {
	if depth < minAspirationDepth || prevScore.Abs() > maxAspirationScore {
		return window{alpha: eval.NegInfScore, beta: eval.InfScore, delta: eval.InfScore}
	}
	return window{
		alpha: eval.Clamp(prevScore - aspirationDelta),
		beta:  eval.Clamp(prevScore + aspirationDelta),
		delta: aspirationDelta,
	}
}

// failedLow widens the window downward after score <= alpha, geometrically growing delta.
func (w *window) failedLow(score eval.Score) {
	w.beta = (w.alpha + w.beta) / 2
	w.alpha = eval.Clamp(score - w.delta)
	w.delta += w.delta / 2
}

// failedHigh widens the window upward after score >= beta.
func (w *window) failedHigh(score eval.Score) {
	w.beta = eval.Clamp(score + w.delta)
	w.delta += w.delta / 2
}

// done reports whether score landed strictly inside (alpha, beta), meaning the
// iteration's result is final and iterative deepening should advance to the next depth.
func (w *window) done(score eval.Score) bool {
	return score > w.alpha && score < w.beta
}
