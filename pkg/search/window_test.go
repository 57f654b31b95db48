package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/eval"
)

func TestNewWindowNarrowAtSufficientDepth(t *testing.T) {
	w := newWindow(10, 25)
	require.Less(t, w.alpha, eval.Score(25))
	require.Greater(t, w.beta, eval.Score(25))
	require.Less(t, int(w.beta-w.alpha), 1000)
}

func TestNewWindowFullBelowMinDepth(t *testing.T) {
	w := newWindow(minAspirationDepth-1, 25)
	require.Equal(t, eval.NegInfScore, w.alpha)
	require.Equal(t, eval.InfScore, w.beta)
}

func TestNewWindowFullOnLopsidedScore(t *testing.T) {
	w := newWindow(10, maxAspirationScore+1)
	require.Equal(t, eval.NegInfScore, w.alpha)
	require.Equal(t, eval.InfScore, w.beta)
}

func TestWindowFailLowWidens(t *testing.T) {
	w := newWindow(10, 0)
	orig := w.alpha
	w.failedLow(w.alpha)
	require.Less(t, w.alpha, orig)
}

func TestWindowFailHighWidens(t *testing.T) {
	w := newWindow(10, 0)
	orig := w.beta
	w.failedHigh(w.beta)
	require.Greater(t, w.beta, orig)
}

func TestWindowDone(t *testing.T) {
	w := newWindow(10, 0)
	require.True(t, w.done(0))
	require.False(t, w.done(w.alpha))
	require.False(t, w.done(w.beta))
}
