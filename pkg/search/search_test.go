package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
	"github.com/kestrelchess/kestrel/pkg/eval"
	"github.com/kestrelchess/kestrel/pkg/search"
)

func newTestSearcher(t *testing.T) *search.Searcher {
	t.Helper()
	return search.NewSearcher(context.Background(), 4, eval.Material{})
}

// TestSearchFindsMateInOne gives White a queen mate available on the back rank; any
// reasonable depth should find and report it as a mate score.
func TestSearchFindsMateInOne(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "6k1/5ppp/8/8/8/8/8/4Q1K1 w - - 0 1")
	require.NoError(t, err)

	s := newTestSearcher(t)
	h, out := s.Launch(context.Background(), b, nil, search.Options{DepthLimit: 4})

	var last search.PV
	for pv := range out {
		last = pv
	}
	h.Halt()

	require.NotEmpty(t, last.Moves)
	d, ok := last.Score.MateDistance()
	require.True(t, ok, "expected a mate score, got %v", last.Score)
	require.Equal(t, 1, d)
}

// TestSearchHaltStopsPromptly checks that an infinite search actually stops soon after
// Halt is called, rather than running away.
func TestSearchHaltStopsPromptly(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, fen.Initial)
	require.NoError(t, err)

	s := newTestSearcher(t)
	h, out := s.Launch(context.Background(), b, nil, search.Options{Infinite: true})

	time.Sleep(20 * time.Millisecond)
	pv := h.Halt()
	require.NotEmpty(t, pv.Moves)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("search did not close its PV channel after Halt")
		}
	}
}

// TestSearchRespectsSearchMoves restricts the root to a single legal move and checks the
// reported PV actually starts with it.
func TestSearchRespectsSearchMoves(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, fen.Initial)
	require.NoError(t, err)

	var only board.Move
	for _, m := range b.GenerateMoves() {
		if m.From() == board.Square(12) && m.To() == board.Square(28) { // e2e4
			only = m
			break
		}
	}
	require.NotZero(t, only)

	s := newTestSearcher(t)
	h, out := s.Launch(context.Background(), b, nil, search.Options{DepthLimit: 3, SearchMoves: []board.Move{only}})

	var last search.PV
	for pv := range out {
		last = pv
	}
	h.Halt()

	require.NotEmpty(t, last.Moves)
	require.Equal(t, only, last.Moves[0])
}
