package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/eval"
	"github.com/kestrelchess/kestrel/pkg/search"
)

func TestTranspositionTableStoreAndProbe(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1<<20)

	hash := board.ZobristHash(0x1234567890abcdef)
	m := board.NewMove(board.Square(12), board.Square(28), board.Normal)

	tt.Store(hash, 0, 6, search.ExactBound, 42, 10, m, true)

	entry, ok := tt.Probe(hash, 0)
	require.True(t, ok)
	require.Equal(t, search.ExactBound, entry.Bound)
	require.Equal(t, 6, entry.Depth)
	require.EqualValues(t, 42, entry.Score)
	require.Equal(t, m, entry.Move)
}

func TestTranspositionTableMissOnDifferentHash(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1<<20)
	tt.Store(board.ZobristHash(1), 0, 4, search.ExactBound, 0, 0, 0, false)

	_, ok := tt.Probe(board.ZobristHash(2), 0)
	require.False(t, ok)
}

func TestTranspositionTableMateScoreRebasing(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1<<20)
	hash := board.ZobristHash(7)

	// A mate-in-3-from-here score found at ply 5 from root (search scores count plies
	// from the root, so that is a mate at ply 8).
	stored := eval.MateIn(5 + 3)
	tt.Store(hash, 5, 10, search.ExactBound, stored, 0, 0, false)

	// Reading it back at a different ply from root must still say "mate in 3 from here",
	// which from ply 11 is a mate at ply 14.
	entry, ok := tt.Probe(hash, 11)
	require.True(t, ok)
	require.Equal(t, eval.MateIn(11+3), entry.Score)
}

func TestTranspositionTableClear(t *testing.T) {
	tt := search.NewTranspositionTable(context.Background(), 1<<20)
	tt.Store(board.ZobristHash(1), 0, 4, search.ExactBound, 0, 0, 0, false)
	tt.Clear()

	_, ok := tt.Probe(board.ZobristHash(1), 0)
	require.False(t, ok)
	require.Zero(t, tt.Used())
}

func TestTranspositionTableXXHashTagStoresAndProbes(t *testing.T) {
	tt := search.NewTranspositionTableWithTagHash(context.Background(), 1<<20, search.XXHashTag)

	hash := board.ZobristHash(0x1234567890abcdef)
	m := board.NewMove(board.Square(12), board.Square(28), board.Normal)
	tt.Store(hash, 0, 6, search.ExactBound, 42, 10, m, true)

	entry, ok := tt.Probe(hash, 0)
	require.True(t, ok)
	require.Equal(t, m, entry.Move)
}

func TestTagHashStringNames(t *testing.T) {
	require.Equal(t, "zobrist", search.ZobristTag.String())
	require.Equal(t, "xxhash", search.XXHashTag.String())
}

func TestNoTranspositionTableAlwaysMisses(t *testing.T) {
	var tt search.NoTranspositionTable
	tt.Store(board.ZobristHash(1), 0, 10, search.ExactBound, 100, 100, 0, true)

	_, ok := tt.Probe(board.ZobristHash(1), 0)
	require.False(t, ok)
}
