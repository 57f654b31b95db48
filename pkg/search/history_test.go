package search_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/search"
)

func TestHistoryQuietUpdateRewardsBestLeavesOthersUntouched(t *testing.T) {
	h := search.NewHistory()

	best := board.NewMove(board.Square(12), board.Square(28), board.Normal)

	h.UpdateQuiet(board.White, best, board.Pawn, nil, 4, board.NoPiece, 0, false)
	bestScore := h.Quiet(board.White, board.Pawn, board.Square(28), board.NoPiece, 0, false)
	require.Greater(t, bestScore, int32(0))

	otherScore := h.Quiet(board.White, board.Pawn, board.Square(27), board.NoPiece, 0, false)
	require.Zero(t, otherScore)
}

func TestHistoryKillersPromoteOnMiss(t *testing.T) {
	h := search.NewHistory()

	m1 := board.NewMove(board.Square(8), board.Square(16), board.Normal)
	m2 := board.NewMove(board.Square(9), board.Square(17), board.Normal)

	h.RecordKiller(3, m1)
	h.RecordKiller(3, m2)

	k := h.Killer(3)
	require.Equal(t, m2, k[0])
	require.Equal(t, m1, k[1])
}

func TestHistoryKillerReinsertIsNoop(t *testing.T) {
	h := search.NewHistory()
	m := board.NewMove(board.Square(8), board.Square(16), board.Normal)

	h.RecordKiller(1, m)
	h.RecordKiller(1, m)

	k := h.Killer(1)
	require.Equal(t, m, k[0])
	require.Zero(t, k[1])
}

func TestHistoryResetClearsTables(t *testing.T) {
	h := search.NewHistory()
	best := board.NewMove(board.Square(12), board.Square(28), board.Normal)
	h.UpdateQuiet(board.White, best, board.Pawn, nil, 4, board.NoPiece, 0, false)

	h.Reset()
	require.Zero(t, h.Quiet(board.White, board.Pawn, board.Square(28), board.NoPiece, 0, false))
}
