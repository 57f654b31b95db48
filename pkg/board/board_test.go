package board_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
)

func TestStatusDrawsAtFiftyMoveRule(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "4k3/8/8/8/8/8/8/4K2R w K - 99 50")
	require.NoError(t, err)
	require.Equal(t, board.Ongoing, b.Status())

	var quiet board.Move
	for _, m := range b.GenerateMoves() {
		if !m.IsCapture() && m.Flag() != board.DoublePush {
			quiet = m
			break
		}
	}
	require.NotZero(t, uint16(quiet))

	next := b.MakeMove(quiet)
	require.Equal(t, 100, next.HalfmoveClock())
	require.Equal(t, board.Draw, next.Status())
}

func TestHalfmoveClockSaturatesAtOneHundred(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "4k3/8/8/8/8/8/8/4K2R w K - 100 50")
	require.NoError(t, err)
	require.Equal(t, 100, b.HalfmoveClock())

	var quiet board.Move
	for _, m := range b.GenerateMoves() {
		if !m.IsCapture() && m.Flag() != board.DoublePush {
			quiet = m
			break
		}
	}
	require.NotZero(t, uint16(quiet))

	next := b.MakeMove(quiet)
	require.Equal(t, 100, next.HalfmoveClock(), "clock must saturate, not overflow past 100")
}

func TestHalfmoveClockResetsOnPawnMove(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "4k3/8/8/8/8/8/4P3/4K3 w - - 42 50")
	require.NoError(t, err)

	var push board.Move
	for _, m := range b.GenerateMoves() {
		if m.Flag() == board.Normal {
			if _, piece, _ := b.Square(m.From()); piece == board.Pawn {
				push = m
				break
			}
		}
	}
	require.NotZero(t, uint16(push))

	next := b.MakeMove(push)
	require.Equal(t, 0, next.HalfmoveClock())
}
