package board_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
)

// perft counts leaf nodes at the given depth: the standard cross-check for legal move
// generation, since a wrong node count at any depth pinpoints a missed or illegal move.
func perft(b *board.Board, depth int) int64 {
	if depth == 0 {
		return 1
	}
	moves := b.GenerateMoves()
	if depth == 1 {
		return int64(len(moves))
	}

	var nodes int64
	for _, m := range moves {
		child := b.MakeMove(m)
		nodes += perft(&child, depth-1)
	}
	return nodes
}

func TestPerftStartingPosition(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, fen.Initial)
	require.NoError(t, err)

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
		{4, 197281},
		{5, 4865609},
	}
	for _, tc := range tests {
		require.EqualValues(t, tc.expected, perft(b, tc.depth), "perft(%d)", tc.depth)
	}
}

// TestPerftKiwipete exercises castling, en passant, and promotion together.
func TestPerftKiwipete(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 48},
		{2, 2039},
		{3, 97862},
		{4, 4085603},
	}
	for _, tc := range tests {
		require.EqualValues(t, tc.expected, perft(b, tc.depth), "perft(%d)", tc.depth)
	}
}

// TestPerftPosition3 stresses en-passant pin discoveries (a rook on the fourth rank
// facing the enemy king with both side's pawns adjacent to an en-passant capture).
func TestPerftPosition3(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1")
	require.NoError(t, err)

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 14},
		{2, 191},
		{3, 2812},
		{4, 43238},
	}
	for _, tc := range tests {
		require.EqualValues(t, tc.expected, perft(b, tc.depth), "perft(%d)", tc.depth)
	}
}

// TestPerftPosition4 is heavy on promotions (both plain and capturing) and castling
// rights revoked by a rook capture rather than a rook move.
func TestPerftPosition4(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1")
	require.NoError(t, err)

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 6},
		{2, 264},
		{3, 9467},
	}
	for _, tc := range tests {
		require.EqualValues(t, tc.expected, perft(b, tc.depth), "perft(%d)", tc.depth)
	}
}

// TestPerftChess960Castling checks a Shredder-FEN start with the king not on the e-file
// and the rooks not on a/h, exercising the Shredder-letter castling-rights decode; every
// castle is blocked, so no king-captures-own-rook move may appear in the count. Both knights are boxed in by their own
// pawns (only one legal square each) and every other back-rank piece starts fully
// blocked, leaving only pawn pushes plus the two freed knight moves at depth 1.
func TestPerftChess960Castling(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "nrkqbbrn/pppppppp/8/8/8/8/PPPPPPPP/NRKQBBRN w GBgb - 0 1")
	require.NoError(t, err)

	require.EqualValues(t, 18, perft(b, 1))
}

// TestAttacksAgreeWithRecompute checks the piece-indexed attack table, as maintained by
// MakeMove, against a from-scratch recomputation at every node of a short
// search — the tables are only required to *agree*, not to be updated any particular way.
func TestAttacksAgreeWithRecompute(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	var maintained [2][64]uint16
	check := func(b *board.Board) {
		for c := board.ZeroColor; c < board.NumColors; c++ {
			for sq := board.ZeroSquare; sq < board.NumSquares; sq++ {
				maintained[c][sq] = b.Attackers(c, sq)
			}
		}
		require.Equal(t, b.CalcAttacks(), maintained)
	}

	var walk func(b *board.Board, depth int)
	walk = func(b *board.Board, depth int) {
		check(b)
		if depth == 0 {
			return
		}
		for _, m := range b.GenerateMoves() {
			child := b.MakeMove(m)
			walk(&child, depth-1)
		}
	}
	walk(b, 3)
}

// TestRepetitionHashStability checks that shuffling knights back and forth reaches the
// same Zobrist hash it started from, the precondition the search's repetition detection
// relies on.
func TestRepetitionHashStability(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, fen.Initial)
	require.NoError(t, err)

	start := b.Hash()
	for _, uci := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		from, to, _, err := board.ParseMove(uci)
		require.NoError(t, err)

		var applied bool
		for _, m := range b.GenerateMoves() {
			if m.From() == from && m.To() == to {
				next := b.MakeMove(m)
				b = &next
				applied = true
				break
			}
		}
		require.True(t, applied, "move %v not found as legal", uci)
	}
	require.Equal(t, start, b.Hash())
}
