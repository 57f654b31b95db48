package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
	"github.com/kestrelchess/kestrel/pkg/engine"
)

func TestBookFindsCoveredLines(t *testing.T) {
	ctx := context.Background()

	book, err := engine.NewBook([]engine.Line{
		{"e2e4", "d7d5", "d2d4"},
		{"e2e4", "d7d6"},
		{"d2d4", "d7d6"},
	})
	require.NoError(t, err)

	moves, err := book.Find(ctx, fen.Initial)
	require.NoError(t, err)
	require.Len(t, moves, 2)

	var seen []string
	for _, m := range moves {
		seen = append(seen, m.String())
	}
	require.ElementsMatch(t, []string{"d2d4", "e2e4"}, seen)
}

func TestBookFindsContinuation(t *testing.T) {
	ctx := context.Background()

	book, err := engine.NewBook([]engine.Line{
		{"e2e4", "d7d5", "d2d4"},
		{"e2e4", "d7d6"},
	})
	require.NoError(t, err)

	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, fen.Initial)
	require.NoError(t, err)

	next := b.MakeMove(findMove(t, b, "e2e4"))
	moves, err := book.Find(ctx, fen.Encode(&next))
	require.NoError(t, err)
	require.Len(t, moves, 2)
}

func TestNoBookIsAlwaysEmpty(t *testing.T) {
	moves, err := engine.NoBook.Find(context.Background(), fen.Initial)
	require.NoError(t, err)
	require.Empty(t, moves)
}

func TestPersistentBookLearnAndFind(t *testing.T) {
	ctx := context.Background()

	book, err := engine.OpenPersistentBook(t.TempDir())
	require.NoError(t, err)
	defer book.Close()

	require.NoError(t, book.Learn(engine.Line{"e2e4", "d7d5", "d2d4"}))
	require.NoError(t, book.Learn(engine.Line{"e2e4", "d7d6"}))
	require.NoError(t, book.Learn(engine.Line{"d2d4", "d7d6"}))

	moves, err := book.Find(ctx, fen.Initial)
	require.NoError(t, err)
	require.Len(t, moves, 2)

	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, fen.Initial)
	require.NoError(t, err)
	next := b.MakeMove(findMove(t, b, "e2e4"))

	moves, err = book.Find(ctx, fen.Encode(&next))
	require.NoError(t, err)
	require.Len(t, moves, 2)
}

func TestPersistentBookRelearnIsIdempotent(t *testing.T) {
	book, err := engine.OpenPersistentBook(t.TempDir())
	require.NoError(t, err)
	defer book.Close()

	require.NoError(t, book.Learn(engine.Line{"e2e4"}))
	require.NoError(t, book.Learn(engine.Line{"e2e4"}))

	moves, err := book.Find(context.Background(), fen.Initial)
	require.NoError(t, err)
	require.Len(t, moves, 1)
}

func findMove(t *testing.T, b *board.Board, uci string) board.Move {
	t.Helper()
	from, to, _, err := board.ParseMove(uci)
	require.NoError(t, err)
	for _, m := range b.GenerateMoves() {
		if m.From() == from && m.To() == to {
			return m
		}
	}
	t.Fatalf("move %v not legal", uci)
	return 0
}
