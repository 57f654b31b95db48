package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board/fen"
	"github.com/kestrelchess/kestrel/pkg/engine"
	"github.com/kestrelchess/kestrel/pkg/search"
)

func TestEngineMoveAndTakeBack(t *testing.T) {
	ctx := context.Background()
	e := engine.New(ctx, "kestrel", "test", engine.WithOptions(engine.Options{Threads: 1, HashMB: 1}))

	require.NoError(t, e.Move(ctx, "e2e4"))
	require.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", e.Position())

	require.NoError(t, e.TakeBack(ctx))
	require.Equal(t, fen.Initial, e.Position())

	require.Error(t, e.TakeBack(ctx))
}

func TestEngineAcceptsStandardCastlingNotation(t *testing.T) {
	ctx := context.Background()
	e := engine.New(ctx, "kestrel", "test", engine.WithOptions(engine.Options{Threads: 1, HashMB: 1}))

	require.NoError(t, e.Reset(ctx, "rnbqk2r/pppp1ppp/5n2/4p3/4P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"))

	// A standard GUI sends castling as the king moving two files, not as the king
	// capturing its own rook.
	require.NoError(t, e.Move(ctx, "e1g1"))
	require.Contains(t, e.Position(), "RNBQ1RK1")
}

func TestEngineRejectsIllegalMove(t *testing.T) {
	ctx := context.Background()
	e := engine.New(ctx, "kestrel", "test", engine.WithOptions(engine.Options{Threads: 1, HashMB: 1}))

	require.Error(t, e.Move(ctx, "e2e5"))
}

func TestEngineAnalyzeAndHalt(t *testing.T) {
	ctx := context.Background()
	e := engine.New(ctx, "kestrel", "test", engine.WithOptions(engine.Options{Threads: 1, HashMB: 1}))

	out, err := e.Analyze(ctx, search.Options{DepthLimit: 3})
	require.NoError(t, err)

	_, ok := <-out
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	_, err = e.Halt(ctx)
	require.NoError(t, err)

	// Draining out must terminate once the search is halted.
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

func TestEngineRefusesConcurrentAnalyze(t *testing.T) {
	ctx := context.Background()
	e := engine.New(ctx, "kestrel", "test", engine.WithOptions(engine.Options{Threads: 1, HashMB: 1}))

	_, err := e.Analyze(ctx, search.Options{Infinite: true})
	require.NoError(t, err)

	_, err = e.Analyze(ctx, search.Options{Infinite: true})
	require.Error(t, err)

	_, _ = e.Halt(ctx)
}
