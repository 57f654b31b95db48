package uci_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/engine"
	"github.com/kestrelchess/kestrel/pkg/engine/uci"
)

func newDriver(t *testing.T) (chan<- string, <-chan string) {
	t.Helper()
	ctx := context.Background()
	e := engine.New(ctx, "kestrel", "test", engine.WithOptions(engine.Options{Threads: 1, HashMB: 1}))

	in := make(chan string, 100)
	_, out := uci.NewDriver(ctx, e, in)
	return in, out
}

func recvUntil(t *testing.T, out <-chan string, prefix string, timeout time.Duration) string {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-out:
			if !ok {
				t.Fatalf("output closed before seeing %q", prefix)
			}
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", prefix)
		}
	}
}

func TestDriverHandshake(t *testing.T) {
	in, out := newDriver(t)
	defer close(in)

	require.Contains(t, recvUntil(t, out, "id name", time.Second), "kestrel")
	recvUntil(t, out, "uciok", time.Second)

	in <- "isready"
	recvUntil(t, out, "readyok", time.Second)
}

func TestDriverPlaysBestMoveOnDepthLimitedGo(t *testing.T) {
	in, out := newDriver(t)
	defer close(in)

	recvUntil(t, out, "uciok", time.Second)

	in <- "ucinewgame"
	in <- "position startpos"
	in <- "go depth 2"

	line := recvUntil(t, out, "bestmove", 5*time.Second)
	require.True(t, strings.HasPrefix(line, "bestmove "))
	require.NotEqual(t, "bestmove 0000", line)
}

func TestDriverStopReturnsBestMove(t *testing.T) {
	in, out := newDriver(t)
	defer close(in)

	recvUntil(t, out, "uciok", time.Second)

	in <- "position startpos"
	in <- "go infinite"
	time.Sleep(20 * time.Millisecond)
	in <- "stop"

	line := recvUntil(t, out, "bestmove", 5*time.Second)
	require.True(t, strings.HasPrefix(line, "bestmove "))
}

func TestDriverSetOptionHash(t *testing.T) {
	in, out := newDriver(t)
	defer close(in)

	recvUntil(t, out, "uciok", time.Second)

	in <- "setoption name Hash value 4"
	in <- "isready"
	recvUntil(t, out, "readyok", time.Second)
}

func TestDriverAcceptsStandardCastlingNotation(t *testing.T) {
	in, out := newDriver(t)
	defer close(in)

	recvUntil(t, out, "uciok", time.Second)

	in <- "ucinewgame"
	// Clear the squares between king and rook, then castle kingside in the standard
	// notation a GUI actually sends (king moving two files, not king-captures-rook).
	in <- "position fen rnbqk2r/pppp1ppp/5n2/4p3/4P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4 moves e1g1"
	in <- "isready"
	recvUntil(t, out, "readyok", time.Second)

	in <- "go depth 1"
	line := recvUntil(t, out, "bestmove", 5*time.Second)
	require.True(t, strings.HasPrefix(line, "bestmove "))
	require.NotEqual(t, "bestmove 0000", line, "castling must have been accepted, not rejected as illegal")
}

func TestDriverChess960OutputUsesKingCapturesRookNotation(t *testing.T) {
	in, out := newDriver(t)
	defer close(in)

	recvUntil(t, out, "uciok", time.Second)

	in <- "setoption name UCI_Chess960 value true"
	in <- "ucinewgame"
	in <- "position fen rnbqk2r/pppp1ppp/5n2/4p3/4P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"
	in <- "go depth 1 searchmoves e1h1"

	line := recvUntil(t, out, "bestmove", 5*time.Second)
	require.Equal(t, "bestmove e1h1", line, "Chess960 mode must print castling as king-captures-rook")
}

func TestDriverInfoLineIncludesTBHits(t *testing.T) {
	in, out := newDriver(t)
	defer close(in)

	recvUntil(t, out, "uciok", time.Second)

	in <- "position startpos"
	in <- "go depth 2"

	line := recvUntil(t, out, "info depth", 5*time.Second)
	require.Contains(t, line, "tbhits")
}

func TestDriverQuitClosesOutput(t *testing.T) {
	in, out := newDriver(t)

	recvUntil(t, out, "uciok", time.Second)
	in <- "quit"

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("output channel did not close after quit")
		}
	}
}
