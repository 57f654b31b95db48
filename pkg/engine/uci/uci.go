// Package uci contains a driver for using the engine under the UCI protocol.
//
// See: http://wbec-ridderkerk.nl/html/UCIProtocol.html
// See: https://en.wikipedia.org/wiki/Universal_Chess_Interface
package uci

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/seekerror/logw"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
	"github.com/kestrelchess/kestrel/pkg/engine"
	"github.com/kestrelchess/kestrel/pkg/search"
)

const ProtocolName = "uci"

// Option is a UCI driver option.
type Option func(*options)

type options struct {
	useBook bool
	rand    *rand.Rand
}

// UseBook instructs the driver to consult the engine's configured opening book before
// falling back to a real search.
func UseBook(seed int64) Option {
	return func(opt *options) {
		opt.useBook = true
		opt.rand = rand.New(rand.NewSource(seed))
	}
}

// Driver implements a UCI driver for an Engine, translating "position"/"go"/"stop" text
// commands into Engine calls and Engine PVs back into "info"/"bestmove" text.
type Driver struct {
	e   *engine.Engine
	opt options

	out chan<- string

	active       atomic.Bool    // true while waiting for the engine to finish a move
	ponder       chan search.PV // intermediate search info
	lastPosition string         // last "position" line seen, for incremental move application
	chess960     atomic.Bool    // UCI_Chess960: print castling as king-captures-rook

	quit   chan struct{}
	closed atomic.Bool
}

func NewDriver(ctx context.Context, e *engine.Engine, in <-chan string, opts ...Option) (*Driver, <-chan string) {
	var opt options
	for _, fn := range opts {
		fn(&opt)
	}

	out := make(chan string, 100)
	d := &Driver{
		e:      e,
		opt:    opt,
		out:    out,
		ponder: make(chan search.PV, 400),
		quit:   make(chan struct{}),
	}
	go d.process(ctx, in)

	return d, out
}

func (d *Driver) Close() {
	if d.closed.CompareAndSwap(false, true) {
		close(d.quit)
	}
}

func (d *Driver) Closed() <-chan struct{} {
	return d.quit
}

func (d *Driver) process(ctx context.Context, in <-chan string) {
	defer d.Close()
	defer close(d.out)

	logw.Infof(ctx, "UCI protocol initialized")

	// * id
	//	after "uci", identify the engine by name and author.

	d.out <- fmt.Sprintf("id name %v", d.e.Name())
	d.out <- fmt.Sprintf("id author %v", d.e.Author())

	// * option
	//	advertise every setoption-able parameter: Hash, Threads, Ponder, MoveOverhead,
	//	SyzygyPath, EvalNoise, UCI_Chess960, and OwnBook if a book is configured.
	//	SyzygyProbeDepth is not offered.

	d.out <- "option name Hash type spin default 16 min 1 max 65536"
	d.out <- "option name Threads type spin default 1 min 1 max 512"
	d.out <- "option name Ponder type check default false"
	d.out <- "option name MoveOverhead type spin default 30 min 0 max 5000"
	d.out <- "option name SyzygyPath type string default <empty>"
	d.out <- "option name EvalNoise type spin default 0 min 0 max 1000"
	d.out <- "option name UCI_Chess960 type check default false"
	if d.opt.useBook {
		d.out <- "option name OwnBook type check default true"
	}

	// * uciok
	//	sent once id/option are all written, acknowledging UCI mode is ready.

	d.out <- "uciok"

	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "Input stream broken. Exiting")
				return
			}
			if !d.dispatch(ctx, line) {
				return
			}

		case pv := <-d.ponder:
			if d.active.Load() {
				d.out <- printInfo(pv, d.chess960.Load())
			}

		case <-d.quit:
			d.ensureInactive(ctx)
			logw.Infof(ctx, "Driver closed")
			return
		}
	}
}

// dispatch handles one input line. Returns false if the driver should shut down.
func (d *Driver) dispatch(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "isready":
		// Synchronizes the engine with the GUI: always answer once initialization and
		// any pending position setup has been processed.
		d.out <- "readyok"

	case "debug":
		// Debug logging toggle; this driver always logs via logw, so nothing to do.

	case "setoption":
		d.setOption(ctx, args)

	case "register":
		// No registration scheme; accepted and ignored.

	case "ucinewgame":
		// The next "position"/"go" is from a different game: drop stale TT/history
		// state so it can't bias this one.
		d.ensureInactive(ctx)
		d.e.NewGame(ctx)
		d.lastPosition = ""

	case "position":
		d.position(ctx, line, args)

	case "go":
		d.goCmd(ctx, args)

	case "stop":
		// Stop calculating as soon as possible; bestmove must still follow.
		pv, err := d.e.Halt(ctx)
		if err == nil {
			d.searchCompleted(pv)
		}

	case "ponderhit":
		// The predicted move was played: the pondering search's clock starts now.
		d.e.Ponderhit()

	case "quit":
		return false

	default:
		logw.Warningf(ctx, "Unknown command %q: %v", cmd, args)
	}
	return true
}

func (d *Driver) setOption(ctx context.Context, args []string) {
	// "setoption name <id> [value <x>]" — <id> may itself contain spaces, so rejoin
	// around the literal "name"/"value" markers rather than assuming fixed positions.
	joined := strings.Join(args, " ")
	namePart, valuePart, hasValue := strings.Cut(joined, " value ")
	name := strings.TrimSpace(strings.TrimPrefix(namePart, "name "))
	value := ""
	if hasValue {
		value = strings.TrimSpace(valuePart)
	}

	switch name {
	case "Hash":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			d.e.SetHash(ctx, uint(n))
		}
	case "Threads":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			d.e.SetThreads(uint(n))
		}
	case "EvalNoise":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			d.e.SetNoise(uint(n))
		}
	case "MoveOverhead":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			d.e.SetMoveOverhead(uint(n))
		}
	case "SyzygyPath":
		d.e.SetSyzygyPath(value)
	case "OwnBook":
		d.opt.useBook, _ = strconv.ParseBool(value)
	case "UCI_Chess960":
		if b, err := strconv.ParseBool(value); err == nil {
			d.chess960.Store(b)
		}
	case "Ponder":
		// Handled per-search via the "go ponder"/"ponderhit" commands; no engine
		// state to flip here.
	}
}

func (d *Driver) position(ctx context.Context, line string, args []string) {
	d.ensureInactive(ctx)

	if d.lastPosition != "" && strings.HasPrefix(line, d.lastPosition) {
		// Continuation of the same game: apply only the newly appended moves.
		rest := strings.TrimSpace(strings.TrimPrefix(line, d.lastPosition))
		for _, mv := range strings.Fields(rest) {
			if mv == "moves" {
				continue
			}
			if err := d.e.Move(ctx, mv); err != nil {
				logw.Errorf(ctx, "Invalid position move %q: %v: %v", mv, line, err)
				return
			}
		}
		d.lastPosition = line
		return
	}

	position := fen.Initial
	if len(args) >= 7 && args[0] == "fen" {
		position = strings.Join(args[1:7], " ")
	}
	if err := d.e.Reset(ctx, position); err != nil {
		logw.Errorf(ctx, "Invalid position: %v: %v", line, err)
		return
	}

	seenMoves := false
	for _, arg := range args {
		if arg == "moves" {
			seenMoves = true
			continue
		}
		if !seenMoves {
			continue
		}
		if err := d.e.Move(ctx, arg); err != nil {
			logw.Errorf(ctx, "Invalid position move %q: %v: %v", arg, line, err)
			return
		}
	}
	d.lastPosition = line
}

func (d *Driver) goCmd(ctx context.Context, args []string) {
	d.ensureInactive(ctx)

	var opt search.Options
	var tc search.TimeControl
	haveTC := false
	movetime := time.Duration(0)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "searchmoves":
			for i+1 < len(args) {
				from, to, promo, err := board.ParseMove(args[i+1])
				if err != nil {
					break
				}
				i++
				if m, ok := d.e.Board().FindMove(from, to, promo); ok {
					opt.SearchMoves = append(opt.SearchMoves, m)
				}
			}
		case "ponder":
			tc.Ponder = true
			haveTC = true
		case "wtime", "btime", "winc", "binc", "movestogo", "depth", "nodes", "movetime":
			cmd := args[i]
			i++
			if i == len(args) {
				logw.Errorf(ctx, "No argument for %v", cmd)
				return
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				logw.Errorf(ctx, "Invalid argument for %v: %v", cmd, err)
				return
			}
			switch cmd {
			case "depth":
				opt.DepthLimit = n
			case "nodes":
				opt.NodesLimit = uint64(n)
			case "movetime":
				movetime = time.Millisecond * time.Duration(n)
			case "wtime":
				tc.WhiteTime = time.Millisecond * time.Duration(n)
				haveTC = true
			case "btime":
				tc.BlackTime = time.Millisecond * time.Duration(n)
				haveTC = true
			case "winc":
				tc.WhiteInc = time.Millisecond * time.Duration(n)
				haveTC = true
			case "binc":
				tc.BlackInc = time.Millisecond * time.Duration(n)
				haveTC = true
			case "movestogo":
				tc.MovesToGo = n
				haveTC = true
			}
		case "infinite":
			opt.Infinite = true
		case "mate":
			i++ // mate-in-N search is not distinguished from ordinary search here.
		}
	}
	if movetime > 0 {
		tc.MoveTime = movetime
		haveTC = true
	}
	if haveTC {
		opt.Time = &tc
	}

	if d.opt.useBook {
		if moves, err := d.e.BookMoves(ctx); err == nil && len(moves) > 0 {
			winner := moves[d.opt.rand.Intn(len(moves))]
			d.active.Store(true)
			d.searchCompleted(search.PV{Moves: []board.Move{winner}})
			return
		}
	}

	out, err := d.e.Analyze(ctx, opt)
	if err != nil {
		logw.Errorf(ctx, "Analyze failed: %v", err)
		return
	}
	d.active.Store(true)

	go func() {
		var last search.PV
		for pv := range out {
			last = pv
			d.ponder <- pv
		}
		if !opt.Infinite {
			d.searchCompleted(last)
		}
	}()
}

func (d *Driver) ensureInactive(ctx context.Context) {
	d.active.Store(false)
	_, _ = d.e.Halt(ctx)
}

func (d *Driver) searchCompleted(pv search.PV) {
	if d.active.CompareAndSwap(true, false) {
		if len(pv.Moves) > 0 {
			d.out <- printInfo(pv, d.chess960.Load())
			d.out <- fmt.Sprintf("bestmove %v", formatMove(pv.Moves[0], d.chess960.Load()))
		} else {
			// No legal moves: position is checkmate or stalemate.
			d.out <- "bestmove 0000"
		}
	} // else: stale or duplicate result
}

// formatMove prints m in standard notation, or Chess960/FRC king-captures-rook notation
// when chess960 is set (UCI_Chess960), per the castling-notation split in board.Move.
func formatMove(m board.Move, chess960 bool) string {
	if chess960 {
		return m.StringChess960()
	}
	return m.String()
}

func printInfo(pv search.PV, chess960 bool) string {
	// "info depth 2 score cp 214 nodes 2124 time 1242 nps 1710 hashfull 0 tbhits 0 pv e2e4 e7e5 g1f3"
	parts := []string{"info", fmt.Sprintf("depth %v", pv.Depth)}
	if pv.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %v", pv.SelDepth))
	}
	if d, ok := pv.Score.MateDistance(); ok {
		// Plies to mate alternate sides starting with this node's side to move: an odd
		// ply count means we deliver the mating move ourselves, an even one means the
		// opponent does after our reply. UCI counts in full moves of the mating side.
		moves := (d + 1) / 2
		if d < 0 {
			moves = d / 2
		}
		parts = append(parts, fmt.Sprintf("score mate %v", moves))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %v", int(pv.Score)))
	}
	if pv.Nodes > 0 {
		parts = append(parts, fmt.Sprintf("nodes %v", pv.Nodes))
	}
	if pv.Time > 0 {
		parts = append(parts, fmt.Sprintf("time %v", pv.Time.Milliseconds()))
		if pv.Nodes > 0 {
			parts = append(parts, fmt.Sprintf("nps %v", uint64(time.Second)*pv.Nodes/uint64(pv.Time)))
		}
	}
	parts = append(parts, fmt.Sprintf("hashfull %v", int(1000*pv.Hashfull)))
	parts = append(parts, fmt.Sprintf("tbhits %v", pv.TBHits))
	if len(pv.Moves) > 0 {
		var sb strings.Builder
		for i, m := range pv.Moves {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(formatMove(m, chess960))
		}
		parts = append(parts, "pv", sb.String())
	}
	return strings.Join(parts, " ")
}
