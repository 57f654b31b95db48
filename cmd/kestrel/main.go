// Command kestrel is a UCI chess engine.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/seekerror/logw"

	"github.com/kestrelchess/kestrel/pkg/engine"
	"github.com/kestrelchess/kestrel/pkg/engine/remote"
	"github.com/kestrelchess/kestrel/pkg/engine/uci"
	"github.com/kestrelchess/kestrel/pkg/search"
)

var (
	threads      = flag.Uint("threads", 1, "Lazy-SMP worker count")
	hash         = flag.Uint("hash", 16, "Transposition table size, in MB")
	ttHash       = flag.String("tt-hash", "zobrist", "Transposition table slot-tag hash source: zobrist or xxhash")
	noise        = flag.Uint("noise", 0, "Evaluation noise in centipawns (zero if deterministic)")
	moveOverhead = flag.Uint("moveoverhead", 30, "Move overhead in milliseconds (recorded in the engine options; not applied to search deadlines)")
	book         = flag.String("book", "", "Path to a newline-delimited opening book file, if any")
	bookDB       = flag.String("bookdb", "", "Path to a persistent (Badger) opening book directory, if any; takes precedence over -book")
	listen       = flag.String("listen", "", "Serve UCI over a websocket at this address (e.g. :8080) instead of stdio")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: kestrel [options]

KESTREL is a UCI chess engine.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	opts := engine.Options{
		Threads:      *threads,
		HashMB:       *hash,
		Noise:        *noise,
		MoveOverhead: *moveOverhead,
		TTHash:       parseTagHash(*ttHash),
	}

	var engineOpts []engine.Option
	engineOpts = append(engineOpts, engine.WithOptions(opts), engine.WithZobrist(time.Now().UnixNano()))

	var driverOpts []uci.Option
	switch {
	case *bookDB != "":
		b, err := engine.OpenPersistentBook(*bookDB)
		if err != nil {
			logw.Exitf(ctx, "Failed to open book database %v: %v", *bookDB, err)
		}
		engineOpts = append(engineOpts, engine.WithBook(b))
		driverOpts = append(driverOpts, uci.UseBook(time.Now().UnixNano()))

	case *book != "":
		lines, err := readBook(*book)
		if err != nil {
			logw.Exitf(ctx, "Failed to load book %v: %v", *book, err)
		}
		b, err := engine.NewBook(lines)
		if err != nil {
			logw.Exitf(ctx, "Failed to parse book %v: %v", *book, err)
		}
		engineOpts = append(engineOpts, engine.WithBook(b))
		driverOpts = append(driverOpts, uci.UseBook(time.Now().UnixNano()))
	}

	if *listen != "" {
		bridge := remote.NewRemoteDriver(func(ctx context.Context) *engine.Engine {
			return engine.New(ctx, "kestrel", "kestrelchess", engineOpts...)
		}, driverOpts...)

		logw.Infof(ctx, "Serving UCI over websocket on %v", *listen)
		logw.Exitf(ctx, "Server failed: %v", http.ListenAndServe(*listen, bridge))
	}

	e := engine.New(ctx, "kestrel", "kestrelchess", engineOpts...)

	in := engine.ReadStdinLines(ctx)
	switch <-in {
	case uci.ProtocolName:
		driver, out := uci.NewDriver(ctx, e, in, driverOpts...)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	default:
		flag.Usage()
		logw.Exitf(ctx, "Protocol not supported")
	}
}

func parseTagHash(s string) search.TagHash {
	if strings.EqualFold(s, "xxhash") {
		return search.XXHashTag
	}
	return search.ZobristTag
}

func readBook(path string) ([]engine.Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []engine.Line
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, engine.Line(strings.Fields(line)))
	}
	return lines, sc.Err()
}
