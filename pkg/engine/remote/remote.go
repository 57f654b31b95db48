// Package remote exposes an Engine over a websocket, for driving a search from a
// browser or a remote arbiter instead of a local stdin/stdout UCI pipe.
package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/seekerror/logw"

	"github.com/kestrelchess/kestrel/pkg/engine"
	"github.com/kestrelchess/kestrel/pkg/engine/uci"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// RemoteDriver upgrades HTTP connections to websockets and pipes each one to its own UCI
// driver session over a freshly constructed Engine.
type RemoteDriver struct {
	newEngine func(ctx context.Context) *engine.Engine
	driverOpt []uci.Option
}

// NewRemoteDriver builds a RemoteDriver that spins up a new Engine (via newEngine) per connection,
// so concurrent remote sessions never share search/TT state.
func NewRemoteDriver(newEngine func(ctx context.Context) *engine.Engine, opts ...uci.Option) *RemoteDriver {
	return &RemoteDriver{newEngine: newEngine, driverOpt: opts}
}

// ServeHTTP implements http.Handler: each incoming connection becomes one UCI session
// where inbound text messages are protocol commands and outbound ones are engine output.
func (b *RemoteDriver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logw.Errorf(ctx, "Websocket upgrade failed: %v", err)
		return
	}
	go b.serve(ctx, conn)
}

func (b *RemoteDriver) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	in := make(chan string, 100)
	e := b.newEngine(ctx)
	driver, out := uci.NewDriver(ctx, e, in, b.driverOpt...)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go b.readLoop(ctx, conn, in, done)
	b.writeLoop(ctx, conn, out, driver.Closed(), done)
}

func (b *RemoteDriver) readLoop(ctx context.Context, conn *websocket.Conn, in chan<- string, done chan struct{}) {
	defer close(in)
	defer close(done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logw.Infof(ctx, "Websocket read closed: %v", err)
			return
		}
		in <- string(msg)
	}
}

func (b *RemoteDriver) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan string, closed, done <-chan struct{}) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-out:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				logw.Errorf(ctx, "Websocket write failed: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return

		case <-done:
			return
		}
	}
}
