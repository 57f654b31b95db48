package remote_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/engine"
	"github.com/kestrelchess/kestrel/pkg/engine/remote"
)

func TestRemoteDriverHandshakeOverWebsocket(t *testing.T) {
	bridge := remote.NewRemoteDriver(func(ctx context.Context) *engine.Engine {
		return engine.New(ctx, "kestrel", "test", engine.WithOptions(engine.Options{Threads: 1, HashMB: 1}))
	})

	srv := httptest.NewServer(bridge)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	sawID, sawOK := false, false
	for i := 0; i < 20; i++ {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(string(msg), "id name"):
			sawID = true
		case string(msg) == "uciok":
			sawOK = true
		}
		if sawID && sawOK {
			break
		}
	}
	require.True(t, sawID)
	require.True(t, sawOK)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("isready")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "readyok", string(msg))
}
