package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWrapped(t *testing.T, handle func(wc *websocketConnection)) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(NewWebsocketConnection(conn))
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(waitTimeout))
	return conn
}

func TestWebsocketConnection(t *testing.T) {
	t.Parallel()

	t.Run("echo", func(t *testing.T) {
		t.Parallel()
		conn := serveWrapped(t, func(wc *websocketConnection) {
			data, err := wc.Read()
			if err != nil {
				return
			}
			_ = wc.Write(data)
		})

		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("끝말잇기")))
		messageType, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, messageType)
		assert.Equal(t, []byte("끝말잇기"), msg)
	})

	t.Run("ping", func(t *testing.T) {
		t.Parallel()
		pinged := make(chan struct{})
		conn := serveWrapped(t, func(wc *websocketConnection) {
			_ = wc.Ping()
			_, _ = wc.Read()
		})
		conn.SetPingHandler(func(string) error {
			close(pinged)
			return nil
		})
		go func() { _, _, _ = conn.ReadMessage() }()

		select {
		case <-pinged:
		case <-time.After(waitTimeout):
			t.Fatal("ping was never received")
		}
	})

	t.Run("close carries the code", func(t *testing.T) {
		t.Parallel()
		conn := serveWrapped(t, func(wc *websocketConnection) {
			wc.Close("banned")
		})

		_, _, err := conn.ReadMessage()
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
		assert.Equal(t, "banned", closeErr.Text)
	})
}
