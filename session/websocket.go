package session

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = time.Minute
	closeGrace = time.Second
)

type websocketConnection struct {
	socket *websocket.Conn
}

func (wc *websocketConnection) Write(data []byte) error {
	return wc.socket.WriteMessage(websocket.BinaryMessage, data)
}

func (wc *websocketConnection) Ping() error {
	return wc.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(closeGrace))
}

func (wc *websocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

// Close sends the close frame through WriteControl, which gorilla allows
// concurrently with the writer goroutine.
func (wc *websocketConnection) Close(code string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, code)
	_ = wc.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	_ = wc.socket.Close()
}

func NewWebsocketConnection(conn *websocket.Conn) *websocketConnection {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &websocketConnection{conn}
}
