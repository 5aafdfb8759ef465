package session

import (
	"context"
	"log/slog"
	"sync"
	"wordchain/game"

	"golang.org/x/time/rate"
)

const outboxSize = 256

type client struct {
	userId  int64
	conn    Connection
	limiter *rate.Limiter
	outbox  chan []byte

	// ctx is canceled when the client disconnects; dictionary lookups of
	// its submissions use it.
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(userId int64, conn Connection, limit rate.Limit, burst int) *client {
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		userId:  userId,
		conn:    conn,
		limiter: rate.NewLimiter(limit, burst),
		outbox:  make(chan []byte, outboxSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// send queues a frame without blocking. A client that cannot keep up is
// disconnected.
func (c *client) send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.outbox <- frame:
		return true
	default:
		slog.Warn("Client outbox full, disconnecting", "user_id", c.userId)
		c.close("slow-consumer")
		return false
	}
}

func (c *client) sendPacket(packetType string, data map[string]any) bool {
	frame, err := EncodePacket(packetType, data)
	if err != nil {
		slog.Error("Encoding packet failed", "type", packetType, "error", err.Error())
		return false
	}
	return c.send(frame)
}

func (c *client) close(code string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		c.conn.Close(code)
	})
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readPump decodes frames and dispatches them on the caller's goroutine
// until the connection fails.
func (c *client) readPump(dispatch func(*client, Packet)) {
	for {
		data, err := c.conn.Read()
		if err != nil {
			return
		}

		if !c.limiter.Allow() {
			c.sendPacket(PacketError, map[string]any{"error": ErrRateLimited.Error()})
			continue
		}

		packet, err := DecodePacket(data)
		if err != nil {
			c.sendPacket(PacketError, map[string]any{"error": ErrMalformedPacket.Error()})
			continue
		}

		dispatch(c, packet)
	}
}

func (c *client) writePump(pings game.Ticker) {
	defer pings.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.outbox:
			if err := c.conn.Write(data); err != nil {
				c.close("")
				return
			}
		case <-pings.C():
			if err := c.conn.Ping(); err != nil {
				c.close("")
				return
			}
		}
	}
}

// pingInterval stays under the read deadline renewed by each pong.
const pingInterval = pongWait / 2
