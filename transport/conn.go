// Package transport carries session traffic over a websocket. Every write
// to the socket happens on the connection's Loop; a reader goroutine hands
// each inbound frame to the loop as well, so frame handlers and sends never
// run concurrently.
package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tailored-agentic-units/sktalk/observability"
)

// Websocket timeouts.
const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 1 << 20
)

// Transport event types.
const (
	EventOpen  observability.EventType = "transport.open"
	EventClose observability.EventType = "transport.close"
	EventError observability.EventType = "transport.error"
)

// Handler processes one inbound frame. It runs on the connection's loop.
type Handler func(ctx context.Context, c *Conn, frame []byte)

// Option configures a Conn.
type Option func(*Conn)

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(c *Conn) { c.observer = o }
}

// WithPingPeriod overrides the keepalive interval. The read deadline is
// extended to ten ninths of it.
func WithPingPeriod(d time.Duration) Option {
	return func(c *Conn) {
		c.pingPeriod = d
		c.pongWait = d * 10 / 9
	}
}

// Conn is a websocket connection driven by a Loop.
type Conn struct {
	id         string
	ws         *websocket.Conn
	loop       *Loop
	observer   observability.Observer
	pingPeriod time.Duration
	pongWait   time.Duration

	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an upgraded websocket.
func NewConn(ws *websocket.Conn, opts ...Option) *Conn {
	c := &Conn{
		id:         uuid.NewString(),
		ws:         ws,
		loop:       NewLoop(),
		observer:   observability.NewSlogObserver(slog.Default()),
		pingPeriod: PingPeriod,
		pongWait:   PongWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// Post schedules fn on the connection's loop.
func (c *Conn) Post(fn func()) error {
	return c.loop.Post(fn)
}

// Send writes one text frame. Only call it from a task running on the loop.
func (c *Conn) Send(data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close stops the loop and closes the socket. It is safe to call more than
// once and from any goroutine, including tasks on the loop.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.loop.Stop()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WriteWait))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// Serve runs the connection until the peer goes away, ctx ends or Close is
// called. Each inbound frame is passed to handler on the loop.
func (c *Conn) Serve(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.emit(EventOpen, observability.LevelInfo, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.loop.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		c.keepalive(ctx)
	}()

	err := c.read(ctx, handler)

	cancel()
	c.Close()
	wg.Wait()

	c.emit(EventClose, observability.LevelInfo, nil)
	return err
}

func (c *Conn) read(ctx context.Context, handler Handler) error {
	c.ws.SetReadLimit(MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	stop := context.AfterFunc(ctx, func() { c.ws.Close() })
	defer stop()

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emit(EventError, observability.LevelWarning, map[string]any{"error": err.Error()})
				return err
			}
			return nil
		}

		if perr := c.loop.Post(func() { handler(ctx, c, frame) }); perr != nil {
			return nil
		}
	}
}

func (c *Conn) keepalive(ctx context.Context) {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.loop.Post(func() {
				c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
				if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.emit(EventError, observability.LevelVerbose, map[string]any{"error": err.Error()})
				}
			})
			if err != nil {
				return
			}
		}
	}
}

func (c *Conn) emit(typ observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["conn"] = c.id
	c.observer.OnEvent(context.Background(), observability.NewEvent(typ, level, "transport.Conn", data))
}
