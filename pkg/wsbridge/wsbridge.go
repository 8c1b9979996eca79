// Package wsbridge exposes a Janus node to browser UIs over WebSocket.
//
// One endpoint, /ws, carries both directions: telemetry events from the
// engines stream out as JSON, and control messages coming in are applied
// to the shared state store. Every applied update is broadcast back to
// all connected clients so multiple UIs stay in sync.
package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/januslink/janus/pkg/control"
	"github.com/januslink/janus/pkg/events"
)

// Options configures a Bridge.
type Options struct {
	// Store is the control state shared with the engines. Required.
	Store *control.Store

	// Hub is the telemetry source. Required.
	Hub *events.Hub

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Bridge is the WebSocket control and telemetry endpoint.
type Bridge struct {
	store    *control.Store
	hub      *events.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	ws  *websocket.Conn
	out chan any
}

// helloMessage is the first frame sent to every new client.
type helloMessage struct {
	Type      string        `json:"type"` // always "hello"
	SessionID string        `json:"session_id"`
	State     control.State `json:"state"`
}

// stateMessage is broadcast after every applied control update.
type stateMessage struct {
	Type  string        `json:"type"` // always "state"
	State control.State `json:"state"`
}

// controlMessage is the inbound update frame. Absent fields leave the
// corresponding state untouched.
type controlMessage struct {
	Type string `json:"type"`
	control.Update
}

// New builds a bridge over the given store and hub.
func New(opts Options) (*Bridge, error) {
	if opts.Store == nil {
		return nil, errors.New("wsbridge: Options.Store is required")
	}
	if opts.Hub == nil {
		return nil, errors.New("wsbridge: Options.Hub is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		store:  opts.Store,
		hub:    opts.Hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}, nil
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	return mux
}

// ListenAndServe serves the bridge on addr until the context is
// canceled.
func (b *Bridge) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("wsbridge: listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: b.Handler()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("wsbridge: serve: %w", err)
	}
	return nil
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("wsbridge: upgrade failed", "err", err)
		return
	}
	c := &client{ws: ws, out: make(chan any, events.DefaultCapacity)}
	b.register(c)

	c.send(helloMessage{
		Type:      "hello",
		SessionID: b.hub.SessionID(),
		State:     b.store.Get(),
	})

	// Forward engine telemetry into this client's outbound queue.
	eventsCh, cancelSub := b.hub.Subscribe()
	defer cancelSub()
	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		for ev := range eventsCh {
			c.send(ev)
		}
	}()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for msg := range c.out {
			if err := ws.WriteJSON(msg); err != nil {
				ws.Close()
				return
			}
		}
	}()

	for {
		var msg controlMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("wsbridge: read failed", "err", err)
			}
			break
		}
		if msg.Type != "control" {
			b.logger.Warn("wsbridge: unknown message type", "type", msg.Type)
			continue
		}
		state := b.store.Apply(msg.Update)
		b.logger.Info("wsbridge: control applied",
			"mode", state.Mode.String(),
			"streaming", state.Streaming,
			"recording", state.Recording,
			"emotion", state.Emotion.String(),
		)
		b.broadcast(stateMessage{Type: "state", State: state})
	}

	// Teardown order matters: stop the hub forwarder, then drop the
	// client from the broadcast set, and only then close the outbound
	// queue nobody can write to anymore.
	cancelSub()
	<-forwardDone
	b.unregister(c)
	close(c.out)
	<-writeDone
	ws.Close()
}

func (b *Bridge) register(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = struct{}{}
}

// unregister removes the client from the broadcast set. The caller
// closes the outbound queue once nothing can write to it.
func (b *Bridge) unregister(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, c)
}

func (b *Bridge) broadcast(msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		c.send(msg)
	}
}

// send enqueues without blocking, shedding the oldest queued frame when
// the client cannot keep up.
func (c *client) send(msg any) {
	select {
	case c.out <- msg:
		return
	default:
	}
	select {
	case <-c.out:
	default:
	}
	select {
	case c.out <- msg:
	default:
	}
}
