// Package client implements the WebSocket RPC client used by termctl and
// by gateway tests.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mselko/termhub/internal/gateway"
)

// ErrShutdown is returned by calls made after the client closed.
var ErrShutdown = errors.New("client is shut down")

// RPCError is a server-side failure, carrying the machine-readable code
// alongside the message.
type RPCError struct {
	Code    string
	Message string
}

func (e *RPCError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client is a WebSocket RPC client for the gateway. Responses are
// correlated by frame id; event frames are surfaced on Events.
type Client struct {
	ws *websocket.Conn

	mu      sync.Mutex
	pending map[uint64]chan gateway.Frame
	nextID  atomic.Uint64

	events chan gateway.Frame
	closed atomic.Bool
	done   chan struct{}
}

// Dial connects to a gateway at host:port and starts the read loop.
func Dial(ctx context.Context, addr string) (*Client, error) {
	ws, _, err := websocket.Dial(ctx, "ws://"+addr+"/ws", nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	c := &Client{
		ws:      ws,
		pending: make(map[uint64]chan gateway.Frame),
		events:  make(chan gateway.Frame, 256),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers event frames in arrival order. The channel closes when
// the connection ends. A consumer that stops draining loses events once
// the buffer fills; responses are never held up behind events.
func (c *Client) Events() <-chan gateway.Frame {
	return c.events
}

// Close tears down the connection. Pending calls fail with ErrShutdown.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	close(c.done)

	// Abandon pending calls; waiters fall through to the done channel.
	c.mu.Lock()
	c.pending = make(map[uint64]chan gateway.Frame)
	c.mu.Unlock()

	return c.ws.Close(websocket.StatusNormalClosure, "")
}

// Call sends a request and waits for the matching response. A non-nil
// result receives the unmarshalled payload.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if c.closed.Load() {
		return ErrShutdown
	}

	var payload json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		payload = data
	}

	id := c.nextID.Add(1)
	ch := make(chan gateway.Frame, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := gateway.Frame{
		Type:    gateway.FrameTypeRequest,
		ID:      id,
		Method:  method,
		Payload: payload,
	}
	if err := wsjson.Write(ctx, c.ws, req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrShutdown
	case resp := <-ch:
		if resp.Error != "" {
			return &RPCError{Code: resp.Code, Message: resp.Error}
		}
		if result != nil && len(resp.Payload) > 0 {
			if err := json.Unmarshal(resp.Payload, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		var frame gateway.Frame
		if err := wsjson.Read(context.Background(), c.ws, &frame); err != nil {
			return // connection closed or failed
		}

		switch frame.Type {
		case gateway.FrameTypeResponse:
			c.mu.Lock()
			ch, ok := c.pending[frame.ID]
			c.mu.Unlock()
			if ok {
				ch <- frame
			}
		case gateway.FrameTypeEvent:
			select {
			case c.events <- frame:
			default:
			}
		}
	}
}
