package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/itslanguage/itslanguage-go/internal/observe"
)

// ErrClosed is returned by Call when the channel has been closed, either
// explicitly or because the underlying WebSocket dropped.
var ErrClosed = errors.New("connection: channel is closed")

// request is the JSON frame sent for each RPC call.
type request struct {
	ID        string         `json:"id"`
	Procedure string         `json:"procedure"`
	Args      []any          `json:"args,omitempty"`
	Kwargs    map[string]any `json:"kwargs,omitempty"`
}

// response is the JSON frame received for each settled call. Exactly one of
// Result and Error is populated.
type response struct {
	ID      string                     `json:"id"`
	Result  json.RawMessage            `json:"result,omitempty"`
	Error   string                     `json:"error,omitempty"`
	Message string                     `json:"message,omitempty"`
	Kwargs  map[string]json.RawMessage `json:"kwargs,omitempty"`
}

// Conn is a [Channel] over a persistent WebSocket. Calls are correlated by
// client-generated ids, so any number of calls may be in flight at once.
//
// A Conn is created with [Dial] and must be released with Close.
type Conn struct {
	cfg Config
	ws  *websocket.Conn

	readCancel context.CancelFunc
	done       chan struct{}
	once       sync.Once
	wg         sync.WaitGroup

	mu      sync.Mutex
	pending map[string]chan response
}

// Dial establishes the WebSocket connection described by cfg and starts the
// read pump. ctx governs the handshake only; the connection stays open until
// Close is called or the socket drops.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.dialTimeout())
	defer cancel()

	opts := &websocket.DialOptions{}
	if cfg.AccessToken != "" {
		headers := http.Header{}
		headers.Set("Authorization", "Bearer "+cfg.AccessToken)
		opts.HTTPHeader = headers
	}

	ws, _, err := websocket.Dial(dialCtx, cfg.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("connection: dial %s: %w", cfg.URL, err)
	}

	readCtx, readCancel := context.WithCancel(context.Background())
	c := &Conn{
		cfg:        cfg,
		ws:         ws,
		readCancel: readCancel,
		done:       make(chan struct{}),
		pending:    make(map[string]chan response),
	}

	c.wg.Add(1)
	go c.readPump(readCtx)
	if interval := cfg.pingInterval(); interval > 0 {
		c.wg.Add(1)
		go c.pingLoop(readCtx, interval)
	}
	return c, nil
}

// Call implements [Channel].
func (c *Conn) Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}

	ctx, span := observe.StartSpan(ctx, "rpc "+procedure,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("procedure", procedure)))
	defer span.End()

	id := uuid.NewString()
	reply := make(chan response, 1)
	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	frame, err := json.Marshal(request{ID: id, Procedure: procedure, Args: args, Kwargs: kwargs})
	if err != nil {
		return nil, fmt.Errorf("connection: encode %s: %w", procedure, err)
	}
	if err := c.ws.Write(ctx, websocket.MessageText, frame); err != nil {
		c.countCall(ctx, procedure, "write_error")
		span.SetStatus(codes.Error, "write failed")
		return nil, fmt.Errorf("connection: write %s: %w", procedure, err)
	}
	observe.Logger(ctx).Debug("rpc call sent", "procedure", procedure, "id", id)

	select {
	case resp := <-reply:
		if resp.Error != "" {
			c.countCall(ctx, procedure, "rejected")
			span.SetStatus(codes.Error, resp.Error)
			return nil, &RPCError{
				Procedure: procedure,
				Code:      resp.Error,
				Message:   resp.Message,
				Kwargs:    resp.Kwargs,
			}
		}
		c.countCall(ctx, procedure, "ok")
		return resp.Result, nil
	case <-ctx.Done():
		c.countCall(ctx, procedure, "cancelled")
		span.SetStatus(codes.Error, "cancelled")
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Connected implements [Channel].
func (c *Conn) Connected() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close tears down the connection. In-flight calls fail with [ErrClosed].
// Close is safe to call more than once.
func (c *Conn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.readCancel()
		_ = c.ws.Close(websocket.StatusNormalClosure, "client closed")
		c.wg.Wait()
	})
	return nil
}

// readPump receives response frames and hands them to the waiting caller.
// Unknown ids are logged and dropped. A read error terminates the channel.
func (c *Conn) readPump(ctx context.Context) {
	defer c.wg.Done()
	for {
		_, msg, err := c.ws.Read(ctx)
		if err != nil {
			// Normal close or cancellation; either way the channel is gone.
			go c.Close()
			return
		}
		var resp response
		if err := json.Unmarshal(msg, &resp); err != nil {
			slog.Warn("discarding malformed rpc frame", "err", err)
			continue
		}
		c.mu.Lock()
		reply, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if !ok {
			slog.Debug("rpc response without a waiting call", "id", resp.ID)
			continue
		}
		reply <- resp
	}
}

func (c *Conn) pingLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ws.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (c *Conn) countCall(ctx context.Context, procedure, status string) {
	m := observe.Default()
	if m == nil {
		return
	}
	m.RPCCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("status", status),
	))
}

// Ensure Conn implements Channel at compile time.
var _ Channel = (*Conn)(nil)
