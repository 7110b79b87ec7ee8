// Package mlxwatch republishes the local MLX sidecar's websocket
// progress/health event stream onto the core's event bus, so the renderer
// can show model-load progress independently of internal/postprocess's
// synchronous HTTP dispatch calls.
package mlxwatch

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/aidynamicsolutions/codictate/internal/events"
)

const reconnectDelay = 3 * time.Second

// Watcher connects to the MLX sidecar's /events endpoint and publishes each
// decoded message as an events.MLXModelStateChanged event.
type Watcher struct {
	url    string
	bus    *events.Bus
	logger *log.Logger

	dial func(ctx context.Context, url string) (wsConn, error)
}

type wsConn interface {
	readJSON(ctx context.Context, v any) error
	close()
}

type realConn struct{ conn *websocket.Conn }

func (r realConn) readJSON(ctx context.Context, v any) error {
	return wsjson.Read(ctx, r.conn, v)
}

func (r realConn) close() {
	r.conn.Close(websocket.StatusNormalClosure, "")
}

// New builds a Watcher targeting baseURL's sidecar (the same HTTP base URL
// internal/postprocess.Dispatcher.MLXBaseURL resolves), rewriting the scheme
// to ws/wss and appending /events.
func New(baseURL string, bus *events.Bus, logger *log.Logger) *Watcher {
	w := &Watcher{url: eventsURL(baseURL), bus: bus, logger: logger}
	w.dial = func(ctx context.Context, url string) (wsConn, error) {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return realConn{conn: conn}, nil
	}
	return w
}

func eventsURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	return u.String()
}

// Run connects and republishes events until ctx is cancelled. The sidecar
// is optional infrastructure — dictation works without it — so dial and
// read failures are logged and retried with a fixed backoff rather than
// surfaced to the caller.
func (w *Watcher) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := w.runOnce(ctx); err != nil && w.logger != nil {
			w.logger.Printf("mlxwatch: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) error {
	conn, err := w.dial(ctx, w.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.close()

	for {
		var payload events.MLXModelStateChangedPayload
		if err := conn.readJSON(ctx, &payload); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		w.bus.Publish(events.MLXModelStateChanged, payload)
	}
}
