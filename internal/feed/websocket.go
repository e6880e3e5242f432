package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/rangefix/internal/monitoring"
	"github.com/banshee-data/rangefix/internal/timeutil"
)

// DefaultReconnectDelay is the pause between a closed connection and the next dial.
const DefaultReconnectDelay = 2 * time.Second

// WebSocket is a push feed. Each text frame is one measurement line. The
// connection is redialled after DefaultReconnectDelay whenever it closes.
type WebSocket struct {
	*hub
	name      string
	url       string
	delay     time.Duration
	collector *monitoring.Collector

	// Dialer and Clock may be replaced before Monitor starts.
	Dialer *websocket.Dialer
	Clock  timeutil.Clock

	connMu sync.Mutex
	conn   *websocket.Conn
}

var _ Feed = (*WebSocket)(nil)

// NewWebSocket returns a feed that dials url. name labels reconnect metrics
// and log lines. A non-positive delay uses DefaultReconnectDelay.
func NewWebSocket(name, url string, delay time.Duration, collector *monitoring.Collector) *WebSocket {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &WebSocket{
		hub:       newHub(),
		name:      name,
		url:       url,
		delay:     delay,
		collector: collector,
		Dialer:    websocket.DefaultDialer,
		Clock:     timeutil.RealClock{},
	}
}

// Monitor dials, reads frames until the connection drops, then waits and
// redials. It only returns once ctx is done or the feed is closed.
func (w *WebSocket) Monitor(ctx context.Context) error {
	for {
		if err := w.session(ctx); err != nil && ctx.Err() == nil && !w.isClosed() {
			logf("%s: %v", w.name, err)
		}

		if w.isClosed() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Clock.After(w.delay):
		}
		w.collector.ObserveReconnect(w.name)
		logf("%s: reconnecting to %s", w.name, w.url)
	}
}

// session runs one connection from dial to close.
func (w *WebSocket) session(ctx context.Context) error {
	conn, _, err := w.Dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	if !w.setConn(conn) {
		conn.Close()
		return nil
	}
	defer w.setConn(nil)
	logf("%s: connected to %s", w.name, w.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			var cerr *websocket.CloseError
			if errors.As(err, &cerr) {
				logf("%s: connection closed (%d)", w.name, cerr.Code)
				return nil
			}
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		line := strings.TrimSpace(string(msg))
		if line == "" {
			continue
		}
		w.broadcast(w.name, line)
	}
}

// setConn records the live connection. It refuses a new connection once the
// feed is closed.
func (w *WebSocket) setConn(conn *websocket.Conn) bool {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if conn != nil && w.isClosed() {
		return false
	}
	w.conn = conn
	return true
}

// Close closes every subscriber and the live connection, if any.
func (w *WebSocket) Close() error {
	w.closeAll()
	w.connMu.Lock()
	defer w.connMu.Unlock()
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}
