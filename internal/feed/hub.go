package feed

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/banshee-data/rangefix/internal/monitoring"
)

// SubscriberBuffer is the per-subscriber channel depth. A live feed drops
// lines for a subscriber whose buffer is full; a replay waits instead.
const SubscriberBuffer = 64

var logf = monitoring.Component("feed")

// subscriber owns one channel. gone is closed before ch so a sender blocked
// on ch can let go of mu and the channel can be closed safely.
type subscriber struct {
	mu     sync.Mutex
	ch     chan string
	gone   chan struct{}
	once   sync.Once
	closed bool
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.gone)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// send delivers line to s. With wait it blocks until s accepts the line, s
// goes away or ctx is done, and reports whether the line was delivered.
func (s *subscriber) send(ctx context.Context, line string, wait bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !wait {
		select {
		case s.ch <- line:
			return true
		default:
			return false
		}
	}
	select {
	case s.ch <- line:
		return true
	case <-s.gone:
		return false
	case <-ctx.Done():
		return false
	}
}

// hub fans lines out to subscribers. Once closed it drops every broadcast
// and hands out closed channels, so a late subscriber never blocks.
type hub struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	closed      bool

	// ready is closed by the first Subscribe, or by closeAll.
	ready     chan struct{}
	readyOnce sync.Once
}

func newHub() *hub {
	return &hub{
		subscribers: make(map[string]*subscriber),
		ready:       make(chan struct{}),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (h *hub) Subscribe() (string, chan string) {
	id := randomID()
	s := &subscriber{ch: make(chan string, SubscriberBuffer), gone: make(chan struct{})}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return id, s.ch
	}
	h.subscribers[id] = s
	h.readyOnce.Do(func() { close(h.ready) })
	return id, s.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *hub) Unsubscribe(id string) {
	h.mu.Lock()
	s, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()
	if ok {
		s.close()
	}
}

// waitSubscriber blocks until someone has subscribed, the hub is closed or
// ctx is done.
func (h *hub) waitSubscriber(ctx context.Context) error {
	select {
	case <-h.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// broadcast hands line to every subscriber without waiting; full
// subscribers miss it.
func (h *hub) broadcast(source, line string) {
	for id, s := range h.snapshot() {
		if !s.send(context.Background(), line, false) {
			logf("%s: subscriber %s full, dropped line", source, id)
		}
	}
}

// deliver hands line to every subscriber, waiting for each one that is full.
func (h *hub) deliver(ctx context.Context, line string) {
	for _, s := range h.snapshot() {
		s.send(ctx, line, true)
	}
}

func (h *hub) snapshot() map[string]*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	out := make(map[string]*subscriber, len(h.subscribers))
	for id, s := range h.subscribers {
		out[id] = s
	}
	return out
}

func (h *hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	subs := h.subscribers
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()

	h.readyOnce.Do(func() { close(h.ready) })
	for _, s := range subs {
		s.close()
	}
}
