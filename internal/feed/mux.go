// Package feed delivers raw measurement lines from the transports a client
// can listen on: a WebSocket push channel, a serial line, or a replay file.
// Every transport fans each line out to any number of subscribers.
package feed

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
)

// Feed is a line-oriented measurement source with multiple subscribers.
type Feed interface {
	// Subscribe creates a new channel for receiving lines. The channel ID is
	// used to identify the unique channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// Monitor reads lines from the transport and sends them to subscribers
	// until ctx is done or the transport is exhausted.
	Monitor(context.Context) error
	// Close closes all subscribed channels and the underlying transport.
	Close() error
}

// Mux is a line multiplexer over any reader, such as a serial port or a
// capture file.
type Mux[T io.ReadCloser] struct {
	*hub
	name string
	src  T

	// paced makes Monitor wait for the first subscriber and block on full
	// subscribers instead of dropping lines. Replays are paced.
	paced bool
}

var _ Feed = (*Mux[*os.File])(nil)

// NewMux wraps src. The name tags log lines.
func NewMux[T io.ReadCloser](name string, src T) *Mux[T] {
	return &Mux[T]{hub: newHub(), name: name, src: src}
}

// OpenReplay opens an NDJSON capture for replay. Each line of the file is
// delivered as one measurement.
func OpenReplay(path string) (*Mux[*os.File], error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	m := NewMux("replay:"+filepath.Base(path), f)
	m.paced = true
	return m, nil
}

// Monitor scans src line by line and fans each non-empty line out. It returns
// nil when src reaches EOF. A paced Mux delivers every line to every
// subscriber, starting once the first one has subscribed.
func (m *Mux[T]) Monitor(ctx context.Context) error {
	if m.paced {
		if err := m.waitSubscriber(ctx); err != nil {
			return err
		}
	}

	scan := bufio.NewScanner(m.src)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan runs in its own goroutine so the loop below can
	// still observe context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			if m.isClosed() {
				return nil
			}
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					if !m.isClosed() {
						return err
					}
				default:
				}
				return nil
			}
			if line == "" {
				continue
			}
			if m.isClosed() {
				return nil
			}
			if m.paced {
				m.deliver(ctx, line)
			} else {
				m.broadcast(m.name, line)
			}
		}
	}
}

// Close closes every subscriber and then the source.
func (m *Mux[T]) Close() error {
	m.closeAll()
	return m.src.Close()
}
