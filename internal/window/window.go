// Package window holds the freshest known samples without unbounded growth.
//
// A Store keeps entries in insertion order and drops them only through its
// eviction Policy. Two policies are provided: Capacity keeps the newest K
// entries by arrival, MaxAge keeps entries observed within a duration of
// "now". Entries may be anonymous (Append) or keyed (Upsert); a keyed entry is
// overwritten in place and keeps the position of its first insertion.
//
// Store performs no locking and never blocks. It is owned by a single driver.
package window

import (
	"container/list"
	"time"
)

// Entry is one sample held by a Store.
type Entry[V any] struct {
	Key        string // empty for anonymous entries
	Value      V
	ObservedAt time.Time
}

// Policy decides which entries survive an eviction pass.
type Policy interface {
	// Retain reports whether the entry at position pos (0 = oldest) of a store
	// holding size entries, observed age ago, is kept.
	Retain(pos, size int, age time.Duration) bool
}

// bounded is implemented by policies that also cap the store on insert.
type bounded interface {
	Limit() int
}

// Capacity keeps the most recently inserted K entries.
type Capacity int

// Retain keeps the last K positions.
func (c Capacity) Retain(pos, size int, _ time.Duration) bool {
	return pos >= size-int(c)
}

// Limit returns K.
func (c Capacity) Limit() int { return int(c) }

// MaxAge keeps entries no older than the duration. An entry exactly at the
// threshold is kept.
type MaxAge time.Duration

// Retain keeps entries with age <= MaxAge.
func (m MaxAge) Retain(_, _ int, age time.Duration) bool {
	return age <= time.Duration(m)
}

// Store is an insertion-ordered sample buffer with a pluggable eviction policy.
type Store[V any] struct {
	policy Policy
	order  *list.List // of *Entry[V]
	index  map[string]*list.Element
}

// New creates an empty Store governed by p.
func New[V any](p Policy) *Store[V] {
	return &Store[V]{
		policy: p,
		order:  list.New(),
		index:  make(map[string]*list.Element),
	}
}

// Append inserts an anonymous entry. Anonymous entries are never merged.
func (s *Store[V]) Append(v V, observedAt time.Time) {
	s.order.PushBack(&Entry[V]{Value: v, ObservedAt: observedAt})
	s.trim()
}

// Upsert stores v under key. An existing entry for key is overwritten in place
// and its ObservedAt reset; replaced reports whether that happened.
func (s *Store[V]) Upsert(key string, v V, observedAt time.Time) (replaced bool) {
	if el, ok := s.index[key]; ok {
		e := el.Value.(*Entry[V])
		e.Value = v
		e.ObservedAt = observedAt
		return true
	}
	s.index[key] = s.order.PushBack(&Entry[V]{Key: key, Value: v, ObservedAt: observedAt})
	s.trim()
	return false
}

// Evict removes every entry the policy rejects at now and returns the count.
func (s *Store[V]) Evict(now time.Time) int {
	size := s.order.Len()
	removed := 0
	pos := 0
	for el := s.order.Front(); el != nil; pos++ {
		next := el.Next()
		e := el.Value.(*Entry[V])
		if !s.policy.Retain(pos, size, now.Sub(e.ObservedAt)) {
			s.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

// Snapshot returns a copy of the live entries, oldest first.
func (s *Store[V]) Snapshot() []Entry[V] {
	out := make([]Entry[V], 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*Entry[V]))
	}
	return out
}

// Len returns the number of live entries.
func (s *Store[V]) Len() int {
	return s.order.Len()
}

// Policy returns the active eviction policy.
func (s *Store[V]) Policy() Policy {
	return s.policy
}

// SetPolicy swaps the eviction policy. Entries are not evicted until the next
// insert or Evict call.
func (s *Store[V]) SetPolicy(p Policy) {
	s.policy = p
}

// trim drops the oldest entries while a bounded policy is over its limit.
func (s *Store[V]) trim() {
	b, ok := s.policy.(bounded)
	if !ok {
		return
	}
	limit := b.Limit()
	if limit < 0 {
		limit = 0
	}
	for s.order.Len() > limit {
		s.remove(s.order.Front())
	}
}

func (s *Store[V]) remove(el *list.Element) {
	e := s.order.Remove(el).(*Entry[V])
	if e.Key != "" {
		delete(s.index, e.Key)
	}
}
