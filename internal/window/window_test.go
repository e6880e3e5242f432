package window

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func values[V any](entries []Entry[V]) []V {
	out := make([]V, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}

func TestCapacityKeepsNewestInArrivalOrder(t *testing.T) {
	t.Parallel()

	s := New[int](Capacity(8))
	for i := 1; i <= 10; i++ {
		s.Append(i, t0.Add(time.Duration(i)*time.Millisecond))
	}

	require.Equal(t, 8, s.Len())
	if diff := cmp.Diff([]int{3, 4, 5, 6, 7, 8, 9, 10}, values(s.Snapshot())); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestCapacityNeverExceedsK(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for _, k := range []int{1, 3, 8} {
		s := New[int](Capacity(k))
		var inserted []int
		for i := 0; i < 200; i++ {
			n := rng.Intn(5)
			for j := 0; j < n; j++ {
				v := len(inserted)
				inserted = append(inserted, v)
				s.Append(v, t0)
			}
			require.LessOrEqual(t, s.Len(), k)

			want := inserted
			if len(want) > k {
				want = want[len(want)-k:]
			}
			if len(want) == 0 {
				want = []int{}
			}
			require.Equal(t, want, values(s.Snapshot()), "k=%d step=%d", k, i)
		}
	}
}

func TestCapacityAnonymousEntriesAreNotMerged(t *testing.T) {
	t.Parallel()

	s := New[string](Capacity(8))
	s.Append("same", t0)
	s.Append("same", t0)
	s.Append("same", t0)
	assert.Equal(t, 3, s.Len())
}

func TestCapacityEvictIsNoOpWithinLimit(t *testing.T) {
	t.Parallel()

	s := New[int](Capacity(4))
	s.Append(1, t0)
	s.Append(2, t0)
	assert.Equal(t, 0, s.Evict(t0.Add(time.Hour)))
	assert.Equal(t, []int{1, 2}, values(s.Snapshot()))
}

func TestSetPolicyShrinksOnNextEvict(t *testing.T) {
	t.Parallel()

	s := New[int](Capacity(8))
	for i := 0; i < 8; i++ {
		s.Append(i, t0)
	}
	s.SetPolicy(Capacity(3))
	assert.Equal(t, 8, s.Len(), "SetPolicy must not evict by itself")

	assert.Equal(t, 5, s.Evict(t0))
	assert.Equal(t, []int{5, 6, 7}, values(s.Snapshot()))
	assert.Equal(t, Capacity(3), s.Policy())
}

func TestMaxAgeBoundary(t *testing.T) {
	t.Parallel()

	maxAge := 3 * time.Second
	s := New[string](MaxAge(maxAge))
	s.Upsert("at-threshold", "a", t0)
	s.Upsert("past-threshold", "b", t0.Add(-time.Millisecond))
	s.Upsert("fresh", "c", t0.Add(2*time.Second))

	removed := s.Evict(t0.Add(maxAge))
	assert.Equal(t, 1, removed)

	var keys []string
	for _, e := range s.Snapshot() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"at-threshold", "fresh"}, keys)
}

func TestMaxAgeNoFalsePositivesOrNegatives(t *testing.T) {
	t.Parallel()

	maxAge := 3000 * time.Millisecond
	rng := rand.New(rand.NewSource(42))
	s := New[int](MaxAge(maxAge))

	now := t0
	for i := 0; i < 500; i++ {
		now = now.Add(time.Duration(rng.Intn(400)) * time.Millisecond)
		key := fmt.Sprintf("sat-%d", rng.Intn(12))
		observed := now.Add(-time.Duration(rng.Intn(5000)) * time.Millisecond)
		s.Upsert(key, i, observed)

		before := s.Snapshot()
		s.Evict(now)
		after := s.Snapshot()

		kept := make(map[string]bool, len(after))
		for _, e := range after {
			require.LessOrEqual(t, now.Sub(e.ObservedAt), maxAge)
			kept[e.Key] = true
		}
		for _, e := range before {
			if now.Sub(e.ObservedAt) <= maxAge {
				require.True(t, kept[e.Key], "entry %s within max age was evicted", e.Key)
			}
		}
	}
}

func TestUpsertOverwritesInPlace(t *testing.T) {
	t.Parallel()

	s := New[int](MaxAge(3 * time.Second))
	assert.False(t, s.Upsert("a", 1, t0))
	assert.False(t, s.Upsert("b", 2, t0))
	assert.False(t, s.Upsert("c", 3, t0))
	assert.True(t, s.Upsert("a", 10, t0.Add(2*time.Second)))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].Key, "overwrite keeps first-insertion position")
	assert.Equal(t, 10, snap[0].Value)
	assert.Equal(t, t0.Add(2*time.Second), snap[0].ObservedAt)

	// a was refreshed, b and c were not
	s.Evict(t0.Add(4 * time.Second))
	snap = s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].Key)
}

func TestEvictedKeyCanBeReinserted(t *testing.T) {
	t.Parallel()

	s := New[int](MaxAge(time.Second))
	s.Upsert("a", 1, t0)
	s.Upsert("b", 2, t0.Add(time.Second))
	s.Evict(t0.Add(1500 * time.Millisecond))
	require.Equal(t, 1, s.Len())

	assert.False(t, s.Upsert("a", 3, t0.Add(2*time.Second)), "evicted key must insert fresh")
	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, []string{"b", "a"}, []string{snap[0].Key, snap[1].Key})
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	t.Parallel()

	s := New[int](MaxAge(time.Second))
	s.Upsert("a", 1, t0)
	snap := s.Snapshot()
	snap[0].Value = 99

	assert.Equal(t, 1, s.Snapshot()[0].Value)
}

func TestKeyedEntriesUnderCapacity(t *testing.T) {
	t.Parallel()

	s := New[int](Capacity(2))
	s.Upsert("a", 1, t0)
	s.Upsert("b", 2, t0)
	s.Upsert("c", 3, t0)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].Key)
	// the dropped key must be gone from the index too
	assert.False(t, s.Upsert("a", 4, t0))
	assert.Equal(t, []int{3, 4}, values(s.Snapshot()))
}
