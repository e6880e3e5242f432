package trilat

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func src(x, y, r float64) Source {
	return Source{Position: r2.Vec{X: x, Y: y}, Range: r}
}

func TestSolveRightAngleEqualRanges(t *testing.T) {
	t.Parallel()

	p, err := Solve(src(0, 0, 5), src(10, 0, 5), src(0, 10, 5))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, p.X, 1e-12)
	assert.InDelta(t, 5.0, p.Y, 1e-12)
}

func TestSolveRoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	solved := 0
	for i := 0; i < 1000; i++ {
		var s [3]r2.Vec
		for j := range s {
			s[j] = r2.Vec{X: rng.Float64()*300 - 150, Y: rng.Float64()*300 - 150}
		}
		// skip nearly collinear draws, where the round trip loses precision
		area := math.Abs((s[1].X-s[0].X)*(s[2].Y-s[0].Y) - (s[2].X-s[0].X)*(s[1].Y-s[0].Y))
		if area < 100 {
			continue
		}
		target := r2.Vec{X: rng.Float64()*200 - 100, Y: rng.Float64()*200 - 100}

		p, err := Solve(
			Source{Position: s[0], Range: r2.Norm(r2.Sub(s[0], target))},
			Source{Position: s[1], Range: r2.Norm(r2.Sub(s[1], target))},
			Source{Position: s[2], Range: r2.Norm(r2.Sub(s[2], target))},
		)
		require.NoError(t, err)
		require.InDelta(t, target.X, p.X, 1e-6, "draw %d", i)
		require.InDelta(t, target.Y, p.Y, 1e-6, "draw %d", i)
		solved++
	}
	assert.Greater(t, solved, 900)
}

func TestSolveDegenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		s1, s2, s3 Source
	}{
		{"collinear on x axis", src(0, 0, 5), src(10, 0, 5), src(20, 0, 5)},
		{"collinear diagonal", src(0, 0, 1), src(1, 1, 2), src(2, 2, 3)},
		{"collinear fractional", src(0, 0, 1), src(0.1, 0.3, 2), src(0.2, 0.6, 3)},
		{"coincident", src(4, 4, 1), src(4, 4, 2), src(4, 4, 3)},
		{"two coincident", src(0, 0, 1), src(0, 0, 2), src(5, 5, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(tt.s1, tt.s2, tt.s3)
			assert.ErrorIs(t, err, ErrGeometricDegeneracy)
		})
	}
}

func TestSolveNonFinite(t *testing.T) {
	t.Parallel()

	_, err := Solve(src(0, 0, math.NaN()), src(10, 0, 5), src(0, 10, 5))
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = Solve(src(0, 0, math.Inf(1)), src(10, 0, 5), src(0, 10, 5))
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestTravelRange(t *testing.T) {
	t.Parallel()

	const c = 299792.458
	tests := []struct {
		name           string
		sent, received float64
		unit           time.Duration
		expected       float64
	}{
		{"1 ms in ms ticks", 1000, 1001, time.Millisecond, c / 1000},
		{"zero travel", 42, 42, time.Millisecond, 0},
		{"1 s in s ticks", 3, 4, time.Second, c},
		{"100 us in us ticks", 0, 100, time.Microsecond, c / 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TravelRange(tt.sent, tt.received, tt.unit, c)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}
