package simclust

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricAdapter(t *testing.T) {
	reg, err := NewRegistry([]string{"book", "back", "shelf"})
	require.NoError(t, err)

	t.Run("self distance skips the oracle", func(t *testing.T) {
		counter := &countingDistance[string]{inner: EditDistance}
		metric := NewMetric(reg, counter)
		d, err := metric.Distance(1, 1)
		require.NoError(t, err)
		assert.Zero(t, d)
		assert.Zero(t, counter.calls)
		assert.Zero(t, OracleCalls(metric))
	})

	t.Run("counts calls", func(t *testing.T) {
		metric := NewMetric(reg, EditDistance)
		d, err := metric.Distance(0, 1)
		require.NoError(t, err)
		assert.Equal(t, 2.0, d)
		_, err = metric.Distance(1, 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), OracleCalls(metric))
	})

	t.Run("wraps oracle errors", func(t *testing.T) {
		metric := NewMetric(reg, DistanceFunc[string](func(a, b string) (float64, error) {
			return 0, errOracleBroken
		}))
		_, err := metric.Distance(0, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, errOracleBroken)

		var oracleErr *OracleError
		require.True(t, errors.As(err, &oracleErr))
		assert.Equal(t, uint32(0), oracleErr.I)
		assert.Equal(t, uint32(2), oracleErr.J)
	})

	t.Run("rejects invalid distances", func(t *testing.T) {
		for _, bad := range []float64{-1, math.NaN()} {
			metric := NewMetric(reg, DistanceFunc[string](func(a, b string) (float64, error) {
				return bad, nil
			}))
			_, err := metric.Distance(0, 1)
			assert.ErrorIs(t, err, ErrInvalidDistance)
		}
	})
}

func TestSimilarityAdapter(t *testing.T) {
	reg, err := NewRegistry([]string{"a", "b"})
	require.NoError(t, err)

	t.Run("in range", func(t *testing.T) {
		sim := NewSimilarityMetric(reg, SimilarityFunc[string](func(a, b string) (float64, error) {
			return 0.5, nil
		}))
		s, err := sim.Similarity(0, 1)
		require.NoError(t, err)
		assert.Equal(t, 0.5, s)
		assert.Equal(t, uint64(1), OracleCalls(sim))
	})

	t.Run("out of range", func(t *testing.T) {
		sim := NewSimilarityMetric(reg, SimilarityFunc[string](func(a, b string) (float64, error) {
			return 1.5, nil
		}))
		_, err := sim.Similarity(0, 1)
		assert.ErrorIs(t, err, ErrInvalidSimilarity)
	})
}

func TestCachedMetric(t *testing.T) {
	reg, err := NewRegistry([]string{"book", "back", "shelf"})
	require.NoError(t, err)
	counter := &countingDistance[string]{inner: EditDistance}
	inner := NewMetric(reg, counter)

	cached, err := NewCachedMetric(inner, 16)
	require.NoError(t, err)

	for range 3 {
		d, err := cached.Distance(0, 1)
		require.NoError(t, err)
		assert.Equal(t, 2.0, d)
	}
	d, err := cached.Distance(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, d)

	assert.Equal(t, 1, counter.calls, "symmetric lookups share one entry")
	assert.Equal(t, uint64(1), OracleCalls(cached))

	_, err = NewCachedMetric(inner, 0)
	assert.Error(t, err)
}

func TestOracleCallsUnknown(t *testing.T) {
	assert.Zero(t, OracleCalls(MetricFunc(func(i, j uint32) (float64, error) { return 0, nil })))
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry([]string{"x", "y", "z"})
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, "y", reg.Item(1))
	assert.True(t, reg.Contains(2))
	assert.False(t, reg.Contains(3))
	assert.Equal(t, []uint32{0, 1, 2}, reg.IDs())
	assert.Equal(t, [][]string{{"x", "z"}, {"y"}}, reg.Materialize([][]uint32{{0, 2}, {1}}))
}
