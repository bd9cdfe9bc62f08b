package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleAt(sec int, value float64) Sample {
	return Sample{
		Timestamp: time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC),
		Value:     value,
		Success:   true,
	}
}

func TestRingBuffer_AppendAndReadAll(t *testing.T) {
	rb := NewRingBuffer(10)
	require.Equal(t, 0, rb.Len())
	require.Equal(t, 10, rb.Capacity())

	for i := 0; i < 5; i++ {
		rb.Append(sampleAt(i, float64(i*100)))
	}

	all := rb.ReadAll()
	require.Len(t, all, 5)
	for i, s := range all {
		require.Equal(t, float64(i*100), s.Value)
	}
	require.True(t, all[0].Timestamp.Before(all[4].Timestamp))
}

func TestRingBuffer_Eviction(t *testing.T) {
	rb := NewRingBuffer(100)

	// capacity + k appends leave exactly the 100 most recent, oldest first
	for i := 0; i < 137; i++ {
		rb.Append(sampleAt(i, float64(i)))
	}

	all := rb.ReadAll()
	require.Len(t, all, 100)
	require.Equal(t, float64(37), all[0].Value)
	require.Equal(t, float64(136), all[99].Value)
	for i := 1; i < len(all); i++ {
		require.True(t, all[i-1].Timestamp.Before(all[i].Timestamp))
	}
}

func TestRingBuffer_Percentile(t *testing.T) {
	rb := NewRingBuffer(10)
	for i, v := range []float64{30, 10, 50, 20, 40} {
		rb.Append(sampleAt(i, v))
	}

	require.Equal(t, float64(30), rb.Percentile(50))
	require.Equal(t, float64(50), rb.Percentile(100))
	require.Equal(t, float64(10), rb.Percentile(1))
}

func TestRingBuffer_PercentileEdgeCases(t *testing.T) {
	rb := NewRingBuffer(10)

	// empty buffer
	require.Equal(t, float64(0), rb.Percentile(50))

	rb.Append(sampleAt(0, 42))
	require.Equal(t, float64(42), rb.Percentile(1))
	require.Equal(t, float64(42), rb.Percentile(100))

	// out-of-range p
	require.Equal(t, float64(0), rb.Percentile(0))
	require.Equal(t, float64(0), rb.Percentile(-5))
	require.Equal(t, float64(0), rb.Percentile(101))
}

func TestRingBuffer_PercentileOverRetainedOnly(t *testing.T) {
	rb := NewRingBuffer(3)
	for i, v := range []float64{1000, 1, 2, 3} {
		rb.Append(sampleAt(i, v))
	}

	// the 1000 was evicted
	require.Equal(t, float64(3), rb.Percentile(100))
	require.Equal(t, float64(2), rb.Percentile(50))
}

func TestRingBuffer_ZeroCapacity(t *testing.T) {
	rb := NewRingBuffer(0)
	require.Equal(t, 1, rb.Capacity())
	rb.Append(sampleAt(0, 7))
	rb.Append(sampleAt(1, 8))
	require.Equal(t, 1, rb.Len())
	require.Equal(t, float64(8), rb.ReadAll()[0].Value)
}
