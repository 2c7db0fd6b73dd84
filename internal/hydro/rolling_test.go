package hydro

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daySeries(step time.Duration, value float64) Series {
	start := time.Date(2021, 9, 24, 0, 0, 0, 0, time.UTC)
	n := int(24 * time.Hour / step)
	s := make(Series, n)
	for i := range s {
		s[i] = Reading{Time: start.Add(time.Duration(i) * step), Value: value}
	}
	return s
}

func bruteWindowSum(s Series, t time.Time, w time.Duration) (float64, int) {
	var sum float64
	var n int
	for _, r := range s {
		if r.Time.After(t.Add(-w)) && !r.Time.After(t) && !math.IsNaN(r.Value) {
			sum += r.Value
			n++
		}
	}
	return sum, n
}

func TestRollingSumMatchesDirectSum(t *testing.T) {
	start := time.Date(2021, 9, 24, 0, 0, 0, 0, time.UTC)
	s := make(Series, 400)
	for i := range s {
		v := float64(i%7) * 0.25
		if i%11 == 0 {
			v = math.NaN()
		}
		// Irregular but increasing spacing, including gaps wider than the window.
		step := time.Duration(i*37+i%5+(i/50)*400) * time.Second
		s[i] = Reading{Time: start.Add(step), Value: v}
	}

	win := newRollingSum(s, 5*time.Minute)
	for _, r := range s {
		sum, n := win.at(r.Time)
		wantSum, wantN := bruteWindowSum(s, r.Time, 5*time.Minute)
		require.Equal(t, wantN, n, "count at %s", r.Time)
		assert.InDelta(t, wantSum, sum, 1e-9, "sum at %s", r.Time)
	}
}

func TestRainStatisticsDayOfSecondData(t *testing.T) {
	s := daySeries(time.Second, 0.01)
	require.Len(t, s, 86400)

	begin := time.Now()
	events, table := RainStatistics(s, RainOptions{
		PeakWindows: []time.Duration{5 * time.Minute, 10 * time.Minute, 60 * time.Minute},
	})
	elapsed := time.Since(begin)

	require.Len(t, events, 1)
	assert.InDelta(t, 36.0, table.Floats("peak_5_min_rainfall_intensity")[0], 1e-6)
	assert.InDelta(t, 36.0, table.Floats("peak_10_min_rainfall_intensity")[0], 1e-6)
	assert.InDelta(t, 36.0, table.Floats("peak_60_min_rainfall_intensity")[0], 1e-6)
	assert.Less(t, elapsed, 5*time.Second, "a day of 1 s readings took %s", elapsed)
}

func TestPeakFlowRateDayOfSecondData(t *testing.T) {
	s := daySeries(time.Second, 2.5)
	begin := time.Now()
	assert.InDelta(t, 2.5, PeakFlowRate(s, PeakFlowWindow), 1e-9)
	assert.Less(t, time.Since(begin), 5*time.Second)
}

func BenchmarkRainStatisticsDay(b *testing.B) {
	s := daySeries(time.Second, 0.01)
	opts := RainOptions{PeakWindows: []time.Duration{5 * time.Minute, 10 * time.Minute, 60 * time.Minute}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RainStatistics(s, opts)
	}
}
