package hydro

import (
	"fmt"
	"math"
	"time"
)

// PeakFlowWindow is the averaging window of the peak flow rate.
const PeakFlowWindow = 5 * time.Minute

// TimeUnit is the time base of a flow rate: per second or per minute.
type TimeUnit string

// seconds is the length of the unit in seconds.
func (u TimeUnit) seconds() (float64, error) {
	switch u {
	case "s", "sec":
		return 1, nil
	case "m", "min":
		return 60, nil
	}
	return 0, fmt.Errorf("%w: unknown time unit %q", ErrInvalidData, string(u))
}

// RunoffVolume integrates the flow rate over time with the trapezoidal rule.
func RunoffVolume(s Series, unit TimeUnit) (float64, error) {
	per, err := unit.seconds()
	if err != nil {
		return 0, err
	}
	v := s.Valid()
	var volume float64
	for i := 1; i < len(v); i++ {
		dt := v[i].Time.Sub(v[i-1].Time).Seconds() / per
		volume += (v[i].Value + v[i-1].Value) / 2 * dt
	}
	return volume, nil
}

// RunoffDuration is the time in hours between the first and the last valid
// reading. It is NaN for a series with no valid reading.
func RunoffDuration(s Series) float64 {
	v := s.Valid()
	if len(v) == 0 {
		return math.NaN()
	}
	return hours(v[len(v)-1].Time.Sub(v[0].Time))
}

// PeakFlowRate is the highest rolling mean of the flow over window. When
// readings are further apart than the window the series is interpolated onto
// a grid of that spacing instead, and the peak is the grid's maximum.
func PeakFlowRate(s Series, window time.Duration) float64 {
	v := s.Valid()
	switch len(v) {
	case 0:
		return math.NaN()
	case 1:
		return v[0].Value
	}

	// Seconds within a day, matching a timedelta's seconds component.
	gap := int64(v[1].Time.Sub(v[0].Time)/time.Second) % 86400
	if math.RoundToEven(float64(gap)/60) > window.Minutes() {
		return gridPeak(v, window)
	}

	peak := math.NaN()
	win := newRollingSum(v, window)
	for _, r := range v {
		sum, n := win.at(r.Time)
		if mean := sum / float64(n); math.IsNaN(peak) || mean > peak {
			peak = mean
		}
	}
	return peak
}

// gridPeak reindexes v onto a grid of the given spacing starting at the
// minute of the first reading and interpolates linearly between grid points
// holding a reading. Interpolation never exceeds its end points, so the
// maximum is the largest reading that falls on the grid.
func gridPeak(v Series, spacing time.Duration) float64 {
	start := v.Start()
	peak := math.NaN()
	for _, r := range v {
		if r.Time.Sub(start)%spacing != 0 {
			continue
		}
		if math.IsNaN(peak) || r.Value > peak {
			peak = r.Value
		}
	}
	return peak
}

// FlowResult holds the statistics of one flow series.
type FlowResult struct {
	RunoffVolume   float64
	RunoffDuration float64
	PeakFlowRate   float64
}

// Flow computes the runoff statistics of s.
func Flow(s Series, unit TimeUnit) (FlowResult, error) {
	volume, err := RunoffVolume(s, unit)
	if err != nil {
		return FlowResult{}, err
	}
	if len(s.Valid()) == 0 {
		volume = math.NaN()
	}
	return FlowResult{
		RunoffVolume:   volume,
		RunoffDuration: RunoffDuration(s),
		PeakFlowRate:   PeakFlowRate(s, PeakFlowWindow),
	}, nil
}
