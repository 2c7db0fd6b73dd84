// Package hydro computes rain event and runoff statistics from stormwater
// monitoring time series.
//
// Series are sampled on a one second grid running from the minute before
// the first reading to the minute after the last one. Missing samples and
// null readings are NaN and are ignored by every statistic.
package hydro

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidData is wrapped by every payload and series error.
var ErrInvalidData = errors.New("invalid data format")

// TimeLayout is the format of timestamps in statistics.
const TimeLayout = "2006-01-02T15:04:05"

var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
}

// ParseTime parses a reading timestamp. Timestamps without a zone are UTC.
// Fractions of a second are dropped.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidData, s)
}

// Reading is one sample of a series. Value is NaN for a null reading.
type Reading struct {
	Time  time.Time
	Value float64
}

// Series is a time-ordered list of readings with distinct timestamps.
type Series []Reading

// NewSeries builds a series from parallel timestamp and value columns.
// A nil value is a null reading.
func NewSeries(datetimes []string, values []*float64) (Series, error) {
	if len(datetimes) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps for %d values", ErrInvalidData, len(datetimes), len(values))
	}
	if len(datetimes) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrInvalidData)
	}
	s := make(Series, len(datetimes))
	for i, raw := range datetimes {
		t, err := ParseTime(raw)
		if err != nil {
			return nil, err
		}
		v := math.NaN()
		if values[i] != nil {
			v = *values[i]
		}
		s[i] = Reading{Time: t, Value: v}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
	for i := 1; i < len(s); i++ {
		if s[i].Time.Equal(s[i-1].Time) {
			return nil, fmt.Errorf("%w: duplicate timestamp %s", ErrInvalidData, s[i].Time.Format(TimeLayout))
		}
	}
	return s, nil
}

// Valid returns the readings that are not NaN.
func (s Series) Valid() Series {
	out := make(Series, 0, len(s))
	for _, r := range s {
		if !math.IsNaN(r.Value) {
			out = append(out, r)
		}
	}
	return out
}

// Between returns the readings in [from, to].
func (s Series) Between(from, to time.Time) Series {
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Time.After(to) })
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}

// Start is the first instant of the sampling grid.
func (s Series) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Time.Truncate(time.Minute)
}

// End is the last instant of the sampling grid.
func (s Series) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	last := s[len(s)-1].Time
	if floor := last.Truncate(time.Minute); !floor.Equal(last) {
		return floor.Add(time.Minute)
	}
	return last
}

// rollingSum sums the valid readings of a series in (t-w, t] for
// non-decreasing t, adding and dropping readings as the window advances.
type rollingSum struct {
	s      Series
	w      time.Duration
	lo, hi int
	sum    float64
	n      int
}

func newRollingSum(s Series, w time.Duration) *rollingSum {
	return &rollingSum{s: s, w: w}
}

// at moves the window to end at t. It reports the sum and the number of
// valid readings inside it.
func (r *rollingSum) at(t time.Time) (float64, int) {
	for r.hi < len(r.s) && !r.s[r.hi].Time.After(t) {
		if v := r.s[r.hi].Value; !math.IsNaN(v) {
			r.sum += v
			r.n++
		}
		r.hi++
	}
	lower := t.Add(-r.w)
	for r.lo < r.hi && !r.s[r.lo].Time.After(lower) {
		if v := r.s[r.lo].Value; !math.IsNaN(v) {
			r.sum -= v
			r.n--
		}
		r.lo++
	}
	if r.n == 0 {
		r.sum = 0
	}
	return r.sum, r.n
}

func hours(d time.Duration) float64 {
	return d.Seconds() / 3600
}

// snap clears floating point residue left by rolling sums.
func snap(v float64) float64 {
	if v < 1e-9 {
		return 0
	}
	return v
}
