package hydro

import (
	"math"
	"strconv"
	"time"
)

// DefaultDrainInterval is the dry spell that separates two rain events, the
// time a BMP needs to drain.
const DefaultDrainInterval = 12 * time.Hour

// Event is one rain event.
type Event struct {
	First time.Time
	Last  time.Time
	// Dry is the time since the previous event ended. It is negative for the
	// first event of a series.
	Dry time.Duration
}

// Duration is the time between the first and the last tip.
func (e Event) Duration() time.Duration { return e.Last.Sub(e.First) }

// SingleTip reports whether the event is a single gauge tip.
func (e Event) SingleTip() bool { return e.First.Equal(e.Last) }

// DetectEvents splits the rain tips of s into events. Tips no more than
// drain apart belong to the same event.
func DetectEvents(s Series, drain time.Duration) []Event {
	var events []Event
	for _, r := range s {
		if math.IsNaN(r.Value) || r.Value == 0 {
			continue
		}
		n := len(events)
		if n > 0 && r.Time.Sub(events[n-1].Last) <= drain {
			events[n-1].Last = r.Time
			continue
		}
		e := Event{First: r.Time, Last: r.Time, Dry: -1}
		if n > 0 {
			e.Dry = r.Time.Sub(events[n-1].Last)
		}
		events = append(events, e)
	}
	return events
}

// TotalRainfall is the rain depth recorded over the event.
func TotalRainfall(s Series, e Event) float64 {
	var total float64
	for _, r := range s.Between(e.First, e.Last) {
		if !math.IsNaN(r.Value) {
			total += r.Value
		}
	}
	return total
}

// AvgIntensity is the depth per hour over the event, NaN for an event with
// no duration.
func AvgIntensity(total float64, d time.Duration) float64 {
	if d <= 0 {
		return math.NaN()
	}
	return total / hours(d)
}

// PeakIntensity is the highest rain depth over any window of the given
// length inside the event, scaled to depth per hour. Windows ending before
// First+window are skipped unless the event is shorter than the window.
func PeakIntensity(s Series, e Event, window time.Duration) float64 {
	seg := s.Between(e.First, e.Last)
	start := e.First
	if e.Duration() >= window {
		start = e.First.Add(window)
	}

	peak := math.NaN()
	win := newRollingSum(seg, window)
	consider := func(t time.Time) {
		if sum, n := win.at(t); n > 0 {
			if v := snap(sum); math.IsNaN(peak) || v > peak {
				peak = v
			}
		}
	}
	// The rolling sum only rises at a reading, so the maximum is taken at
	// the start of the range or at one of its readings.
	consider(start)
	for _, r := range seg {
		if r.Time.After(start) {
			consider(r.Time)
		}
	}
	return peak * float64(time.Hour) / float64(window)
}

// RainOptions controls RainStatistics.
type RainOptions struct {
	Drain time.Duration
	// PeakWindows are the windows peak intensities are reported for.
	PeakWindows []time.Duration
	// DryPeriod adds antecedent_dry_period to the table.
	DryPeriod bool
}

// RainStatistics returns the events of s that span more than one tip along
// with their statistics. Single tip events are dropped after the dry
// periods are measured.
func RainStatistics(s Series, opts RainOptions) ([]Event, Table) {
	if opts.Drain <= 0 {
		opts.Drain = DefaultDrainInterval
	}
	all := DetectEvents(s, opts.Drain)
	var events []Event
	for _, e := range all {
		if !e.SingleTip() {
			events = append(events, e)
		}
	}

	t := Table{}
	t.init("first_rain", "last_rain", "total_rainfall", "avg_rainfall_intensity")
	for _, w := range opts.PeakWindows {
		t.init(peakKey(w))
	}
	if opts.DryPeriod {
		t.init("antecedent_dry_period")
	}

	for _, e := range events {
		total := TotalRainfall(s, e)
		t.add("first_rain", timeValue(e.First))
		t.add("last_rain", timeValue(e.Last))
		t.add("total_rainfall", number(total))
		t.add("avg_rainfall_intensity", number(AvgIntensity(total, e.Duration())))
		for _, w := range opts.PeakWindows {
			t.add(peakKey(w), number(PeakIntensity(s, e, w)))
		}
		if opts.DryPeriod {
			dry := math.NaN()
			if e.Dry >= 0 {
				dry = hours(e.Dry)
			}
			t.add("antecedent_dry_period", number(dry))
		}
	}
	return events, t
}

func peakKey(w time.Duration) string {
	return "peak_" + strconv.Itoa(int(w/time.Minute)) + "_min_rainfall_intensity"
}
