package hydro

import (
	"fmt"
	"time"
)

// Kinds of analysis.
const (
	KindRain     = "rain"
	KindFlow     = "flow"
	KindRainFlow = "rainflow"
)

// Statistics is the statistics object of an analysis response.
type Statistics map[string]any

// Analyzer runs the rain, flow and combined analyses.
type Analyzer struct {
	// Drain separates rain events and extends the runoff window of each
	// event in the combined analysis.
	Drain time.Duration
}

// NewAnalyzer returns an Analyzer; a non-positive drain selects
// DefaultDrainInterval.
func NewAnalyzer(drain time.Duration) *Analyzer {
	if drain <= 0 {
		drain = DefaultDrainInterval
	}
	return &Analyzer{Drain: drain}
}

// Analyze dispatches on kind.
func (a *Analyzer) Analyze(kind string, p *Payload) (Statistics, error) {
	switch kind {
	case KindRain:
		t, err := a.Rain(p)
		if err != nil {
			return nil, err
		}
		out := make(Statistics, len(t))
		for k, v := range t {
			out[k] = v
		}
		return out, nil
	case KindFlow:
		return a.Flow(p)
	case KindRainFlow:
		return a.RainFlow(p)
	}
	return nil, fmt.Errorf("unknown analysis kind %q", kind)
}

// Rain computes per event rain statistics.
func (a *Analyzer) Rain(p *Payload) (Table, error) {
	if !p.HasRain() || len(p.Flows) > 0 {
		return nil, fmt.Errorf("%w: rain analysis takes a rain series only", ErrInvalidData)
	}
	_, t := RainStatistics(p.Rain, RainOptions{
		Drain:       a.Drain,
		PeakWindows: []time.Duration{5 * time.Minute, 10 * time.Minute, 60 * time.Minute},
		DryPeriod:   true,
	})
	return t, nil
}

// Flow computes runoff statistics over each whole flow series, plus the
// percent change between inflows and outflow.
func (a *Analyzer) Flow(p *Payload) (Statistics, error) {
	if p.HasRain() || len(p.Flows) == 0 {
		return nil, fmt.Errorf("%w: flow analysis takes flow series only", ErrInvalidData)
	}
	stats := Statistics{}
	tables := map[string]Table{}
	for _, dataType := range p.FlowTypes() {
		fs := p.Flows[dataType]
		res, err := Flow(fs.Series, fs.Unit)
		if err != nil {
			return nil, err
		}
		t := Table{}
		t.add("runoff_volume", number(res.RunoffVolume))
		t.add("runoff_duration", number(res.RunoffDuration))
		t.add("peak_flow_rate", number(res.PeakFlowRate))
		t.add("start_time", timeValue(fs.Series.Start()))
		t.add("end_time", timeValue(fs.Series.End()))
		tables[dataType] = t
		stats[dataType] = t
	}
	addPercentChange(stats, tables)
	return stats, nil
}

// RainFlow computes rain event statistics and, for each event, runoff
// statistics over the event extended by the drain interval.
func (a *Analyzer) RainFlow(p *Payload) (Statistics, error) {
	if !p.HasRain() {
		return nil, fmt.Errorf("%w: rainflow analysis needs a rain series", ErrInvalidData)
	}
	events, rain := RainStatistics(p.Rain, RainOptions{
		Drain:       a.Drain,
		PeakWindows: []time.Duration{5 * time.Minute, 10 * time.Minute},
	})
	stats := Statistics{Rain: rain}
	tables := map[string]Table{}
	for _, dataType := range p.FlowTypes() {
		fs := p.Flows[dataType]
		t := Table{}
		t.init("runoff_volume", "runoff_duration", "peak_flow_rate")
		for _, e := range events {
			window := fs.Series.Between(e.First, e.Last.Add(a.Drain))
			res, err := Flow(window, fs.Unit)
			if err != nil {
				return nil, err
			}
			t.add("runoff_volume", number(res.RunoffVolume))
			t.add("runoff_duration", number(res.RunoffDuration))
			t.add("peak_flow_rate", number(res.PeakFlowRate))
		}
		tables[dataType] = t
		stats[dataType] = t
	}
	addPercentChange(stats, tables)
	return stats, nil
}

// addPercentChange adds percent_change_volume, and for a plain
// inflow/outflow pair percent_change_flow_rate, for the supported sets of
// flow series.
func addPercentChange(stats Statistics, tables map[string]Table) {
	col := func(dataType, stat string) []float64 {
		return tables[dataType].Floats(stat)
	}
	switch {
	case hasExactly(tables, Inflow1, Outflow):
		stats["percent_change_volume"] = PercentChange(
			col(Inflow1, "runoff_volume"), col(Outflow, "runoff_volume"), nil, nil)
		stats["percent_change_flow_rate"] = PercentChange(
			col(Inflow1, "peak_flow_rate"), col(Outflow, "peak_flow_rate"), nil, nil)
	case hasExactly(tables, Inflow1, Outflow, Bypass):
		stats["percent_change_volume"] = PercentChange(
			col(Inflow1, "runoff_volume"), col(Outflow, "runoff_volume"), nil, col(Bypass, "runoff_volume"))
	case hasExactly(tables, Inflow1, Inflow2, Outflow, Bypass):
		stats["percent_change_volume"] = PercentChange(
			col(Inflow1, "runoff_volume"), col(Outflow, "runoff_volume"),
			col(Inflow2, "runoff_volume"), col(Bypass, "runoff_volume"))
	}
}

func hasExactly(tables map[string]Table, types ...string) bool {
	if len(tables) != len(types) {
		return false
	}
	for _, t := range types {
		if _, ok := tables[t]; !ok {
			return false
		}
	}
	return true
}
