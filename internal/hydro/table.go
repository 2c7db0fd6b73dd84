package hydro

import (
	"math"
	"time"
)

// Table maps each statistic to its value per event. Values are float64,
// timestamp strings, or nil where a statistic is undefined.
type Table map[string][]any

func (t Table) init(keys ...string) {
	for _, k := range keys {
		t[k] = []any{}
	}
}

func (t Table) add(key string, v any) {
	t[key] = append(t[key], v)
}

// Floats returns a numeric column with nil values as NaN.
func (t Table) Floats(key string) []float64 {
	col := t[key]
	out := make([]float64, len(col))
	for i, v := range col {
		f, ok := v.(float64)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// Len is the number of rows in the table.
func (t Table) Len() int {
	n := 0
	for _, col := range t {
		if len(col) > n {
			n = len(col)
		}
	}
	return n
}

// number maps NaN and infinities to nil so they encode as JSON null.
func number(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func timeValue(t time.Time) any {
	return t.Format(TimeLayout)
}

// PercentChange is the reduction from the combined inflows to the outflow,
// per row. Missing inflow2 or bypass columns are left out of the sum. Rows
// with no inflow are nil.
func PercentChange(inflow1, outflow, inflow2, bypass []float64) []any {
	n := min(len(inflow1), len(outflow))
	if inflow2 != nil {
		n = min(n, len(inflow2))
	}
	if bypass != nil {
		n = min(n, len(bypass))
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		in := inflow1[i]
		if inflow2 != nil {
			in += inflow2[i]
		}
		if bypass != nil {
			in += bypass[i]
		}
		if in == 0 {
			out[i] = nil
			continue
		}
		out[i] = number((in - outflow[i]) / in * 100)
	}
	return out
}
