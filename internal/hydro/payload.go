package hydro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Data types accepted in a payload.
const (
	Rain    = "rain"
	Inflow1 = "inflow1"
	Inflow2 = "inflow2"
	Outflow = "outflow"
	Bypass  = "bypass"
)

// validKeys lists the exact column set of each data type.
var validKeys = map[string][]string{
	Rain:    {"datetime", "rain"},
	Inflow1: {"datetime", "flow", "time_unit"},
	Inflow2: {"datetime", "flow", "time_unit"},
	Outflow: {"datetime", "flow", "time_unit"},
	Bypass:  {"datetime", "flow", "time_unit"},
}

var validate = validator.New()

type rainColumns struct {
	Datetime []string   `json:"datetime" validate:"required,min=1,dive,required"`
	Rain     []*float64 `json:"rain" validate:"required,min=1"`
}

type flowColumns struct {
	Datetime []string        `json:"datetime" validate:"required,min=1,dive,required"`
	Flow     []*float64      `json:"flow" validate:"required,min=1"`
	RawUnit  json.RawMessage `json:"time_unit"`
	TimeUnit string          `json:"-" validate:"oneof=s sec m min"`
}

// FlowSeries is a flow series and the time base of its rates.
type FlowSeries struct {
	Series Series
	Unit   TimeUnit
}

// Payload is a decoded statistics request.
type Payload struct {
	Rain  Series
	Flows map[string]FlowSeries
}

// HasRain reports whether the payload carries a rain series.
func (p *Payload) HasRain() bool { return p.Rain != nil }

// FlowTypes returns the flow data types present, sorted.
func (p *Payload) FlowTypes() []string {
	types := make([]string, 0, len(p.Flows))
	for k := range p.Flows {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// DecodePayload decodes a JSON object keyed by data type. Every data type
// must carry exactly its columns.
func DecodePayload(data []byte) (*Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidData)
	}

	p := &Payload{Flows: map[string]FlowSeries{}}
	for dataType, body := range raw {
		keys, ok := validKeys[dataType]
		if !ok {
			return nil, fmt.Errorf("%w: invalid data type %q", ErrInvalidData, dataType)
		}
		if err := checkColumns(dataType, body, keys); err != nil {
			return nil, err
		}
		if dataType == Rain {
			s, err := decodeRain(body)
			if err != nil {
				return nil, err
			}
			p.Rain = s
			continue
		}
		fs, err := decodeFlow(dataType, body)
		if err != nil {
			return nil, err
		}
		p.Flows[dataType] = fs
	}
	return p, nil
}

func checkColumns(dataType string, body json.RawMessage, want []string) error {
	var cols map[string]json.RawMessage
	if err := json.Unmarshal(body, &cols); err != nil || cols == nil {
		return fmt.Errorf("%w: data type %s is not an object", ErrInvalidData, dataType)
	}
	if len(cols) != len(want) {
		return fmt.Errorf("%w: data type %s has invalid keys", ErrInvalidData, dataType)
	}
	for _, k := range want {
		if _, ok := cols[k]; !ok {
			return fmt.Errorf("%w: data type %s has invalid keys", ErrInvalidData, dataType)
		}
	}
	return nil
}

func decodeRain(body json.RawMessage) (Series, error) {
	var cols rainColumns
	if err := strictUnmarshal(body, &cols); err != nil {
		return nil, fmt.Errorf("%w: rain: %v", ErrInvalidData, err)
	}
	if err := validate.Struct(cols); err != nil {
		return nil, fmt.Errorf("%w: rain: %v", ErrInvalidData, err)
	}
	return NewSeries(cols.Datetime, cols.Rain)
}

func decodeFlow(dataType string, body json.RawMessage) (FlowSeries, error) {
	var cols flowColumns
	if err := strictUnmarshal(body, &cols); err != nil {
		return FlowSeries{}, fmt.Errorf("%w: %s: %v", ErrInvalidData, dataType, err)
	}
	unit, err := decodeTimeUnit(cols.RawUnit)
	if err != nil {
		return FlowSeries{}, fmt.Errorf("%w: %s: %v", ErrInvalidData, dataType, err)
	}
	cols.TimeUnit = unit
	if err := validate.Struct(cols); err != nil {
		return FlowSeries{}, fmt.Errorf("%w: %s: %v", ErrInvalidData, dataType, err)
	}
	s, err := NewSeries(cols.Datetime, cols.Flow)
	if err != nil {
		return FlowSeries{}, err
	}
	return FlowSeries{Series: s, Unit: TimeUnit(unit)}, nil
}

// decodeTimeUnit accepts a single unit or a column of units and returns the
// first one.
func decodeTimeUnit(raw json.RawMessage) (string, error) {
	var unit string
	if err := json.Unmarshal(raw, &unit); err == nil {
		return strings.TrimSpace(unit), nil
	}
	var units []string
	if err := json.Unmarshal(raw, &units); err != nil {
		return "", fmt.Errorf("time_unit must be a string or a list of strings")
	}
	if len(units) == 0 {
		return "", fmt.Errorf("time_unit is empty")
	}
	return strings.TrimSpace(units[0]), nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
