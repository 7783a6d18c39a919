package domain

import (
	"encoding/json"
	"math"
)

// Metric is a statistic that may be undefined. NaN and ±Inf mean "undefined for this
// sample" and serialize as JSON null.
type Metric float64

// Undefined returns the undefined metric sentinel.
func Undefined() Metric {
	return Metric(math.NaN())
}

// Defined reports whether the metric holds a finite value.
func (m Metric) Defined() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float returns the raw value (NaN when undefined).
func (m Metric) Float() float64 {
	return float64(m)
}

// MarshalJSON implements json.Marshaler.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}
