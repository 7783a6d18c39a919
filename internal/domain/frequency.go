package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RebalanceFrequency is the closed set of rebalancing policies.
type RebalanceFrequency int

const (
	// RebalanceNone is pure buy-and-hold.
	RebalanceNone RebalanceFrequency = iota
	RebalanceMonthly
	RebalanceQuarterly
	RebalanceYearly
)

var frequencyNames = [...]string{
	RebalanceNone:      "none",
	RebalanceMonthly:   "monthly",
	RebalanceQuarterly: "quarterly",
	RebalanceYearly:    "yearly",
}

// ParseRebalanceFrequency parses one of none, monthly, quarterly, yearly
// (case-insensitive). An empty string means none.
func ParseRebalanceFrequency(s string) (RebalanceFrequency, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return RebalanceNone, nil
	}
	for f, n := range frequencyNames {
		if n == name {
			return RebalanceFrequency(f), nil
		}
	}
	return RebalanceNone, &InvalidConfigError{
		Field:  "rebalance_frequency",
		Reason: fmt.Sprintf("unknown frequency %q (want none, monthly, quarterly or yearly)", s),
	}
}

func (f RebalanceFrequency) String() string {
	if f < 0 || int(f) >= len(frequencyNames) {
		return fmt.Sprintf("RebalanceFrequency(%d)", int(f))
	}
	return frequencyNames[f]
}

// Valid reports whether f is one of the four known policies.
func (f RebalanceFrequency) Valid() bool {
	return f >= RebalanceNone && f <= RebalanceYearly
}

// Period returns the index of the rebalance period containing t. Two dates share a
// period exactly when no month/quarter/year boundary separates them.
func (f RebalanceFrequency) Period(t time.Time) int {
	switch f {
	case RebalanceMonthly:
		return t.Year()*12 + int(t.Month()) - 1
	case RebalanceQuarterly:
		return t.Year()*4 + (int(t.Month())-1)/3
	case RebalanceYearly:
		return t.Year()
	default:
		return 0
	}
}

// MarshalJSON implements json.Marshaler.
func (f RebalanceFrequency) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *RebalanceFrequency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &InvalidConfigError{Field: "rebalance_frequency", Reason: "must be a string"}
	}
	parsed, err := ParseRebalanceFrequency(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by YAML request files).
func (f *RebalanceFrequency) UnmarshalText(text []byte) error {
	parsed, err := ParseRebalanceFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
