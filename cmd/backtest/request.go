package main

import (
	"bytes"
	"fmt"

	"github.com/aristath/etfbacktest/internal/modules/backtest"
	"github.com/aristath/etfbacktest/internal/modules/optimization"
	"gopkg.in/yaml.v3"
)

// Request files use the JSON field names of the HTTP API.
func decodeBacktest(data []byte) (backtest.Payload, error) {
	var p backtest.Payload
	if err := decodeStrict(data, &p); err != nil {
		return backtest.Payload{}, err
	}
	return p, nil
}

func decodeFrontier(data []byte) (optimization.Payload, error) {
	var p optimization.Payload
	if err := decodeStrict(data, &p); err != nil {
		return optimization.Payload{}, err
	}
	return p, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	return nil
}
