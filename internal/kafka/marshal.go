package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-marketplace/internal/market"
)

func DecodeEnvelope(b []byte) (market.Envelope, error) {
	var env market.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// DecodePayload decodes the event-specific part of an envelope.
func DecodePayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
