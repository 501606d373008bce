package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the decoded job payload handed to a handler
type Payload map[string]interface{}

// DecodePayload decodes the payload column. An empty column, JSON null and
// an empty JSON array all decode to an empty payload.
func DecodePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) {
		return Payload{}, nil
	}

	var payload Payload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, nil
}

// Decode copies the payload into a typed struct
func (p Payload) Decode(v interface{}) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
