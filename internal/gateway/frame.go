package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame is one message on the live stream. The wire encoding is fixed by
// existing consumers and must not change:
//
//	id: <n>
//	event: <type>
//	data: <json>
//	<blank line>
//
// The data line carries the timestamp and, when present, the event payload.
type Frame struct {
	ID        uint64    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type frameData struct {
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Encode renders the frame in its wire format.
func (f Frame) Encode() ([]byte, error) {
	data, err := json.Marshal(frameData{Timestamp: f.Timestamp, Payload: f.Payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame data: %w", err)
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", f.ID, f.Type, data), nil
}
