package events

import (
	"encoding/json"
	"time"
)

type Event struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data,omitempty"`
}

func makeEvent(typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	b, _ := json.Marshal(Event{Type: typ, At: time.Now().UTC(), Data: raw})
	return string(b)
}

// LoadCreated is published when a fresh load has been delivered and
// recorded.
func LoadCreated(key string) string {
	return makeEvent("load_created", map[string]string{"key": key})
}
