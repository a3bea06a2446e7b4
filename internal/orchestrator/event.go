package orchestrator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event names the next stage to run and carries only stable identifiers.
type Event struct {
	ID        string
	Name      string
	Data      json.RawMessage
	CreatedAt time.Time
}

// NewEvent builds an event with a random id.
func NewEvent(name string, payload any) (Event, error) {
	return newEvent(uuid.NewString(), name, payload)
}

func newEvent(id, name string, payload any) (Event, error) {
	if name == "" {
		return Event{}, fmt.Errorf("event name required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{ID: id, Name: name, Data: data, CreatedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return Permanent(fmt.Errorf("decode %s payload: %w", e.Name, err))
	}
	return nil
}
