package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType names what happened to a daily record.
type EventType string

const (
	EventUpserted EventType = "record.upserted"
	EventDeleted  EventType = "record.deleted"
	EventRenamed  EventType = "record.renamed"
)

// RecordEvent is published after a daily record changes. It carries only
// keys; consumers read the current record from the database.
type RecordEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Date         string    `json:"date"`
	PreviousDate string    `json:"previousDate,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewRecordEvent stamps a new event with a ULID and the current time.
func NewRecordEvent(typ EventType, date, previousDate string) RecordEvent {
	return RecordEvent{
		ID:           ulid.Make().String(),
		Type:         typ,
		Date:         date,
		PreviousDate: previousDate,
		Timestamp:    time.Now().UTC(),
	}
}

func (e RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes and sanity checks an event body.
func RecordEventFromJSON(data []byte) (RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return e, err
	}
	switch e.Type {
	case EventUpserted, EventDeleted:
	case EventRenamed:
		if e.PreviousDate == "" {
			return e, fmt.Errorf("rename event %s without previous date", e.ID)
		}
	default:
		return e, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Date == "" {
		return e, fmt.Errorf("event %s without date", e.ID)
	}
	return e, nil
}
