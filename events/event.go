// Package events fans sandbox lifecycle transitions out to external
// listeners over a ZeroMQ PUB socket.
package events

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Topic event topic, sent as the first ZMQ frame
type Topic string

const (
	TopicAppCreated    Topic = "app.created"
	TopicAppEdited     Topic = "app.edited"
	TopicAppTerminated Topic = "app.terminated"
	TopicAppRemoved    Topic = "app.removed"
)

// Event one lifecycle event
type Event struct {
	ID     string    `json:"id"` // ULID, sortable by time
	Topic  Topic     `json:"topic"`
	AppID  string    `json:"app_id"`
	Status string    `json:"status,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}

// NewEvent stamps a new event with a ULID. The entropy source is shared by the
// process, so ids are strictly increasing even within one millisecond.
func NewEvent(topic Topic, appID, status string) Event {
	now := time.Now().UTC()
	return Event{
		ID:     ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Topic:  topic,
		AppID:  appID,
		Status: status,
		Time:   now,
	}
}

// WithReason sets Reason
func (e Event) WithReason(reason string) Event {
	e.Reason = reason
	return e
}

// Encode event payload frame
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a payload frame
func Decode(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher sends lifecycle events; Publish never blocks the caller
type Publisher interface {
	Publish(e Event)
	Close() error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

func (NopPublisher) Close() error { return nil }
