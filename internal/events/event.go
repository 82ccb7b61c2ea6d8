// Package events receives CloudEvents from NATS and routes them to handlers
// registered by event source and type.
package events

import (
	"encoding/json"
	"time"
)

// Well-known event sources and types.
const (
	SourceWeb          = "WEB"
	TypeStudioOpened   = "STUDIO_OPENED"
	defaultSpecVersion = "1.0"
)

// CloudEvent is the JSON envelope carried on the event subjects.
type CloudEvent struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Type        string            `json:"type"`
	SpecVersion string            `json:"specversion"`
	Time        *time.Time        `json:"time,omitempty"`
	Data        json.RawMessage   `json:"data,omitempty"`
	ClientID    string            `json:"clientId,omitempty"`
	SessionID   string            `json:"sessionId,omitempty"`
	ArchiveID   string            `json:"archiveId,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Decode parses a CloudEvent and checks the fields routing depends on. A
// missing specversion defaults to 1.0.
func Decode(raw []byte) (CloudEvent, error) {
	var ev CloudEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return CloudEvent{}, err
	}
	if ev.Source == "" || ev.Type == "" {
		return CloudEvent{}, errMissingRoute
	}
	if ev.SpecVersion == "" {
		ev.SpecVersion = defaultSpecVersion
	}
	return ev, nil
}
