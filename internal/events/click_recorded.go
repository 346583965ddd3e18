package events

import (
	"fmt"
	"time"

	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/goccy/go-json"
)

// ClickRecorded is emitted when the API accepts a tracked interaction. The
// consumer replays it into the store recorder, so every field of the
// analytics event travels on the wire.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	EventType  string `json:"eventType"`
	SubjectID  string `json:"subjectId"`
	OwnerID    string `json:"ownerId,omitempty"`
	VisitorID  string `json:"visitorId,omitempty"`
	LinkTitle  string `json:"linkTitle,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	Referrer   string `json:"referrer,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	DeviceType string `json:"deviceType,omitempty"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

func FromEvent(ev analytics.Event) ClickRecorded {
	msg := ClickRecorded{
		EventID:    ev.ID,
		EventType:  string(ev.Type()),
		OwnerID:    ev.OwnerID,
		VisitorID:  ev.VisitorID,
		LinkTitle:  ev.LinkTitle,
		UserAgent:  ev.UserAgent,
		Referrer:   ev.Referrer,
		IPAddress:  ev.IPAddress,
		DeviceType: ev.Device.Type,
		Browser:    ev.Device.Browser,
		OS:         ev.Device.OS,
		OccurredAt: ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if ev.Subject != nil {
		msg.SubjectID = ev.Subject.SubjectID()
	}
	return msg
}

// ToEvent rebuilds and validates the analytics event.
func (m ClickRecorded) ToEvent() (analytics.Event, error) {
	subject, err := analytics.NewSubject(analytics.EventType(m.EventType), m.SubjectID)
	if err != nil {
		return analytics.Event{}, err
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, m.OccurredAt)
	if err != nil {
		return analytics.Event{}, fmt.Errorf("%w: occurredAt: %v", analytics.ErrInvalidEvent, err)
	}
	ev := analytics.Event{
		ID:        m.EventID,
		Subject:   subject,
		OwnerID:   m.OwnerID,
		VisitorID: m.VisitorID,
		LinkTitle: m.LinkTitle,
		UserAgent: m.UserAgent,
		Referrer:  m.Referrer,
		IPAddress: m.IPAddress,
		Device: analytics.Device{
			Type:    m.DeviceType,
			Browser: m.Browser,
			OS:      m.OS,
		},
		CreatedAt: occurredAt.UTC(),
	}
	if err := ev.Validate(); err != nil {
		return analytics.Event{}, err
	}
	return ev, nil
}

func Encode(ev analytics.Event) ([]byte, error) {
	return json.Marshal(FromEvent(ev))
}

func Decode(payload []byte) (analytics.Event, error) {
	var msg ClickRecorded
	if err := json.Unmarshal(payload, &msg); err != nil {
		return analytics.Event{}, fmt.Errorf("decode click event: %w", err)
	}
	return msg.ToEvent()
}
