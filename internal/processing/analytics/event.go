// Package analytics models the append-only interaction log. An Event pairs
// exactly one Subject with the request context it was recorded under; the
// Subject's concrete type decides the event type, so a click can never carry
// a profile or QR code reference by mistake.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	EventShortLinkClick EventType = "short_link_click"
	EventProfileView    EventType = "profile_view"
	EventQRScan         EventType = "qr_scan"
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidEvent     = errors.New("invalid analytics event")
)

// Subject is the single entity an event is about.
type Subject interface {
	Type() EventType
	SubjectID() string
	subject()
}

type ShortLinkClick struct {
	LinkID string
}

func (s ShortLinkClick) Type() EventType   { return EventShortLinkClick }
func (s ShortLinkClick) SubjectID() string { return s.LinkID }
func (ShortLinkClick) subject()            {}

type ProfileView struct {
	ProfileID string
}

func (s ProfileView) Type() EventType   { return EventProfileView }
func (s ProfileView) SubjectID() string { return s.ProfileID }
func (ProfileView) subject()            {}

type QRScan struct {
	QRCodeID string
}

func (s QRScan) Type() EventType   { return EventQRScan }
func (s QRScan) SubjectID() string { return s.QRCodeID }
func (QRScan) subject()            {}

// NewSubject rebuilds a Subject from its stored (type, id) pair.
func NewSubject(t EventType, id string) (Subject, error) {
	switch t {
	case EventShortLinkClick:
		return ShortLinkClick{LinkID: id}, nil
	case EventProfileView:
		return ProfileView{ProfileID: id}, nil
	case EventQRScan:
		return QRScan{QRCodeID: id}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
}

type Device struct {
	Type    string
	Browser string
	OS      string
}

type Event struct {
	ID        string
	Subject   Subject
	OwnerID   string
	VisitorID string
	LinkTitle string
	UserAgent string
	Referrer  string
	IPAddress string
	Device    Device
	CreatedAt time.Time
}

func (e Event) Type() EventType {
	if e.Subject == nil {
		return ""
	}
	return e.Subject.Type()
}

// Validate checks the fields every store relies on.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.Subject == nil {
		return fmt.Errorf("%w: missing subject", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Subject.SubjectID()) == "" {
		return fmt.Errorf("%w: %s without subject id", ErrInvalidEvent, e.Subject.Type())
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing createdAt", ErrInvalidEvent)
	}
	return nil
}

// Columns spreads the subject over the three nullable reference columns used
// by the stores. Exactly one of the returned values is non-empty.
func (e Event) Columns() (linkID, profileID, qrCodeID string) {
	switch s := e.Subject.(type) {
	case ShortLinkClick:
		return s.LinkID, "", ""
	case ProfileView:
		return "", s.ProfileID, ""
	case QRScan:
		return "", "", s.QRCodeID
	}
	return "", "", ""
}

// Recorder durably records one event. Implementations that keep a click
// counter must apply the event and the counter bump atomically and must treat
// a repeated event ID as already applied.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
