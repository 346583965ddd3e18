package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubject(t *testing.T) {
	s, err := NewSubject(EventShortLinkClick, "link-1")
	require.NoError(t, err)
	assert.Equal(t, ShortLinkClick{LinkID: "link-1"}, s)

	s, err = NewSubject(EventQRScan, "qr-9")
	require.NoError(t, err)
	assert.Equal(t, EventQRScan, s.Type())
	assert.Equal(t, "qr-9", s.SubjectID())

	_, err = NewSubject("bio_link_click", "x")
	assert.True(t, errors.Is(err, ErrUnknownEventType))
}

func TestEventColumnsPopulateOnlyTheSubject(t *testing.T) {
	tests := []struct {
		subject Subject
		link    string
		profile string
		qr      string
	}{
		{ShortLinkClick{LinkID: "l"}, "l", "", ""},
		{ProfileView{ProfileID: "p"}, "", "p", ""},
		{QRScan{QRCodeID: "q"}, "", "", "q"},
	}

	for _, tt := range tests {
		t.Run(string(tt.subject.Type()), func(t *testing.T) {
			link, profile, qr := Event{Subject: tt.subject}.Columns()
			assert.Equal(t, tt.link, link)
			assert.Equal(t, tt.profile, profile)
			assert.Equal(t, tt.qr, qr)
		})
	}
}

func TestEventValidate(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	valid := Event{ID: "e1", Subject: ShortLinkClick{LinkID: "l1"}, CreatedAt: now}
	require.NoError(t, valid.Validate())
	assert.Equal(t, EventShortLinkClick, valid.Type())

	cases := map[string]Event{
		"missing id":         {Subject: ShortLinkClick{LinkID: "l1"}, CreatedAt: now},
		"missing subject":    {ID: "e1", CreatedAt: now},
		"empty subject id":   {ID: "e1", Subject: ProfileView{}, CreatedAt: now},
		"missing created at": {ID: "e1", Subject: ShortLinkClick{LinkID: "l1"}},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ev.Validate(), ErrInvalidEvent)
		})
	}
}
