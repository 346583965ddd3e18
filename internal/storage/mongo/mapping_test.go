package mongo

import (
	"testing"
	"time"

	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestLinkDocRoundTrip(t *testing.T) {
	expires := time.Date(2025, 6, 1, 0, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	in := &links.Link{
		ID:                  "3f0c8c1e-1111-4a5b-9c1d-000000000001",
		Slug:                "promo",
		OriginalURL:         "https://example.com",
		OwnerID:             "owner-1",
		ExpiresAt:           &expires,
		IsPasswordProtected: true,
		PasswordHash:        "$2a$10$hash",
		TrackAnalytics:      true,
		IsActive:            true,
		ClickCount:          7,
		CreatedAt:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:           time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	raw, err := bson.Marshal(toLinkDoc(in))
	assert.NoError(t, err)

	var doc linkDoc
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	out := mapLinkDoc(doc)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, []string{}, out.Tags)
	assert.True(t, out.ExpiresAt.Equal(expires))
	assert.Equal(t, time.UTC, out.ExpiresAt.Location())
	assert.EqualValues(t, 7, out.ClickCount)
}

func TestEventDocCarriesOneSubject(t *testing.T) {
	doc := toEventDoc(analytics.Event{
		ID:        "evt-1",
		Subject:   analytics.ProfileView{ProfileID: "profile-1"},
		Device:    analytics.Device{Type: "desktop"},
		CreatedAt: time.Now(),
	})

	assert.Equal(t, "profile_view", doc.EventType)
	assert.Equal(t, "profile-1", doc.ProfileID)
	assert.Empty(t, doc.LinkID)
	assert.Empty(t, doc.QRCodeID)
	assert.Equal(t, "desktop", doc.DeviceType)
}

func TestClickFilterIsHalfOpen(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	f := clickFilter("link-1", from, to)

	assert.Equal(t, bson.M{"$gte": from, "$lt": to}, f["createdAt"])
	assert.Equal(t, "short_link_click", f["eventType"])
}
