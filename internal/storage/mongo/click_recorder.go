package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type eventDoc struct {
	ID         string    `bson:"_id"`
	EventType  string    `bson:"eventType"`
	LinkID     string    `bson:"linkId,omitempty"`
	ProfileID  string    `bson:"profileId,omitempty"`
	QRCodeID   string    `bson:"qrCodeId,omitempty"`
	OwnerID    string    `bson:"ownerId,omitempty"`
	VisitorID  string    `bson:"visitorId,omitempty"`
	UserAgent  string    `bson:"userAgent,omitempty"`
	Referrer   string    `bson:"referrer,omitempty"`
	IPAddress  string    `bson:"ipAddress,omitempty"`
	DeviceType string    `bson:"deviceType,omitempty"`
	Browser    string    `bson:"browser,omitempty"`
	OS         string    `bson:"os,omitempty"`
	LinkTitle  string    `bson:"linkTitle,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// ClickRecorder inserts the event and bumps links.clickCount inside one
// multi-document transaction. Transactions need a replica set.
type ClickRecorder struct {
	client      *mongo.Client
	events      *mongo.Collection
	links       *mongo.Collection
	deriveCount bool
}

func NewClickRecorder(m *db.Mongo, deriveCount bool) *ClickRecorder {
	return &ClickRecorder{
		client:      m.Client,
		events:      m.Collection(eventsCollection),
		links:       m.Collection(linksCollection),
		deriveCount: deriveCount,
	}
}

func (r *ClickRecorder) Record(ctx context.Context, ev analytics.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	doc := toEventDoc(ev)

	if r.deriveCount || doc.LinkID == "" {
		_, err := r.events.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.events.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		_, err := r.links.UpdateOne(sc, bson.M{"_id": doc.LinkID}, bson.M{"$inc": bson.M{"clickCount": 1}})
		return nil, err
	})
	if mongo.IsDuplicateKeyError(err) {
		// Already applied by an earlier delivery.
		return nil
	}
	return err
}

func toEventDoc(ev analytics.Event) eventDoc {
	linkID, profileID, qrCodeID := ev.Columns()
	return eventDoc{
		ID:         ev.ID,
		EventType:  string(ev.Type()),
		LinkID:     linkID,
		ProfileID:  profileID,
		QRCodeID:   qrCodeID,
		OwnerID:    ev.OwnerID,
		VisitorID:  ev.VisitorID,
		UserAgent:  ev.UserAgent,
		Referrer:   ev.Referrer,
		IPAddress:  ev.IPAddress,
		DeviceType: ev.Device.Type,
		Browser:    ev.Device.Browser,
		OS:         ev.Device.OS,
		LinkTitle:  ev.LinkTitle,
		CreatedAt:  ev.CreatedAt.UTC(),
	}
}
