package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const linksCollection = "links"

type LinksRepository struct {
	coll *mongo.Collection
}

type linkDoc struct {
	ID                  string     `bson:"_id"`
	Slug                string     `bson:"slug"`
	OriginalURL         string     `bson:"originalUrl"`
	OwnerID             string     `bson:"ownerId"`
	Title               string     `bson:"title,omitempty"`
	Description         string     `bson:"description,omitempty"`
	Tags                []string   `bson:"tags"`
	ExpiresAt           *time.Time `bson:"expiresAt,omitempty"`
	IsPasswordProtected bool       `bson:"isPasswordProtected"`
	PasswordHash        string     `bson:"passwordHash,omitempty"`
	TrackAnalytics      bool       `bson:"trackAnalytics"`
	IsActive            bool       `bson:"isActive"`
	ClickCount          int64      `bson:"clickCount"`
	CreatedAt           time.Time  `bson:"createdAt"`
	UpdatedAt           time.Time  `bson:"updatedAt"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection(linksCollection)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_slug"),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("owner_createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	if link == nil {
		return errors.New("link is nil")
	}

	_, err := r.coll.InsertOne(ctx, toLinkDoc(link))
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return links.ErrSlugTaken
	}
	return err
}

func (r *LinksRepository) FindActiveBySlug(ctx context.Context, slug string) (*links.Link, error) {
	return r.findOne(ctx, bson.M{"slug": slug, "isActive": true})
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*links.Link, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *LinksRepository) ListByOwner(ctx context.Context, ownerID string) ([]*links.Link, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*links.Link, 0)
	for cur.Next(ctx) {
		var doc linkDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, mapLinkDoc(doc))
	}
	return out, cur.Err()
}

func (r *LinksRepository) Update(ctx context.Context, link *links.Link) error {
	set := bson.M{
		"slug":                link.Slug,
		"originalUrl":         link.OriginalURL,
		"title":               link.Title,
		"description":         link.Description,
		"tags":                tagsOrEmpty(link.Tags),
		"isPasswordProtected": link.IsPasswordProtected,
		"passwordHash":        link.PasswordHash,
		"trackAnalytics":      link.TrackAnalytics,
		"isActive":            link.IsActive,
		"updatedAt":           link.UpdatedAt.UTC(),
	}
	update := bson.M{"$set": set}
	if link.ExpiresAt != nil {
		set["expiresAt"] = link.ExpiresAt.UTC()
	} else {
		update["$unset"] = bson.M{"expiresAt": ""}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": link.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return links.ErrSlugTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *LinksRepository) findOne(ctx context.Context, filter bson.M) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}
	return nil, err
}

func toLinkDoc(link *links.Link) linkDoc {
	doc := linkDoc{
		ID:                  link.ID,
		Slug:                link.Slug,
		OriginalURL:         link.OriginalURL,
		OwnerID:             link.OwnerID,
		Title:               link.Title,
		Description:         link.Description,
		Tags:                tagsOrEmpty(link.Tags),
		IsPasswordProtected: link.IsPasswordProtected,
		PasswordHash:        link.PasswordHash,
		TrackAnalytics:      link.TrackAnalytics,
		IsActive:            link.IsActive,
		ClickCount:          link.ClickCount,
		CreatedAt:           link.CreatedAt.UTC(),
		UpdatedAt:           link.UpdatedAt.UTC(),
	}
	if link.ExpiresAt != nil {
		t := link.ExpiresAt.UTC()
		doc.ExpiresAt = &t
	}
	return doc
}

func mapLinkDoc(doc linkDoc) *links.Link {
	out := &links.Link{
		ID:                  doc.ID,
		Slug:                doc.Slug,
		OriginalURL:         doc.OriginalURL,
		OwnerID:             doc.OwnerID,
		Title:               doc.Title,
		Description:         doc.Description,
		Tags:                doc.Tags,
		IsPasswordProtected: doc.IsPasswordProtected,
		PasswordHash:        doc.PasswordHash,
		TrackAnalytics:      doc.TrackAnalytics,
		IsActive:            doc.IsActive,
		ClickCount:          doc.ClickCount,
		CreatedAt:           doc.CreatedAt.UTC(),
		UpdatedAt:           doc.UpdatedAt.UTC(),
	}
	if doc.ExpiresAt != nil {
		t := doc.ExpiresAt.UTC()
		out.ExpiresAt = &t
	}
	return out
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
