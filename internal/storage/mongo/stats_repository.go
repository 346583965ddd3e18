package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/db"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	"github.com/IgorGrieder/linkhive/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventsCollection = "analytics_events"

// StatsRepository aggregates over the analytics_events collection.
type StatsRepository struct {
	coll *mongo.Collection
}

func NewStatsRepository(m *db.Mongo) (*StatsRepository, error) {
	repo := &StatsRepository{coll: m.Collection(eventsCollection)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "linkId", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("linkId_createdAt").SetSparse(true),
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func clickFilter(linkID string, from, to time.Time) bson.M {
	return bson.M{
		"eventType": string(analytics.EventShortLinkClick),
		"linkId":    linkID,
		"createdAt": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}
}

func (r *StatsRepository) GetDaily(ctx context.Context, linkID string, from, to time.Time) ([]links.DailyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: clickFilter(linkID, from, to)}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format":   "%Y-%m-%d",
				"date":     "$createdAt",
				"timezone": "UTC",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]links.DailyCount, 0)
	for cur.Next(ctx) {
		var row struct {
			Date  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, links.DailyCount{Date: row.Date, Count: row.Count})
	}
	return out, cur.Err()
}

func (r *StatsRepository) CountVisitors(ctx context.Context, linkID string, from, to time.Time) (int64, int64, error) {
	filter := clickFilter(linkID, from, to)

	clicks, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, 0, err
	}

	visitors, err := r.coll.Distinct(ctx, "visitorId", filter)
	if err != nil {
		return 0, 0, err
	}
	var unique int64
	for _, v := range visitors {
		if s, ok := v.(string); ok && s != "" {
			unique++
		}
	}
	return clicks, unique, nil
}

func (r *StatsRepository) CountClicks(ctx context.Context, linkIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(linkIDs))
	if len(linkIDs) == 0 {
		return out, nil
	}
	for _, id := range linkIDs {
		out[id] = 0
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"eventType": string(analytics.EventShortLinkClick),
			"linkId":    bson.M{"$in": linkIDs},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$linkId", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			LinkID string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.LinkID] = row.Count
	}
	return out, cur.Err()
}
