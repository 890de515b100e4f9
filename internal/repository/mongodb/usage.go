package mongodb

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type usageStore struct {
	coll      *mongo.Collection
	snapshots *mongo.Collection
}

// Increment upserts with $inc. Two first writers for the same (area, date)
// can race on the unique index; the loser retries once and lands on the
// update path.
func (s *usageStore) Increment(ctx context.Context, area, date string) error {
	filter := bson.M{"area": area, "date": date}
	update := bson.M{"$inc": bson.M{"quantity": 1}}
	opts := options.Update().SetUpsert(true)

	_, err := s.coll.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = s.coll.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to increment usage for %s on %s: %w", area, date, err)
	}
	return nil
}

func (s *usageStore) ListAreas(ctx context.Context) ([]string, error) {
	values, err := s.coll.Distinct(ctx, "area", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	areas := make([]string, 0, len(values))
	for _, v := range values {
		if area, ok := v.(string); ok {
			areas = append(areas, area)
		}
	}
	sort.Strings(areas)
	return areas, nil
}

func (s *usageStore) ListByArea(ctx context.Context, area string) ([]models.AreaUsageRecord, error) {
	return findAll[models.AreaUsageRecord](ctx, s.coll, bson.M{"area": area},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
}

func (s *usageStore) ListAll(ctx context.Context) ([]models.AreaUsageRecord, error) {
	return findAll[models.AreaUsageRecord](ctx, s.coll, bson.M{},
		options.Find().SetSort(bson.D{{Key: "area", Value: 1}, {Key: "date", Value: 1}}))
}

func (s *usageStore) TotalsByArea(ctx context.Context) ([]models.AreaTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$area"},
			{Key: "quantity", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "quantity", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	return aggregate[models.AreaTotal](ctx, s.coll, pipeline)
}

func (s *usageStore) SaveSnapshot(ctx context.Context, snapshot models.AreaUsageSnapshot) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.snapshots.ReplaceOne(ctx, bson.M{"area": snapshot.Area}, snapshot, opts); err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", snapshot.Area, err)
	}
	return nil
}

func (s *usageStore) ListSnapshots(ctx context.Context) ([]models.AreaUsageSnapshot, error) {
	return findAll[models.AreaUsageSnapshot](ctx, s.snapshots, bson.M{},
		options.Find().SetSort(bson.D{{Key: "area", Value: 1}}))
}
