package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type prescriptionStore struct {
	coll *mongo.Collection
}

func (s *prescriptionStore) Create(ctx context.Context, p *models.Prescription) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt, p.UpdatedAt = now, now

	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) && p.RequestID != nil {
			return fmt.Errorf("request %s: %w", p.RequestID.Hex(), models.ErrConflict)
		}
		return fmt.Errorf("failed to insert prescription: %w", err)
	}
	return nil
}

func (s *prescriptionStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	return findOne[models.Prescription](ctx, s.coll, bson.M{"_id": id})
}

func (s *prescriptionStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Prescription, error) {
	if len(ids) == 0 {
		return []models.Prescription{}, nil
	}
	return findAll[models.Prescription](ctx, s.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *prescriptionStore) ListRecentByVet(ctx context.Context, vetID primitive.ObjectID, limit int64) ([]models.Prescription, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	return findAll[models.Prescription](ctx, s.coll, bson.M{"vetId": vetID}, opts)
}

func (s *prescriptionStore) ListUnbilled(ctx context.Context) ([]models.Prescription, error) {
	return findAll[models.Prescription](ctx, s.coll, bson.M{"billId": nil},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (s *prescriptionStore) ListLedgerRetryable(ctx context.Context, limit int64) ([]models.Prescription, error) {
	filter := bson.M{"ledger.status": bson.M{"$in": bson.A{models.LedgerFailed, models.LedgerTimedOut}}}
	opts := options.Find().
		SetSort(bson.D{{Key: "ledger.lastAttemptAt", Value: 1}}).
		SetLimit(limit)
	return findAll[models.Prescription](ctx, s.coll, filter, opts)
}

func (s *prescriptionStore) SetBill(ctx context.Context, id, billID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"billId": billID, "updatedAt": time.Now().UTC()}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id, "billId": nil}, update)
	if err != nil {
		return fmt.Errorf("failed to link bill: %w", err)
	}
	if res.MatchedCount == 0 {
		return missingOrConflict(ctx, s.coll, id)
	}
	return nil
}

func (s *prescriptionStore) SetLedgerOutcome(ctx context.Context, id primitive.ObjectID, outcome models.LedgerOutcome) error {
	update := bson.M{"$set": bson.M{"ledger": outcome, "updatedAt": time.Now().UTC()}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to store ledger outcome: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *prescriptionStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count prescriptions: %w", err)
	}
	return n, nil
}

func (s *prescriptionStore) CountByLocation(ctx context.Context) ([]models.CityCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "location", Value: bson.D{
			{Key: "$type", Value: "string"},
			{Key: "$ne", Value: ""},
		}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$location"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "city", Value: "$_id"},
			{Key: "count", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "city", Value: 1}}}},
	}
	return aggregate[models.CityCount](ctx, s.coll, pipeline)
}

func (s *prescriptionStore) MedicineUsage(ctx context.Context) ([]models.MedicineCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$medicines"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$medicines.name"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "medicine", Value: "$_id"},
			{Key: "count", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "medicine", Value: 1}}}},
	}
	return aggregate[models.MedicineCount](ctx, s.coll, pipeline)
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll.Name(), err)
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s aggregate: %w", coll.Name(), err)
	}
	return out, nil
}
