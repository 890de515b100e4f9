package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type recordStore struct {
	coll *mongo.Collection
}

func (s *recordStore) Create(ctx context.Context, rec *models.AMURecord) error {
	now := time.Now().UTC()
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert amu record: %w", err)
	}
	return nil
}

func (s *recordStore) SetLedgerOutcome(ctx context.Context, id primitive.ObjectID, outcome models.LedgerOutcome) error {
	update := bson.M{"$set": bson.M{"ledger": outcome, "updatedAt": time.Now().UTC()}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to store record ledger outcome: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
