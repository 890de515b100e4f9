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

type billStore struct {
	coll *mongo.Collection
}

func (s *billStore) Create(ctx context.Context, bill *models.Bill) error {
	now := time.Now().UTC()
	if bill.ID.IsZero() {
		bill.ID = primitive.NewObjectID()
	}
	bill.CreatedAt, bill.UpdatedAt = now, now

	if _, err := s.coll.InsertOne(ctx, bill); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("prescription %s: %w", bill.PrescriptionID.Hex(), models.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	return nil
}

func (s *billStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Bill, error) {
	if len(ids) == 0 {
		return []models.Bill{}, nil
	}
	return findAll[models.Bill](ctx, s.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *billStore) ListRecentByPharmacist(ctx context.Context, pharmacistID primitive.ObjectID, limit int64) ([]models.Bill, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	return findAll[models.Bill](ctx, s.coll, bson.M{"pharmacistId": pharmacistID}, opts)
}
