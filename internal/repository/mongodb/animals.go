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

type animalStore struct {
	coll *mongo.Collection
}

func (s *animalStore) Create(ctx context.Context, animal *models.Animal) error {
	now := time.Now().UTC()
	if animal.ID.IsZero() {
		animal.ID = primitive.NewObjectID()
	}
	if animal.Status == "" {
		animal.Status = models.AnimalHealthy
	}
	animal.CreatedAt, animal.UpdatedAt = now, now

	if _, err := s.coll.InsertOne(ctx, animal); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("tag %s: %w", animal.AnimalTagID, models.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert animal: %w", err)
	}
	return nil
}

func (s *animalStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Animal, error) {
	return findOne[models.Animal](ctx, s.coll, bson.M{"_id": id})
}

func (s *animalStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Animal, error) {
	if len(ids) == 0 {
		return []models.Animal{}, nil
	}
	return findAll[models.Animal](ctx, s.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *animalStore) FindByTag(ctx context.Context, tag string) (*models.Animal, error) {
	return findOne[models.Animal](ctx, s.coll, bson.M{"animalTagId": tag})
}

func (s *animalStore) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Animal, error) {
	return findAll[models.Animal](ctx, s.coll, bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "animalTagId", Value: 1}}))
}

func (s *animalStore) SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.AnimalStatus) error {
	filter := bson.M{"_id": id}
	if from != "" {
		filter["status"] = from
	}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update animal status: %w", err)
	}
	if res.MatchedCount == 0 {
		return missingOrConflict(ctx, s.coll, id)
	}
	return nil
}

func (s *animalStore) ApplyWithdrawal(ctx context.Context, id primitive.ObjectID, until time.Time) error {
	update := bson.M{"$set": bson.M{
		"status":          models.AnimalHealthy,
		"withdrawalUntil": until,
		"updatedAt":       time.Now().UTC(),
	}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to apply withdrawal period: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *animalStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete animal: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *animalStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count animals: %w", err)
	}
	return n, nil
}

func (s *animalStore) CountUnderWithdrawal(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"withdrawalUntil": bson.M{"$gt": now}})
	if err != nil {
		return 0, fmt.Errorf("count animals under withdrawal: %w", err)
	}
	return n, nil
}
