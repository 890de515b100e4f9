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

type userStore struct {
	coll *mongo.Collection
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt, user.UpdatedAt = now, now

	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("phone %s: %w", user.Phone, models.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *userStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return findOne[models.User](ctx, s.coll, bson.M{"_id": id})
}

func (s *userStore) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return findOne[models.User](ctx, s.coll, bson.M{"phone": phone})
}

func (s *userStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return findAll[models.User](ctx, s.coll, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *userStore) ListByRoles(ctx context.Context, roles []models.Role, city string) ([]models.User, error) {
	filter := bson.M{"role": bson.M{"$in": roles}}
	if city != "" {
		filter["city"] = city
	}
	return findAll[models.User](ctx, s.coll, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (s *userStore) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"role": role})
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}
