package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type requestStore struct {
	coll *mongo.Collection
}

func (s *requestStore) Create(ctx context.Context, req *models.TreatmentRequest) error {
	now := time.Now().UTC()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	req.CreatedAt, req.UpdatedAt = now, now

	if _, err := s.coll.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to insert treatment request: %w", err)
	}
	return nil
}

func (s *requestStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.TreatmentRequest, error) {
	return findOne[models.TreatmentRequest](ctx, s.coll, bson.M{"_id": id})
}

func (s *requestStore) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.TreatmentRequest, error) {
	return findAll[models.TreatmentRequest](ctx, s.coll, bson.M{"status": status},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *requestStore) ListByVet(ctx context.Context, vetID primitive.ObjectID, status models.RequestStatus) ([]models.TreatmentRequest, error) {
	return findAll[models.TreatmentRequest](ctx, s.coll, bson.M{"vetId": vetID, "status": status},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
}

func (s *requestStore) ListByFarmer(ctx context.Context, farmerID primitive.ObjectID) ([]models.TreatmentRequest, error) {
	return findAll[models.TreatmentRequest](ctx, s.coll, bson.M{"farmerId": farmerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
}

// transitionFilter encodes RequestTransition.Allows as a query so the check
// and the write happen in one server-side operation.
func transitionFilter(id primitive.ObjectID, t models.RequestTransition) bson.M {
	if t.RequireVetID == nil {
		return bson.M{"_id": id, "status": bson.M{"$in": t.From}}
	}

	clauses := make(bson.A, 0, len(t.From))
	for _, status := range t.From {
		if status == models.RequestPending {
			clauses = append(clauses, bson.M{"status": status})
			continue
		}
		clauses = append(clauses, bson.M{"status": status, "vetId": *t.RequireVetID})
	}
	return bson.M{"_id": id, "$or": clauses}
}

func (s *requestStore) Transition(ctx context.Context, id primitive.ObjectID, t models.RequestTransition) (*models.TreatmentRequest, error) {
	set := bson.M{"status": t.To, "updatedAt": time.Now().UTC()}
	if t.VetID != nil {
		set["vetId"] = *t.VetID
	}
	if t.PrescriptionID != nil {
		set["prescriptionId"] = *t.PrescriptionID
	}
	if t.DeclineReason != nil {
		set["declineReason"] = *t.DeclineReason
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.TreatmentRequest
	err := s.coll.FindOneAndUpdate(ctx, transitionFilter(id, t), bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, missingOrConflict(ctx, s.coll, id)
		}
		return nil, fmt.Errorf("failed to transition treatment request: %w", err)
	}
	return &updated, nil
}

func (s *requestStore) DeleteIfStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "status": status})
	if err != nil {
		return fmt.Errorf("failed to delete treatment request: %w", err)
	}
	if res.DeletedCount == 0 {
		return missingOrConflict(ctx, s.coll, id)
	}
	return nil
}
