package memory

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type requests struct{ *db }

func (s *requests) Create(_ context.Context, req *models.TreatmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Status == "" {
		req.Status = models.RequestPending
	}
	s.stamp(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	s.requests[req.ID] = *req
	return nil
}

func (s *requests) FindByID(_ context.Context, id primitive.ObjectID) (*models.TreatmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (s *requests) ListByStatus(_ context.Context, status models.RequestStatus) ([]models.TreatmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.requests, func(r models.TreatmentRequest) bool { return r.Status == status })
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID) })
	return out, nil
}

func (s *requests) ListByVet(_ context.Context, vetID primitive.ObjectID, status models.RequestStatus) ([]models.TreatmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.requests, func(r models.TreatmentRequest) bool {
		return r.Status == status && r.VetID != nil && *r.VetID == vetID
	})
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i].UpdatedAt, out[j].UpdatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *requests) ListByFarmer(_ context.Context, farmerID primitive.ObjectID) ([]models.TreatmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.requests, func(r models.TreatmentRequest) bool { return r.FarmerID == farmerID })
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *requests) Transition(_ context.Context, id primitive.ObjectID, t models.RequestTransition) (*models.TreatmentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !t.Allows(r) {
		return nil, models.ErrConflict
	}

	r.Status = t.To
	if t.VetID != nil {
		vet := *t.VetID
		r.VetID = &vet
	}
	if t.PrescriptionID != nil {
		pid := *t.PrescriptionID
		r.PrescriptionID = &pid
	}
	if t.DeclineReason != nil {
		reason := *t.DeclineReason
		r.DeclineReason = &reason
	}
	r.UpdatedAt = s.now()
	s.requests[id] = r
	return &r, nil
}

func (s *requests) DeleteIfStatus(_ context.Context, id primitive.ObjectID, status models.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.Status != status {
		return models.ErrConflict
	}
	delete(s.requests, id)
	return nil
}
