package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type animals struct{ *db }

func (s *animals) Create(_ context.Context, animal *models.Animal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.animals {
		if existing.OwnerID == animal.OwnerID && existing.AnimalTagID == animal.AnimalTagID {
			return fmt.Errorf("tag %s: %w", animal.AnimalTagID, models.ErrDuplicate)
		}
	}
	if animal.Status == "" {
		animal.Status = models.AnimalHealthy
	}
	s.stamp(&animal.ID, &animal.CreatedAt, &animal.UpdatedAt)
	s.animals[animal.ID] = *animal
	return nil
}

func (s *animals) FindByID(_ context.Context, id primitive.ObjectID) (*models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.animals[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (s *animals) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pick(s.animals, ids), nil
}

func (s *animals) FindByTag(_ context.Context, tag string) (*models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.animals {
		if a.AnimalTagID == tag {
			return &a, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *animals) ListByOwner(_ context.Context, ownerID primitive.ObjectID) ([]models.Animal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.animals, func(a models.Animal) bool { return a.OwnerID == ownerID })
	sort.Slice(out, func(i, j int) bool { return out[i].AnimalTagID < out[j].AnimalTagID })
	return out, nil
}

func (s *animals) SetStatus(_ context.Context, id primitive.ObjectID, from, to models.AnimalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.animals[id]
	if !ok {
		return models.ErrNotFound
	}
	if from != "" && a.Status != from {
		return models.ErrConflict
	}
	a.Status = to
	a.UpdatedAt = s.now()
	s.animals[id] = a
	return nil
}

func (s *animals) ApplyWithdrawal(_ context.Context, id primitive.ObjectID, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.animals[id]
	if !ok {
		return models.ErrNotFound
	}
	a.Status = models.AnimalHealthy
	a.WithdrawalUntil = &until
	a.UpdatedAt = s.now()
	s.animals[id] = a
	return nil
}

func (s *animals) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.animals[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.animals, id)
	return nil
}

func (s *animals) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.animals)), nil
}

func (s *animals) CountUnderWithdrawal(_ context.Context, now time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(collect(s.animals, func(a models.Animal) bool {
		return a.WithdrawalUntil != nil && a.WithdrawalUntil.After(now)
	}))
	return int64(n), nil
}
