package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type prescriptions struct{ *db }

func (s *prescriptions) Create(_ context.Context, p *models.Prescription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.RequestID != nil {
		for _, existing := range s.prescriptions {
			if existing.RequestID != nil && *existing.RequestID == *p.RequestID {
				return fmt.Errorf("request %s: %w", p.RequestID.Hex(), models.ErrConflict)
			}
		}
	}
	s.stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	s.prescriptions[p.ID] = *p
	return nil
}

func (s *prescriptions) FindByID(_ context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prescriptions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (s *prescriptions) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pick(s.prescriptions, ids), nil
}

func (s *prescriptions) ListRecentByVet(_ context.Context, vetID primitive.ObjectID, n int64) ([]models.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.prescriptions, func(p models.Prescription) bool { return p.VetID == vetID })
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return limit(out, n), nil
}

func (s *prescriptions) ListUnbilled(_ context.Context) ([]models.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.prescriptions, func(p models.Prescription) bool { return p.BillID == nil })
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *prescriptions) ListLedgerRetryable(_ context.Context, n int64) ([]models.Prescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.prescriptions, func(p models.Prescription) bool { return p.Ledger.Status.Retryable() })
	sort.Slice(out, func(i, j int) bool {
		return attemptTime(out[i]).Before(attemptTime(out[j]))
	})
	return limit(out, n), nil
}

func attemptTime(p models.Prescription) time.Time {
	if p.Ledger.LastAttemptAt != nil {
		return *p.Ledger.LastAttemptAt
	}
	return p.CreatedAt
}

func (s *prescriptions) SetBill(_ context.Context, id, billID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prescriptions[id]
	if !ok {
		return models.ErrNotFound
	}
	if p.BillID != nil {
		return models.ErrConflict
	}
	p.BillID = &billID
	p.UpdatedAt = s.now()
	s.prescriptions[id] = p
	return nil
}

func (s *prescriptions) SetLedgerOutcome(_ context.Context, id primitive.ObjectID, outcome models.LedgerOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prescriptions[id]
	if !ok {
		return models.ErrNotFound
	}
	p.Ledger = outcome
	p.UpdatedAt = s.now()
	s.prescriptions[id] = p
	return nil
}

func (s *prescriptions) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.prescriptions)), nil
}

func (s *prescriptions) CountByLocation(_ context.Context) ([]models.CityCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, p := range s.prescriptions {
		if p.Location != "" {
			counts[p.Location]++
		}
	}
	out := make([]models.CityCount, 0, len(counts))
	for city, n := range counts {
		out = append(out, models.CityCount{City: city, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].City < out[j].City
	})
	return out, nil
}

func (s *prescriptions) MedicineUsage(_ context.Context) ([]models.MedicineCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, p := range s.prescriptions {
		for _, m := range p.Medicines {
			counts[m.Name]++
		}
	}
	out := make([]models.MedicineCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.MedicineCount{Medicine: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Medicine < out[j].Medicine
	})
	return out, nil
}
