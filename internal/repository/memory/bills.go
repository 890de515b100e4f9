package memory

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type bills struct{ *db }

func (s *bills) Create(_ context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bills {
		if existing.PrescriptionID == bill.PrescriptionID {
			return fmt.Errorf("prescription %s: %w", bill.PrescriptionID.Hex(), models.ErrDuplicate)
		}
	}
	s.stamp(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
	s.bills[bill.ID] = *bill
	return nil
}

func (s *bills) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pick(s.bills, ids), nil
}

func (s *bills) ListRecentByPharmacist(_ context.Context, pharmacistID primitive.ObjectID, n int64) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.bills, func(b models.Bill) bool { return b.PharmacistID == pharmacistID })
	sort.Slice(out, func(i, j int) bool { return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return limit(out, n), nil
}
