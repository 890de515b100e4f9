package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

type records struct{ *db }

func (s *records) Create(_ context.Context, rec *models.AMURecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	s.records[rec.ID] = *rec
	return nil
}

func (s *records) SetLedgerOutcome(_ context.Context, id primitive.ObjectID, outcome models.LedgerOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return models.ErrNotFound
	}
	rec.Ledger = outcome
	rec.UpdatedAt = s.now()
	s.records[id] = rec
	return nil
}
