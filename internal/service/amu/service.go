// Package amu stores usage records submitted directly by a professional and
// appends them to the external ledger.
package amu

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
)

// Notary performs one ledger append attempt.
type Notary interface {
	Notarize(ctx context.Context, event models.LedgerEvent, prior models.LedgerOutcome) models.LedgerOutcome
}

// RecordInput is the body of a manual notarization.
type RecordInput struct {
	ActionType string `json:"actionType"`
	AnimalID   string `json:"animalId"`
	RecordHash string `json:"recordHash"`
}

// Service records and notarizes AMU records.
type Service struct {
	records repository.AMURecords
	notary  Notary
	logger  *zap.Logger
}

// NewService wires the record service.
func NewService(records repository.AMURecords, notary Notary, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{records: records, notary: notary, logger: logger}
}

// Record stores the record first, then notarizes it. A ledger failure is
// kept on the record and does not fail the call.
func (s *Service) Record(ctx context.Context, userID primitive.ObjectID, in RecordInput) (*models.AMURecord, error) {
	rec := &models.AMURecord{
		ActionType: strings.TrimSpace(in.ActionType),
		AnimalID:   strings.TrimSpace(in.AnimalID),
		RecordHash: strings.TrimSpace(in.RecordHash),
		RecordedBy: userID,
		Ledger:     models.LedgerOutcome{Status: models.LedgerPending},
	}
	if rec.ActionType == "" || rec.AnimalID == "" || rec.RecordHash == "" {
		return nil, models.Invalid("record", "actionType, animalId and recordHash are required")
	}

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create amu record: %w", err)
	}

	event := models.LedgerEvent{ActionType: rec.ActionType, SubjectID: rec.AnimalID, ContentHash: rec.RecordHash}
	rec.Ledger = s.notary.Notarize(ctx, event, rec.Ledger)
	if err := s.records.SetLedgerOutcome(context.WithoutCancel(ctx), rec.ID, rec.Ledger); err != nil {
		s.logger.Error("failed to store record ledger outcome", zap.String("record_id", rec.ID.Hex()), zap.Error(err))
	}

	s.logger.Info("amu record stored",
		zap.String("record_id", rec.ID.Hex()),
		zap.String("action_type", rec.ActionType),
		zap.String("ledger_status", string(rec.Ledger.Status)))
	return rec, nil
}
