package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
	ledgerclient "github.com/mamadbah2/meditrack/pkg/clients/ledger"
)

const createdAtLayout = "2006-01-02T15:04:05.000Z"

// Service notarizes prescriptions on the external ledger and keeps the
// outcome on the prescription so failed appends can be retried.
type Service struct {
	client        ledgerclient.Client
	prescriptions repository.Prescriptions
	timeout       time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewService wires the notary. A nil client records every event as disabled.
func NewService(client ledgerclient.Client, prescriptions repository.Prescriptions, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		client:        client,
		prescriptions: prescriptions,
		timeout:       timeout,
		logger:        logger,
		now:           time.Now,
	}
}

type payload struct {
	Type           string `json:"type"`
	PrescriptionID string `json:"prescriptionId"`
	AnimalID       string `json:"animalId"`
	VetID          string `json:"vetId"`
	Location       string `json:"location"`
	CreatedAt      string `json:"createdAt"`
}

// EventFor builds the ledger event of a stored prescription. The content hash
// is the 0x-prefixed Keccak-256 of the canonical JSON payload.
func EventFor(p models.Prescription) (models.LedgerEvent, error) {
	raw, err := json.Marshal(payload{
		Type:           models.ActionPrescriptionCreated,
		PrescriptionID: p.ID.Hex(),
		AnimalID:       p.AnimalID.Hex(),
		VetID:          p.VetID.Hex(),
		Location:       p.Location,
		CreatedAt:      p.CreatedAt.UTC().Format(createdAtLayout),
	})
	if err != nil {
		return models.LedgerEvent{}, fmt.Errorf("marshal ledger payload: %w", err)
	}
	return models.LedgerEvent{
		ActionType:  models.ActionPrescriptionCreated,
		SubjectID:   p.AnimalID.Hex(),
		ContentHash: Keccak256Hex(raw),
	}, nil
}

// Keccak256Hex hashes data with the legacy Keccak-256 used by Ethereum.
func Keccak256Hex(data []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// Notarize performs one append attempt and returns the resulting outcome.
// It never returns an error; failures are encoded in the outcome.
func (s *Service) Notarize(ctx context.Context, event models.LedgerEvent, prior models.LedgerOutcome) models.LedgerOutcome {
	attemptAt := s.now().UTC()
	outcome := models.LedgerOutcome{
		LedgerEvent:   event,
		Attempts:      prior.Attempts + 1,
		LastAttemptAt: &attemptAt,
	}

	if s.client == nil {
		outcome.Status = models.LedgerDisabled
		outcome.Reason = "ledger gateway not configured"
		return outcome
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	txHash, err := s.client.AddEvent(callCtx, event.ActionType, event.SubjectID, event.ContentHash)
	switch {
	case err == nil:
		outcome.Status = models.LedgerConfirmed
		outcome.TxHash = &txHash
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		outcome.Status = models.LedgerTimedOut
		outcome.Reason = fmt.Sprintf("no response within %s", s.timeout)
	default:
		outcome.Status = models.LedgerFailed
		outcome.Reason = err.Error()
	}

	if outcome.Status != models.LedgerConfirmed {
		s.logger.Warn("ledger append did not confirm",
			zap.String("subject_id", event.SubjectID),
			zap.String("status", string(outcome.Status)),
			zap.String("reason", outcome.Reason),
			zap.Int("attempts", outcome.Attempts))
	}
	return outcome
}

// Record notarizes p and stores the outcome on it. Persistence failures are
// logged; the returned outcome always reflects the append attempt.
func (s *Service) Record(ctx context.Context, p *models.Prescription) models.LedgerOutcome {
	event, err := EventFor(*p)
	if err != nil {
		s.logger.Error("failed to build ledger event", zap.String("prescription_id", p.ID.Hex()), zap.Error(err))
		return models.LedgerOutcome{Status: models.LedgerFailed, Reason: err.Error()}
	}

	outcome := s.Notarize(ctx, event, p.Ledger)
	if err := s.prescriptions.SetLedgerOutcome(context.WithoutCancel(ctx), p.ID, outcome); err != nil {
		s.logger.Error("failed to store ledger outcome",
			zap.String("prescription_id", p.ID.Hex()),
			zap.String("status", string(outcome.Status)),
			zap.Error(err))
	}
	p.Ledger = outcome
	return outcome
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Attempted int
	Confirmed int
}

// Reconcile retries up to limit prescriptions whose last append failed or
// timed out.
func (s *Service) Reconcile(ctx context.Context, limit int64) (ReconcileResult, error) {
	var res ReconcileResult
	if s.client == nil {
		return res, nil
	}

	pending, err := s.prescriptions.ListLedgerRetryable(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("list retryable prescriptions: %w", err)
	}

	for i := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		outcome := s.Record(ctx, &pending[i])
		res.Attempted++
		if outcome.Status == models.LedgerConfirmed {
			res.Confirmed++
		}
	}

	if res.Attempted > 0 {
		s.logger.Info("ledger reconciliation finished",
			zap.Int("attempted", res.Attempted),
			zap.Int("confirmed", res.Confirmed))
	}
	return res, nil
}
