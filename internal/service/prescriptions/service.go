package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
	"github.com/mamadbah2/meditrack/internal/service/whatsapp"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50
)

// RequestCompleter closes the treatment request a prescription answers.
type RequestCompleter interface {
	Complete(ctx context.Context, vetID, requestID, prescriptionID primitive.ObjectID) error
}

// Notary records the prescription on the external ledger.
type Notary interface {
	Record(ctx context.Context, p *models.Prescription) models.LedgerOutcome
}

// CreateInput is a prescription submitted by a vet.
type CreateInput struct {
	RequestID            string            `json:"requestId"`
	AnimalID             string            `json:"animalId"`
	Medicines            []models.Medicine `json:"medicines"`
	WithdrawalPeriodDays int               `json:"withdrawalPeriodDays"`
	Notes                string            `json:"notes"`
}

// Result is the outcome of a successful prescription.
type Result struct {
	Prescription    models.Prescription
	WithdrawalUntil time.Time
	TxHash          *string
	LedgerStatus    models.LedgerStatus
}

// Service runs the prescription workflow.
type Service struct {
	store    repository.Store
	requests RequestCompleter
	notary   Notary
	notifier whatsapp.Notifier
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the workflow. notifier may be nil.
func NewService(store repository.Store, requests RequestCompleter, notary Notary, notifier whatsapp.Notifier, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    store,
		requests: requests,
		notary:   notary,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

type target struct {
	vet       *models.User
	animal    *models.Animal
	requestID *primitive.ObjectID
}

// Create stores the prescription, then updates the usage aggregate, the
// request, the animal's withdrawal period and the ledger. Only the first
// write can fail the call; everything after it is logged and swallowed.
func (s *Service) Create(ctx context.Context, vetID primitive.ObjectID, in CreateInput) (*Result, error) {
	medicines, err := validate(in)
	if err != nil {
		return nil, err
	}

	t, err := s.resolve(ctx, vetID, in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Prescription{
		RequestID:            t.requestID,
		VetID:                vetID,
		AnimalID:             t.animal.ID,
		Location:             models.LocationOrUnknown(t.vet.City),
		Medicines:            medicines,
		WithdrawalPeriodDays: in.WithdrawalPeriodDays,
		Notes:                strings.TrimSpace(in.Notes),
		Ledger:               models.LedgerOutcome{Status: models.LedgerPending},
	}
	if err := s.store.Prescriptions.Create(ctx, p); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("request already has a prescription: %w", models.ErrConflict)
		}
		return nil, fmt.Errorf("create prescription: %w", err)
	}

	log := s.logger.With(zap.String("prescription_id", p.ID.Hex()))

	area := models.NormalizeArea(p.Location)
	day := models.UsageDay(now, s.loc)
	if err := s.store.Usage.Increment(ctx, area, day); err != nil {
		log.Error("failed to update usage aggregate", zap.String("area", area), zap.String("date", day), zap.Error(err))
	}

	if t.requestID != nil {
		if err := s.requests.Complete(ctx, vetID, *t.requestID, p.ID); err != nil {
			log.Error("failed to complete treatment request", zap.String("request_id", t.requestID.Hex()), zap.Error(err))
		}
	}

	until := models.WithdrawalEnd(now, in.WithdrawalPeriodDays, s.loc)
	if err := s.store.Animals.ApplyWithdrawal(ctx, t.animal.ID, until); err != nil {
		log.Error("failed to apply withdrawal period", zap.String("animal_id", t.animal.ID.Hex()), zap.Error(err))
	}

	outcome := s.notary.Record(ctx, p)

	s.notifyOwner(ctx, *t.animal, until)

	log.Info("prescription created",
		zap.String("vet_id", vetID.Hex()),
		zap.String("animal_id", t.animal.ID.Hex()),
		zap.String("location", p.Location),
		zap.String("ledger_status", string(outcome.Status)))

	return &Result{
		Prescription:    *p,
		WithdrawalUntil: until,
		TxHash:          outcome.TxHash,
		LedgerStatus:    outcome.Status,
	}, nil
}

func validate(in CreateInput) ([]models.Medicine, error) {
	if in.WithdrawalPeriodDays <= 0 {
		return nil, models.Invalid("withdrawalPeriodDays", "withdrawalPeriodDays must be a positive integer")
	}
	if in.WithdrawalPeriodDays > models.MaxWithdrawalDays {
		return nil, models.Invalid("withdrawalPeriodDays", fmt.Sprintf("withdrawalPeriodDays must not exceed %d", models.MaxWithdrawalDays))
	}
	if len(in.Medicines) == 0 {
		return nil, models.Invalid("medicines", "at least one medicine is required")
	}
	medicines := make([]models.Medicine, 0, len(in.Medicines))
	for i, m := range in.Medicines {
		m.Name = strings.TrimSpace(m.Name)
		m.Dosage = strings.TrimSpace(m.Dosage)
		if m.Name == "" || m.Dosage == "" {
			return nil, models.Invalid("medicines", fmt.Sprintf("medicine %d needs a name and a dosage", i+1))
		}
		medicines = append(medicines, m)
	}
	return medicines, nil
}

// resolve loads the vet, the request and the animal before anything is
// written.
func (s *Service) resolve(ctx context.Context, vetID primitive.ObjectID, in CreateInput) (*target, error) {
	vet, err := s.store.Users.FindByID(ctx, vetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("vet not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("find vet: %w", err)
	}

	t := &target{vet: vet}

	var animalID primitive.ObjectID
	if raw := strings.TrimSpace(in.AnimalID); raw != "" {
		if animalID, err = primitive.ObjectIDFromHex(raw); err != nil {
			return nil, models.Invalid("animalId", "animalId is not a valid id")
		}
	}

	if raw := strings.TrimSpace(in.RequestID); raw != "" {
		requestID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, models.Invalid("requestId", "requestId is not a valid id")
		}
		req, err := s.store.Requests.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("request not found: %w", models.ErrNotFound)
			}
			return nil, fmt.Errorf("find request: %w", err)
		}
		if req.Status != models.RequestAccepted || req.VetID == nil || *req.VetID != vetID {
			return nil, fmt.Errorf("request is not accepted by this vet: %w", models.ErrConflict)
		}
		if !animalID.IsZero() && animalID != req.AnimalID {
			return nil, models.Invalid("animalId", "animalId does not match the request")
		}
		animalID = req.AnimalID
		t.requestID = &req.ID
	}

	if animalID.IsZero() {
		return nil, models.Required("animalId")
	}
	animal, err := s.store.Animals.FindByID(ctx, animalID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("animal not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("find animal: %w", err)
	}
	t.animal = animal
	return t, nil
}

func (s *Service) notifyOwner(ctx context.Context, animal models.Animal, until time.Time) {
	if s.notifier == nil {
		return
	}
	owner, err := s.store.Users.FindByID(ctx, animal.OwnerID)
	if err != nil {
		s.logger.Warn("cannot notify animal owner", zap.String("owner_id", animal.OwnerID.Hex()), zap.Error(err))
		return
	}
	s.notifier.NotifyWithdrawal(ctx, *owner, animal, until)
}

// RecentForVet returns the vet's latest prescriptions with their animals.
func (s *Service) RecentForVet(ctx context.Context, vetID primitive.ObjectID, limit int64) ([]models.PrescriptionView, error) {
	list, err := s.store.Prescriptions.ListRecentByVet(ctx, vetID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent prescriptions: %w", err)
	}
	return s.populate(ctx, list, false)
}

// NewForPharmacy returns prescriptions that have not been billed yet, with
// the prescribing vet and the animal.
func (s *Service) NewForPharmacy(ctx context.Context) ([]models.PrescriptionView, error) {
	list, err := s.store.Prescriptions.ListUnbilled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unbilled prescriptions: %w", err)
	}
	return s.populate(ctx, list, true)
}

func (s *Service) populate(ctx context.Context, list []models.Prescription, withVet bool) ([]models.PrescriptionView, error) {
	animalIDs := make([]primitive.ObjectID, 0, len(list))
	vetIDs := make([]primitive.ObjectID, 0, len(list))
	for _, p := range list {
		animalIDs = append(animalIDs, p.AnimalID)
		vetIDs = append(vetIDs, p.VetID)
	}

	animals, err := s.store.Animals.FindByIDs(ctx, repository.UniqueIDs(animalIDs))
	if err != nil {
		return nil, fmt.Errorf("load animals: %w", err)
	}
	animalByID := make(map[primitive.ObjectID]models.Animal, len(animals))
	for _, a := range animals {
		animalByID[a.ID] = a
	}

	vetByID := make(map[primitive.ObjectID]models.UserSummary)
	if withVet {
		vets, err := s.store.Users.FindByIDs(ctx, repository.UniqueIDs(vetIDs))
		if err != nil {
			return nil, fmt.Errorf("load vets: %w", err)
		}
		for _, v := range vets {
			vetByID[v.ID] = v.Summary()
		}
	}

	views := make([]models.PrescriptionView, 0, len(list))
	for _, p := range list {
		view := models.PrescriptionView{Prescription: p}
		if a, ok := animalByID[p.AnimalID]; ok {
			view.Animal = &a
		}
		if v, ok := vetByID[p.VetID]; ok {
			view.Vet = &v
		}
		views = append(views, view)
	}
	return views, nil
}

func clampLimit(limit int64) int64 {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	default:
		return limit
	}
}
