package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50
)

// CreateInput is a bill submitted by a pharmacist.
type CreateInput struct {
	PrescriptionID string            `json:"prescriptionId"`
	Items          []models.BillItem `json:"items"`
	TotalAmount    *float64          `json:"totalAmount"`
}

// Service creates pharmacist bills.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires billing.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Total computes the bill amount. When every item is priced the total is the
// sum of the prices and a supplied total must agree with it; otherwise a
// positive supplied total is required.
func Total(items []models.BillItem, supplied *float64) (float64, error) {
	priced := len(items) > 0
	sum := decimal.Zero
	for _, it := range items {
		if it.Price == nil {
			priced = false
			break
		}
		sum = sum.Add(decimal.NewFromFloat(*it.Price))
	}

	if priced {
		if supplied != nil && !decimal.NewFromFloat(*supplied).Round(2).Equal(sum.Round(2)) {
			return 0, models.Invalid("totalAmount", fmt.Sprintf("totalAmount must equal the sum of item prices (%s)", sum.StringFixed(2)))
		}
		total, _ := sum.Round(2).Float64()
		return total, nil
	}

	if supplied == nil || *supplied <= 0 {
		return 0, models.Invalid("totalAmount", "totalAmount must be a positive number")
	}
	total, _ := decimal.NewFromFloat(*supplied).Round(2).Float64()
	return total, nil
}

func validateItems(items []models.BillItem) ([]models.BillItem, error) {
	out := make([]models.BillItem, 0, len(items))
	for i, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		it.Dosage = strings.TrimSpace(it.Dosage)
		switch {
		case it.Name == "":
			return nil, models.Invalid("items", fmt.Sprintf("item %d needs a name", i+1))
		case it.Quantity != nil && *it.Quantity < 0:
			return nil, models.Invalid("items", fmt.Sprintf("item %d has a negative quantity", i+1))
		case it.Price != nil && *it.Price < 0:
			return nil, models.Invalid("items", fmt.Sprintf("item %d has a negative price", i+1))
		}
		out = append(out, it)
	}
	return out, nil
}

// Create bills a prescription. A second bill for the same prescription fails
// with models.ErrDuplicate.
func (s *Service) Create(ctx context.Context, pharmacistID primitive.ObjectID, in CreateInput) (*models.Bill, error) {
	prescriptionID, err := primitive.ObjectIDFromHex(strings.TrimSpace(in.PrescriptionID))
	if err != nil {
		return nil, models.Required("prescriptionId")
	}
	items, err := validateItems(in.Items)
	if err != nil {
		return nil, err
	}
	total, err := Total(items, in.TotalAmount)
	if err != nil {
		return nil, err
	}

	prescription, err := s.store.Prescriptions.FindByID(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("prescription not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("find prescription: %w", err)
	}

	bill := &models.Bill{
		PrescriptionID: prescription.ID,
		PharmacistID:   pharmacistID,
		Items:          items,
		TotalAmount:    total,
		Status:         models.BillStatusPaid,
	}
	s.fillDisplayFields(ctx, bill, prescription.AnimalID)

	if err := s.store.Bills.Create(ctx, bill); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("prescription already billed: %w", models.ErrDuplicate)
		}
		return nil, fmt.Errorf("create bill: %w", err)
	}

	if err := s.store.Prescriptions.SetBill(ctx, prescription.ID, bill.ID); err != nil {
		s.logger.Error("failed to link bill to prescription",
			zap.String("prescription_id", prescription.ID.Hex()),
			zap.String("bill_id", bill.ID.Hex()),
			zap.Error(err))
	}

	s.logger.Info("bill created",
		zap.String("bill_id", bill.ID.Hex()),
		zap.String("prescription_id", prescription.ID.Hex()),
		zap.Float64("total_amount", bill.TotalAmount))
	return bill, nil
}

func (s *Service) fillDisplayFields(ctx context.Context, bill *models.Bill, animalID primitive.ObjectID) {
	animal, err := s.store.Animals.FindByID(ctx, animalID)
	if err != nil {
		s.logger.Warn("bill animal lookup failed", zap.String("animal_id", animalID.Hex()), zap.Error(err))
		return
	}
	bill.AnimalTagID = animal.AnimalTagID

	owner, err := s.store.Users.FindByID(ctx, animal.OwnerID)
	if err != nil {
		s.logger.Warn("bill owner lookup failed", zap.String("owner_id", animal.OwnerID.Hex()), zap.Error(err))
		return
	}
	bill.FarmerName = owner.Name
}

// Recent returns the pharmacist's latest bills with prescription and animal.
func (s *Service) Recent(ctx context.Context, pharmacistID primitive.ObjectID, limit int64) ([]models.BillView, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	bills, err := s.store.Bills.ListRecentByPharmacist(ctx, pharmacistID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent bills: %w", err)
	}

	prescriptionIDs := make([]primitive.ObjectID, 0, len(bills))
	for _, b := range bills {
		prescriptionIDs = append(prescriptionIDs, b.PrescriptionID)
	}
	prescriptions, err := s.store.Prescriptions.FindByIDs(ctx, repository.UniqueIDs(prescriptionIDs))
	if err != nil {
		return nil, fmt.Errorf("load prescriptions: %w", err)
	}

	animalIDs := make([]primitive.ObjectID, 0, len(prescriptions))
	prescriptionByID := make(map[primitive.ObjectID]models.Prescription, len(prescriptions))
	for _, p := range prescriptions {
		prescriptionByID[p.ID] = p
		animalIDs = append(animalIDs, p.AnimalID)
	}
	animals, err := s.store.Animals.FindByIDs(ctx, repository.UniqueIDs(animalIDs))
	if err != nil {
		return nil, fmt.Errorf("load animals: %w", err)
	}
	animalByID := make(map[primitive.ObjectID]models.Animal, len(animals))
	for _, a := range animals {
		animalByID[a.ID] = a
	}

	views := make([]models.BillView, 0, len(bills))
	for _, b := range bills {
		view := models.BillView{Bill: b}
		if p, ok := prescriptionByID[b.PrescriptionID]; ok {
			view.Prescription = &p
			if a, ok := animalByID[p.AnimalID]; ok {
				view.Animal = &a
			}
		}
		views = append(views, view)
	}
	return views, nil
}
