package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

// Users persists the user directory.
type Users interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	ListByRoles(ctx context.Context, roles []models.Role, city string) ([]models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

// Animals persists the animal registry.
type Animals interface {
	Create(ctx context.Context, animal *models.Animal) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Animal, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Animal, error)
	FindByTag(ctx context.Context, tag string) (*models.Animal, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Animal, error)
	// SetStatus moves the animal to status. When from is non-empty the update
	// only applies while the current status equals from.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.AnimalStatus) error
	// ApplyWithdrawal marks the animal Healthy with the given MRL end date.
	ApplyWithdrawal(ctx context.Context, id primitive.ObjectID, until time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	CountUnderWithdrawal(ctx context.Context, now time.Time) (int64, error)
}

// Requests persists treatment requests.
type Requests interface {
	Create(ctx context.Context, req *models.TreatmentRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.TreatmentRequest, error)
	ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.TreatmentRequest, error)
	ListByVet(ctx context.Context, vetID primitive.ObjectID, status models.RequestStatus) ([]models.TreatmentRequest, error)
	ListByFarmer(ctx context.Context, farmerID primitive.ObjectID) ([]models.TreatmentRequest, error)
	// Transition applies t only if the stored request still satisfies it and
	// returns the updated document, or models.ErrConflict.
	Transition(ctx context.Context, id primitive.ObjectID, t models.RequestTransition) (*models.TreatmentRequest, error)
	// DeleteIfStatus removes the request while it is still in status.
	DeleteIfStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error
}

// Prescriptions persists prescriptions.
type Prescriptions interface {
	// Create returns models.ErrConflict when the request already has a
	// prescription.
	Create(ctx context.Context, p *models.Prescription) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Prescription, error)
	ListRecentByVet(ctx context.Context, vetID primitive.ObjectID, limit int64) ([]models.Prescription, error)
	ListUnbilled(ctx context.Context) ([]models.Prescription, error)
	ListLedgerRetryable(ctx context.Context, limit int64) ([]models.Prescription, error)
	SetBill(ctx context.Context, id, billID primitive.ObjectID) error
	SetLedgerOutcome(ctx context.Context, id primitive.ObjectID, outcome models.LedgerOutcome) error
	Count(ctx context.Context) (int64, error)
	CountByLocation(ctx context.Context) ([]models.CityCount, error)
	MedicineUsage(ctx context.Context) ([]models.MedicineCount, error)
}

// Bills persists pharmacist bills.
type Bills interface {
	// Create returns models.ErrDuplicate when the prescription is already billed.
	Create(ctx context.Context, bill *models.Bill) error
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Bill, error)
	ListRecentByPharmacist(ctx context.Context, pharmacistID primitive.ObjectID, limit int64) ([]models.Bill, error)
}

// Usage persists the per-area daily aggregate and its materialized view.
type Usage interface {
	// Increment atomically adds one to (area, date), creating it when absent.
	Increment(ctx context.Context, area, date string) error
	ListAreas(ctx context.Context) ([]string, error)
	ListByArea(ctx context.Context, area string) ([]models.AreaUsageRecord, error)
	ListAll(ctx context.Context) ([]models.AreaUsageRecord, error)
	TotalsByArea(ctx context.Context) ([]models.AreaTotal, error)
	SaveSnapshot(ctx context.Context, snapshot models.AreaUsageSnapshot) error
	ListSnapshots(ctx context.Context) ([]models.AreaUsageSnapshot, error)
}

// AMURecords persists manually notarized usage records.
type AMURecords interface {
	Create(ctx context.Context, rec *models.AMURecord) error
	SetLedgerOutcome(ctx context.Context, id primitive.ObjectID, outcome models.LedgerOutcome) error
}

// Store groups every repository the services need.
type Store struct {
	Users         Users
	Animals       Animals
	Requests      Requests
	Prescriptions Prescriptions
	Bills         Bills
	Usage         Usage
	Records       AMURecords
}

// UniqueIDs removes duplicates and zero ids, keeping first-seen order.
func UniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
