package requests

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
)

type joins struct {
	farmer       bool
	vet          bool
	animal       bool
	prescription bool
	bill         bool
}

// Pending lists open requests, oldest first, with farmer and animal.
func (s *Service) Pending(ctx context.Context) ([]models.RequestView, error) {
	reqs, err := s.store.Requests.ListByStatus(ctx, models.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return s.populate(ctx, reqs, joins{farmer: true, animal: true})
}

// AcceptedByVet lists the vet's open cases. Only the vet or an Admin may ask.
func (s *Service) AcceptedByVet(ctx context.Context, requester models.Identity, vetID primitive.ObjectID) ([]models.RequestView, error) {
	if requester.UserID != vetID && requester.Role != models.RoleAdmin {
		return nil, fmt.Errorf("cases of another vet: %w", models.ErrForbidden)
	}
	reqs, err := s.store.Requests.ListByVet(ctx, vetID, models.RequestAccepted)
	if err != nil {
		return nil, fmt.Errorf("list accepted requests: %w", err)
	}
	return s.populate(ctx, reqs, joins{farmer: true, animal: true})
}

// ForFarmer lists a farmer's requests, newest first, with everything the
// farmer dashboard shows.
func (s *Service) ForFarmer(ctx context.Context, requester models.Identity, farmerID primitive.ObjectID) ([]models.RequestView, error) {
	if requester.UserID != farmerID && !requester.Role.Professional() {
		return nil, fmt.Errorf("requests of another farmer: %w", models.ErrForbidden)
	}
	reqs, err := s.store.Requests.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("list farmer requests: %w", err)
	}
	return s.populate(ctx, reqs, joins{animal: true, vet: true, prescription: true, bill: true})
}

// populate resolves references with one batched lookup per collection.
func (s *Service) populate(ctx context.Context, reqs []models.TreatmentRequest, j joins) ([]models.RequestView, error) {
	var userIDs, animalIDs, prescriptionIDs []primitive.ObjectID
	for _, r := range reqs {
		if j.farmer {
			userIDs = append(userIDs, r.FarmerID)
		}
		if j.vet && r.VetID != nil {
			userIDs = append(userIDs, *r.VetID)
		}
		if j.animal {
			animalIDs = append(animalIDs, r.AnimalID)
		}
		if j.prescription && r.PrescriptionID != nil {
			prescriptionIDs = append(prescriptionIDs, *r.PrescriptionID)
		}
	}

	users, err := s.store.Users.FindByIDs(ctx, repository.UniqueIDs(userIDs))
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	animals, err := s.store.Animals.FindByIDs(ctx, repository.UniqueIDs(animalIDs))
	if err != nil {
		return nil, fmt.Errorf("load animals: %w", err)
	}
	prescriptions, err := s.store.Prescriptions.FindByIDs(ctx, repository.UniqueIDs(prescriptionIDs))
	if err != nil {
		return nil, fmt.Errorf("load prescriptions: %w", err)
	}

	var billIDs []primitive.ObjectID
	if j.bill {
		for _, p := range prescriptions {
			if p.BillID != nil {
				billIDs = append(billIDs, *p.BillID)
			}
		}
	}
	bills, err := s.store.Bills.FindByIDs(ctx, repository.UniqueIDs(billIDs))
	if err != nil {
		return nil, fmt.Errorf("load bills: %w", err)
	}

	userByID := make(map[primitive.ObjectID]models.UserSummary, len(users))
	for _, u := range users {
		userByID[u.ID] = u.Summary()
	}
	animalByID := make(map[primitive.ObjectID]models.Animal, len(animals))
	for _, a := range animals {
		animalByID[a.ID] = a
	}
	prescriptionByID := make(map[primitive.ObjectID]models.Prescription, len(prescriptions))
	for _, p := range prescriptions {
		prescriptionByID[p.ID] = p
	}
	billByID := make(map[primitive.ObjectID]models.Bill, len(bills))
	for _, b := range bills {
		billByID[b.ID] = b
	}

	views := make([]models.RequestView, 0, len(reqs))
	for _, r := range reqs {
		view := models.RequestView{TreatmentRequest: r}
		if u, ok := userByID[r.FarmerID]; ok && j.farmer {
			view.Farmer = &u
		}
		if r.VetID != nil && j.vet {
			if u, ok := userByID[*r.VetID]; ok {
				view.Vet = &u
			}
		}
		if a, ok := animalByID[r.AnimalID]; ok {
			view.Animal = &a
		}
		if r.PrescriptionID != nil {
			if p, ok := prescriptionByID[*r.PrescriptionID]; ok {
				view.Prescription = &p
				if p.BillID != nil {
					if b, ok := billByID[*p.BillID]; ok {
						view.Bill = &b
					}
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}
