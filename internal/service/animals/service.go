package animals

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
)

// Messages returned by the MRL check.
const (
	MessageUnsafe = "STOP: DO NOT BUY. Animal is under a withdrawal period."
	MessageSafe   = "SAFE TO BUY. Animal has no active withdrawal period."
)

// AddInput describes an animal to register. OwnerID is only read by
// Provision.
type AddInput struct {
	OwnerID     string   `json:"ownerId"`
	AnimalTagID string   `json:"animalTagId"`
	Type        string   `json:"type"`
	Breed       string   `json:"breed"`
	Age         *float64 `json:"age"`
	Weight      *float64 `json:"weight"`
	GroupName   string   `json:"groupName"`
}

// CheckResult is the answer of the market-side MRL check.
type CheckResult struct {
	SafeToBuy         bool       `json:"safeToBuy"`
	Message           string     `json:"message"`
	AnimalTagID       string     `json:"animalTagId"`
	Type              string     `json:"type"`
	WithdrawalEndDate *time.Time `json:"withdrawalEndDate"`
}

// Service manages the animal registry.
type Service struct {
	animals repository.Animals
	users   repository.Users
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the registry.
func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		animals: store.Animals,
		users:   store.Users,
		logger:  logger,
		now:     time.Now,
	}
}

// Add registers an animal for the authenticated farmer.
func (s *Service) Add(ctx context.Context, ownerID primitive.ObjectID, in AddInput) (*models.Animal, error) {
	return s.create(ctx, ownerID, in)
}

// Provision registers an animal on behalf of the farmer named in the input.
func (s *Service) Provision(ctx context.Context, in AddInput) (*models.Animal, error) {
	ownerID, err := primitive.ObjectIDFromHex(strings.TrimSpace(in.OwnerID))
	if err != nil {
		return nil, models.Required("ownerId")
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("farmer not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("find owner: %w", err)
	}
	if owner.Role != models.RoleFarmer {
		return nil, fmt.Errorf("farmer not found: %w", models.ErrNotFound)
	}

	return s.create(ctx, ownerID, in)
}

func (s *Service) create(ctx context.Context, ownerID primitive.ObjectID, in AddInput) (*models.Animal, error) {
	in.AnimalTagID = strings.TrimSpace(in.AnimalTagID)
	in.Type = strings.TrimSpace(in.Type)
	switch {
	case in.AnimalTagID == "":
		return nil, models.Required("animalTagId")
	case in.Type == "":
		return nil, models.Required("type")
	case in.Age != nil && *in.Age < 0:
		return nil, models.Invalid("age", "age must not be negative")
	case in.Weight != nil && *in.Weight < 0:
		return nil, models.Invalid("weight", "weight must not be negative")
	}

	animal := &models.Animal{
		OwnerID:     ownerID,
		AnimalTagID: in.AnimalTagID,
		Type:        in.Type,
		Breed:       strings.TrimSpace(in.Breed),
		Age:         in.Age,
		Weight:      in.Weight,
		GroupName:   strings.TrimSpace(in.GroupName),
		Status:      models.AnimalHealthy,
	}
	if err := s.animals.Create(ctx, animal); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, fmt.Errorf("this farmer already has an animal with this Tag ID: %w", models.ErrDuplicate)
		}
		return nil, fmt.Errorf("create animal: %w", err)
	}

	s.logger.Info("animal registered",
		zap.String("animal_id", animal.ID.Hex()),
		zap.String("owner_id", ownerID.Hex()),
		zap.String("animal_tag_id", animal.AnimalTagID))
	return animal, nil
}

// CanList reports whether requester may see the animals of ownerID.
func CanList(requester models.Identity, ownerID primitive.ObjectID) bool {
	return requester.UserID == ownerID || requester.Role.Professional()
}

// ListForOwner returns the owner's animals, or models.ErrForbidden.
func (s *Service) ListForOwner(ctx context.Context, requester models.Identity, ownerID primitive.ObjectID) ([]models.Animal, error) {
	if !CanList(requester, ownerID) {
		return nil, fmt.Errorf("list animals of %s: %w", ownerID.Hex(), models.ErrForbidden)
	}
	animals, err := s.animals.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list animals: %w", err)
	}
	return animals, nil
}

// CheckByTag answers whether the animal's products may be bought now.
func (s *Service) CheckByTag(ctx context.Context, tag string) (*CheckResult, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, models.Required("tagId")
	}

	animal, err := s.animals.FindByTag(ctx, tag)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("animal with this Tag ID not found in the system: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("find animal by tag: %w", err)
	}

	res := &CheckResult{
		SafeToBuy:         animal.SafeToTransact(s.now()),
		AnimalTagID:       animal.AnimalTagID,
		Type:              animal.Type,
		WithdrawalEndDate: animal.WithdrawalUntil,
	}
	if res.SafeToBuy {
		res.Message = MessageSafe
	} else {
		res.Message = MessageUnsafe
	}
	return res, nil
}

// Remove deletes an animal from the registry.
func (s *Service) Remove(ctx context.Context, animalID primitive.ObjectID) error {
	if err := s.animals.Delete(ctx, animalID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("animal not found: %w", models.ErrNotFound)
		}
		return fmt.Errorf("delete animal: %w", err)
	}
	s.logger.Info("animal removed", zap.String("animal_id", animalID.Hex()))
	return nil
}

// ListFarmers returns every farmer in the directory.
func (s *Service) ListFarmers(ctx context.Context) ([]models.UserSummary, error) {
	farmers, err := s.users.ListByRoles(ctx, []models.Role{models.RoleFarmer}, "")
	if err != nil {
		return nil, fmt.Errorf("list farmers: %w", err)
	}
	out := make([]models.UserSummary, 0, len(farmers))
	for _, f := range farmers {
		out = append(out, f.Summary())
	}
	return out, nil
}
