package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/repository"
	"github.com/mamadbah2/meditrack/internal/storage/uploads"
)

// PhotoStore persists request photos.
type PhotoStore interface {
	Validate(f uploads.File) error
	Save(ctx context.Context, f uploads.File) (string, error)
	Delete(ctx context.Context, url string) error
}

// CreateInput is a new treatment request. Photo is optional.
type CreateInput struct {
	AnimalID           string
	ProblemDescription string
	Photo              *uploads.File
}

// Service runs the treatment-request state machine.
type Service struct {
	store  repository.Store
	photos PhotoStore
	logger *zap.Logger
}

// NewService wires the state machine. photos may be nil when uploads are not
// accepted.
func NewService(store repository.Store, photos PhotoStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, photos: photos, logger: logger}
}

// Create opens a Pending request and marks the animal Under Treatment.
// Everything is validated before the photo is written.
func (s *Service) Create(ctx context.Context, farmerID primitive.ObjectID, in CreateInput) (*models.TreatmentRequest, error) {
	if farmerID.IsZero() {
		return nil, models.Required("farmerId")
	}
	animalID, err := primitive.ObjectIDFromHex(strings.TrimSpace(in.AnimalID))
	if err != nil {
		return nil, models.Required("animalId")
	}
	description := strings.TrimSpace(in.ProblemDescription)
	if description == "" {
		return nil, models.Required("problemDescription")
	}
	if in.Photo != nil {
		if s.photos == nil {
			return nil, models.Invalid("photo", "photo uploads are disabled")
		}
		if err := s.photos.Validate(*in.Photo); err != nil {
			return nil, err
		}
	}

	animal, err := s.store.Animals.FindByID(ctx, animalID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("animal not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("find animal: %w", err)
	}
	if animal.OwnerID != farmerID {
		return nil, fmt.Errorf("animal belongs to another farmer: %w", models.ErrForbidden)
	}

	var mediaURL *string
	if in.Photo != nil {
		url, err := s.photos.Save(ctx, *in.Photo)
		if err != nil {
			return nil, err
		}
		mediaURL = &url
	}

	req := &models.TreatmentRequest{
		FarmerID:           farmerID,
		AnimalID:           animalID,
		ProblemDescription: description,
		MediaURL:           mediaURL,
		Status:             models.RequestPending,
	}
	if err := s.store.Requests.Create(ctx, req); err != nil {
		if mediaURL != nil {
			s.removePhoto(ctx, *mediaURL)
		}
		return nil, fmt.Errorf("create request: %w", err)
	}

	if err := s.store.Animals.SetStatus(ctx, animalID, "", models.AnimalUnderTreatment); err != nil {
		s.logger.Error("failed to mark animal under treatment",
			zap.String("animal_id", animalID.Hex()),
			zap.String("request_id", req.ID.Hex()),
			zap.Error(err))
	}

	s.logger.Info("treatment request created",
		zap.String("request_id", req.ID.Hex()),
		zap.String("farmer_id", farmerID.Hex()))
	return req, nil
}

// Accept assigns the vet. Exactly one concurrent accept wins; the others get
// models.ErrConflict.
func (s *Service) Accept(ctx context.Context, vetID, requestID primitive.ObjectID) (*models.TreatmentRequest, error) {
	updated, err := s.store.Requests.Transition(ctx, requestID, models.RequestTransition{
		From:  []models.RequestStatus{models.RequestPending},
		To:    models.RequestAccepted,
		VetID: &vetID,
	})
	if err != nil {
		return nil, transitionError("request is no longer pending", err)
	}

	s.logger.Info("treatment request accepted",
		zap.String("request_id", requestID.Hex()),
		zap.String("vet_id", vetID.Hex()))
	return updated, nil
}

// Decline closes the request from Pending, or from Accepted when vetID is the
// assigned vet, and reverts the animal to Healthy.
func (s *Service) Decline(ctx context.Context, vetID, requestID primitive.ObjectID, reason string) (*models.TreatmentRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.Required("reason")
	}

	updated, err := s.store.Requests.Transition(ctx, requestID, models.RequestTransition{
		From:          []models.RequestStatus{models.RequestPending, models.RequestAccepted},
		To:            models.RequestDeclined,
		VetID:         &vetID,
		RequireVetID:  &vetID,
		DeclineReason: &reason,
	})
	if err != nil {
		return nil, transitionError("request can no longer be declined by this vet", err)
	}

	s.revertAnimal(ctx, updated.AnimalID)
	s.logger.Info("treatment request declined",
		zap.String("request_id", requestID.Hex()),
		zap.String("vet_id", vetID.Hex()))
	return updated, nil
}

// Complete links the prescription and closes an Accepted request owned by
// vetID.
func (s *Service) Complete(ctx context.Context, vetID, requestID, prescriptionID primitive.ObjectID) error {
	_, err := s.store.Requests.Transition(ctx, requestID, models.RequestTransition{
		From:           []models.RequestStatus{models.RequestAccepted},
		To:             models.RequestCompleted,
		RequireVetID:   &vetID,
		PrescriptionID: &prescriptionID,
	})
	if err != nil {
		return transitionError("request is not accepted by this vet", err)
	}
	return nil
}

// Delete lets the owning farmer withdraw a request that is still Pending.
func (s *Service) Delete(ctx context.Context, farmerID, requestID primitive.ObjectID) error {
	req, err := s.store.Requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("request not found: %w", models.ErrNotFound)
		}
		return fmt.Errorf("find request: %w", err)
	}
	if req.FarmerID != farmerID {
		return fmt.Errorf("request belongs to another farmer: %w", models.ErrForbidden)
	}

	if err := s.store.Requests.DeleteIfStatus(ctx, requestID, models.RequestPending); err != nil {
		return transitionError("only pending requests can be removed", err)
	}

	if req.MediaURL != nil {
		s.removePhoto(ctx, *req.MediaURL)
	}
	s.revertAnimal(ctx, req.AnimalID)
	s.logger.Info("treatment request removed", zap.String("request_id", requestID.Hex()))
	return nil
}

func (s *Service) revertAnimal(ctx context.Context, animalID primitive.ObjectID) {
	err := s.store.Animals.SetStatus(ctx, animalID, models.AnimalUnderTreatment, models.AnimalHealthy)
	if err != nil && !errors.Is(err, models.ErrConflict) {
		s.logger.Error("failed to revert animal status",
			zap.String("animal_id", animalID.Hex()),
			zap.Error(err))
	}
}

func (s *Service) removePhoto(ctx context.Context, url string) {
	if s.photos == nil {
		return
	}
	if err := s.photos.Delete(ctx, url); err != nil {
		s.logger.Warn("failed to remove request photo", zap.String("media_url", url), zap.Error(err))
	}
}

func transitionError(conflictMsg string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("request not found: %w", models.ErrNotFound)
	case errors.Is(err, models.ErrConflict):
		return fmt.Errorf("%s: %w", conflictMsg, models.ErrConflict)
	default:
		return fmt.Errorf("update request: %w", err)
	}
}
