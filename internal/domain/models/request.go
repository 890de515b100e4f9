package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is the treatment-request state.
type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestAccepted  RequestStatus = "Accepted"
	RequestDeclined  RequestStatus = "Declined"
	RequestCompleted RequestStatus = "Completed"
)

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestDeclined || s == RequestCompleted
}

// TreatmentRequest is a farmer-initiated case.
type TreatmentRequest struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	FarmerID           primitive.ObjectID  `bson:"farmerId" json:"farmerId"`
	AnimalID           primitive.ObjectID  `bson:"animalId" json:"animalId"`
	ProblemDescription string              `bson:"problemDescription" json:"problemDescription"`
	MediaURL           *string             `bson:"mediaUrl" json:"mediaUrl"`
	Status             RequestStatus       `bson:"status" json:"status"`
	VetID              *primitive.ObjectID `bson:"vetId" json:"vetId"`
	PrescriptionID     *primitive.ObjectID `bson:"prescriptionId" json:"prescriptionId"`
	DeclineReason      *string             `bson:"declineReason" json:"declineReason"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// RequestTransition is the conditional update applied to a request. Only
// non-nil fields are written.
type RequestTransition struct {
	From           []RequestStatus
	To             RequestStatus
	VetID          *primitive.ObjectID
	RequireVetID   *primitive.ObjectID
	PrescriptionID *primitive.ObjectID
	DeclineReason  *string
}

// Allows reports whether the transition may be applied to r.
func (t RequestTransition) Allows(r TreatmentRequest) bool {
	matched := false
	for _, s := range t.From {
		if r.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if t.RequireVetID != nil && r.Status != RequestPending {
		return r.VetID != nil && *r.VetID == *t.RequireVetID
	}
	return true
}

// RequestView is a request joined with the documents it references.
type RequestView struct {
	TreatmentRequest
	Farmer       *UserSummary  `json:"farmer,omitempty"`
	Animal       *Animal       `json:"animal,omitempty"`
	Vet          *UserSummary  `json:"vet,omitempty"`
	Prescription *Prescription `json:"prescription,omitempty"`
	Bill         *Bill         `json:"bill,omitempty"`
}
