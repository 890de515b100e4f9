package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnimalStatus tracks whether an animal is currently being treated.
type AnimalStatus string

const (
	AnimalHealthy        AnimalStatus = "Healthy"
	AnimalUnderTreatment AnimalStatus = "Under Treatment"
)

// Animal is a livestock record owned by a farmer.
type Animal struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OwnerID         primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	AnimalTagID     string             `bson:"animalTagId" json:"animalTagId"`
	Type            string             `bson:"type" json:"type"`
	Breed           string             `bson:"breed,omitempty" json:"breed,omitempty"`
	Age             *float64           `bson:"age,omitempty" json:"age,omitempty"`
	Weight          *float64           `bson:"weight,omitempty" json:"weight,omitempty"`
	GroupName       string             `bson:"groupName,omitempty" json:"groupName,omitempty"`
	Status          AnimalStatus       `bson:"status" json:"status"`
	WithdrawalUntil *time.Time         `bson:"withdrawalUntil" json:"withdrawalUntil"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SafeToTransact is the MRL gate: products may enter the food chain once the
// withdrawal period is unset or over.
func (a Animal) SafeToTransact(now time.Time) bool {
	return a.WithdrawalUntil == nil || !a.WithdrawalUntil.After(now)
}

// MaxWithdrawalDays bounds a prescription's withdrawal period to ten years.
const MaxWithdrawalDays = 3650

// WithdrawalEnd adds days calendar days to now in loc, keeping the time of day.
func WithdrawalEnd(now time.Time, days int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).AddDate(0, 0, days)
}
