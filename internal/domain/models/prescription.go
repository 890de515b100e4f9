package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnknownLocation is stored when the prescribing vet has no city on file.
const UnknownLocation = "Unknown"

// Medicine is one prescribed line.
type Medicine struct {
	Name   string `bson:"name" json:"name"`
	Dosage string `bson:"dosage" json:"dosage"`
}

// Prescription is written once per accepted request.
type Prescription struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	RequestID            *primitive.ObjectID `bson:"requestId" json:"requestId"`
	VetID                primitive.ObjectID  `bson:"vetId" json:"vetId"`
	AnimalID             primitive.ObjectID  `bson:"animalId" json:"animalId"`
	Location             string              `bson:"location" json:"location"`
	Medicines            []Medicine          `bson:"medicines" json:"medicines"`
	WithdrawalPeriodDays int                 `bson:"withdrawalPeriodDays" json:"withdrawalPeriodDays"`
	Notes                string              `bson:"notes,omitempty" json:"notes,omitempty"`
	BillID               *primitive.ObjectID `bson:"billId" json:"billId"`
	Ledger               LedgerOutcome       `bson:"ledger" json:"ledger"`
	CreatedAt            time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// PrescriptionView joins a prescription with its vet and animal.
type PrescriptionView struct {
	Prescription
	Vet    *UserSummary `json:"vet,omitempty"`
	Animal *Animal      `json:"animal,omitempty"`
}

// CityCount is the number of prescriptions written in one city.
type CityCount struct {
	City  string `bson:"city" json:"city"`
	Count int64  `bson:"count" json:"count"`
}

// MedicineCount is how many prescriptions included a medicine.
type MedicineCount struct {
	Medicine string `bson:"medicine" json:"medicine"`
	Count    int64  `bson:"count" json:"count"`
}

// LocationOrUnknown returns the trimmed city or the Unknown sentinel.
func LocationOrUnknown(city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return UnknownLocation
	}
	return city
}
