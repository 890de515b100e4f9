package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BillStatusPaid is the only status bills are created with.
const BillStatusPaid = "Paid"

// BillItem is a dispensed line on a bill.
type BillItem struct {
	Name     string   `bson:"name" json:"name"`
	Dosage   string   `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Quantity *float64 `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Price    *float64 `bson:"price,omitempty" json:"price,omitempty"`
}

// Bill is created by a pharmacist for exactly one prescription.
type Bill struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PrescriptionID primitive.ObjectID `bson:"prescriptionId" json:"prescriptionId"`
	PharmacistID   primitive.ObjectID `bson:"pharmacistId" json:"pharmacistId"`
	FarmerName     string             `bson:"farmerName,omitempty" json:"farmerName,omitempty"`
	AnimalTagID    string             `bson:"animalTagId,omitempty" json:"animalTagId,omitempty"`
	Items          []BillItem         `bson:"items" json:"items"`
	TotalAmount    float64            `bson:"totalAmount" json:"totalAmount"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// BillView joins a bill with its prescription and animal.
type BillView struct {
	Bill
	Prescription *Prescription `json:"prescription,omitempty"`
	Animal       *Animal       `json:"animal,omitempty"`
}
