package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AMURecord is a usage record notarized on request, outside the
// prescription workflow. RecordHash is supplied by the caller.
type AMURecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ActionType string             `bson:"actionType" json:"actionType"`
	AnimalID   string             `bson:"animalId" json:"animalId"`
	RecordHash string             `bson:"recordHash" json:"recordHash"`
	RecordedBy primitive.ObjectID `bson:"recordedBy" json:"recordedBy"`
	Ledger     LedgerOutcome      `bson:"ledger" json:"ledger"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
