package models

import "time"

// LedgerStatus is the tagged result of a ledger append.
type LedgerStatus string

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerConfirmed LedgerStatus = "confirmed"
	LedgerFailed    LedgerStatus = "failed"
	LedgerTimedOut  LedgerStatus = "timed_out"
	LedgerDisabled  LedgerStatus = "disabled"
)

// Retryable reports whether reconciliation should try the append again.
func (s LedgerStatus) Retryable() bool {
	return s == LedgerFailed || s == LedgerTimedOut
}

// ActionPrescriptionCreated is the ledger action emitted by the workflow.
const ActionPrescriptionCreated = "PrescriptionCreated"

// LedgerEvent is what gets appended to the external ledger.
type LedgerEvent struct {
	ActionType  string `bson:"actionType" json:"actionType"`
	SubjectID   string `bson:"subjectId" json:"subjectId"`
	ContentHash string `bson:"contentHash" json:"contentHash"`
}

// LedgerOutcome is stored next to the prescription for reconciliation.
type LedgerOutcome struct {
	LedgerEvent   `bson:",inline"`
	Status        LedgerStatus `bson:"status" json:"status"`
	TxHash        *string      `bson:"txHash" json:"txHash"`
	Reason        string       `bson:"reason,omitempty" json:"reason,omitempty"`
	Attempts      int          `bson:"attempts" json:"attempts"`
	LastAttemptAt *time.Time   `bson:"lastAttemptAt,omitempty" json:"lastAttemptAt,omitempty"`
}
