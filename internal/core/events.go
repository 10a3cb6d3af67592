package core

import "time"

// EventType names a ledger mutation.
type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

// LedgerEvent records one successful mutation of the ledger.
type LedgerEvent struct {
	Type       EventType
	ExpenseID  string
	Fields     []Field // set for updates
	OccurredAt time.Time
}
