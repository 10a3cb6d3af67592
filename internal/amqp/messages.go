package amqp

import (
	"encoding/json"
	"time"

	"finanzas/internal/core"
)

// LedgerEventMessage is the JSON body published for every ledger mutation.
// It carries the id only; consumers reload the record from the store.
type LedgerEventMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Fields    []string  `json:"fields,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage converts a domain event into its wire form.
func NewLedgerEventMessage(ev core.LedgerEvent) *LedgerEventMessage {
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	var fields []string
	for _, f := range ev.Fields {
		fields = append(fields, string(f))
	}
	return &LedgerEventMessage{
		Type:      string(ev.Type),
		ID:        ev.ExpenseID,
		Fields:    fields,
		Timestamp: ts.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
