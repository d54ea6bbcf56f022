package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// TransactionSyncMessage asks the worker to mirror one transaction to the
// spreadsheet. It carries only the id; the worker fetches the current row
// from the database, so a stale message can never write stale data.
type TransactionSyncMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage builds a sync message for the given transaction id.
func NewTransactionSyncMessage(id int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{ID: id, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON parses a sync message.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// TransactionDeleteMessage records a deletion. The local row is already gone
// when this is published, so the message carries a snapshot for the audit row
// the worker appends to the spreadsheet.
type TransactionDeleteMessage struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionDeleteMessage snapshots a transaction about to be removed.
func NewTransactionDeleteMessage(t core.Transaction) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		ID:          t.ID,
		Title:       t.Title,
		AmountCents: t.Amount.Cents,
		Date:        t.Date.String(),
		Type:        string(t.Type),
		Category:    t.Category,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionDeleteMessageFromJSON parses a delete message.
func TransactionDeleteMessageFromJSON(data []byte) (*TransactionDeleteMessage, error) {
	var msg TransactionDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
