// Package sink delivers copies of confirmed transactions to external systems.
// Delivery is best-effort: one attempt per sink, never retried.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"spendvoice/internal/core"
)

// ErrNotConfigured is returned by a sink that has nowhere to deliver to. It
// is not a delivery failure.
var ErrNotConfigured = errors.New("sink not configured")

// Payload is the public copy of a confirmed transaction.
type Payload struct {
	Date          string      `json:"date"`
	Timestamp     time.Time   `json:"timestamp"`
	Amount        json.Number `json:"amount"`
	Merchant      string      `json:"merchant"`
	Category      string      `json:"category"`
	Subcategory   string      `json:"subcategory"`
	RawTranscript string      `json:"raw_transcript"`
	Confidence    float64     `json:"confidence"`
	Note          string      `json:"note"`
}

// NewPayload copies the public fields of tx.
func NewPayload(tx core.Transaction) Payload {
	return Payload{
		Date:          tx.Date,
		Timestamp:     tx.Timestamp,
		Amount:        json.Number(tx.Amount.String()),
		Merchant:      tx.Merchant,
		Category:      tx.Category,
		Subcategory:   tx.Subcategory,
		RawTranscript: tx.RawTranscript,
		Confidence:    tx.Confidence,
		Note:          tx.Note,
	}
}

// Sink is one delivery target.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, p Payload) error
}
