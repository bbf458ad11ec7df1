package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// UnknownMerchant is the sentinel used when no merchant could be identified.
	UnknownMerchant = "Unknown merchant"

	// CategoryMisc is the terminal fallback category.
	CategoryMisc = "Misc"

	ConfidenceAmountFound   = 0.85
	ConfidenceAmountMissing = 0.35
)

type (
	// Draft is the editable result of parsing one utterance, pending confirmation.
	Draft struct {
		Amount           decimal.NullDecimal `json:"amount"`
		Merchant         string              `json:"merchant"`
		OriginalMerchant string              `json:"original_merchant,omitempty"` // as heard, before correction
		Category         string              `json:"category"`
		Subcategory      string              `json:"subcategory"`
		Confidence       float64             `json:"confidence"`
		Note             string              `json:"note"`
		RawTranscript    string              `json:"raw_transcript"`
		IsValid          bool                `json:"is_valid"`
		Suggestions      []string            `json:"suggestions,omitempty"`
	}

	// Transaction is a confirmed spending record filed under its Date.
	Transaction struct {
		ID            int64           `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Merchant      string          `json:"merchant"`
		Category      string          `json:"category"`
		Subcategory   string          `json:"subcategory"`
		Timestamp     time.Time       `json:"timestamp"`
		Date          string          `json:"date"`
		Time          string          `json:"time"`
		RawTranscript string          `json:"raw_transcript"`
		Confidence    float64         `json:"confidence"`
		Edited        bool            `json:"edited"`
		Note          string          `json:"note"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount: must be a number greater than 0")
	ErrDuplicateSave       = errors.New("duplicate save blocked")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnknownField        = errors.New("unknown transaction field")
	ErrInvalidYearMonth    = errors.New("invalid year-month")
	ErrUnknownCategory     = errors.New("unknown category")
)

// ValidAmount reports whether a is present and strictly positive.
func ValidAmount(a decimal.NullDecimal) bool {
	return a.Valid && a.Decimal.IsPositive()
}

// IsValidDraft holds iff the amount is positive and the merchant is not the sentinel.
func IsValidDraft(a decimal.NullDecimal, merchant string) bool {
	return ValidAmount(a) && merchant != UnknownMerchant
}

// Validate checks the fields required to confirm a draft.
func (d Draft) Validate() error {
	if !ValidAmount(d.Amount) {
		return ErrInvalidAmount
	}
	return nil
}

// Capitalize upper-cases the first letter of s and leaves the rest untouched.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
