// Package extract pulls the amount and merchant out of a finalized utterance.
//
// Every function here is deterministic: the same utterance and the same
// correction table always produce the same result.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"spendvoice/internal/core"
)

var (
	// First number, optionally with two-digit cents and a currency word or sign.
	// The number must start a word. A minus at a word start is captured so
	// that negative amounts are rejected; a hyphen inside a word ("covid-19")
	// is not a sign.
	amountPattern = regexp.MustCompile(`(?i)(?:^|[^\w-])(-?\d+(?:\.\d{2})?)\s*(?:dollars?|bucks?|\$)?`)

	// Token after the first "at" preposition.
	atPattern = regexp.MustCompile(`(?i)\bat\s+(\w+)`)
)

// Corrector resolves a heard merchant token to a learned display name.
type Corrector interface {
	Lookup(heard string) (string, bool)
}

// Fields is the outcome of extracting one utterance.
type Fields struct {
	Amount           decimal.NullDecimal
	Merchant         string
	OriginalMerchant string
}

// Extract runs amount and merchant extraction in one pass.
func Extract(utterance string, corrections Corrector) Fields {
	return Fields{
		Amount:           Amount(utterance),
		Merchant:         Merchant(utterance, corrections),
		OriginalMerchant: HeardMerchant(utterance),
	}
}

// Amount returns the first amount mentioned in the utterance. Missing, zero and
// negative amounts all come back as an invalid NullDecimal.
func Amount(utterance string) decimal.NullDecimal {
	m := amountPattern.FindStringSubmatch(utterance)
	if m == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil || !d.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// HeardMerchant returns the raw token following "at", or "" when there is none.
func HeardMerchant(utterance string) string {
	m := atPattern.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}
	return m[1]
}

// Merchant resolves the normalized merchant name.
//
// Investment mentions map straight to an instrument identity. Otherwise the
// "at" token, or failing that the first known vendor, is the candidate; a
// learned correction for the candidate replaces it entirely.
func Merchant(utterance string, corrections Corrector) string {
	if identity, ok := Instrument(utterance); ok {
		return identity
	}

	candidate := HeardMerchant(utterance)
	if candidate == "" {
		candidate = KnownVendor(utterance)
	}
	if candidate == "" {
		return core.UnknownMerchant
	}

	if corrections != nil {
		if corrected, ok := corrections.Lookup(candidate); ok {
			candidate = corrected
		}
	}
	return core.Capitalize(candidate)
}

// KnownVendor scans the recurring vendor list in priority order and returns the
// first vendor named anywhere in the utterance, capitalized.
func KnownVendor(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, v := range knownVendors {
		if strings.Contains(lower, v) {
			return core.Capitalize(v)
		}
	}
	return ""
}

// KnownVendors returns the recurring vendor names, capitalized, in priority order.
func KnownVendors() []string {
	out := make([]string, len(knownVendors))
	for i, v := range knownVendors {
		out[i] = core.Capitalize(v)
	}
	return out
}

var knownVendors = []string{
	"starbucks", "kosa", "phil", "sebastian",
	"freshco", "safeway", "sunterra", "sunnyside",
	"shell", "centex", "petro", "canada",
	"chipotle", "walmart", "target",
}
