// Package classify assigns a spending category from a fixed, ordered rule table.
package classify

import (
	"strings"

	"spendvoice/internal/core"
	"spendvoice/internal/extract"
)

const (
	Investments = "Investments"
	Coffee      = "Coffee + Cafes"
	Groceries   = "Groceries & Household"
	Car         = "Car"
	EatingOut   = "Snacks + Eating Out"
)

// Input is what every rule sees. Both strings are already lower-cased.
type Input struct {
	Merchant  string
	Utterance string
	// Identity is the merchant with its original casing, for exact identity checks.
	Identity string
}

// Rule is one (predicate, category) pair.
type Rule struct {
	Category string
	Match    func(Input) bool
}

// Rules is the classification policy; the first matching rule wins and the last
// rule always matches.
var Rules = []Rule{
	{Investments, func(in Input) bool {
		return extract.IsInstrument(in.Identity) || extract.MentionsInvestment(in.Utterance)
	}},
	{Coffee, mentions([]string{"coffee", "cafe", "americano", "espresso"}, []string{"starbucks", "kosa", "phil", "sebastian"})},
	{Groceries, mentions([]string{"groceries"}, []string{"freshco", "safeway", "sunterra", "sunnyside"})},
	{Car, mentions([]string{"gas", "fuel", "petrol"}, []string{"shell", "centex", "petro", "canada"})},
	{EatingOut, mentions([]string{"pizza", "takeout", "fast food"}, []string{"mcdonalds"})},
	{core.CategoryMisc, func(Input) bool { return true }},
}

// Classify returns the category for a merchant and the utterance it came from.
func Classify(merchant, utterance string) string {
	in := Input{
		Merchant:  strings.ToLower(merchant),
		Utterance: strings.ToLower(utterance),
		Identity:  merchant,
	}
	for _, r := range Rules {
		if r.Match(in) {
			return r.Category
		}
	}
	return core.CategoryMisc
}

// mentions matches when the utterance contains any word or the merchant contains any vendor.
func mentions(words, vendors []string) func(Input) bool {
	return func(in Input) bool {
		return containsAny(in.Utterance, words) || containsAny(in.Merchant, vendors)
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
