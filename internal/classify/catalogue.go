package classify

import "strings"

// Catalogue lists every category a transaction may be filed under. The rule
// table only ever produces a subset; the rest are reachable by manual edits.
var Catalogue = []string{
	"Rent + Utilities",
	Coffee,
	Groceries,
	EatingOut,
	"Dates",
	"Misc",
	Car,
	"Nicotine",
	Investments,
	"Savings",
	"Subscriptions",
	"Career & Education",
	"Family & Gifts",
	"Debt",
	"Credit Building",
	"Self-Care",
}

// Canonical returns the catalogue spelling of name, matched case-insensitively.
func Canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Catalogue {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// IsKnown reports whether name is in the catalogue.
func IsKnown(name string) bool {
	_, ok := Canonical(name)
	return ok
}
