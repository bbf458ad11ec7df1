package extract

import "strings"

// Brokerage is the identity used for investment mentions without a recognised ticker.
const Brokerage = "Wealthsimple"

var investmentKeywords = []string{"share", "etf", "stock", "investment"}

// instrument pairs a ticker with the ways speech-to-text tends to mishear it.
type instrument struct {
	ticker   string
	variants []string
}

var instruments = []instrument{
	{ticker: "HMAX", variants: []string{"hmax", "h max", "age max", "each max", "h m a x"}},
	{ticker: "YTSL", variants: []string{"ytsl", "y t s l", "white sell", "y cell", "y tsl"}},
	{ticker: "YNVD", variants: []string{"ynvd", "y n v d", "invited", "envied", "why envied", "y nvd"}},
}

// MentionsInvestment reports whether the utterance contains an investment keyword.
func MentionsInvestment(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, k := range investmentKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Instrument resolves an investment utterance to a ticker, or to the brokerage
// when no ticker variant is heard. ok is false for non-investment utterances.
func Instrument(utterance string) (identity string, ok bool) {
	if !MentionsInvestment(utterance) {
		return "", false
	}
	lower := strings.ToLower(utterance)
	for _, in := range instruments {
		for _, v := range in.variants {
			if strings.Contains(lower, v) {
				return in.ticker, true
			}
		}
	}
	return Brokerage, true
}

// IsInstrument reports whether merchant is one of the fixed financial identities.
func IsInstrument(merchant string) bool {
	if strings.EqualFold(merchant, Brokerage) {
		return true
	}
	for _, in := range instruments {
		if merchant == in.ticker {
			return true
		}
	}
	return false
}
