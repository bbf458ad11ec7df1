package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendvoice/internal/core"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		utterance string
		want      string // "" means no valid amount
	}{
		{"12 dollars at Starbucks", "12"},
		{"12 bucks at Starbucks", "12"},
		{"$12 at Starbucks", "12"},
		{"12$ at Starbucks", "12"},
		{"spent 4.75 at Kosa", "4.75"},
		{"spent 4.5 at Kosa", "4"},
		{"paid 20 then 30 dollars", "20"},
		{"twelve dollars at Starbucks", ""},
		{"spent 0 dollars", ""},
		{"spent -5 at Shell", ""},
		{"covid-19 test 30 dollars", "30"},
		{"X-5 for 20 dollars", "20"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got := Amount(tt.utterance)
			if tt.want == "" {
				assert.False(t, got.Valid, "got %v", got)
				return
			}
			require.True(t, got.Valid)
			assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tt.want)), "got %s", got.Decimal)
		})
	}
}

func TestAmountSuffixesAgree(t *testing.T) {
	for _, u := range []string{"12 dollars", "12 bucks", "$12", "12 dollar", "12 buck"} {
		got := Amount(u)
		require.True(t, got.Valid, u)
		assert.True(t, got.Decimal.Equal(decimal.NewFromInt(12)), u)
	}
}

func TestHeardMerchant(t *testing.T) {
	assert.Equal(t, "Kosaa", HeardMerchant("5 bucks at Kosaa for coffee"))
	assert.Equal(t, "shell", HeardMerchant("gas AT shell"))
	assert.Equal(t, "first", HeardMerchant("at first at second 4 dollars"))
	assert.Equal(t, "", HeardMerchant("spent 7 dollars on lunch"))
	// "at" inside another word is not a preposition.
	assert.Equal(t, "", HeardMerchant("that was 5 dollars"))
}

func TestMerchant(t *testing.T) {
	corrections := core.Corrections{"kosaa": "Kosa", "phil": "Phil & Sebastian"}

	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{"investment ticker variant", "bought one share of each max", "HMAX"},
		{"investment ytsl variant", "two shares of white sell", "YTSL"},
		{"investment ynvd variant", "etf why envied 100 dollars", "YNVD"},
		{"investment without ticker", "100 dollars stock purchase", "Wealthsimple"},
		{"investment ignores at token", "share at kosaa", Brokerage},
		{"at token capitalized", "12 dollars at chipotle", "Chipotle"},
		{"at token corrected", "5 bucks at kosaa", "Kosa"},
		{"vendor scan", "starbucks 6 dollars", "Starbucks"},
		{"vendor scan priority", "safeway then starbucks", "Starbucks"},
		{"vendor scan corrected", "phil 6 dollars", "Phil & Sebastian"},
		{"unknown", "spent 7 dollars on lunch", core.UnknownMerchant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merchant(tt.utterance, corrections))
		})
	}
}

func TestMerchantNilCorrections(t *testing.T) {
	assert.Equal(t, "Kosaa", Merchant("at kosaa", nil))
}

func TestExtractIsDeterministic(t *testing.T) {
	c := core.Corrections{"kosaa": "Kosa"}
	first := Extract("5 bucks at Kosaa", c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Extract("5 bucks at Kosaa", c))
	}
	assert.Equal(t, "Kosaa", first.OriginalMerchant)
	assert.Equal(t, "Kosa", first.Merchant)
}

func TestInstrumentVariants(t *testing.T) {
	for ticker, variants := range map[string][]string{
		"HMAX": {"hmax", "h max", "age max", "each max", "h m a x"},
		"YTSL": {"ytsl", "y t s l", "white sell", "y cell", "y tsl"},
		"YNVD": {"ynvd", "y n v d", "invited", "envied", "why envied", "y nvd"},
	} {
		for _, v := range variants {
			got, ok := Instrument("bought a share of " + v)
			require.True(t, ok)
			assert.Equal(t, ticker, got, v)
		}
	}

	_, ok := Instrument("coffee at kosa")
	assert.False(t, ok)
}

func TestIsInstrument(t *testing.T) {
	assert.True(t, IsInstrument("HMAX"))
	assert.True(t, IsInstrument("wealthsimple"))
	assert.False(t, IsInstrument("hmax"))
	assert.False(t, IsInstrument("Kosa"))
}

func TestKnownVendors(t *testing.T) {
	v := KnownVendors()
	require.NotEmpty(t, v)
	assert.Equal(t, "Starbucks", v[0])
}
