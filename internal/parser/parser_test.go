package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendvoice/internal/classify"
	"spendvoice/internal/core"
)

type fakeCorrections struct {
	table core.Corrections
	err   error
	calls int
}

func (f *fakeCorrections) LoadCorrections(context.Context) (core.Corrections, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.table.Clone(), nil
}

func newParser(table core.Corrections, opts ...Option) *Parser {
	return New(&fakeCorrections{table: table}, opts...)
}

func TestParseScenarios(t *testing.T) {
	tests := []struct {
		name       string
		utterance  string
		amount     string // "" means null
		merchant   string
		category   string
		confidence float64
		valid      bool
	}{
		{
			name:       "investment ticker misrecognition",
			utterance:  "bought one share of each max",
			merchant:   "HMAX",
			category:   classify.Investments,
			confidence: core.ConfidenceAmountMissing,
		},
		{
			name:       "unknown merchant with valid amount",
			utterance:  "spent 7 dollars on lunch",
			amount:     "7",
			merchant:   core.UnknownMerchant,
			category:   core.CategoryMisc,
			confidence: core.ConfidenceAmountFound,
		},
		{
			name:       "negative amount treated as absent",
			utterance:  "spent -5 at Shell",
			merchant:   "Shell",
			category:   classify.Car,
			confidence: core.ConfidenceAmountMissing,
		},
		{
			name:       "complete utterance",
			utterance:  "spent 12 dollars at starbucks",
			amount:     "12",
			merchant:   "Starbucks",
			category:   classify.Coffee,
			confidence: core.ConfidenceAmountFound,
			valid:      true,
		},
		{
			name:       "no numeric token",
			utterance:  "coffee at kosa",
			merchant:   "Kosa",
			category:   classify.Coffee,
			confidence: core.ConfidenceAmountMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := newParser(nil).Parse(context.Background(), tt.utterance, nil)
			require.NoError(t, err)

			if tt.amount == "" {
				assert.False(t, d.Amount.Valid)
			} else {
				require.True(t, d.Amount.Valid)
				assert.True(t, d.Amount.Decimal.Equal(decimal.RequireFromString(tt.amount)), "amount %s", d.Amount.Decimal)
			}
			assert.Equal(t, tt.merchant, d.Merchant)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.confidence, d.Confidence)
			assert.Equal(t, tt.valid, d.IsValid)
			assert.Equal(t, tt.utterance, d.RawTranscript)
			assert.Empty(t, d.Subcategory)
			assert.Empty(t, d.Note)
		})
	}
}

func TestParseAmountSuffixesAgree(t *testing.T) {
	p := newParser(nil)
	for _, u := range []string{"12 dollars at shell", "12 bucks at shell", "$12 at shell"} {
		d, err := p.Parse(context.Background(), u, nil)
		require.NoError(t, err)
		require.True(t, d.Amount.Valid, u)
		assert.True(t, d.Amount.Decimal.Equal(decimal.NewFromInt(12)), u)
	}
}

func TestParseUsesLearnedCorrection(t *testing.T) {
	p := newParser(core.Corrections{"kosaa": "Kosa"})

	d, err := p.Parse(context.Background(), "spent 5 at Kosaa", nil)
	require.NoError(t, err)

	assert.Equal(t, "Kosa", d.Merchant)
	assert.Equal(t, "Kosaa", d.OriginalMerchant)
	assert.Equal(t, classify.Coffee, d.Category)
	assert.True(t, d.IsValid)
}

func TestParseReportsStagesInOrder(t *testing.T) {
	var got []Stage
	_, err := newParser(nil).Parse(context.Background(), "spent 5 at shell", func(s Stage) {
		got = append(got, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageExtractingAmount, StageIdentifyingMerchant, StageDetectingCategory}, got)
}

func TestParseFailureReturnsNoDraft(t *testing.T) {
	t.Run("corrections unreadable", func(t *testing.T) {
		boom := errors.New("disk gone")
		p := New(&fakeCorrections{err: boom})

		d, err := p.Parse(context.Background(), "spent 5 at shell", nil)
		require.ErrorIs(t, err, boom)
		assert.Equal(t, core.Draft{}, d)
	})

	t.Run("cancelled mid parse", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var stages []Stage
		d, err := newParser(nil).Parse(ctx, "spent 5 at shell", func(s Stage) {
			stages = append(stages, s)
			if s == StageIdentifyingMerchant {
				cancel()
			}
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, core.Draft{}, d)
		assert.Equal(t, []Stage{StageExtractingAmount, StageIdentifyingMerchant}, stages)
	})

	t.Run("cancelled during stage delay", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := newParser(nil, WithStageDelay(time.Hour)).Parse(ctx, "spent 5 at shell", nil)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestParseSuggestsForUnknownMerchant(t *testing.T) {
	d, err := newParser(nil).Parse(context.Background(), "paid 5 dollars for starbux coffee", nil)
	require.NoError(t, err)

	assert.Equal(t, core.UnknownMerchant, d.Merchant)
	assert.False(t, d.IsValid)
	assert.Equal(t, core.ConfidenceAmountFound, d.Confidence)
	require.NotEmpty(t, d.Suggestions)
	assert.Equal(t, "Starbucks", d.Suggestions[0])
	assert.LessOrEqual(t, len(d.Suggestions), maxSuggestions)
}

func TestParseSuggestionsAreStable(t *testing.T) {
	table := core.Corrections{"blue bird": "bluebird", "bluebert": "Bluebird"}
	for i := 0; i < 20; i++ {
		d, err := newParser(table).Parse(context.Background(), "paid 5 dollars for bluebirt latte", nil)
		require.NoError(t, err)
		require.NotEmpty(t, d.Suggestions)
		assert.Equal(t, "Bluebird", d.Suggestions[0])
		assert.NotContains(t, d.Suggestions, "bluebird")
	}
}

func TestCandidatesSortLearnedNames(t *testing.T) {
	got := candidates(core.Corrections{"b": "kosa", "a": "Zed", "c": "Kosa"})
	vendors := len(got) - 3
	assert.Equal(t, []string{"Kosa", "Zed", "kosa"}, got[vendors:])
}

func TestParseSuggestionsDisabled(t *testing.T) {
	d, err := newParser(nil, WithSuggestions(false)).Parse(context.Background(), "paid 5 dollars for starbux coffee", nil)
	require.NoError(t, err)
	assert.Nil(t, d.Suggestions)
}

func TestParseKnownMerchantHasNoSuggestions(t *testing.T) {
	d, err := newParser(nil).Parse(context.Background(), "spent 5 at starbucks", nil)
	require.NoError(t, err)
	assert.Nil(t, d.Suggestions)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "Extracting amount", StageExtractingAmount.String())
	assert.Equal(t, "Identifying merchant", StageIdentifyingMerchant.String())
	assert.Equal(t, "Detecting category", StageDetectingCategory.String())
	assert.Equal(t, "Stage(9)", Stage(9).String())
}
