// Package parser turns one finalized utterance into a draft transaction.
package parser

import (
	"context"
	"fmt"
	"sort"
	"time"

	"spendvoice/internal/classify"
	"spendvoice/internal/core"
	"spendvoice/internal/extract"
	"spendvoice/internal/log"
	"spendvoice/internal/metrics"
)

// Stage is one ordered parse checkpoint.
type Stage int

const (
	StageExtractingAmount Stage = iota + 1
	StageIdentifyingMerchant
	StageDetectingCategory
)

func (s Stage) String() string {
	switch s {
	case StageExtractingAmount:
		return "Extracting amount"
	case StageIdentifyingMerchant:
		return "Identifying merchant"
	case StageDetectingCategory:
		return "Detecting category"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Progress receives each stage as it starts.
type Progress func(Stage)

// CorrectionSource supplies the current correction memory.
type CorrectionSource interface {
	LoadCorrections(ctx context.Context) (core.Corrections, error)
}

// Parser sequences extraction, merchant resolution and classification.
type Parser struct {
	corrections CorrectionSource
	delay       time.Duration
	suggest     bool
	metrics     *metrics.Metrics
	logger      *log.Logger
}

type Option func(*Parser)

// WithStageDelay pauses after each checkpoint so a UI can render it.
func WithStageDelay(d time.Duration) Option {
	return func(p *Parser) { p.delay = d }
}

// WithSuggestions toggles phonetic suggestions for unknown merchants.
func WithSuggestions(enabled bool) Option {
	return func(p *Parser) { p.suggest = enabled }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Parser) { p.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Parser) { p.logger = l.WithComponent(log.ComponentParser) }
}

func New(corrections CorrectionSource, opts ...Option) *Parser {
	p := &Parser{
		corrections: corrections,
		suggest:     true,
		logger:      log.Discard(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse produces a draft for utterance. progress may be nil. Missing amounts
// and merchants are not errors; a cancelled context or unreadable correction
// memory is, and no draft is returned with it.
func (p *Parser) Parse(ctx context.Context, utterance string, progress Progress) (core.Draft, error) {
	start := time.Now()

	corrections, err := p.corrections.LoadCorrections(ctx)
	if err != nil {
		return core.Draft{}, fmt.Errorf("load corrections: %w", err)
	}

	if err := p.checkpoint(ctx, StageExtractingAmount, progress); err != nil {
		return core.Draft{}, err
	}
	amount := extract.Amount(utterance)

	if err := p.checkpoint(ctx, StageIdentifyingMerchant, progress); err != nil {
		return core.Draft{}, err
	}
	heard := extract.HeardMerchant(utterance)
	merchant := extract.Merchant(utterance, corrections)

	if err := p.checkpoint(ctx, StageDetectingCategory, progress); err != nil {
		return core.Draft{}, err
	}
	category := classify.Classify(merchant, utterance)

	confidence := core.ConfidenceAmountMissing
	if amount.Valid {
		confidence = core.ConfidenceAmountFound
	}

	draft := core.Draft{
		Amount:           amount,
		Merchant:         merchant,
		OriginalMerchant: heard,
		Category:         category,
		Confidence:       confidence,
		RawTranscript:    utterance,
		IsValid:          core.IsValidDraft(amount, merchant),
	}
	if p.suggest && merchant == core.UnknownMerchant {
		draft.Suggestions = Suggest(utterance, candidates(corrections))
	}

	p.metrics.RecordParse(ctx, amount.Valid, time.Since(start))
	p.logger.DebugContext(ctx, "Utterance parsed",
		log.FieldMerchant, draft.Merchant,
		log.FieldCategory, draft.Category,
		log.FieldConfidence, draft.Confidence,
	)
	return draft, nil
}

func (p *Parser) checkpoint(ctx context.Context, s Stage, progress Progress) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	if progress != nil {
		progress(s)
	}
	if p.delay <= 0 {
		return nil
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", s, ctx.Err())
	case <-t.C:
		return nil
	}
}

// candidates is every name a suggestion may propose: the vendor list plus
// every learned correction target.
func candidates(c core.Corrections) []string {
	learned := make([]string, 0, len(c))
	for _, name := range c {
		learned = append(learned, name)
	}
	sort.Strings(learned)
	return append(extract.KnownVendors(), learned...)
}
