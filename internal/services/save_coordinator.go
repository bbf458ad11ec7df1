package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"spendvoice/internal/classify"
	"spendvoice/internal/core"
	"spendvoice/internal/log"
	"spendvoice/internal/metrics"
	"spendvoice/internal/sink"
	"spendvoice/internal/storage"
)

// DefaultDuplicateWindow is how soon after a successful save another save is
// treated as an accidental double confirmation.
const DefaultDuplicateWindow = 2 * time.Second

// Dispatcher hands a committed transaction to the external sinks without
// blocking.
type Dispatcher interface {
	Dispatch(ctx context.Context, p sink.Payload)
}

// SaveResult is the state after a successful commit.
type SaveResult struct {
	Transaction core.Transaction    `json:"transaction"`
	Day         []core.Transaction  `json:"day"`
	Month       core.MonthAggregate `json:"-"`
}

// SaveCoordinator is the single writer of the transaction ledger, the
// correction memory and the sink setting. Every mutation holds mu.
type SaveCoordinator struct {
	mu         sync.Mutex
	ledger     *storage.Ledger
	store      storage.Backend
	dispatcher Dispatcher
	window     time.Duration
	lastSave   time.Time
	lastID     int64
	metrics    *metrics.Metrics
	logger     *log.Logger
}

type Option func(*SaveCoordinator)

func WithDuplicateWindow(d time.Duration) Option {
	return func(c *SaveCoordinator) { c.window = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *SaveCoordinator) { c.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(c *SaveCoordinator) { c.logger = l.WithComponent(log.ComponentSave) }
}

// NewSaveCoordinator wires the coordinator. dispatcher may be nil.
func NewSaveCoordinator(ledger *storage.Ledger, store storage.Backend, dispatcher Dispatcher, opts ...Option) *SaveCoordinator {
	c := &SaveCoordinator{
		ledger:     ledger,
		store:      store,
		dispatcher: dispatcher,
		window:     DefaultDuplicateWindow,
		logger:     log.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Confirm commits draft against the stored state of today and this month.
func (c *SaveCoordinator) Confirm(ctx context.Context, draft core.Draft) (SaveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// One clock read dates the transaction and picks the day and month it joins.
	now := c.ledger.Now()
	loc := c.ledger.Location()
	day, err := c.ledger.Day(ctx, core.DayKey(now, loc))
	if err != nil {
		return SaveResult{}, err
	}
	month, err := c.ledger.LoadMonth(ctx, core.YearMonthOf(now, loc))
	if err != nil {
		return SaveResult{}, err
	}
	return c.save(ctx, draft, day, month, now)
}

// Save commits draft on top of day, the caller's copy of today's sequence,
// and returns the updated day and month. It fails with core.ErrDuplicateSave
// inside the duplicate window and core.ErrInvalidAmount for a missing or
// non-positive amount; neither touches any store.
func (c *SaveCoordinator) Save(ctx context.Context, draft core.Draft, day []core.Transaction, month core.MonthAggregate) (SaveResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, draft, day, month, c.ledger.Now())
}

func (c *SaveCoordinator) save(ctx context.Context, draft core.Draft, day []core.Transaction, month core.MonthAggregate, now time.Time) (SaveResult, error) {

	if c.window > 0 && !c.lastSave.IsZero() && now.Sub(c.lastSave) < c.window {
		c.metrics.RecordSave(ctx, metrics.OutcomeDuplicate)
		c.logger.InfoContext(ctx, "Duplicate save blocked",
			"since_last_ms", now.Sub(c.lastSave).Milliseconds())
		return SaveResult{}, core.ErrDuplicateSave
	}

	if err := draft.Validate(); err != nil {
		c.metrics.RecordSave(ctx, metrics.OutcomeInvalid)
		return SaveResult{}, err
	}

	tx := c.build(draft, now)
	updated := storage.Prepend(tx, day)
	if err := c.ledger.Put(ctx, tx.Date, updated); err != nil {
		c.metrics.RecordSave(ctx, metrics.OutcomeError)
		return SaveResult{}, fmt.Errorf("commit transaction: %w", err)
	}
	c.lastSave = now
	c.lastID = tx.ID
	c.metrics.RecordSave(ctx, metrics.OutcomeSaved)

	c.logger.InfoContext(ctx, "Transaction saved", log.NewFields().
		WithTransaction(tx.ID, tx.Date, tx.Amount.String(), tx.Merchant, tx.Category).
		ToSlice()...)

	c.learn(ctx, draft.OriginalMerchant, tx.Merchant)

	if c.dispatcher != nil {
		c.dispatcher.Dispatch(ctx, sink.NewPayload(tx))
	}

	if month == nil {
		month = core.MonthAggregate{}
	}
	return SaveResult{
		Transaction: tx,
		Day:         updated,
		Month:       month.With(tx.Date, updated),
	}, nil
}

func (c *SaveCoordinator) build(d core.Draft, now time.Time) core.Transaction {
	id := now.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}

	merchant := strings.TrimSpace(d.Merchant)
	if merchant == "" {
		merchant = core.UnknownMerchant
	}
	category := strings.TrimSpace(d.Category)
	if canonical, ok := classify.Canonical(category); ok {
		category = canonical
	} else if category == "" {
		category = core.CategoryMisc
	}
	confidence := d.Confidence
	if confidence == 0 {
		confidence = core.ConfidenceAmountFound
	}

	local := now.In(c.ledger.Location())
	return core.Transaction{
		ID:            id,
		Amount:        d.Amount.Decimal,
		Merchant:      merchant,
		Category:      category,
		Subcategory:   d.Subcategory,
		Timestamp:     now,
		Date:          core.DayKey(now, c.ledger.Location()),
		Time:          local.Format(core.TimeLayout),
		RawTranscript: d.RawTranscript,
		Confidence:    confidence,
		Edited:        false,
		Note:          d.Note,
	}
}

// learn records heard -> merchant when the user changed the proposed name.
// Failures are logged; the commit has already happened.
func (c *SaveCoordinator) learn(ctx context.Context, heard, merchant string) {
	heard = strings.TrimSpace(heard)
	if heard == "" || merchant == core.UnknownMerchant || strings.EqualFold(heard, merchant) {
		return
	}
	key := core.NormalizeMerchantKey(heard)
	if err := c.store.PutCorrection(ctx, key, merchant); err != nil {
		c.logger.ErrorContext(ctx, "Failed to store merchant correction",
			log.FieldHeardAs, key, log.FieldCorrectedTo, merchant, log.FieldError, err)
		return
	}
	c.metrics.RecordCorrection(ctx)
	c.logger.InfoContext(ctx, "Learned merchant correction",
		log.FieldHeardAs, key, log.FieldCorrectedTo, merchant)
}

// Edit changes one field of a transaction filed today.
func (c *SaveCoordinator) Edit(ctx context.Context, id int64, field, value string) (core.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.UpdateField(ctx, id, field, value)
}

// Remove deletes a transaction filed today.
func (c *SaveCoordinator) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Remove(ctx, id)
}

// ClearMonth erases every day of ym.
func (c *SaveCoordinator) ClearMonth(ctx context.Context, ym core.YearMonth) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.ClearMonth(ctx, ym)
}

// SetWebhookURL stores the sink endpoint; "" clears it.
func (c *SaveCoordinator) SetWebhookURL(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetWebhookURL(ctx, strings.TrimSpace(url)); err != nil {
		return fmt.Errorf("set webhook url: %w", err)
	}
	return nil
}
