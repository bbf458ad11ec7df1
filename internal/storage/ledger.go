package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spendvoice/internal/classify"
	"spendvoice/internal/core"
)

// Editable transaction fields.
const (
	FieldAmount      = "amount"
	FieldMerchant    = "merchant"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldNote        = "note"
)

// Ledger is the date-partitioned transaction store. Edits and removals only
// ever touch the current day.
type Ledger struct {
	days DayStore
	now  func() time.Time
	loc  *time.Location
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the zone whose midnight separates storage days.
func WithLocation(loc *time.Location) LedgerOption {
	return func(l *Ledger) { l.loc = loc }
}

func NewLedger(days DayStore, opts ...LedgerOption) *Ledger {
	l := &Ledger{days: days, now: time.Now, loc: time.Local}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Now returns the ledger's current instant.
func (l *Ledger) Now() time.Time { return l.now() }

// Location returns the day-boundary zone.
func (l *Ledger) Location() *time.Location { return l.loc }

// Today returns the partition key of the current day.
func (l *Ledger) Today() string { return core.DayKey(l.now(), l.loc) }

// CurrentMonth returns the month containing today.
func (l *Ledger) CurrentMonth() core.YearMonth { return core.YearMonthOf(l.now(), l.loc) }

// Day returns the transactions filed under date, most recent first. An absent
// day yields nil.
func (l *Ledger) Day(ctx context.Context, date string) ([]core.Transaction, error) {
	txs, _, err := l.days.LoadDay(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load day %s: %w", date, err)
	}
	return txs, nil
}

// Put replaces the record for date with day.
func (l *Ledger) Put(ctx context.Context, date string, day []core.Transaction) error {
	if err := l.days.SaveDay(ctx, date, day); err != nil {
		return fmt.Errorf("save day %s: %w", date, err)
	}
	return nil
}

// Append prepends tx to the sequence stored under date and persists it.
func (l *Ledger) Append(ctx context.Context, date string, tx core.Transaction) ([]core.Transaction, error) {
	day, err := l.Day(ctx, date)
	if err != nil {
		return nil, err
	}
	updated := Prepend(tx, day)
	if err := l.Put(ctx, date, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateField replaces one field of a transaction filed today and marks it edited.
func (l *Ledger) UpdateField(ctx context.Context, id int64, field, value string) (core.Transaction, error) {
	date := l.Today()
	day, err := l.Day(ctx, date)
	if err != nil {
		return core.Transaction{}, err
	}

	idx := indexOf(day, id)
	if idx < 0 {
		return core.Transaction{}, fmt.Errorf("%w: id %d on %s", core.ErrTransactionNotFound, id, date)
	}

	updated := make([]core.Transaction, len(day))
	copy(updated, day)
	tx := updated[idx]
	if err := setField(&tx, field, value); err != nil {
		return core.Transaction{}, err
	}
	tx.Edited = true
	updated[idx] = tx

	if err := l.Put(ctx, date, updated); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Remove drops a transaction from today's sequence.
func (l *Ledger) Remove(ctx context.Context, id int64) error {
	date := l.Today()
	day, err := l.Day(ctx, date)
	if err != nil {
		return err
	}
	if indexOf(day, id) < 0 {
		return fmt.Errorf("%w: id %d on %s", core.ErrTransactionNotFound, id, date)
	}

	kept := make([]core.Transaction, 0, len(day)-1)
	for _, t := range day {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return l.Put(ctx, date, kept)
}

// LoadMonth reads every day of ym. Days with no stored record are left out.
func (l *Ledger) LoadMonth(ctx context.Context, ym core.YearMonth) (core.MonthAggregate, error) {
	month := core.MonthAggregate{}
	for _, date := range ym.Days() {
		txs, found, err := l.days.LoadDay(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("load month %s: day %s: %w", ym, date, err)
		}
		if found {
			month[date] = txs
		}
	}
	return month, nil
}

// ClearMonth erases the record of every day in ym.
func (l *Ledger) ClearMonth(ctx context.Context, ym core.YearMonth) error {
	for _, date := range ym.Days() {
		if err := l.days.DeleteDay(ctx, date); err != nil {
			return fmt.Errorf("clear month %s: day %s: %w", ym, date, err)
		}
	}
	return nil
}

// Prepend returns a new slice with tx in front of day.
func Prepend(tx core.Transaction, day []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(day)+1)
	out = append(out, tx)
	return append(out, day...)
}

func indexOf(day []core.Transaction, id int64) int {
	for i, t := range day {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func setField(tx *core.Transaction, field, value string) error {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldAmount:
		amount, err := core.ParseAmount(value)
		if err != nil {
			return err
		}
		tx.Amount = amount
	case FieldMerchant:
		value = strings.TrimSpace(value)
		if value == "" {
			value = core.UnknownMerchant
		}
		tx.Merchant = value
	case FieldCategory:
		category, ok := classify.Canonical(value)
		if !ok {
			return fmt.Errorf("%w: %q", core.ErrUnknownCategory, value)
		}
		tx.Category = category
	case FieldSubcategory:
		tx.Subcategory = strings.TrimSpace(value)
	case FieldNote:
		tx.Note = value
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownField, field)
	}
	return nil
}
