package services

import (
	"context"
	"fmt"
	"time"

	"spendvoice/internal/core"
	"spendvoice/internal/log"
)

// ExportVersion tags the export document format.
const ExportVersion = "spendvoice-export/1"

// Export is a full snapshot of persisted state.
type Export struct {
	ExportedAt          time.Time                                `json:"exported_at"`
	Version             string                                   `json:"version"`
	Transactions        map[string]map[string][]core.Transaction `json:"transactions"`
	WebhookURL          string                                   `json:"webhook_url"`
	MerchantCorrections core.Corrections                         `json:"merchant_corrections"`
}

// Export reads every day partition, the sink setting and the correction
// memory. Transactions are keyed by month, then by date.
func (c *SaveCoordinator) Export(ctx context.Context) (Export, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dates, err := c.store.ListDays(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("list days: %w", err)
	}

	byMonth := make(map[string]map[string][]core.Transaction)
	for _, date := range dates {
		txs, found, err := c.store.LoadDay(ctx, date)
		if err != nil {
			return Export{}, fmt.Errorf("load day %s: %w", date, err)
		}
		if !found {
			continue
		}
		ym := date
		if len(date) >= len(core.YearMonthLayout) {
			ym = date[:len(core.YearMonthLayout)]
		}
		if byMonth[ym] == nil {
			byMonth[ym] = make(map[string][]core.Transaction)
		}
		byMonth[ym][date] = txs
	}

	url, err := c.store.WebhookURL(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("read webhook url: %w", err)
	}
	corrections, err := c.store.LoadCorrections(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("load corrections: %w", err)
	}
	if corrections == nil {
		corrections = core.Corrections{}
	}

	return Export{
		ExportedAt:          c.ledger.Now().UTC(),
		Version:             ExportVersion,
		Transactions:        byMonth,
		WebhookURL:          url,
		MerchantCorrections: corrections,
	}, nil
}

// EraseAll removes every day partition, the sink endpoint and the correction
// memory. The duplicate-save guard is reset with them.
func (c *SaveCoordinator) EraseAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dates, err := c.store.ListDays(ctx)
	if err != nil {
		return fmt.Errorf("list days: %w", err)
	}
	for _, date := range dates {
		if err := c.store.DeleteDay(ctx, date); err != nil {
			return fmt.Errorf("delete day %s: %w", date, err)
		}
	}
	if err := c.store.SetWebhookURL(ctx, ""); err != nil {
		return fmt.Errorf("clear webhook url: %w", err)
	}
	if err := c.store.ClearCorrections(ctx); err != nil {
		return fmt.Errorf("clear corrections: %w", err)
	}
	c.lastSave = time.Time{}

	c.logger.WarnContext(ctx, "All spending data erased",
		log.FieldOperation, log.OpErase, "days", len(dates))
	return nil
}
