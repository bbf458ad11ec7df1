package storage

import (
	"context"

	"spendvoice/internal/core"
)

// Ports implemented by every persistence backend.
type (
	// DayStore persists one record per calendar date. SaveDay replaces the whole
	// record in a single write.
	DayStore interface {
		LoadDay(ctx context.Context, date string) (txs []core.Transaction, found bool, err error)
		SaveDay(ctx context.Context, date string, txs []core.Transaction) error
		DeleteDay(ctx context.Context, date string) error
		// ListDays returns every stored partition key in ascending order.
		ListDays(ctx context.Context) ([]string, error)
	}

	// CorrectionStore persists the learned merchant corrections.
	CorrectionStore interface {
		LoadCorrections(ctx context.Context) (core.Corrections, error)
		PutCorrection(ctx context.Context, heard, corrected string) error
		ClearCorrections(ctx context.Context) error
	}

	// SettingsStore persists the optional sink endpoint.
	SettingsStore interface {
		WebhookURL(ctx context.Context) (string, error)
		// SetWebhookURL stores url; an empty url clears the setting.
		SetWebhookURL(ctx context.Context, url string) error
	}

	// Backend bundles the three stores.
	Backend interface {
		DayStore
		CorrectionStore
		SettingsStore
		Close() error
	}
)
