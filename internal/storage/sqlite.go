package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"spendvoice/internal/core"
)

const settingWebhookURL = "webhook_url"

// SQLiteRepository keeps one row per day partition, one per learned correction
// and one per setting.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers; each day write is one statement.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadDay implements DayStore
func (r *SQLiteRepository) LoadDay(ctx context.Context, date string) ([]core.Transaction, bool, error) {
	query, args, err := sq.Select("payload").From("day_partitions").Where(sq.Eq{"date": date}).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build query: %w", err)
	}

	var payload string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get day %s: %w", date, err)
	}

	var txs []core.Transaction
	if err := json.Unmarshal([]byte(payload), &txs); err != nil {
		return nil, false, fmt.Errorf("decode day %s: %w", date, err)
	}
	return txs, true, nil
}

// SaveDay implements DayStore
func (r *SQLiteRepository) SaveDay(ctx context.Context, date string, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	payload, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode day %s: %w", date, err)
	}

	query, args, err := sq.Replace("day_partitions").
		Columns("date", "payload", "updated_at").
		Values(date, string(payload), sq.Expr("CURRENT_TIMESTAMP")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save day %s: %w", date, err)
	}

	slog.DebugContext(ctx, "Day partition saved to SQLite", "date", date, "count", len(txs))
	return nil
}

// DeleteDay implements DayStore
func (r *SQLiteRepository) DeleteDay(ctx context.Context, date string) error {
	query, args, err := sq.Delete("day_partitions").Where(sq.Eq{"date": date}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete day %s: %w", date, err)
	}
	return nil
}

// ListDays implements DayStore
func (r *SQLiteRepository) ListDays(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("date").From("day_partitions").OrderBy("date ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// LoadCorrections implements CorrectionStore
func (r *SQLiteRepository) LoadCorrections(ctx context.Context) (core.Corrections, error) {
	query, args, err := sq.Select("heard", "corrected").From("merchant_corrections").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	out := core.Corrections{}
	for rows.Next() {
		var heard, corrected string
		if err := rows.Scan(&heard, &corrected); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		out[heard] = corrected
	}
	return out, rows.Err()
}

// PutCorrection implements CorrectionStore. heard is normalized before storing.
func (r *SQLiteRepository) PutCorrection(ctx context.Context, heard, corrected string) error {
	query, args, err := sq.Replace("merchant_corrections").
		Columns("heard", "corrected", "updated_at").
		Values(core.NormalizeMerchantKey(heard), corrected, sq.Expr("CURRENT_TIMESTAMP")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put correction: %w", err)
	}
	return nil
}

// ClearCorrections implements CorrectionStore
func (r *SQLiteRepository) ClearCorrections(ctx context.Context) error {
	query, args, err := sq.Delete("merchant_corrections").ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear corrections: %w", err)
	}
	return nil
}

// WebhookURL implements SettingsStore
func (r *SQLiteRepository) WebhookURL(ctx context.Context) (string, error) {
	query, args, err := sq.Select("value").From("settings").Where(sq.Eq{"key": settingWebhookURL}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}
	var url string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get webhook url: %w", err)
	}
	return url, nil
}

// SetWebhookURL implements SettingsStore
func (r *SQLiteRepository) SetWebhookURL(ctx context.Context, url string) error {
	var (
		query string
		args  []any
		err   error
	)
	if url == "" {
		query, args, err = sq.Delete("settings").Where(sq.Eq{"key": settingWebhookURL}).ToSql()
	} else {
		query, args, err = sq.Replace("settings").Columns("key", "value").Values(settingWebhookURL, url).ToSql()
	}
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set webhook url: %w", err)
	}
	return nil
}
