package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendvoice/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "spendvoice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteDayRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, found, err := repo.LoadDay(ctx, "2026-10-14")
	require.NoError(t, err)
	assert.False(t, found)

	ts := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	day := []core.Transaction{{
		ID:            ts.UnixMilli(),
		Amount:        decimal.RequireFromString("12.50"),
		Merchant:      "Starbucks",
		Category:      "Coffee + Cafes",
		Timestamp:     ts,
		Date:          "2026-10-14",
		Time:          "09:30 AM",
		RawTranscript: "12.50 at Starbucks",
		Confidence:    0.85,
	}}
	require.NoError(t, repo.SaveDay(ctx, "2026-10-14", day))

	got, found, err := repo.LoadDay(ctx, "2026-10-14")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, day[0].ID, got[0].ID)
	assert.True(t, day[0].Amount.Equal(got[0].Amount))
	assert.True(t, day[0].Timestamp.Equal(got[0].Timestamp))
	assert.Equal(t, "Starbucks", got[0].Merchant)

	// Replacing the record keeps one row per date.
	require.NoError(t, repo.SaveDay(ctx, "2026-10-14", nil))
	got, found, err = repo.LoadDay(ctx, "2026-10-14")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)

	require.NoError(t, repo.SaveDay(ctx, "2026-10-02", day))
	days, err := repo.ListDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-10-02", "2026-10-14"}, days)

	require.NoError(t, repo.DeleteDay(ctx, "2026-10-14"))
	require.NoError(t, repo.DeleteDay(ctx, "2026-10-20"))
	days, _ = repo.ListDays(ctx)
	assert.Equal(t, []string{"2026-10-02"}, days)
}

func TestSQLiteCorrections(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.PutCorrection(ctx, "Kosaa", "Kosa"))
	require.NoError(t, repo.PutCorrection(ctx, " kosaa", "Kosa Cafe"))
	require.NoError(t, repo.PutCorrection(ctx, "shel", "Shell"))

	c, err := repo.LoadCorrections(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Corrections{"kosaa": "Kosa Cafe", "shel": "Shell"}, c)

	require.NoError(t, repo.ClearCorrections(ctx))
	c, err = repo.LoadCorrections(ctx)
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestSQLiteWebhookURL(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	url, err := repo.WebhookURL(ctx)
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, repo.SetWebhookURL(ctx, "https://hook.example/a"))
	require.NoError(t, repo.SetWebhookURL(ctx, "https://hook.example/b"))
	url, err = repo.WebhookURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://hook.example/b", url)

	require.NoError(t, repo.SetWebhookURL(ctx, ""))
	url, _ = repo.WebhookURL(ctx)
	assert.Empty(t, url)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spendvoice.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.PutCorrection(ctx, "kosaa", "Kosa"))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	c, err := repo.LoadCorrections(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kosa", c["kosaa"])
}
