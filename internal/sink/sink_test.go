package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendvoice/internal/core"
)

func testPayload() Payload {
	return NewPayload(core.Transaction{
		ID:            1760434200000,
		Amount:        decimal.RequireFromString("4.50"),
		Merchant:      "Kosa",
		Category:      "Coffee + Cafes",
		Timestamp:     time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		Date:          "2026-10-14",
		Time:          "09:30 AM",
		RawTranscript: "spent 4.50 at kosa",
		Confidence:    0.85,
		Note:          "flat white",
	})
}

func TestPayloadJSONFields(t *testing.T) {
	b, err := json.Marshal(testPayload())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{
		"date", "timestamp", "amount", "merchant", "category",
		"subcategory", "raw_transcript", "confidence", "note",
	}, keys)
	assert.Equal(t, 4.5, m["amount"], "amount must be a JSON number")
	assert.Contains(t, string(b), `"amount":4.50`)
}

type staticEndpoint struct {
	url string
	err error
}

func (s staticEndpoint) WebhookURL(context.Context) (string, error) { return s.url, s.err }

func TestWebhookDeliver(t *testing.T) {
	var got Payload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(staticEndpoint{url: srv.URL}, srv.Client())
	require.NoError(t, wh.Deliver(context.Background(), testPayload()))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "Kosa", got.Merchant)
	assert.Equal(t, json.Number("4.50"), got.Amount)
	assert.Equal(t, "spent 4.50 at kosa", got.RawTranscript)
}

func TestWebhookFailures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer failing.Close()

	t.Run("non 2xx", func(t *testing.T) {
		err := NewWebhook(staticEndpoint{url: failing.URL}, failing.Client()).Deliver(context.Background(), testPayload())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("not configured", func(t *testing.T) {
		err := NewWebhook(staticEndpoint{url: "  "}, nil).Deliver(context.Background(), testPayload())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("endpoint lookup error", func(t *testing.T) {
		boom := errors.New("store closed")
		err := NewWebhook(staticEndpoint{err: boom}, nil).Deliver(context.Background(), testPayload())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		err := NewWebhook(staticEndpoint{url: url}, nil).Deliver(context.Background(), testPayload())
		assert.Error(t, err)
	})
}

type fakePublisher struct {
	exchange, key string
	msg           amqp091.Publishing
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestBrokerDeliver(t *testing.T) {
	pub := &fakePublisher{}
	b := NewBroker(pub, "spendvoice", "transactions")

	require.NoError(t, b.Deliver(context.Background(), testPayload()))
	assert.Equal(t, "spendvoice", pub.exchange)
	assert.Equal(t, "transactions", pub.key)
	assert.Equal(t, amqp091.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "application/json", pub.msg.ContentType)

	var got Payload
	require.NoError(t, json.Unmarshal(pub.msg.Body, &got))
	assert.Equal(t, "Kosa", got.Merchant)

	pub.err = errors.New("channel closed")
	assert.ErrorContains(t, b.Deliver(context.Background(), testPayload()), "channel closed")
}

func TestSheetsDeliver(t *testing.T) {
	var path, inputOption string
	var body gsheet.ValueRange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		inputOption = r.URL.Query().Get("valueInputOption")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	s := NewSheets(svc, "sheet-1", "")
	require.NoError(t, s.Deliver(context.Background(), testPayload()))

	assert.True(t, strings.HasSuffix(path, ":append"), path)
	assert.Contains(t, path, "sheet-1")
	assert.Equal(t, "USER_ENTERED", inputOption)
	require.Len(t, body.Values, 1)
	require.Len(t, body.Values[0], len(SheetHeader))
	assert.Equal(t, "2026-10-14", body.Values[0][0])
	assert.Equal(t, "4.50", body.Values[0][2])
	assert.Equal(t, "Kosa", body.Values[0][3])
}

func TestSheetsWithoutService(t *testing.T) {
	assert.Error(t, NewSheets(nil, "id", "Tab").Deliver(context.Background(), testPayload()))
}

type recordingSink struct {
	name  string
	err   error
	delay time.Duration
	mu    sync.Mutex
	got   []Payload
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Deliver(ctx context.Context, p Payload) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.got = append(r.got, p)
	r.mu.Unlock()
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestDispatcherDoesNotBlockAndDeliversOnce(t *testing.T) {
	slow := &recordingSink{name: "slow", delay: 50 * time.Millisecond}
	failing := &recordingSink{name: "failing", err: errors.New("boom")}
	d := NewDispatcher([]Sink{slow, failing})

	start := time.Now()
	d.Dispatch(context.Background(), testPayload())
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	d.Wait()
	assert.Equal(t, 1, slow.count())
	assert.Equal(t, 1, failing.count(), "failed deliveries are not retried")
}

func TestDispatcherSurvivesCallerCancel(t *testing.T) {
	s := &recordingSink{name: "slow", delay: 20 * time.Millisecond}
	d := NewDispatcher([]Sink{s})

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, testPayload())
	cancel()
	d.Wait()

	assert.Equal(t, 1, s.count())
}

func TestDispatcherTimeout(t *testing.T) {
	s := &recordingSink{name: "stuck", delay: time.Hour}
	d := NewDispatcher([]Sink{s}, WithTimeout(10*time.Millisecond))

	d.Dispatch(context.Background(), testPayload())
	d.Wait()
	assert.Equal(t, 0, s.count())
}

type countingSink struct{ n atomic.Int32 }

func (c *countingSink) Name() string { return "count" }
func (c *countingSink) Deliver(context.Context, Payload) error {
	c.n.Add(1)
	return ErrNotConfigured
}

func TestDispatcherNoSinks(t *testing.T) {
	d := NewDispatcher(nil)
	d.Dispatch(context.Background(), testPayload())
	d.Wait()

	c := &countingSink{}
	d = NewDispatcher([]Sink{c})
	d.Dispatch(context.Background(), testPayload())
	d.Dispatch(context.Background(), testPayload())
	d.Wait()
	assert.EqualValues(t, 2, c.n.Load())
}
