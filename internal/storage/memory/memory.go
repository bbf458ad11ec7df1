// Package memory is an in-process storage backend used by tests and by the
// memory data backend. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"spendvoice/internal/core"
)

type Store struct {
	mu          sync.Mutex
	days        map[string][]core.Transaction
	corrections core.Corrections
	webhookURL  string
}

func New() *Store {
	return &Store{
		days:        map[string][]core.Transaction{},
		corrections: core.Corrections{},
	}
}

// LoadDay returns a copy of the stored day.
func (s *Store) LoadDay(_ context.Context, date string) ([]core.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, ok := s.days[date]
	if !ok {
		return nil, false, nil
	}
	return append([]core.Transaction(nil), txs...), true, nil
}

func (s *Store) SaveDay(_ context.Context, date string, txs []core.Transaction) error {
	cp := append([]core.Transaction{}, txs...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[date] = cp
	return nil
}

func (s *Store) DeleteDay(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.days, date)
	return nil
}

func (s *Store) ListDays(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) LoadCorrections(_ context.Context) (core.Corrections, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corrections.Clone(), nil
}

func (s *Store) PutCorrection(_ context.Context, heard, corrected string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrections[core.NormalizeMerchantKey(heard)] = corrected
	return nil
}

func (s *Store) ClearCorrections(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrections = core.Corrections{}
	return nil
}

func (s *Store) WebhookURL(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webhookURL, nil
}

func (s *Store) SetWebhookURL(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webhookURL = url
	return nil
}

func (s *Store) Close() error { return nil }
