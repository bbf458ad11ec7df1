package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"spendvoice/internal/core"
)

// monthView is the cached read model behind GET /api/months/{ym}.
type monthView struct {
	Month      string                        `json:"month"`
	Days       map[string][]core.Transaction `json:"days"`
	Count      int                           `json:"count"`
	Total      decimal.Decimal               `json:"total"`
	ByCategory []core.CategoryAmount         `json:"by_category"`
}

type webhookSetting struct {
	URL string `json:"url"`
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	ym, err := core.ParseYearMonth(r.PathValue("ym"))
	if err != nil {
		writeError(w, r, "load month", err)
		return
	}
	key := ym.String()
	if view, ok := s.months.Get(key); ok {
		writeJSON(w, http.StatusOK, view)
		return
	}

	month, err := s.ledger.LoadMonth(r.Context(), ym)
	if err != nil {
		writeError(w, r, "load month", err)
		return
	}
	view := monthView{
		Month:      key,
		Days:       month,
		Count:      month.Count(),
		Total:      month.Total(),
		ByCategory: month.ByCategory(),
	}
	s.months.Set(key, view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleClearMonth(w http.ResponseWriter, r *http.Request) {
	ym, err := core.ParseYearMonth(r.PathValue("ym"))
	if err != nil {
		writeError(w, r, "clear month", err)
		return
	}
	if err := s.saver.ClearMonth(r.Context(), ym); err != nil {
		writeError(w, r, "clear month", err)
		return
	}
	s.invalidateMonths()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.WebhookURL(r.Context())
	if err != nil {
		writeError(w, r, "read webhook url", err)
		return
	}
	writeJSON(w, http.StatusOK, webhookSetting{URL: u})
}

// handlePutWebhook stores the sink endpoint. An empty url disables the sink.
func (s *Server) handlePutWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookSetting
	if !decodeJSON(w, r, &req) {
		return
	}
	raw := strings.TrimSpace(req.URL)
	if raw != "" {
		if err := validateEndpoint(raw); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
			return
		}
	}
	if err := s.saver.SetWebhookURL(r.Context(), raw); err != nil {
		writeError(w, r, "set webhook url", err)
		return
	}
	writeJSON(w, http.StatusOK, webhookSetting{URL: raw})
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("webhook url must include a host")
	}
	return nil
}

func (s *Server) handleCorrections(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.LoadCorrections(r.Context())
	if err != nil {
		writeError(w, r, "load corrections", err)
		return
	}
	if c == nil {
		c = core.Corrections{}
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := s.saver.Export(r.Context())
	if err != nil {
		writeError(w, r, "export", err)
		return
	}
	name := fmt.Sprintf("spendvoice-export-%s.json", core.DayKey(exp.ExportedAt, s.ledger.Location()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	writeJSON(w, http.StatusOK, exp)
}

// handleEraseAll wipes every day, the sink endpoint and the correction
// memory. It requires ?confirm=true.
func (s *Server) handleEraseAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		badRequest(w, "erasing all data requires confirm=true")
		return
	}
	if err := s.saver.EraseAll(r.Context()); err != nil {
		writeError(w, r, "erase", err)
		return
	}
	s.invalidateMonths()
	w.WriteHeader(http.StatusNoContent)
}
