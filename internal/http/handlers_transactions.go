package http

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"spendvoice/internal/core"
)

type saveResponse struct {
	Transaction core.Transaction   `json:"transaction"`
	Day         []core.Transaction `json:"day"`
	DayTotal    decimal.Decimal    `json:"day_total"`
	MonthTotal  decimal.Decimal    `json:"month_total"`
}

type dayResponse struct {
	Date         string             `json:"date"`
	Transactions []core.Transaction `json:"transactions"`
	Total        decimal.Decimal    `json:"total"`
}

type editRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// handleCreateTransaction confirms a draft. A repeat confirmation inside the
// duplicate window answers 409 with {"saved":false}.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var draft core.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.Merchant = sanitizeInput(draft.Merchant)
	draft.OriginalMerchant = sanitizeInput(draft.OriginalMerchant)
	draft.Category = sanitizeInput(draft.Category)
	draft.Subcategory = sanitizeInput(draft.Subcategory)
	draft.Note = sanitizeInput(draft.Note)

	res, err := s.saver.Confirm(r.Context(), draft)
	if errors.Is(err, core.ErrDuplicateSave) {
		writeJSON(w, http.StatusConflict, map[string]bool{"saved": false})
		return
	}
	if err != nil {
		writeError(w, r, "save", err)
		return
	}
	s.invalidateMonths()

	writeJSON(w, http.StatusCreated, saveResponse{
		Transaction: res.Transaction,
		Day:         res.Day,
		DayTotal:    core.SumDay(res.Day),
		MonthTotal:  res.Month.Total(),
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	date := s.ledger.Today()
	day, err := s.ledger.Day(r.Context(), date)
	if err != nil {
		writeError(w, r, "load today", err)
		return
	}
	if day == nil {
		day = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, dayResponse{Date: date, Transactions: day, Total: core.SumDay(day)})
}

// handleEditTransaction changes one field of a transaction filed today.
func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := s.saver.Edit(r.Context(), id, req.Field, sanitizeInput(req.Value))
	if err != nil {
		writeError(w, r, "edit", err)
		return
	}
	s.invalidateMonths()
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	if err := s.saver.Remove(r.Context(), id); err != nil {
		writeError(w, r, "delete", err)
		return
	}
	s.invalidateMonths()
	w.WriteHeader(http.StatusNoContent)
}
