package http

import (
	"net/http"
	"unicode/utf8"

	"spendvoice/internal/core"
	"spendvoice/internal/parser"
)

const maxUtteranceRunes = 1000

type parseRequest struct {
	Utterance string `json:"utterance"`
}

type parseResponse struct {
	core.Draft
	Stages []string `json:"stages"`
}

// handleParse turns one finished utterance into an editable draft. Nothing
// is stored.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if utf8.RuneCountInString(req.Utterance) > maxUtteranceRunes {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "utterance is too long"})
		return
	}

	stages := make([]string, 0, 3)
	draft, err := s.parser.Parse(r.Context(), sanitizeInput(req.Utterance), func(st parser.Stage) {
		stages = append(stages, st.String())
	})
	if err != nil {
		writeError(w, r, "parse", err)
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{Draft: draft, Stages: stages})
}
