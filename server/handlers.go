package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// processRequest covers the Supabase INSERT webhook payload shape as well
// as a bare {"id": ...} body.
type processRequest struct {
	ID     string `json:"id"`
	Record struct {
		ID string `json:"id"`
	} `json:"record"`
}

type queryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"userId"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	request := &processRequest{}
	err := json.NewDecoder(r.Body).Decode(request)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	rawID := request.Record.ID
	if rawID == "" {
		rawID = request.ID
	}
	if rawID == "" {
		// Acknowledge receipt so the webhook is not retried for a payload
		// that will never contain an entry id.
		s.logger.Warn("Webhook received without entry id")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Payload received, but no entry ID found."})
		return
	}

	entryID, err := uuid.Parse(rawID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid entry id"})
		return
	}

	s.logger.Info("Processing entry from webhook", slog.String("entryId", entryID.String()))
	result, err := s.processor.Process(r.Context(), entryID)
	if err != nil {
		s.logger.Error("Processing entry failed", slog.String("entryId", entryID.String()), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	response := map[string]any{"success": true, "entryId": entryID.String()}
	if result.Message != "" {
		response["message"] = result.Message
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	request := &queryRequest{}
	err := json.NewDecoder(r.Body).Decode(request)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	if request.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "query is required"})
		return
	}
	if request.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "userId is required"})
		return
	}

	userID, err := uuid.Parse(request.UserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid userId"})
		return
	}

	answer, err := s.answerer.Answer(r.Context(), request.Query, userID)
	if err != nil {
		s.logger.Error("Answering query failed", slog.String("userId", userID.String()), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Postcard backend is running."))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
