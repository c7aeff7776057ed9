package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stupiduntilnot/reportchat/internal/chat"
	"github.com/stupiduntilnot/reportchat/internal/conversation"
	"github.com/stupiduntilnot/reportchat/internal/model"
	"github.com/stupiduntilnot/reportchat/internal/report"
)

type errorResponse struct {
	Error   string                `json:"error"`
	Message *conversation.Message `json:"message,omitempty"`
}

type messagesResponse struct {
	Messages []conversation.Message `json:"messages"`
	Busy     bool                   `json:"busy"`
}

type askRequest struct {
	Text string `json:"text"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// isValidation reports whether err is a settings or input fault the caller
// can fix.
func isValidation(err error) bool {
	return errors.Is(err, chat.ErrEmptyMessage) ||
		errors.Is(err, model.ErrUnknownProvider) ||
		errors.Is(err, model.ErrMissingAPIKey) ||
		errors.Is(err, model.ErrMissingModel) ||
		errors.Is(err, model.ErrMissingEndpoint)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Providers())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.chat.Settings(r.Context())
	if err != nil {
		s.log.WithError(err).Warn("serving default settings")
	}
	writeJSON(w, http.StatusOK, st.Masked())
}

// handlePutSettings saves settings. An empty API key keeps the stored one so
// clients never need to echo the secret back.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var st model.Settings
	if err := decodeBody(w, r, &st); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if st.APIKey == "" {
		if current, err := s.chat.Settings(r.Context()); err == nil {
			st.APIKey = current.APIKey
		}
	}
	if err := s.chat.SaveSettings(r.Context(), st); err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Masked())
}

func (s *Server) handlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap *report.Snapshot
	if err := decodeBody(w, r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.chat.UpdateSnapshot(snap))
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Context())
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messagesResponse{
		Messages: s.chat.History(r.Context()),
		Busy:     s.chat.Busy(),
	})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reply, err := s.chat.Send(r.Context(), req.Text)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case isValidation(err):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, err)
	default:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Message: &reply})
	}
}

func (s *Server) handleDeleteMessages(w http.ResponseWriter, r *http.Request) {
	s.chat.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
