package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"teahouse/pkg/tea"
)

// Static replies served outside the tea collection.
const (
	GreetingText = "Hello From shantanu and his tea !!"
	IceTeaText   = "what would you prefer to drink!"
	TwitterText  = "shantanukulkanri.com!"
)

// requestTimeout bounds how long a handler waits on the tea service.
const requestTimeout = 3 * time.Second

const notFoundMessage = "Tea not found"

// Server wires HTTP endpoints to the tea service.
type Server struct {
	teas   *tea.Service
	logger *zap.Logger
}

// New builds the server; a nil logger silences request logging.
func New(teaService *tea.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		teas:   teaService,
		logger: logger,
	}
}

// Handler exposes the mux wrapped in request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", plainText(GreetingText))
	mux.HandleFunc("GET /ice-tea", plainText(IceTeaText))
	mux.HandleFunc("GET /twitter", plainText(TwitterText))
	mux.HandleFunc("POST /teas", s.createTea)
	mux.HandleFunc("GET /teas", s.listTeas)
	mux.HandleFunc("GET /teas/{id}", s.getTea)
	mux.HandleFunc("PUT /teas/{id}", s.updateTea)
	mux.HandleFunc("DELETE /teas/{id}", s.deleteTea)
	return withRecovery(withRequestLog(mux, s.logger), s.logger)
}

// teaPayload is the request body accepted by create and update.
// Missing fields decode to their zero value; nothing else is checked.
type teaPayload struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// decodePayload treats an empty body like an empty object.
func decodePayload(r *http.Request) (teaPayload, error) {
	var payload teaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return teaPayload{}, err
	}
	return payload, nil
}

func (s *Server) createTea(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		s.logger.Warn("tea creation failed: unable to decode payload", zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stored, err := s.teas.Create(ctx, tea.Tea{Name: payload.Name, Price: payload.Price})
	if err != nil {
		s.logger.Error("tea creation failed", zap.String("name", payload.Name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Info("tea created", zap.Int64("id", stored.ID), zap.String("name", stored.Name))
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) listTeas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	teas, err := s.teas.List(ctx)
	if err != nil {
		s.logger.Error("tea listing failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, teas)
}

func (s *Server) getTea(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := tea.ParseID(raw)
	if err != nil {
		s.respondLookupError(w, "get", raw, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	found, err := s.teas.Get(ctx, id)
	if err != nil {
		s.respondLookupError(w, "get", raw, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) updateTea(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := tea.ParseID(raw)
	if err != nil {
		s.respondLookupError(w, "update", raw, err)
		return
	}
	payload, err := decodePayload(r)
	if err != nil {
		s.logger.Warn("tea update failed: unable to decode payload", zap.Int64("id", id), zap.Error(err))
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	updated, err := s.teas.Update(ctx, id, tea.Tea{Name: payload.Name, Price: payload.Price})
	if err != nil {
		s.respondLookupError(w, "update", raw, err)
		return
	}
	s.logger.Info("tea updated", zap.Int64("id", updated.ID), zap.String("name", updated.Name))
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTea(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := tea.ParseID(raw)
	if err != nil {
		s.respondLookupError(w, "delete", raw, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.teas.Delete(ctx, id); err != nil {
		s.respondLookupError(w, "delete", raw, err)
		return
	}
	s.logger.Info("tea deleted", zap.Int64("id", id))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNonAuthoritativeInfo)
	io.WriteString(w, "deleted")
}

// respondLookupError collapses malformed and unknown ids into the same 404,
// keeping the distinction in the log only.
func (s *Server) respondLookupError(w http.ResponseWriter, op, raw string, err error) {
	var invalid *tea.InvalidIDError
	switch {
	case errors.As(err, &invalid):
		s.logger.Info("tea lookup with malformed id", zap.String("op", op), zap.String("id", raw))
		http.Error(w, notFoundMessage, http.StatusNotFound)
	case errors.Is(err, tea.ErrNotFound):
		s.logger.Info("tea not found", zap.String("op", op), zap.String("id", raw))
		http.Error(w, notFoundMessage, http.StatusNotFound)
	default:
		s.logger.Error("tea lookup failed", zap.String("op", op), zap.String("id", raw), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func plainText(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
