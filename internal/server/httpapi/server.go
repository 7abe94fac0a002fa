// Package httpapi exposes the sandbox's auth and payment services over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/coursepay/internal/common"
	"github.com/dmitrijs2005/coursepay/internal/logging"
	"github.com/dmitrijs2005/coursepay/internal/server/payments"
	"github.com/dmitrijs2005/coursepay/internal/server/users"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	users    *users.Service
	payments *payments.Service
	logger   logging.Logger
}

func NewServer(us *users.Service, ps *payments.Service, logger logging.Logger) *Server {
	return &Server{users: us, payments: ps, logger: logger}
}

// Router wires every route. Payment routes require a bearer token.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh-token", s.refreshToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api/payments").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("", s.createPayment).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.getPayment).Methods(http.MethodGet)
	api.HandleFunc("/{id}/credit-card", s.payByCard).Methods(http.MethodPost)
	api.HandleFunc("/{id}/bank-transfer", s.processBankTransfer).Methods(http.MethodPost)
	api.HandleFunc("/{id}/confirm-transfer", s.confirmTransfer).Methods(http.MethodPost)
	api.HandleFunc("/{id}/refund", s.requestRefund).Methods(http.MethodPost)

	return r
}

type ctxKey string

const userIDKey ctxKey = "userID"

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAuth rejects requests without a valid, unexpired bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := s.authenticate(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, authMessage(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
	})
}

// authenticate returns the user id of the request's bearer token.
// A missing token is common.ErrUnauthorized.
func (s *Server) authenticate(r *http.Request) (string, error) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", common.ErrUnauthorized
	}
	return s.users.Authenticate(h[len(prefix):])
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return "missing token"
	case errors.Is(err, common.ErrTokenExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"message": msg})
}

// respondServiceError maps service errors onto status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payments.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrDeclined):
		respondError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, common.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
