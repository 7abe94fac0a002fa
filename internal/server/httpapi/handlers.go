package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/coursepay/internal/common"
	"github.com/dmitrijs2005/coursepay/internal/server/payments"
	"github.com/gorilla/mux"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	UserID       string   `json:"userId"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Roles        []string `json:"roles"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	user, pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.respondServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "user logged in", "user_id", user.ID)
	respondJSON(w, http.StatusOK, loginResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Roles:        user.Roles,
	})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrTokenExpired) {
			tokenRefreshes.WithLabelValues("rejected").Inc()
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.respondServiceError(w, r, err)
		return
	}

	tokenRefreshes.WithLabelValues("ok").Inc()
	respondJSON(w, http.StatusOK, refreshResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req payments.CreateRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.payments.Create(r.Context(), userID(r.Context()), req)
	s.respondTransaction(w, r, "create", tx, err)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	tx, err := s.payments.Get(r.Context(), userID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (s *Server) payByCard(w http.ResponseWriter, r *http.Request) {
	var card payments.CardDetails
	if !decode(w, r, &card) {
		return
	}
	tx, err := s.payments.PayByCard(r.Context(), userID(r.Context()), mux.Vars(r)["id"], card)
	s.respondTransaction(w, r, "credit-card", tx, err)
}

func (s *Server) processBankTransfer(w http.ResponseWriter, r *http.Request) {
	var req payments.BankTransferRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := s.payments.ProcessBankTransfer(r.Context(), userID(r.Context()), mux.Vars(r)["id"], req)
	s.respondTransaction(w, r, "bank-transfer", tx, err)
}

func (s *Server) confirmTransfer(w http.ResponseWriter, r *http.Request) {
	tx, err := s.payments.ConfirmTransfer(r.Context(), userID(r.Context()), mux.Vars(r)["id"])
	s.respondTransaction(w, r, "confirm-transfer", tx, err)
}

func (s *Server) requestRefund(w http.ResponseWriter, r *http.Request) {
	var req payments.RefundRequest
	if !decode(w, r, &req) {
		return
	}
	refund, err := s.payments.RequestRefund(r.Context(), userID(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	paymentTransitions.WithLabelValues("refund", string(payments.StatusRefunded)).Inc()
	respondJSON(w, http.StatusOK, refund)
}

func (s *Server) respondTransaction(w http.ResponseWriter, r *http.Request, action string, tx *payments.Transaction, err error) {
	if err != nil {
		s.logger.Info(r.Context(), "payment action rejected", "action", action, "error", err)
		s.respondServiceError(w, r, err)
		return
	}
	paymentTransitions.WithLabelValues(action, string(tx.PaymentStatus)).Inc()
	s.logger.Info(r.Context(), "payment updated", "action", action, "transaction_id", tx.TransactionID, "status", tx.PaymentStatus)

	code := http.StatusOK
	if action == "create" {
		code = http.StatusCreated
	}
	respondJSON(w, code, tx)
}
