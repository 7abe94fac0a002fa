// Package payments is the sandbox's transaction ledger. It owns every status
// change; clients only request transitions.
package payments

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/coursepay/internal/common"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CardLimit is the largest amount a sandbox card accepts. Larger charges
// produce a Failed transaction.
const CardLimit = 10000

// declinedSuffix marks test card numbers that are always declined.
const declinedSuffix = "0002"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrDeclined       = errors.New("card declined")
)

type Service struct {
	mu       sync.Mutex
	txs      map[string]*Transaction
	refunds  map[string]*Refund
	validate *validator.Validate
	now      func() time.Time
}

func NewService() *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{
		txs:      make(map[string]*Transaction),
		refunds:  make(map[string]*Refund),
		validate: v,
		now:      time.Now,
	}
}

// Create opens a Pending transaction owned by userID.
func (s *Service) Create(_ context.Context, userID string, req CreateRequest) (*Transaction, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if req.StudentID != userID {
		return nil, fmt.Errorf("%w: studentId does not match the authenticated user", ErrInvalidRequest)
	}

	now := s.now()
	tx := &Transaction{
		TransactionID: uuid.NewString(),
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		CourseTitle:   req.CourseTitle,
		TutorName:     req.TutorName,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.TransactionID] = tx
	out := *tx
	return &out, nil
}

func (s *Service) Get(_ context.Context, userID, id string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	out := *tx
	return &out, nil
}

// PayByCard charges a Pending credit-card transaction. A declined card
// leaves the transaction Pending so another card can be tried.
func (s *Service) PayByCard(_ context.Context, userID, id string, card CardDetails) (*Transaction, error) {
	if err := s.check(card); err != nil {
		return nil, err
	}

	return s.transition(userID, id, MethodCreditCard, func(tx *Transaction) error {
		if tx.PaymentStatus != StatusPending {
			return conflict(tx)
		}
		if strings.HasSuffix(card.CardNumber, declinedSuffix) {
			tx.FailureReason = ErrDeclined.Error()
			return ErrDeclined
		}
		if tx.Amount > CardLimit {
			tx.PaymentStatus = StatusFailed
			tx.FailureReason = "amount exceeds card limit"
			return nil
		}
		tx.PaymentStatus = StatusSuccess
		tx.FailureReason = ""
		return nil
	})
}

// ProcessBankTransfer records the bank and waits for the user's transfer.
// The bank may be changed again until the transfer is confirmed.
func (s *Service) ProcessBankTransfer(_ context.Context, userID, id string, req BankTransferRequest) (*Transaction, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	return s.transition(userID, id, MethodBankTransfer, func(tx *Transaction) error {
		if tx.PaymentStatus != StatusPending && tx.PaymentStatus != StatusProcessing {
			return conflict(tx)
		}
		tx.PaymentStatus = StatusProcessing
		tx.BankCode = req.BankCode
		return nil
	})
}

func (s *Service) ConfirmTransfer(_ context.Context, userID, id string) (*Transaction, error) {
	return s.transition(userID, id, MethodBankTransfer, func(tx *Transaction) error {
		if tx.PaymentStatus != StatusProcessing {
			return conflict(tx)
		}
		tx.PaymentStatus = StatusSuccess
		return nil
	})
}

// RequestRefund marks a successful transaction Refunded and files a refund.
func (s *Service) RequestRefund(_ context.Context, userID, id string, req RefundRequest) (*Refund, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	if tx.PaymentStatus != StatusSuccess {
		return nil, conflict(tx)
	}

	now := s.now()
	tx.PaymentStatus = StatusRefunded
	tx.UpdatedAt = now
	refund := &Refund{
		RefundID:      uuid.NewString(),
		TransactionID: tx.TransactionID,
		Reason:        req.Reason,
		Details:       req.Details,
		Status:        RefundRequested,
		CreatedAt:     now,
	}
	s.refunds[refund.RefundID] = refund

	out := *refund
	return &out, nil
}

// transition applies fn to a transaction of the given method under the lock.
// Changes fn makes are kept even when it returns an error.
func (s *Service) transition(userID, id string, method Method, fn func(*Transaction) error) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	if tx.PaymentMethod != method {
		return nil, fmt.Errorf("%w: transaction was created for %s", common.ErrConflict, tx.PaymentMethod)
	}

	err = fn(tx)
	tx.UpdatedAt = s.now()
	if err != nil {
		return nil, err
	}
	out := *tx
	return &out, nil
}

// owned finds a transaction visible to userID. Caller holds the lock.
func (s *Service) owned(userID, id string) (*Transaction, error) {
	tx, ok := s.txs[id]
	if !ok || tx.StudentID != userID {
		return nil, common.ErrNotFound
	}
	return tx, nil
}

func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", ErrInvalidRequest, fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func conflict(tx *Transaction) error {
	return fmt.Errorf("%w: transaction is %s", common.ErrConflict, tx.PaymentStatus)
}
