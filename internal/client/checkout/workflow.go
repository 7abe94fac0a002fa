// Package checkout drives one course purchase from method selection to a
// completed payment.
//
// A Workflow is an explicit state machine. Transitions that talk to the
// payments API set the busy flag before the call and clear it on every exit
// path; the mutex is never held while a request is in flight. Failures move
// the workflow to StageErrored with a user-facing message and keep the
// transaction id, so the user can go Back or retry the failed step.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/coursepay/internal/client/payments"
	"github.com/dmitrijs2005/coursepay/internal/logging"
)

// Gateway is the payments API surface the workflow calls.
type Gateway interface {
	Create(ctx context.Context, req payments.CreateRequest) (*payments.Transaction, error)
	Get(ctx context.Context, id string) (*payments.Transaction, error)
	SubmitCreditCard(ctx context.Context, id string, card payments.CardDetails) (*payments.Transaction, error)
	ProcessBankTransfer(ctx context.Context, id, bankCode string) (*payments.Transaction, error)
	ConfirmTransfer(ctx context.Context, id string) (*payments.Transaction, error)
	RequestRefund(ctx context.Context, id string, req payments.RefundRequest) (*payments.Refund, error)
}

// Order is the purchase being paid for.
type Order struct {
	StudentID   string
	CourseID    int64
	CourseTitle string
	TutorName   string
	Amount      float64
}

func (o Order) request(method payments.Method) payments.CreateRequest {
	return payments.CreateRequest{
		StudentID:     o.StudentID,
		CourseID:      o.CourseID,
		CourseTitle:   o.CourseTitle,
		TutorName:     o.TutorName,
		Amount:        o.Amount,
		PaymentMethod: method,
	}
}

type Option func(*Workflow)

// WithOnComplete registers a callback run once the payment completes. It is
// called without the workflow lock held.
func WithOnComplete(fn func(payments.Transaction)) Option {
	return func(w *Workflow) { w.onComplete = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l.With("component", "checkout")
		}
	}
}

type Workflow struct {
	mu sync.Mutex
	st State

	order      Order
	gateway    Gateway
	checker    *checker
	logger     logging.Logger
	onComplete func(payments.Transaction)
}

// New returns a workflow at StageMethodSelection.
func New(gateway Gateway, order Order, opts ...Option) *Workflow {
	w := &Workflow{
		st:      State{Stage: StageMethodSelection},
		order:   order,
		gateway: gateway,
		checker: newChecker(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.clone()
}

// Completed returns the final transaction once the workflow is done.
func (w *Workflow) Completed() (payments.Transaction, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.st.Stage != StageCompleted || w.st.Transaction == nil {
		return payments.Transaction{}, false
	}
	return *w.st.Transaction, true
}

// Choose picks the payment method. Once a transaction exists only the
// method it was created with is accepted.
func (w *Workflow) Choose(method payments.Method) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.st.Busy {
		return ErrBusy
	}
	if w.st.interactive() != StageMethodSelection {
		return &IllegalStateError{Op: "choose", Stage: w.st.Stage}
	}
	if method != payments.MethodCreditCard && method != payments.MethodBankTransfer {
		return w.reject(&ValidationError{Fields: []FieldError{{Field: "paymentMethod", Error: fmt.Sprintf("unknown payment method %q", method)}}})
	}
	if w.st.TransactionID != "" && method != w.st.Method {
		return ErrMethodLocked
	}

	w.st.Method = method
	w.moveTo(StageMethodSelection)
	return nil
}

// ConfirmSelection validates the order and creates the transaction. The
// create call happens at most once per workflow.
func (w *Workflow) ConfirmSelection(ctx context.Context) error {
	w.mu.Lock()
	if w.st.Busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.st.interactive() != StageMethodSelection || w.st.failed() {
		defer w.mu.Unlock()
		return &IllegalStateError{Op: "confirm selection", Stage: w.st.Stage}
	}
	if w.st.Method == "" {
		defer w.mu.Unlock()
		return w.reject(fieldRequired("paymentMethod"))
	}
	req := w.order.request(w.st.Method)
	if verr := w.checker.check(req); verr != nil {
		defer w.mu.Unlock()
		return w.reject(verr)
	}
	if w.st.TransactionID != "" {
		defer w.mu.Unlock()
		w.moveTo(StageMethodDetails)
		return nil
	}
	w.begin(ctx, StageInitiating)
	w.mu.Unlock()

	tx, err := w.gateway.Create(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.settle(ctx, "create", StageMethodSelection, err); err != nil {
		return err
	}
	w.st.TransactionID = tx.TransactionID
	w.st.Transaction = tx
	w.moveTo(StageMethodDetails)
	w.logger.Info(ctx, "payment created", "transaction_id", tx.TransactionID, "method", w.st.Method)
	return nil
}

// SubmitCard validates the card locally and charges it.
func (w *Workflow) SubmitCard(ctx context.Context, card payments.CardDetails) error {
	w.mu.Lock()
	if w.st.Busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.st.interactive() != StageMethodDetails || w.st.Method != payments.MethodCreditCard || w.st.failed() {
		defer w.mu.Unlock()
		return &IllegalStateError{Op: "submit card", Stage: w.st.Stage}
	}
	if verr := w.checker.check(card); verr != nil {
		defer w.mu.Unlock()
		return w.reject(verr)
	}
	id := w.st.TransactionID
	w.begin(ctx, StageConfirming)
	w.mu.Unlock()

	tx, err := w.gateway.SubmitCreditCard(ctx, id, card)
	return w.complete(ctx, "submit card", StageMethodDetails, tx, err)
}

// SelectBank records the bank for a transfer. No request is made.
func (w *Workflow) SelectBank(code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.st.Busy {
		return ErrBusy
	}
	if w.st.interactive() != StageMethodDetails || w.st.Method != payments.MethodBankTransfer {
		return &IllegalStateError{Op: "select bank", Stage: w.st.Stage}
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if !knownBank(code) {
		return w.reject(&ValidationError{Fields: []FieldError{{
			Field: "bank",
			Error: "bank must be one of " + strings.Join(Banks, ", "),
		}}})
	}

	w.st.Bank = code
	w.moveTo(StageMethodDetails)
	return nil
}

// Proceed registers the selected bank and waits for the user's transfer.
func (w *Workflow) Proceed(ctx context.Context) error {
	w.mu.Lock()
	if w.st.Busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.st.interactive() != StageMethodDetails || w.st.Method != payments.MethodBankTransfer || w.st.failed() {
		defer w.mu.Unlock()
		return &IllegalStateError{Op: "proceed", Stage: w.st.Stage}
	}
	if w.st.Bank == "" {
		defer w.mu.Unlock()
		return w.reject(fieldRequired("bank"))
	}
	id, bank := w.st.TransactionID, w.st.Bank
	w.begin(ctx, StageConfirming)
	w.mu.Unlock()

	tx, err := w.gateway.ProcessBankTransfer(ctx, id, bank)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.settle(ctx, "proceed", StageMethodDetails, err); err != nil {
		return err
	}
	w.st.Transaction = tx
	w.moveTo(StageAwaitingConfirmation)
	return nil
}

// ConfirmTransfer tells the server the user has sent the money.
func (w *Workflow) ConfirmTransfer(ctx context.Context) error {
	w.mu.Lock()
	if w.st.Busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.st.interactive() != StageAwaitingConfirmation || w.st.failed() {
		defer w.mu.Unlock()
		return &IllegalStateError{Op: "confirm transfer", Stage: w.st.Stage}
	}
	id := w.st.TransactionID
	w.begin(ctx, StageConfirming)
	w.mu.Unlock()

	tx, err := w.gateway.ConfirmTransfer(ctx, id)
	return w.complete(ctx, "confirm transfer", StageAwaitingConfirmation, tx, err)
}

// Back moves one step towards MethodSelection. The transaction id is kept.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.st.Busy {
		return ErrBusy
	}
	switch w.st.Stage {
	case StageErrored:
		w.moveTo(w.st.Previous)
	case StageAwaitingConfirmation:
		w.moveTo(StageMethodDetails)
	case StageMethodDetails:
		w.moveTo(StageMethodSelection)
	case StageMethodSelection:
		w.moveTo(StageMethodSelection)
	default:
		return &IllegalStateError{Op: "back", Stage: w.st.Stage}
	}
	return nil
}

// Refresh re-reads the transaction from the server. The stage is left as is.
func (w *Workflow) Refresh(ctx context.Context) error {
	w.mu.Lock()
	if w.st.Busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.st.TransactionID == "" {
		defer w.mu.Unlock()
		return &IllegalStateError{Op: "refresh", Stage: w.st.Stage}
	}
	id := w.st.TransactionID
	w.st.Busy = true
	w.mu.Unlock()

	tx, err := w.gateway.Get(ctx, id)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.st.Busy = false
	if err != nil {
		w.logger.Warn(ctx, "transaction refresh failed", "transaction_id", id, "error", err)
		return err
	}
	w.st.Transaction = tx
	return nil
}

// RequestRefund asks for a refund of a successful payment. The workflow
// stays Completed whatever the outcome.
func (w *Workflow) RequestRefund(ctx context.Context, req payments.RefundRequest) (*payments.Refund, error) {
	w.mu.Lock()
	if w.st.Busy {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	if w.st.Stage != StageCompleted || w.st.Transaction == nil ||
		w.st.Transaction.PaymentStatus != payments.StatusSuccess || w.st.Refund != nil {
		defer w.mu.Unlock()
		return nil, &IllegalStateError{Op: "refund", Stage: w.st.Stage}
	}
	if verr := w.checker.check(req); verr != nil {
		defer w.mu.Unlock()
		return nil, w.reject(verr)
	}
	id := w.st.TransactionID
	w.st.Busy = true
	w.st.Message = ""
	w.st.FieldErrors = nil
	w.mu.Unlock()

	refund, err := w.gateway.RequestRefund(ctx, id, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.st.Busy = false
	if err != nil {
		w.st.Message = Describe(err)
		w.logger.Warn(ctx, "refund request failed", "transaction_id", id, "error", err)
		return nil, err
	}
	w.st.Refund = refund
	out := *refund
	return &out, nil
}

// complete settles a transition whose success ends the workflow, then runs
// the completion callback outside the lock.
func (w *Workflow) complete(ctx context.Context, op string, from Stage, tx *payments.Transaction, err error) error {
	if err == nil && tx.PaymentStatus == payments.StatusFailed {
		err = fmt.Errorf("%w: %s", ErrPaymentFailed, tx.FailureReason)
	}

	w.mu.Lock()
	if tx != nil {
		w.st.Transaction = tx
	}
	if err := w.settle(ctx, op, from, err); err != nil {
		w.mu.Unlock()
		return err
	}
	w.moveTo(StageCompleted)
	done, cb := *tx, w.onComplete
	w.mu.Unlock()

	w.logger.Info(ctx, "payment completed", "transaction_id", done.TransactionID, "status", done.PaymentStatus)
	if cb != nil {
		cb(done)
	}
	return nil
}

// begin marks a network transition in flight. Caller holds the lock.
func (w *Workflow) begin(ctx context.Context, stage Stage) {
	w.logger.Debug(ctx, "checkout transition", "from", w.st.Stage, "to", stage)
	w.st.Busy = true
	w.st.Stage = stage
	w.st.Message = ""
	w.st.FieldErrors = nil
}

// settle clears busy and, on failure, moves to Errored remembering from.
// Caller holds the lock.
func (w *Workflow) settle(ctx context.Context, op string, from Stage, err error) error {
	w.st.Busy = false
	if err == nil {
		return nil
	}
	w.st.Stage = StageErrored
	w.st.Previous = from
	w.st.Message = Describe(err)
	w.logger.Warn(ctx, "checkout step failed", "op", op, "transaction_id", w.st.TransactionID, "error", err)
	return err
}

func (w *Workflow) moveTo(stage Stage) {
	w.st.Stage = stage
	w.st.Message = ""
	w.st.FieldErrors = nil
}

// reject records field errors without touching the stage.
func (w *Workflow) reject(verr *ValidationError) error {
	w.st.FieldErrors = verr.fieldMap()
	w.st.Message = Describe(verr)
	return verr
}
