package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/coursepay/internal/client/api"
	"github.com/dmitrijs2005/coursepay/internal/client/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	createErr  error
	cardErr    error
	bankErr    error
	confirmErr error
	refundErr  error
	getErr     error
	cardStatus payments.Status

	// block, when set, holds SubmitCreditCard until closed.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeGateway) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGateway) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGateway) Create(_ context.Context, req payments.CreateRequest) (*payments.Transaction, error) {
	f.record("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &payments.Transaction{
		TransactionID: "tx-1",
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: payments.StatusPending,
	}, nil
}

func (f *fakeGateway) SubmitCreditCard(_ context.Context, id string, _ payments.CardDetails) (*payments.Transaction, error) {
	f.record("credit-card:" + id)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.cardErr != nil {
		return nil, f.cardErr
	}
	status := f.cardStatus
	if status == "" {
		status = payments.StatusSuccess
	}
	return &payments.Transaction{TransactionID: id, PaymentMethod: payments.MethodCreditCard, PaymentStatus: status, FailureReason: "limit exceeded"}, nil
}

func (f *fakeGateway) ProcessBankTransfer(_ context.Context, id, bank string) (*payments.Transaction, error) {
	f.record("bank-transfer:" + id + ":" + bank)
	if f.bankErr != nil {
		return nil, f.bankErr
	}
	return &payments.Transaction{TransactionID: id, PaymentMethod: payments.MethodBankTransfer, PaymentStatus: payments.StatusProcessing, BankCode: bank}, nil
}

func (f *fakeGateway) ConfirmTransfer(_ context.Context, id string) (*payments.Transaction, error) {
	f.record("confirm-transfer:" + id)
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &payments.Transaction{TransactionID: id, PaymentMethod: payments.MethodBankTransfer, PaymentStatus: payments.StatusSuccess}, nil
}

func (f *fakeGateway) Get(_ context.Context, id string) (*payments.Transaction, error) {
	f.record("get:" + id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &payments.Transaction{TransactionID: id, PaymentStatus: payments.StatusProcessing, BankCode: "bca"}, nil
}

func (f *fakeGateway) RequestRefund(_ context.Context, id string, req payments.RefundRequest) (*payments.Refund, error) {
	f.record("refund:" + id)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &payments.Refund{RefundID: "rf-1", TransactionID: id, Reason: req.Reason, Status: payments.RefundRequested}, nil
}

var (
	testOrder = Order{StudentID: "7", CourseID: 12, CourseTitle: "Concurrency in Go", TutorName: "Rob", Amount: 299.99}
	goodCard  = payments.CardDetails{CardNumber: "4111111111111111", CardHolder: "Jane Doe", ExpiryDate: "12/27", CVC: "123"}
)

func atDetails(t *testing.T, gw *fakeGateway, method payments.Method, opts ...Option) *Workflow {
	t.Helper()
	w := New(gw, testOrder, opts...)
	require.NoError(t, w.Choose(method))
	require.NoError(t, w.ConfirmSelection(context.Background()))
	require.Equal(t, StageMethodDetails, w.Snapshot().Stage)
	return w
}

func TestWorkflow_CreditCardHappyPath(t *testing.T) {
	gw := &fakeGateway{}
	var done []payments.Transaction
	w := New(gw, testOrder, WithOnComplete(func(tx payments.Transaction) { done = append(done, tx) }))
	assert.Equal(t, StageMethodSelection, w.Snapshot().Stage)

	require.NoError(t, w.Choose(payments.MethodCreditCard))
	require.NoError(t, w.ConfirmSelection(context.Background()))
	st := w.Snapshot()
	assert.Equal(t, StageMethodDetails, st.Stage)
	assert.Equal(t, "tx-1", st.TransactionID)

	require.NoError(t, w.SubmitCard(context.Background(), goodCard))

	st = w.Snapshot()
	assert.Equal(t, StageCompleted, st.Stage)
	assert.False(t, st.Busy)
	tx, ok := w.Completed()
	require.True(t, ok)
	assert.Equal(t, "tx-1", tx.TransactionID)
	assert.Equal(t, payments.StatusSuccess, tx.PaymentStatus)
	require.Len(t, done, 1)
	assert.Equal(t, "tx-1", done[0].TransactionID)
	assert.Equal(t, []string{"create", "credit-card:tx-1"}, gw.Calls())
}

func TestWorkflow_BankTransferHappyPath(t *testing.T) {
	gw := &fakeGateway{}
	var completed bool
	w := atDetails(t, gw, payments.MethodBankTransfer, WithOnComplete(func(payments.Transaction) { completed = true }))

	require.NoError(t, w.SelectBank("BCA"))
	assert.Equal(t, "bca", w.Snapshot().Bank)
	require.NoError(t, w.Proceed(context.Background()))
	assert.Equal(t, StageAwaitingConfirmation, w.Snapshot().Stage)

	require.NoError(t, w.ConfirmTransfer(context.Background()))
	assert.Equal(t, StageCompleted, w.Snapshot().Stage)
	assert.True(t, completed)
	assert.Equal(t, []string{"create", "bank-transfer:tx-1:bca", "confirm-transfer:tx-1"}, gw.Calls())
}

func TestWorkflow_ConfirmTransferBeforeProceed(t *testing.T) {
	gw := &fakeGateway{}
	w := atDetails(t, gw, payments.MethodBankTransfer)
	require.NoError(t, w.SelectBank("bca"))

	err := w.ConfirmTransfer(context.Background())
	var illegal *IllegalStateError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, StageMethodDetails, illegal.Stage)
	assert.Equal(t, []string{"create"}, gw.Calls())
}

func TestWorkflow_CreateCalledOnce(t *testing.T) {
	gw := &fakeGateway{}
	w := atDetails(t, gw, payments.MethodCreditCard)

	require.NoError(t, w.Back())
	assert.Equal(t, StageMethodSelection, w.Snapshot().Stage)
	require.NoError(t, w.Choose(payments.MethodCreditCard))
	require.NoError(t, w.ConfirmSelection(context.Background()))

	st := w.Snapshot()
	assert.Equal(t, StageMethodDetails, st.Stage)
	assert.Equal(t, "tx-1", st.TransactionID)
	assert.Equal(t, []string{"create"}, gw.Calls())
}

func TestWorkflow_MethodLockedAfterCreate(t *testing.T) {
	gw := &fakeGateway{}
	w := atDetails(t, gw, payments.MethodCreditCard)
	require.NoError(t, w.Back())

	require.ErrorIs(t, w.Choose(payments.MethodBankTransfer), ErrMethodLocked)
	assert.Equal(t, payments.MethodCreditCard, w.Snapshot().Method)

	require.NoError(t, w.ConfirmSelection(context.Background()))
	var illegal *IllegalStateError
	require.ErrorAs(t, w.SelectBank("bca"), &illegal)
	require.ErrorAs(t, w.Proceed(context.Background()), &illegal)
	assert.Equal(t, []string{"create"}, gw.Calls())
}

func TestWorkflow_MethodFreeBeforeCreate(t *testing.T) {
	w := New(&fakeGateway{}, testOrder)
	require.NoError(t, w.Choose(payments.MethodCreditCard))
	require.NoError(t, w.Choose(payments.MethodBankTransfer))
	assert.Equal(t, payments.MethodBankTransfer, w.Snapshot().Method)
}

func TestWorkflow_CardValidationGating(t *testing.T) {
	tests := []struct {
		name   string
		card   payments.CardDetails
		fields []string
	}{
		{
			name:   "empty",
			card:   payments.CardDetails{},
			fields: []string{"cardNumber", "cardHolder", "expiryDate", "cvc"},
		},
		{
			name:   "bad expiry format",
			card:   payments.CardDetails{CardNumber: "4111", CardHolder: "J", ExpiryDate: "1227", CVC: "123"},
			fields: []string{"expiryDate"},
		},
		{
			name:   "month out of range",
			card:   payments.CardDetails{CardNumber: "4111", CardHolder: "J", ExpiryDate: "13/27", CVC: "123"},
			fields: []string{"expiryDate"},
		},
		{
			name:   "short cvc",
			card:   payments.CardDetails{CardNumber: "4111", CardHolder: "J", ExpiryDate: "01/30", CVC: "12"},
			fields: []string{"cvc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			w := atDetails(t, gw, payments.MethodCreditCard)
			before := w.Snapshot()

			err := w.SubmitCard(context.Background(), tt.card)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)

			after := w.Snapshot()
			assert.Equal(t, before.Stage, after.Stage)
			assert.Equal(t, before.TransactionID, after.TransactionID)
			for _, f := range tt.fields {
				assert.Contains(t, after.FieldErrors, f)
			}
			assert.Len(t, after.FieldErrors, len(tt.fields))
			assert.Equal(t, []string{"create"}, gw.Calls())
		})
	}
}

func TestWorkflow_ExpiryMessage(t *testing.T) {
	w := atDetails(t, &fakeGateway{}, payments.MethodCreditCard)
	card := goodCard
	card.ExpiryDate = "2027-12"
	_ = w.SubmitCard(context.Background(), card)
	assert.Equal(t, "expiryDate must be in MM/YY format", w.Snapshot().FieldErrors["expiryDate"])
}

func TestWorkflow_OrderValidation(t *testing.T) {
	gw := &fakeGateway{}
	w := New(gw, Order{CourseID: 1, Amount: 0})

	err := w.ConfirmSelection(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, w.Snapshot().FieldErrors, "paymentMethod")

	require.NoError(t, w.Choose(payments.MethodCreditCard))
	err = w.ConfirmSelection(context.Background())
	require.ErrorAs(t, err, &verr)

	st := w.Snapshot()
	assert.Equal(t, StageMethodSelection, st.Stage)
	for _, f := range []string{"studentId", "courseTitle", "tutorName", "amount"} {
		assert.Contains(t, st.FieldErrors, f)
	}
	assert.Empty(t, gw.Calls())
}

func TestWorkflow_CreateFailure(t *testing.T) {
	gw := &fakeGateway{createErr: &api.NetworkError{Op: "POST /api/payments", Err: errors.New("dial tcp: refused")}}
	w := New(gw, testOrder)
	require.NoError(t, w.Choose(payments.MethodCreditCard))

	err := w.ConfirmSelection(context.Background())
	var netErr *api.NetworkError
	require.ErrorAs(t, err, &netErr)

	st := w.Snapshot()
	assert.Equal(t, StageErrored, st.Stage)
	assert.Equal(t, StageMethodSelection, st.Previous)
	assert.False(t, st.Busy)
	assert.Empty(t, st.TransactionID)
	assert.Equal(t, "network unavailable, check your connection and try again", st.Message)

	require.NoError(t, w.Back())
	assert.Equal(t, StageMethodSelection, w.Snapshot().Stage)
	assert.Empty(t, w.Snapshot().Message)
}

func TestWorkflow_CardFailureKeepsIDAndRetries(t *testing.T) {
	gw := &fakeGateway{cardErr: &api.HTTPError{StatusCode: 402, Message: "card declined"}}
	w := atDetails(t, gw, payments.MethodCreditCard)

	require.Error(t, w.SubmitCard(context.Background(), goodCard))
	st := w.Snapshot()
	assert.Equal(t, StageErrored, st.Stage)
	assert.Equal(t, "tx-1", st.TransactionID)
	assert.Equal(t, "card declined", st.Message)

	gw.cardErr = nil
	require.NoError(t, w.SubmitCard(context.Background(), goodCard))
	assert.Equal(t, StageCompleted, w.Snapshot().Stage)
	assert.Equal(t, []string{"create", "credit-card:tx-1", "credit-card:tx-1"}, gw.Calls())
}

func TestWorkflow_FailedStatusIsAnError(t *testing.T) {
	gw := &fakeGateway{cardStatus: payments.StatusFailed}
	called := false
	w := atDetails(t, gw, payments.MethodCreditCard, WithOnComplete(func(payments.Transaction) { called = true }))

	err := w.SubmitCard(context.Background(), goodCard)
	require.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, "payment failed: limit exceeded, start a new checkout", w.Snapshot().Message)
	assert.False(t, called)
	_, ok := w.Completed()
	assert.False(t, ok)
}

func TestWorkflow_FailedTransactionIsTerminal(t *testing.T) {
	gw := &fakeGateway{cardStatus: payments.StatusFailed}
	w := atDetails(t, gw, payments.MethodCreditCard)
	ctx := context.Background()

	require.ErrorIs(t, w.SubmitCard(ctx, goodCard), ErrPaymentFailed)
	st := w.Snapshot()
	assert.Equal(t, StageErrored, st.Stage)
	require.NotNil(t, st.Transaction)
	assert.Equal(t, payments.StatusFailed, st.Transaction.PaymentStatus)

	var illegal *IllegalStateError
	require.ErrorAs(t, w.SubmitCard(ctx, goodCard), &illegal)

	require.NoError(t, w.Back())
	require.NoError(t, w.Back())
	assert.Equal(t, StageMethodSelection, w.Snapshot().Stage)
	require.ErrorAs(t, w.ConfirmSelection(ctx), &illegal)

	assert.Equal(t, []string{"create", "credit-card:tx-1"}, gw.Calls(), "no calls on a failed transaction")
}

func TestWorkflow_ConfirmFailureReturnsToAwaiting(t *testing.T) {
	gw := &fakeGateway{confirmErr: &api.HTTPError{StatusCode: 503}}
	w := atDetails(t, gw, payments.MethodBankTransfer)
	require.NoError(t, w.SelectBank("mandiri"))
	require.NoError(t, w.Proceed(context.Background()))

	require.Error(t, w.ConfirmTransfer(context.Background()))
	st := w.Snapshot()
	assert.Equal(t, StageErrored, st.Stage)
	assert.Equal(t, "service unavailable", st.Message)

	require.NoError(t, w.Back())
	assert.Equal(t, StageAwaitingConfirmation, w.Snapshot().Stage)

	gw.confirmErr = nil
	require.NoError(t, w.ConfirmTransfer(context.Background()))
	assert.Equal(t, StageCompleted, w.Snapshot().Stage)
}

func TestWorkflow_AuthLostMessage(t *testing.T) {
	gw := &fakeGateway{bankErr: errors.Join(api.ErrAuthLost, errors.New("refresh rejected"))}
	w := atDetails(t, gw, payments.MethodBankTransfer)
	require.NoError(t, w.SelectBank("bni"))

	err := w.Proceed(context.Background())
	require.ErrorIs(t, err, api.ErrAuthLost)
	assert.Equal(t, "session expired, please log in again", w.Snapshot().Message)
}

func TestWorkflow_BankSelection(t *testing.T) {
	gw := &fakeGateway{}
	w := atDetails(t, gw, payments.MethodBankTransfer)

	var verr *ValidationError
	require.ErrorAs(t, w.Proceed(context.Background()), &verr)
	assert.Contains(t, w.Snapshot().FieldErrors, "bank")

	require.ErrorAs(t, w.SelectBank("hsbc"), &verr)
	assert.Empty(t, w.Snapshot().Bank)
	assert.Equal(t, []string{"create"}, gw.Calls())
}

func TestWorkflow_BackSteps(t *testing.T) {
	w := atDetails(t, &fakeGateway{}, payments.MethodBankTransfer)
	require.NoError(t, w.SelectBank("bri"))
	require.NoError(t, w.Proceed(context.Background()))

	require.NoError(t, w.Back())
	assert.Equal(t, StageMethodDetails, w.Snapshot().Stage)
	require.NoError(t, w.Back())
	assert.Equal(t, StageMethodSelection, w.Snapshot().Stage)
	require.NoError(t, w.Back())

	st := w.Snapshot()
	assert.Equal(t, StageMethodSelection, st.Stage)
	assert.Equal(t, "tx-1", st.TransactionID)
	assert.Equal(t, "bri", st.Bank)
}

func TestWorkflow_CompletedIsTerminal(t *testing.T) {
	w := atDetails(t, &fakeGateway{}, payments.MethodCreditCard)
	require.NoError(t, w.SubmitCard(context.Background(), goodCard))

	var illegal *IllegalStateError
	require.ErrorAs(t, w.Back(), &illegal)
	require.ErrorAs(t, w.SubmitCard(context.Background(), goodCard), &illegal)
	require.ErrorAs(t, w.Choose(payments.MethodCreditCard), &illegal)
}

func TestWorkflow_BusyGating(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	w := atDetails(t, gw, payments.MethodCreditCard)

	errCh := make(chan error, 1)
	go func() { errCh <- w.SubmitCard(context.Background(), goodCard) }()
	<-gw.entered

	st := w.Snapshot()
	assert.True(t, st.Busy)
	assert.Equal(t, StageConfirming, st.Stage)
	assert.ErrorIs(t, w.SubmitCard(context.Background(), goodCard), ErrBusy)
	assert.ErrorIs(t, w.Back(), ErrBusy)

	close(gw.block)
	require.NoError(t, <-errCh)
	assert.False(t, w.Snapshot().Busy)
	assert.Equal(t, []string{"create", "credit-card:tx-1"}, gw.Calls())
}

func TestWorkflow_RequestRefund(t *testing.T) {
	gw := &fakeGateway{}
	w := New(gw, testOrder)

	_, err := w.RequestRefund(context.Background(), payments.RefundRequest{Reason: "changed_mind"})
	var illegal *IllegalStateError
	require.ErrorAs(t, err, &illegal)

	require.NoError(t, w.Choose(payments.MethodCreditCard))
	require.NoError(t, w.ConfirmSelection(context.Background()))
	require.NoError(t, w.SubmitCard(context.Background(), goodCard))

	var verr *ValidationError
	_, err = w.RequestRefund(context.Background(), payments.RefundRequest{})
	require.ErrorAs(t, err, &verr)

	rf, err := w.RequestRefund(context.Background(), payments.RefundRequest{Reason: "changed_mind"})
	require.NoError(t, err)
	assert.Equal(t, "rf-1", rf.RefundID)
	assert.Equal(t, StageCompleted, w.Snapshot().Stage)
	assert.NotNil(t, w.Snapshot().Refund)

	_, err = w.RequestRefund(context.Background(), payments.RefundRequest{Reason: "again"})
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, []string{"create", "credit-card:tx-1", "refund:tx-1"}, gw.Calls())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"network", &api.NetworkError{Op: "GET /x", Err: errors.New("timeout")}, "network unavailable, check your connection and try again"},
		{"http message", &api.HTTPError{StatusCode: 409, Message: "transaction already paid"}, "transaction already paid"},
		{"http status text", &api.HTTPError{StatusCode: 500}, "internal server error"},
		{"http unknown status", &api.HTTPError{StatusCode: 599}, "request failed with status 599"},
		{"auth lost", api.ErrAuthLost, "session expired, please log in again"},
		{"validation", fieldRequired("bank"), "please correct the highlighted fields"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "awaiting-confirmation", StageAwaitingConfirmation.String())
	assert.Equal(t, "unknown", Stage(99).String())
}

func TestWorkflow_RefreshReadsTransaction(t *testing.T) {
	gw := &fakeGateway{}
	w := New(gw, testOrder)
	ctx := context.Background()

	var illegal *IllegalStateError
	require.ErrorAs(t, w.Refresh(ctx), &illegal, "nothing to refresh before create")

	w = atDetails(t, gw, payments.MethodBankTransfer)
	require.NoError(t, w.Refresh(ctx))
	st := w.Snapshot()
	assert.Equal(t, StageMethodDetails, st.Stage)
	require.NotNil(t, st.Transaction)
	assert.Equal(t, payments.StatusProcessing, st.Transaction.PaymentStatus)
	assert.False(t, st.Busy)

	gw.getErr = &api.NetworkError{Op: "GET", Err: errors.New("down")}
	require.Error(t, w.Refresh(ctx))
	assert.Equal(t, StageMethodDetails, w.Snapshot().Stage)
	assert.Equal(t, payments.StatusProcessing, w.Snapshot().Transaction.PaymentStatus)
}
