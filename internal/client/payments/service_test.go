package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/coursepay/internal/client/api"
	"github.com/dmitrijs2005/coursepay/internal/client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   string
}

func newService(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Service, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, body: string(b)})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &session.Credential{Token: "t", RefreshToken: "r", UserID: "7"}))
	return NewService(api.New(srv.URL, store)), &calls
}

func reply(v any) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestService_Create(t *testing.T) {
	svc, calls := newService(t, reply(Transaction{TransactionID: "tx-1", PaymentStatus: StatusPending, PaymentMethod: MethodCreditCard}))

	tx, err := svc.Create(context.Background(), CreateRequest{
		StudentID: "7", CourseID: 1, CourseTitle: "Go", TutorName: "Rob", Amount: 299.99, PaymentMethod: MethodCreditCard,
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.TransactionID)
	assert.False(t, tx.PaymentStatus.IsTerminal())

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, "POST", c.method)
	assert.Equal(t, "/api/payments", c.path)
	assert.JSONEq(t, `{"studentId":"7","courseId":1,"courseTitle":"Go","tutorName":"Rob","amount":299.99,"paymentMethod":"Credit Card"}`, c.body)
}

func TestService_ActionPaths(t *testing.T) {
	svc, calls := newService(t, reply(Transaction{TransactionID: "tx 1", PaymentStatus: StatusSuccess}))
	ctx := context.Background()

	_, err := svc.SubmitCreditCard(ctx, "tx 1", CardDetails{CardNumber: "4111111111111111", CardHolder: "Jane Doe", ExpiryDate: "12/27", CVC: "123"})
	require.NoError(t, err)
	_, err = svc.ProcessBankTransfer(ctx, "tx 1", "bca")
	require.NoError(t, err)
	_, err = svc.ConfirmTransfer(ctx, "tx 1")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "tx 1")
	require.NoError(t, err)

	paths := make([]string, 0, len(*calls))
	for _, c := range *calls {
		paths = append(paths, c.method+" "+c.path)
	}
	assert.Equal(t, []string{
		"POST /api/payments/tx 1/credit-card",
		"POST /api/payments/tx 1/bank-transfer",
		"POST /api/payments/tx 1/confirm-transfer",
		"GET /api/payments/tx 1",
	}, paths)

	assert.JSONEq(t, `{"cardNumber":"4111111111111111","cardHolder":"Jane Doe","expiryDate":"12/27","cvc":"123"}`, (*calls)[0].body)
	assert.JSONEq(t, `{"bankCode":"bca"}`, (*calls)[1].body)
	assert.Empty(t, (*calls)[2].body)
}

func TestService_Get(t *testing.T) {
	svc, calls := newService(t, reply(Transaction{
		TransactionID: "tx-1", PaymentMethod: MethodBankTransfer, PaymentStatus: StatusProcessing, BankCode: "bni",
	}))

	tx, err := svc.Get(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, tx.PaymentStatus)
	assert.Equal(t, "bni", tx.BankCode)
	require.Len(t, *calls, 1)
	assert.Equal(t, "GET /api/payments/tx-1", (*calls)[0].method+" "+(*calls)[0].path)
	assert.Empty(t, (*calls)[0].body)

	_, err = svc.Get(context.Background(), "")
	require.Error(t, err)
	assert.Len(t, *calls, 1, "empty id is rejected locally")
}

func TestService_GetNotFound(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"transaction not found"}`))
	})
	_, err := svc.Get(context.Background(), "tx-9")
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestService_RequestRefund(t *testing.T) {
	svc, calls := newService(t, reply(Refund{RefundID: "rf-1", TransactionID: "tx-1", Status: RefundRequested}))

	rf, err := svc.RequestRefund(context.Background(), "tx-1", RefundRequest{Reason: "not_as_described", Details: "audio broken"})
	require.NoError(t, err)
	assert.Equal(t, RefundRequested, rf.Status)
	assert.Equal(t, "/api/payments/tx-1/refund", (*calls)[0].path)
}

func TestService_EmptyIDRejectedLocally(t *testing.T) {
	svc, calls := newService(t, reply(Transaction{}))
	_, err := svc.ConfirmTransfer(context.Background(), "")
	require.Error(t, err)
	assert.Empty(t, *calls)
}

func TestService_MissingTransactionID(t *testing.T) {
	svc, _ := newService(t, reply(map[string]string{"paymentStatus": "Pending"}))
	_, err := svc.Create(context.Background(), CreateRequest{})
	require.EqualError(t, err, "payment response missing transaction id")
}

func TestService_PropagatesHTTPError(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"message":"card declined"}`))
	})
	_, err := svc.SubmitCreditCard(context.Background(), "tx-1", CardDetails{})

	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "card declined", httpErr.Message)
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"card": MethodCreditCard, "Credit Card": MethodCreditCard,
		"bank": MethodBankTransfer, "Bank Transfer": MethodBankTransfer,
	} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMethod("cash")
	require.Error(t, err)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusSuccess.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
}
