package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/coursepay/internal/client/checkout"
	"github.com/dmitrijs2005/coursepay/internal/client/payments"
	"github.com/dmitrijs2005/coursepay/internal/common"
)

var errNoCheckout = errors.New("no checkout in progress, use 'checkout' first")

func (a *App) hasCheckout() bool {
	return a.workflow != nil
}

// parseOrder reads "<courseId> <amount> <title>|<tutor>".
func parseOrder(args []string) (checkout.Order, error) {
	if len(args) < 3 {
		return checkout.Order{}, errors.New("usage: checkout <courseId> <amount> <title>|<tutor>")
	}
	courseID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return checkout.Order{}, fmt.Errorf("invalid course id %q", args[0])
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return checkout.Order{}, fmt.Errorf("invalid amount %q", args[1])
	}
	title, tutor, _ := strings.Cut(strings.Join(args[2:], " "), "|")
	return checkout.Order{
		CourseID:    courseID,
		Amount:      amount,
		CourseTitle: strings.TrimSpace(title),
		TutorName:   strings.TrimSpace(tutor),
	}, nil
}

// Checkout starts a new purchase, replacing any unfinished one.
func (a *App) Checkout(ctx context.Context, args []string) error {
	order, err := parseOrder(args)
	if err != nil {
		printlnFn(err)
		return err
	}
	wf, err := a.checkoutService.Start(ctx, order, checkout.WithOnComplete(a.onPaymentComplete))
	if err != nil {
		printlnFn("Error:", checkout.Describe(err))
		return err
	}
	a.workflow = wf
	printlnFn(fmt.Sprintf("Checkout started for %q (%.2f). Choose a method: method card|bank", order.CourseTitle, order.Amount))
	return nil
}

func (a *App) Method(args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: method card|bank")
		return errors.New("missing method")
	}
	method, err := payments.ParseMethod(args[0])
	if err != nil {
		printlnFn(err)
		return err
	}
	return a.step(func(wf *checkout.Workflow) error { return wf.Choose(method) }, "Method: "+string(method))
}

func (a *App) Confirm(ctx context.Context) error {
	return a.step(func(wf *checkout.Workflow) error { return wf.ConfirmSelection(ctx) }, "Transaction created")
}

// Card prompts for the card details. The CVC is read without echo.
func (a *App) Card(ctx context.Context) error {
	if a.workflow == nil {
		printlnFn(errNoCheckout)
		return errNoCheckout
	}

	var card payments.CardDetails
	prompts := []struct {
		text string
		dst  *string
	}{
		{"Card number", &card.CardNumber},
		{"Card holder", &card.CardHolder},
		{"Expiry (MM/YY)", &card.ExpiryDate},
	}
	for _, p := range prompts {
		v, err := getSimpleText(a.reader, p.text, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}
	cvc, err := getSecret("CVC", a.out)
	if err != nil {
		return err
	}
	card.CVC = string(cvc)
	common.WipeByteArray(cvc)

	return a.step(func(wf *checkout.Workflow) error { return wf.SubmitCard(ctx, card) }, "")
}

func (a *App) Bank(args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: bank " + strings.Join(checkout.Banks, "|"))
		return errors.New("missing bank")
	}
	return a.step(func(wf *checkout.Workflow) error { return wf.SelectBank(args[0]) }, "Bank: "+strings.ToLower(args[0]))
}

func (a *App) Proceed(ctx context.Context) error {
	err := a.step(func(wf *checkout.Workflow) error { return wf.Proceed(ctx) }, "")
	if err == nil {
		st := a.workflow.Snapshot()
		printlnFn(fmt.Sprintf("Transfer the amount via %s quoting transaction %s, then type 'transferred'",
			strings.ToUpper(st.Bank), st.TransactionID))
	}
	return err
}

func (a *App) Transferred(ctx context.Context) error {
	return a.step(func(wf *checkout.Workflow) error { return wf.ConfirmTransfer(ctx) }, "")
}

func (a *App) Back() error {
	return a.step(func(wf *checkout.Workflow) error { return wf.Back() }, "")
}

func (a *App) Status(ctx context.Context) error {
	if a.workflow == nil {
		printlnFn(errNoCheckout)
		return errNoCheckout
	}
	if a.workflow.Snapshot().TransactionID != "" {
		if err := a.workflow.Refresh(ctx); err != nil {
			printlnFn("Could not refresh:", checkout.Describe(err))
		}
	}
	for _, line := range describeState(a.workflow.Snapshot()) {
		printlnFn(line)
	}
	return nil
}

func (a *App) Refund(ctx context.Context) error {
	if a.workflow == nil {
		printlnFn(errNoCheckout)
		return errNoCheckout
	}
	reason, err := getSimpleText(a.reader, "Refund reason", a.out)
	if err != nil {
		return err
	}
	details, err := getSimpleText(a.reader, "Details (optional)", a.out)
	if err != nil {
		return err
	}

	refund, err := a.workflow.RequestRefund(ctx, payments.RefundRequest{Reason: reason, Details: details})
	if err != nil {
		a.report(err)
		return err
	}
	printlnFn(fmt.Sprintf("Refund %s: %s", refund.RefundID, refund.Status))
	return nil
}

func (a *App) onPaymentComplete(tx payments.Transaction) {
	printlnFn(fmt.Sprintf("Payment completed: transaction %s is %s", tx.TransactionID, tx.PaymentStatus))
}

// step runs one workflow transition and reports the outcome.
func (a *App) step(fn func(*checkout.Workflow) error, okMsg string) error {
	if a.workflow == nil {
		printlnFn(errNoCheckout)
		return errNoCheckout
	}
	if err := fn(a.workflow); err != nil {
		a.report(err)
		return err
	}
	if okMsg != "" {
		printlnFn(okMsg)
	}
	return nil
}

func (a *App) report(err error) {
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			printlnFn(" -", f.Error)
		}
		return
	}
	var illegal *checkout.IllegalStateError
	if errors.As(err, &illegal) {
		printlnFn("Not available now:", illegal.Error())
		return
	}
	printlnFn("Error:", checkout.Describe(err))
}

func describeState(st checkout.State) []string {
	lines := []string{"Stage: " + st.Stage.String()}
	if st.Method != "" {
		lines = append(lines, "Method: "+string(st.Method))
	}
	if st.TransactionID != "" {
		lines = append(lines, "Transaction: "+st.TransactionID)
	}
	if st.Bank != "" {
		lines = append(lines, "Bank: "+st.Bank)
	}
	if st.Transaction != nil && st.Transaction.PaymentStatus != "" {
		lines = append(lines, "Payment status: "+string(st.Transaction.PaymentStatus))
	}
	if st.Refund != nil {
		lines = append(lines, fmt.Sprintf("Refund: %s (%s)", st.Refund.RefundID, st.Refund.Status))
	}
	switch {
	case st.Transaction != nil && st.Transaction.PaymentStatus == payments.StatusFailed:
		lines = append(lines, "Payment failed, start a new checkout")
	case st.Stage == checkout.StageErrored:
		lines = append(lines, "Failed during "+st.Previous.String()+", type 'back' or retry")
	}
	if st.Message != "" {
		lines = append(lines, "Message: "+st.Message)
	}
	fields := make([]string, 0, len(st.FieldErrors))
	for f := range st.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		lines = append(lines, " - "+st.FieldErrors[f])
	}
	return lines
}
