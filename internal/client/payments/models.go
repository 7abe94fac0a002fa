package payments

import (
	"fmt"
	"strings"
	"time"
)

type Method string

const (
	MethodCreditCard   Method = "Credit Card"
	MethodBankTransfer Method = "Bank Transfer"
)

// ParseMethod accepts the wire names plus the short forms "card" and "bank".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "card", "credit card", "creditcard", "credit_card":
		return MethodCreditCard, nil
	case "bank", "bank transfer", "banktransfer", "bank_transfer":
		return MethodBankTransfer, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusSuccess    Status = "Success"
	StatusFailed     Status = "Failed"
	StatusRefunded   Status = "Refunded"
)

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// Transaction is one server-tracked payment attempt. Status is
// server-authoritative; the client only observes it.
type Transaction struct {
	TransactionID string    `json:"transactionId"`
	StudentID     string    `json:"studentId"`
	CourseID      int64     `json:"courseId"`
	CourseTitle   string    `json:"courseTitle"`
	TutorName     string    `json:"tutorName"`
	Amount        float64   `json:"amount"`
	PaymentMethod Method    `json:"paymentMethod"`
	PaymentStatus Status    `json:"paymentStatus"`
	BankCode      string    `json:"bankCode,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateRequest is the order data needed to open a transaction.
type CreateRequest struct {
	StudentID     string  `json:"studentId" validate:"required"`
	CourseID      int64   `json:"courseId" validate:"required,gt=0"`
	CourseTitle   string  `json:"courseTitle" validate:"required"`
	TutorName     string  `json:"tutorName" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	PaymentMethod Method  `json:"paymentMethod" validate:"required,oneof='Credit Card' 'Bank Transfer'"`
}

// CardDetails are collected for credit-card payments.
type CardDetails struct {
	CardNumber string `json:"cardNumber" validate:"required"`
	CardHolder string `json:"cardHolder" validate:"required"`
	ExpiryDate string `json:"expiryDate" validate:"required,expiry"`
	CVC        string `json:"cvc" validate:"required,min=3"`
}

type bankTransferRequest struct {
	BankCode string `json:"bankCode,omitempty"`
}

type RefundRequest struct {
	Reason  string `json:"reason" validate:"required"`
	Details string `json:"details"`
}

type RefundStatus string

const (
	RefundRequested RefundStatus = "Requested"
	RefundApproved  RefundStatus = "Approved"
	RefundRejected  RefundStatus = "Rejected"
)

type Refund struct {
	RefundID      string       `json:"refundId"`
	TransactionID string       `json:"transactionId"`
	Reason        string       `json:"reason"`
	Details       string       `json:"details"`
	Status        RefundStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
}
