package payments

import "time"

type Method string

const (
	MethodCreditCard   Method = "Credit Card"
	MethodBankTransfer Method = "Bank Transfer"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusSuccess    Status = "Success"
	StatusFailed     Status = "Failed"
	StatusRefunded   Status = "Refunded"
)

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

type CreateRequest struct {
	StudentID     string  `json:"studentId" validate:"required"`
	CourseID      int64   `json:"courseId" validate:"gt=0"`
	CourseTitle   string  `json:"courseTitle" validate:"required"`
	TutorName     string  `json:"tutorName" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	PaymentMethod Method  `json:"paymentMethod" validate:"oneof='Credit Card' 'Bank Transfer'"`
}

type CardDetails struct {
	CardNumber string `json:"cardNumber" validate:"required,numeric,min=12,max=19"`
	CardHolder string `json:"cardHolder" validate:"required"`
	ExpiryDate string `json:"expiryDate" validate:"required,len=5"`
	CVC        string `json:"cvc" validate:"required,numeric,min=3,max=4"`
}

type BankTransferRequest struct {
	BankCode string `json:"bankCode" validate:"required,oneof=bca bni bri mandiri"`
}

type RefundRequest struct {
	Reason  string `json:"reason" validate:"required"`
	Details string `json:"details"`
}

type RefundStatus string

const RefundRequested RefundStatus = "Requested"

type Refund struct {
	RefundID      string       `json:"refundId"`
	TransactionID string       `json:"transactionId"`
	Reason        string       `json:"reason"`
	Details       string       `json:"details"`
	Status        RefundStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
}
