package checkout

import "github.com/dmitrijs2005/coursepay/internal/client/payments"

// Stage tags the position of a purchase in the checkout flow.
type Stage int

const (
	StageMethodSelection Stage = iota
	StageInitiating
	StageMethodDetails
	StageConfirming
	StageAwaitingConfirmation
	StageCompleted
	StageErrored
)

var stageNames = map[Stage]string{
	StageMethodSelection:      "method-selection",
	StageInitiating:           "initiating",
	StageMethodDetails:        "method-details",
	StageConfirming:           "confirming",
	StageAwaitingConfirmation: "awaiting-confirmation",
	StageCompleted:            "completed",
	StageErrored:              "errored",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Banks lists the bank codes accepted for transfers.
var Banks = []string{"bca", "bni", "bri", "mandiri"}

func knownBank(code string) bool {
	for _, b := range Banks {
		if b == code {
			return true
		}
	}
	return false
}

// State is a point-in-time copy of the workflow.
type State struct {
	Stage         Stage
	Method        payments.Method
	TransactionID string
	Bank          string
	Busy          bool

	// Message is the user-facing text for the last failure, if any.
	Message     string
	FieldErrors map[string]string

	// Previous is the interactive stage an Errored workflow returns to.
	Previous Stage

	Transaction *payments.Transaction
	Refund      *payments.Refund
}

func (s State) clone() State {
	out := s
	if s.FieldErrors != nil {
		out.FieldErrors = make(map[string]string, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			out.FieldErrors[k] = v
		}
	}
	if s.Transaction != nil {
		tx := *s.Transaction
		out.Transaction = &tx
	}
	if s.Refund != nil {
		rf := *s.Refund
		out.Refund = &rf
	}
	return out
}

// failed reports whether the server marked the transaction Failed. A failed
// transaction accepts no further payment steps; a new checkout is needed.
func (s State) failed() bool {
	return s.Transaction != nil && s.Transaction.PaymentStatus == payments.StatusFailed
}

// interactive is the stage that decides which transitions are allowed. An
// Errored workflow accepts the transitions of the stage it failed from.
func (s State) interactive() Stage {
	if s.Stage == StageErrored {
		return s.Previous
	}
	return s.Stage
}
