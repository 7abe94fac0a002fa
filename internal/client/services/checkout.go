package services

import (
	"context"

	"github.com/dmitrijs2005/coursepay/internal/client/checkout"
	"github.com/dmitrijs2005/coursepay/internal/logging"
)

// CheckoutService starts purchase workflows for the logged-in student.
type CheckoutService interface {
	Start(ctx context.Context, order checkout.Order, opts ...checkout.Option) (*checkout.Workflow, error)
}

type checkoutService struct {
	auth    AuthService
	gateway checkout.Gateway
	logger  logging.Logger
}

func NewCheckoutService(auth AuthService, gateway checkout.Gateway, logger logging.Logger) CheckoutService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &checkoutService{auth: auth, gateway: gateway, logger: logger}
}

// Start returns a fresh workflow whose payer is the session's user.
func (s *checkoutService) Start(ctx context.Context, order checkout.Order, opts ...checkout.Option) (*checkout.Workflow, error) {
	cred, err := s.auth.Current(ctx)
	if err != nil {
		return nil, err
	}
	order.StudentID = cred.UserID

	s.logger.Debug(ctx, "checkout started", "course_id", order.CourseID, "student_id", order.StudentID)
	opts = append([]checkout.Option{checkout.WithLogger(s.logger)}, opts...)
	return checkout.New(s.gateway, order, opts...), nil
}
