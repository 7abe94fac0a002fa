// Package payments wraps the payment endpoints of the marketplace API.
// Every call goes through the authenticated api.Client, so errors are the
// api taxonomy (*api.NetworkError, *api.HTTPError, api.ErrAuthLost) plus
// decode failures.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/coursepay/internal/client/api"
)

const basePath = "/api/payments"

// Requester is the part of api.Client the service needs.
type Requester interface {
	Get(ctx context.Context, path string) (*api.Response, error)
	Post(ctx context.Context, path string, body any) (*api.Response, error)
}

type Service struct {
	client Requester
}

func NewService(client Requester) *Service {
	return &Service{client: client}
}

// Create opens a transaction for the order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Transaction, error) {
	return s.postTransaction(ctx, basePath, req)
}

func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	path, err := paymentPath(id, "")
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeTransaction(resp)
}

func (s *Service) SubmitCreditCard(ctx context.Context, id string, card CardDetails) (*Transaction, error) {
	path, err := paymentPath(id, "credit-card")
	if err != nil {
		return nil, err
	}
	return s.postTransaction(ctx, path, card)
}

// ProcessBankTransfer registers the chosen bank and moves the transaction to
// awaiting the user's transfer.
func (s *Service) ProcessBankTransfer(ctx context.Context, id, bankCode string) (*Transaction, error) {
	path, err := paymentPath(id, "bank-transfer")
	if err != nil {
		return nil, err
	}
	return s.postTransaction(ctx, path, bankTransferRequest{BankCode: bankCode})
}

func (s *Service) ConfirmTransfer(ctx context.Context, id string) (*Transaction, error) {
	path, err := paymentPath(id, "confirm-transfer")
	if err != nil {
		return nil, err
	}
	return s.postTransaction(ctx, path, nil)
}

func (s *Service) RequestRefund(ctx context.Context, id string, req RefundRequest) (*Refund, error) {
	path, err := paymentPath(id, "refund")
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Post(ctx, path, req)
	if err != nil {
		return nil, err
	}
	var refund Refund
	if err := resp.Decode(&refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (s *Service) postTransaction(ctx context.Context, path string, body any) (*Transaction, error) {
	resp, err := s.client.Post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return decodeTransaction(resp)
}

func decodeTransaction(resp *api.Response) (*Transaction, error) {
	var tx Transaction
	if err := resp.Decode(&tx); err != nil {
		return nil, err
	}
	if tx.TransactionID == "" {
		return nil, errors.New("payment response missing transaction id")
	}
	return &tx, nil
}

func paymentPath(id, action string) (string, error) {
	if id == "" {
		return "", errors.New("transaction id is required")
	}
	p := fmt.Sprintf("%s/%s", basePath, url.PathEscape(id))
	if action != "" {
		p += "/" + action
	}
	return p, nil
}
