package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Nagulan13/oboma/internal/apperr"
)

// PaymentSession is the session descriptor that drives the hosted payment sheet.
type PaymentSession struct {
	PaymentIntent string `json:"paymentIntent"`
	EphemeralKey  string `json:"ephemeralKey"`
	Customer      string `json:"customer"`
}

// PaymentGatewayClient talks to the payment gateway adapter service.
type PaymentGatewayClient struct{ c *Client }

func NewPaymentGatewayClient(c *Client) *PaymentGatewayClient { return &PaymentGatewayClient{c: c} }

// CreatePaymentSheet asks the gateway for a session for amount minor units.
// A non-positive amount is never sent; transport and gateway failures wrap
// ErrPaymentSession.
func (pc *PaymentGatewayClient) CreatePaymentSheet(ctx context.Context, amount int64) (PaymentSession, error) {
	if amount <= 0 {
		return PaymentSession{}, apperr.Invalid("amount", "must be a positive number of minor units")
	}

	var s PaymentSession
	err := pc.c.DoJSON(ctx, http.MethodPost, "/payment-sheet", map[string]int64{"amount": amount}, &s)
	if err != nil {
		return PaymentSession{}, fmt.Errorf("%w: %v", apperr.ErrPaymentSession, err)
	}
	if s.PaymentIntent == "" {
		return PaymentSession{}, fmt.Errorf("%w: gateway returned no payment intent", apperr.ErrPaymentSession)
	}
	return s, nil
}

func (pc *PaymentGatewayClient) PublishableKey(ctx context.Context) (string, error) {
	var out struct {
		Key string `json:"key"`
	}
	if err := pc.c.DoJSON(ctx, http.MethodGet, "/get-publishable-key", nil, &out); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrPaymentSession, err)
	}
	if out.Key == "" {
		return "", fmt.Errorf("%w: empty publishable key", apperr.ErrPaymentSession)
	}
	return out.Key, nil
}
