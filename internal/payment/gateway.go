package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"hotel-reservation-backend/config"
)

var (
	// ErrGatewayUnavailable wraps every provider-side failure.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrInvalidCheckout is returned before calling the provider.
	ErrInvalidCheckout = errors.New("invalid checkout request")
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// CheckoutRequest describes the session to open with the provider.
type CheckoutRequest struct {
	Reference   string
	SuccessURL  string
	CancelURL   string
	AmountCents int64
	Currency    string
	Description string
	ExpiresAt   time.Time
}

// Checkout is an opened provider session.
type Checkout struct {
	URL        string
	ProviderID string
	Raw        json.RawMessage
}

// Gateway opens hosted checkout sessions. The provider later redirects the
// guest to SuccessURL or CancelURL.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

func (r CheckoutRequest) validate() error {
	switch {
	case r.Reference == "":
		return fmt.Errorf("%w: reference is required", ErrInvalidCheckout)
	case r.AmountCents <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidCheckout)
	case r.SuccessURL == "" || r.CancelURL == "":
		return fmt.Errorf("%w: callback urls are required", ErrInvalidCheckout)
	}
	return nil
}

// New builds the configured gateway. PAYMENT_GATEWAY_MOCK forces the mock.
func New(cfg config.PaymentConfig) (Gateway, error) {
	if isMockEnabled() {
		log.Printf("[payment][gateway] mock mode enabled by environment")
		return NewMockGateway(), nil
	}
	switch strings.ToLower(cfg.Provider) {
	case "mock":
		log.Printf("[payment][gateway] mock mode enabled")
		return NewMockGateway(), nil
	case "mercadopago":
		return NewMercadoPagoGateway(cfg.MercadoPagoAccessToken, cfg.Currency)
	case "midtrans":
		return NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransProduction)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func isMockEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PAYMENT_GATEWAY_MOCK")))
	switch v {
	case "1", "true", "yes", "on", "mock":
		return true
	}
	return false
}
