package payment

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// MockGateway approves every checkout by sending the guest straight to the
// success callback. It is meant for local runs and tests.
type MockGateway struct{}

// NewMockGateway creates a mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(map[string]any{
		"id":           req.Reference,
		"status":       "approved",
		"amount_cents": req.AmountCents,
		"date_created": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[payment][gateway] mock checkout reference=%s amount_cents=%d", req.Reference, req.AmountCents)
	return &Checkout{URL: req.SuccessURL, ProviderID: req.Reference, Raw: raw}, nil
}
