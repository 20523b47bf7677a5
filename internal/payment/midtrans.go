package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

var ErrMissingMidtransServerKey = errors.New("missing MIDTRANS_SERVER_KEY")

const midtransTimeLayout = "2006-01-02 15:04:05 -0700"

// snapCreator is the part of the Snap client we use.
type snapCreator interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// MidtransGateway opens Snap payment pages.
type MidtransGateway struct {
	client snapCreator
	now    func() time.Time
}

// NewMidtransGateway creates a Snap gateway for sandbox or production.
func NewMidtransGateway(serverKey string, production bool) (*MidtransGateway, error) {
	if serverKey == "" {
		return nil, ErrMissingMidtransServerKey
	}
	var client snap.Client
	if production {
		client.New(serverKey, midtrans.Production)
	} else {
		client.New(serverKey, midtrans.Sandbox)
	}
	log.Printf("[payment][gateway] Midtrans Snap client initialized production=%t", production)
	return &MidtransGateway{client: &client, now: time.Now}, nil
}

func (g *MidtransGateway) Name() string { return "midtrans" }

// CreateCheckout opens a Snap transaction. Amounts are whole currency units,
// so cents are truncated.
func (g *MidtransGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	gross := req.AmountCents / 100

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    req.Reference,
			Name:  truncate(req.Description, 50),
			Price: gross,
			Qty:   1,
		}},
		Callbacks: &snap.Callbacks{Finish: req.SuccessURL},
	}
	if !req.ExpiresAt.IsZero() {
		now := g.now()
		minutes := int64(req.ExpiresAt.Sub(now) / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		snapReq.Expiry = &snap.ExpiryDetails{
			StartTime: now.Format(midtransTimeLayout),
			Unit:      "minute",
			Duration:  minutes,
		}
	}

	resp, mErr := g.client.CreateTransaction(snapReq)
	if mErr != nil {
		log.Printf("[payment][gateway] snap create failed order_id=%s err=%s", req.Reference, mErr.Message)
		return nil, fmt.Errorf("%w: midtrans: %s", ErrGatewayUnavailable, mErr.Message)
	}
	if resp == nil || resp.RedirectURL == "" {
		return nil, fmt.Errorf("%w: midtrans returned no redirect url", ErrGatewayUnavailable)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}
	log.Printf("[payment][gateway] snap create success order_id=%s", req.Reference)
	return &Checkout{URL: resp.RedirectURL, ProviderID: resp.Token, Raw: raw}, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
