package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")

// preferenceCreator is the part of the Mercado Pago preference client we use.
type preferenceCreator interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

// MercadoPagoGateway opens Checkout Pro preferences.
type MercadoPagoGateway struct {
	client   preferenceCreator
	currency string
}

// NewMercadoPagoGateway creates a gateway from an access token.
func NewMercadoPagoGateway(accessToken, currency string) (*MercadoPagoGateway, error) {
	if accessToken == "" {
		log.Printf("[payment][gateway] missing MERCADOPAGO_ACCESS_TOKEN")
		return nil, ErrMissingMercadoPagoAccessToken
	}
	cfg, err := mpconfig.New(accessToken)
	if err != nil {
		log.Printf("[payment][gateway] failed creating sdk config err=%v", err)
		return nil, err
	}
	log.Printf("[payment][gateway] Mercado Pago client initialized")
	return &MercadoPagoGateway{client: preference.NewClient(cfg), currency: currency}, nil
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

func (g *MercadoPagoGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}
	expires := req.ExpiresAt.UTC()

	request := preference.Request{
		ExternalReference: req.Reference,
		Items: []preference.ItemRequest{{
			ID:         req.Reference,
			Title:      req.Description,
			Quantity:   1,
			UnitPrice:  float64(req.AmountCents) / 100,
			CurrencyID: currency,
		}},
		BackURLs: &preference.BackURLsRequest{
			Success: req.SuccessURL,
			Failure: req.CancelURL,
			Pending: req.CancelURL,
		},
		AutoReturn: "approved",
	}
	if !req.ExpiresAt.IsZero() {
		request.Expires = true
		request.ExpirationDateTo = &expires
	}

	log.Printf("[payment][gateway] create preference reference=%s amount_cents=%d", req.Reference, req.AmountCents)
	resp, err := g.client.Create(ctx, request)
	if err != nil {
		log.Printf("[payment][gateway] sdk create failed reference=%s err=%v", req.Reference, err)
		return nil, fmt.Errorf("%w: mercadopago: %v", ErrGatewayUnavailable, err)
	}
	if resp == nil || resp.InitPoint == "" {
		return nil, fmt.Errorf("%w: mercadopago returned no init point", ErrGatewayUnavailable)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[payment][gateway] response marshal failed err=%v", err)
		raw = nil
	}
	log.Printf("[payment][gateway] create success reference=%s preference_id=%s", req.Reference, resp.ID)
	return &Checkout{URL: resp.InitPoint, ProviderID: resp.ID, Raw: raw}, nil
}
