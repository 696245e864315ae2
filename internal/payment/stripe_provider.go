package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider creates hosted checkout sessions and authenticates webhooks.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	allowUnsigned bool
}

// NewStripeProvider returns a provider. allowUnsigned lets webhooks through
// without a signature when no webhook secret is configured (local development only).
func NewStripeProvider(secretKey, webhookSecret string, allowUnsigned bool) *StripeProvider {
	var api *client.API
	if secretKey != "" {
		api = &client.API{}
		api.Init(secretKey, nil)
	}
	return &StripeProvider{api: api, webhookSecret: webhookSecret, allowUnsigned: allowUnsigned}
}

func (p *StripeProvider) CreateSession(ctx context.Context, in SessionParams) (*Session, error) {
	if p.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(in.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(ProductName),
						Description: stripe.String(in.Description),
					},
					UnitAmount: stripe.Int64(in.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("requestId", in.RequestID)
	params.AddMetadata("userId", in.UserID)
	params.AddMetadata("repairerId", in.RepairerID)

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the signature and extracts the checkout session, if any.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	var ev stripe.Event
	switch {
	case p.webhookSecret != "":
		verified, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		ev = verified
	case p.allowUnsigned:
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	default:
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutSessionCompleted || ev.Data == nil {
		return out, nil
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = cs.ID
	out.Metadata = cs.Metadata
	return out, nil
}
