package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"

	"github.com/tipdrop/tipdrop-api/internal/config"
)

// StripeGateway implements PaymentGateway against Stripe PaymentIntents.
type StripeGateway struct {
	conf *config.StripeConfig
}

func NewStripeGateway(conf *config.StripeConfig) *StripeGateway {
	stripe.Key = conf.SecretKey

	return &StripeGateway{
		conf: conf,
	}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("paymentintent.New -> %w", err)
	}

	return intent.ID, intent.ClientSecret, nil
}
