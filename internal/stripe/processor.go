/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package stripe implements the payment processor on Stripe payment intents.
package stripe

import (
	"context"
	"fmt"

	"donneur-go/internal/models"
	"donneur-go/internal/transport"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

type Processor struct {
	api *client.API
}

// NewProcessor creates a Stripe client from the payments config. baseURL overrides the
// API endpoint and is empty outside tests.
func NewProcessor(cfg models.PaymentsConfig, baseURL string) (*Processor, error) {
	if cfg.StripeKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	httpClient, err := transport.NewHTTPClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     leveledLogger{},
		MaxNetworkRetries: stripe.Int64(2),
		EnableTelemetry:   stripe.Bool(false),
	}
	if baseURL != "" {
		backendConfig.URL = stripe.String(baseURL)
		backendConfig.MaxNetworkRetries = stripe.Int64(0)
	}

	api := &client.API{}
	api.Init(cfg.StripeKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	})
	return &Processor{api: api}, nil
}

func (p *Processor) CreateIntent(ctx context.Context, amountMinorUnits int64, currency string) (*models.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinorUnits),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("unable to create payment intent: %w", err)
	}

	zap.L().Info("Payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", amountMinorUnits),
		zap.String("currency", currency))
	return &models.PaymentIntent{Id: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (p *Processor) CancelIntent(ctx context.Context, intentId string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := p.api.PaymentIntents.Cancel(intentId, params); err != nil {
		return fmt.Errorf("unable to cancel payment intent %s: %w", intentId, err)
	}
	zap.L().Info("Payment intent cancelled", zap.String("intent_id", intentId))
	return nil
}

func (p *Processor) RetrievePaymentMethod(ctx context.Context, methodId string) (*models.PaymentMethodDetails, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	method, err := p.api.PaymentMethods.Get(methodId, params)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve payment method %s: %w", methodId, err)
	}
	return toPaymentMethodDetails(method), nil
}

func toPaymentMethodDetails(method *stripe.PaymentMethod) *models.PaymentMethodDetails {
	details := &models.PaymentMethodDetails{}
	if billing := method.BillingDetails; billing != nil {
		details.BillingName = billing.Name
		if address := billing.Address; address != nil {
			details.BillingAddress = models.Address{
				Street:     address.Line1,
				Apt:        address.Line2,
				City:       address.City,
				Province:   address.State,
				PostalCode: address.PostalCode,
				Country:    address.Country,
			}
		}
	}
	if card := method.Card; card != nil {
		details.Brand = string(card.Brand)
		if card.Wallet != nil {
			details.Wallet = string(card.Wallet.Type)
		}
	}
	return details
}

// leveledLogger routes stripe-go's internal logging through zap.
type leveledLogger struct{}

func (leveledLogger) Debugf(format string, v ...interface{}) {
	zap.L().Debug(fmt.Sprintf(format, v...))
}

func (leveledLogger) Infof(format string, v ...interface{}) {
	zap.L().Debug(fmt.Sprintf(format, v...))
}

func (leveledLogger) Warnf(format string, v ...interface{}) {
	zap.L().Warn(fmt.Sprintf(format, v...))
}

func (leveledLogger) Errorf(format string, v ...interface{}) {
	zap.L().Error(fmt.Sprintf(format, v...))
}
