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

// Package payment drives donations through the external payment processor:
// an intent is created, the donation is recorded unconfirmed under the
// intent id, and the processor's success payload later confirms it.
package payment

import (
	"context"
	"strings"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/ledger"
	"donneur-go/internal/models"
	"donneur-go/internal/store"
	"donneur-go/internal/translog"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ErrReceiverNotFound     = errors.ConstError("receiver not found")
	ErrOrganizationNotFound = errors.ConstError("organization not found")
	ErrAmountOutOfRange     = errors.ConstError("donation amount out of range")
	ErrInvalidClientSecret  = errors.ConstError("invalid client secret")
	ErrInvalidPayload       = errors.ConstError("invalid processor payload")
	ErrProcessor            = errors.ConstError("payment processor failure")
)

var (
	minDonation = decimal.RequireFromString("0.50")
	maxDonation = decimal.RequireFromString("1000.00")
)

// Processor is the external payment provider.
type Processor interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, currency string) (*models.PaymentIntent, error)
	CancelIntent(ctx context.Context, intentId string) error
	RetrievePaymentMethod(ctx context.Context, methodId string) (*models.PaymentMethodDetails, error)
}

type Service struct {
	processor     Processor
	log           *translog.Log
	receivers     store.ReceiverStore
	organizations store.OrganizationStore
	senders       store.SenderStore
	currency      string
}

func NewService(processor Processor, log *translog.Log, receivers store.ReceiverStore,
	organizations store.OrganizationStore, senders store.SenderStore, currency string) *Service {
	return &Service{
		processor:     processor,
		log:           log,
		receivers:     receivers,
		organizations: organizations,
		senders:       senders,
		currency:      currency,
	}
}

// InitiateDonation creates a processor intent for a donation to receiverId
// and records the unconfirmed donation under the intent id. It returns the
// client secret the donor's browser needs to complete payment.
func (s *Service) InitiateDonation(ctx context.Context, receiverId string, amount decimal.Decimal) (string, error) {
	if amount.LessThan(minDonation) || !amount.LessThan(maxDonation) {
		return "", apperrors.New(apperrors.InvalidInput, ErrAmountOutOfRange,
			"%s must be at least %s and below %s", amount.String(), minDonation.String(), maxDonation.String())
	}
	if _, err := s.receivers.GetReceiver(ctx, receiverId); err != nil {
		if errors.Is(err, store.ErrReceiverNotFound) {
			return "", apperrors.New(apperrors.NotFound, ErrReceiverNotFound, "%s", receiverId)
		}
		return "", apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "looking up receiver")
	}

	intent, err := s.processor.CreateIntent(ctx, MinorUnits(amount), s.currency)
	if err != nil {
		zap.L().Error("Failed to create payment intent", zap.String("receiver_id", receiverId), zap.Error(err))
		return "", apperrors.Wrap(apperrors.DependencyFailure, ErrProcessor, err, "creating intent")
	}

	if _, err := s.log.Record(ctx, translog.RecordParams{
		ReceiverId: receiverId,
		Amount:     amount,
		Type:       models.TransactionDonation,
		ExternalId: intent.Id,
	}); err != nil {
		if cancelErr := s.processor.CancelIntent(ctx, intent.Id); cancelErr != nil {
			zap.L().Error("Failed to cancel intent of unrecorded donation",
				zap.String("intent_id", intent.Id),
				zap.Error(cancelErr))
		}
		return "", err
	}

	zap.L().Info("Donation initiated",
		zap.String("receiver_id", receiverId),
		zap.String("intent_id", intent.Id),
		zap.String("amount", amount.String()))
	return intent.ClientSecret, nil
}

// ConfirmDonation handles the processor success payload: it resolves the
// card's billing details, finds or creates the anonymous sender and
// confirms the donation, crediting the receiver.
func (s *Service) ConfirmDonation(ctx context.Context, payload models.DonationConfirmation) (*models.Transaction, error) {
	if payload.IntentId == "" || payload.PaymentMethodId == "" {
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidPayload, "intent and payment method ids are required")
	}

	// Only a pending donation may resolve a sender.
	transaction, err := s.log.Get(ctx, payload.IntentId)
	if err != nil {
		return nil, err
	}
	if transaction.Confirmed {
		return nil, apperrors.New(apperrors.AlreadyExists, translog.ErrAlreadyConfirmed, "%s", payload.IntentId)
	}

	details, err := s.processor.RetrievePaymentMethod(ctx, payload.PaymentMethodId)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.DependencyFailure, ErrProcessor, err, "retrieving payment method")
	}

	sender, err := s.resolveAnonymousSender(ctx, details)
	if err != nil {
		return nil, err
	}

	return s.log.Confirm(ctx, payload.IntentId, sender.Id, FormatPaymentMethod(details))
}

// CancelDonation removes the pending donation and voids the intent.
func (s *Service) CancelDonation(ctx context.Context, clientSecret string) error {
	intentId, err := IntentIdFromSecret(clientSecret)
	if err != nil {
		return err
	}

	if err := s.log.Delete(ctx, intentId); err != nil {
		return err
	}

	if err := s.processor.CancelIntent(ctx, intentId); err != nil {
		return apperrors.Wrap(apperrors.DependencyFailure, ErrProcessor, err, "cancelling intent %s", intentId)
	}

	zap.L().Info("Donation cancelled", zap.String("intent_id", intentId))
	return nil
}

// Withdraw records a confirmed withdrawal from senderId's balance, handed
// out by organizationId, and debits the balance in the same step.
func (s *Service) Withdraw(ctx context.Context, amount decimal.Decimal, organizationId, senderId string) (*models.Transaction, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if _, err := s.organizations.GetOrganization(ctx, organizationId); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.New(apperrors.NotFound, ErrOrganizationNotFound, "%s", organizationId)
		}
		return nil, apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "looking up organization")
	}

	return s.log.RecordConfirmed(ctx, translog.RecordParams{
		ReceiverId: organizationId,
		SenderId:   senderId,
		Amount:     amount,
		Type:       models.TransactionWithdrawal,
	}, []store.Movement{{ReceiverId: senderId, Delta: amount.Neg()}})
}

// Send moves funds from one receiver to another, recorded and confirmed
// in a single step.
func (s *Service) Send(ctx context.Context, senderId, receiverId string, amount decimal.Decimal) (*models.Transaction, error) {
	if err := ledger.ValidateAmount(amount); err != nil {
		return nil, err
	}

	return s.log.RecordConfirmed(ctx, translog.RecordParams{
		ReceiverId: receiverId,
		SenderId:   senderId,
		Amount:     amount,
		Type:       models.TransactionSend,
	}, ledger.Transfer(senderId, receiverId, amount))
}

func (s *Service) resolveAnonymousSender(ctx context.Context, details *models.PaymentMethodDetails) (*models.Sender, error) {
	sender, err := s.senders.FindAnonymousSender(ctx, details.BillingName, details.BillingAddress)
	if err == nil {
		return sender, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "looking up sender")
	}

	sender, err = s.senders.CreateSender(ctx, &models.Sender{
		IsAnonymous: true,
		Name:        details.BillingName,
		Address:     details.BillingAddress,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "creating sender")
	}
	return sender, nil
}

// MinorUnits converts an amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FormatPaymentMethod keeps only the wallet type and card brand.
func FormatPaymentMethod(details *models.PaymentMethodDetails) *models.PaymentMethod {
	return &models.PaymentMethod{Wallet: details.Wallet, Card: details.Brand}
}

// IntentIdFromSecret extracts the intent id from a client secret of the
// form <intent id>_secret_<token>.
func IntentIdFromSecret(clientSecret string) (string, error) {
	intentId, _, found := strings.Cut(clientSecret, "_secret_")
	if !found || intentId == "" {
		return "", apperrors.New(apperrors.InvalidInput, ErrInvalidClientSecret, "malformed client secret")
	}
	return intentId, nil
}
