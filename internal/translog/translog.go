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

// Package translog is the append-mostly record of money movements. Each
// transaction starts unconfirmed and is confirmed at most once, in the same
// store transaction that applies its balance movements.
package translog

import (
	"context"
	"sort"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/ledger"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ErrNoSender               = errors.ConstError("transaction has no sender")
	ErrNoPaymentMethod        = errors.ConstError("donation has no payment method")
	ErrTransactionNotFound    = errors.ConstError("transaction not found")
	ErrAlreadyConfirmed       = errors.ConstError("transaction already confirmed")
	ErrInvalidTransactionType = errors.ConstError("invalid transaction type")
	ErrDuplicateTransaction   = errors.ConstError("transaction already recorded")
)

// Mirror receives every confirmed transaction, e.g. an external
// double-entry ledger. Failures are logged and never undo a confirmation.
type Mirror interface {
	MirrorTransaction(ctx context.Context, transaction *models.Transaction) error
}

type RecordParams struct {
	ReceiverId string
	Amount     decimal.Decimal
	Type       models.TransactionType
	SenderId   string
	// ExternalId keys the record, typically a payment intent id. A random
	// id is generated when empty.
	ExternalId string
}

type Log struct {
	transactions store.TransactionStore
	ledger       *ledger.Ledger
	mirror       Mirror
	clock        clock.Clock
	currency     string
}

func New(transactions store.TransactionStore, l *ledger.Ledger, currency string, c clock.Clock) *Log {
	return &Log{transactions: transactions, ledger: l, clock: c, currency: currency}
}

// SetMirror installs an optional mirror for confirmed transactions.
func (l *Log) SetMirror(m Mirror) {
	l.mirror = m
}

func (l *Log) validate(params RecordParams) error {
	if err := ledger.ValidateAmount(params.Amount); err != nil {
		return err
	}
	switch params.Type {
	case models.TransactionDonation, models.TransactionWithdrawal, models.TransactionSend:
	default:
		return apperrors.New(apperrors.InvalidInput, ErrInvalidTransactionType, "%q", params.Type)
	}
	if params.Type == models.TransactionSend && params.SenderId == "" {
		return apperrors.New(apperrors.InvalidInput, ErrNoSender, "send transactions need a sender")
	}
	return nil
}

func (l *Log) build(params RecordParams) *models.Transaction {
	id := params.ExternalId
	if id == "" {
		id = uuid.New().String()
	}
	return &models.Transaction{
		Id:         id,
		Amount:     params.Amount,
		Currency:   l.currency,
		Type:       params.Type,
		ReceiverId: params.ReceiverId,
		SenderId:   params.SenderId,
		CreatedAt:  l.clock.Now().UTC(),
	}
}

// Record writes an unconfirmed transaction. It never touches balances.
func (l *Log) Record(ctx context.Context, params RecordParams) (*models.Transaction, error) {
	if err := l.validate(params); err != nil {
		return nil, err
	}

	transaction := l.build(params)
	if err := l.transactions.CreateTransaction(ctx, transaction); err != nil {
		return nil, mapError(err, transaction.Id)
	}

	zap.L().Info("Transaction recorded",
		zap.String("transaction_id", transaction.Id),
		zap.String("type", string(transaction.Type)),
		zap.String("amount", transaction.Amount.String()))
	return transaction, nil
}

// RecordConfirmed writes an already-confirmed transaction together with
// the given balance movements in a single step.
func (l *Log) RecordConfirmed(ctx context.Context, params RecordParams, movements []store.Movement) (*models.Transaction, error) {
	if err := l.validate(params); err != nil {
		return nil, err
	}

	transaction := l.build(params)
	now := transaction.CreatedAt
	transaction.Confirmed = true
	transaction.ConfirmedAt = &now

	if _, err := l.ledger.Commit(ctx, store.LedgerUpdate{Record: transaction, Movements: movements}); err != nil {
		return nil, mapError(err, transaction.Id)
	}

	zap.L().Info("Transaction recorded and confirmed",
		zap.String("transaction_id", transaction.Id),
		zap.String("type", string(transaction.Type)),
		zap.String("amount", transaction.Amount.String()))

	l.mirrorConfirmed(ctx, transaction)
	return transaction, nil
}

// Confirm applies a recorded transaction to the ledger and marks it
// confirmed. senderId and paymentMethod are required for donations.
func (l *Log) Confirm(ctx context.Context, transactionId, senderId string, paymentMethod *models.PaymentMethod) (*models.Transaction, error) {
	transaction, err := l.Get(ctx, transactionId)
	if err != nil {
		return nil, err
	}
	if transaction.Confirmed {
		return nil, apperrors.New(apperrors.AlreadyExists, ErrAlreadyConfirmed, "%s", transactionId)
	}

	confirmation := &store.Confirmation{TransactionId: transactionId, SenderId: senderId, PaymentMethod: paymentMethod}
	var movements []store.Movement

	switch transaction.Type {
	case models.TransactionDonation:
		if senderId == "" {
			return nil, apperrors.New(apperrors.InvalidInput, ErrNoSender, "donation %s", transactionId)
		}
		if paymentMethod == nil {
			return nil, apperrors.New(apperrors.InvalidInput, ErrNoPaymentMethod, "donation %s", transactionId)
		}
		movements = []store.Movement{{ReceiverId: transaction.ReceiverId, Delta: transaction.Amount}}

	case models.TransactionWithdrawal:
		from := transaction.SenderId
		if from == "" {
			from = senderId
		}
		if from == "" {
			return nil, apperrors.New(apperrors.InvalidInput, ErrNoSender, "withdrawal %s", transactionId)
		}
		confirmation.SenderId = from
		movements = []store.Movement{{ReceiverId: from, Delta: transaction.Amount.Neg()}}

	case models.TransactionSend:
		if transaction.SenderId == "" {
			return nil, apperrors.New(apperrors.InvalidInput, ErrNoSender, "send %s", transactionId)
		}
		movements = ledger.Transfer(transaction.SenderId, transaction.ReceiverId, transaction.Amount)

	default:
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidTransactionType, "%q", transaction.Type)
	}

	if _, err := l.ledger.Commit(ctx, store.LedgerUpdate{Confirm: confirmation, Movements: movements}); err != nil {
		zap.L().Warn("Transaction confirmation failed",
			zap.String("transaction_id", transactionId),
			zap.Error(err))
		return nil, mapError(err, transactionId)
	}

	confirmed, err := l.Get(ctx, transactionId)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction confirmed",
		zap.String("transaction_id", transactionId),
		zap.String("type", string(confirmed.Type)),
		zap.String("amount", confirmed.Amount.String()))

	l.mirrorConfirmed(ctx, confirmed)
	return confirmed, nil
}

func (l *Log) Get(ctx context.Context, transactionId string) (*models.Transaction, error) {
	transaction, err := l.transactions.GetTransaction(ctx, transactionId)
	if err != nil {
		return nil, mapError(err, transactionId)
	}
	return transaction, nil
}

// Delete removes a transaction record. Removing one that is already gone
// is not an error.
func (l *Log) Delete(ctx context.Context, transactionId string) error {
	err := l.transactions.DeleteTransaction(ctx, transactionId)
	if errors.Is(err, store.ErrTransactionNotFound) {
		zap.L().Debug("Transaction already deleted", zap.String("transaction_id", transactionId))
		return nil
	}
	if err != nil {
		return mapError(err, transactionId)
	}
	return nil
}

// ListFor returns confirmed transactions where userId is the receiver or
// the sender, newest first. A transaction appears once even when userId is
// on both sides.
func (l *Log) ListFor(ctx context.Context, userId string) ([]models.TransactionRecord, error) {
	received, err := l.transactions.ListTransactionsByReceiver(ctx, userId)
	if err != nil {
		return nil, mapError(err, "")
	}
	sent, err := l.transactions.ListTransactionsBySender(ctx, userId)
	if err != nil {
		return nil, mapError(err, "")
	}

	seen := set.NewStrings()
	records := []models.TransactionRecord{}
	add := func(transactions []models.Transaction, direction models.Direction) {
		for _, tx := range transactions {
			if !tx.Confirmed || seen.Contains(tx.Id) {
				continue
			}
			seen.Add(tx.Id)
			records = append(records, models.TransactionRecord{
				Id:            tx.Id,
				Direction:     direction,
				Type:          tx.Type,
				Amount:        tx.Amount,
				Currency:      tx.Currency,
				ReceiverId:    tx.ReceiverId,
				SenderId:      tx.SenderId,
				PaymentMethod: tx.PaymentMethod,
				CreatedAt:     tx.CreatedAt,
			})
		}
	}
	add(received, models.DirectionReceived)
	add(sent, models.DirectionSent)

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (l *Log) mirrorConfirmed(ctx context.Context, transaction *models.Transaction) {
	if l.mirror == nil {
		return
	}
	mirrorCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := l.mirror.MirrorTransaction(mirrorCtx, transaction); err != nil {
		zap.L().Warn("Failed to mirror transaction",
			zap.String("transaction_id", transaction.Id),
			zap.Error(err))
	}
}

func mapError(err error, transactionId string) error {
	switch {
	case errors.Is(err, store.ErrTransactionNotFound):
		return apperrors.New(apperrors.NotFound, ErrTransactionNotFound, "%s", transactionId)
	case errors.Is(err, store.ErrAlreadyConfirmed):
		return apperrors.New(apperrors.AlreadyExists, ErrAlreadyConfirmed, "%s", transactionId)
	case errors.Is(err, store.ErrDuplicate):
		return apperrors.New(apperrors.AlreadyExists, ErrDuplicateTransaction, "%s", transactionId)
	case apperrors.KindOf(err) != "":
		return err
	}
	return apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "transaction store")
}
