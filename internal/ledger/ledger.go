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

// Package ledger owns receiver balances. Every balance mutation in the
// system goes through Commit, and every debit is checked against the
// current balance inside the same store transaction that applies it.
package ledger

import (
	"context"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/store"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ErrInsufficientFunds = errors.ConstError("insufficient funds")
	ErrReceiverNotFound  = errors.ConstError("receiver not found")
	ErrInvalidAmount     = errors.ConstError("amount must be positive")
	ErrConflict          = errors.ConstError("balance kept changing under concurrent updates")
)

const (
	defaultAttempts = 5
	defaultDelay    = 10 * time.Millisecond
)

type Ledger struct {
	balances store.BalanceStore
	clock    clock.Clock
	attempts int
	delay    time.Duration
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used between optimistic-lock retries.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithRetries sets how often a conflicting update is retried.
func WithRetries(attempts int, delay time.Duration) Option {
	return func(l *Ledger) {
		l.attempts = attempts
		l.delay = delay
	}
}

func New(balances store.BalanceStore, opts ...Option) *Ledger {
	l := &Ledger{
		balances: balances,
		clock:    clock.WallClock,
		attempts: defaultAttempts,
		delay:    defaultDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deposit credits a receiver and returns the new balance.
func (l *Ledger) Deposit(ctx context.Context, receiverId string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	balances, err := l.Commit(ctx, store.LedgerUpdate{
		Movements: []store.Movement{{ReceiverId: receiverId, Delta: amount}},
	})
	if err != nil {
		return decimal.Zero, err
	}

	zap.L().Info("Deposit applied",
		zap.String("receiver_id", receiverId),
		zap.String("amount", amount.String()),
		zap.String("balance", balances[receiverId].String()))
	return balances[receiverId], nil
}

// Withdraw debits a receiver and returns the new balance. A debit larger
// than the balance fails with InsufficientFunds and changes nothing.
func (l *Ledger) Withdraw(ctx context.Context, receiverId string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	balances, err := l.Commit(ctx, store.LedgerUpdate{
		Movements: []store.Movement{{ReceiverId: receiverId, Delta: amount.Neg()}},
	})
	if err != nil {
		return decimal.Zero, err
	}

	zap.L().Info("Withdrawal applied",
		zap.String("receiver_id", receiverId),
		zap.String("amount", amount.String()),
		zap.String("balance", balances[receiverId].String()))
	return balances[receiverId], nil
}

// Transfer moves funds between two receivers; both sides change or neither does.
func (l *Ledger) Transfer(ctx context.Context, fromId, toId string, amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	_, err := l.Commit(ctx, store.LedgerUpdate{Movements: Transfer(fromId, toId, amount)})
	return err
}

func (l *Ledger) GetBalance(ctx context.Context, receiverId string) (decimal.Decimal, error) {
	balance, err := l.balances.GetBalance(ctx, receiverId)
	if err != nil {
		return decimal.Zero, mapStoreError(err)
	}
	return balance, nil
}

// Commit applies an update atomically, retrying when another writer
// changed a balance between read and write. Errors about the transaction
// being confirmed or recorded are passed through for the caller to tag.
func (l *Ledger) Commit(ctx context.Context, update store.LedgerUpdate) (map[string]decimal.Decimal, error) {
	var balances map[string]decimal.Decimal
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			balances, err = l.balances.CommitLedger(ctx, update)
			return err
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, store.ErrConcurrentModification)
		},
		NotifyFunc: func(err error, attempt int) {
			zap.L().Debug("Retrying ledger update", zap.Int("attempt", attempt), zap.Error(err))
		},
		Attempts: l.attempts,
		Delay:    l.delay,
		Clock:    l.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) || retry.IsDurationExceeded(err) {
			return nil, mapStoreError(retry.LastError(err))
		}
		// Fatal errors come back traced, not wrapped in a retry type.
		return nil, mapStoreError(errors.Cause(err))
	}
	return balances, nil
}

// Transfer builds the movements that debit fromId and credit toId.
func Transfer(fromId, toId string, amount decimal.Decimal) []store.Movement {
	return []store.Movement{
		{ReceiverId: fromId, Delta: amount.Neg()},
		{ReceiverId: toId, Delta: amount},
	}
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.New(apperrors.InvalidInput, ErrInvalidAmount, "got %s", amount.String())
	}
	return nil
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrInsufficientFunds):
		return apperrors.Wrap(apperrors.InsufficientFunds, ErrInsufficientFunds, err, "")
	case errors.Is(err, store.ErrReceiverNotFound):
		return apperrors.Wrap(apperrors.NotFound, ErrReceiverNotFound, err, "")
	case errors.Is(err, store.ErrConcurrentModification):
		return apperrors.Wrap(apperrors.DependencyFailure, ErrConflict, err, "")
	case errors.Is(err, store.ErrAlreadyConfirmed),
		errors.Is(err, store.ErrTransactionNotFound),
		errors.Is(err, store.ErrDuplicate):
		return err
	}
	if apperrors.KindOf(err) != "" {
		return err
	}
	return apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "ledger store")
}
