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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"donneur-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	accountTypeReceiver = "receiver_balance"
	accountTypePlatform = "platform_liability"
	platformAccountId   = "donations_held"
)

// SubledgerService handles balance mutations and the transactions audit trail
type SubledgerService struct {
	db  *sql.DB
	now func() time.Time
}

func NewSubledgerService(db *sql.DB, now func() time.Time) *SubledgerService {
	return &SubledgerService{
		db:  db,
		now: now,
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Transactions Table (Audit Trail)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		type TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		sender_id TEXT NOT NULL DEFAULT '',
		confirmed BOOLEAN NOT NULL DEFAULT 0,
		payment_wallet TEXT NOT NULL DEFAULT '',
		payment_card TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		confirmed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_receiver_id ON transactions(receiver_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_sender_id ON transactions(sender_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);

	-- Journal Entries for Double-Entry Bookkeeping
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_amount TEXT NOT NULL DEFAULT '0',
		credit_amount TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_transaction_id ON journal_entries(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_type, account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CommitLedger atomically records or confirms a transaction and applies its
// balance movements. A movement that would take a balance below zero aborts
// the whole update with store.ErrInsufficientFunds.
func (s *SubledgerService) CommitLedger(ctx context.Context, update store.LedgerUpdate) (map[string]decimal.Decimal, error) {
	if len(update.Movements) == 0 && update.Confirm == nil && update.Record == nil {
		return nil, fmt.Errorf("empty ledger update")
	}

	zap.L().Info("Committing ledger update",
		zap.Int("movements", len(update.Movements)),
		zap.Bool("confirm", update.Confirm != nil),
		zap.Bool("record", update.Record != nil))

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	transactionId := ""

	if update.Record != nil {
		if err := insertTransaction(ctx, tx, update.Record); err != nil {
			return nil, err
		}
		transactionId = update.Record.Id
	}

	if update.Confirm != nil {
		if err := confirmTransaction(ctx, tx, update.Confirm, now); err != nil {
			return nil, err
		}
		transactionId = update.Confirm.TransactionId
	}

	if transactionId == "" {
		transactionId = "adjustment:" + uuid.New().String()
	}

	balances := make(map[string]decimal.Decimal, len(update.Movements))
	for _, movement := range update.Movements {
		newBalance, err := applyMovement(ctx, tx, movement)
		if err != nil {
			return nil, err
		}
		balances[movement.ReceiverId] = newBalance
	}

	if err := s.addJournalEntries(ctx, tx, transactionId, update.Movements, now); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Ledger update committed",
		zap.String("transaction_id", transactionId),
		zap.Int("movements", len(update.Movements)))

	return balances, nil
}

// applyMovement updates one receiver balance with optimistic locking.
func applyMovement(ctx context.Context, tx *sql.Tx, movement store.Movement) (decimal.Decimal, error) {
	var currentBalanceStr string
	var version int64
	err := tx.QueryRowContext(ctx, queryGetReceiverBalance, movement.ReceiverId).Scan(&currentBalanceStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrReceiverNotFound, movement.ReceiverId)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get current balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(currentBalanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
	}

	newBalance := currentBalance.Add(movement.Delta)
	if newBalance.IsNegative() {
		zap.L().Warn("Rejecting movement below zero",
			zap.String("receiver_id", movement.ReceiverId),
			zap.String("balance", currentBalance.String()),
			zap.String("delta", movement.Delta.String()))
		return decimal.Zero, fmt.Errorf("%w: receiver %s has %s, needs %s",
			store.ErrInsufficientFunds, movement.ReceiverId, currentBalance.String(), movement.Delta.Neg().String())
	}

	result, err := tx.ExecContext(ctx, queryUpdateReceiverBalance, newBalance.String(), movement.ReceiverId, version)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return decimal.Zero, err
	}
	if affected == 0 {
		return decimal.Zero, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	zap.L().Debug("Balance updated",
		zap.String("receiver_id", movement.ReceiverId),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()))

	return newBalance, nil
}

// confirmTransaction flips confirmed from 0 to 1; a second confirmation
// matches no row and is reported as store.ErrAlreadyConfirmed.
func confirmTransaction(ctx context.Context, tx *sql.Tx, confirm *store.Confirmation, now time.Time) error {
	var wallet, card string
	if confirm.PaymentMethod != nil {
		wallet = confirm.PaymentMethod.Wallet
		card = confirm.PaymentMethod.Card
	}

	result, err := tx.ExecContext(ctx, queryConfirmTransaction,
		confirm.SenderId, confirm.SenderId, wallet, card, now, confirm.TransactionId)
	if err != nil {
		return fmt.Errorf("failed to confirm transaction: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var confirmed bool
	err = tx.QueryRowContext(ctx, queryGetTransactionConfirmed, confirm.TransactionId).Scan(&confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", store.ErrTransactionNotFound, confirm.TransactionId)
	}
	if err != nil {
		return fmt.Errorf("failed to check transaction state: %w", err)
	}
	return fmt.Errorf("%w: %s", store.ErrAlreadyConfirmed, confirm.TransactionId)
}

// addJournalEntries creates double-entry bookkeeping entries
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transactionId string, movements []store.Movement, now time.Time) error {
	// Credit to a receiver: debit their balance account, credit the platform liability.
	// Debit from a receiver: the reverse.
	type journalEntry struct {
		accountType  string
		accountId    string
		debitAmount  decimal.Decimal
		creditAmount decimal.Decimal
	}

	var entries []journalEntry
	for _, movement := range movements {
		amount := movement.Delta.Abs()
		if movement.Delta.IsPositive() {
			entries = append(entries,
				journalEntry{accountTypeReceiver, movement.ReceiverId, amount, decimal.Zero},
				journalEntry{accountTypePlatform, platformAccountId, decimal.Zero, amount})
		} else if movement.Delta.IsNegative() {
			entries = append(entries,
				journalEntry{accountTypeReceiver, movement.ReceiverId, decimal.Zero, amount},
				journalEntry{accountTypePlatform, platformAccountId, amount, decimal.Zero})
		}
	}

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transactionId, entry.accountType, entry.accountId,
			entry.debitAmount.String(), entry.creditAmount.String(), now)
		if err != nil {
			return err
		}
	}

	return nil
}

// isConstraintViolation reports whether err is a primary key or unique violation.
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
