package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donneur-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// JournalEntry is one line of the double-entry audit trail
type JournalEntry struct {
	AccountType  string
	AccountId    string
	DebitAmount  decimal.Decimal
	CreditAmount decimal.Decimal
}

// GetBalance returns current balance for a receiver (O(1) lookup)
func (s *SubledgerService) GetBalance(ctx context.Context, receiverId string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("receiver_id", receiverId))

	var balanceStr string
	var version int64
	err := s.db.QueryRowContext(ctx, queryGetReceiverBalance, receiverId).Scan(&balanceStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrReceiverNotFound, receiverId)
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("receiver_id", receiverId), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		zap.L().Error("Failed to parse balance", zap.String("balance_str", balanceStr), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to parse balance: %w", err)
	}

	zap.L().Debug("Retrieved balance", zap.String("receiver_id", receiverId), zap.String("balance", balance.String()))
	return balance, nil
}

// JournalEntries returns the bookkeeping lines written for one transaction
func (s *SubledgerService) JournalEntries(ctx context.Context, transactionId string) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryListJournalEntries, transactionId)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer closeRows(rows)

	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var debitStr, creditStr string
		if err := rows.Scan(&entry.AccountType, &entry.AccountId, &debitStr, &creditStr); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if entry.DebitAmount, err = decimal.NewFromString(debitStr); err != nil {
			return nil, fmt.Errorf("failed to parse debit '%s': %w", debitStr, err)
		}
		if entry.CreditAmount, err = decimal.NewFromString(creditStr); err != nil {
			return nil, fmt.Errorf("failed to parse credit '%s': %w", creditStr, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}

	return entries, nil
}

// Subledger convenience methods

func (s *Service) GetBalance(ctx context.Context, receiverId string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, receiverId)
}

func (s *Service) CommitLedger(ctx context.Context, update store.LedgerUpdate) (map[string]decimal.Decimal, error) {
	return s.subledger.CommitLedger(ctx, update)
}

func (s *Service) JournalEntries(ctx context.Context, transactionId string) ([]JournalEntry, error) {
	return s.subledger.JournalEntries(ctx, transactionId)
}
