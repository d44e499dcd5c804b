package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func insertTransaction(ctx context.Context, db execer, transaction *models.Transaction) error {
	var wallet, card string
	if transaction.PaymentMethod != nil {
		wallet = transaction.PaymentMethod.Wallet
		card = transaction.PaymentMethod.Card
	}

	var confirmedAt sql.NullTime
	if transaction.ConfirmedAt != nil {
		confirmedAt = sql.NullTime{Time: *transaction.ConfirmedAt, Valid: true}
	}

	_, err := db.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.Amount.String(), transaction.Currency, string(transaction.Type),
		transaction.ReceiverId, transaction.SenderId, transaction.Confirmed,
		wallet, card, transaction.CreatedAt, confirmedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: transaction %s already exists", store.ErrDuplicate, transaction.Id)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var amountStr, txType, wallet, card string
	var confirmedAt sql.NullTime
	err := row.Scan(&tx.Id, &amountStr, &tx.Currency, &txType, &tx.ReceiverId, &tx.SenderId,
		&tx.Confirmed, &wallet, &card, &tx.CreatedAt, &confirmedAt)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	tx.Type = models.TransactionType(txType)
	if wallet != "" || card != "" {
		tx.PaymentMethod = &models.PaymentMethod{Wallet: wallet, Card: card}
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		tx.ConfirmedAt = &t
	}
	return &tx, nil
}

// CreateTransaction writes an unconfirmed transaction record
func (s *Service) CreateTransaction(ctx context.Context, transaction *models.Transaction) error {
	zap.L().Info("Recording transaction",
		zap.String("transaction_id", transaction.Id),
		zap.String("type", string(transaction.Type)),
		zap.String("receiver_id", transaction.ReceiverId),
		zap.String("amount", transaction.Amount.String()))

	return insertTransaction(ctx, s.db, transaction)
}

func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransaction, transactionId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, transactionId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, transactionId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteTransaction, transactionId)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrTransactionNotFound, transactionId)
	}

	zap.L().Info("Transaction deleted", zap.String("transaction_id", transactionId))
	return nil
}

func (s *Service) ListTransactionsByReceiver(ctx context.Context, receiverId string) ([]models.Transaction, error) {
	return s.listTransactions(ctx, queryListTransactionsByReceiver, receiverId)
}

func (s *Service) ListTransactionsBySender(ctx context.Context, senderId string) ([]models.Transaction, error) {
	return s.listTransactions(ctx, queryListTransactionsBySender, senderId)
}

func (s *Service) listTransactions(ctx context.Context, query, partyId string) ([]models.Transaction, error) {
	zap.L().Debug("Listing transactions", zap.String("party_id", partyId))

	rows, err := s.db.QueryContext(ctx, query, partyId)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer closeRows(rows)

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
