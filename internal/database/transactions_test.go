package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One connection keeps every query on the same in-memory database
	db.SetMaxOpenConns(1)

	service := newService(db)

	// Use the actual schema initialization
	if err := service.initSchema(); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	if err := service.subledger.InitSchema(); err != nil {
		t.Fatalf("Failed to create subledger schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func createTestReceiver(t *testing.T, service *Service, balance string) string {
	t.Helper()
	ctx := context.Background()

	receiver, err := service.CreateReceiver(ctx, store.CreateReceiverParams{
		FirstName: "Test", LastName: "Receiver", DateOfBirth: "01-01-1980",
	})
	if err != nil {
		t.Fatalf("CreateReceiver failed: %v", err)
	}

	if amount := decimal.RequireFromString(balance); amount.IsPositive() {
		_, err := service.CommitLedger(ctx, store.LedgerUpdate{
			Movements: []store.Movement{{ReceiverId: receiver.Id, Delta: amount}},
		})
		if err != nil {
			t.Fatalf("Seeding balance failed: %v", err)
		}
	}
	return receiver.Id
}

func newTestTransaction(id, receiverId, senderId string, txType models.TransactionType, amount string) *models.Transaction {
	return &models.Transaction{
		Id:         id,
		Amount:     decimal.RequireFromString(amount),
		Currency:   "cad",
		Type:       txType,
		ReceiverId: receiverId,
		SenderId:   senderId,
		CreatedAt:  time.Now().UTC(),
	}
}

func assertBalance(t *testing.T, service *Service, receiverId, expected string) {
	t.Helper()
	balance, err := service.GetBalance(context.Background(), receiverId)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString(expected)) {
		t.Errorf("Expected balance %s, got %s", expected, balance.String())
	}
}

func TestCommitLedger_Deposit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	receiverId := createTestReceiver(t, service, "0")

	balances, err := service.CommitLedger(context.Background(), store.LedgerUpdate{
		Movements: []store.Movement{{ReceiverId: receiverId, Delta: decimal.RequireFromString("12.50")}},
	})
	if err != nil {
		t.Fatalf("CommitLedger failed: %v", err)
	}

	if !balances[receiverId].Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Expected returned balance 12.50, got %s", balances[receiverId].String())
	}
	assertBalance(t, service, receiverId, "12.50")
}

func TestCommitLedger_InsufficientFundsLeavesBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	receiverId := createTestReceiver(t, service, "10.00")

	_, err := service.CommitLedger(context.Background(), store.LedgerUpdate{
		Movements: []store.Movement{{ReceiverId: receiverId, Delta: decimal.RequireFromString("-15.00")}},
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}
	assertBalance(t, service, receiverId, "10.00")

	_, err = service.CommitLedger(context.Background(), store.LedgerUpdate{
		Movements: []store.Movement{{ReceiverId: receiverId, Delta: decimal.RequireFromString("-10.00")}},
	})
	if err != nil {
		t.Fatalf("Withdrawing the full balance failed: %v", err)
	}
	assertBalance(t, service, receiverId, "0")
}

func TestCommitLedger_UnknownReceiver(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.CommitLedger(context.Background(), store.LedgerUpdate{
		Movements: []store.Movement{{ReceiverId: "missing", Delta: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, store.ErrReceiverNotFound) {
		t.Fatalf("Expected ErrReceiverNotFound, got %v", err)
	}
}

func TestCommitLedger_SendIsAtomic(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	sender := createTestReceiver(t, service, "5.00")
	receiver := createTestReceiver(t, service, "1.00")

	tx := newTestTransaction("send-1", receiver, sender, models.TransactionSend, "8.00")
	if err := service.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	// Credit first so a partial application would be visible
	_, err := service.CommitLedger(ctx, store.LedgerUpdate{
		Confirm: &store.Confirmation{TransactionId: "send-1"},
		Movements: []store.Movement{
			{ReceiverId: receiver, Delta: decimal.RequireFromString("8.00")},
			{ReceiverId: sender, Delta: decimal.RequireFromString("-8.00")},
		},
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	assertBalance(t, service, sender, "5.00")
	assertBalance(t, service, receiver, "1.00")

	stored, err := service.GetTransaction(ctx, "send-1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if stored.Confirmed {
		t.Error("Expected transaction to remain unconfirmed")
	}
}

func TestCommitLedger_ConfirmOnlyOnce(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	receiver := createTestReceiver(t, service, "0")
	if err := service.CreateTransaction(ctx, newTestTransaction("pi_123", receiver, "", models.TransactionDonation, "20.00")); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	update := store.LedgerUpdate{
		Confirm: &store.Confirmation{
			TransactionId: "pi_123",
			SenderId:      "sender-1",
			PaymentMethod: &models.PaymentMethod{Wallet: "apple_pay", Card: "visa"},
		},
		Movements: []store.Movement{{ReceiverId: receiver, Delta: decimal.RequireFromString("20.00")}},
	}

	if _, err := service.CommitLedger(ctx, update); err != nil {
		t.Fatalf("First confirmation failed: %v", err)
	}
	if _, err := service.CommitLedger(ctx, update); !errors.Is(err, store.ErrAlreadyConfirmed) {
		t.Fatalf("Expected ErrAlreadyConfirmed, got %v", err)
	}

	assertBalance(t, service, receiver, "20.00")

	stored, err := service.GetTransaction(ctx, "pi_123")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if !stored.Confirmed || stored.SenderId != "sender-1" {
		t.Errorf("Unexpected stored transaction %+v", stored)
	}
	if stored.PaymentMethod == nil || stored.PaymentMethod.Card != "visa" {
		t.Errorf("Expected payment method to be stored, got %+v", stored.PaymentMethod)
	}
	if stored.ConfirmedAt == nil {
		t.Error("Expected confirmed_at to be set")
	}
}

func TestCommitLedger_ConcurrentConfirmations(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	receiver := createTestReceiver(t, service, "0")
	if err := service.CreateTransaction(ctx, newTestTransaction("pi_race", receiver, "", models.TransactionDonation, "3.00")); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CommitLedger(ctx, store.LedgerUpdate{
				Confirm:   &store.Confirmation{TransactionId: "pi_race", SenderId: "s"},
				Movements: []store.Movement{{ReceiverId: receiver, Delta: decimal.RequireFromString("3.00")}},
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly one confirmation, got %d", successes)
	}
	assertBalance(t, service, receiver, "3.00")
}

func TestCommitLedger_ConfirmMissingTransaction(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.CommitLedger(context.Background(), store.LedgerUpdate{
		Confirm: &store.Confirmation{TransactionId: "nope"},
	})
	if !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("Expected ErrTransactionNotFound, got %v", err)
	}
}

func TestCommitLedger_RecordConfirmedWithdrawal(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	receiver := createTestReceiver(t, service, "30.00")
	now := time.Now().UTC()
	record := newTestTransaction("wd-1", "org-1", receiver, models.TransactionWithdrawal, "12.00")
	record.Confirmed = true
	record.ConfirmedAt = &now

	if _, err := service.CommitLedger(ctx, store.LedgerUpdate{
		Record:    record,
		Movements: []store.Movement{{ReceiverId: receiver, Delta: decimal.RequireFromString("-12.00")}},
	}); err != nil {
		t.Fatalf("CommitLedger failed: %v", err)
	}
	assertBalance(t, service, receiver, "18.00")

	entries, err := service.JournalEntries(ctx, "wd-1")
	if err != nil {
		t.Fatalf("JournalEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 journal entries, got %d", len(entries))
	}
	if entries[0].AccountId != receiver || !entries[0].CreditAmount.Equal(decimal.RequireFromString("12.00")) {
		t.Errorf("Unexpected receiver entry %+v", entries[0])
	}

	// A duplicate record rolls back its movement as well
	_, err = service.CommitLedger(ctx, store.LedgerUpdate{
		Record:    record,
		Movements: []store.Movement{{ReceiverId: receiver, Delta: decimal.RequireFromString("-12.00")}},
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
	assertBalance(t, service, receiver, "18.00")
}

func TestTransactions_ListAndDelete(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	if err := service.CreateTransaction(ctx, newTestTransaction("t1", "r1", "s1", models.TransactionSend, "1.00")); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if err := service.CreateTransaction(ctx, newTestTransaction("t1", "r1", "s1", models.TransactionSend, "1.00")); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	byReceiver, err := service.ListTransactionsByReceiver(ctx, "r1")
	if err != nil || len(byReceiver) != 1 {
		t.Fatalf("Expected one transaction for receiver, got %d (%v)", len(byReceiver), err)
	}
	bySender, err := service.ListTransactionsBySender(ctx, "s1")
	if err != nil || len(bySender) != 1 {
		t.Fatalf("Expected one transaction for sender, got %d (%v)", len(bySender), err)
	}

	if err := service.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTransaction failed: %v", err)
	}
	if err := service.DeleteTransaction(ctx, "t1"); !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("Expected ErrTransactionNotFound, got %v", err)
	}
}
