package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/database"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
)

type mockBalanceStore struct {
	getBalance   func(ctx context.Context, receiverId string) (decimal.Decimal, error)
	commitLedger func(ctx context.Context, update store.LedgerUpdate) (map[string]decimal.Decimal, error)
}

func (m *mockBalanceStore) GetBalance(ctx context.Context, receiverId string) (decimal.Decimal, error) {
	return m.getBalance(ctx, receiverId)
}

func (m *mockBalanceStore) CommitLedger(ctx context.Context, update store.LedgerUpdate) (map[string]decimal.Decimal, error) {
	return m.commitLedger(ctx, update)
}

func setupTestLedger(t *testing.T) (*Ledger, *database.Service, func()) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return New(db), db, db.Close
}

func newReceiver(t *testing.T, db *database.Service) string {
	t.Helper()
	receiver, err := db.CreateReceiver(context.Background(), store.CreateReceiverParams{
		FirstName: "Jean", LastName: "Tremblay", DateOfBirth: "02-03-1970",
	})
	if err != nil {
		t.Fatalf("CreateReceiver failed: %v", err)
	}
	return receiver.Id
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWithdrawScenario(t *testing.T) {
	l, db, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	r := newReceiver(t, db)

	if _, err := l.Deposit(ctx, r, dec("10.00")); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	_, err := l.Withdraw(ctx, r, dec("15.00"))
	if !errors.Is(err, apperrors.InsufficientFunds) {
		t.Fatalf("Expected InsufficientFunds, got %v", err)
	}
	if balance, _ := l.GetBalance(ctx, r); !balance.Equal(dec("10.00")) {
		t.Errorf("Expected balance 10.00, got %s", balance)
	}

	balance, err := l.Withdraw(ctx, r, dec("10.00"))
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected balance 0, got %s", balance)
	}
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	calls := 0
	l := New(&mockBalanceStore{
		commitLedger: func(context.Context, store.LedgerUpdate) (map[string]decimal.Decimal, error) {
			calls++
			return nil, nil
		},
	})

	for _, amount := range []string{"0", "-1.00"} {
		if _, err := l.Deposit(context.Background(), "r", dec(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Deposit(%s): expected ErrInvalidAmount, got %v", amount, err)
		}
		if _, err := l.Withdraw(context.Background(), "r", dec(amount)); !errors.Is(err, apperrors.InvalidInput) {
			t.Errorf("Withdraw(%s): expected InvalidInput, got %v", amount, err)
		}
	}
	if calls != 0 {
		t.Errorf("Store must not be touched for invalid amounts, got %d calls", calls)
	}
}

func TestUnknownReceiver(t *testing.T) {
	l, _, cleanup := setupTestLedger(t)
	defer cleanup()

	if _, err := l.Deposit(context.Background(), "ghost", dec("1")); !errors.Is(err, apperrors.NotFound) {
		t.Fatalf("Expected NotFound, got %v", err)
	}
	if _, err := l.GetBalance(context.Background(), "ghost"); !errors.Is(err, ErrReceiverNotFound) {
		t.Fatalf("Expected ErrReceiverNotFound, got %v", err)
	}
}

func TestTransferIsAllOrNothing(t *testing.T) {
	l, db, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	from, to := newReceiver(t, db), newReceiver(t, db)

	_, _ = l.Deposit(ctx, from, dec("4.00"))

	if err := l.Transfer(ctx, from, to, dec("5.00")); !errors.Is(err, apperrors.InsufficientFunds) {
		t.Fatalf("Expected InsufficientFunds, got %v", err)
	}
	fromBalance, _ := l.GetBalance(ctx, from)
	toBalance, _ := l.GetBalance(ctx, to)
	if !fromBalance.Equal(dec("4.00")) || !toBalance.IsZero() {
		t.Errorf("Expected untouched balances, got %s and %s", fromBalance, toBalance)
	}

	if err := l.Transfer(ctx, from, to, dec("4.00")); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	fromBalance, _ = l.GetBalance(ctx, from)
	toBalance, _ = l.GetBalance(ctx, to)
	if !fromBalance.IsZero() || !toBalance.Equal(dec("4.00")) {
		t.Errorf("Unexpected balances after transfer %s and %s", fromBalance, toBalance)
	}
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	l, db, cleanup := setupTestLedger(t)
	defer cleanup()
	ctx := context.Background()
	r := newReceiver(t, db)
	_, _ = l.Deposit(ctx, r, dec("5.00"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Withdraw(ctx, r, dec("1.00")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("Expected 5 successful withdrawals, got %d", succeeded)
	}
	if balance, _ := l.GetBalance(ctx, r); !balance.IsZero() {
		t.Errorf("Expected balance 0, got %s", balance)
	}
}

func TestCommitRetriesConcurrentModification(t *testing.T) {
	attempts := 0
	l := New(&mockBalanceStore{
		commitLedger: func(context.Context, store.LedgerUpdate) (map[string]decimal.Decimal, error) {
			attempts++
			if attempts < 3 {
				return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
			}
			return map[string]decimal.Decimal{"r": dec("2")}, nil
		},
	}, WithRetries(5, time.Millisecond))

	balance, err := l.Deposit(context.Background(), "r", dec("2"))
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if attempts != 3 || !balance.Equal(dec("2")) {
		t.Errorf("Expected 3 attempts and balance 2, got %d and %s", attempts, balance)
	}
}

func TestCommitGivesUpAfterRetries(t *testing.T) {
	attempts := 0
	l := New(&mockBalanceStore{
		commitLedger: func(context.Context, store.LedgerUpdate) (map[string]decimal.Decimal, error) {
			attempts++
			return nil, store.ErrConcurrentModification
		},
	}, WithRetries(3, time.Millisecond))

	_, err := l.Deposit(context.Background(), "r", dec("2"))
	if !errors.Is(err, ErrConflict) || !errors.Is(err, apperrors.DependencyFailure) {
		t.Fatalf("Expected ErrConflict dependency failure, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestCommitDoesNotRetryFatalErrors(t *testing.T) {
	attempts := 0
	l := New(&mockBalanceStore{
		commitLedger: func(context.Context, store.LedgerUpdate) (map[string]decimal.Decimal, error) {
			attempts++
			return nil, fmt.Errorf("wrapped: %w", store.ErrAlreadyConfirmed)
		},
	})

	_, err := l.Commit(context.Background(), store.LedgerUpdate{Confirm: &store.Confirmation{TransactionId: "t"}})
	if !errors.Is(err, store.ErrAlreadyConfirmed) {
		t.Fatalf("Expected ErrAlreadyConfirmed to pass through, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected a single attempt, got %d", attempts)
	}
}

func TestCommitMapsFatalStoreErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   error
		reason error
	}{
		{"insufficient funds", fmt.Errorf("debit r: %w", store.ErrInsufficientFunds), apperrors.InsufficientFunds, ErrInsufficientFunds},
		{"unknown receiver", fmt.Errorf("lookup r: %w", store.ErrReceiverNotFound), apperrors.NotFound, ErrReceiverNotFound},
		{"driver failure", fmt.Errorf("disk I/O error"), apperrors.DependencyFailure, apperrors.DependencyFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(&mockBalanceStore{
				commitLedger: func(context.Context, store.LedgerUpdate) (map[string]decimal.Decimal, error) {
					return nil, tt.err
				},
			})

			_, err := l.Withdraw(context.Background(), "r", dec("1.00"))
			if !errors.Is(err, tt.kind) || !errors.Is(err, tt.reason) {
				t.Errorf("Expected kind %v and reason %v, got %v", tt.kind, tt.reason, err)
			}
		})
	}
}

func TestWithdrawFromEmptyBalance(t *testing.T) {
	l, db, cleanup := setupTestLedger(t)
	defer cleanup()
	r := newReceiver(t, db)

	_, err := l.Withdraw(context.Background(), r, dec("1.00"))
	if apperrors.KindOf(err) != apperrors.InsufficientFunds {
		t.Fatalf("Expected insufficient funds kind, got %q (%v)", apperrors.KindOf(err), err)
	}
}
