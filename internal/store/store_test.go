package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrDuplicate,
		ErrConcurrentModification,
		ErrInsufficientFunds,
		ErrAlreadyConfirmed,
		ErrReceiverNotFound,
		ErrTransactionNotFound,
		ErrAlreadyHasApp,
		ErrFriendshipConfirmed,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("balance update failed - %w", ErrConcurrentModification)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Errorf("Expected wrapped error to match ErrConcurrentModification")
	}

	var _ Store
}
