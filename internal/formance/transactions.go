package formance

import (
	"context"
	"fmt"

	"donneur-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Numscript templates, one per transaction type. Donations enter from
// @world; every other movement stays between platform accounts.

const numscriptDonation = `vars {
  asset $asset
  number $amount
  account $receiver
  string $transaction_id
  string $sender_id
  string $payment_method
}

send [$asset $amount] (
  source = @world
  destination = @receivers:$receiver
)

set_tx_meta("event_type", "donation")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("sender_id", $sender_id)
set_tx_meta("payment_method", $payment_method)
`

const numscriptWithdrawal = `vars {
  asset $asset
  number $amount
  account $receiver
  account $organization
  string $transaction_id
}

send [$asset $amount] (
  source = @receivers:$receiver
  destination = @organizations:$organization
)

set_tx_meta("event_type", "withdrawal")
set_tx_meta("transaction_id", $transaction_id)
`

const numscriptSend = `vars {
  asset $asset
  number $amount
  account $sender
  account $receiver
  string $transaction_id
}

send [$asset $amount] (
  source = @receivers:$sender
  destination = @receivers:$receiver
)

set_tx_meta("event_type", "send")
set_tx_meta("transaction_id", $transaction_id)
`

// MirrorTransaction posts a confirmed transaction. The transaction id is
// the Formance reference, so mirroring the same transaction twice is a
// no-op.
func (s *Service) MirrorTransaction(ctx context.Context, tx *models.Transaction) error {
	postTx, err := buildPosting(tx)
	if err != nil {
		return err
	}
	postTx.Timestamp = &tx.CreatedAt
	if tx.ConfirmedAt != nil {
		postTx.Timestamp = tx.ConfirmedAt
	}

	_, err = s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Transaction already mirrored", zap.String("transaction_id", tx.Id))
			return nil
		}
		return fmt.Errorf("error mirroring %s transaction: %w", tx.Type, err)
	}

	zap.L().Info("Transaction mirrored to Formance",
		zap.String("transaction_id", tx.Id),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.String()))
	return nil
}

func buildPosting(tx *models.Transaction) (shared.V2PostTransaction, error) {
	if !tx.Confirmed {
		return shared.V2PostTransaction{}, fmt.Errorf("transaction %s is not confirmed", tx.Id)
	}

	vars := map[string]string{
		"asset":          formanceAsset(tx.Currency),
		"amount":         tx.Amount.Shift(int32(precisionFor(tx.Currency))).BigInt().String(),
		"transaction_id": tx.Id,
	}

	var script string
	switch tx.Type {
	case models.TransactionDonation:
		script = numscriptDonation
		vars["receiver"] = tx.ReceiverId
		vars["sender_id"] = tx.SenderId
		vars["payment_method"] = ""
		if tx.PaymentMethod != nil {
			vars["payment_method"] = tx.PaymentMethod.Card
		}
	case models.TransactionWithdrawal:
		script = numscriptWithdrawal
		vars["receiver"] = tx.SenderId
		vars["organization"] = tx.ReceiverId
	case models.TransactionSend:
		script = numscriptSend
		vars["sender"] = tx.SenderId
		vars["receiver"] = tx.ReceiverId
	default:
		return shared.V2PostTransaction{}, fmt.Errorf("unknown transaction type %q", tx.Type)
	}

	return shared.V2PostTransaction{
		Reference: strPtr(tx.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars:  vars,
		},
	}, nil
}

func strPtr(s string) *string { return &s }
