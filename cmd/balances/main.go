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

package main

import (
	"context"
	"flag"
	"fmt"

	"donneur-go/internal/common"
	"donneur-go/internal/config"
	"donneur-go/internal/formance"
	"donneur-go/internal/ledger"
	"donneur-go/internal/models"
	"donneur-go/internal/translog"

	"github.com/juju/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalReceivers     int
	receiversWithFunds int
	totalBalance       decimal.Decimal
	mismatches         int
}

type reporter struct {
	ledger   *ledger.Ledger
	log      *translog.Log
	mirror   *formance.Service
	currency string
	logger   *zap.Logger
}

func formatTransactionId(txId string) string {
	if txId == "" {
		return "none"
	}
	if len(txId) > 8 {
		return txId[:8] + "..."
	}
	return txId
}

func printTransaction(record models.TransactionRecord, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	sign := "+"
	if record.Direction == models.DirectionSent {
		sign = "-"
	}

	fmt.Printf("%s %-10s %s%s (id: %s, %s)\n",
		symbol,
		record.Type,
		sign,
		common.FormatAmount(record.Amount, record.Currency),
		formatTransactionId(record.Id),
		record.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printReceiverHeader(receiver common.ReceiverSummary, balance decimal.Decimal, currency string, txCount int) {
	fmt.Printf("\n┌─ Receiver: %s\n", receiver.Name)
	fmt.Printf("│  ID: %s\n", receiver.Id)
	if receiver.HasAppAccess {
		fmt.Printf("│  App access: %s\n", receiver.Email)
	}
	fmt.Printf("│  Balance: %s\n", common.FormatAmount(balance, currency))
	fmt.Printf("│  Transactions: %d\n", txCount)
	common.PrintBoxSeparator(78)
}

// reconcile compares the local balance against the mirrored ledger.
func (r *reporter) reconcile(ctx context.Context, receiverId string, balance decimal.Decimal) bool {
	mirrored, err := r.mirror.ReceiverBalance(ctx, receiverId, r.currency)
	if err != nil {
		r.logger.Error("Failed to read mirrored balance", zap.String("receiver_id", receiverId), zap.Error(err))
		return false
	}
	if !mirrored.Equal(balance) {
		fmt.Printf("│  MISMATCH: mirror holds %s\n", common.FormatAmount(mirrored, r.currency))
		r.logger.Warn("Balance mismatch",
			zap.String("receiver_id", receiverId),
			zap.String("local", balance.String()),
			zap.String("mirror", mirrored.String()))
		return false
	}
	return true
}

func (r *reporter) processReceiver(ctx context.Context, receiver common.ReceiverSummary, stats *balanceStats) error {
	balance, err := r.ledger.GetBalance(ctx, receiver.Id)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	records, err := r.log.ListFor(ctx, receiver.Id)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	stats.totalBalance = stats.totalBalance.Add(balance)
	if balance.IsPositive() {
		stats.receiversWithFunds++
	}

	printReceiverHeader(receiver, balance, r.currency, len(records))
	for i, record := range records {
		printTransaction(record, i == len(records)-1)
	}

	if r.mirror != nil && !r.reconcile(ctx, receiver.Id, balance) {
		stats.mismatches++
	}
	return nil
}

func (r *reporter) run(ctx context.Context, receivers []common.ReceiverSummary) balanceStats {
	stats := balanceStats{totalBalance: decimal.Zero}

	for _, receiver := range receivers {
		stats.totalReceivers++

		if err := r.processReceiver(ctx, receiver, &stats); err != nil {
			r.logger.Error("Failed to process receiver",
				zap.String("receiver_id", receiver.Id),
				zap.String("receiver_name", receiver.Name),
				zap.Error(err))
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	receiverFlag := flag.String("receiver", "", "Filter by receiver id (optional)")
	fundedFlag := flag.Bool("funded", false, "Only report receivers holding funds")
	reconcileFlag := flag.Bool("reconcile", false, "Compare balances against the Formance mirror")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only: no payment processor needed
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	l := ledger.New(dbService)
	r := &reporter{
		ledger:   l,
		log:      translog.New(dbService, l, cfg.Payments.Currency, clock.WallClock),
		currency: cfg.Payments.Currency,
		logger:   logger,
	}

	if *reconcileFlag {
		if cfg.Formance.URL == "" {
			logger.Fatal("--reconcile needs FORMANCE_URL")
		}
		r.mirror, err = formance.NewService(ctx, cfg.Formance)
		if err != nil {
			logger.Fatal("Failed to connect to Formance", zap.Error(err))
		}
	}

	receivers, err := common.ReceiverSummaries(ctx, dbService, common.ReceiverFilter{Id: *receiverFlag, FundedOnly: *fundedFlag}, logger)
	if err != nil {
		logger.Fatal("Failed to list receivers", zap.Error(err))
	}
	logger.Info("Retrieved receivers", zap.Int("count", len(receivers)))

	common.PrintHeader("RECEIVER BALANCE REPORT", common.DefaultWidth)

	stats := r.run(ctx, receivers)

	summary := fmt.Sprintf("SUMMARY: %d of %d receivers hold funds, %s in custody",
		stats.receiversWithFunds, stats.totalReceivers, common.FormatAmount(stats.totalBalance, cfg.Payments.Currency))
	if *reconcileFlag {
		summary += fmt.Sprintf(", %d mismatches", stats.mismatches)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("receivers_queried", stats.totalReceivers),
		zap.Int("receivers_with_funds", stats.receiversWithFunds),
		zap.String("total_balance", stats.totalBalance.String()),
		zap.Int("mismatches", stats.mismatches))
}
