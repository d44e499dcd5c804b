package common

import (
	"context"
	"fmt"
	"sort"

	"donneur-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiverSummary is the row the admin commands print for a receiver.
type ReceiverSummary struct {
	Id           string
	Name         string
	Email        string
	Balance      decimal.Decimal
	HasAppAccess bool
}

// ReceiverFilter narrows ReceiverSummaries. An empty Id selects everyone.
type ReceiverFilter struct {
	Id         string
	FundedOnly bool
}

// ReceiverSummaries lists receivers largest balance first, ties broken by
// name so reports are stable between runs.
func ReceiverSummaries(ctx context.Context, receivers store.ReceiverStore, filter ReceiverFilter, logger *zap.Logger) ([]ReceiverSummary, error) {
	if filter.Id != "" {
		r, err := receivers.GetReceiver(ctx, filter.Id)
		if err != nil {
			return nil, fmt.Errorf("receiver %s: %w", filter.Id, err)
		}
		if filter.FundedOnly && !r.Balance.IsPositive() {
			return nil, nil
		}
		return []ReceiverSummary{{
			Id: r.Id, Name: r.FirstName + " " + r.LastName, Email: r.Email,
			Balance: r.Balance, HasAppAccess: r.HasAppAccess,
		}}, nil
	}

	all, err := receivers.ListReceivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivers: %w", err)
	}

	summaries := make([]ReceiverSummary, 0, len(all))
	for _, r := range all {
		if filter.FundedOnly && !r.Balance.IsPositive() {
			continue
		}
		summaries = append(summaries, ReceiverSummary{
			Id: r.Id, Name: r.FirstName + " " + r.LastName, Email: r.Email,
			Balance: r.Balance, HasAppAccess: r.HasAppAccess,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if c := summaries[i].Balance.Cmp(summaries[j].Balance); c != 0 {
			return c > 0
		}
		return summaries[i].Name < summaries[j].Name
	})

	logger.Debug("Listed receivers",
		zap.Int("total", len(all)),
		zap.Int("selected", len(summaries)),
		zap.Bool("funded_only", filter.FundedOnly))
	return summaries, nil
}
