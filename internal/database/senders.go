package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateSender(ctx context.Context, sender *models.Sender) (*models.Sender, error) {
	created := *sender
	if created.Id == "" {
		created.Id = uuid.New().String()
	}
	created.CreatedAt = s.now()

	addr := created.Address
	_, err := s.db.ExecContext(ctx, queryInsertSender,
		created.Id, created.IsAnonymous, created.FirstName, created.LastName, created.Email, created.Name,
		addr.Street, addr.Apt, addr.City, addr.Province, addr.PostalCode, addr.Country, created.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("%w: sender %s", store.ErrDuplicate, created.Id)
		}
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	zap.L().Info("Sender created", zap.String("sender_id", created.Id), zap.Bool("anonymous", created.IsAnonymous))
	return &created, nil
}

func scanSender(row rowScanner) (*models.Sender, error) {
	var sender models.Sender
	addr := &sender.Address
	err := row.Scan(&sender.Id, &sender.IsAnonymous, &sender.FirstName, &sender.LastName, &sender.Email, &sender.Name,
		&addr.Street, &addr.Apt, &addr.City, &addr.Province, &addr.PostalCode, &addr.Country, &sender.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sender, nil
}

func (s *Service) GetSender(ctx context.Context, senderId string) (*models.Sender, error) {
	sender, err := scanSender(s.db.QueryRowContext(ctx, queryGetSender, senderId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sender %s", store.ErrNotFound, senderId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}
	return sender, nil
}

// FindAnonymousSender matches an anonymous donor on billing name, street,
// postal code and country.
func (s *Service) FindAnonymousSender(ctx context.Context, name string, address models.Address) (*models.Sender, error) {
	sender, err := scanSender(s.db.QueryRowContext(ctx, queryFindAnonymousSender,
		name, address.Street, address.PostalCode, address.Country))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: anonymous sender %s", store.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sender: %w", err)
	}
	return sender, nil
}
