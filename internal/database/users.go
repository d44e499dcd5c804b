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

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateReceiver(ctx context.Context, params store.CreateReceiverParams) (*models.Receiver, error) {
	receiver := &models.Receiver{
		Id:          uuid.New().String(),
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		DateOfBirth: params.DateOfBirth,
		Email:       params.Email,
		Version:     1,
		CreatedAt:   s.now(),
	}

	_, err := s.db.ExecContext(ctx, queryInsertReceiver,
		receiver.Id, receiver.FirstName, receiver.LastName, receiver.DateOfBirth, receiver.Email, receiver.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create receiver: %w", err)
	}

	zap.L().Info("Receiver created", zap.String("receiver_id", receiver.Id))
	return receiver, nil
}

func scanReceiver(row rowScanner) (*models.Receiver, error) {
	var receiver models.Receiver
	var balanceStr string
	err := row.Scan(&receiver.Id, &receiver.FirstName, &receiver.LastName, &receiver.DateOfBirth,
		&balanceStr, &receiver.Version, &receiver.Email, &receiver.HasAppAccess,
		&receiver.IdPictureFile, &receiver.IdDocumentFile, &receiver.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := receiver.Balance.UnmarshalText([]byte(balanceStr)); err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	return &receiver, nil
}

func (s *Service) GetReceiver(ctx context.Context, receiverId string) (*models.Receiver, error) {
	receiver, err := scanReceiver(s.db.QueryRowContext(ctx, queryGetReceiver, receiverId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrReceiverNotFound, receiverId)
	}
	if err != nil {
		zap.L().Error("Failed to get receiver", zap.String("receiver_id", receiverId), zap.Error(err))
		return nil, fmt.Errorf("failed to get receiver: %w", err)
	}
	return receiver, nil
}

func (s *Service) ListReceivers(ctx context.Context) ([]models.Receiver, error) {
	zap.L().Debug("Querying receivers from database")

	rows, err := s.db.QueryContext(ctx, queryListReceivers)
	if err != nil {
		return nil, fmt.Errorf("failed to query receivers: %w", err)
	}
	defer closeRows(rows)

	var receivers []models.Receiver
	for rows.Next() {
		receiver, err := scanReceiver(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receiver: %w", err)
		}
		receivers = append(receivers, *receiver)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during receiver row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating receiver rows: %w", err)
	}

	zap.L().Debug("Retrieved receivers", zap.Int("count", len(receivers)))
	return receivers, nil
}

func (s *Service) SetReceiverEmail(ctx context.Context, receiverId, email string) error {
	return s.updateReceiver(ctx, queryUpdateReceiverEmail, email, receiverId)
}

// SetReceiverMedia stores a media URL in the id_picture_file or
// id_document_file column.
func (s *Service) SetReceiverMedia(ctx context.Context, receiverId, field, url string) error {
	switch field {
	case "id_picture_file":
		return s.updateReceiver(ctx, queryUpdateReceiverPicture, url, receiverId)
	case "id_document_file":
		return s.updateReceiver(ctx, queryUpdateReceiverDocument, url, receiverId)
	}
	return fmt.Errorf("unknown receiver media field %q", field)
}

func (s *Service) updateReceiver(ctx context.Context, query, value, receiverId string) error {
	result, err := s.db.ExecContext(ctx, query, value, receiverId)
	if err != nil {
		return fmt.Errorf("failed to update receiver: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", store.ErrReceiverNotFound, receiverId)
	}
	return nil
}

func (s *Service) GrantAppAccess(ctx context.Context, receiverId, authUID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, queryGrantAppAccess, receiverId)
	if err != nil {
		return fmt.Errorf("failed to grant app access: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		var balance string
		var version int64
		err := tx.QueryRowContext(ctx, queryGetReceiverBalance, receiverId).Scan(&balance, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", store.ErrReceiverNotFound, receiverId)
		}
		if err != nil {
			return fmt.Errorf("failed to look up receiver: %w", err)
		}
		return fmt.Errorf("%w: %s", store.ErrAlreadyHasApp, receiverId)
	}

	if _, err := tx.ExecContext(ctx, queryInsertUser, authUID, receiverId, string(models.RoleReceiver)); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: auth uid %s already mapped", store.ErrDuplicate, authUID)
		}
		return fmt.Errorf("failed to insert user mapping: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("App access granted", zap.String("receiver_id", receiverId))
	return nil
}

func (s *Service) GetUser(ctx context.Context, authUID string) (*models.UserRecord, error) {
	var user models.UserRecord
	var role string
	err := s.db.QueryRowContext(ctx, queryGetUser, authUID).Scan(&user.AuthUID, &user.InternalId, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, authUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Role = models.Role(role)
	return &user, nil
}

func (s *Service) PutUser(ctx context.Context, user models.UserRecord) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertUser, user.AuthUID, user.InternalId, string(user.Role)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	zap.L().Info("User mapping stored", zap.String("internal_id", user.InternalId), zap.String("role", string(user.Role)))
	return nil
}
