package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) CreateFriendship(ctx context.Context, friendship *models.Friendship) error {
	var since sql.NullTime
	if friendship.FriendsSince != nil {
		since = sql.NullTime{Time: *friendship.FriendsSince, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, queryInsertFriendship,
		friendship.Id, friendship.User1, friendship.User2, friendship.CreatedAt, since)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: friendship %s", store.ErrDuplicate, friendship.Id)
		}
		return fmt.Errorf("failed to create friendship: %w", err)
	}

	zap.L().Info("Friend request created",
		zap.String("friendship_id", friendship.Id),
		zap.String("user_1", friendship.User1),
		zap.String("user_2", friendship.User2))
	return nil
}

func scanFriendship(row rowScanner) (*models.Friendship, error) {
	var friendship models.Friendship
	var since sql.NullTime
	if err := row.Scan(&friendship.Id, &friendship.User1, &friendship.User2, &friendship.CreatedAt, &since); err != nil {
		return nil, err
	}
	if since.Valid {
		t := since.Time
		friendship.FriendsSince = &t
	}
	return &friendship, nil
}

func (s *Service) GetFriendship(ctx context.Context, friendshipId string) (*models.Friendship, error) {
	friendship, err := scanFriendship(s.db.QueryRowContext(ctx, queryGetFriendship, friendshipId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: friendship %s", store.ErrNotFound, friendshipId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	return friendship, nil
}

// FindFriendshipBetween returns any edge linking the pair, in either direction.
func (s *Service) FindFriendshipBetween(ctx context.Context, userA, userB string) (*models.Friendship, error) {
	friendship, err := scanFriendship(s.db.QueryRowContext(ctx, queryFindFriendshipBetween, userA, userB, userB, userA))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: friendship between %s and %s", store.ErrNotFound, userA, userB)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find friendship: %w", err)
	}
	return friendship, nil
}

func (s *Service) AcceptFriendship(ctx context.Context, friendshipId string, since time.Time) error {
	result, err := s.db.ExecContext(ctx, queryAcceptFriendship, since, friendshipId)
	if err != nil {
		return fmt.Errorf("failed to accept friendship: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.GetFriendship(ctx, friendshipId); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", store.ErrFriendshipConfirmed, friendshipId)
	}

	zap.L().Info("Friendship accepted", zap.String("friendship_id", friendshipId))
	return nil
}

func (s *Service) DeleteFriendship(ctx context.Context, friendshipId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteFriendship, friendshipId)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: friendship %s", store.ErrNotFound, friendshipId)
	}

	zap.L().Info("Friendship deleted", zap.String("friendship_id", friendshipId))
	return nil
}

func (s *Service) ListFriendships(ctx context.Context, userId string) ([]models.Friendship, error) {
	rows, err := s.db.QueryContext(ctx, queryListFriendships, userId, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer closeRows(rows)

	var friendships []models.Friendship
	for rows.Next() {
		friendship, err := scanFriendship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		friendships = append(friendships, *friendship)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friendship rows: %w", err)
	}
	return friendships, nil
}

func (s *Service) Subscribe(ctx context.Context, receiverId, organizationId string) error {
	if _, err := s.db.ExecContext(ctx, querySubscribe, receiverId, organizationId); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

func (s *Service) Unsubscribe(ctx context.Context, receiverId, organizationId string) error {
	if _, err := s.db.ExecContext(ctx, queryUnsubscribe, receiverId, organizationId); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

func (s *Service) ListSubscriptions(ctx context.Context, receiverId string) ([]string, error) {
	ids, err := s.listIds(ctx, queryListSubscriptions, receiverId)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return ids, nil
}
