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

package social

import (
	"context"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	ErrCannotBefriendSelf   = errors.ConstError("cannot befriend yourself")
	ErrAlreadyFriends       = errors.ConstError("already friends")
	ErrFriendshipNotFound   = errors.ConstError("friendship not found")
	ErrUserNotFound         = errors.ConstError("user not found")
	ErrOrganizationNotFound = errors.ConstError("organization not found")
	ErrNotAParty            = errors.ConstError("not a party to this friendship")
)

// FeedInvalidator drops a viewer's cached feed after their followed set changes.
type FeedInvalidator interface {
	Invalidate(viewerId string)
}

type Service struct {
	friendships   store.FriendshipStore
	subscriptions store.SubscriptionStore
	receivers     store.ReceiverStore
	organizations store.OrganizationStore
	clock         clock.Clock
	invalidator   FeedInvalidator
}

func NewService(friendships store.FriendshipStore, subscriptions store.SubscriptionStore,
	receivers store.ReceiverStore, organizations store.OrganizationStore, c clock.Clock) *Service {
	return &Service{
		friendships:   friendships,
		subscriptions: subscriptions,
		receivers:     receivers,
		organizations: organizations,
		clock:         c,
	}
}

// SetInvalidator installs the feed cache to evict on graph changes.
func (s *Service) SetInvalidator(invalidator FeedInvalidator) {
	s.invalidator = invalidator
}

func (s *Service) invalidate(ids ...string) {
	if s.invalidator == nil {
		return
	}
	for _, id := range ids {
		s.invalidator.Invalidate(id)
	}
}

// AddFriend sends a friend request from userId to otherId.
func (s *Service) AddFriend(ctx context.Context, userId, otherId string) (*models.Friendship, error) {
	if userId == otherId {
		return nil, apperrors.New(apperrors.InvalidInput, ErrCannotBefriendSelf, "%s", userId)
	}
	for _, id := range []string{userId, otherId} {
		if err := s.requireReceiver(ctx, id); err != nil {
			return nil, err
		}
	}

	existing, err := s.friendships.FindFriendshipBetween(ctx, userId, otherId)
	if err == nil {
		return nil, apperrors.New(apperrors.AlreadyExists, ErrAlreadyFriends, "friendship %s", existing.Id)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure(err)
	}

	friendship := &models.Friendship{
		Id:        uuid.New().String(),
		User1:     userId,
		User2:     otherId,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.friendships.CreateFriendship(ctx, friendship); err != nil {
		return nil, storeFailure(err)
	}
	return friendship, nil
}

// ReplyToRequest lets the recipient accept or decline a pending request.
func (s *Service) ReplyToRequest(ctx context.Context, userId, friendshipId string, accept bool) error {
	friendship, err := s.getFriendship(ctx, friendshipId)
	if err != nil {
		return err
	}
	if friendship.Confirmed() {
		return apperrors.New(apperrors.AlreadyExists, ErrAlreadyFriends, "friendship %s", friendshipId)
	}
	if friendship.User2 != userId {
		return apperrors.New(apperrors.Unauthorized, ErrNotAParty, "only the recipient can reply")
	}

	if !accept {
		if err := s.friendships.DeleteFriendship(ctx, friendshipId); err != nil {
			return s.mapFriendshipError(err, friendshipId)
		}
		zap.L().Info("Friend request declined", zap.String("friendship_id", friendshipId))
		return nil
	}

	if err := s.friendships.AcceptFriendship(ctx, friendshipId, s.clock.Now().UTC()); err != nil {
		return s.mapFriendshipError(err, friendshipId)
	}
	s.invalidate(friendship.User1, friendship.User2)
	return nil
}

// RemoveFriend deletes a pending or confirmed edge; either party may do so.
func (s *Service) RemoveFriend(ctx context.Context, userId, friendshipId string) error {
	friendship, err := s.getFriendship(ctx, friendshipId)
	if err != nil {
		return err
	}
	if friendship.User1 != userId && friendship.User2 != userId {
		return apperrors.New(apperrors.Unauthorized, ErrNotAParty, "friendship %s", friendshipId)
	}

	if err := s.friendships.DeleteFriendship(ctx, friendshipId); err != nil {
		return s.mapFriendshipError(err, friendshipId)
	}
	if friendship.Confirmed() {
		s.invalidate(friendship.User1, friendship.User2)
	}
	return nil
}

// GetFriends splits userId's edges into incoming pending requests and
// confirmed friends, naming the other party of each.
func (s *Service) GetFriends(ctx context.Context, userId string) (*models.FriendList, error) {
	friendships, err := s.friendships.ListFriendships(ctx, userId)
	if err != nil {
		return nil, storeFailure(err)
	}

	list := &models.FriendList{Requests: []models.FriendEntry{}, Friends: []models.FriendEntry{}}
	for _, f := range friendships {
		other := f.User1
		if other == userId {
			other = f.User2
		}
		entry := models.FriendEntry{FriendshipId: f.Id, UserId: other, CreatedAt: f.CreatedAt, FriendsSince: f.FriendsSince}

		switch {
		case f.Confirmed():
			list.Friends = append(list.Friends, entry)
		case f.User2 == userId:
			list.Requests = append(list.Requests, entry)
		}
	}
	return list, nil
}

// FriendIds returns the ids of userId's confirmed friends.
func (s *Service) FriendIds(ctx context.Context, userId string) ([]string, error) {
	list, err := s.GetFriends(ctx, userId)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Friends))
	for _, f := range list.Friends {
		ids = append(ids, f.UserId)
	}
	return ids, nil
}

func (s *Service) Subscribe(ctx context.Context, receiverId, organizationId string) error {
	if err := s.requireSubscriptionParties(ctx, receiverId, organizationId); err != nil {
		return err
	}
	if err := s.subscriptions.Subscribe(ctx, receiverId, organizationId); err != nil {
		return storeFailure(err)
	}
	zap.L().Info("Subscribed", zap.String("receiver_id", receiverId), zap.String("organization_id", organizationId))
	s.invalidate(receiverId)
	return nil
}

func (s *Service) Unsubscribe(ctx context.Context, receiverId, organizationId string) error {
	if err := s.requireSubscriptionParties(ctx, receiverId, organizationId); err != nil {
		return err
	}
	if err := s.subscriptions.Unsubscribe(ctx, receiverId, organizationId); err != nil {
		return storeFailure(err)
	}
	zap.L().Info("Unsubscribed", zap.String("receiver_id", receiverId), zap.String("organization_id", organizationId))
	s.invalidate(receiverId)
	return nil
}

func (s *Service) GetSubscriptions(ctx context.Context, receiverId string) ([]string, error) {
	ids, err := s.subscriptions.ListSubscriptions(ctx, receiverId)
	if err != nil {
		return nil, storeFailure(err)
	}
	return ids, nil
}

func (s *Service) requireSubscriptionParties(ctx context.Context, receiverId, organizationId string) error {
	if err := s.requireReceiver(ctx, receiverId); err != nil {
		return err
	}
	if _, err := s.organizations.GetOrganization(ctx, organizationId); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.New(apperrors.NotFound, ErrOrganizationNotFound, "%s", organizationId)
		}
		return storeFailure(err)
	}
	return nil
}

func (s *Service) requireReceiver(ctx context.Context, receiverId string) error {
	if _, err := s.receivers.GetReceiver(ctx, receiverId); err != nil {
		if errors.Is(err, store.ErrReceiverNotFound) {
			return apperrors.New(apperrors.NotFound, ErrUserNotFound, "%s", receiverId)
		}
		return storeFailure(err)
	}
	return nil
}

func (s *Service) getFriendship(ctx context.Context, friendshipId string) (*models.Friendship, error) {
	friendship, err := s.friendships.GetFriendship(ctx, friendshipId)
	if err != nil {
		return nil, s.mapFriendshipError(err, friendshipId)
	}
	return friendship, nil
}

func (s *Service) mapFriendshipError(err error, friendshipId string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.New(apperrors.NotFound, ErrFriendshipNotFound, "%s", friendshipId)
	case errors.Is(err, store.ErrFriendshipConfirmed):
		return apperrors.New(apperrors.AlreadyExists, ErrAlreadyFriends, "friendship %s", friendshipId)
	}
	return storeFailure(err)
}

func storeFailure(err error) error {
	return apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "social store")
}
