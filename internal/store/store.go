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

package store

import (
	"context"
	"errors"
	"time"

	"donneur-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicate              = errors.New("duplicate record")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAlreadyConfirmed       = errors.New("transaction already confirmed")
	ErrReceiverNotFound       = errors.New("receiver not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrAlreadyHasApp          = errors.New("receiver already has an app account")
	ErrFriendshipConfirmed    = errors.New("friendship already confirmed")
)

// Movement is a signed balance change applied to one receiver.
type Movement struct {
	ReceiverId string
	Delta      decimal.Decimal
}

// Confirmation flips an existing transaction from unconfirmed to confirmed.
// An empty SenderId keeps the sender already recorded.
type Confirmation struct {
	TransactionId string
	SenderId      string
	PaymentMethod *models.PaymentMethod
}

// LedgerUpdate is applied atomically: either every movement lands and the
// transaction is recorded or confirmed, or nothing changes.
type LedgerUpdate struct {
	Movements []Movement
	Confirm   *Confirmation
	Record    *models.Transaction
}

// CreateReceiverParams contains the parameters for registering a receiver.
type CreateReceiverParams struct {
	FirstName   string
	LastName    string
	DateOfBirth string
	Email       string
}

type CreateOrganizationParams struct {
	Name         string
	Address      models.Address
	Phone        string
	Description  string
	MaxOccupancy *int
}

type ReceiverStore interface {
	CreateReceiver(ctx context.Context, params CreateReceiverParams) (*models.Receiver, error)
	GetReceiver(ctx context.Context, receiverId string) (*models.Receiver, error)
	ListReceivers(ctx context.Context) ([]models.Receiver, error)
	SetReceiverEmail(ctx context.Context, receiverId, email string) error
	SetReceiverMedia(ctx context.Context, receiverId, field, url string) error
	// GrantAppAccess flips has_app_access and writes the users mapping in
	// one step; it fails with ErrAlreadyHasApp when the flag is already set.
	GrantAppAccess(ctx context.Context, receiverId, authUID string) error
}

type OrganizationStore interface {
	CreateOrganization(ctx context.Context, params CreateOrganizationParams) (*models.Organization, error)
	GetOrganization(ctx context.Context, organizationId string) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	SetOccupancy(ctx context.Context, organizationId string, occupancy int) error
	SetOrganizationMedia(ctx context.Context, organizationId, field, url string) error
}

type SenderStore interface {
	CreateSender(ctx context.Context, sender *models.Sender) (*models.Sender, error)
	GetSender(ctx context.Context, senderId string) (*models.Sender, error)
	FindAnonymousSender(ctx context.Context, name string, address models.Address) (*models.Sender, error)
}

type UserStore interface {
	GetUser(ctx context.Context, authUID string) (*models.UserRecord, error)
	PutUser(ctx context.Context, user models.UserRecord) error
}

// BalanceStore is the only path that mutates receiver balances.
type BalanceStore interface {
	GetBalance(ctx context.Context, receiverId string) (decimal.Decimal, error)
	CommitLedger(ctx context.Context, update LedgerUpdate) (map[string]decimal.Decimal, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, transaction *models.Transaction) error
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionId string) error
	ListTransactionsByReceiver(ctx context.Context, receiverId string) ([]models.Transaction, error)
	ListTransactionsBySender(ctx context.Context, senderId string) ([]models.Transaction, error)
}

// PostStore keeps the author and public indexes in step with the posts
// table on every create and delete.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postId string) (*models.Post, error)
	// DeletePostTree removes the post, all of its descendant replies and
	// their index entries, and unlinks the post from its parent. It returns
	// the ids removed.
	DeletePostTree(ctx context.Context, postId string) ([]string, error)
	AddLike(ctx context.Context, postId, userId string) error
	RemoveLike(ctx context.Context, postId, userId string) error
	ListAuthorPosts(ctx context.Context, authorId string) ([]models.PostRef, error)
	ListPublicPosts(ctx context.Context) ([]models.PostRef, error)
}

type FriendshipStore interface {
	CreateFriendship(ctx context.Context, friendship *models.Friendship) error
	GetFriendship(ctx context.Context, friendshipId string) (*models.Friendship, error)
	FindFriendshipBetween(ctx context.Context, userA, userB string) (*models.Friendship, error)
	// AcceptFriendship sets friends_since only while it is still null.
	AcceptFriendship(ctx context.Context, friendshipId string, since time.Time) error
	DeleteFriendship(ctx context.Context, friendshipId string) error
	ListFriendships(ctx context.Context, userId string) ([]models.Friendship, error)
}

type SubscriptionStore interface {
	Subscribe(ctx context.Context, receiverId, organizationId string) error
	Unsubscribe(ctx context.Context, receiverId, organizationId string) error
	ListSubscriptions(ctx context.Context, receiverId string) ([]string, error)
}

// Store is the full persistence contract.
type Store interface {
	ReceiverStore
	OrganizationStore
	SenderStore
	UserStore
	BalanceStore
	TransactionStore
	PostStore
	FriendshipStore
	SubscriptionStore

	Close()
}
