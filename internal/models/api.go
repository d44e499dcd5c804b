package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AuthorKind string

const (
	AuthorReceiver     AuthorKind = "receiver"
	AuthorOrganization AuthorKind = "organization"
)

// Author is the display identity attached to posts. Kind tells which
// account type the id belongs to.
type Author struct {
	Kind   AuthorKind `json:"type"`
	Id     string     `json:"id"`
	Name   string     `json:"name"`
	Avatar string     `json:"avatar,omitempty"`
}

// FeedPost is a post annotated with its resolved author
type FeedPost struct {
	Id         string          `json:"id"`
	Content    json.RawMessage `json:"content"`
	Visibility Visibility      `json:"visibility"`
	ParentId   string          `json:"parent_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Likes      []string        `json:"likes"`
	Replies    []string        `json:"replies"`
	Author     Author          `json:"author"`
}

type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionSent     Direction = "sent"
)

// TransactionRecord is a confirmed transaction seen from one party
type TransactionRecord struct {
	Id            string          `json:"id"`
	Direction     Direction       `json:"direction"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ReceiverId    string          `json:"receiver_id"`
	SenderId      string          `json:"sender_id"`
	PaymentMethod *PaymentMethod  `json:"payment_method,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type FriendEntry struct {
	FriendshipId string     `json:"friendship_id"`
	UserId       string     `json:"user_id"`
	CreatedAt    time.Time  `json:"created_at"`
	FriendsSince *time.Time `json:"friends_since,omitempty"`
}

// FriendList splits a user's edges into incoming requests and confirmed friends
type FriendList struct {
	Requests []FriendEntry `json:"requests"`
	Friends  []FriendEntry `json:"friends"`
}

// DonationProfile is the public view of a receiver on the donation page
type DonationProfile struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

type BalanceResponse struct {
	ReceiverId string          `json:"receiver_id"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
}
