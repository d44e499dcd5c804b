package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Receiver represents a person holding a custodial balance
type Receiver struct {
	Id             string          `db:"id" json:"id"`
	FirstName      string          `db:"first_name" json:"first_name"`
	LastName       string          `db:"last_name" json:"last_name"`
	DateOfBirth    string          `db:"dob" json:"dob"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	Version        int64           `db:"version" json:"-"`
	Email          string          `db:"email" json:"email"`
	HasAppAccess   bool            `db:"has_app_access" json:"has_app_access"`
	IdPictureFile  string          `db:"id_picture_file" json:"id_picture_file"`
	IdDocumentFile string          `db:"id_document_file" json:"id_document_file"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Address is a postal address with optional resolved coordinates
type Address struct {
	Street     string   `db:"street" yaml:"street" json:"street"`
	Apt        string   `db:"apt" yaml:"apt" json:"apt,omitempty"`
	City       string   `db:"city" yaml:"city" json:"city"`
	Province   string   `db:"province" yaml:"province" json:"province"`
	PostalCode string   `db:"postal_code" yaml:"postal_code" json:"postal_code"`
	Country    string   `db:"country" yaml:"country" json:"country"`
	Latitude   *float64 `db:"latitude" yaml:"-" json:"latitude,omitempty"`
	Longitude  *float64 `db:"longitude" yaml:"-" json:"longitude,omitempty"`
}

// Organization represents a shelter
type Organization struct {
	Id           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Address      Address   `db:"-" json:"address"`
	Phone        string    `db:"phone" json:"phone"`
	Description  string    `db:"description" json:"description"`
	BannerFile   string    `db:"banner_file" json:"banner_file"`
	LogoFile     string    `db:"logo_file" json:"logo_file"`
	MaxOccupancy *int      `db:"max_occupancy" json:"max_occupancy,omitempty"`
	Occupancy    int       `db:"occupancy" json:"occupancy"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Sender represents a donor; anonymous senders carry the billing details
// captured when their first donation was confirmed.
type Sender struct {
	Id          string    `db:"id" json:"id"`
	IsAnonymous bool      `db:"is_anonymous" json:"is_anonymous"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	Name        string    `db:"name" json:"name"`
	Address     Address   `db:"-" json:"address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UserRecord maps an auth provider uid to an internal account
type UserRecord struct {
	AuthUID    string `db:"auth_uid" json:"auth_uid"`
	InternalId string `db:"internal_id" json:"internal_id"`
	Role       Role   `db:"role" json:"role"`
}

type TransactionType string

const (
	TransactionDonation   TransactionType = "donation"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionSend       TransactionType = "send"
)

// PaymentMethod is the formatted card description stored on confirmed donations
type PaymentMethod struct {
	Wallet string `json:"wallet"`
	Card   string `json:"card"`
}

// Transaction represents one money movement record
type Transaction struct {
	Id            string          `db:"id" json:"id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Currency      string          `db:"currency" json:"currency"`
	Type          TransactionType `db:"type" json:"type"`
	ReceiverId    string          `db:"receiver_id" json:"receiver_id"`
	SenderId      string          `db:"sender_id" json:"sender_id"`
	Confirmed     bool            `db:"confirmed" json:"confirmed"`
	PaymentMethod *PaymentMethod  `db:"-" json:"payment_method,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	ConfirmedAt   *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

// Visibility controls which audience a post is shown to. The string
// values are the ones mobile clients send.
type Visibility string

const (
	VisibilitySubscribers Visibility = "receiver"
	VisibilityFriends     Visibility = "friends"
	VisibilityAll         Visibility = "all"
)

// Post is a feed entry or, when ParentId is set, a reply
type Post struct {
	Id         string          `db:"id" json:"id"`
	AuthorId   string          `db:"author_id" json:"author_id"`
	Content    json.RawMessage `db:"content" json:"content"`
	Visibility Visibility      `db:"visibility" json:"visibility"`
	ParentId   string          `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	Likes      []string        `db:"-" json:"likes"`
	Replies    []string        `db:"-" json:"replies"`
}

// PostRef is one entry of the author or public post index
type PostRef struct {
	PostId    string    `db:"post_id" json:"post_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Friendship is a directional edge; a nil FriendsSince means the request
// from User1 to User2 is still pending.
type Friendship struct {
	Id           string     `db:"id" json:"id"`
	User1        string     `db:"user_1" json:"user_1"`
	User2        string     `db:"user_2" json:"user_2"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	FriendsSince *time.Time `db:"friends_since" json:"friends_since"`
}

func (f *Friendship) Confirmed() bool {
	return f.FriendsSince != nil
}
