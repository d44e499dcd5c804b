// Package identity manages receiver and organization accounts: registration,
// app-account provisioning, organization profiles and author resolution.
package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	ErrInvalidName          = errors.ConstError("first and last name are required")
	ErrInvalidDateOfBirth   = errors.ConstError("date of birth must be DD-MM-YYYY")
	ErrInvalidEmail         = errors.ConstError("invalid email address")
	ErrAlreadyHasApp        = errors.ConstError("receiver already has an app account")
	ErrNoLinkedEmail        = errors.ConstError("receiver has no linked email")
	ErrReceiverNotFound     = errors.ConstError("receiver not found")
	ErrOrganizationNotFound = errors.ConstError("organization not found")
	ErrUserNotFound         = errors.ConstError("user not found")
	ErrInvalidOccupancy     = errors.ConstError("invalid occupancy")
	ErrInvalidMediaType     = errors.ConstError("invalid media type")
)

const dateOfBirthLayout = "02-01-2006"

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// Geocoder resolves a one-line postal address to coordinates.
type Geocoder interface {
	Coordinates(ctx context.Context, address string) (float64, float64, error)
}

// Notifier delivers account emails. Delivery is fire-and-forget.
type Notifier interface {
	SendAccountCreationEmail(email, link string)
}

// ImageStore normalises an uploaded image and returns its public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, ownerId, mediaType string, data []byte) (string, error)
}

type Service struct {
	receivers     store.ReceiverStore
	organizations store.OrganizationStore
	users         store.UserStore
	geocoder      Geocoder
	notifier      Notifier
	images        ImageStore
	linkBase      string
}

// NewService wires the account stores. geocoder, notifier and images may be
// nil; the operations that need them then skip or fail.
func NewService(receivers store.ReceiverStore, organizations store.OrganizationStore, users store.UserStore,
	geocoder Geocoder, notifier Notifier, images ImageStore, linkBase string) *Service {
	return &Service{
		receivers:     receivers,
		organizations: organizations,
		users:         users,
		geocoder:      geocoder,
		notifier:      notifier,
		images:        images,
		linkBase:      strings.TrimRight(linkBase, "/"),
	}
}

func (s *Service) RegisterReceiver(ctx context.Context, firstName, lastName, dateOfBirth string) (*models.Receiver, error) {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidName, "")
	}
	if err := ValidateDateOfBirth(dateOfBirth); err != nil {
		return nil, err
	}

	receiver, err := s.receivers.CreateReceiver(ctx, store.CreateReceiverParams{
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dateOfBirth,
	})
	if err != nil {
		return nil, storeFailure(err)
	}

	zap.L().Info("Receiver registered", zap.String("receiver_id", receiver.Id))
	return receiver, nil
}

// ValidateDateOfBirth checks a DD-MM-YYYY date.
func ValidateDateOfBirth(value string) error {
	if _, err := time.Parse(dateOfBirthLayout, value); err != nil {
		return apperrors.New(apperrors.InvalidInput, ErrInvalidDateOfBirth, "%q", value)
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return apperrors.New(apperrors.InvalidInput, ErrInvalidEmail, "%q", email)
	}
	return nil
}

func (s *Service) GetReceiver(ctx context.Context, receiverId string) (*models.Receiver, error) {
	receiver, err := s.receivers.GetReceiver(ctx, receiverId)
	if err != nil {
		return nil, receiverError(err, receiverId)
	}
	return receiver, nil
}

func (s *Service) SetReceiverEmail(ctx context.Context, receiverId, email string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := s.receivers.SetReceiverEmail(ctx, receiverId, email); err != nil {
		return receiverError(err, receiverId)
	}
	zap.L().Info("Receiver email linked", zap.String("receiver_id", receiverId))
	return nil
}

// AccountCreationLink is the URL a receiver follows to create an app account.
func (s *Service) AccountCreationLink(receiverId string) string {
	return fmt.Sprintf("%s/create/%s", s.linkBase, receiverId)
}

// SendAccountCreationLink emails the account creation link to the
// receiver's linked address and returns the link.
func (s *Service) SendAccountCreationLink(ctx context.Context, receiverId string) (string, error) {
	receiver, err := s.GetReceiver(ctx, receiverId)
	if err != nil {
		return "", err
	}
	if receiver.Email == "" {
		return "", apperrors.New(apperrors.InvalidInput, ErrNoLinkedEmail, "%s", receiverId)
	}
	if receiver.HasAppAccess {
		return "", apperrors.New(apperrors.AlreadyExists, ErrAlreadyHasApp, "%s", receiverId)
	}

	link := s.AccountCreationLink(receiverId)
	if s.notifier != nil {
		s.notifier.SendAccountCreationEmail(receiver.Email, link)
	} else {
		zap.L().Warn("No notifier configured, account link not sent", zap.String("receiver_id", receiverId))
	}
	return link, nil
}

// VerifyAccountCreationLink reports whether the link for receiverId can
// still be used.
func (s *Service) VerifyAccountCreationLink(ctx context.Context, receiverId string) (bool, error) {
	receiver, err := s.GetReceiver(ctx, receiverId)
	if err != nil {
		return false, err
	}
	return !receiver.HasAppAccess, nil
}

// CreateAppAccount maps authUID to the receiver. It succeeds at most once
// per receiver.
func (s *Service) CreateAppAccount(ctx context.Context, receiverId, authUID string) error {
	receiver, err := s.GetReceiver(ctx, receiverId)
	if err != nil {
		return err
	}
	if receiver.Email == "" {
		return apperrors.New(apperrors.InvalidInput, ErrNoLinkedEmail, "%s", receiverId)
	}

	err = s.receivers.GrantAppAccess(ctx, receiverId, authUID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAlreadyHasApp):
		return apperrors.New(apperrors.AlreadyExists, ErrAlreadyHasApp, "%s", receiverId)
	case errors.Is(err, store.ErrDuplicate):
		return apperrors.New(apperrors.AlreadyExists, apperrors.AlreadyExists, "auth uid already linked")
	default:
		return receiverError(err, receiverId)
	}

	zap.L().Info("App account created", zap.String("receiver_id", receiverId))
	return nil
}

// DonationProfile is the public face of a receiver: first name and last
// initial only.
func (s *Service) DonationProfile(ctx context.Context, receiverId string) (*models.DonationProfile, error) {
	receiver, err := s.GetReceiver(ctx, receiverId)
	if err != nil {
		return nil, err
	}
	return &models.DonationProfile{
		Id:      receiver.Id,
		Name:    shortName(receiver.FirstName, receiver.LastName),
		Picture: receiver.IdPictureFile,
	}, nil
}

func shortName(first, last string) string {
	if last == "" {
		return first
	}
	initial := []rune(last)[0]
	return fmt.Sprintf("%s %c.", first, initial)
}

// ResolveUser looks up the account an auth provider uid is linked to.
func (s *Service) ResolveUser(ctx context.Context, authUID string) (*models.UserRecord, error) {
	user, err := s.users.GetUser(ctx, authUID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.New(apperrors.NotFound, ErrUserNotFound, "%s", authUID)
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	return user, nil
}

// ResolveAuthor returns display information for a receiver or an
// organization id.
func (s *Service) ResolveAuthor(ctx context.Context, id string) (*models.Author, error) {
	receiver, err := s.receivers.GetReceiver(ctx, id)
	if err == nil {
		return &models.Author{
			Kind:   models.AuthorReceiver,
			Id:     receiver.Id,
			Name:   receiver.FirstName + " " + receiver.LastName,
			Avatar: receiver.IdPictureFile,
		}, nil
	}
	if !errors.Is(err, store.ErrReceiverNotFound) {
		return nil, storeFailure(err)
	}

	org, err := s.organizations.GetOrganization(ctx, id)
	if err == nil {
		return &models.Author{
			Kind:   models.AuthorOrganization,
			Id:     org.Id,
			Name:   org.Name,
			Avatar: org.LogoFile,
		}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure(err)
	}
	return nil, apperrors.New(apperrors.NotFound, ErrUserNotFound, "%s", id)
}

func receiverError(err error, receiverId string) error {
	if errors.Is(err, store.ErrReceiverNotFound) {
		return apperrors.New(apperrors.NotFound, ErrReceiverNotFound, "%s", receiverId)
	}
	return storeFailure(err)
}

func organizationError(err error, organizationId string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.New(apperrors.NotFound, ErrOrganizationNotFound, "%s", organizationId)
	}
	return storeFailure(err)
}

func storeFailure(err error) error {
	return apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "identity store")
}
