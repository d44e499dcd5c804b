// Package auth verifies bearer tokens and resolves them to the calling account.
package auth

import (
	"context"
	"fmt"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	ErrInvalidToken = errors.ConstError("invalid token")
	ErrUnknownUser  = errors.ConstError("token does not map to an account")
)

// UserResolver maps an auth provider uid to the internal account.
type UserResolver interface {
	ResolveUser(ctx context.Context, authUID string) (*models.UserRecord, error)
}

type Verifier struct {
	secret []byte
	issuer string
	users  UserResolver
}

func NewVerifier(cfg models.AuthConfig, users UserResolver) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &Verifier{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, users: users}, nil
}

// Subject checks an HS256 token and returns its subject, the auth
// provider uid. It does not require the uid to be linked to an account.
func (v *Verifier) Subject(token string) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, options...)
	if err != nil {
		return "", apperrors.Wrap(apperrors.Unauthorized, ErrInvalidToken, err, "")
	}
	if claims.Subject == "" {
		return "", apperrors.New(apperrors.Unauthorized, ErrInvalidToken, "missing subject")
	}
	return claims.Subject, nil
}

// Verify checks a token and returns the account its subject is linked to.
// Every failure is reported as Unauthorized.
func (v *Verifier) Verify(ctx context.Context, token string) (models.Caller, error) {
	subject, err := v.Subject(token)
	if err != nil {
		return models.Caller{}, err
	}

	user, err := v.users.ResolveUser(ctx, subject)
	if err != nil {
		if errors.Is(err, apperrors.NotFound) {
			return models.Caller{}, apperrors.New(apperrors.Unauthorized, ErrUnknownUser, "")
		}
		return models.Caller{}, err
	}
	if !user.Role.Valid() {
		zap.L().Warn("User mapping has unknown role", zap.String("internal_id", user.InternalId), zap.String("role", string(user.Role)))
		return models.Caller{}, apperrors.New(apperrors.Unauthorized, ErrUnknownUser, "unknown role")
	}

	return models.Caller{UserId: user.InternalId, Role: user.Role}, nil
}

// IssueToken signs a token for authUID. It backs local tooling and tests;
// production tokens come from the identity provider.
func (v *Verifier) IssueToken(authUID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   authUID,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("unable to sign token: %w", err)
	}
	return signed, nil
}
