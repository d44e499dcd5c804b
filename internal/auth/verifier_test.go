package auth

import (
	"context"
	"testing"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"
)

type mockUsers struct {
	resolveUserFunc func(ctx context.Context, authUID string) (*models.UserRecord, error)
}

func (m *mockUsers) ResolveUser(ctx context.Context, authUID string) (*models.UserRecord, error) {
	return m.resolveUserFunc(ctx, authUID)
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	users := &mockUsers{resolveUserFunc: func(_ context.Context, authUID string) (*models.UserRecord, error) {
		switch authUID {
		case "uid-receiver":
			return &models.UserRecord{AuthUID: authUID, InternalId: "r1", Role: models.RoleReceiver}, nil
		case "uid-bad-role":
			return &models.UserRecord{AuthUID: authUID, InternalId: "x", Role: "admin"}, nil
		}
		return nil, apperrors.New(apperrors.NotFound, apperrors.NotFound, "%s", authUID)
	}}
	verifier, err := NewVerifier(models.AuthConfig{JWTSecret: "test-secret", Issuer: "donneur"}, users)
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	return verifier
}

func TestVerify(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	token, err := verifier.IssueToken("uid-receiver", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	caller, err := verifier.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if caller.UserId != "r1" || caller.Role != models.RoleReceiver {
		t.Errorf("Unexpected caller %+v", caller)
	}

	unlinked, err := verifier.IssueToken("uid-new", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	subject, err := verifier.Subject(unlinked)
	if err != nil || subject != "uid-new" {
		t.Errorf("Expected subject uid-new, got %q, %v", subject, err)
	}
}

func TestVerifyRejects(t *testing.T) {
	verifier := newTestVerifier(t)
	ctx := context.Background()

	expired, _ := verifier.IssueToken("uid-receiver", -time.Minute)
	unknown, _ := verifier.IssueToken("uid-ghost", time.Hour)
	badRole, _ := verifier.IssueToken("uid-bad-role", time.Hour)
	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "uid-receiver", Issuer: "donneur", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "uid-receiver", Issuer: "elsewhere", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name     string
		token    string
		expected error
	}{
		{"garbage", "not.a.token", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong key", wrongKey, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrInvalidToken},
		{"unknown user", unknown, ErrUnknownUser},
		{"unknown role", badRole, ErrUnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(ctx, tt.token)
			if !errors.Is(err, tt.expected) || !errors.Is(err, apperrors.Unauthorized) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(models.AuthConfig{}, &mockUsers{}); err == nil {
		t.Error("Expected error for missing secret")
	}
}
