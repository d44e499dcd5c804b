package models

import "context"

type callerContextKey struct{}

// Role identifies which kind of account an authenticated caller owns.
type Role string

const (
	RoleReceiver     Role = "receiver"
	RoleOrganization Role = "organization"
	RoleSender       Role = "sender"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleReceiver, RoleOrganization, RoleSender:
		return true
	}
	return false
}

// Caller is the verified identity behind a request.
type Caller struct {
	UserId string
	Role   Role
}

// WithCaller attaches the verified caller to a context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFrom retrieves the verified caller from context.
func CallerFrom(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	return caller, ok
}
