// Package auth describes who is making a request and what they may do.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated principal carried by an access token.
type Identity struct {
	UserID uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// Session is the resolved authentication state of a request. The zero value
// is an unresolved session: Loading is true only until resolution.
type Session struct {
	User    *Identity `json:"user"`
	IsAdmin bool      `json:"is_admin"`
	Loading bool      `json:"loading"`
}

// Anonymous is a resolved session without a user.
func Anonymous() Session {
	return Session{}
}

// NewSession resolves a session for id using policy to derive IsAdmin.
func NewSession(id Identity, policy *Policy) Session {
	return Session{
		User:    &id,
		IsAdmin: policy.IsAdmin(id.Role),
	}
}

// Authenticated reports whether the session has a user.
func (s Session) Authenticated() bool {
	return s.User != nil
}

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx. Contexts that never passed
// through session resolution report Loading.
func SessionFrom(ctx context.Context) Session {
	s, ok := ctx.Value(sessionKey{}).(Session)
	if !ok {
		return Session{Loading: true}
	}
	return s
}

// IdentityFrom returns the authenticated identity in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	s := SessionFrom(ctx)
	if s.User == nil {
		return Identity{}, false
	}
	return *s.User, true
}
