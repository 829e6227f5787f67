// Package session tracks who is signed in and what they are allowed to see.
//
// The Store is the only writer of the current Session. It follows the identity
// provider's change stream, resolves the role of every signed in user against
// the provider's profile store and re-publishes each resulting snapshot.
package session

import (
	"context"
	"strings"
)

type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

// ParseRole maps a stored profile role. Anything other than admin is a plain user.
func ParseRole(role string) Role {
	if strings.EqualFold(role, "admin") {
		return RoleAdmin
	}

	return RoleUser
}

type Status int

const (
	StatusInitializing Status = iota
	StatusReady
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}

	return "initializing"
}

type Session struct {
	// Identity is the provider's user id, empty when nobody is signed in
	Identity string
	Email    string
	Role     Role
	Status   Status

	// Err is set when the role of a signed in user could not be resolved
	Err error
}

func (s Session) IsReady() bool {
	return s.Status == StatusReady
}

// IsAuthenticated is false for sessions that are not ready yet.
func (s Session) IsAuthenticated() bool {
	return s.IsReady() && s.Role != RoleAnonymous
}

func (s Session) IsAdmin() bool {
	return s.IsReady() && s.Role == RoleAdmin
}

type Credentials struct {
	Email    string
	Password string
}

// Registration is what a new account is created from.
type Registration struct {
	Name     string
	Email    string
	Password string
}

type User struct {
	UID   string
	Email string
}

type UserProfile struct {
	UID   string
	Name  string
	Email string
	Role  Role
}

// AuthChange is one notification of the provider's change stream. A nil User
// means the user signed out or the credentials expired.
type AuthChange struct {
	User *User
}

// IdentityProvider is the external authority for credentials and profiles.
//
// Changes must deliver the current state once when first read and then one
// notification per sign in or sign out. The Store is the channel's only
// consumer.
type IdentityProvider interface {
	Changes() <-chan AuthChange
	SignIn(ctx context.Context, email string, password string) (User, error)
	CreateUser(ctx context.Context, email string, password string, name string) (User, error)
	GetUserProfile(ctx context.Context, uid string) (UserProfile, error)
	SignOut(ctx context.Context) error
}
