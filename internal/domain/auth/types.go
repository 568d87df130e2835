package auth

// Package auth contains domain-level types for the console session and its bearer token.
// It is pure and free of framework/adapter concerns.

import "time"

// RefreshBuffer is the minimum remaining validity a token handed to callers must have.
const RefreshBuffer = 30 * time.Second

// GuardState is the render state of the access guard for one session.
type GuardState string

const (
	StateUninitialized   GuardState = "uninitialized"
	StateAuthenticated   GuardState = "authenticated"
	StateUnauthenticated GuardState = "unauthenticated"
)

// Profile is the user profile loaded from the identity provider after login.
type Profile struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// DisplayName returns "First Last", falling back to the username or email.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	case p.Username != "":
		return p.Username
	default:
		return p.Email
	}
}

// Token is the bearer credential set issued by the identity provider.
// AccessToken is what the backend sees; the rest stays server-side.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// IsZero reports whether the token carries no access token.
func (t Token) IsZero() bool { return t.AccessToken == "" }

// ExpiresWithin reports whether the token expires less than d after now.
// A token with no known expiry never expires by this rule.
func (t Token) ExpiresWithin(d time.Duration, now time.Time) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return t.Expiry.Sub(now) < d
}

// CanRefresh reports whether a refresh grant can be attempted.
func (t Token) CanRefresh() bool { return t.RefreshToken != "" }

// Snapshot is an immutable copy of a session's observable state.
type Snapshot struct {
	ID            string     `json:"id"`
	Initialized   bool       `json:"initialized"`
	Authenticated bool       `json:"authenticated"`
	Profile       *Profile   `json:"profile,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at,omitzero"`
	State         GuardState `json:"state"`
}

// StateOf derives the guard state from the two session flags.
func StateOf(initialized, authenticated bool) GuardState {
	switch {
	case !initialized:
		return StateUninitialized
	case authenticated:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}
