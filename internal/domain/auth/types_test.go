package auth

import (
	"testing"
	"time"
)

func TestToken_ExpiresWithin(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{name: "plenty of validity", expiry: now.Add(5 * time.Minute), want: false},
		{name: "exactly at buffer", expiry: now.Add(RefreshBuffer), want: false},
		{name: "inside buffer", expiry: now.Add(29 * time.Second), want: true},
		{name: "already expired", expiry: now.Add(-time.Second), want: true},
		{name: "unknown expiry", expiry: time.Time{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := Token{AccessToken: "a", Expiry: tt.expiry}
			if got := tok.ExpiresWithin(RefreshBuffer, now); got != tt.want {
				t.Fatalf("ExpiresWithin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateOf(t *testing.T) {
	if StateOf(false, true) != StateUninitialized {
		t.Fatalf("uninitialized session must stay uninitialized regardless of auth flag")
	}
	if StateOf(true, true) != StateAuthenticated {
		t.Fatalf("expected authenticated")
	}
	if StateOf(true, false) != StateUnauthenticated {
		t.Fatalf("expected unauthenticated")
	}
}

func TestProfile_DisplayName(t *testing.T) {
	if got := (Profile{FirstName: "Ada", LastName: "Lovelace"}).DisplayName(); got != "Ada Lovelace" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := (Profile{Email: "ada@example.com"}).DisplayName(); got != "ada@example.com" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
