package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewSessions("secret", []string{"alice"}, time.Hour)

	tok, err := s.Token(Principal{Login: "alice", Name: "Alice", AvatarURL: "https://example.com/a.png"})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	p, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Login != "alice" || p.Name != "Alice" || p.AvatarURL != "https://example.com/a.png" {
		t.Errorf("principal = %+v", p)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewSessions("secret-a", []string{"alice"}, time.Hour)
	verifier := NewSessions("secret-b", []string{"alice"}, time.Hour)

	tok, err := issuer.Token(Principal{Login: "alice"})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := verifier.Verify(tok); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Verify with wrong secret = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsNonAllowlisted(t *testing.T) {
	s := NewSessions("secret", []string{"alice"}, time.Hour)

	tok, err := s.Token(Principal{Login: "mallory"})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := s.Verify(tok); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Verify for non-allowlisted login = %v, want ErrUnauthorized", err)
	}
}

func TestAllowlistIsCaseInsensitive(t *testing.T) {
	s := NewSessions("secret", []string{" Alice ", "BOB"}, time.Hour)

	for _, login := range []string{"alice", "ALICE", "bob", "Bob"} {
		if !s.Allowed(login) {
			t.Errorf("Allowed(%q) = false, want true", login)
		}
	}
	if s.Allowed("carol") {
		t.Error("Allowed(carol) = true, want false")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSessions("secret", []string{"alice"}, time.Hour)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := s.Verify(tok); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Verify(%q) = %v, want ErrUnauthorized", tok, err)
		}
	}
}
