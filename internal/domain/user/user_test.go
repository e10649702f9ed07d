package user

import "testing"

func TestValidateEmail(t *testing.T) {
	ok := []string{"alice@example.com", "a.b+tag@sub.host.io"}
	for _, v := range ok {
		if err := ValidateEmail(v); err != nil {
			t.Fatalf("expected valid email %q: %v", v, err)
		}
	}
	bad := []string{"", "alice", "alice@", "@example.com", "a b@example.com", "alice@host"}
	for _, v := range bad {
		if err := ValidateEmail(v); err == nil {
			t.Fatalf("expected invalid email %q", v)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "correct-horse-battery") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
}
