package redis

import (
	"testing"
	"time"
)

func TestIdempotencyStore_KeyAndDefaultTTL(t *testing.T) {
	s := NewIdempotencyStore(nil, 0)
	if s.ttl != defaultIdempotencyTTL {
		t.Fatalf("expected default ttl %s, got %s", defaultIdempotencyTTL, s.ttl)
	}
	if got := s.key("u-1", "redeem_reward", "abc"); got != "ledger:idem:u-1:redeem_reward:abc" {
		t.Fatalf("unexpected key %q", got)
	}

	custom := NewIdempotencyStore(nil, time.Minute)
	if custom.ttl != time.Minute {
		t.Fatalf("expected custom ttl, got %s", custom.ttl)
	}
}

func TestUserLocker_KeyPerUser(t *testing.T) {
	l := NewUserLocker(nil)
	if l.key("a") == l.key("b") {
		t.Fatalf("expected distinct keys per user")
	}
	if got := l.key("u-1"); got != "ledger:lock:u-1" {
		t.Fatalf("unexpected key %q", got)
	}
}
