package consensus

import (
	"testing"
	"time"

	"github.com/robolibs/blockit-sub001/identity"
)

func TestValidatorCanSign(t *testing.T) {
	key, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	v := NewValidator("alice", key, 10)
	if !v.CanSign() {
		t.Fatal("expected fresh active validator to be able to sign")
	}
	v.MarkOffline()
	if v.CanSign() {
		t.Fatal("expected offline validator to be unable to sign")
	}
}

func TestValidatorIsOnlineIndependentOfStatus(t *testing.T) {
	key, _ := identity.Generate()
	v := NewValidator("alice", key, 10)
	if !v.IsOnline(60_000) {
		t.Fatal("expected fresh validator to be online")
	}
	before := v.LastSeenMs()
	v.MarkOffline()
	if v.LastSeenMs() != before {
		t.Fatal("expected MarkOffline to not touch last-seen timestamp")
	}
	if !v.IsOnline(60_000) {
		t.Fatal("expected offline validator to still be considered online within timeout")
	}
}

func TestValidatorMarkOnlineUpdatesTimestampAndStatus(t *testing.T) {
	key, _ := identity.Generate()
	v := NewValidator("alice", key, 10)
	v.MarkOffline()
	before := v.LastSeenMs()
	time.Sleep(2 * time.Millisecond)
	v.MarkOnline()
	if v.Status() != StatusActive {
		t.Fatal("expected MarkOnline to transition back to active")
	}
	if v.LastSeenMs() <= before {
		t.Fatal("expected MarkOnline to refresh the last-seen timestamp")
	}
}

func TestValidatorRevokeIsTerminal(t *testing.T) {
	key, _ := identity.Generate()
	v := NewValidator("alice", key, 10)
	v.Revoke()
	v.MarkOnline()
	if v.Status() != StatusRevoked {
		t.Fatal("expected revoked validator to remain revoked")
	}
	if v.CanSign() {
		t.Fatal("expected revoked validator to be unable to sign")
	}
}

func TestValidatorSerializeDeserializeRoundTrip(t *testing.T) {
	key, _ := identity.Generate()
	v := NewValidator("alice", key, 42)
	data := v.Serialize()
	got, err := DeserializeValidator(data)
	if err != nil {
		t.Fatalf("DeserializeValidator: %v", err)
	}
	if got.ID() != v.ID() || got.ParticipantID() != v.ParticipantID() || got.Weight() != v.Weight() {
		t.Fatal("round trip did not preserve validator fields")
	}
	if got.Status() != v.Status() || got.LastSeenMs() != v.LastSeenMs() {
		t.Fatal("round trip did not preserve status/last-seen")
	}
}

func TestDeserializeValidatorTruncatedFails(t *testing.T) {
	if _, err := DeserializeValidator([]byte{1, 2}); err == nil {
		t.Fatal("expected error for truncated validator data")
	}
}
