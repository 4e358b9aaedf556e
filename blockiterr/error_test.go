package blockiterr

import "testing"

func TestFactoryDefaultMessages(t *testing.T) {
	cases := []struct {
		err  *Error
		code Code
	}{
		{ChainEmpty(""), CodeChainEmpty},
		{InvalidBlock(""), CodeInvalidBlock},
		{DuplicateTx(""), CodeDuplicateTx},
		{Unauthorized(""), CodeUnauthorized},
		{HashFailed(""), CodeHashFailed},
		{NotInitialized(""), CodeNotInitialized},
		{SigningFailed(""), CodeSigningFailed},
		{VerificationFailed(""), CodeVerificationFailed},
		{InvalidTransaction(""), CodeInvalidTransaction},
		{CapabilityMissing(""), CodeCapabilityMissing},
		{MerkleEmpty(""), CodeMerkleEmpty},
		{SerializationFailed(""), CodeSerializationFailed},
		{DeserializationFailed(""), CodeDeserializationFailed},
	}
	for _, c := range cases {
		if c.err.Code != c.code {
			t.Errorf("got code %d, want %d", c.err.Code, c.code)
		}
		if c.err.Message == "" {
			t.Errorf("code %d: expected default message", c.code)
		}
	}
}

func TestCustomMessageOverridesDefault(t *testing.T) {
	err := DuplicateTx("validator bob already signed")
	if err.Message != "validator bob already signed" {
		t.Errorf("got %q, want custom message", err.Message)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(ChainEmpty("")); got != CodeChainEmpty {
		t.Errorf("got %d, want %d", got, CodeChainEmpty)
	}
	if got := CodeOf(nil); got != 0 {
		t.Errorf("got %d, want 0 for nil error", got)
	}
	if got := CodeOf(errPlain("x")); got != 0 {
		t.Errorf("got %d, want 0 for non-blockiterr error", got)
	}
}

func TestIs(t *testing.T) {
	err := Unauthorized("")
	if !Is(err, CodeUnauthorized) {
		t.Errorf("expected Is to match CodeUnauthorized")
	}
	if Is(err, CodeDuplicateTx) {
		t.Errorf("expected Is to not match CodeDuplicateTx")
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
