// Package identity implements Key, the identity and signing primitive
// shared by transactions, blocks, and validators.
package identity

import (
	"crypto/ed25519"
	"encoding/binary"
	"time"

	"github.com/robolibs/blockit-sub001/blockiterr"
	"github.com/robolibs/blockit-sub001/crypto"
)

// Key pairs an Ed25519 public key with optional private material and an
// optional expiry. A Key is immutable except for its expiry field, which
// callers update explicitly via SetExpiry/ClearExpiry.
type Key struct {
	public    ed25519.PublicKey
	private   ed25519.PrivateKey // nil when this Key holds only a public half
	hasExpiry bool
	expiryMs  int64
}

// Generate creates a fresh Key with both halves of a new Ed25519 keypair.
func Generate() (Key, error) {
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return Key{}, err
	}
	return Key{public: pub, private: priv}, nil
}

// GenerateWithExpiry creates a fresh Key that expires at expiryMs
// (Unix milliseconds).
func GenerateWithExpiry(expiryMs int64) (Key, error) {
	k, err := Generate()
	if err != nil {
		return Key{}, err
	}
	k.SetExpiry(expiryMs)
	return k, nil
}

// FromKeyPair builds a Key from an existing public/private pair.
func FromKeyPair(pub ed25519.PublicKey, priv ed25519.PrivateKey) (Key, error) {
	if len(pub) != crypto.PublicKeySize {
		return Key{}, blockiterr.DeserializationFailed("public key is malformed")
	}
	if len(priv) != 0 && len(priv) != crypto.PrivateKeySize {
		return Key{}, blockiterr.DeserializationFailed("private key is malformed")
	}
	k := Key{public: append(ed25519.PublicKey(nil), pub...)}
	if len(priv) == crypto.PrivateKeySize {
		k.private = append(ed25519.PrivateKey(nil), priv...)
	}
	return k, nil
}

// FromPublic builds a public-only Key (HasPrivate() == false).
func FromPublic(pub ed25519.PublicKey) (Key, error) {
	if len(pub) != crypto.PublicKeySize {
		return Key{}, blockiterr.DeserializationFailed("public key is malformed")
	}
	return Key{public: append(ed25519.PublicKey(nil), pub...)}, nil
}

// ID is the lowercase hex SHA-256 digest of the public key.
func (k Key) ID() string {
	digest := crypto.SHA256(k.public)
	return crypto.ToHex(digest[:])
}

// Public returns the public key bytes.
func (k Key) Public() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), k.public...)
}

// HasPrivate reports whether this Key can sign.
func (k Key) HasPrivate() bool {
	return len(k.private) == crypto.PrivateKeySize
}

// Sign signs data with this Key's private material.
func (k Key) Sign(data []byte) ([]byte, error) {
	if !k.HasPrivate() {
		return nil, blockiterr.SigningFailed("key has no private material")
	}
	return crypto.Sign(k.private, data)
}

// Verify checks sig over data against this Key's public half.
func (k Key) Verify(data, sig []byte) (bool, error) {
	return crypto.Verify(k.public, data, sig)
}

// SetExpiry sets an absolute expiry in Unix milliseconds.
func (k *Key) SetExpiry(expiryMs int64) {
	k.hasExpiry = true
	k.expiryMs = expiryMs
}

// ClearExpiry removes any expiry; the Key never expires.
func (k *Key) ClearExpiry() {
	k.hasExpiry = false
	k.expiryMs = 0
}

// IsExpired reports whether the Key has an expiry that has passed.
func (k Key) IsExpired() bool {
	if !k.hasExpiry {
		return false
	}
	return time.Now().UnixMilli() >= k.expiryMs
}

// IsValid reports whether the Key is well-formed and not expired.
func (k Key) IsValid() bool {
	return len(k.public) == crypto.PublicKeySize && !k.IsExpired()
}

// Serialize encodes the Key as:
// pub(32) | priv_len(4) | priv(0 or 64) | has_expiry(1) | expiry_ms(8 if present)
// all integers little-endian.
func (k Key) Serialize() []byte {
	privLen := uint32(len(k.private))
	size := crypto.PublicKeySize + 4 + int(privLen) + 1
	if k.hasExpiry {
		size += 8
	}
	buf := make([]byte, size)
	copy(buf, k.public)
	off := crypto.PublicKeySize
	binary.LittleEndian.PutUint32(buf[off:], privLen)
	off += 4
	copy(buf[off:], k.private)
	off += int(privLen)
	if k.hasExpiry {
		buf[off] = 1
	} else {
		buf[off] = 0
	}
	off++
	if k.hasExpiry {
		binary.LittleEndian.PutUint64(buf[off:], uint64(k.expiryMs))
	}
	return buf
}

// Deserialize parses the wire format produced by Serialize.
func Deserialize(data []byte) (Key, error) {
	if len(data) < crypto.PublicKeySize+4+1 {
		return Key{}, blockiterr.DeserializationFailed("key data too short")
	}
	off := 0
	pub := append(ed25519.PublicKey(nil), data[off:off+crypto.PublicKeySize]...)
	off += crypto.PublicKeySize

	privLen := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if privLen != 0 && privLen != crypto.PrivateKeySize {
		return Key{}, blockiterr.DeserializationFailed("invalid private key length")
	}
	if len(data) < off+int(privLen)+1 {
		return Key{}, blockiterr.DeserializationFailed("key data truncated")
	}
	var priv ed25519.PrivateKey
	if privLen > 0 {
		priv = append(ed25519.PrivateKey(nil), data[off:off+int(privLen)]...)
	}
	off += int(privLen)

	hasExpiry := data[off] != 0
	off++

	k := Key{public: pub, private: priv}
	if hasExpiry {
		if len(data) < off+8 {
			return Key{}, blockiterr.DeserializationFailed("key data truncated at expiry")
		}
		expiryMs := int64(binary.LittleEndian.Uint64(data[off:]))
		k.hasExpiry = true
		k.expiryMs = expiryMs
	}
	return k, nil
}
