// Package crypto implements the Ed25519 and SHA-256 primitives that back
// this module's key and signature types.
package crypto

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/robolibs/blockit-sub001/blockiterr"
)

const (
	// PublicKeySize is the size in bytes of an Ed25519 public key.
	PublicKeySize = ed25519.PublicKeySize
	// PrivateKeySize is the size in bytes of an Ed25519 private key
	// (seed concatenated with public key, per crypto/ed25519).
	PrivateKeySize = ed25519.PrivateKeySize
	// SignatureSize is the size in bytes of an Ed25519 signature.
	SignatureSize = ed25519.SignatureSize
)

// GenerateKeyPair creates a fresh Ed25519 keypair.
func GenerateKeyPair() (pub ed25519.PublicKey, priv ed25519.PrivateKey, err error) {
	pub, priv, err = ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		return nil, nil, blockiterr.SigningFailed("key generation failed: " + err.Error())
	}
	return pub, priv, nil
}

// Sign signs data with priv. Fails if priv is empty or the wrong size.
func Sign(priv ed25519.PrivateKey, data []byte) ([]byte, error) {
	if len(priv) != PrivateKeySize {
		return nil, blockiterr.SigningFailed("private key material is empty or malformed")
	}
	return ed25519.Sign(priv, data), nil
}

// Verify checks sig over data against pub. Malformed inputs (wrong-size
// key or signature) return an error; a well-formed but non-matching
// signature returns (false, nil).
func Verify(pub ed25519.PublicKey, data, sig []byte) (bool, error) {
	if len(pub) != PublicKeySize {
		return false, blockiterr.VerificationFailed("public key is malformed")
	}
	if len(sig) != SignatureSize {
		return false, blockiterr.VerificationFailed("signature is malformed")
	}
	return ed25519.Verify(pub, data, sig), nil
}

// SHA256 hashes data and returns the 32-byte digest.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ToHex lowercase-hex-encodes data.
func ToHex(data []byte) string {
	return hex.EncodeToString(data)
}

// FromHex decodes a lowercase or uppercase hex string.
func FromHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, blockiterr.DeserializationFailed("invalid hex: " + err.Error())
	}
	return b, nil
}
