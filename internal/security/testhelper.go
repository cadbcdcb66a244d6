package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"
)

// NewTestKeyPair generates an ephemeral ECDSA P-256 key pair. For unit tests only.
func NewTestKeyPair() (KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate test key: %w", err)
	}
	return KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// NewTestTokenProvider returns a TokenProvider backed by two freshly generated
// ECDSA key pairs, so access and refresh tokens never cross-verify. For unit
// tests only.
func NewTestTokenProvider(accessTTL, refreshTTL time.Duration) (*TokenProvider, error) {
	accessKeys, err := NewTestKeyPair()
	if err != nil {
		return nil, err
	}
	refreshKeys, err := NewTestKeyPair()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(accessKeys, refreshKeys, "test-issuer", "test-audience", accessTTL, refreshTTL), nil
}
