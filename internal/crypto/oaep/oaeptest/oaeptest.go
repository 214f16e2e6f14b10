// Package oaeptest provides RSA key fixtures for tests that exercise message
// encryption and key release.
package oaeptest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewKey generates a 2048-bit RSA key.
func NewKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// PublicPEM encodes the public half of key as a PKIX "PUBLIC KEY" block.
func PublicPEM(t testing.TB, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// JWK encodes key as an RSA private JSON Web Key.
func JWK(t testing.TB, key *rsa.PrivateKey) string {
	t.Helper()
	require.Len(t, key.Primes, 2)
	enc := func(v *big.Int) string { return base64.RawURLEncoding.EncodeToString(v.Bytes()) }
	data, err := json.Marshal(map[string]string{
		"kty": "RSA",
		"n":   enc(key.N),
		"e":   enc(big.NewInt(int64(key.E))),
		"d":   enc(key.D),
		"p":   enc(key.Primes[0]),
		"q":   enc(key.Primes[1]),
	})
	require.NoError(t, err)
	return string(data)
}
