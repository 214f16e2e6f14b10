package oaep

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// jwk holds the RSA private key members of a JSON Web Key (RFC 7518 section 6.3).
type jwk struct {
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
	D   string `json:"d"`
	P   string `json:"p"`
	Q   string `json:"q"`
}

// PrivateKeyFromJWK builds an RSA private key from a JSON Web Key. The
// CRT values are recomputed from the primes and the key is validated.
func PrivateKeyFromJWK(data []byte) (*rsa.PrivateKey, error) {
	var k jwk
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse jwk: %w", err)
	}
	if k.Kty != "" && k.Kty != "RSA" {
		return nil, fmt.Errorf("jwk kty %q is not RSA", k.Kty)
	}

	fields := []struct {
		name  string
		value string
	}{{"n", k.N}, {"e", k.E}, {"d", k.D}, {"p", k.P}, {"q", k.Q}}
	ints := make([]*big.Int, len(fields))
	for i, f := range fields {
		v, err := decodeBigInt(f.value)
		if err != nil {
			return nil, fmt.Errorf("jwk member %q: %w", f.name, err)
		}
		ints[i] = v
	}
	if !ints[1].IsInt64() || ints[1].Int64() > 1<<31-1 {
		return nil, errors.New("jwk exponent out of range")
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: ints[0], E: int(ints[1].Int64())},
		D:         ints[2],
		Primes:    []*big.Int{ints[3], ints[4]},
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid jwk private key: %w", err)
	}
	key.Precompute()
	return key, nil
}

func decodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing")
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
