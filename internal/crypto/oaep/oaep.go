// Package oaep encrypts and decrypts message values with RSA-OAEP over SHA-256.
// Ciphertext travels as standard base64 text so it fits in a broker message value.
package oaep

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNotRSA is returned when a PEM block holds a key of another algorithm.
var ErrNotRSA = errors.New("public key is not RSA")

// ParsePublicKeyPEM decodes the first PEM block in data as an RSA public key.
// PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") blocks are accepted.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found in public key")
	}
	if block.Type == "RSA PUBLIC KEY" {
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid public key: %w", err)
		}
		return pub, nil
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return pub, nil
}

// LoadPublicKey returns the key in pemText, or the key stored at path when
// pemText is empty. It returns nil and no error when both are empty.
func LoadPublicKey(pemText, path string) (*rsa.PublicKey, error) {
	data := []byte(pemText)
	if len(data) == 0 {
		if path == "" {
			return nil, nil
		}
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read public key file %s: %w", path, err)
		}
	}
	return ParsePublicKeyPEM(data)
}

// Encrypter seals plaintext for the holder of the matching private key.
type Encrypter struct {
	pub *rsa.PublicKey
}

// NewEncrypter returns an Encrypter for pub.
func NewEncrypter(pub *rsa.PublicKey) *Encrypter {
	return &Encrypter{pub: pub}
}

// Encrypt returns the base64 ciphertext of plaintext.
func (e *Encrypter) Encrypt(plaintext string) (string, error) {
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, e.pub, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt with public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypter opens values produced by an Encrypter.
type Decrypter struct {
	key *rsa.PrivateKey
}

// NewDecrypter returns a Decrypter for key.
func NewDecrypter(key *rsa.PrivateKey) *Decrypter {
	return &Decrypter{key: key}
}

// Decrypt decodes value from base64 and decrypts it.
func (d *Decrypter) Decrypt(value string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode message value: %w", err)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, d.key, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt message: %w", err)
	}
	return string(plaintext), nil
}
