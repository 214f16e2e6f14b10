package keyrelease

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/crypto/oaep"
	"github.com/JakeFAU/kafka-viewer/internal/crypto/oaep/oaeptest"
)

func testConfig(endpoint string) config.KeyReleaseConfig {
	return config.KeyReleaseConfig{
		Endpoint:    endpoint,
		MAAEndpoint: "sharedeus2.eus2.attest.azure.net",
		AKVEndpoint: "vault.vault.azure.net",
		KID:         "kafka-encryption-demo",
		Timeout:     5 * time.Second,
	}
}

func TestReleaseReturnsKey(t *testing.T) {
	t.Parallel()

	key := oaeptest.NewKey(t)
	var got releaseRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/key/release", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(releaseResponse{Key: oaeptest.JWK(t, key)})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL+"/key/release"), WithLogger(zap.NewNop()))
	released, err := c.Release(context.Background())
	require.NoError(t, err)
	assert.True(t, key.Equal(released))
	assert.Equal(t, releaseRequest{
		MAAEndpoint: "sharedeus2.eus2.attest.azure.net",
		AKVEndpoint: "vault.vault.azure.net",
		KID:         "kafka-encryption-demo",
	}, got)

	ciphertext, err := oaep.NewEncrypter(&key.PublicKey).Encrypt("hello")
	require.NoError(t, err)
	plaintext, err := oaep.NewDecrypter(released).Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hello", plaintext)
}

func TestReleaseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"attestation refused", http.StatusForbidden, "attestation failed", "status 403: attestation failed"},
		{"status above multi-status", http.StatusAlreadyReported, `{"key":""}`, "status 208"},
		{"not json", http.StatusOK, "<html>", "decode key release response"},
		{"empty key", http.StatusOK, `{"key":""}`, ErrEmptyKey.Error()},
		{"bad jwk", http.StatusOK, `{"key":"{\"kty\":\"oct\"}"}`, "not RSA"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(testConfig(srv.URL)).Release(context.Background())
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReleaseUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := New(testConfig(endpoint), WithHTTPClient(&http.Client{Timeout: time.Second})).Release(context.Background())
	require.ErrorContains(t, err, "call key release endpoint")
}
