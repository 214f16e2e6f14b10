package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", h.Hash([]byte("hello world")))
	require.Equal(t, h.Hash([]byte("a")), h.Hash([]byte("a")))
	require.NotEqual(t, h.Hash([]byte("a")), h.Hash([]byte("b")))
}

func TestHasherETag(t *testing.T) {
	t.Parallel()

	require.Equal(t, `"b94d27b9934d3e08"`, New().ETag([]byte("hello world")))
}
