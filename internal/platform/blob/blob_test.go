package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	t.Parallel()

	valid := []string{"exports/u/1.pdf", "a.txt", "a/b/c"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey(k), k)
	}

	invalid := []string{"", "/etc/passwd", "../x", "a/../../x", "a//b", "a/./b", `a\b`, "a/"}
	for _, k := range invalid {
		assert.ErrorIs(t, ValidateKey(k), ErrInvalidKey, k)
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	n, err := s.Put(ctx, "exports/owner/file.txt", strings.NewReader("一、1 + 1 = ?"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, int64(len("一、1 + 1 = ?")), n)

	rc, err := s.Open(ctx, "exports/owner/file.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "一、1 + 1 = ?", string(data))

	_, err = s.Put(ctx, "exports/owner/file.txt", strings.NewReader("v2"), "text/plain")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "exports/owner/file.txt"))
	assert.ErrorIs(t, s.Delete(ctx, "exports/owner/file.txt"), ErrNotFound)
	_, err = s.Open(ctx, "exports/owner/file.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Put(ctx, "../escape", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Put(cancelled, "exports/owner/late.txt", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "blobs")
	s, err := NewLocalStore(root, nil)
	require.NoError(t, err)

	exerciseStore(t, s)

	entries, err := os.ReadDir(filepath.Join(root, "exports", "owner"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temporary files are left behind")

	_, err = NewLocalStore("", nil)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.Zero(t, s.Len())

	_, err := s.Put(context.Background(), "k", strings.NewReader("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", s.ContentType("k"))
}
