package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}

func TestPutObjectWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "pdfs/abc123.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(dir, "pdfs", "abc123.pdf"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "pdfs", "abc123.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestPutObjectRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "../escape.pdf", "", strings.NewReader("x"))
	require.Error(t, err)
}
