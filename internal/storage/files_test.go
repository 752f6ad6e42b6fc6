package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	fs, err := NewFileStore(dir, "https://relay.example/")
	require.NoError(t, err)

	f, err := fs.Save("Holiday.JPG", []byte("jpegdata"))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(f.Name, ".jpg"))
	_, err = uuid.Parse(strings.TrimSuffix(f.Name, ".jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "https://relay.example/uploads/"+f.Name, f.URL)
	assert.EqualValues(t, 8, f.Size)

	data, err := os.ReadFile(filepath.Join(dir, f.Name))
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))

	_, ok, err := fs.Exists(f.Name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStoreSaveWithoutExtension(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	f, err := fs.Save("README", []byte("x"))
	require.NoError(t, err)
	_, err = uuid.Parse(f.Name)
	assert.NoError(t, err)
}

func TestFileStoreExists(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	_, ok, err := fs.Exists("missing.png")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, bad := range []string{"", ".", "..", "../etc/passwd", "a/b.png"} {
		_, _, err := fs.Exists(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".pdf", ExtensionFor("application/pdf"))
	assert.Equal(t, "", ExtensionFor("application/x-made-up"))
	assert.Equal(t, "", ExtensionFor(""))
}
