package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanLocatorConfinesToBaseDir(t *testing.T) {
	cleaned, err := CleanLocator("sub-1/essay.pdf")
	require.NoError(t, err)
	assert.Equal(t, "sub-1/essay.pdf", cleaned)

	cleaned, err = CleanLocator("sub-1/./essay.pdf")
	require.NoError(t, err)
	assert.Equal(t, "sub-1/essay.pdf", cleaned)

	for _, locator := range []string{
		"",
		"/etc/passwd",
		"../outside.txt",
		"..",
		"sub-1/../../outside.txt",
		"dir\\evil",
	} {
		_, err := CleanLocator(locator)
		assert.ErrorIs(t, err, ErrUnsafeLocator, "locator %q must be refused", locator)
	}
}

func TestAttachmentStorePathRejectsEscapes(t *testing.T) {
	store, err := NewAttachmentStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Path("sub-1/essay.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.baseDir, "sub-1", "essay.pdf"), path)

	_, err = store.Path("/etc/passwd")
	assert.ErrorIs(t, err, ErrUnsafeLocator)
	_, err = store.Path("../../etc/passwd")
	assert.ErrorIs(t, err, ErrUnsafeLocator)
}

func TestAttachmentStoreSaveOpenRelease(t *testing.T) {
	store, err := NewAttachmentStore(t.TempDir())
	require.NoError(t, err)

	locator, err := store.Save("sub-1/answer.txt", []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "sub-1/answer.txt", locator)

	file, err := store.Open(locator)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, err = store.Save("../escape.txt", []byte("nope"))
	assert.ErrorIs(t, err, ErrUnsafeLocator)

	require.NoError(t, store.Release([]string{locator}))
	_, err = store.Open(locator)
	assert.Error(t, err)
}
