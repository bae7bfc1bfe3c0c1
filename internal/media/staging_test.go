package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStager_Stage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewStager(dir)
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	a, err := s.Stage(strings.NewReader("hello"), "file", "notes.txt", "text/plain; charset=utf-8")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "item-file-1700000000123.plain"), a.StagingPath)
	assert.Equal(t, int64(5), a.Size)
	assert.Equal(t, "notes.txt", a.OriginalName)
	assert.Equal(t, "text/plain; charset=utf-8", a.MimeType)

	data, err := os.ReadFile(a.StagingPath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestStager_NameCollision(t *testing.T) {
	s, err := NewStager(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	first, err := s.Stage(strings.NewReader("a"), "file", "a.pdf", "application/pdf")
	require.NoError(t, err)
	second, err := s.Stage(strings.NewReader("b"), "file", "b.pdf", "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "item-file-1700000000000.pdf", filepath.Base(first.StagingPath))
	assert.Equal(t, "item-file-1700000000001.pdf", filepath.Base(second.StagingPath))
}

func TestMimeSubtype(t *testing.T) {
	assert.Equal(t, "png", mimeSubtype("image/png"))
	assert.Equal(t, "svg+xml", mimeSubtype("image/svg+xml"))
	assert.Equal(t, "bin", mimeSubtype(""))
	assert.Equal(t, "vnd.ms-excel", mimeSubtype("application/vnd.ms-excel"))
	assert.Equal(t, "_.._etc", mimeSubtype("image/../../etc"))
}
