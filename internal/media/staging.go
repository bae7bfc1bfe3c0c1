package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Stager writes incoming uploads into the staging directory.
type Stager struct {
	dir string
	now func() time.Time
}

func NewStager(dir string) (*Stager, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	return &Stager{dir: dir, now: time.Now}, nil
}

func (s *Stager) Dir() string {
	return s.dir
}

const maxStageAttempts = 100

// Stage copies src to <dir>/item-<field>-<unix millis>.<mime subtype>. When
// the name is taken the timestamp is bumped until a free one is found.
func (s *Stager) Stage(src io.Reader, fieldName, originalName, mimeType string) (Artifact, error) {
	f, path, err := s.create(fieldName, mimeSubtype(mimeType))
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	n, err := io.Copy(f, src)
	if err != nil {
		os.Remove(path)
		return Artifact{}, fmt.Errorf("failed to write staging file: %w", err)
	}

	return Artifact{
		FieldName:    fieldName,
		OriginalName: originalName,
		MimeType:     mimeType,
		StagingPath:  path,
		Size:         n,
	}, nil
}

// mimeSubtype turns "image/svg+xml; charset=x" into "svg+xml".
func mimeSubtype(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)
	if i := strings.IndexByte(mimeType, '/'); i >= 0 {
		mimeType = mimeType[i+1:]
	}
	// The subtype comes from the client and ends up in a file name.
	ext := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '+', r == '-':
			return r
		case r == '.':
			return '.'
		default:
			return '_'
		}
	}, mimeType)
	ext = strings.Trim(ext, ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

func (s *Stager) create(fieldName, ext string) (*os.File, string, error) {
	ms := s.now().UnixMilli()
	for i := 0; i < maxStageAttempts; i++ {
		path := filepath.Join(s.dir, fmt.Sprintf("item-%s-%d.%s", fieldName, ms+int64(i), ext))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("failed to create staging file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("failed to create staging file: no free name after %d attempts", maxStageAttempts)
}
