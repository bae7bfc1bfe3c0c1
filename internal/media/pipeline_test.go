package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharedrive/internal/logging"
)

type fakeImages struct {
	calls atomic.Int32
	err   error
}

func (f *fakeImages) Transform(_ context.Context, path string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return path, f.err
	}
	return DerivedImagePath(path), nil
}

type fakeText struct {
	calls int
	err   error
}

func (f *fakeText) Correct(context.Context, string) error {
	f.calls++
	return f.err
}

func TestPipeline_Dispatch(t *testing.T) {
	tests := []struct {
		name       string
		mime       string
		imageErr   error
		wantPath   string
		wantImages int32
		wantText   int
	}{
		{name: "image keeps staging path", mime: "image/png", wantPath: "uploads/a.png", wantImages: 1},
		{name: "failed image still keeps path", mime: "image/jpeg", imageErr: errors.New("decode"), wantPath: "uploads/a.png", wantImages: 1},
		{name: "text gets annotation", mime: "text/plain", wantPath: "uploads/a.png.txt", wantText: 1},
		{name: "other text passes through", mime: "text/csv", wantPath: "uploads/a.png"},
		{name: "binary passes through", mime: "application/pdf", wantPath: "uploads/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &fakeImages{err: tt.imageErr}
			text := &fakeText{}
			p := NewPipeline(images, text, logging.Discard())

			got, err := p.Process(context.Background(), Artifact{MimeType: tt.mime, StagingPath: "uploads/a.png"})
			p.Wait()

			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, got)
			assert.Equal(t, tt.wantImages, images.calls.Load())
			assert.Equal(t, tt.wantText, text.calls)
		})
	}
}

func TestPipeline_TextFailureKeepsAnnotation(t *testing.T) {
	text := &fakeText{err: errors.New("boom")}
	p := NewPipeline(nil, text, logging.Discard())

	got, err := p.Process(context.Background(), Artifact{MimeType: "text/plain", StagingPath: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x.txt", got)
	assert.Equal(t, 1, text.calls)
}

func TestPipeline_UnreadableTextFile(t *testing.T) {
	p := NewPipeline(nil, NewSpellCorrector(NewWordList([]string{"hello"}, 2), 5, logging.Discard()), logging.Discard())
	missing := filepath.Join(t.TempDir(), "item-file-1.plain")

	got, err := p.Process(context.Background(), Artifact{MimeType: "text/plain", StagingPath: missing})
	require.NoError(t, err)
	assert.Equal(t, missing+".txt", got)
}

func TestPipeline_WithoutTransformers(t *testing.T) {
	p := NewPipeline(nil, nil, logging.Discard())

	tests := []struct {
		mime string
		want string
	}{
		{mime: "text/plain", want: "uploads/a.plain.txt"},
		{mime: "image/png", want: "uploads/a.plain"},
		{mime: "application/pdf", want: "uploads/a.plain"},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got, err := p.Process(context.Background(), Artifact{MimeType: tt.mime, StagingPath: "uploads/a.plain"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	p.Wait()
}

func TestPipeline_RealTransforms(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "item-file-1.png")
	writePNG(t, imgPath, 400, 400)
	txtPath := filepath.Join(dir, "item-file-2.plain")
	require.NoError(t, os.WriteFile(txtPath, []byte("helo world"), 0o644))

	tr, err := NewImagingTransformer(ImageOptions{Width: 350, BlurSigma: 1, JPEGQuality: 80})
	require.NoError(t, err)
	wl, err := LoadDictionary("", 2)
	require.NoError(t, err)
	p := NewPipeline(tr, NewSpellCorrector(wl, 5, logging.Discard()), logging.Discard())

	got, err := p.Process(context.Background(), Artifact{MimeType: "image/png", StagingPath: imgPath})
	require.NoError(t, err)
	assert.Equal(t, imgPath, got)

	got, err = p.Process(context.Background(), Artifact{MimeType: "text/plain", StagingPath: txtPath})
	require.NoError(t, err)
	assert.Equal(t, txtPath+".txt", got)
	_, err = os.Stat(got)
	assert.True(t, os.IsNotExist(err), "annotated path is not created on disk")

	p.Wait()
	_, err = os.Stat(filepath.Join(dir, "item-file-1-img.jpeg"))
	assert.NoError(t, err)
}
