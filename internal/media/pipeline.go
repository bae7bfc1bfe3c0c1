package media

import (
	"context"
	"strings"
	"sync"

	"sharedrive/internal/logging"
)

// Artifact is an upload that has already been written to the staging area.
type Artifact struct {
	FieldName    string
	OriginalName string
	MimeType     string
	StagingPath  string
	Size         int64
}

type ImageTransformer interface {
	Transform(ctx context.Context, path string) (string, error)
}

type TextCorrector interface {
	Correct(ctx context.Context, path string) error
}

// Pipeline routes staged uploads to the transform matching their MIME type.
type Pipeline struct {
	images ImageTransformer
	text   TextCorrector
	logger logging.Logger
	wg     sync.WaitGroup
}

func NewPipeline(images ImageTransformer, text TextCorrector, logger logging.Logger) *Pipeline {
	return &Pipeline{
		images: images,
		text:   text,
		logger: logger,
	}
}

// Process returns the path recorded for the artifact. Transform failures
// are logged and never returned.
//
// Images are transformed in the background and keep their staging path.
// Plain text is corrected in place and reported with a ".txt" suffix that
// does not exist on disk. Everything else passes through. A missing
// transformer skips the work but not the path rule.
func (p *Pipeline) Process(ctx context.Context, a Artifact) (string, error) {
	mediaType := a.MimeType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		if p.images != nil {
			p.transformImage(ctx, a.StagingPath)
		}
		return a.StagingPath, nil

	case mediaType == "text/plain":
		if p.text != nil {
			if err := p.text.Correct(ctx, a.StagingPath); err != nil {
				p.logger.Error(ctx, "text correction failed", "path", a.StagingPath, "error", err)
			}
		}
		return a.StagingPath + ".txt", nil

	default:
		return a.StagingPath, nil
	}
}

func (p *Pipeline) transformImage(ctx context.Context, path string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		bg := context.WithoutCancel(ctx)
		out, err := p.images.Transform(bg, path)
		if err != nil {
			p.logger.Error(bg, "image transform failed", "path", path, "error", err)
			return
		}
		p.logger.Debug(bg, "image transformed", "path", path, "output", out)
	}()
}

// Wait blocks until background image transforms have finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
