package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sharedrive/internal/domain"
	"sharedrive/internal/logging"
	"sharedrive/internal/media"
	"sharedrive/internal/service/s3"
)

type FileStore interface {
	Create(ctx context.Context, file *domain.File) error
	FindByOwner(ctx context.Context, ownerID string) ([]domain.File, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.File, error)
	Search(ctx context.Context, ownerID string, filter domain.FileFilter) ([]domain.File, error)
	UpdateNameDescription(ctx context.Context, id, name, description string) (*domain.File, error)
	Delete(ctx context.Context, id string) error
}

// Processor turns a staged upload into the path recorded for it.
type Processor interface {
	Process(ctx context.Context, a media.Artifact) (string, error)
}

type FileServiceOptions struct {
	StagingDir   string
	PublicURL    string
	PublicPrefix string
}

// FileService manages uploaded files. Every operation is scoped to the
// calling owner.
type FileService struct {
	files    FileStore
	pipeline Processor
	s3Client s3.Storage
	opts     FileServiceOptions
	logger   logging.Logger
}

// NewFileService builds the service. s3Client may be nil when mirroring is
// disabled.
func NewFileService(
	files FileStore,
	pipeline Processor,
	s3Client s3.Storage,
	opts FileServiceOptions,
	logger logging.Logger,
) *FileService {
	opts.StagingDir = filepath.Clean(opts.StagingDir)
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")
	opts.PublicPrefix = "/" + strings.Trim(opts.PublicPrefix, "/")
	if opts.PublicPrefix == "/" {
		opts.PublicPrefix = ""
	}

	return &FileService{
		files:    files,
		pipeline: pipeline,
		s3Client: s3Client,
		opts:     opts,
		logger:   logger,
	}
}

// Upload records an already staged artifact for owner.
func (s *FileService) Upload(ctx context.Context, owner string, input domain.FileInput, a media.Artifact) (*domain.File, error) {
	if err := domain.Validate(input).Err(); err != nil {
		s.discard(ctx, a.StagingPath)
		return nil, err
	}

	finalPath, err := s.pipeline.Process(ctx, a)
	if err != nil {
		s.discard(ctx, a.StagingPath)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableUpload, err)
	}

	rel, err := filepath.Rel(s.opts.StagingDir, finalPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(finalPath)
	}
	rel = filepath.ToSlash(rel)

	filePath := s.opts.PublicURL + s.opts.PublicPrefix + "/" + rel
	if s.s3Client != nil {
		key := s.s3Client.Key(rel)
		if err := s.s3Client.UploadFile(ctx, key, a.StagingPath, a.MimeType); err != nil {
			s.logger.Error(ctx, "failed to mirror upload", "key", key, "error", err)
		} else {
			filePath = s.s3Client.URL(key)
		}
	}

	file := &domain.File{
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   owner,
		FilePath:    filePath,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info(ctx, "file uploaded", "file_id", file.ID, "owner", owner, "mime_type", a.MimeType, "size", a.Size)
	return file, nil
}

func (s *FileService) discard(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn(ctx, "failed to remove staged upload", "path", path, "error", err)
	}
}

func (s *FileService) Search(ctx context.Context, owner string, filter domain.FileFilter) ([]domain.File, error) {
	return s.files.Search(ctx, owner, filter)
}

// ListByOwner lists owner's files. Callers may only list their own.
func (s *FileService) ListByOwner(ctx context.Context, caller, owner string) ([]domain.File, error) {
	if caller != owner {
		return nil, domain.ErrForbidden
	}
	return s.files.FindByOwner(ctx, owner)
}

func (s *FileService) Get(ctx context.Context, owner, id string) (*domain.File, error) {
	return s.files.FindByIDAndOwner(ctx, id, owner)
}

func (s *FileService) Update(ctx context.Context, owner, id string, input domain.FileUpdateInput) (*domain.File, error) {
	if err := domain.Validate(input).Err(); err != nil {
		return nil, err
	}

	if _, err := s.files.FindByIDAndOwner(ctx, id, owner); err != nil {
		return nil, err
	}

	return s.files.UpdateNameDescription(ctx, id, input.Name, input.Description)
}

// Delete removes the record and, when it points into the mirror bucket, the
// mirrored object. Staged bytes stay on disk.
func (s *FileService) Delete(ctx context.Context, owner, id string) error {
	file, err := s.files.FindByIDAndOwner(ctx, id, owner)
	if err != nil {
		return err
	}

	if err := s.files.Delete(ctx, id); err != nil {
		return err
	}

	if s.s3Client != nil {
		if key, ok := s.s3Client.KeyFromURL(file.FilePath); ok {
			if err := s.s3Client.DeleteObject(ctx, key); err != nil {
				s.logger.Error(ctx, "failed to delete mirrored object", "key", key, "error", err)
			}
		}
	}

	s.logger.Info(ctx, "file deleted", "file_id", id, "owner", owner)
	return nil
}
