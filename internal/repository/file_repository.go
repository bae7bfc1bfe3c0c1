package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sharedrive/internal/domain"
)

const fileColumns = `id, name, description, created_by, file_path, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}

	query := `
        INSERT INTO files (id, name, description, created_by, file_path)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.ID,
		file.Name,
		file.Description,
		file.CreatedBy,
		file.FilePath,
	).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", mapError(err))
	}
	return nil
}

func (r *FileRepository) FindByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	files := []domain.File{}
	query := `SELECT ` + fileColumns + ` FROM files WHERE created_by = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &files, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.File, error) {
	var file domain.File
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND created_by = $2`

	if err := r.db.GetContext(ctx, &file, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

// Search matches name and description as case-insensitive substrings and
// bounds created_at inclusively.
func (r *FileRepository) Search(ctx context.Context, ownerID string, filter domain.FileFilter) ([]domain.File, error) {
	conds := []string{"created_by = $1"}
	args := []any{ownerID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Name != "" {
		add("name ILIKE '%%' || $%d || '%%'", likeEscaper.Replace(filter.Name))
	}
	if filter.Description != "" {
		add("description ILIKE '%%' || $%d || '%%'", likeEscaper.Replace(filter.Description))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	query := `SELECT ` + fileColumns + ` FROM files WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	files := []domain.File{}
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	return files, nil
}

// UpdateNameDescription sets the non-empty fields and returns the stored
// record.
func (r *FileRepository) UpdateNameDescription(ctx context.Context, id, name, description string) (*domain.File, error) {
	var file domain.File
	query := `
        UPDATE files
        SET name = COALESCE(NULLIF($2, ''), name),
            description = COALESCE(NULLIF($3, ''), description),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $1
        RETURNING ` + fileColumns

	if err := r.db.GetContext(ctx, &file, query, id, name, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	return &file, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
