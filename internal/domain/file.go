package domain

import (
	"time"
)

type File struct {
	ID          string    `json:"id" db:"id" bson:"_id"`
	Name        string    `json:"name" db:"name" bson:"name"`
	Description string    `json:"description" db:"description" bson:"description"`
	CreatedBy   string    `json:"createdBy" db:"created_by" bson:"createdBy"`
	FilePath    string    `json:"filePath" db:"file_path" bson:"filePath"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}

// FileInput carries the form fields sent with an upload.
type FileInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// FileUpdateInput is the body of PUT /file/{fileId}. At least one field must be set.
type FileUpdateInput struct {
	Name        string `json:"name" validate:"required_without=Description"`
	Description string `json:"description" validate:"required_without=Name"`
}

// FileFilter narrows a search over one owner's files. Empty fields match
// everything; From and To bound CreatedAt inclusively.
type FileFilter struct {
	Name        string
	Description string
	From        *time.Time
	To          *time.Time
}

// Matches reports whether f satisfies the filter. Store backends without a
// query language use it directly.
func (ff FileFilter) Matches(f File) bool {
	if ff.Name != "" && !containsFold(f.Name, ff.Name) {
		return false
	}
	if ff.Description != "" && !containsFold(f.Description, ff.Description) {
		return false
	}
	if ff.From != nil && f.CreatedAt.Before(*ff.From) {
		return false
	}
	if ff.To != nil && f.CreatedAt.After(*ff.To) {
		return false
	}
	return true
}
