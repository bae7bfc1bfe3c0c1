package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sharedrive/internal/auth"
	"sharedrive/internal/domain"
	"sharedrive/internal/logging"
	"sharedrive/internal/media"
	"sharedrive/internal/service"
)

const (
	uploadField     = "file"
	maxMemoryUpload = 32 << 20
	dateOnly        = "2006-01-02"
)

// Stager writes an incoming upload to the staging area.
type Stager interface {
	Stage(src io.Reader, fieldName, originalName, mimeType string) (media.Artifact, error)
}

type FileHandler struct {
	files  *service.FileService
	stager Stager
	logger logging.Logger
}

func NewFileHandler(files *service.FileService, stager Stager, logger logging.Logger) *FileHandler {
	return &FileHandler{files: files, stager: stager, logger: logger}
}

// Upload handles POST /upload, a multipart form with name, description and
// a single "file" part.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxMemoryUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	input := domain.FileInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
	if err := domain.Validate(input).Err(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, r, h.logger, domain.ErrNoFile)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	artifact, err := h.stager.Stage(file, uploadField, header.Filename, mimeType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.files.Upload(r.Context(), owner, input, artifact)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Message: "File uploaded successfully", Data: created})
}

// Search handles GET /file?name=&description=&from=&to=.
func (h *FileHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := h.files.Search(r.Context(), auth.UserIDFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: files})
}

// ListByOwner handles GET /file/{createdBy}.
func (h *FileHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserIDFromContext(r.Context())

	files, err := h.files.ListByOwner(r.Context(), caller, chi.URLParam(r, "createdBy"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: files})
}

// Get handles GET /file/{createdBy}/{fileId}. The path owner must be the
// caller; anything else reads as a missing file.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserIDFromContext(r.Context())
	if chi.URLParam(r, "createdBy") != caller {
		writeError(w, r, h.logger, domain.ErrNotFound)
		return
	}

	file, err := h.files.Get(r.Context(), caller, chi.URLParam(r, "fileId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: file})
}

// Update handles PUT /file/{fileId}.
func (h *FileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input domain.FileUpdateInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	file, err := h.files.Update(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "fileId"), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Message: "File updated successfully", Data: file})
}

// Delete handles DELETE /file/{fileId}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.files.Delete(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "fileId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeMessage(w, http.StatusOK, "File deleted successfully")
}

func parseFilter(r *http.Request) (domain.FileFilter, error) {
	q := r.URL.Query()
	filter := domain.FileFilter{
		Name:        q.Get("name"),
		Description: q.Get("description"),
	}

	if v := q.Get("from"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return filter, fmt.Errorf("invalid from date %q", v)
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, bare, err := parseDate(v)
		if err != nil {
			return filter, fmt.Errorf("invalid to date %q", v)
		}
		if bare {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &t
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, fmt.Errorf("from date is after to date")
	}

	return filter, nil
}

// parseDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates (UTC).
func parseDate(v string) (t time.Time, isDateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse(dateOnly, v); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}
