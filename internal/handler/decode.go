package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"sharedrive/internal/domain"
)

// decodeBody fills dst from a JSON body or, for form posts, from the form
// fields named by dst's json tags.
func decodeBody(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return fmt.Errorf("%w: invalid form body", domain.ErrValidation)
		}
		fields := make(map[string]string, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dst)

	default:
		if r.Body == nil {
			return nil
		}
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
		}
		return nil
	}
}
