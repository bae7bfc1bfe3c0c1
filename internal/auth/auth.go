package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"sharedrive/internal/logging"
)

const (
	tokenField  = "token"
	tokenHeader = "x-access-token"

	// maxTokenBodyBytes bounds how much of a JSON body is buffered to look for
	// a token field.
	maxTokenBodyBytes = 1 << 20
)

type ctxKey struct{}

type readCloser struct {
	io.Reader
	io.Closer
}

// Verifier checks a session token and returns its claims.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// Middleware rejects requests without a valid session token and stores the
// decoded claims in the request context.
//
// The token is looked up in the body field "token", the query parameter
// "token", the x-access-token header and a Bearer Authorization header, in
// that order; the first one present wins.
func Middleware(v Verifier, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				http.Error(w, "A token is required for authentication", http.StatusForbidden)
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				logger.Warn(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				http.Error(w, "Invalid Token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// ExtractToken returns the first token found on r, or "".
func ExtractToken(r *http.Request) string {
	if token := tokenFromBody(r); token != "" {
		return token
	}
	if token := r.URL.Query().Get(tokenField); token != "" {
		return token
	}
	if token := r.Header.Get(tokenHeader); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func tokenFromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		orig := r.Body
		data, err := io.ReadAll(io.LimitReader(orig, maxTokenBodyBytes))
		// Put the consumed prefix back in front of the rest for the handler.
		r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(data), orig), Closer: orig}
		if err != nil {
			return ""
		}
		var body struct {
			Token string `json:"token"`
		}
		if json.Unmarshal(data, &body) != nil {
			return ""
		}
		return body.Token
	case "application/x-www-form-urlencoded", "multipart/form-data":
		// Parsing keeps the form on r, so handlers can still read fields and files.
		return r.PostFormValue(tokenField)
	default:
		return ""
	}
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user's id, or "".
func UserIDFromContext(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.OwnerID()
	}
	return ""
}
