package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sharedrive/internal/auth"
	"sharedrive/internal/logging"
)

type RouterConfig struct {
	AllowedOrigins []string
	StagingDir     string
	PublicPrefix   string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// NewRouter wires the public API.
func NewRouter(cfg RouterConfig, users *UserHandler, files *FileHandler, verifier auth.Verifier, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "x-access-token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Post("/signup", users.Signup)
	r.Post("/login", users.Login)
	r.Get("/verify/{confirmationToken}", users.VerifyEmail)

	requireAuth := auth.Middleware(verifier, logger)

	r.With(limitBody(cfg.MaxUploadBytes), requireAuth).Post("/upload", files.Upload)

	r.Route("/file", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", files.Search)
		r.Get("/{createdBy}", files.ListByOwner)
		r.Get("/{createdBy}/{fileId}", files.Get)
		r.Put("/{fileId}", files.Update)
		r.Delete("/{fileId}", files.Delete)
	})

	if cfg.StagingDir != "" {
		prefix := "/" + strings.Trim(cfg.PublicPrefix, "/")
		if prefix == "/" {
			prefix = "/uploads"
		}
		fs := http.StripPrefix(prefix, noDirListing(http.FileServer(http.Dir(cfg.StagingDir))))
		r.Handle(prefix+"/*", fs)
	}

	return r
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info(r.Context(), "request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
