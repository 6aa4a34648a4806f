package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gwi.com/filesearch-playground/internal/logger"
)

func NewRouter(apiHandler *APIHandler, metricsHandler http.Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger.Module(log, "http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		// Every other route needs a credential, from the request or the server
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.CredentialMiddleware)

			r.Get("/stores", apiHandler.ListStoresHandler)
			r.Post("/stores", apiHandler.CreateStoreHandler)
			r.Get("/stores/*", apiHandler.GetStoreHandler)
			r.Delete("/stores/*", apiHandler.DeleteStoreHandler)

			r.Get("/files", apiHandler.ListFilesHandler)
			r.Post("/files", apiHandler.UploadFileHandler)
			r.Delete("/files", apiHandler.DeleteFileHandler)
			r.Delete("/files/*", apiHandler.DeleteFileHandler)

			r.Post("/chat", apiHandler.ChatHandler)
		})
	})

	return r
}

// RequestLogger writes one access log line per request. Request headers are
// never logged since one of them may carry an API key.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("Request handled",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote_addr", r.RemoteAddr))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
