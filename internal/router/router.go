package router

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-charging-go/pkg/utilities"
)

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Logger      *zap.SugaredLogger
	Responder   *httpx.Responder
	DB          Pinger
	Gateway     *auth.Gateway
	Users       *user.Handler
	Stations    *station.Handler
	CORSOrigins []string
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	if lrw.status == 0 {
		lrw.status = code
	}
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware tags every request with a snowflake X-Request-ID and logs
// it once finished, at a level chosen by the response status.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := utilities.NewSnowflakeID()
			w.Header().Set("X-Request-ID", reqID)

			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)

			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"size", lrw.size,
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Errorw("http request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warnw("http request", fields...)
			default:
				logger.Infow("http request", fields...)
			}
		})
	}
}

// RecoveryMiddleware turns a panicking handler into a 500 response.
func RecoveryMiddleware(logger *zap.SugaredLogger, resp *httpx.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					logger.Errorw("panic recovered",
						"panic", p,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					resp.JSON(w, http.StatusInternalServerError, httpx.ErrorBody{Message: "Something went wrong!"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			// JSON only, nothing to embed
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

			if r.TLS != nil {
				// 30 days
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows browser clients from origins (or any origin for "*").
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	})
	return c.Handler
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		d.Responder.JSON(w, http.StatusOK, map[string]string{"message": "EV Charging Station API"})
	})

	// health
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.PingContext(ctx); err != nil {
			d.Logger.Warnw("health check failed", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth routes
	mux.HandleFunc("POST /api/auth/register", d.Users.Register)
	mux.HandleFunc("POST /api/auth/login", d.Users.Login)

	protected := d.Gateway.Middleware(d.Responder)
	mux.Handle("GET /api/auth/me", protected(http.HandlerFunc(d.Users.Me)))

	// charging station routes; {$} catches an empty id so it is rejected as
	// invalid rather than falling through to 404
	mux.Handle("GET /api/charging-stations", protected(http.HandlerFunc(d.Stations.List)))
	mux.Handle("POST /api/charging-stations", protected(http.HandlerFunc(d.Stations.Create)))
	for _, pattern := range []string{"/api/charging-stations/{id}", "/api/charging-stations/{$}"} {
		mux.Handle("GET "+pattern, protected(http.HandlerFunc(d.Stations.Get)))
		mux.Handle("PUT "+pattern, protected(http.HandlerFunc(d.Stations.Update)))
		mux.Handle("DELETE "+pattern, protected(http.HandlerFunc(d.Stations.Delete)))
	}

	// outermost first: logging, recovery, security headers, CORS
	handler := CORSMiddleware(d.CORSOrigins)(mux)
	handler = SecurityHeadersMiddleware()(handler)
	handler = RecoveryMiddleware(d.Logger, d.Responder)(handler)
	return LoggingMiddleware(d.Logger)(handler)
}
