package web

import (
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"refurbot/core/logger"

	"log/slog"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// statusRecorder captures the response code for the completion log.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.code == 0 {
		r.code = http.StatusOK
	}
	return r.ResponseWriter.Write(p)
}

// Recover catches handler panics and answers 500 instead of tearing
// down the whole server.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), component, "web.panic",
					slog.String("status", "fail"),
					slog.String("path", r.URL.Path),
					slog.Any("err", rec),
					slog.String("stack", string(debug.Stack())),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequestLog assigns a request id, threads it through the context, and
// emits one completion line per request.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid := logger.NewRID()
		ctx := logger.WithRID(r.Context(), rid)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		code := rec.code
		if code == 0 {
			code = http.StatusOK
		}
		status := "ok"
		if code >= http.StatusInternalServerError {
			status = "fail"
		}
		logger.Info(ctx, component, "web.request",
			slog.String("status", status),
			slog.String("action", r.Method+" "+r.URL.Path),
			slog.Int("http_code", code),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

type rateWindow struct {
	start time.Time
	count int
}

// RateLimit enforces a fixed per-minute budget per remote IP. Zero or
// negative perMinute disables the limiter.
func RateLimit(perMinute int) Middleware {
	var (
		mu      sync.Mutex
		windows = make(map[string]*rateWindow)
	)

	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			now := time.Now()

			mu.Lock()
			// GC expired windows so the map cannot grow unbounded
			for key, win := range windows {
				if now.Sub(win.start) > 2*time.Minute {
					delete(windows, key)
				}
			}
			win, ok := windows[ip]
			if !ok || now.Sub(win.start) >= time.Minute {
				win = &rateWindow{start: now}
				windows[ip] = win
			}
			win.count++
			limited := win.count > perMinute
			mu.Unlock()

			if limited {
				logger.Warn(r.Context(), component, "web.rate_limit",
					slog.String("status", "fail"),
					slog.String("ip", ip),
				)
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
