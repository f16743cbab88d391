package api

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"jatrackr/metrics"
)

// indexFile is the entry document served by the fallback stage
const indexFile = "index.html"

// statusRecorder captures the status code written by downstream handlers
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) statusCode() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

// errorRecoveryMiddleware converts handler panics into 500 responses
func (a *API) errorRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				stackBuf := make([]byte, 4096)
				stackLen := runtime.Stack(stackBuf, false)

				// Stack trace is logged server-side only, never sent to client
				a.logger.Errorw("PANIC RECOVERED",
					"error", sanitizeLogMessage(fmt.Sprintf("%v", err)),
					"method", r.Method,
					"path", sanitizeLogMessage(r.URL.Path),
					"client_ip", getRealIP(r, a.config.API.TrustProxy),
					"stack_trace", string(stackBuf[:stackLen]),
				)
				metrics.HTTPPanics.Inc()

				writeError(w, http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", err), a.logger)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requestLogMiddleware tags each request with a correlation ID and records
// its access log entry and metrics
func (a *API) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := resolveRequestID(r.Header.Get(RequestIDHeader))
		w.Header().Set(RequestIDHeader, requestID)
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r.WithContext(WithRequestID(r.Context(), requestID)))

		elapsed := time.Since(start)
		status := rec.statusCode()
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method).Observe(elapsed.Seconds())

		a.logger.Debugw("HTTP request",
			"request_id", requestID,
			"method", r.Method,
			"path", sanitizeLogMessage(r.URL.Path),
			"status", status,
			"bytes", rec.bytes,
			"duration_ms", elapsed.Milliseconds(),
			"client_ip", getRealIP(r, a.config.API.TrustProxy),
		)
	})
}

// isHTTPS reports whether the client connection used TLS
func (a *API) isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return a.config.API.TrustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// hstsHeaderValue renders the Strict-Transport-Security header
func (a *API) hstsHeaderValue() string {
	hsts := a.config.API.HSTS
	value := fmt.Sprintf("max-age=%d", int64(hsts.MaxAge.Seconds()))
	if hsts.IncludeSubDomains {
		value += "; includeSubDomains"
	}
	if hsts.Preload {
		value += "; preload"
	}
	return value
}

// hstsMiddleware adds Strict-Transport-Security to HTTPS responses for hosts
// that are not excluded
func (a *API) hstsMiddleware(next http.Handler) http.Handler {
	value := a.hstsHeaderValue()
	excluded := make(map[string]bool, len(a.config.API.HSTS.ExcludedHosts))
	for _, host := range a.config.API.HSTS.ExcludedHosts {
		excluded[strings.ToLower(hostWithoutPort(host))] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isHTTPS(r) && !excluded[strings.ToLower(hostWithoutPort(r.Host))] {
			w.Header().Set("Strict-Transport-Security", value)
		}
		next.ServeHTTP(w, r)
	})
}

// httpsRedirectMiddleware sends plain-HTTP requests to the HTTPS port with a
// 307. Without a configured HTTPS port it warns once and lets requests through.
func (a *API) httpsRedirectMiddleware(next http.Handler) http.Handler {
	port := a.config.API.HTTPSPort

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isHTTPS(r) {
			next.ServeHTTP(w, r)
			return
		}
		if port == 0 {
			a.httpsWarnOnce.Do(func() {
				a.logger.Warnw("Failed to determine the https port for redirect; serving plain HTTP")
			})
			next.ServeHTTP(w, r)
			return
		}

		host := hostWithoutPort(r.Host)
		if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
			host = "[" + host + "]"
		}
		if port != 443 {
			host = fmt.Sprintf("%s:%d", host, port)
		}
		target := "https://" + host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	})
}

// staticFilesMiddleware serves existing regular files from the web root for
// GET and HEAD requests
func (a *API) staticFilesMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		if !a.serveWebRootFile(w, r, r.URL.Path) {
			next.ServeHTTP(w, r)
		}
	})
}

// fallbackHandler serves the web root index.html for GET and HEAD requests
// whose last path segment has no file extension; everything else is a 404.
func (a *API) fallbackHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodGet || r.Method == http.MethodHead) && path.Ext(path.Base(r.URL.Path)) == "" {
			if a.serveWebRootFile(w, r, "/"+indexFile) {
				return
			}
		}
		writeError(w, http.StatusNotFound, "Not found", nil, nil)
	})
}

// serveWebRootFile writes the file at urlPath under the web root and reports
// whether one was served. Directories and dotfiles are never served.
func (a *API) serveWebRootFile(w http.ResponseWriter, r *http.Request, urlPath string) bool {
	root := a.config.API.WebRoot
	if root == "" {
		return false
	}

	cleaned := path.Clean("/" + urlPath)
	if cleaned == "/" {
		return false
	}
	for _, segment := range strings.Split(cleaned[1:], "/") {
		if strings.HasPrefix(segment, ".") {
			return false
		}
	}

	full := filepath.Join(root, filepath.FromSlash(cleaned))
	f, err := os.Open(full)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func hostWithoutPort(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
}
