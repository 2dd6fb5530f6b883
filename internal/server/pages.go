package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/services"
)

// PageHandler serves the landing page, the dashboard and everything else in the static directory.
//
// The HTML is opaque to the server.
type PageHandler struct {
	dir     string
	cookies CookiePolicy
	files   http.Handler
}

var _ Handler = (*PageHandler)(nil)

func NewPageHandler(dir string, cookies CookiePolicy) *PageHandler {
	return &PageHandler{dir: dir, cookies: cookies, files: http.FileServer(http.Dir(dir))}
}

func (h *PageHandler) Routes() []string {
	return []string{"/", dashboardPath}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	switch r.URL.Path {
	case "/":
		if h.cookies.ReadCredential(r).Complete() {
			http.Redirect(w, r, dashboardPath, http.StatusFound)
			return
		}
		h.serveFile(w, r, "index.html")
	case dashboardPath:
		h.serveFile(w, r, "dashboard.html")
	default:
		h.files.ServeHTTP(w, r)
	}
}

func (h *PageHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	path := filepath.Join(h.dir, name)
	if _, err := os.Stat(path); err != nil {
		log.FromContext(r.Context()).Warn("static page missing", "file", path)
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /healthz. A failing journal ping answers 503.
type HealthHandler struct {
	env     string
	started time.Time
	journal Pinger
	now     func() time.Time
}

func NewHealthHandler(env string, journal Pinger, now func() time.Time) *HealthHandler {
	if now == nil {
		now = time.Now
	}
	return &HealthHandler{env: env, started: now(), journal: journal, now: now}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := services.Health{
		Status: "ok",
		Env:    h.env,
		Uptime: h.now().Sub(h.started).Round(time.Second).String(),
	}

	status := http.StatusOK
	if h.journal != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		if err := h.journal.Ping(ctx); err != nil {
			log.FromContext(r.Context()).Error("journal ping failed", "error", err)
			body.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			body.Journal = true
		}
	}

	writeJSON(w, status, body)
}
