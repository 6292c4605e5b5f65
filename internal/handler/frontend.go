package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// Banner is the plain-text answer at / when no front end is served.
const Banner = "Inventory API - use /api/products to access the data"

// FrontendHandler serves the single-page application build, or the banner
// when no static directory is configured.
type FrontendHandler struct {
	staticDir string
	files     http.Handler
	logger    *slog.Logger
}

// NewFrontendHandler checks that staticDir holds an index.html. An empty
// staticDir disables static serving.
func NewFrontendHandler(staticDir string, logger *slog.Logger) (*FrontendHandler, error) {
	h := &FrontendHandler{staticDir: staticDir, logger: logger}
	if staticDir == "" {
		return h, nil
	}
	if _, err := os.Stat(filepath.Join(staticDir, "index.html")); err != nil {
		return nil, err
	}
	h.files = http.FileServer(http.Dir(staticDir))
	return h, nil
}

// HandleApp serves a static file when one exists at the path and falls back
// to index.html so client-side routes survive a reload.
//
// HTTP: GET /*
func (h *FrontendHandler) HandleApp(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(Banner))
		return
	}

	name := path.Clean("/" + r.URL.Path)
	info, err := os.Stat(filepath.Join(h.staticDir, filepath.FromSlash(name)))
	if err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}
	h.logger.Debug("serving index.html fallback", slog.String("path", name))
	http.ServeFile(w, r, filepath.Join(h.staticDir, "index.html"))
}

// HandleTest is a liveness probe.
//
// HTTP: GET /api/test
func HandleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API is working"})
}
