package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const staticPrefix = "/uploads/"

// StaticHandler serves the upload root read only
type StaticHandler struct {
	root   string
	logger *zap.Logger
}

func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{root: root, logger: zap.NewNop()}
}

// RegisterRoutes registers the routes for this handler
func (h *StaticHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("static_handler")

	files := http.StripPrefix(staticPrefix, http.FileServer(noListingFS{http.Dir(h.root)}))
	router.PathPrefix(staticPrefix).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})).Methods(http.MethodGet, http.MethodHead)
}

// noListingFS hides directories so the file server never lists them
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if stat.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
