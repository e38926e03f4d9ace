// Package webui serves the embedded single-page admin UI.
//
// The UI ships as a build-time asset table: static files are served with
// a cache policy chosen by path class, and the entry document is rendered
// per request with the runtime config injected so the frontend knows
// where the API lives. Unmatched extensionless paths fall back to the
// entry document for client-side routing.
package webui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/creddhq/credd/pkg/logging"
)

const (
	indexFile = "index.html"

	cacheNone      = "no-cache"
	cacheImmutable = "public, max-age=31536000, immutable"
	cacheShort     = "public, max-age=3600"
)

// Handler resolves requests against an immutable asset table. Both entry
// points are pure functions of the request path, the table, and the base
// path, so no locking is needed.
type Handler struct {
	assets   fs.FS
	basePath string
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithBasePath sets the base path the UI is served under. It is injected
// into the entry document as window.__CREDD_CONFIG__.basePath.
func WithBasePath(base string) Option {
	return func(h *Handler) { h.basePath = base }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a Handler serving the given asset tree. A nil FS
// serves the embedded production build.
func NewHandler(assets fs.FS, opts ...Option) *Handler {
	h := &Handler{
		assets: assets,
		logger: logging.Nop(),
	}
	if h.assets == nil {
		h.assets = Dist()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP serves a static asset, the entry document, or a 404.
//
// Paths containing ".." are rejected before any lookup. A table hit gets
// a MIME type from its extension and a cache policy from its path class.
// A miss whose final segment has no extension is a client-side route and
// falls back to the entry document.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.URL.Path, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" || name == "." {
		h.ServeIndex(w, r)
		return
	}

	data, err := fs.ReadFile(h.assets, name)
	if err != nil {
		if path.Ext(name) == "" {
			h.ServeIndex(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType(name))
	w.Header().Set("Cache-Control", cachePolicy(name))
	_, _ = w.Write(data)
}

// ServeIndex serves the entry document with the config script injected
// immediately before the closing head tag. A missing entry document
// means the frontend was never built, which is a deployment error worth
// a human-readable message rather than a bare 404.
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	doc, err := fs.ReadFile(h.assets, indexFile)
	if err != nil {
		h.logger.Warn("admin UI entry document missing", "error", err)
		http.Error(w, "Admin UI not built. Run 'pnpm build' in web/.", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheNone)
	_, _ = w.Write(h.injectConfig(doc))
}

// injectConfig splices the runtime config script into the entry
// document. A document without a closing head tag is served unchanged.
func (h *Handler) injectConfig(doc []byte) []byte {
	base, _ := json.Marshal(h.basePath)
	script := fmt.Sprintf("<script>window.__CREDD_CONFIG__={basePath:%s}</script>", base)
	return bytes.Replace(doc, []byte("</head>"), []byte(script+"</head>"), 1)
}

// contentType infers a MIME type from the file extension, falling back
// to a generic binary type.
func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// cachePolicy picks the cache directive by path class: HTML documents
// always revalidate, hashed bundles under assets/ never change, and
// everything else (favicons and similar) gets a short TTL.
func cachePolicy(name string) string {
	switch {
	case strings.HasSuffix(name, ".html"):
		return cacheNone
	case strings.HasPrefix(name, "assets/"):
		return cacheImmutable
	default:
		return cacheShort
	}
}
