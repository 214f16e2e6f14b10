package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/hash/sha256"
)

// StylesheetPath is where the shell serves the global stylesheet.
const StylesheetPath = "/static/globals.css"

//go:embed templates/*.tmpl static/globals.css
var assets embed.FS

var (
	stylesheetOnce sync.Once
	stylesheet     []byte
	stylesheetETag string
	stylesheetErr  error
)

// loadStylesheet reads the global stylesheet once per process.
func loadStylesheet() ([]byte, string, error) {
	stylesheetOnce.Do(func() {
		data, err := fs.ReadFile(assets, "static/globals.css")
		if err != nil {
			stylesheetErr = fmt.Errorf("read stylesheet: %w", err)
			return
		}
		stylesheet = data
		stylesheetETag = sha256.New().ETag(data)
	})
	return stylesheet, stylesheetETag, stylesheetErr
}

// Viewer is anything that can snapshot itself for the page template.
type Viewer interface {
	View() View
}

// Shell wraps the page in the document layout and serves the global stylesheet.
type Shell struct {
	tmpl   *template.Template
	page   Viewer
	css    []byte
	etag   string
	logger *zap.Logger
}

type shellData struct {
	View
	StylesheetURL string
}

// NewShell parses the embedded layout and page templates around page.
func NewShell(page Viewer, logger *zap.Logger) (*Shell, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(assets, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	css, etag, err := loadStylesheet()
	if err != nil {
		return nil, err
	}
	return &Shell{tmpl: tmpl, page: page, css: css, etag: etag, logger: logger}, nil
}

// Render writes the full document for the current page view.
func (s *Shell) Render(w io.Writer) error {
	data := shellData{View: s.page.View(), StylesheetURL: StylesheetPath}
	if err := s.tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// ServePage renders the page inside the layout.
func (s *Shell) ServePage(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := s.Render(&buf); err != nil {
		s.logger.Error("unable to serve webpage", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("page write failed", zap.Error(err))
	}
}

// ServeStylesheet serves the global stylesheet with a content ETag.
func (s *Shell) ServeStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", s.etag)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.Header.Get("If-None-Match") == s.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if _, err := w.Write(s.css); err != nil {
		s.logger.Debug("stylesheet write failed", zap.Error(err))
	}
}
