// Package web renders the search history as server-side HTML pages.
//
// Routes
//
//	GET /history      → table of recorded searches, newest first
//	GET /history/{id} → one search with its identifications
//
// The pages are read-only views over the sqlite history; a running task is
// reported by the server package's status handler instead.
package web

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultLimit = 50

// SearchStore lists and loads recorded searches.
type SearchStore interface {
	Get(id string) (*models.SearchJob, error)
	List(criteria models.Criteria) ([]*models.SearchJob, error)
}

// IdentificationStore loads the identifications of one search.
type IdentificationStore interface {
	ListBySearch(searchID string) ([]*models.PersistedIdentification, error)
}

// HistoryHandler serves the history pages.
type HistoryHandler struct {
	searches        SearchStore
	identifications IdentificationStore
	tmpl            *template.Template
	logger          *log.Logger
}

// NewHistoryHandler parses the embedded templates.
func NewHistoryHandler(searches SearchStore, identifications IdentificationStore, logger *log.Logger) (*HistoryHandler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"ago":     ago,
		"percent": func(p float64) string { return strconv.Itoa(int(p*100+0.5)) + "%" },
		"score":   func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"expect":  func(v float64) string { return strconv.FormatFloat(v, 'g', 4, 64) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &HistoryHandler{
		searches:        searches,
		identifications: identifications,
		tmpl:            tmpl,
		logger:          logger,
	}, nil
}

// Routes returns the HTTP routes this handler serves.
func (h *HistoryHandler) Routes() []string {
	return []string{"GET /history", "GET /history/{id}"}
}

// ServeHTTP dispatches between the list and detail pages.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if id := r.PathValue("id"); id != "" {
		h.detail(w, id)
		return
	}
	h.list(w, r)
}

type listPage struct {
	Status   string
	Searches []*models.SearchJob
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	criteria := models.Criteria{"limit": defaultLimit}
	status := r.URL.Query().Get("status")
	if status != "" {
		criteria["status"] = status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		criteria["limit"] = n
	}

	searches, err := h.searches.List(criteria)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.render(w, "history", listPage{Status: status, Searches: searches})
}

type detailPage struct {
	Search          *models.SearchJob
	Identifications []*models.PersistedIdentification
}

func (h *HistoryHandler) detail(w http.ResponseWriter, id string) {
	job, err := h.searches.Get(id)
	if err != nil {
		h.fail(w, err)
		return
	}

	idents, err := h.identifications.ListBySearch(id)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.render(w, "search", detailPage{Search: job, Identifications: idents})
}

func (h *HistoryHandler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", "template", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *HistoryHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		http.Error(w, "Search not found", http.StatusNotFound)
		return
	}
	h.logger.Error("history lookup failed", "error", err)
	http.Error(w, "Failed to load search history", http.StatusInternalServerError)
}

func ago(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}
