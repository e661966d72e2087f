// Package web serves the HTMX review interface: a deck overview, a
// card-by-card review loop and source management.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rote-srs/rote/internal/session"
	"github.com/rote-srs/rote/internal/sm2"
	"github.com/rote-srs/rote/internal/storage"
	rotesync "github.com/rote-srs/rote/internal/sync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	sess      *session.Session
	reposDir  string
	router    *http.ServeMux
	templates *template.Template
	now       func() time.Time
}

// NewServer creates and configures a new server. Reviews are graded
// through sess so they share the session lock and audit trail.
func NewServer(db *storage.DB, sess *session.Session, reposDir string) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		db:        db,
		sess:      sess,
		reposDir:  reposDir,
		router:    http.NewServeMux(),
		templates: tpl,
		now:       time.Now,
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create sub-filesystem for static assets: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	// HTMX-based review routes
	s.router.HandleFunc("/deck", s.handleGetDeck())
	s.router.HandleFunc("/review/next", s.handleGetNextReview())
	s.router.HandleFunc("/review/answer/", s.handleShowAnswer())
	s.router.HandleFunc("/review/", s.handlePostReview())

	// Source management routes
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())

	return nil
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// deckData computes the deck overview: how many cards exist and how the
// pending ones spread across the urgency buckets.
func (s *Server) deckData(now time.Time) (map[string]any, error) {
	cards, err := s.db.GetAllCards()
	if err != nil {
		return nil, err
	}

	buckets := sm2.BucketByUrgency(cards, now)
	dueCount := sm2.CountDue(cards, now)

	return map[string]any{
		"TotalCards":  len(cards),
		"DueCount":    dueCount,
		"HasDueCards": dueCount > 0,
		"Overdue":     len(buckets.Overdue),
		"DueToday":    len(buckets.DueToday),
		"DueTomorrow": len(buckets.DueTomorrow),
		"Upcoming":    len(buckets.Upcoming),
	}, nil
}

// handleGetDeck renders the deck view with due counts per urgency bucket.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		data, err := s.deckData(s.now())
		if err != nil {
			slog.Error("failed to build deck view", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.render(w, "deck", data)
	}
}

// renderNextCard shows the front of the most urgent due card, falling
// back to the deck view when nothing is due.
func (s *Server) renderNextCard(w http.ResponseWriter) {
	now := s.now()

	card, err := s.sess.Next(now)
	if err != nil {
		slog.Error("failed to fetch next due card", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if card == nil {
		data, err := s.deckData(now)
		if err != nil {
			slog.Error("failed to build deck view", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.render(w, "deck", data)
		return
	}

	remaining, err := s.sess.Remaining(now)
	if err != nil {
		slog.Error("failed to count remaining cards", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.render(w, "card_front", map[string]any{
		"Card":      card,
		"Remaining": remaining,
	})
}

// handleGetNextReview renders the front of the next due card.
func (s *Server) handleGetNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.renderNextCard(w)
	}
}

// handleShowAnswer renders the back of a card with its grading buttons.
func (s *Server) handleShowAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		hash := strings.TrimPrefix(r.URL.Path, "/review/answer/")
		card, err := s.db.FindCardByHash(hash)
		if err != nil {
			slog.Error("failed to load card", "hash", hash, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if card == nil {
			http.NotFound(w, r)
			return
		}

		s.render(w, "card_back", map[string]any{"Card": card})
	}
}

// handlePostReview grades a card and renders the next one.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		hash := strings.TrimPrefix(r.URL.Path, "/review/")
		quality, err := sm2.ParseQuality(r.PostFormValue("grade"))
		if err != nil {
			http.Error(w, "Invalid grade", http.StatusBadRequest)
			return
		}

		if _, err := s.sess.Grade(hash, quality, s.now()); err != nil {
			switch {
			case errors.Is(err, session.ErrCardNotFound):
				http.NotFound(w, r)
			case errors.Is(err, sm2.ErrInvalidQuality):
				http.Error(w, "Invalid grade", http.StatusBadRequest)
			default:
				slog.Error("failed to grade card", "hash", hash, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}

		// After grading, show the next card.
		s.renderNextCard(w)
	}
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleGetSources renders the sources management page.
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("failed to get sources", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "sources", map[string]any{"Sources": sources})
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.PostFormValue("path"))
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}

	if _, err := s.db.InsertSource(path, storage.DetectSourceKind(path)); err != nil {
		slog.Error("failed to insert source", "path", path, "error", err)
		http.Error(w, "Failed to add source", http.StatusInternalServerError)
		return
	}

	s.renderSourceList(w)
}

// handleDeleteSource deletes a source and re-renders the source list.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			slog.Error("failed to delete source", "id", id, "error", err)
			http.Error(w, "Failed to delete source", http.StatusInternalServerError)
			return
		}

		s.renderSourceList(w)
	}
}

// handlePostSync triggers a sync in the foreground and reports what it did.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		summary, err := rotesync.Run(s.db, s.reposDir, s.now())
		if err != nil {
			slog.Error("sync failed", "error", err)
			http.Error(w, "Sync failed", http.StatusInternalServerError)
			return
		}

		// Both fragments go out together: the flash message and the
		// refreshed list HTMX swaps in.
		s.render(w, "sync_success", summary)
		s.renderSourceList(w)
	}
}

func (s *Server) renderSourceList(w http.ResponseWriter) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("failed to get sources", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "source_list", map[string]any{"Sources": sources})
}
