// Package web is the HTTP bridge between the embed page and the session
// controller. Handlers stay thin: decode, post to the controller, encode
// a snapshot. Session errors never become HTTP errors; they surface only
// through the snapshot's phase and message.
package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cliploop/autoplay"
	"cliploop/player"
)

// maxEventBody caps inbound player message bodies; the embed channel is
// untrusted and real messages are tiny.
const maxEventBody = 64 << 10

// Metrics is the scrape endpoint dependency; nil disables /metrics.
type Metrics interface {
	Handler() http.Handler
}

// Server wires the controller to the HTTP surface.
type Server struct {
	ctrl *autoplay.Controller
	// embedParent is passed to the clip embed URL; the player refuses to
	// load inside a page whose hostname is not listed.
	embedParent string
	metrics     Metrics
}

// NewServer creates the bridge. metrics may be nil.
func NewServer(ctrl *autoplay.Controller, embedParent string, metrics Metrics) *Server {
	return &Server{ctrl: ctrl, embedParent: embedParent, metrics: metrics}
}

// Router builds the chi router with all bridge routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/search", s.handleSearch)
	r.Post("/api/next", s.handleNext)
	r.Post("/api/prev", s.handlePrev)
	r.Put("/api/filter", s.handleFilter)
	r.Put("/api/autoplay", s.handleAutoplay)
	r.Post("/api/player/events", s.handlePlayerEvent)
	r.Get("/api/state", s.handleState)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.ctrl.Search(req.Query)
	s.writeState(w)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Next()
	s.writeState(w)
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Prev()
	s.writeState(w)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var spec autoplay.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := spec.Validate(); err != nil {
		log.Printf("cliploop: rejecting filter request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.ctrl.SetFilter(spec)
	s.writeState(w)
}

func (s *Server) handleAutoplay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.ctrl.SetAutoAdvance(req.Enabled)
	s.writeState(w)
}

// handlePlayerEvent accepts a raw embed message. Everything is accepted
// with 202: the channel is best-effort and the sender never reacts to
// errors, so unparseable or stale bodies are simply dropped.
func (s *Server) handlePlayerEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err == nil {
		if sig, ok := player.Parse(body); ok {
			s.ctrl.PlayerSignal(sig)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w)
}

// stateResponse is the wire view of a snapshot.
type stateResponse struct {
	Phase       string        `json:"phase"`
	Query       string        `json:"query,omitempty"`
	Broadcaster string        `json:"broadcaster,omitempty"`
	Filter      autoplay.Spec `json:"filter"`
	AutoAdvance bool          `json:"auto_advance"`
	Current     *currentClip  `json:"current,omitempty"`
	Position    int           `json:"position"`
	QueueLen    int           `json:"queue_len"`
	Exhausted   bool          `json:"exhausted"`
	Message     string        `json:"message,omitempty"`
}

type currentClip struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Creator   string  `json:"creator,omitempty"`
	Duration  float64 `json:"duration"`
	ViewCount uint64  `json:"view_count"`
	URL       string  `json:"url"`
	EmbedURL  string  `json:"embed_url"`
	Thumbnail string  `json:"thumbnail,omitempty"`
}

func (s *Server) writeState(w http.ResponseWriter) {
	snap := s.ctrl.Snapshot()

	resp := stateResponse{
		Phase:       snap.Phase.String(),
		Query:       snap.Query,
		Broadcaster: snap.Broadcaster.DisplayName,
		Filter:      snap.Filter,
		AutoAdvance: snap.AutoAdvance,
		Position:    snap.Position,
		QueueLen:    snap.QueueLen,
		Exhausted:   snap.Exhausted,
		Message:     snap.Message,
	}
	if snap.Current != nil {
		resp.Current = &currentClip{
			ID:        snap.Current.ID,
			Title:     snap.Current.Title,
			Creator:   snap.Current.CreatorName,
			Duration:  snap.Current.Duration,
			ViewCount: snap.Current.ViewCount,
			URL:       snap.Current.URL,
			EmbedURL:  embedURL(snap.Current.EmbedURL, s.embedParent),
			Thumbnail: snap.Current.ThumbnailURL,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("cliploop: encode state: %v", err)
	}
}

// embedURL appends the parent parameter the clip embed requires.
func embedURL(base, parent string) string {
	if base == "" || parent == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("parent", parent)
	u.RawQuery = q.Encode()
	return u.String()
}
