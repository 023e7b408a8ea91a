package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"

	"github.com/shaunagostinho/oceagpx/internal/export"
	"github.com/shaunagostinho/oceagpx/internal/gps"
	"github.com/shaunagostinho/oceagpx/internal/logger"
	"github.com/shaunagostinho/oceagpx/internal/metrics"
	"github.com/shaunagostinho/oceagpx/internal/preview"
)

// Server exposes records, previews and exports over HTTP and pushes preview
// frames to WebSocket clients.
type Server struct {
	cfg     *Config
	source  gps.Provider
	webFS   fs.FS
	journal *logger.Logger
	router  *chi.Mux

	// ctx outlives individual requests; websocket work runs under it.
	ctx context.Context

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Frame types.
const (
	FrameHello   = "hello"
	FramePreview = "preview"
	FrameConfig  = "config"
	FrameExport  = "export"
	FrameError   = "error"
)

// Frame is the JSON structure sent to WebSocket clients.
type Frame struct {
	Type     string                     `json:"type"`
	ClientID string                     `json:"clientId,omitempty"`
	Preview  *geojson.FeatureCollection `json:"preview,omitempty"`
	Config   json.RawMessage            `json:"config,omitempty"`
	Export   []export.Result            `json:"export,omitempty"`
	Error    string                     `json:"error,omitempty"`
	Stamp    int64                      `json:"stamp"` // Unix ms
}

// selection is the body of export requests and websocket preview requests.
type selection struct {
	RecordIDs []int64 `json:"recordIds"`
}

// New creates a new Server.
func New(cfg *Config, source gps.Provider, webFS fs.FS) *Server {
	s := &Server{
		cfg:    cfg,
		source: source,
		webFS:  webFS,
		journal: logger.New(logger.Config{
			Enabled: cfg.Logging.Enabled,
			Path:    cfg.Logging.Path,
		}),
		ctx:     context.Background(),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if origins := s.cfg.Server.CorsOrigins; len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Minute))

		r.Get("/health", s.handleHealth)
		r.Get("/records", s.handleRecords)
		r.Get("/tracks", s.handleTracks)
		r.Get("/preview", s.handlePreview)
		r.Post("/export/single", s.handleExportSingle)
		r.Post("/export/merged", s.handleExportMerged)
		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handleUpdateConfig)
	})

	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", metrics.Handler())

	if s.webFS != nil {
		r.Handle("/*", http.FileServer(http.FS(s.webFS)))
	}
	return r
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
		s.closeClients()
		s.journal.Close()
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"source": s.source.Name(),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.source.Records(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []gps.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	tracks, ok := s.tracksFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	tracks, ok := s.tracksFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, preview.Tracks(tracks))
}

func (s *Server) handleExportSingle(w http.ResponseWriter, r *http.Request) {
	tracks, ok := s.tracksFromBody(w, r)
	if !ok {
		return
	}

	results := s.exporter().ExportSingle(r.Context(), tracks)
	s.broadcast(Frame{Type: FrameExport, Export: results, Stamp: time.Now().UnixMilli()})
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleExportMerged(w http.ResponseWriter, r *http.Request) {
	tracks, ok := s.tracksFromBody(w, r)
	if !ok {
		return
	}

	result := s.exporter().ExportMerged(r.Context(), tracks)
	s.broadcast(Frame{Type: FrameExport, Export: []export.Result{result}, Stamp: time.Now().UnixMilli()})
	writeJSON(w, http.StatusOK, result)
}

// exporter snapshots the current export settings. There is no one to ask
// over HTTP, so confirmation accepts the default path.
func (s *Server) exporter() *export.Exporter {
	return export.New(s.cfg.ExportOptions(), s.journal)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	data, err := s.cfg.ToJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := s.cfg.UpdateFromJSON(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.SaveUpdate(body); err != nil {
		log.Printf("[config] save failed: %v", err)
	}

	s.cfg.mu.RLock()
	s.journal.SetEnabled(s.cfg.Logging.Enabled)
	s.cfg.mu.RUnlock()

	if data, err := s.cfg.ToJSON(); err == nil {
		s.broadcast(Frame{Type: FrameConfig, Config: data, Stamp: time.Now().UnixMilli()})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) tracksFromQuery(w http.ResponseWriter, r *http.Request) ([]gps.Track, bool) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return s.loadTracks(w, r.Context(), ids)
}

func (s *Server) tracksFromBody(w http.ResponseWriter, r *http.Request) ([]gps.Track, bool) {
	var sel selection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return nil, false
	}
	return s.loadTracks(w, r.Context(), sel.RecordIDs)
}

func (s *Server) loadTracks(w http.ResponseWriter, ctx context.Context, ids []int64) ([]gps.Track, bool) {
	tracks, err := s.fetchTracks(ctx, ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return tracks, true
}

func (s *Server) fetchTracks(ctx context.Context, ids []int64) ([]gps.Track, error) {
	start := time.Now()
	tracks, err := s.source.Tracks(ctx, ids)
	metrics.ObserveSourceLoad(start)
	if tracks == nil {
		tracks = []gps.Track{}
	}
	return tracks, err
}

// parseIDs reads a comma separated list of record IDs.
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
