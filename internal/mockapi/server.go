// Package mockapi serves an in-memory copy of the catalog API. It backs the
// package tests and the mock-server command.
package mockapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ludexapp/ludex/internal/catalog"
)

// Prefix is the path every route is mounted under.
const Prefix = "/api"

// Dataset is the full content served by a Server.
type Dataset struct {
	PlatformGroups []catalog.PlatformGroup
	Platforms      []catalog.Platform
	Releases       []catalog.Release
	Collections    []catalog.Collection
	Items          []catalog.CollectionItem
}

// Server is an http.Handler over a mutable Dataset.
type Server struct {
	mu       sync.Mutex
	data     Dataset
	nextID   int64
	requests []*url.URL

	router  chi.Router
	logger  *log.Logger
	gate    func(*http.Request)
	signKey []byte
	now     func() time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithLogger logs every request at debug level.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGate runs fn before each GET list request is answered. Tests use it
// to hold requests open.
func WithGate(fn func(*http.Request)) Option {
	return func(s *Server) { s.gate = fn }
}

// WithClock overrides the clock used for issued tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Server serving data.
func New(data Dataset, opts ...Option) *Server {
	s := &Server{
		data:    data,
		logger:  log.New(io.Discard),
		signKey: []byte("ludex-mock"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nextID = s.maxID() + 1
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(s.record)

	r.Route(Prefix, func(api chi.Router) {
		api.Post("/auth/refresh", s.refreshToken)

		api.Get("/platform-groups", s.listPlatformGroups)
		api.Get("/platforms", s.listPlatforms)
		api.Get("/releases", s.listReleases)

		api.Route("/collections", func(c chi.Router) {
			c.Get("/", s.listCollections)
			c.Post("/", s.createCollection)
			c.Put("/{id}", s.updateCollection)
			c.Delete("/{id}", s.deleteCollection)
			c.Get("/{id}/items", s.listItems)
			c.Post("/{id}/items", s.addItem)
			c.Delete("/{id}/items/{itemID}", s.removeItem)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns the URLs received so far, oldest first.
func (s *Server) Requests() []*url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Snapshot returns a copy of the current dataset.
func (s *Server) Snapshot() Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Dataset{
		PlatformGroups: slices.Clone(s.data.PlatformGroups),
		Platforms:      slices.Clone(s.data.Platforms),
		Releases:       slices.Clone(s.data.Releases),
		Collections:    slices.Clone(s.data.Collections),
		Items:          slices.Clone(s.data.Items),
	}
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := *r.URL
		s.mu.Lock()
		s.requests = append(s.requests, &u)
		s.mu.Unlock()
		s.logger.Debug("mock request", "method", r.Method, "path", r.URL.Path, "request_id", r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxID() int64 {
	var top int64
	for _, g := range s.data.PlatformGroups {
		top = max(top, g.ID)
	}
	for _, p := range s.data.Platforms {
		top = max(top, p.ID)
	}
	for _, r := range s.data.Releases {
		top = max(top, r.ID)
	}
	for _, c := range s.data.Collections {
		top = max(top, c.ID)
	}
	for _, i := range s.data.Items {
		top = max(top, i.ID)
	}
	return top
}

func (s *Server) listPlatformGroups(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := slices.Clone(s.data.PlatformGroups)
	s.mu.Unlock()
	serveList(s, w, r, rows, nil)
}

func (s *Server) listPlatforms(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]catalog.Platform, 0, len(s.data.Platforms))
	for _, p := range s.data.Platforms {
		if g, ok := s.findGroup(p.PlatformGroupID); ok {
			p.PlatformGroup = &g
		}
		rows = append(rows, p)
	}
	s.mu.Unlock()
	serveList(s, w, r, rows, []string{"platform_group"})
}

func (s *Server) listReleases(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]catalog.Release, 0, len(s.data.Releases))
	for _, rel := range s.data.Releases {
		if p, ok := s.findPlatform(rel.PlatformID); ok {
			rel.Platform = &p
		}
		rows = append(rows, rel)
	}
	s.mu.Unlock()
	serveList(s, w, r, rows, []string{"platform"})
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rows := make([]catalog.Collection, 0, len(s.data.Collections))
	for _, c := range s.data.Collections {
		c.TotalItems = s.countItems(c.ID)
		rows = append(rows, c)
	}
	s.mu.Unlock()
	serveList(s, w, r, rows, nil)
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	if _, found := s.findCollection(collectionID); !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}
	var rows []catalog.CollectionItem
	for _, item := range s.data.Items {
		if item.CollectionID != collectionID {
			continue
		}
		if rel, ok := s.findRelease(item.ReleaseID); ok {
			item.Release = &rel
		}
		rows = append(rows, item)
	}
	s.mu.Unlock()
	serveList(s, w, r, rows, []string{"release"})
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var in catalog.CollectionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name required")
		return
	}
	s.mu.Lock()
	c := catalog.Collection{ID: s.nextID, Name: in.Name, Description: in.Description, Public: in.Public}
	s.nextID++
	s.data.Collections = append(s.data.Collections, c)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in catalog.CollectionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.data.Collections {
		if s.data.Collections[i].ID != id {
			continue
		}
		c := &s.data.Collections[i]
		c.Name, c.Description, c.Public = in.Name, in.Description, in.Public
		out := *c
		out.TotalItems = s.countItems(id)
		writeJSON(w, http.StatusOK, out)
		return
	}
	writeError(w, http.StatusNotFound, "collection not found")
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.data.Collections)
	s.data.Collections = slices.DeleteFunc(s.data.Collections, func(c catalog.Collection) bool { return c.ID == id })
	if len(s.data.Collections) == before {
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}
	s.data.Items = slices.DeleteFunc(s.data.Items, func(i catalog.CollectionItem) bool { return i.CollectionID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		ReleaseID int64  `json:"release_id"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.findCollection(collectionID); !found {
		writeError(w, http.StatusNotFound, "collection not found")
		return
	}
	rel, found := s.findRelease(in.ReleaseID)
	if !found {
		writeError(w, http.StatusUnprocessableEntity, "unknown release")
		return
	}
	item := catalog.CollectionItem{
		ID:           s.nextID,
		CollectionID: collectionID,
		ReleaseID:    in.ReleaseID,
		Notes:        in.Notes,
		AddedAt:      s.now().UTC().Format(time.RFC3339),
	}
	s.nextID++
	s.data.Items = append(s.data.Items, item)
	item.Release = &rel
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	collectionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.data.Items)
	s.data.Items = slices.DeleteFunc(s.data.Items, func(i catalog.CollectionItem) bool {
		return i.ID == itemID && i.CollectionID == collectionID
	})
	if len(s.data.Items) == before {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) findGroup(id int64) (catalog.PlatformGroup, bool) {
	for _, g := range s.data.PlatformGroups {
		if g.ID == id {
			return g, true
		}
	}
	return catalog.PlatformGroup{}, false
}

func (s *Server) findPlatform(id int64) (catalog.Platform, bool) {
	for _, p := range s.data.Platforms {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Platform{}, false
}

func (s *Server) findRelease(id int64) (catalog.Release, bool) {
	for _, r := range s.data.Releases {
		if r.ID == id {
			return r, true
		}
	}
	return catalog.Release{}, false
}

func (s *Server) findCollection(id int64) (catalog.Collection, bool) {
	for _, c := range s.data.Collections {
		if c.ID == id {
			return c, true
		}
	}
	return catalog.Collection{}, false
}

func (s *Server) countItems(collectionID int64) int {
	n := 0
	for _, i := range s.data.Items {
		if i.CollectionID == collectionID {
			n++
		}
	}
	return n
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
