// Package apitest runs an in-memory implementation of the notes REST API for
// tests. It issues real bearer tokens, scopes notes by owner and lets tests
// inject failures and count calls.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/atinyakov/GophNotes/internal/middleware"
	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type user struct {
	account  models.Account
	password string
}

type failure struct {
	status int
	detail string
}

type ownedNote struct {
	note  models.Note
	owner int64
}

// Server is an httptest server speaking the notes API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*user // by email
	tokens   map[string]int64 // token -> account id
	notes    []ownedNote      // in creation order
	nextUser int64
	nextNote int64
	calls    map[string]int
	failures map[string]failure
}

// New starts a Server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := NewUnstarted(zaptest.NewLogger(t))
	s.Start()
	t.Cleanup(s.Close)
	return s
}

// NewUnstarted returns a Server whose listener has not been started yet.
func NewUnstarted(log *zap.Logger) *Server {
	s := &Server{
		users:    make(map[string]*user),
		tokens:   make(map[string]int64),
		calls:    make(map[string]int),
		failures: make(map[string]failure),
	}
	s.Server = httptest.NewUnstartedServer(s.router(log))
	return s
}

// router mounts the public and the bearer-protected routes.
func (s *Server) router(log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(log))
	r.Use(s.record)

	r.Post("/auth/token", s.token)
	r.Post("/users", s.createUser)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(s))
		r.Get("/users/me", s.me)
		r.Route("/notes", func(r chi.Router) {
			r.Get("/", s.listNotes)
			r.Post("/", s.createNote)
			r.Get("/{id}", s.getNote)
			r.Put("/{id}", s.updateNote)
			r.Delete("/{id}", s.deleteNote)
		})
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, password)
}

func (s *Server) addUserLocked(username, email, password string) models.Account {
	s.nextUser++
	acc := models.Account{ID: s.nextUser, Username: username, Email: email}
	s.users[email] = &user{account: acc, password: password}
	return acc
}

// SetToken makes token valid for accountID.
func (s *Server) SetToken(token string, accountID int64) {
	s.mu.Lock()
	s.tokens[token] = accountID
	s.mu.Unlock()
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.tokens = make(map[string]int64)
	s.mu.Unlock()
}

// AddNote stores a note for ownerID and returns it with its assigned id.
func (s *Server) AddNote(ownerID int64, title, description string) models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNote++
	n := models.Note{ID: s.nextNote, Title: title, Description: description}
	s.notes = append(s.notes, ownedNote{note: n, owner: ownerID})
	return n
}

// SetNextNoteID makes the next created note receive id.
func (s *Server) SetNextNoteID(id int64) {
	s.mu.Lock()
	s.nextNote = id - 1
	s.mu.Unlock()
}

// Notes returns the notes of ownerID as stored on the server.
func (s *Server) Notes(ownerID int64) []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notesOfLocked(ownerID)
}

// Fail makes every "METHOD /path" request answer status with a {"detail"} body.
func (s *Server) Fail(method, path string, status int, detail string) {
	s.mu.Lock()
	s.failures[method+" "+path] = failure{status: status, detail: detail}
	s.mu.Unlock()
}

// Recover removes a failure installed by Fail.
func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	delete(s.failures, method+" "+path)
	s.mu.Unlock()
}

// Calls returns how many "METHOD /path" requests were received.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// UserForToken implements middleware.TokenValidator.
func (s *Server) UserForToken(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return "", false
	}
	return strconv.FormatInt(id, 10), true
}

// record counts the request and answers injected failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[key]++
		f, failing := s.failures[key]
		s.mu.Unlock()

		if failing {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) notesOfLocked(ownerID int64) []models.Note {
	out := []models.Note{}
	for _, on := range s.notes {
		if on.owner == ownerID {
			out = append(out, on.note)
		}
	}
	return out
}

func (s *Server) findLocked(ownerID, id int64) int {
	for i, on := range s.notes {
		if on.note.ID == id && on.owner == ownerID {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func newToken() string {
	return uuid.NewString()
}
