package apitest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atinyakov/GophNotes/internal/middleware"
	"github.com/atinyakov/GophNotes/internal/models"
	"github.com/go-chi/chi/v5"
)

// token handles POST /auth/token with a form-encoded username (email) and password.
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	email, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	s.mu.Lock()
	u, ok := s.users[email]
	if !ok || u.password != password {
		s.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	tok := newToken()
	s.tokens[tok] = u.account.ID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: tok, TokenType: "bearer"})
}

// createUser handles POST /users.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "username, email and password are required"}},
		})
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	acc := s.addUserLocked(req.Username, req.Email, req.Password)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, acc)
}

// me handles GET /users/me.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.account.ID == id {
			writeJSON(w, http.StatusOK, u.account)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

// listNotes handles GET /notes?owner=<me|id>.
func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	id := currentUser(r)
	owner := r.URL.Query().Get("owner")
	switch owner {
	case models.OwnerMe:
	case strconv.FormatInt(id, 10):
	case "":
		writeDetail(w, http.StatusBadRequest, "owner is required")
		return
	default:
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}

	s.mu.Lock()
	notes := s.notesOfLocked(id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, notes)
}

// createNote handles POST /notes.
func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeNoteInput(w, r)
	if !ok {
		return
	}
	id := currentUser(r)

	s.mu.Lock()
	s.nextNote++
	n := models.Note{ID: s.nextNote, Title: in.Title, Description: in.Description}
	s.notes = append(s.notes, ownedNote{note: n, owner: id})
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, n)
}

// getNote handles GET /notes/{id}.
func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(currentUser(r), noteID)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Note not found")
		return
	}
	writeJSON(w, http.StatusOK, s.notes[i].note)
}

// updateNote handles PUT /notes/{id}.
func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}
	in, ok := decodeNoteInput(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(currentUser(r), noteID)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Note not found")
		return
	}
	s.notes[i].note.Title = in.Title
	s.notes[i].note.Description = in.Description
	writeJSON(w, http.StatusOK, s.notes[i].note)
}

// deleteNote handles DELETE /notes/{id}.
func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(currentUser(r), noteID)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Note not found")
		return
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func currentUser(r *http.Request) int64 {
	id, _ := strconv.ParseInt(middleware.GetUserIDFromContext(r.Context()), 10, 64)
	return id
}

func noteIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid note id")
		return 0, false
	}
	return id, true
}

func decodeNoteInput(w http.ResponseWriter, r *http.Request) (models.NoteInput, bool) {
	var in models.NoteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid body")
		return models.NoteInput{}, false
	}
	if in.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return models.NoteInput{}, false
	}
	return in, true
}
