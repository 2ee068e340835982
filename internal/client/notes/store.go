// Package notes keeps the in-memory collection of the account's notes and the
// state of the note dialog, and mediates every change through the API.
package notes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/atinyakov/GophNotes/internal/client/api"
	"github.com/atinyakov/GophNotes/internal/client/status"
	"github.com/atinyakov/GophNotes/internal/models"
	"go.uber.org/zap"
)

// ErrInvalidDraft is returned when a dialog would be opened or submitted with
// a draft that does not fit its kind.
var ErrInvalidDraft = errors.New("invalid note draft")

// AccountResolver yields the id of the current account.
type AccountResolver interface {
	AccountID(ctx context.Context) (int64, error)
}

// Option configures a Store.
type Option func(*Store)

// WithOwnerID scopes List by the account's numeric id instead of models.OwnerMe.
func WithOwnerID(r AccountResolver) Option {
	return func(s *Store) { s.resolver = r }
}

// WithRefetchOnOpen controls whether edit and delete dialogs reload the note
// from the server before opening. Enabled by default.
func WithRefetchOnOpen(enabled bool) Option {
	return func(s *Store) { s.refetchOnOpen = enabled }
}

// Store is the local copy of the account's notes. Successful mutations patch
// the collection in place. Failed operations leave it untouched.
// All methods are safe for concurrent use.
type Store struct {
	api           *api.Client
	status        *status.Status
	log           *zap.Logger
	resolver      AccountResolver
	refetchOnOpen bool

	mu     sync.RWMutex
	notes  []models.Note
	dialog Dialog
}

// NewStore creates an empty Store.
func NewStore(client *api.Client, st *status.Status, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		api:           client,
		status:        st,
		log:           log,
		refetchOnOpen: true,
		notes:         []models.Note{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notes returns a copy of the collection in server order.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notes)
}

// Find returns the local copy of the note with id.
func (s *Store) Find(id int64) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.notes[i], true
	}
	return models.Note{}, false
}

// List fetches the account's notes and replaces the collection.
func (s *Store) List(ctx context.Context) ([]models.Note, error) {
	done := s.status.Begin()
	defer done()

	owner, err := s.owner(ctx)
	if err != nil {
		return nil, s.fetchFailed("list", err)
	}
	notes, err := s.api.ListNotes(ctx, owner)
	if err != nil {
		return nil, s.fetchFailed("list", err)
	}

	s.mu.Lock()
	s.notes = notes
	s.mu.Unlock()

	s.log.Debug("notes loaded", zap.Int("count", len(notes)), zap.String("owner", owner))
	return slices.Clone(notes), nil
}

// Get fetches one note from the server without touching the collection.
func (s *Store) Get(ctx context.Context, id int64) (models.Note, error) {
	done := s.status.Begin()
	defer done()

	n, err := s.api.GetNote(ctx, id)
	if err != nil {
		return models.Note{}, s.fetchFailed("get", err)
	}
	return n, nil
}

// Create adds a note and appends the server's copy to the collection.
// An open create dialog is closed.
func (s *Store) Create(ctx context.Context, title, description string) (models.Note, error) {
	done := s.status.Begin()
	defer done()

	n, err := s.api.CreateNote(ctx, models.NoteInput{Title: title, Description: description})
	if err != nil {
		return models.Note{}, s.writeFailed("create", 0, err)
	}

	s.mu.Lock()
	s.notes = append(s.notes, n)
	s.closeLocked(DialogCreate, 0)
	s.mu.Unlock()

	s.log.Info("note created", zap.Int64("id", n.ID))
	return n, nil
}

// Update replaces the title and description of note id and swaps the
// server's copy into the collection. A note that is not in the collection,
// for instance one removed while the request was in flight, is not added
// back. An open edit dialog for it is closed.
func (s *Store) Update(ctx context.Context, id int64, title, description string) (models.Note, error) {
	if id <= 0 {
		return models.Note{}, s.writeFailed("update", id, fmt.Errorf("%w: id %d", ErrInvalidDraft, id))
	}

	done := s.status.Begin()
	defer done()

	n, err := s.api.UpdateNote(ctx, id, models.NoteInput{Title: title, Description: description})
	if err != nil {
		return models.Note{}, s.writeFailed("update", id, err)
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.notes[i] = n
	}
	s.closeLocked(DialogEdit, id)
	s.mu.Unlock()

	s.log.Info("note updated", zap.Int64("id", id))
	return n, nil
}

// Remove deletes note id and drops it from the collection. An open delete
// dialog for it is closed.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if id <= 0 {
		return s.writeFailed("delete", id, fmt.Errorf("%w: id %d", ErrInvalidDraft, id))
	}

	done := s.status.Begin()
	defer done()

	if err := s.api.DeleteNote(ctx, id); err != nil {
		return s.writeFailed("delete", id, err)
	}

	s.mu.Lock()
	s.notes = slices.DeleteFunc(s.notes, func(n models.Note) bool { return n.ID == id })
	s.closeLocked(DialogDelete, id)
	s.mu.Unlock()

	s.log.Info("note deleted", zap.Int64("id", id))
	return nil
}

func (s *Store) owner(ctx context.Context) (string, error) {
	if s.resolver == nil {
		return models.OwnerMe, nil
	}
	id, err := s.resolver.AccountID(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve owner: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) indexLocked(id int64) int {
	return slices.IndexFunc(s.notes, func(n models.Note) bool { return n.ID == id })
}

func (s *Store) fetchFailed(op string, err error) error {
	s.log.Warn("fetch failed", zap.String("op", op), zap.Error(err))
	s.status.SetError(api.Message(err))
	return &FetchError{Op: op, Err: err}
}

func (s *Store) writeFailed(op string, id int64, err error) error {
	s.log.Warn("write failed", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
	s.status.SetError(api.Message(err))
	return &WriteError{Op: op, ID: id, Err: err}
}
