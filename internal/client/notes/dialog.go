package notes

import (
	"context"
	"fmt"

	"github.com/atinyakov/GophNotes/internal/models"
)

// DialogKind identifies the in-progress action on a note.
type DialogKind int

const (
	// DialogNone means no dialog is open.
	DialogNone DialogKind = iota
	// DialogCreate drafts a new note.
	DialogCreate
	// DialogEdit edits an existing note.
	DialogEdit
	// DialogDelete confirms the removal of a note.
	DialogDelete
)

// String returns the dialog name.
func (k DialogKind) String() string {
	switch k {
	case DialogNone:
		return "none"
	case DialogCreate:
		return "create"
	case DialogEdit:
		return "edit"
	case DialogDelete:
		return "delete"
	default:
		return fmt.Sprintf("DialogKind(%d)", int(k))
	}
}

// Dialog is the open dialog and its draft. When Kind is DialogNone the draft is empty.
type Dialog struct {
	Kind  DialogKind
	Draft models.Note
}

// Dialog returns the current dialog state.
func (s *Store) Dialog() Dialog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dialog
}

// OpenDialog opens a dialog of kind, replacing any open one. A create dialog
// starts from note, or from a blank draft when note is nil. Edit and delete
// dialogs need a note with an id; with refetch on open they use the server's
// current copy of it.
func (s *Store) OpenDialog(ctx context.Context, kind DialogKind, note *models.Note) error {
	var draft models.Note
	switch kind {
	case DialogCreate:
		if note != nil {
			draft = models.Note{Title: note.Title, Description: note.Description}
		}
	case DialogEdit, DialogDelete:
		if note == nil || note.ID <= 0 {
			return fmt.Errorf("%w: %s dialog needs an existing note", ErrInvalidDraft, kind)
		}
		draft = *note
		if s.refetchOnOpen {
			fresh, err := s.Get(ctx, note.ID)
			if err != nil {
				return err
			}
			draft = fresh
		}
	default:
		return fmt.Errorf("%w: cannot open %s dialog", ErrInvalidDraft, kind)
	}

	s.mu.Lock()
	s.dialog = Dialog{Kind: kind, Draft: draft}
	s.mu.Unlock()
	return nil
}

// CloseDialog discards the open dialog and its draft.
func (s *Store) CloseDialog() {
	s.mu.Lock()
	s.dialog = Dialog{}
	s.mu.Unlock()
}

// SetDraft changes the title and description of the open create or edit dialog.
func (s *Store) SetDraft(title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.dialog.Kind {
	case DialogCreate, DialogEdit:
		s.dialog.Draft.Title = title
		s.dialog.Draft.Description = description
		return nil
	default:
		return fmt.Errorf("%w: no editable dialog open", ErrInvalidDraft)
	}
}

// Submit performs the action of the open dialog with its draft.
func (s *Store) Submit(ctx context.Context) error {
	d := s.Dialog()
	var err error
	switch d.Kind {
	case DialogCreate:
		_, err = s.Create(ctx, d.Draft.Title, d.Draft.Description)
	case DialogEdit:
		_, err = s.Update(ctx, d.Draft.ID, d.Draft.Title, d.Draft.Description)
	case DialogDelete:
		err = s.Remove(ctx, d.Draft.ID)
	default:
		err = fmt.Errorf("%w: no dialog open", ErrInvalidDraft)
	}
	return err
}

// closeLocked closes the dialog if it is of kind and, for edit and delete,
// targets id.
func (s *Store) closeLocked(kind DialogKind, id int64) {
	if s.dialog.Kind != kind {
		return
	}
	if kind != DialogCreate && s.dialog.Draft.ID != id {
		return
	}
	s.dialog = Dialog{}
}
