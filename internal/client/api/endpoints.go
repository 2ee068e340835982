package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atinyakov/GophNotes/internal/models"
)

const (
	pathToken = "/auth/token"
	pathUsers = "/users"
	pathMe    = "/users/me"
	pathNotes = "/notes"
)

// Token exchanges credentials for a bearer token. The email is sent as the
// form field "username".
func (c *Client) Token(ctx context.Context, email, password string) (models.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tok models.TokenResponse
	if err := c.PostForm(ctx, pathToken, form, &tok); err != nil {
		return models.TokenResponse{}, err
	}
	if tok.AccessToken == "" {
		return models.TokenResponse{}, &Error{
			Status:   http.StatusOK,
			Message:  "invalid response",
			Internal: errors.New("empty access_token"),
		}
	}
	return tok, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, reg models.Registration) (models.Account, error) {
	var acc models.Account
	err := c.Do(ctx, http.MethodPost, pathUsers, nil, reg, &acc)
	return acc, err
}

// Me returns the account the request is authenticated as.
func (c *Client) Me(ctx context.Context, opts ...RequestOption) (models.Account, error) {
	var acc models.Account
	err := c.Do(ctx, http.MethodGet, pathMe, nil, nil, &acc, opts...)
	return acc, err
}

// ListNotes returns the notes of owner, which is either models.OwnerMe or a
// numeric account id.
func (c *Client) ListNotes(ctx context.Context, owner string) ([]models.Note, error) {
	q := url.Values{}
	q.Set("owner", owner)

	var notes []models.Note
	if err := c.Do(ctx, http.MethodGet, pathNotes, q, nil, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// CreateNote creates a note and returns the server's copy.
func (c *Client) CreateNote(ctx context.Context, in models.NoteInput) (models.Note, error) {
	var n models.Note
	err := c.Do(ctx, http.MethodPost, pathNotes, nil, in, &n)
	return n, err
}

// GetNote fetches a single note.
func (c *Client) GetNote(ctx context.Context, id int64) (models.Note, error) {
	var n models.Note
	err := c.Do(ctx, http.MethodGet, notePath(id), nil, nil, &n)
	return n, err
}

// UpdateNote replaces the title and description of a note.
func (c *Client) UpdateNote(ctx context.Context, id int64, in models.NoteInput) (models.Note, error) {
	var n models.Note
	err := c.Do(ctx, http.MethodPut, notePath(id), nil, in, &n)
	return n, err
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, notePath(id), nil, nil, nil)
}

func notePath(id int64) string {
	return pathNotes + "/" + strconv.FormatInt(id, 10)
}
