// Package models defines the data structures exchanged with the notes API.
package models

// Account represents a user account as returned by the API.
type Account struct {
	// ID is the server-assigned identifier of the account.
	ID int64 `json:"id"`
	// Username is the display name chosen at registration.
	Username string `json:"username"`
	// Email is the login email of the account.
	Email string `json:"email"`
}

// Registration represents the JSON payload for account registration.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the body returned by the token endpoint.
type TokenResponse struct {
	// AccessToken is the opaque bearer token.
	AccessToken string `json:"access_token"`
	// TokenType is usually "bearer".
	TokenType string `json:"token_type,omitempty"`
}

// Note is a single note owned by the current account.
type Note struct {
	// ID is assigned by the server. Zero means the note has not been created yet.
	ID int64 `json:"id"`
	// Title is the note headline.
	Title string `json:"title"`
	// Description holds the note body.
	Description string `json:"description"`
}

// NoteInput is the payload for creating or updating a note.
type NoteInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// OwnerMe is the owner filter that lets the server resolve the current account.
const OwnerMe = "me"
