package notes

import "fmt"

// FetchError reports a failed read: network failure, non-2xx response or a
// malformed payload.
type FetchError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return "fetch notes (" + e.Op + "): " + e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// WriteError reports a failed create, update or delete.
type WriteError struct {
	Op  string
	ID  int64
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s note %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s note: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *WriteError) Unwrap() error {
	return e.Err
}
