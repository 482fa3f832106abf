package library

import "errors"

// Error represents a domain error from engine operations.
//
// These are business logic errors (entry not found, name taken, document
// corrupt) as opposed to infrastructure errors (disk failure), which are
// wrapped and propagated as plain errors.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the filesystem path or key related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a domain error.
type ErrorCode int

const (
	// ErrLibraryNotFound indicates the addressed library is not registered
	ErrLibraryNotFound ErrorCode = iota

	// ErrLibraryExists indicates a library with the name is already registered
	ErrLibraryExists

	// ErrEntryNotFound indicates an operation addressed a key absent from the store
	ErrEntryNotFound

	// ErrEntryExists indicates an entry already occupies the key
	ErrEntryExists

	// ErrFileExists indicates a file already occupies the destination path
	ErrFileExists

	// ErrCouldNotRename indicates the underlying filesystem rename/move failed;
	// in-memory state is left unchanged when this is returned
	ErrCouldNotRename

	// ErrNotDirectory indicates a path expected to be a directory is not
	// one, or does not exist
	ErrNotDirectory

	// ErrCouldNotParse indicates the registry configuration document failed to decode
	ErrCouldNotParse

	// ErrCorruptMetadata indicates a persisted entry document failed to decode
	ErrCorruptMetadata

	// ErrDirNotEmpty indicates the destination of a library move already
	// contains content
	ErrDirNotEmpty

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty name, relative root path
	ErrInvalidArgument

	// ErrIOError indicates an I/O error occurred reading or writing
	// entry documents or library files
	ErrIOError
)

// newError builds an Error value.
func newError(code ErrorCode, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// CodeOf extracts the domain error code from err, unwrapping as needed.
// The second return value is false if err carries no domain code.
func CodeOf(err error) (ErrorCode, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code ErrorCode) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}
