package collection

import (
	"errors"
	"fmt"

	"staylook-store/internal/session"
)

var (
	// -- Transfer format --
	ErrKindMismatch       = errors.New("collection kind mismatch")
	ErrUnsupportedVersion = errors.New("unsupported collection schema version")
	ErrMalformedEntries   = errors.New("malformed collection entries")

	// -- Wiring --
	ErrUnknownKind   = errors.New("no storage key registered for collection kind")
	ErrMissingUserID = errors.New("authenticated session has no user id")
)

// Op names the persistence activity that failed.
type Op string

const (
	OpLoad    Op = "load"
	OpPersist Op = "persist"
	OpClear   Op = "clear"
	OpMerge   Op = "merge"
)

// Failure is a soft error: it is reported through the ErrorHandler and never
// rolls back in-memory state.
type Failure struct {
	Op      Op
	Kind    Kind
	Session session.Session
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.Op, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ErrorHandler receives every soft failure of a store. It runs on the
// goroutine that hit the failure and must not call back into the store.
type ErrorHandler func(*Failure)
