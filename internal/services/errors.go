package services

import (
	"errors"

	"gorm.io/gorm"
)

// Kind groups service errors by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Error is an expected, user-facing failure. Reason is a stable machine-readable
// code; Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same kind and reason, so that wrapped copies of a
// sentinel still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Reason == e.Reason
}

func newError(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	ErrBookNotFound      = newError(KindNotFound, "book", "book not found")
	ErrMemberNotFound    = newError(KindNotFound, "member", "member not found")
	ErrBorrowingNotFound = newError(KindNotFound, "borrowing", "borrowing not found")
	ErrAuthorNotFound    = newError(KindNotFound, "author", "author not found")
	ErrGenreNotFound     = newError(KindNotFound, "genre", "genre not found")
	ErrPublisherNotFound = newError(KindNotFound, "publisher", "publisher not found")
	ErrAdminNotFound     = newError(KindNotFound, "admin", "admin not found")
	ErrProfileNotFound   = newError(KindNotFound, "profile", "profile not found")

	ErrNoCopiesAvailable = newError(KindConflict, "noCopiesAvailable", "no copies of this book are available")
	ErrMemberInactive    = newError(KindConflict, "memberInactive", "member account is not active")
	ErrAlreadyBorrowed   = newError(KindConflict, "alreadyBorrowed", "member already has this book borrowed")
	ErrAlreadyReturned   = newError(KindConflict, "alreadyReturned", "this book has already been returned")

	ErrEmailTaken              = newError(KindConflict, "emailTaken", "email already registered")
	ErrDuplicateISBN           = newError(KindConflict, "duplicateIsbn", "a book with this ISBN already exists")
	ErrDuplicateName           = newError(KindConflict, "duplicateName", "an entry with this name already exists")
	ErrBookHasOpenBorrowings   = newError(KindConflict, "bookHasOpenBorrowings", "cannot delete book with active borrowings, return all copies first")
	ErrMemberHasOpenBorrowings = newError(KindConflict, "memberHasOpenBorrowings", "cannot deactivate member with active borrowings, return all books first")
	ErrCopiesBelowOpen         = newError(KindConflict, "copiesBelowOpen", "total copies cannot be lower than the number of copies currently borrowed")
	ErrAuthorInUse             = newError(KindConflict, "authorInUse", "cannot delete author linked to books")
	ErrGenreInUse              = newError(KindConflict, "genreInUse", "cannot delete genre linked to books")
	ErrPublisherInUse          = newError(KindConflict, "publisherInUse", "cannot delete publisher with books")
	ErrLastSuperAdmin          = newError(KindConflict, "lastSuperAdmin", "cannot delete the last super admin")
	ErrSelfDelete              = newError(KindConflict, "selfDelete", "cannot delete your own account")

	ErrInvalidCredentials = newError(KindUnauthorized, "invalidCredentials", "invalid email or password")
	ErrWrongPassword      = newError(KindUnauthorized, "wrongPassword", "current password is incorrect")
	ErrForbidden          = newError(KindForbidden, "forbidden", "access denied")
)

// MissingField reports an absent required input.
func MissingField(message string) error {
	return newError(KindInvalidArgument, "missingField", message)
}

// BadDate reports a date that is malformed or violates ordering.
func BadDate(message string) error {
	return newError(KindInvalidArgument, "badDate", message)
}

// InvalidArgument reports any other rejected input.
func InvalidArgument(message string) error {
	return newError(KindInvalidArgument, "invalid", message)
}

// KindOf returns the kind of a service error, or KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// notFound maps gorm's missing-row error to the entity's sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// duplicate maps a unique-constraint violation to the given sentinel.
func duplicate(err, sentinel error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sentinel
	}
	return err
}
