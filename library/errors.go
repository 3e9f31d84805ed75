package library

import "errors"

// Outcomes of catalog and loan operations. Callers match them with errors.Is;
// returned errors wrap them with the offending identifier.
var (
	ErrDuplicateIdentifier = errors.New("identifier already exists")
	ErrNotFound            = errors.New("not found")
	ErrBookOnLoan          = errors.New("book is on loan")
	ErrSelfDeletion        = errors.New("cannot delete the signed-in user")
	ErrBorrowLimitReached  = errors.New("borrow limit reached")
	ErrBookUnavailable     = errors.New("book is unavailable")
	ErrNotBorrowedByUser   = errors.New("book not borrowed by user")

	ErrForbidden          = errors.New("operation requires admin role")
	ErrInvalidField       = errors.New("invalid field value")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid name or password")
)
