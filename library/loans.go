package library

import (
	"fmt"

	"go.uber.org/zap"
)

// Borrow lends bookID to userID. The borrow limit is checked before the book
// is looked up. Every check runs before the first mutation, so a failed
// borrow leaves the store untouched.
func (l *Library) Borrow(userID, bookID string) (*Transaction, error) {
	user := l.store.FindUser(userID)
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}
	if len(user.Borrowed) >= BorrowLimit {
		return nil, fmt.Errorf("%w: %d of %d", ErrBorrowLimitReached, len(user.Borrowed), BorrowLimit)
	}
	book := l.store.FindBook(bookID)
	if book == nil {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, bookID)
	}
	if !book.Available {
		return nil, fmt.Errorf("%w: %q", ErrBookUnavailable, bookID)
	}

	tx := &Transaction{
		ID:           l.store.NextTransactionID(),
		UserID:       userID,
		BookID:       bookID,
		DateBorrowed: l.today(),
		DateReturned: NotReturned,
	}
	l.store.AppendTransaction(tx)
	book.Available = false
	user.addBorrowed(bookID)

	l.logger.Info("book borrowed",
		zap.String("transaction", tx.ID), zap.String("user", userID), zap.String("book", bookID))
	return tx, nil
}

// Return takes bookID back from userID and closes the matching transaction.
//
// If the user holds the book but no active transaction exists, the book and
// user are still updated, the log is left alone, a warning is logged and the
// returned transaction is nil.
func (l *Library) Return(userID, bookID string) (*Transaction, error) {
	user := l.store.FindUser(userID)
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}
	if !user.HasBorrowed(bookID) {
		return nil, fmt.Errorf("%w: %q", ErrNotBorrowedByUser, bookID)
	}
	book := l.store.FindBook(bookID)
	if book == nil {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, bookID)
	}

	tx := l.store.FindActiveTransaction(userID, bookID)
	if tx != nil {
		tx.DateReturned = l.today()
	} else {
		l.logger.Warn("no active transaction for returned book; log left unchanged",
			zap.String("user", userID), zap.String("book", bookID))
	}
	book.Available = true
	user.removeBorrowed(bookID)

	l.logger.Info("book returned", zap.String("user", userID), zap.String("book", bookID))
	return tx, nil
}
