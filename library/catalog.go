package library

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Library applies catalog and loan rules on top of a Store.
type Library struct {
	store  *Store
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithClock overrides the clock used for borrow and return dates.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Library) { l.logger = logger }
}

// NewLibrary wraps store.
func NewLibrary(store *Store, opts ...Option) *Library {
	l := &Library{store: store, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store exposes the underlying record store.
func (l *Library) Store() *Store { return l.store }

func (l *Library) today() string { return l.now().Format(DateLayout) }

// requireAdmin checks the session's account as it stands now, so a role
// change or deletion takes effect on the next call.
func (l *Library) requireAdmin(sess Session) error {
	if !sess.IsAdmin() {
		return fmt.Errorf("%w: session %q", ErrForbidden, sess.UserID)
	}
	if u := l.store.FindUser(sess.UserID); u == nil || u.Role != RoleAdmin {
		return fmt.Errorf("%w: %q is no longer an admin", ErrForbidden, sess.UserID)
	}
	return nil
}

// checkField rejects values that would break the line-oriented record format.
func checkField(name, value string, required bool) error {
	if required && strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidField, name)
	}
	if strings.ContainsAny(value, ",\r\n") {
		return fmt.Errorf("%w: %s must not contain commas or line breaks", ErrInvalidField, name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

// AddBook inserts a new, available book.
func (l *Library) AddBook(sess Session, b Book) (*Book, error) {
	if err := l.requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := checkField("book id", b.ID, true); err != nil {
		return nil, err
	}
	if err := checkField("title", b.Title, false); err != nil {
		return nil, err
	}
	if err := checkField("author", b.Author, false); err != nil {
		return nil, err
	}
	if l.store.FindBook(b.ID) != nil {
		return nil, fmt.Errorf("%w: book %q", ErrDuplicateIdentifier, b.ID)
	}

	book := &Book{ID: b.ID, Title: b.Title, Author: b.Author, Available: true}
	l.store.InsertBook(book)
	l.logger.Debug("book added", zap.String("book", book.ID), zap.String("by", sess.UserID))
	return book, nil
}

// UpdateBook applies the non-nil fields of upd.
func (l *Library) UpdateBook(sess Session, id string, upd BookUpdate) (*Book, error) {
	if err := l.requireAdmin(sess); err != nil {
		return nil, err
	}
	book := l.store.FindBook(id)
	if book == nil {
		return nil, fmt.Errorf("%w: book %q", ErrNotFound, id)
	}
	if upd.Title != nil {
		if err := checkField("title", *upd.Title, false); err != nil {
			return nil, err
		}
	}
	if upd.Author != nil {
		if err := checkField("author", *upd.Author, false); err != nil {
			return nil, err
		}
	}

	if upd.Title != nil {
		book.Title = *upd.Title
	}
	if upd.Author != nil {
		book.Author = *upd.Author
	}
	return book, nil
}

// DeleteBook removes a book that is not on loan.
func (l *Library) DeleteBook(sess Session, id string) error {
	if err := l.requireAdmin(sess); err != nil {
		return err
	}
	book := l.store.FindBook(id)
	if book == nil {
		return fmt.Errorf("%w: book %q", ErrNotFound, id)
	}
	if !book.Available {
		return fmt.Errorf("%w: %q", ErrBookOnLoan, id)
	}
	l.store.RemoveBook(id)
	l.logger.Debug("book deleted", zap.String("book", id), zap.String("by", sess.UserID))
	return nil
}

// SearchField selects what SearchBooks matches against.
type SearchField int

const (
	SearchAny SearchField = iota
	SearchTitle
	SearchAuthor
)

// SearchBooks yields, in store order, the books whose title or author
// contains query, ignoring case. The sequence can be ranged over repeatedly.
func (l *Library) SearchBooks(query string, field SearchField) iter.Seq[*Book] {
	needle := strings.ToLower(query)
	return func(yield func(*Book) bool) {
		for _, b := range l.store.Books() {
			if !matches(b, needle, field) {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

func matches(b *Book, needle string, field SearchField) bool {
	title := strings.Contains(strings.ToLower(b.Title), needle)
	author := strings.Contains(strings.ToLower(b.Author), needle)
	switch field {
	case SearchTitle:
		return title
	case SearchAuthor:
		return author
	default:
		return title || author
	}
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// AddUser registers a user. The borrowed set starts empty unless the log
// still holds active loans under the same id.
func (l *Library) AddUser(sess Session, u User) (*User, error) {
	if err := l.requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := checkField("user id", u.ID, true); err != nil {
		return nil, err
	}
	if err := checkField("name", u.Name, true); err != nil {
		return nil, err
	}
	if err := checkField("password", u.Secret, false); err != nil {
		return nil, err
	}
	if !u.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, u.Role)
	}
	if l.store.FindUser(u.ID) != nil {
		return nil, fmt.Errorf("%w: user %q", ErrDuplicateIdentifier, u.ID)
	}

	user := &User{ID: u.ID, Name: u.Name, Secret: u.Secret, Role: u.Role}
	l.store.InsertUser(user)
	// A previously deleted account with this id may still hold open loans.
	for _, t := range l.store.Transactions() {
		if t.UserID == user.ID {
			l.store.restoreLoan(t)
		}
	}
	if len(user.Borrowed) > 0 {
		l.logger.Warn("re-added user still holds loans",
			zap.String("user", user.ID), zap.Strings("books", user.Borrowed))
	}
	l.logger.Debug("user added", zap.String("user", user.ID), zap.String("by", sess.UserID))
	return user, nil
}

// UpdateUser applies the non-nil fields of upd.
func (l *Library) UpdateUser(sess Session, id string, upd UserUpdate) (*User, error) {
	if err := l.requireAdmin(sess); err != nil {
		return nil, err
	}
	user := l.store.FindUser(id)
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, id)
	}
	if upd.Name != nil {
		if err := checkField("name", *upd.Name, true); err != nil {
			return nil, err
		}
	}
	if upd.Secret != nil {
		if err := checkField("password", *upd.Secret, false); err != nil {
			return nil, err
		}
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, *upd.Role)
	}

	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Secret != nil {
		user.Secret = *upd.Secret
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	return user, nil
}

// DeleteUser removes any user except the one driving sess. Active loans of
// the deleted user stay in the transaction log.
func (l *Library) DeleteUser(sess Session, id string) error {
	if err := l.requireAdmin(sess); err != nil {
		return err
	}
	user := l.store.FindUser(id)
	if user == nil {
		return fmt.Errorf("%w: user %q", ErrNotFound, id)
	}
	if user.ID == sess.UserID {
		return fmt.Errorf("%w: %q", ErrSelfDeletion, id)
	}
	if len(user.Borrowed) > 0 {
		l.logger.Warn("deleting user with active loans",
			zap.String("user", id), zap.Strings("books", user.Borrowed))
	}
	l.store.RemoveUser(id)
	return nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// TransactionsByUser returns the log entries of one user in log order.
func (l *Library) TransactionsByUser(userID string) []*Transaction {
	var out []*Transaction
	for _, t := range l.store.Transactions() {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// TransactionsByBook returns the log entries of one book in log order.
func (l *Library) TransactionsByBook(bookID string) []*Transaction {
	var out []*Transaction
	for _, t := range l.store.Transactions() {
		if t.BookID == bookID {
			out = append(out, t)
		}
	}
	return out
}

// BorrowedBooks resolves a user's borrowed set to book records, skipping ids
// that no longer resolve.
func (l *Library) BorrowedBooks(userID string) ([]*Book, error) {
	user := l.store.FindUser(userID)
	if user == nil {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
	}
	var books []*Book
	for _, id := range user.Borrowed {
		if b := l.store.FindBook(id); b != nil {
			books = append(books, b)
		}
	}
	return books, nil
}
