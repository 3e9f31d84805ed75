package library

import (
	"fmt"
	"iter"
	"sync"

	"go.uber.org/zap"
)

// LibraryManager is a thin façade over Library and its Persister, keeping CLI
// code simple. Its methods are serialized so a shutdown-triggered Save never
// interleaves with a menu action.
type LibraryManager struct {
	mu        sync.Mutex
	lib       *Library
	persister Persister
	logger    *zap.Logger
}

// NewLibraryManager loads the store through p. Load failures are logged as
// warnings and the manager starts with whatever was read.
func NewLibraryManager(p Persister, logger *zap.Logger, opts ...Option) *LibraryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := NewStore()
	if err := p.Load(store); err != nil {
		logger.Warn("loading library data", zap.Error(err))
	}
	opts = append([]Option{WithLogger(logger)}, opts...)
	return &LibraryManager{
		lib:       NewLibrary(store, opts...),
		persister: p,
		logger:    logger,
	}
}

// Save writes all collections. Failures are logged as warnings and returned.
func (lm *LibraryManager) Save() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.persister.Save(lm.lib.Store()); err != nil {
		lm.logger.Warn("saving library data", zap.Error(err))
		return err
	}
	return nil
}

// Close releases the persister if it holds resources.
func (lm *LibraryManager) Close() error {
	if c, ok := lm.persister.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// ------------------ Session ------------------

// Login resolves credentials to a session.
func (lm *LibraryManager) Login(name, secret string) (Session, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	u, ok := lm.lib.Authenticate(name, secret)
	if !ok {
		lm.logger.Info("failed login", zap.String("name", name))
		return Session{}, ErrInvalidCredentials
	}
	return Session{UserID: u.ID, Role: u.Role}, nil
}

// Refresh re-reads the role behind sess. A deleted account gets no role.
func (lm *LibraryManager) Refresh(sess Session) Session {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if u := lm.lib.Store().FindUser(sess.UserID); u != nil {
		return Session{UserID: u.ID, Role: u.Role}
	}
	return Session{UserID: sess.UserID}
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(sess Session, b Book) (*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.AddBook(sess, b)
}

func (lm *LibraryManager) UpdateBook(sess Session, id string, upd BookUpdate) (*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.UpdateBook(sess, id, upd)
}

func (lm *LibraryManager) DeleteBook(sess Session, id string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.DeleteBook(sess, id)
}

func (lm *LibraryManager) GetBook(id string) (*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if b := lm.lib.Store().FindBook(id); b != nil {
		return b, nil
	}
	return nil, fmt.Errorf("%w: book %q", ErrNotFound, id)
}

func (lm *LibraryManager) GetAllBooks() []*Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]*Book(nil), lm.lib.Store().Books()...)
}

// SearchBooks collects the matches so the caller never ranges over the store
// without holding the lock.
func (lm *LibraryManager) SearchBooks(query string, field SearchField) []*Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return collect(lm.lib.SearchBooks(query, field))
}

func collect(seq iter.Seq[*Book]) []*Book {
	var out []*Book
	for b := range seq {
		out = append(out, b)
	}
	return out
}

// ------------------ User helpers ------------------

func (lm *LibraryManager) AddUser(sess Session, u User) (*User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.AddUser(sess, u)
}

func (lm *LibraryManager) UpdateUser(sess Session, id string, upd UserUpdate) (*User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.UpdateUser(sess, id, upd)
}

func (lm *LibraryManager) DeleteUser(sess Session, id string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.DeleteUser(sess, id)
}

func (lm *LibraryManager) GetUser(id string) (*User, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if u := lm.lib.Store().FindUser(id); u != nil {
		return u, nil
	}
	return nil, fmt.Errorf("%w: user %q", ErrNotFound, id)
}

func (lm *LibraryManager) GetAllUsers() []*User {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]*User(nil), lm.lib.Store().Users()...)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Borrow(sess Session, bookID string) (*Transaction, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.Borrow(sess.UserID, bookID)
}

// Return closes the session user's loan of bookID. A nil transaction with a
// nil error means the loan had no log entry to close.
func (lm *LibraryManager) Return(sess Session, bookID string) (*Transaction, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.Return(sess.UserID, bookID)
}

func (lm *LibraryManager) BorrowedBooks(sess Session) ([]*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.BorrowedBooks(sess.UserID)
}

// ------------------ Transactions ------------------

func (lm *LibraryManager) GetAllTransactions() []*Transaction {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]*Transaction(nil), lm.lib.Store().Transactions()...)
}

func (lm *LibraryManager) TransactionsByUser(userID string) []*Transaction {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.TransactionsByUser(userID)
}

func (lm *LibraryManager) TransactionsByBook(bookID string) []*Transaction {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.lib.TransactionsByBook(bookID)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	status := "Available"
	if !b.Available {
		status = "Borrowed"
	}
	return fmt.Sprintf("%-6s %-30s %-25s %s", b.ID, truncate(b.Title, 30), truncate(b.Author, 25), status)
}

// PrettyUser formats a user for lists.
func PrettyUser(u *User) string {
	return fmt.Sprintf("%-6s %-25s %-6s %d borrowed", u.ID, truncate(u.Name, 25), u.Role, len(u.Borrowed))
}

// PrettyTransaction formats a log entry for lists.
func PrettyTransaction(t *Transaction) string {
	returned := t.DateReturned
	if t.Active() {
		returned = "Not Returned"
	}
	return fmt.Sprintf("%-6s %-6s %-6s %-12s %s", t.ID, t.UserID, t.BookID, t.DateBorrowed, returned)
}

func truncate(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}
