package library

import (
	"fmt"
	"strconv"
	"strings"
)

// Store holds the three record collections in memory, in insertion order.
// It is a plain container: uniqueness and referential checks belong to Library.
type Store struct {
	books        []*Book
	users        []*User
	transactions []*Transaction
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

func (s *Store) Books() []*Book               { return s.books }
func (s *Store) Users() []*User               { return s.users }
func (s *Store) Transactions() []*Transaction { return s.transactions }

// FindBook returns the first book with the given id, or nil.
func (s *Store) FindBook(id string) *Book {
	for _, b := range s.books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// FindUser returns the first user with the given id, or nil.
func (s *Store) FindUser(id string) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// FindActiveTransaction returns the first unreturned transaction binding
// userID to bookID, or nil.
func (s *Store) FindActiveTransaction(userID, bookID string) *Transaction {
	for _, t := range s.transactions {
		if t.UserID == userID && t.BookID == bookID && t.Active() {
			return t
		}
	}
	return nil
}

func (s *Store) InsertBook(b *Book)               { s.books = append(s.books, b) }
func (s *Store) InsertUser(u *User)               { s.users = append(s.users, u) }
func (s *Store) AppendTransaction(t *Transaction) { s.transactions = append(s.transactions, t) }

// RemoveBook deletes the first book with id and reports whether one was found.
func (s *Store) RemoveBook(id string) bool {
	for i, b := range s.books {
		if b.ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveUser deletes the first user with id and reports whether one was found.
func (s *Store) RemoveUser(id string) bool {
	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return true
		}
	}
	return false
}

// NextTransactionID returns one past the highest numeric suffix among the
// existing transaction ids, e.g. T004 after {T001, T003}. Ids without a
// numeric suffix are ignored.
func (s *Store) NextTransactionID() string {
	highest := 0
	for _, t := range s.transactions {
		n, err := strconv.Atoi(strings.TrimPrefix(t.ID, TransactionIDPrefix))
		if err != nil || !strings.HasPrefix(t.ID, TransactionIDPrefix) {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%0*d", TransactionIDPrefix, TransactionIDWidth, highest+1)
}

// reset drops every record. Persisters call it before loading.
func (s *Store) reset() {
	s.books = nil
	s.users = nil
	s.transactions = nil
}

// restoreLoan re-derives a user's borrowed set from an active transaction
// read back from storage.
func (s *Store) restoreLoan(t *Transaction) {
	if !t.Active() {
		return
	}
	if u := s.FindUser(t.UserID); u != nil {
		u.addBorrowed(t.BookID)
	}
}
