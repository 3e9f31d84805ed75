package library

import "time"

// Policy constants. None of these are configurable.
const (
	// BorrowLimit is the maximum number of simultaneous loans per user.
	BorrowLimit = 3

	TransactionIDPrefix = "T"
	TransactionIDWidth  = 3

	// NotReturned is the returned-date sentinel of an active transaction.
	NotReturned = "null"

	// DateLayout formats borrow and return dates.
	DateLayout = time.DateOnly
)

// Role gates what a session may do.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// Book is a catalog entry. Available is false while a loan is active.
type Book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
}

// User is a registered account. Borrowed holds the ids of books currently on
// loan to the user, in borrow order.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Secret   string   `json:"-"` // plaintext or bcrypt hash
	Role     Role     `json:"role"`
	Borrowed []string `json:"borrowed"`
}

// HasBorrowed reports whether bookID is in the user's borrowed set.
func (u *User) HasBorrowed(bookID string) bool {
	for _, id := range u.Borrowed {
		if id == bookID {
			return true
		}
	}
	return false
}

func (u *User) addBorrowed(bookID string) {
	if !u.HasBorrowed(bookID) {
		u.Borrowed = append(u.Borrowed, bookID)
	}
}

func (u *User) removeBorrowed(bookID string) {
	for i, id := range u.Borrowed {
		if id == bookID {
			u.Borrowed = append(u.Borrowed[:i], u.Borrowed[i+1:]...)
			return
		}
	}
}

// Transaction is one borrow/return record of the audit log.
type Transaction struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	BookID       string `json:"book_id"`
	DateBorrowed string `json:"date_borrowed"`
	DateReturned string `json:"date_returned"`
}

// Active reports whether the loan has not been returned yet.
func (t *Transaction) Active() bool { return t.DateReturned == NotReturned }

// Session identifies who is driving the current sequence of operations.
type Session struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the session may use catalog operations.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// BookUpdate carries the fields to change on a book; nil fields are left as is.
type BookUpdate struct {
	Title  *string
	Author *string
}

// UserUpdate carries the fields to change on a user; nil fields are left as is.
type UserUpdate struct {
	Name   *string
	Secret *string
	Role   *Role
}
