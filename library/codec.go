package library

import (
	"strconv"
	"strings"
)

const fieldSep = ","

// Line formats:
//
//	user:        id,name,secret,role
//	book:        bookId,title,author,available
//	transaction: transactionId,userId,bookId,dateBorrowed,dateReturned

func encodeUser(u *User) string {
	return strings.Join([]string{u.ID, u.Name, u.Secret, string(u.Role)}, fieldSep)
}

func decodeUser(line string) (*User, bool) {
	parts := strings.Split(line, fieldSep)
	if len(parts) != 4 {
		return nil, false
	}
	return &User{ID: parts[0], Name: parts[1], Secret: parts[2], Role: Role(parts[3])}, true
}

func encodeBook(b *Book) string {
	return strings.Join([]string{b.ID, b.Title, b.Author, strconv.FormatBool(b.Available)}, fieldSep)
}

func decodeBook(line string) (*Book, bool) {
	parts := strings.Split(line, fieldSep)
	if len(parts) != 4 {
		return nil, false
	}
	return &Book{
		ID:        parts[0],
		Title:     parts[1],
		Author:    parts[2],
		Available: strings.EqualFold(parts[3], "true"),
	}, true
}

func encodeTransaction(t *Transaction) string {
	return strings.Join([]string{t.ID, t.UserID, t.BookID, t.DateBorrowed, t.DateReturned}, fieldSep)
}

func decodeTransaction(line string) (*Transaction, bool) {
	parts := strings.Split(line, fieldSep)
	if len(parts) != 5 {
		return nil, false
	}
	return &Transaction{
		ID:           parts[0],
		UserID:       parts[1],
		BookID:       parts[2],
		DateBorrowed: parts[3],
		DateReturned: parts[4],
	}, true
}
