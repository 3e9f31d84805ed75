package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	adminSession = Session{UserID: "A001", Role: RoleAdmin}
	userSession  = Session{UserID: "U001", Role: RoleUser}
)

const testToday = "2024-05-01"

// newTestLibrary returns a library over the default seed with a fixed clock.
func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	s := NewStore()
	for _, u := range DefaultUsers() {
		s.InsertUser(u)
	}
	for _, b := range DefaultBooks() {
		s.InsertBook(b)
	}
	clock := func() time.Time { return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC) }
	return NewLibrary(s, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
}

func ptr[T any](v T) *T { return &v }

func TestAddBook(t *testing.T) {
	lib := newTestLibrary(t)

	b, err := lib.AddBook(adminSession, Book{ID: "B004", Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	assert.True(t, b.Available, "new books default to available")
	assert.Same(t, b, lib.Store().FindBook("B004"))

	_, err = lib.AddBook(adminSession, Book{ID: "B001", Title: "Dup"})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.Len(t, lib.Store().Books(), 4)
}

func TestAddBookIgnoresSuppliedAvailability(t *testing.T) {
	lib := newTestLibrary(t)
	b, err := lib.AddBook(adminSession, Book{ID: "B010", Title: "T", Author: "A", Available: false})
	require.NoError(t, err)
	assert.True(t, b.Available)
}

func TestAddBookRejectsDelimiter(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.AddBook(adminSession, Book{ID: "B004", Title: "Hello, World", Author: "K&R"})
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = lib.AddBook(adminSession, Book{ID: " ", Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidField)
	assert.Nil(t, lib.Store().FindBook("B004"))
}

func TestCatalogRequiresAdmin(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.AddBook(userSession, Book{ID: "B004", Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = lib.UpdateBook(userSession, "B001", BookUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, lib.DeleteBook(userSession, "B001"), ErrForbidden)
	_, err = lib.AddUser(userSession, User{ID: "U009", Name: "x", Role: RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = lib.UpdateUser(userSession, "U001", UserUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, lib.DeleteUser(userSession, "U002"), ErrForbidden)

	assert.Equal(t, "The Great Gatsby", lib.Store().FindBook("B001").Title)
	assert.NotNil(t, lib.Store().FindUser("U002"))
}

func TestUpdateBookPartial(t *testing.T) {
	lib := newTestLibrary(t)

	b, err := lib.UpdateBook(adminSession, "B002", BookUpdate{Title: ptr("Go Set a Watchman")})
	require.NoError(t, err)
	assert.Equal(t, "Go Set a Watchman", b.Title)
	assert.Equal(t, "Harper Lee", b.Author, "omitted fields are unchanged")

	b, err = lib.UpdateBook(adminSession, "B002", BookUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Go Set a Watchman", b.Title)

	_, err = lib.UpdateBook(adminSession, "B404", BookUpdate{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	lib := newTestLibrary(t)

	assert.ErrorIs(t, lib.DeleteBook(adminSession, "B404"), ErrNotFound)
	assert.ErrorIs(t, lib.DeleteBook(adminSession, "B003"), ErrBookOnLoan)
	require.NoError(t, lib.DeleteBook(adminSession, "B002"))
	assert.Nil(t, lib.Store().FindBook("B002"))
}

func TestDeleteBookAfterReturn(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Borrow("U001", "B001")
	require.NoError(t, err)
	assert.ErrorIs(t, lib.DeleteBook(adminSession, "B001"), ErrBookOnLoan)

	_, err = lib.Return("U001", "B001")
	require.NoError(t, err)
	assert.NoError(t, lib.DeleteBook(adminSession, "B001"))
}

func TestUserCatalog(t *testing.T) {
	lib := newTestLibrary(t)

	u, err := lib.AddUser(adminSession, User{ID: "U003", Name: "Ada", Secret: "pw", Role: RoleUser, Borrowed: []string{"B001"}})
	require.NoError(t, err)
	assert.Empty(t, u.Borrowed, "new users start with an empty borrowed set")

	_, err = lib.AddUser(adminSession, User{ID: "U003", Name: "Other", Role: RoleUser})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	_, err = lib.AddUser(adminSession, User{ID: "U004", Name: "Eve", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	u, err = lib.UpdateUser(adminSession, "U003", UserUpdate{Role: ptr(RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "pw", u.Secret)

	_, err = lib.UpdateUser(adminSession, "U404", UserUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = lib.UpdateUser(adminSession, "U003", UserUpdate{Role: ptr(Role("root"))})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestDeleteUser(t *testing.T) {
	lib := newTestLibrary(t)

	assert.ErrorIs(t, lib.DeleteUser(adminSession, "U404"), ErrNotFound)
	assert.ErrorIs(t, lib.DeleteUser(adminSession, "A001"), ErrSelfDeletion)
	require.NoError(t, lib.DeleteUser(adminSession, "U002"))
	assert.Nil(t, lib.Store().FindUser("U002"))
}

func TestSearchBooks(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.AddBook(adminSession, Book{ID: "B004", Title: "Animal Farm", Author: "George Orwell"})
	require.NoError(t, err)

	ids := func(seq func(func(*Book) bool)) []string {
		var out []string
		for b := range seq {
			out = append(out, b.ID)
		}
		return out
	}

	seq := lib.SearchBooks("ORWELL", SearchAny)
	assert.Equal(t, []string{"B003", "B004"}, ids(seq))
	assert.Equal(t, []string{"B003", "B004"}, ids(seq), "sequence is restartable")

	assert.Equal(t, []string{"B004"}, ids(lib.SearchBooks("farm", SearchTitle)))
	assert.Empty(t, ids(lib.SearchBooks("farm", SearchAuthor)))
	assert.Empty(t, ids(lib.SearchBooks("tolkien", SearchAny)))

	var first []string
	for b := range lib.SearchBooks("", SearchAny) {
		first = append(first, b.ID)
		break
	}
	assert.Equal(t, []string{"B001"}, first)
}

func TestTransactionQueries(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.Borrow("U001", "B001")
	require.NoError(t, err)
	_, err = lib.Borrow("U002", "B002")
	require.NoError(t, err)
	_, err = lib.Return("U001", "B001")
	require.NoError(t, err)
	_, err = lib.Borrow("U002", "B001")
	require.NoError(t, err)

	byUser := lib.TransactionsByUser("U002")
	require.Len(t, byUser, 2)
	assert.Equal(t, "T002", byUser[0].ID)
	assert.Equal(t, "T003", byUser[1].ID)

	byBook := lib.TransactionsByBook("B001")
	require.Len(t, byBook, 2)
	assert.Equal(t, testToday, byBook[0].DateReturned)
	assert.True(t, byBook[1].Active())

	books, err := lib.BorrowedBooks("U002")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "B002", books[0].ID)
	_, err = lib.BorrowedBooks("U404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReaddedUserKeepsOpenLoans(t *testing.T) {
	ff, _ := newFlatFiles(t)
	lib := newTestLibrary(t)
	_, err := lib.Borrow("U001", "B001")
	require.NoError(t, err)
	require.NoError(t, lib.DeleteUser(adminSession, "U001"))

	u, err := lib.AddUser(adminSession, User{ID: "U001", Name: "John Doe", Secret: "pass123", Role: RoleUser})
	require.NoError(t, err)
	assert.Equal(t, []string{"B001"}, u.Borrowed, "borrowed set follows the active log entry")

	require.NoError(t, ff.Save(lib.Store()))
	loaded := NewStore()
	require.NoError(t, ff.Load(loaded))
	assert.Equal(t, u.Borrowed, loaded.FindUser("U001").Borrowed)

	tx, err := lib.Return("U001", "B001")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, testToday, tx.DateReturned)
	assert.True(t, lib.Store().FindBook("B001").Available)
}

func TestDemotedAdminLosesCatalogAccess(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.UpdateUser(adminSession, "A001", UserUpdate{Role: ptr(RoleUser)})
	require.NoError(t, err)

	_, err = lib.AddBook(adminSession, Book{ID: "B004", Title: "Dune", Author: "Frank Herbert"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, lib.DeleteUser(adminSession, "U002"), ErrForbidden)
	assert.Nil(t, lib.Store().FindBook("B004"))
}
