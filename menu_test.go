package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"library-catalog/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// runMenu plays script against a fresh flat-file library in dir and returns
// everything the menu printed.
func runMenu(t *testing.T, dir string, script ...string) string {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mgr := library.NewLibraryManager(library.NewFlatFiles(dir, logger), logger)
	t.Cleanup(func() { mgr.Close() })

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	newMenu(mgr, in, &out).run()
	return out.String()
}

func TestMenuBorrowAndExitSaves(t *testing.T) {
	dir := t.TempDir()
	out := runMenu(t, dir,
		"John Doe", "pass123",
		"2", "B003", // unavailable
		"2", "B001",
		"4", // admin only
		"0",
	)

	assert.Contains(t, out, "Login successful! Welcome, John Doe.")
	assert.Contains(t, out, "This book is currently unavailable.")
	assert.Contains(t, out, "Transaction ID: T001")
	assert.Contains(t, out, "Invalid choice. Please try again.")
	assert.NotContains(t, out, "4. Manage Users")
	assert.Contains(t, out, "Thank you for using the Library Management System!")

	data, err := os.ReadFile(filepath.Join(dir, library.TransactionsFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "T001,U001,B001,"))
	assert.True(t, strings.HasSuffix(string(data), ",null\n"))
}

func TestMenuLoginAttempts(t *testing.T) {
	out := runMenu(t, t.TempDir(),
		"John Doe", "bad",
		"John Doe", "bad",
		"John Doe", "bad",
	)
	assert.Contains(t, out, "(Attempts left: 2)")
	assert.Contains(t, out, "(Attempts left: 1)")
	assert.Contains(t, out, "Maximum login attempts exceeded. Exiting...")
	assert.NotContains(t, out, "LIBRARY MAIN MENU")
}

func TestMenuAdminCatalogue(t *testing.T) {
	dir := t.TempDir()
	out := runMenu(t, dir,
		"Admin", "admin123",
		"5",
		"1", "B004", "Dune", "Frank Herbert",
		"1", "B004", "Again", "Someone",
		"3", "B003",
		"2", "B004", "", "F. Herbert",
		"5", "1", "dune",
		"0",
		"4",
		"1", "U003", "Ada Lovelace", "engine", "",
		"3", "A001",
		"0",
		"0",
	)

	assert.Contains(t, out, "Book added successfully!")
	assert.Contains(t, out, "That ID already exists!")
	assert.Contains(t, out, "Cannot delete a borrowed book!")
	assert.Contains(t, out, "Book updated successfully!")
	assert.Contains(t, out, "F. Herbert")
	assert.Contains(t, out, "User added successfully!")
	assert.Contains(t, out, "You cannot delete your own account!")

	books, err := os.ReadFile(filepath.Join(dir, library.BooksFile))
	require.NoError(t, err)
	assert.Contains(t, string(books), "B004,Dune,F. Herbert,true\n")

	// The new user's password is stored hashed and still signs in.
	out = runMenu(t, dir, "Ada Lovelace", "engine", "0")
	assert.Contains(t, out, "Login successful! Welcome, Ada Lovelace.")
}

func TestMenuReturnAndTransactions(t *testing.T) {
	dir := t.TempDir()
	runMenu(t, dir, "Jane Smith", "abc123", "2", "B002", "0")

	out := runMenu(t, dir,
		"Jane Smith", "abc123",
		"3", "B001", // not borrowed
		"3", "B002",
		"3",
		"0",
	)
	assert.Contains(t, out, "You have not borrowed this book.")
	assert.Contains(t, out, "Book returned successfully!")
	assert.Contains(t, out, "You have no books to return.")

	out = runMenu(t, dir, "Admin", "admin123", "6", "2", "U002", "3", "B404", "0", "0")
	assert.Contains(t, out, "--- Transactions for User U002 ---")
	assert.Contains(t, out, "T001")
	assert.Contains(t, out, "No transactions found for this book.")
	assert.NotContains(t, out, "Not Returned")
}

func TestMenuSavesOnEOF(t *testing.T) {
	dir := t.TempDir()
	runMenu(t, dir, "John Doe", "pass123", "2", "B002")

	data, err := os.ReadFile(filepath.Join(dir, library.BooksFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "B002,To Kill a Mockingbird,Harper Lee,false\n")
}

func TestMenuSearchRejectsUnknownField(t *testing.T) {
	out := runMenu(t, t.TempDir(),
		"Admin", "admin123",
		"5", "5", "9",
		"0", "0",
	)
	assert.Contains(t, out, "Invalid choice. Please try again.")
	assert.NotContains(t, out, "--- Search Results ---")
}

func TestMenuDemotedAdminLosesMenus(t *testing.T) {
	dir := t.TempDir()
	out := runMenu(t, dir,
		"Admin", "admin123",
		"4", "2", "A001", "", "", "user", "0",
		"5",
		"0",
	)
	assert.Contains(t, out, "User updated successfully!")
	assert.Contains(t, out, "Invalid choice. Please try again.")
	assert.NotContains(t, out, "CATALOGUE MANAGEMENT")

	users, err := os.ReadFile(filepath.Join(dir, library.UsersFile))
	require.NoError(t, err)
	assert.Contains(t, string(users), "A001,Admin,admin123,user\n")
}
