package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-catalog/library"

	"golang.org/x/term"
)

const (
	loginAttempts = 3
	rule          = "========================================"
)

// menu drives one signed-in session over a line-oriented console.
type menu struct {
	mgr  *library.LibraryManager
	sc   *bufio.Scanner
	out  io.Writer
	sess library.Session

	// readSecret reads a password; masked when input is a terminal.
	readSecret func(prompt string) (string, bool)
	eof        bool
}

func newMenu(mgr *library.LibraryManager, in io.Reader, out io.Writer) *menu {
	m := &menu{mgr: mgr, sc: bufio.NewScanner(in), out: out}
	m.readSecret = m.prompt
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		m.readSecret = func(label string) (string, bool) {
			fmt.Fprint(m.out, label)
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(m.out) // Add newline after password input
			if err != nil {
				m.eof = true
				return "", false
			}
			return strings.TrimSpace(string(b)), true
		}
	}
	return m
}

func (m *menu) printf(format string, args ...any) { fmt.Fprintf(m.out, format, args...) }
func (m *menu) println(args ...any)               { fmt.Fprintln(m.out, args...) }

// prompt prints label and reads one trimmed line. It reports false on EOF.
func (m *menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.sc.Scan() {
		m.eof = true
		return "", false
	}
	return strings.TrimSpace(m.sc.Text()), true
}

// choice reads a menu number; ok is false on EOF or when the input is not a number.
func (m *menu) choice() (int, bool) {
	line, ok := m.prompt("Enter choice: ")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		m.println("Invalid input. Please enter a number.")
		return -1, true
	}
	return n, true
}

func (m *menu) header(title string) {
	m.println()
	m.println(rule)
	m.printf("%*s\n", (len(rule)+len(title))/2, title)
	m.println(rule)
}

// run signs a user in, serves the main menu and saves on the way out.
func (m *menu) run() {
	if !m.login() {
		return
	}
	m.mainMenu()
	m.println("\nSaving data and exiting...")
	if err := m.mgr.Save(); err != nil {
		m.printf("Warning: could not save all data: %v\n", err)
	}
	m.println("Thank you for using the Library Management System!")
}

func (m *menu) login() bool {
	m.header("Welcome to the Library Management System")
	m.println("Please log in to continue.")
	m.println()

	for attempts := loginAttempts; attempts > 0; attempts-- {
		name, ok := m.prompt("Username: ")
		if !ok {
			return false
		}
		secret, ok := m.readSecret("Password: ")
		if !ok {
			return false
		}
		sess, err := m.mgr.Login(name, secret)
		if err == nil {
			m.sess = sess
			m.printf("\nLogin successful! Welcome, %s.\n", name)
			return true
		}
		if attempts > 1 {
			m.println("Invalid username or password. Try again.")
			m.printf("(Attempts left: %d)\n\n", attempts-1)
		}
	}
	m.println("Maximum login attempts exceeded. Exiting...")
	return false
}

func (m *menu) mainMenu() {
	for !m.eof {
		m.sess = m.mgr.Refresh(m.sess)
		m.header("LIBRARY MAIN MENU")
		m.println("1. View All Books")
		m.println("2. Borrow Book")
		m.println("3. Return Book")
		if m.sess.IsAdmin() {
			m.println("4. Manage Users")
			m.println("5. Manage Catalogue")
			m.println("6. View Transactions")
		}
		m.println("0. Exit")
		m.println(rule)

		n, ok := m.choice()
		if !ok {
			return
		}
		switch {
		case n == -1:
		case n == 0:
			return
		case n == 1:
			m.handleListBooks()
		case n == 2:
			m.handleBorrow()
		case n == 3:
			m.handleReturn()
		case n == 4 && m.sess.IsAdmin():
			m.manageUsers()
		case n == 5 && m.sess.IsAdmin():
			m.manageCatalogue()
		case n == 6 && m.sess.IsAdmin():
			m.manageTransactions()
		default:
			m.println("Invalid choice. Please try again.")
		}
	}
}

// errMessage renders an operation failure for the console.
func errMessage(err error) string {
	switch {
	case errors.Is(err, library.ErrDuplicateIdentifier):
		return "That ID already exists!"
	case errors.Is(err, library.ErrNotFound):
		return "Not found: " + strings.TrimPrefix(err.Error(), library.ErrNotFound.Error()+": ")
	case errors.Is(err, library.ErrBookOnLoan):
		return "Cannot delete a borrowed book!"
	case errors.Is(err, library.ErrSelfDeletion):
		return "You cannot delete your own account!"
	case errors.Is(err, library.ErrBorrowLimitReached):
		return fmt.Sprintf("You have reached the maximum borrowing limit of %d books.\nPlease return a book before borrowing another.", library.BorrowLimit)
	case errors.Is(err, library.ErrBookUnavailable):
		return "This book is currently unavailable."
	case errors.Is(err, library.ErrNotBorrowedByUser):
		return "You have not borrowed this book."
	case errors.Is(err, library.ErrForbidden):
		return "Only administrators can do that."
	case errors.Is(err, library.ErrInvalidField), errors.Is(err, library.ErrInvalidRole):
		return "Invalid input: " + err.Error()
	default:
		return err.Error()
	}
}

// ------------------ Books & circulation ------------------

func (m *menu) handleListBooks() {
	m.header("ALL BOOKS")
	books := m.mgr.GetAllBooks()
	if len(books) == 0 {
		m.println("No books available in the library.")
	}
	for _, b := range books {
		m.println(library.PrettyBook(b))
	}
	m.println(rule)
}

func (m *menu) handleBorrow() {
	m.header("BORROW BOOK")
	bookID, ok := m.prompt("Enter Book ID: ")
	if !ok {
		return
	}
	tx, err := m.mgr.Borrow(m.sess, bookID)
	if err != nil {
		m.println("Error: " + errMessage(err))
		return
	}
	m.println("\nBook borrowed successfully!")
	m.printf("Transaction ID: %s\n", tx.ID)
	if b, err := m.mgr.GetBook(bookID); err == nil {
		m.println(library.PrettyBook(b))
	}
}

func (m *menu) handleReturn() {
	m.header("RETURN BOOK")
	books, err := m.mgr.BorrowedBooks(m.sess)
	if err != nil {
		m.println("Error: " + errMessage(err))
		return
	}
	if len(books) == 0 {
		m.println("You have no books to return.")
		return
	}
	m.println("Your borrowed books:")
	for _, b := range books {
		m.println(library.PrettyBook(b))
	}

	bookID, ok := m.prompt("\nEnter Book ID to return: ")
	if !ok {
		return
	}
	tx, err := m.mgr.Return(m.sess, bookID)
	if err != nil {
		m.println("Error: " + errMessage(err))
		return
	}
	m.println("\nBook returned successfully!")
	if tx == nil {
		m.println("Note: no open transaction was found for this loan.")
	}
	if b, err := m.mgr.GetBook(bookID); err == nil {
		m.println(library.PrettyBook(b))
	}
}

// ------------------ Users ------------------

func (m *menu) manageUsers() {
	for !m.eof {
		m.header("USER MANAGEMENT")
		m.println("1. Add User")
		m.println("2. Update User")
		m.println("3. Delete User")
		m.println("4. Display All Users")
		m.println("0. Back to Main Menu")
		m.println(rule)

		n, ok := m.choice()
		if !ok {
			return
		}
		switch n {
		case -1:
		case 0:
			return
		case 1:
			m.handleAddUser()
		case 2:
			m.handleUpdateUser()
		case 3:
			m.handleDeleteUser()
		case 4:
			m.handleListUsers()
		default:
			m.println("Invalid choice. Please try again.")
		}
	}
}

func (m *menu) handleAddUser() {
	m.println("\n--- Add New User ---")
	id, ok := m.prompt("Enter User ID (e.g., U003): ")
	if !ok {
		return
	}
	name, ok := m.prompt("Enter Name: ")
	if !ok {
		return
	}
	secret, ok := m.readSecret("Enter Password: ")
	if !ok {
		return
	}
	role, ok := m.prompt("Enter Role (user/admin): ")
	if !ok {
		return
	}
	if role == "" {
		role = string(library.RoleUser)
	}

	hash, err := library.HashSecret(secret)
	if err != nil {
		m.printf("Error hashing password: %v\n", err)
		return
	}
	u, err := m.mgr.AddUser(m.sess, library.User{ID: id, Name: name, Secret: hash, Role: library.Role(role)})
	if err != nil {
		m.println(errMessage(err))
		return
	}
	m.println("User added successfully!")
	m.println(library.PrettyUser(u))
}

func (m *menu) handleUpdateUser() {
	m.println("\n--- Update User ---")
	id, ok := m.prompt("Enter User ID to update: ")
	if !ok {
		return
	}
	u, err := m.mgr.GetUser(id)
	if err != nil {
		m.println("User not found!")
		return
	}
	m.println("Current details:")
	m.println(library.PrettyUser(u))

	var upd library.UserUpdate
	name, ok := m.prompt("Enter new Name (or press Enter to skip): ")
	if !ok {
		return
	}
	if name != "" {
		upd.Name = &name
	}
	secret, ok := m.readSecret("Enter new Password (or press Enter to skip): ")
	if !ok {
		return
	}
	if secret != "" {
		hash, err := library.HashSecret(secret)
		if err != nil {
			m.printf("Error hashing password: %v\n", err)
			return
		}
		upd.Secret = &hash
	}
	role, ok := m.prompt("Enter new Role (or press Enter to skip): ")
	if !ok {
		return
	}
	if role != "" {
		r := library.Role(role)
		upd.Role = &r
	}

	if _, err := m.mgr.UpdateUser(m.sess, id, upd); err != nil {
		m.println(errMessage(err))
		return
	}
	m.println("User updated successfully!")
}

func (m *menu) handleDeleteUser() {
	m.println("\n--- Delete User ---")
	id, ok := m.prompt("Enter User ID to delete: ")
	if !ok {
		return
	}
	if err := m.mgr.DeleteUser(m.sess, id); err != nil {
		m.println(errMessage(err))
		return
	}
	m.println("User deleted successfully!")
}

func (m *menu) handleListUsers() {
	m.header("ALL USERS")
	for _, u := range m.mgr.GetAllUsers() {
		m.println(library.PrettyUser(u))
	}
	m.println(rule)
}

// ------------------ Catalogue ------------------

func (m *menu) manageCatalogue() {
	for !m.eof {
		m.header("CATALOGUE MANAGEMENT")
		m.println("1. Add Book")
		m.println("2. Update Book")
		m.println("3. Delete Book")
		m.println("4. Display All Books")
		m.println("5. Search Books")
		m.println("0. Back to Main Menu")
		m.println(rule)

		n, ok := m.choice()
		if !ok {
			return
		}
		switch n {
		case -1:
		case 0:
			return
		case 1:
			m.handleAddBook()
		case 2:
			m.handleUpdateBook()
		case 3:
			m.handleDeleteBook()
		case 4:
			m.handleListBooks()
		case 5:
			m.handleSearchBooks()
		default:
			m.println("Invalid choice. Please try again.")
		}
	}
}

func (m *menu) handleAddBook() {
	m.println("\n--- Add New Book ---")
	id, ok := m.prompt("Enter Book ID (e.g., B004): ")
	if !ok {
		return
	}
	title, ok := m.prompt("Enter Title: ")
	if !ok {
		return
	}
	author, ok := m.prompt("Enter Author: ")
	if !ok {
		return
	}
	if _, err := m.mgr.AddBook(m.sess, library.Book{ID: id, Title: title, Author: author}); err != nil {
		m.println(errMessage(err))
		return
	}
	m.println("Book added successfully!")
}

func (m *menu) handleUpdateBook() {
	m.println("\n--- Update Book ---")
	id, ok := m.prompt("Enter Book ID to update: ")
	if !ok {
		return
	}
	b, err := m.mgr.GetBook(id)
	if err != nil {
		m.println("Book not found!")
		return
	}
	m.println("Current details:")
	m.println(library.PrettyBook(b))

	var upd library.BookUpdate
	title, ok := m.prompt("Enter new Title (or press Enter to skip): ")
	if !ok {
		return
	}
	if title != "" {
		upd.Title = &title
	}
	author, ok := m.prompt("Enter new Author (or press Enter to skip): ")
	if !ok {
		return
	}
	if author != "" {
		upd.Author = &author
	}
	if _, err := m.mgr.UpdateBook(m.sess, id, upd); err != nil {
		m.println(errMessage(err))
		return
	}
	m.println("Book updated successfully!")
}

func (m *menu) handleDeleteBook() {
	m.println("\n--- Delete Book ---")
	id, ok := m.prompt("Enter Book ID to delete: ")
	if !ok {
		return
	}
	if err := m.mgr.DeleteBook(m.sess, id); err != nil {
		m.println(errMessage(err))
		return
	}
	m.println("Book deleted successfully!")
}

func (m *menu) handleSearchBooks() {
	m.println("\n--- Search Books ---")
	m.println("1. Search by Title")
	m.println("2. Search by Author")
	m.println("3. Search by Title or Author")
	n, ok := m.choice()
	if !ok || n == -1 {
		return
	}
	var field library.SearchField
	switch n {
	case 1:
		field = library.SearchTitle
	case 2:
		field = library.SearchAuthor
	case 3:
		field = library.SearchAny
	default:
		m.println("Invalid choice. Please try again.")
		return
	}
	query, ok := m.prompt("Enter search term: ")
	if !ok {
		return
	}

	m.println("\n--- Search Results ---")
	results := m.mgr.SearchBooks(query, field)
	if len(results) == 0 {
		m.println("No books found matching your search.")
	}
	for _, b := range results {
		m.println(library.PrettyBook(b))
	}
}

// ------------------ Transactions ------------------

func (m *menu) manageTransactions() {
	for !m.eof {
		m.header("TRANSACTION MANAGEMENT")
		m.println("1. View All Transactions")
		m.println("2. View Transactions by User")
		m.println("3. View Transactions by Book")
		m.println("0. Back to Main Menu")
		m.println(rule)

		n, ok := m.choice()
		if !ok {
			return
		}
		switch n {
		case -1:
		case 0:
			return
		case 1:
			m.header("ALL TRANSACTIONS")
			m.printTransactions(m.mgr.GetAllTransactions(), "No transactions found.")
			m.println(rule)
		case 2:
			id, ok := m.prompt("\nEnter User ID: ")
			if !ok {
				return
			}
			m.printf("\n--- Transactions for User %s ---\n", id)
			m.printTransactions(m.mgr.TransactionsByUser(id), "No transactions found for this user.")
		case 3:
			id, ok := m.prompt("\nEnter Book ID: ")
			if !ok {
				return
			}
			m.printf("\n--- Transactions for Book %s ---\n", id)
			m.printTransactions(m.mgr.TransactionsByBook(id), "No transactions found for this book.")
		default:
			m.println("Invalid choice. Please try again.")
		}
	}
}

func (m *menu) printTransactions(txs []*library.Transaction, empty string) {
	if len(txs) == 0 {
		m.println(empty)
		return
	}
	for _, t := range txs {
		m.println(library.PrettyTransaction(t))
	}
}
