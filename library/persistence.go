package library

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Persister loads and saves the whole store. Save must be idempotent: saving
// unchanged state twice produces identical output.
type Persister interface {
	Load(s *Store) error
	Save(s *Store) error
}

// DefaultUsers is the seed used when no user records exist yet.
func DefaultUsers() []*User {
	return []*User{
		{ID: "U001", Name: "John Doe", Secret: "pass123", Role: RoleUser},
		{ID: "U002", Name: "Jane Smith", Secret: "abc123", Role: RoleUser},
		{ID: "A001", Name: "Admin", Secret: "admin123", Role: RoleAdmin},
	}
}

// DefaultBooks is the seed used when no book records exist yet.
func DefaultBooks() []*Book {
	return []*Book{
		{ID: "B001", Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Available: true},
		{ID: "B002", Title: "To Kill a Mockingbird", Author: "Harper Lee", Available: true},
		{ID: "B003", Title: "1984", Author: "George Orwell", Available: false},
	}
}

// File names used by FlatFiles inside its directory.
const (
	UsersFile        = "users.txt"
	BooksFile        = "books.txt"
	TransactionsFile = "transactions.txt"
)

// FlatFiles persists each collection as one record per line in a text file.
type FlatFiles struct {
	dir    string
	logger *zap.Logger
}

// NewFlatFiles stores its files in dir.
func NewFlatFiles(dir string, logger *zap.Logger) *FlatFiles {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlatFiles{dir: dir, logger: logger}
}

func (f *FlatFiles) path(name string) string { return filepath.Join(f.dir, name) }

// Load replaces the contents of s with the records on disk. A missing users or
// books file is seeded with the defaults, which are written out right away.
// Lines with the wrong number of fields are skipped. Errors from individual
// files are joined; whatever could be read stays in s.
func (f *FlatFiles) Load(s *Store) error {
	s.reset()
	var errs []error

	userLines, err := f.readLines(UsersFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.logger.Info("users file not found, creating defaults", zap.String("path", f.path(UsersFile)))
		for _, u := range DefaultUsers() {
			s.InsertUser(u)
		}
		errs = append(errs, f.saveUsers(s))
	case err != nil:
		errs = append(errs, err)
	default:
		for _, line := range userLines {
			if u, ok := decodeUser(line); ok {
				s.InsertUser(u)
			} else {
				f.logger.Debug("skipping malformed user record", zap.String("line", line))
			}
		}
	}

	bookLines, err := f.readLines(BooksFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.logger.Info("books file not found, creating defaults", zap.String("path", f.path(BooksFile)))
		for _, b := range DefaultBooks() {
			s.InsertBook(b)
		}
		errs = append(errs, f.saveBooks(s))
	case err != nil:
		errs = append(errs, err)
	default:
		for _, line := range bookLines {
			if b, ok := decodeBook(line); ok {
				s.InsertBook(b)
			} else {
				f.logger.Debug("skipping malformed book record", zap.String("line", line))
			}
		}
	}

	txLines, err := f.readLines(TransactionsFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.logger.Info("transactions file not found, starting with an empty log",
			zap.String("path", f.path(TransactionsFile)))
	case err != nil:
		errs = append(errs, err)
	default:
		for _, line := range txLines {
			t, ok := decodeTransaction(line)
			if !ok {
				f.logger.Debug("skipping malformed transaction record", zap.String("line", line))
				continue
			}
			s.AppendTransaction(t)
			s.restoreLoan(t)
		}
	}

	return errors.Join(errs...)
}

// Save writes all three files.
func (f *FlatFiles) Save(s *Store) error {
	return errors.Join(f.saveUsers(s), f.saveBooks(s), f.saveTransactions(s))
}

func (f *FlatFiles) saveUsers(s *Store) error {
	lines := make([]string, 0, len(s.Users()))
	for _, u := range s.Users() {
		lines = append(lines, encodeUser(u))
	}
	return f.writeLines(UsersFile, lines)
}

func (f *FlatFiles) saveBooks(s *Store) error {
	lines := make([]string, 0, len(s.Books()))
	for _, b := range s.Books() {
		lines = append(lines, encodeBook(b))
	}
	return f.writeLines(BooksFile, lines)
}

func (f *FlatFiles) saveTransactions(s *Store) error {
	lines := make([]string, 0, len(s.Transactions()))
	for _, t := range s.Transactions() {
		lines = append(lines, encodeTransaction(t))
	}
	return f.writeLines(TransactionsFile, lines)
}

func (f *FlatFiles) readLines(name string) ([]string, error) {
	file, err := os.Open(f.path(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	var lines []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return lines, fmt.Errorf("read %s: %w", name, err)
	}
	return lines, nil
}

// writeLines replaces name through a temp file so a failed write never
// truncates the previous contents.
func (f *FlatFiles) writeLines(name string, lines []string) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), f.path(name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
