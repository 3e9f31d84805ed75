package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Database persists the store in a SQLite file. It is the alternative to
// FlatFiles and keeps the same record shapes, one table per collection, with a
// position column so store order survives a round trip.
type Database struct {
	db     *sql.DB
	logger *zap.Logger

	// fresh is set when the schema was created by this process; Load seeds
	// the defaults in that case.
	fresh bool
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies the
// schema.
func NewDatabase(dbPath string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	fresh, err := applyMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db, logger: logger, fresh: fresh}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

const schemaVersion = 1

// applyMigrations creates the schema when missing and reports whether it did.
func applyMigrations(db *sql.DB) (bool, error) {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return false, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return false, err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return false, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL,
            name TEXT NOT NULL,
            secret TEXT NOT NULL,
            role TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            book_id TEXT NOT NULL,
            date_borrowed TEXT NOT NULL,
            date_returned TEXT NOT NULL
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return false, fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return false, fmt.Errorf("apply migration: %w", err)
	}

	return true, tx.Commit()
}

// ---------------------------------------------------------------------------
// Persister
// ---------------------------------------------------------------------------

// Load replaces the contents of s with the stored rows. A freshly created
// database is seeded with the default users and books, which are saved
// immediately.
func (d *Database) Load(s *Store) error {
	s.reset()

	if d.fresh {
		d.fresh = false
		d.logger.Info("new database, creating defaults")
		for _, u := range DefaultUsers() {
			s.InsertUser(u)
		}
		for _, b := range DefaultBooks() {
			s.InsertBook(b)
		}
		return d.Save(s)
	}

	if err := d.loadUsers(s); err != nil {
		return err
	}
	if err := d.loadBooks(s); err != nil {
		return err
	}
	return d.loadTransactions(s)
}

func (d *Database) loadUsers(s *Store) error {
	rows, err := d.db.Query(`SELECT id,name,secret,role FROM users ORDER BY position`)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Secret, &u.Role); err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		s.InsertUser(&u)
	}
	return rows.Err()
}

func (d *Database) loadBooks(s *Store) error {
	rows, err := d.db.Query(`SELECT id,title,author,available FROM books ORDER BY position`)
	if err != nil {
		return fmt.Errorf("load books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Available); err != nil {
			return fmt.Errorf("load books: %w", err)
		}
		s.InsertBook(&b)
	}
	return rows.Err()
}

func (d *Database) loadTransactions(s *Store) error {
	rows, err := d.db.Query(`SELECT id,user_id,book_id,date_borrowed,date_returned FROM transactions ORDER BY position`)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.BookID, &t.DateBorrowed, &t.DateReturned); err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		s.AppendTransaction(&t)
		s.restoreLoan(&t)
	}
	return rows.Err()
}

// Save replaces every row in one transaction.
func (d *Database) Save(s *Store) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"users", "books", "transactions"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	userStmt, err := tx.Prepare(`INSERT INTO users(position,id,name,secret,role) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer userStmt.Close()
	for i, u := range s.Users() {
		if _, err := userStmt.Exec(i, u.ID, u.Name, u.Secret, string(u.Role)); err != nil {
			return fmt.Errorf("save user %s: %w", u.ID, err)
		}
	}

	bookStmt, err := tx.Prepare(`INSERT INTO books(position,id,title,author,available) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer bookStmt.Close()
	for i, b := range s.Books() {
		if _, err := bookStmt.Exec(i, b.ID, b.Title, b.Author, b.Available); err != nil {
			return fmt.Errorf("save book %s: %w", b.ID, err)
		}
	}

	txStmt, err := tx.Prepare(`INSERT INTO transactions(position,id,user_id,book_id,date_borrowed,date_returned) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer txStmt.Close()
	for i, t := range s.Transactions() {
		if _, err := txStmt.Exec(i, t.ID, t.UserID, t.BookID, t.DateBorrowed, t.DateReturned); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}
