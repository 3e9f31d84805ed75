package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"library-catalog/library"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "import_books FILE",
		Short:        "Add books listed as bookId,title,author lines to the catalog",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := library.LoadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			logger, err := library.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			p, err := library.OpenPersister(cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			manager := library.NewLibraryManager(p, logger)
			defer manager.Close()

			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return err
			}
			defer f.Close()

			return importBooks(manager, f, cmd.OutOrStdout(), logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./library.yaml)")
	flags.String("data-dir", ".", "directory holding the data files")
	flags.String("backend", library.BackendText, "storage backend: text or sqlite")
	flags.String("database", "library.db", "SQLite file for the sqlite backend")
	for key, flag := range map[string]string{"data_dir": "data-dir", "backend": "backend", "database": "database"} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

// adminSession acts as the first admin account on record.
func adminSession(manager *library.LibraryManager) (library.Session, error) {
	for _, u := range manager.GetAllUsers() {
		if u.Role == library.RoleAdmin {
			return library.Session{UserID: u.ID, Role: u.Role}, nil
		}
	}
	return library.Session{}, errors.New("no admin account to import as")
}

func importBooks(manager *library.LibraryManager, r io.Reader, out io.Writer, logger *zap.Logger) error {
	sess, err := adminSession(manager)
	if err != nil {
		return err
	}

	successCount := 0
	errorCount := 0

	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			fmt.Fprintf(out, "line %d: ERROR - want bookId,title,author\n", lineNo)
			errorCount++
			continue
		}

		id, title, author := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
		fmt.Fprintf(out, "Importing: %s by %s... ", title, author)
		if _, err := manager.AddBook(sess, library.Book{ID: id, Title: title, Author: author}); err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %s)\n", id)
		successCount++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	if successCount > 0 {
		if err := manager.Save(); err != nil {
			return err
		}
	}
	logger.Info("import finished", zap.Int("imported", successCount), zap.Int("failed", errorCount))

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(out, "Errors: %d\n", errorCount)
	return nil
}
