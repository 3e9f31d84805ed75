package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"library-catalog/library"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "library",
		Short:        "Library catalog manager with role-based menus",
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
			mgr := library.NewLibraryManager(p, logger)
			defer mgr.Close()

			saveOnSignal(mgr, logger)

			m := newMenu(mgr, os.Stdin, os.Stdout)
			m.run()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./library.yaml)")
	flags.String("data-dir", ".", "directory holding the data files")
	flags.String("backend", library.BackendText, "storage backend: text or sqlite")
	flags.String("database", "library.db", "SQLite file for the sqlite backend")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	for key, flag := range map[string]string{
		"data_dir":  "data-dir",
		"backend":   "backend",
		"database":  "database",
		"log_level": "log-level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

// saveOnSignal persists everything before the process dies on SIGINT/SIGTERM.
func saveOnSignal(mgr *library.LibraryManager, logger *zap.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info("signal received, saving data", zap.String("signal", sig.String()))
		fmt.Println("\nSaving data and exiting...")
		_ = mgr.Save()
		mgr.Close()
		os.Exit(130)
	}()
}
