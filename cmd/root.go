package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/config"
	"github.com/salishmushrooms/pinstats/internal/storage"
)

var (
	cfg    *config.Config
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "pinstats",
	Short: "League score analytics tool",
	Long:  "Ingest league score archives and compute player/team statistics, pick frequencies, and matchup reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		setupLogging(cfg.LogLevel)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (default from config)")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(percentilesCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(picksCmd)
	rootCmd.AddCommand(matchupCmd)
	rootCmd.AddCommand(precomputeCmd)
	rootCmd.AddCommand(seasonsCmd)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// openDB opens the configured database, creating its directory if needed.
func openDB() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// seasonWindow returns the season set to analyze: the --season flags when
// given, otherwise the stored current season plus the one before it.
func seasonWindow(db *storage.DB, flagSeasons []int) ([]int, error) {
	if len(flagSeasons) > 0 {
		return flagSeasons, nil
	}
	latest, err := db.LatestSeason()
	if err != nil {
		return nil, fmt.Errorf("find latest season: %w", err)
	}
	if latest == 0 {
		return nil, fmt.Errorf("no seasons stored; load an archive first")
	}
	if latest == 1 {
		return []int{latest}, nil
	}
	return []int{latest - 1, latest}, nil
}
