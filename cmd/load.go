package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/loader"
)

var loadSchedule bool

var loadCmd = &cobra.Command{
	Use:   "load <archive.csv>",
	Short: "Load a league score archive (or fixture schedule) into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadSchedule, "schedule", false, "treat the file as a fixture schedule instead of a score archive")
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := args[0]

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if loadSchedule {
		matches, err := loader.ParseSchedule(path)
		if err != nil {
			return fmt.Errorf("parse schedule: %w", err)
		}
		if err := db.InsertScheduledMatches(matches); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		slog.Info("schedule loaded", "file", path, "matches", len(matches))
		return nil
	}

	records, roster, err := loader.ParseScores(path)
	if err != nil {
		return fmt.Errorf("parse archive: %w", err)
	}
	if err := db.InsertScoreRecords(records); err != nil {
		return fmt.Errorf("insert score records: %w", err)
	}
	if err := db.InsertRosterEntries(roster); err != nil {
		return fmt.Errorf("insert roster entries: %w", err)
	}
	slog.Info("archive loaded", "file", path, "records", len(records), "roster_entries", len(roster))
	return nil
}
