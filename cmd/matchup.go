package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/matchup"
	"github.com/salishmushrooms/pinstats/internal/report"
)

var (
	matchupSeasons []int
	matchupMatchID string
	matchupFresh   bool
)

var matchupCmd = &cobra.Command{
	Use:   "matchup <home-team> <away-team> <venue>",
	Short: "Head-to-head matchup report for two teams at a venue",
	Long: "Compose a matchup report: venue lineup, ranked pick frequencies, player " +
		"machine preferences, and expected-score confidence intervals. With --match, " +
		"a precomputed snapshot is served when one exists; pass --fresh to force " +
		"recomputation.",
	Args: cobra.ExactArgs(3),
	RunE: runMatchup,
}

func init() {
	matchupCmd.Flags().IntSliceVar(&matchupSeasons, "season", nil, "seasons to include (repeatable; default: current + previous)")
	matchupCmd.Flags().StringVar(&matchupMatchID, "match", "", "scheduled-match id for snapshot caching")
	matchupCmd.Flags().BoolVar(&matchupFresh, "fresh", false, "ignore any cached snapshot")
}

func runMatchup(cmd *cobra.Command, args []string) error {
	home, away, venue := args[0], args[1], args[2]

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if matchupMatchID != "" && !matchupFresh {
		cached, err := db.GetSnapshot(matchupMatchID)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if cached != nil {
			slog.Debug("serving cached snapshot", "match", matchupMatchID, "generated_at", cached.GeneratedAt)
			report.PrintMatchup(os.Stdout, cached)
			return nil
		}
	}

	window, err := seasonWindow(db, matchupSeasons)
	if err != nil {
		return err
	}

	result, err := matchup.Compose(db, home, away, venue, window, matchup.Options{
		ConfidenceLevel: cfg.ConfidenceLevel,
		TopMachines:     cfg.TopMachines,
	})
	if errors.Is(err, matchup.ErrInsufficientData) {
		// Expected outcome, not a failure.
		fmt.Fprintf(os.Stdout, "no matchup possible: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	if matchupMatchID != "" {
		result.MatchID = matchupMatchID
		if err := db.SaveSnapshot(result); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	report.PrintMatchup(os.Stdout, result)
	return nil
}
