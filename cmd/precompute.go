package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/matchup"
)

var precomputeSeason int

var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "Precompute matchup snapshots for every scheduled match",
	Long: "Batch job: compose and persist a matchup snapshot for each scheduled match " +
		"in a season. The on-demand matchup command serves these from cache. Running " +
		"it again replaces existing snapshots; concurrent on-demand recomputation is " +
		"safe since identical inputs produce identical reports.",
	RunE: runPrecompute,
}

func init() {
	precomputeCmd.Flags().IntVar(&precomputeSeason, "season", 0, "season whose schedule to process (default: latest stored)")
}

func runPrecompute(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	season := precomputeSeason
	if season == 0 {
		season, err = db.LatestSeason()
		if err != nil {
			return err
		}
		if season == 0 {
			return fmt.Errorf("no seasons stored; load an archive first")
		}
	}

	matches, err := db.ScheduledMatches(season)
	if err != nil {
		return fmt.Errorf("read schedule: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scheduled matches for season %d; load a schedule first", season)
	}

	// Same default window the on-demand path uses: the match's season plus
	// the one before it.
	window := []int{season}
	if season > 1 {
		window = []int{season - 1, season}
	}

	opts := matchup.Options{ConfidenceLevel: cfg.ConfidenceLevel, TopMachines: cfg.TopMachines}

	var saved, skipped int
	for _, m := range matches {
		result, err := matchup.Compose(db, m.HomeTeam, m.AwayTeam, m.Venue, window, opts)
		if errors.Is(err, matchup.ErrInsufficientData) {
			slog.Warn("skipping match", "match", m.MatchID, "reason", err)
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("compose %s: %w", m.MatchID, err)
		}
		result.MatchID = m.MatchID
		if err := db.SaveSnapshot(result); err != nil {
			return fmt.Errorf("save snapshot %s: %w", m.MatchID, err)
		}
		saved++
	}

	slog.Info("precompute finished", "season", season, "saved", saved, "skipped", skipped)
	return nil
}
