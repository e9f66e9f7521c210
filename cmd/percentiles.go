package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/aggregator"
	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/percentile"
	"github.com/salishmushrooms/pinstats/internal/picks"
	"github.com/salishmushrooms/pinstats/internal/storage"
)

var percentilesSeason int

var percentilesCmd = &cobra.Command{
	Use:   "percentiles",
	Short: "Recompute a season's percentile thresholds and pick records",
	Long: "Recompute percentile threshold tables per (machine, venue) and per machine " +
		"across all venues, plus pick-frequency records, for one season. Existing " +
		"derived rows for the season are replaced wholesale.",
	RunE: runPercentiles,
}

func init() {
	percentilesCmd.Flags().IntVar(&percentilesSeason, "season", 0, "season to recompute (default: latest stored)")
}

func runPercentiles(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	season := percentilesSeason
	if season == 0 {
		season, err = db.LatestSeason()
		if err != nil {
			return err
		}
		if season == 0 {
			return fmt.Errorf("no seasons stored; load an archive first")
		}
	}

	records, err := db.SeasonRecords(season)
	if err != nil {
		return fmt.Errorf("read season %d: %w", season, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("season %d has no score records", season)
	}

	thresholds, skipped := computeSeasonThresholds(records, season)
	if err := db.ReplaceSeasonThresholds(season, thresholds); err != nil {
		return fmt.Errorf("replace thresholds: %w", err)
	}

	pickRecords := picks.Count(records, lineups(records))
	if err := db.ReplaceSeasonPickRecords(season, pickRecords); err != nil {
		return fmt.Errorf("replace pick records: %w", err)
	}

	slog.Info("season recomputed", "season", season,
		"threshold_rows", len(thresholds), "small_populations_skipped", skipped,
		"pick_records", len(pickRecords))
	return nil
}

// computeSeasonThresholds builds threshold tables for every
// (machine, venue) population plus a per-machine all-venues population.
// Populations below the publishing floor are skipped, not published.
func computeSeasonThresholds(records []model.ScoreRecord, season int) (out []model.PercentileThreshold, skipped int) {
	type popKey struct {
		machine string
		venue   string
	}
	pops := make(map[popKey][]int64)
	for _, r := range records {
		pops[popKey{r.Machine, r.Venue}] = append(pops[popKey{r.Machine, r.Venue}], r.Score)
		pops[popKey{r.Machine, model.AllVenues}] = append(pops[popKey{r.Machine, model.AllVenues}], r.Score)
	}

	for k, scores := range pops {
		sum, err := percentile.Compute(scores, percentile.DefaultLevels)
		if errors.Is(err, percentile.ErrPopulationTooSmall) {
			skipped++
			continue
		}
		if err != nil {
			continue
		}
		for _, t := range sum.Thresholds {
			t.Machine = k.machine
			t.Venue = k.venue
			t.Season = season
			out = append(out, t)
		}
	}
	return out, skipped
}

// lineups derives each (season, venue) machine lineup from the records
// themselves, for pick-opportunity counting.
func lineups(records []model.ScoreRecord) map[picks.LineupKey][]string {
	seen := make(map[picks.LineupKey]map[string]bool)
	for _, r := range records {
		k := picks.LineupKey{Season: r.Season, Venue: r.Venue}
		if seen[k] == nil {
			seen[k] = make(map[string]bool)
		}
		seen[k][r.Machine] = true
	}
	out := make(map[picks.LineupKey][]string, len(seen))
	for k, machines := range seen {
		for m := range machines {
			out[k] = append(out[k], m)
		}
	}
	return out
}

// thresholdIndex loads a set of seasons' thresholds into an in-memory index
// for the aggregator.
func thresholdIndex(db *storage.DB, seasons []int) (aggregator.MapIndex, error) {
	idx := make(aggregator.MapIndex)
	for _, season := range seasons {
		rows, err := db.SeasonThresholds(season)
		if err != nil {
			return nil, fmt.Errorf("thresholds for season %d: %w", season, err)
		}
		for _, t := range rows {
			idx.Add(t)
		}
	}
	return idx, nil
}
