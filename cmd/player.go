package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/aggregator"
	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/report"
)

var (
	playerSeasons  []int
	playerVenue    string
	playerRounds   []int
	playerSubs     bool
	playerMinGames int
	playerPersist  bool
)

var playerCmd = &cobra.Command{
	Use:   "player <name>",
	Short: "Per-machine aggregate stats for a player",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlayer,
}

func init() {
	playerCmd.Flags().IntSliceVar(&playerSeasons, "season", nil, "seasons to include (repeatable; default: current + previous)")
	playerCmd.Flags().StringVar(&playerVenue, "venue", "", "restrict to one venue")
	playerCmd.Flags().IntSliceVar(&playerRounds, "round", nil, "rounds to include (repeatable; default: all)")
	playerCmd.Flags().BoolVar(&playerSubs, "include-subs", false, "include substitute appearances")
	playerCmd.Flags().IntVar(&playerMinGames, "min-games", 0, "minimum games per machine (default from config)")
	playerCmd.Flags().BoolVar(&playerPersist, "save", false, "persist the computed stats")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	return runSubjectStats(args[0], model.SubjectPlayer,
		playerSeasons, playerVenue, playerRounds, playerSubs, playerMinGames, playerPersist)
}

// runSubjectStats is shared by the player and team commands; the two differ
// only in which column selects the subject's rows.
func runSubjectStats(subject string, kind model.SubjectKind, seasons []int, venue string, roundSet []int, includeSubs bool, minGames int, persist bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	window, err := seasonWindow(db, seasons)
	if err != nil {
		return err
	}

	var records []model.ScoreRecord
	if kind == model.SubjectTeam {
		records, err = db.TeamMatchRecords(subject, window)
	} else {
		records, err = db.PlayerMatchRecords(subject, window)
	}
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records for %s %q in seasons %s", kind, subject, model.SeasonLabel(window))
	}

	idx, err := thresholdIndex(db, window)
	if err != nil {
		return err
	}

	if minGames == 0 {
		minGames = cfg.MinGames
	}
	stats := aggregator.MachineStats(subject, kind, records, idx, aggregator.Filter{
		Seasons:     window,
		Venue:       venue,
		RoundSet:    roundSet,
		IncludeSubs: includeSubs,
		MinGames:    minGames,
	})

	if persist {
		if err := db.InsertMachineStats(stats); err != nil {
			return fmt.Errorf("persist stats: %w", err)
		}
	}

	fmt.Fprintf(os.Stdout, "\n%s %s  |  Seasons: %s\n\n", kind, subject, model.SeasonLabel(window))
	report.PrintMachineStats(os.Stdout, stats)
	return nil
}
