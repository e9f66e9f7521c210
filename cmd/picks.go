package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/picks"
	"github.com/salishmushrooms/pinstats/internal/report"
)

var (
	picksSeasons []int
	picksContext string
)

var picksCmd = &cobra.Command{
	Use:   "picks <team>",
	Short: "Ranked machine pick frequencies for a team",
	Long: "Rank a team's machine picks by the 95% Wilson lower confidence bound of the " +
		"pick rate, so small samples don't outrank established preferences. Run the " +
		"percentiles command first to populate pick records.",
	Args: cobra.ExactArgs(1),
	RunE: runPicks,
}

func init() {
	picksCmd.Flags().IntSliceVar(&picksSeasons, "season", nil, "seasons to include (repeatable; default: current + previous)")
	picksCmd.Flags().StringVar(&picksContext, "context", "home", "pick context: home or away")
}

func runPicks(cmd *cobra.Command, args []string) error {
	team := args[0]

	var ctx model.Context
	switch picksContext {
	case "home":
		ctx = model.Home
	case "away":
		ctx = model.Away
	default:
		return fmt.Errorf("context must be home or away, got %q", picksContext)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	window, err := seasonWindow(db, picksSeasons)
	if err != nil {
		return err
	}

	records, err := db.TeamPickRecords(team, window, ctx)
	if err != nil {
		return fmt.Errorf("read pick records: %w", err)
	}

	ranked := picks.Rank(picks.Pool(records))

	fmt.Fprintf(os.Stdout, "\n%s picks (%s)  |  Seasons: %s\n\n", team, ctx, model.SeasonLabel(window))
	report.PrintRankedPicks(os.Stdout, team, ranked)
	return nil
}
