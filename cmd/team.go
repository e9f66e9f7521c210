package cmd

import (
	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/model"
)

var (
	teamSeasons  []int
	teamVenue    string
	teamRounds   []int
	teamSubs     bool
	teamMinGames int
	teamPersist  bool
)

var teamCmd = &cobra.Command{
	Use:   "team <name>",
	Short: "Per-machine aggregate stats for a team",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeam,
}

func init() {
	teamCmd.Flags().IntSliceVar(&teamSeasons, "season", nil, "seasons to include (repeatable; default: current + previous)")
	teamCmd.Flags().StringVar(&teamVenue, "venue", "", "restrict to one venue")
	teamCmd.Flags().IntSliceVar(&teamRounds, "round", nil, "rounds to include (repeatable; default: all)")
	teamCmd.Flags().BoolVar(&teamSubs, "include-subs", false, "include substitute appearances")
	teamCmd.Flags().IntVar(&teamMinGames, "min-games", 0, "minimum games per machine (default from config)")
	teamCmd.Flags().BoolVar(&teamPersist, "save", false, "persist the computed stats")
}

func runTeam(cmd *cobra.Command, args []string) error {
	return runSubjectStats(args[0], model.SubjectTeam,
		teamSeasons, teamVenue, teamRounds, teamSubs, teamMinGames, teamPersist)
}
