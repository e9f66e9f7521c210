package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/salishmushrooms/pinstats/internal/report"
)

var seasonsCmd = &cobra.Command{
	Use:   "seasons",
	Short: "List stored seasons",
	Args:  cobra.NoArgs,
	RunE:  runSeasons,
}

func runSeasons(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	seasons, err := db.Seasons()
	if err != nil {
		return err
	}
	if len(seasons) == 0 {
		fmt.Fprintln(os.Stdout, "no seasons stored")
		return nil
	}
	report.PrintSeasons(os.Stdout, seasons)
	return nil
}
