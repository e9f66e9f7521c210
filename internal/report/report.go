// Package report renders stats and matchup output as text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMachineStats prints per-machine aggregate stats for one subject.
func PrintMachineStats(w io.Writer, stats []model.MachineStat) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "no machines met the minimum-games threshold")
		return
	}

	table := newTable(w)
	table.Header("MACHINE", "VENUE", "GP", "ROUNDS", "AVG", "MEDIAN", "BEST", "WORST", "MED_PCTL", "AVG_PCTL", "WIN%")

	for _, s := range stats {
		table.Append(
			s.Machine,
			s.Venue,
			strconv.Itoa(s.GamesPlayed),
			strconv.Itoa(s.RoundsPlayed),
			fmt.Sprintf("%.0f", s.AverageScore),
			fmt.Sprintf("%.0f", s.MedianScore),
			strconv.FormatInt(s.BestScore, 10),
			strconv.FormatInt(s.WorstScore, 10),
			pctlStr(s.MedianPercentile),
			pctlStr(s.AveragePercentile),
			pctStr(s.WinPercentage),
		)
	}
	table.Render()
}

// PrintRankedPicks prints a team's ranked pick frequencies.
func PrintRankedPicks(w io.Writer, team string, ranked []model.RankedPick) {
	if len(ranked) == 0 {
		fmt.Fprintf(w, "%s: no picks with enough opportunities\n", team)
		return
	}

	table := newTable(w)
	table.Header("MACHINE", "TYPE", "PICKED", "OPPS", "RATE", "RANK_SCORE")

	for _, p := range ranked {
		table.Append(
			p.Machine,
			p.RoundType.String(),
			strconv.Itoa(p.TimesPicked),
			strconv.Itoa(p.Opportunities),
			fmt.Sprintf("%.0f%%", p.Rate),
			fmt.Sprintf("%.3f", p.LowerBound),
		)
	}
	table.Render()
}

// PrintSeasons prints the stored-seasons listing.
func PrintSeasons(w io.Writer, seasons []storage.SeasonInfo) {
	table := newTable(w)
	table.Header("SEASON", "RECORDS", "VENUES", "TEAMS")
	for _, s := range seasons {
		table.Append(
			strconv.Itoa(s.Season),
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Venues),
			strconv.Itoa(s.Teams),
		)
	}
	table.Render()
}

// PrintMatchup prints the full matchup report.
func PrintMatchup(w io.Writer, r *model.MatchupAnalysis) {
	fmt.Fprintf(w, "\n%s (home) vs %s (away)  |  Venue: %s  |  Season: %s  |  Generated: %s\n\n",
		r.HomeTeam, r.AwayTeam, r.Venue, r.SeasonLabel,
		r.GeneratedAt.Format("2006-01-02 15:04"))

	fmt.Fprintf(w, "Machines: %s\n\n", strings.Join(r.Machines, ", "))

	fmt.Fprintf(w, "%s picks (home context):\n", r.HomeTeam)
	PrintRankedPicks(w, r.HomeTeam, r.HomePicks)
	fmt.Fprintf(w, "\n%s picks (away context):\n", r.AwayTeam)
	PrintRankedPicks(w, r.AwayTeam, r.AwayPicks)

	fmt.Fprintf(w, "\n%s player preferences:\n", r.HomeTeam)
	printPreferences(w, r.HomePlayers)
	fmt.Fprintf(w, "\n%s player preferences:\n", r.AwayTeam)
	printPreferences(w, r.AwayPlayers)

	fmt.Fprintf(w, "\n%s expected scores:\n", r.HomeTeam)
	printTeamIntervals(w, r.HomeIntervals)
	fmt.Fprintf(w, "\n%s expected scores:\n", r.AwayTeam)
	printTeamIntervals(w, r.AwayIntervals)

	if len(r.HomePlayerIntervals) > 0 {
		fmt.Fprintf(w, "\n%s player expected scores:\n", r.HomeTeam)
		printPlayerIntervals(w, r.HomePlayerIntervals)
	}
	if len(r.AwayPlayerIntervals) > 0 {
		fmt.Fprintf(w, "\n%s player expected scores:\n", r.AwayTeam)
		printPlayerIntervals(w, r.AwayPlayerIntervals)
	}
}

func printPreferences(w io.Writer, prefs []model.PlayerPreference) {
	if len(prefs) == 0 {
		fmt.Fprintln(w, "no rostered players with lineup plays")
		return
	}
	table := newTable(w)
	table.Header("PLAYER", "IPR", "TOP MACHINES")
	for _, p := range prefs {
		var parts []string
		for _, m := range p.Machines {
			parts = append(parts, fmt.Sprintf("%s (%d)", m.Machine, m.Games))
		}
		ipr := "—"
		if p.IPR > 0 {
			ipr = strconv.Itoa(p.IPR)
		}
		table.Append(p.Player, ipr, strings.Join(parts, ", "))
	}
	table.Render()
}

func printTeamIntervals(w io.Writer, intervals []model.MachineInterval) {
	if len(intervals) == 0 {
		fmt.Fprintln(w, "no machines with enough games")
		return
	}
	table := newTable(w)
	table.Header("MACHINE", "N", "MEAN", "STDDEV", "LOW", "HIGH", "LEVEL")
	for _, mi := range intervals {
		appendInterval(table, mi.Machine, "", mi.Interval)
	}
	table.Render()
}

func printPlayerIntervals(w io.Writer, intervals []model.PlayerMachineInterval) {
	table := newTable(w)
	table.Header("PLAYER", "MACHINE", "N", "MEAN", "STDDEV", "LOW", "HIGH", "LEVEL")
	for _, pi := range intervals {
		appendInterval(table, pi.Machine, pi.Player, pi.Interval)
	}
	table.Render()
}

func appendInterval(table *tablewriter.Table, machine, player string, ci model.ConfidenceInterval) {
	n := strconv.Itoa(ci.SampleSize)
	mean := fmt.Sprintf("%.0f", ci.Mean)
	stddev := fmt.Sprintf("%.0f", ci.StdDev)
	low := fmt.Sprintf("%.0f", ci.Lower)
	high := fmt.Sprintf("%.0f", ci.Upper)
	level := fmt.Sprintf("%d%%", ci.Level)
	if player != "" {
		table.Append(player, machine, n, mean, stddev, low, high, level)
		return
	}
	table.Append(machine, n, mean, stddev, low, high, level)
}

func pctlStr(p *float64) string {
	if p == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f", *p)
}

func pctStr(p *float64) string {
	if p == nil {
		return "—"
	}
	return fmt.Sprintf("%.0f%%", *p)
}
