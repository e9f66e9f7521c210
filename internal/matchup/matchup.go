// Package matchup composes a head-to-head report for two teams at a venue
// from the lower-level stats components. All data access goes through the
// injected Store; the composer itself is a pure computation and is safe to
// run concurrently from the batch precompute job and the on-demand path,
// since both produce identical output for identical inputs.
package matchup

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/salishmushrooms/pinstats/internal/aggregator"
	"github.com/salishmushrooms/pinstats/internal/interval"
	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/picks"
)

// ErrInsufficientData is returned when no meaningful matchup can be built:
// a missing roster, an unknown venue, or a venue with no machine lineup in
// the season window. It is an expected outcome, not a failure, and callers
// should test for it with errors.Is.
var ErrInsufficientData = errors.New("insufficient data for matchup")

// Store supplies the raw and derived records the composer needs. The
// concrete implementation lives in the storage package; tests use an
// in-memory fake.
type Store interface {
	// VenueKnown reports whether any record references the venue.
	VenueKnown(venue string) (bool, error)
	// VenueMachines returns the distinct machines recorded at the venue in
	// one season, i.e. that season's lineup.
	VenueMachines(venue string, season int) ([]string, error)
	// TeamRoster returns roster entries for the team across the seasons.
	TeamRoster(team string, seasons []int) ([]model.RosterEntry, error)
	// TeamRecords returns every score row from the team's matches at the
	// venue in the seasons, including opposing rows.
	TeamRecords(team, venue string, seasons []int) ([]model.ScoreRecord, error)
	// PlayerRecords returns the player's score rows across the seasons.
	PlayerRecords(player string, seasons []int) ([]model.ScoreRecord, error)
	// TeamPickRecords returns persisted pick records for the team in the
	// given context across the seasons.
	TeamPickRecords(team string, seasons []int, ctx model.Context) ([]model.PickRecord, error)
}

// Options tune report composition.
type Options struct {
	ConfidenceLevel int // 95 or 90; 0 means 95
	TopMachines     int // per-player preference list length; 0 means 5
}

func (o Options) level() int {
	if o.ConfidenceLevel == 0 {
		return 95
	}
	return o.ConfidenceLevel
}

func (o Options) topN() int {
	if o.TopMachines == 0 {
		return 5
	}
	return o.TopMachines
}

// Compose builds the matchup report for home vs away at venue over the given
// seasons. Multi-season inputs are pooled into one sample per key, never
// averaged per season. Returns an error wrapping ErrInsufficientData when
// either roster is empty, the venue is unknown, or no lineup exists in the
// window.
func Compose(store Store, home, away, venue string, seasons []int, opts Options) (*model.MatchupAnalysis, error) {
	if len(seasons) == 0 {
		return nil, fmt.Errorf("no seasons given: %w", ErrInsufficientData)
	}

	known, err := store.VenueKnown(venue)
	if err != nil {
		return nil, fmt.Errorf("check venue %q: %w", venue, err)
	}
	if !known {
		return nil, fmt.Errorf("unknown venue %q: %w", venue, ErrInsufficientData)
	}

	homeRoster, err := rosterOrErr(store, home, seasons)
	if err != nil {
		return nil, err
	}
	awayRoster, err := rosterOrErr(store, away, seasons)
	if err != nil {
		return nil, err
	}

	machines, err := currentLineup(store, venue, seasons)
	if err != nil {
		return nil, err
	}
	inLineup := make(map[string]bool, len(machines))
	for _, m := range machines {
		inLineup[m] = true
	}

	report := &model.MatchupAnalysis{
		HomeTeam:    home,
		AwayTeam:    away,
		Venue:       venue,
		Seasons:     append([]int(nil), seasons...),
		SeasonLabel: model.SeasonLabel(seasons),
		GeneratedAt: time.Now().UTC(),
		Machines:    machines,
	}

	report.HomePicks, err = rankedPicks(store, home, seasons, model.Home, inLineup)
	if err != nil {
		return nil, err
	}
	report.AwayPicks, err = rankedPicks(store, away, seasons, model.Away, inLineup)
	if err != nil {
		return nil, err
	}

	homeRecords, err := store.TeamRecords(home, venue, seasons)
	if err != nil {
		return nil, fmt.Errorf("records for %q: %w", home, err)
	}
	awayRecords, err := store.TeamRecords(away, venue, seasons)
	if err != nil {
		return nil, fmt.Errorf("records for %q: %w", away, err)
	}

	report.HomePlayers, err = playerPreferences(store, homeRoster, seasons, inLineup, opts)
	if err != nil {
		return nil, err
	}
	report.AwayPlayers, err = playerPreferences(store, awayRoster, seasons, inLineup, opts)
	if err != nil {
		return nil, err
	}

	report.HomeIntervals = teamIntervals(home, homeRecords, machines, seasons, opts)
	report.AwayIntervals = teamIntervals(away, awayRecords, machines, seasons, opts)

	report.HomePlayerIntervals = playerIntervals(homeRoster, homeRecords, machines, seasons, opts)
	report.AwayPlayerIntervals = playerIntervals(awayRoster, awayRecords, machines, seasons, opts)

	return report, nil
}

func rosterOrErr(store Store, team string, seasons []int) ([]model.RosterEntry, error) {
	roster, err := store.TeamRoster(team, seasons)
	if err != nil {
		return nil, fmt.Errorf("roster for %q: %w", team, err)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("team %q has no roster in seasons %s: %w",
			team, model.SeasonLabel(seasons), ErrInsufficientData)
	}
	return dedupeRoster(roster), nil
}

// dedupeRoster collapses per-season roster entries to one entry per player.
// The store returns one row per (player, season), so a multi-season window
// yields duplicates; without this, every player rostered in both seasons
// would appear twice in the report. Keeps the most recent season's entry,
// and treats the player as rostered if any window season rosters them as a
// non-substitute.
func dedupeRoster(roster []model.RosterEntry) []model.RosterEntry {
	byPlayer := make(map[string]int, len(roster))
	var out []model.RosterEntry
	for _, e := range roster {
		i, seen := byPlayer[e.Player]
		if !seen {
			byPlayer[e.Player] = len(out)
			out = append(out, e)
			continue
		}
		rostered := !out[i].Substitute || !e.Substitute
		if e.Season > out[i].Season {
			out[i] = e
		}
		out[i].Substitute = !rostered
	}
	return out
}

// currentLineup finds the most recent season in the window with a known
// machine lineup at the venue.
func currentLineup(store Store, venue string, seasons []int) ([]string, error) {
	ordered := append([]int(nil), seasons...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))
	for _, s := range ordered {
		machines, err := store.VenueMachines(venue, s)
		if err != nil {
			return nil, fmt.Errorf("lineup at %q season %d: %w", venue, s, err)
		}
		if len(machines) > 0 {
			sort.Strings(machines)
			return machines, nil
		}
	}
	return nil, fmt.Errorf("venue %q has no machine lineup in seasons %s: %w",
		venue, model.SeasonLabel(seasons), ErrInsufficientData)
}

func rankedPicks(store Store, team string, seasons []int, ctx model.Context, inLineup map[string]bool) ([]model.RankedPick, error) {
	records, err := store.TeamPickRecords(team, seasons, ctx)
	if err != nil {
		return nil, fmt.Errorf("pick records for %q: %w", team, err)
	}
	pooled := picks.Pool(records)
	kept := pooled[:0]
	for _, r := range pooled {
		if inLineup[r.Machine] {
			kept = append(kept, r)
		}
	}
	return picks.Rank(kept), nil
}

// playerPreferences builds top-N machine preferences for each non-substitute
// roster player, restricted to the lineup. Players with no lineup plays are
// omitted rather than listed empty.
func playerPreferences(store Store, roster []model.RosterEntry, seasons []int, inLineup map[string]bool, opts Options) ([]model.PlayerPreference, error) {
	var prefs []model.PlayerPreference
	for _, entry := range roster {
		if entry.Substitute {
			continue
		}
		records, err := store.PlayerRecords(entry.Player, seasons)
		if err != nil {
			return nil, fmt.Errorf("records for player %q: %w", entry.Player, err)
		}
		counts := aggregator.PlayCounts(entry.Player, model.SubjectPlayer, records,
			aggregator.Filter{Seasons: seasons}, inLineup)
		if len(counts) == 0 {
			continue
		}
		if len(counts) > opts.topN() {
			counts = counts[:opts.topN()]
		}
		prefs = append(prefs, model.PlayerPreference{
			Player:   entry.Player,
			IPR:      entry.IPR,
			Machines: counts,
		})
	}
	return prefs, nil
}

// teamIntervals estimates one confidence interval per lineup machine from the
// team's scores there. Machines below the sample floor are omitted, not
// zero-filled.
func teamIntervals(team string, records []model.ScoreRecord, machines []string, seasons []int, opts Options) []model.MachineInterval {
	scores := scoresByMachine(records, seasons, func(r model.ScoreRecord) bool {
		return r.Team == team
	})
	var out []model.MachineInterval
	for _, m := range machines {
		ci, err := interval.Estimate(scores[m], opts.level())
		if err != nil {
			continue
		}
		out = append(out, model.MachineInterval{Machine: m, Interval: ci})
	}
	return out
}

// playerIntervals estimates per-player intervals for each lineup machine,
// skipping substitutes and samples below the floor.
func playerIntervals(roster []model.RosterEntry, records []model.ScoreRecord, machines []string, seasons []int, opts Options) []model.PlayerMachineInterval {
	var out []model.PlayerMachineInterval
	for _, entry := range roster {
		if entry.Substitute {
			continue
		}
		scores := scoresByMachine(records, seasons, func(r model.ScoreRecord) bool {
			return r.Player == entry.Player
		})
		for _, m := range machines {
			ci, err := interval.Estimate(scores[m], opts.level())
			if err != nil {
				continue
			}
			out = append(out, model.PlayerMachineInterval{
				Player:   entry.Player,
				Machine:  m,
				Interval: ci,
			})
		}
	}
	return out
}

func scoresByMachine(records []model.ScoreRecord, seasons []int, keep func(model.ScoreRecord) bool) map[string][]float64 {
	inSeason := make(map[int]bool, len(seasons))
	for _, s := range seasons {
		inSeason[s] = true
	}
	scores := make(map[string][]float64)
	for _, r := range records {
		if !inSeason[r.Season] || !keep(r) {
			continue
		}
		scores[r.Machine] = append(scores[r.Machine], float64(r.Score))
	}
	return scores
}
