package matchup

import (
	"errors"
	"fmt"
	"testing"

	"github.com/salishmushrooms/pinstats/internal/model"
)

// fakeStore serves fixture data from memory.
type fakeStore struct {
	venues   map[string]bool
	lineups  map[string][]string // venue#season
	rosters  map[string][]model.RosterEntry
	records  []model.ScoreRecord
	pickRows map[string][]model.PickRecord // team#context
}

func (f *fakeStore) VenueKnown(venue string) (bool, error) {
	return f.venues[venue], nil
}

func (f *fakeStore) VenueMachines(venue string, season int) ([]string, error) {
	return f.lineups[fmt.Sprintf("%s#%d", venue, season)], nil
}

func (f *fakeStore) TeamRoster(team string, seasons []int) ([]model.RosterEntry, error) {
	return f.rosters[team], nil
}

func (f *fakeStore) TeamRecords(team, venue string, seasons []int) ([]model.ScoreRecord, error) {
	var out []model.ScoreRecord
	for _, r := range f.records {
		if r.Venue == venue {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) PlayerRecords(player string, seasons []int) ([]model.ScoreRecord, error) {
	var out []model.ScoreRecord
	for _, r := range f.records {
		if r.Player == player {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) TeamPickRecords(team string, seasons []int, ctx model.Context) ([]model.PickRecord, error) {
	return f.pickRows[fmt.Sprintf("%s#%s", team, ctx)], nil
}

const (
	homeTeam = "The Flippers"
	awayTeam = "Drain Gang"
	venue    = "Big Lebens"
	season   = 14
)

// leagueFixture builds a store with both rosters, a two-machine lineup, and
// six singles rounds per (player, machine) so every interval clears the
// sample floor.
func leagueFixture() *fakeStore {
	f := &fakeStore{
		venues:  map[string]bool{venue: true},
		lineups: map[string][]string{fmt.Sprintf("%s#%d", venue, season): {"Godzilla", "Medieval"}},
		rosters: map[string][]model.RosterEntry{
			homeTeam: {
				{Player: "Alice", Team: homeTeam, Season: season, IPR: 5},
				{Player: "Carol", Team: homeTeam, Season: season, IPR: 3},
				{Player: "Sub Stan", Team: homeTeam, Season: season, IPR: 2, Substitute: true},
			},
			awayTeam: {
				{Player: "Bob", Team: awayTeam, Season: season, IPR: 4},
			},
		},
		pickRows: map[string][]model.PickRecord{
			fmt.Sprintf("%s#%s", homeTeam, model.Home): {
				{Team: homeTeam, Machine: "Godzilla", Season: season, Context: model.Home,
					RoundType: model.Doubles, TimesPicked: 8, Opportunities: 10},
				{Team: homeTeam, Machine: "Medieval", Season: season, Context: model.Home,
					RoundType: model.Doubles, TimesPicked: 2, Opportunities: 10},
				// Gone from the current lineup, must not surface in picks.
				{Team: homeTeam, Machine: "Paragon", Season: season, Context: model.Home,
					RoundType: model.Doubles, TimesPicked: 10, Opportunities: 10},
			},
			fmt.Sprintf("%s#%s", awayTeam, model.Away): {
				{Team: awayTeam, Machine: "Medieval", Season: season, Context: model.Away,
					RoundType: model.Singles, TimesPicked: 6, Opportunities: 9},
			},
		},
	}

	players := []struct {
		name string
		team string
	}{{"Alice", homeTeam}, {"Carol", homeTeam}, {"Bob", awayTeam}}
	for _, machine := range []string{"Godzilla", "Medieval"} {
		for i := 0; i < 6; i++ {
			for pi, p := range players {
				f.records = append(f.records, model.ScoreRecord{
					MatchID: fmt.Sprintf("m%d", i), Season: season, Venue: venue,
					Round: 2, Position: pi + 1, Machine: machine,
					Player: p.name, Team: p.team,
					Score: int64(100*(i+1) + 10*pi),
				})
			}
		}
	}
	return f
}

func TestCompose_FullReport(t *testing.T) {
	store := leagueFixture()

	report, err := Compose(store, homeTeam, awayTeam, venue, []int{season}, Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if got := report.Machines; len(got) != 2 || got[0] != "Godzilla" || got[1] != "Medieval" {
		t.Errorf("lineup = %v, want sorted [Godzilla Medieval]", got)
	}
	if report.SeasonLabel != "14" {
		t.Errorf("season label = %q, want 14", report.SeasonLabel)
	}

	// Picks are restricted to the lineup and ranked by lower bound.
	if len(report.HomePicks) != 2 {
		t.Fatalf("home picks = %d, want 2 (Paragon excluded)", len(report.HomePicks))
	}
	if report.HomePicks[0].Machine != "Godzilla" {
		t.Errorf("top home pick = %q, want Godzilla (8/10 over 2/10)", report.HomePicks[0].Machine)
	}
	for _, p := range report.HomePicks {
		if p.Machine == "Paragon" {
			t.Error("pick for machine outside lineup must be dropped")
		}
	}
	if len(report.AwayPicks) != 1 || report.AwayPicks[0].Machine != "Medieval" {
		t.Errorf("away picks = %v, want single Medieval entry", report.AwayPicks)
	}

	// Substitutes carry no preference or interval rows.
	if len(report.HomePlayers) != 2 {
		t.Fatalf("home players = %d, want 2 (substitute omitted)", len(report.HomePlayers))
	}
	for _, p := range report.HomePlayers {
		if p.Player == "Sub Stan" {
			t.Error("substitute must not appear in preferences")
		}
	}
	if report.HomePlayers[0].IPR != 5 {
		t.Errorf("IPR = %d, want roster value 5", report.HomePlayers[0].IPR)
	}

	// Six samples per (subject, machine) clears the floor for every cell.
	if len(report.HomeIntervals) != 2 {
		t.Errorf("home intervals = %d, want one per lineup machine", len(report.HomeIntervals))
	}
	if len(report.AwayIntervals) != 2 {
		t.Errorf("away intervals = %d, want one per lineup machine", len(report.AwayIntervals))
	}
	if len(report.HomePlayerIntervals) != 4 {
		t.Errorf("home player intervals = %d, want 2 players x 2 machines", len(report.HomePlayerIntervals))
	}
	for _, pi := range report.HomePlayerIntervals {
		if pi.Interval.SampleSize != 6 {
			t.Errorf("player %s on %s: sample = %d, want 6", pi.Player, pi.Machine, pi.Interval.SampleSize)
		}
		if pi.Interval.Lower > pi.Interval.Mean || pi.Interval.Mean > pi.Interval.Upper {
			t.Errorf("interval ordering violated: %+v", pi.Interval)
		}
	}
}

func TestCompose_UnknownVenue(t *testing.T) {
	store := leagueFixture()
	_, err := Compose(store, homeTeam, awayTeam, "Nowhere Bar", []int{season}, Options{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("unknown venue: err = %v, want ErrInsufficientData", err)
	}
}

func TestCompose_MissingRoster(t *testing.T) {
	store := leagueFixture()
	_, err := Compose(store, homeTeam, "No Such Team", venue, []int{season}, Options{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("missing roster: err = %v, want ErrInsufficientData", err)
	}
}

func TestCompose_NoLineupInWindow(t *testing.T) {
	store := leagueFixture()
	// Records exist at the venue but not in the requested window.
	_, err := Compose(store, homeTeam, awayTeam, venue, []int{99}, Options{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("no lineup in window: err = %v, want ErrInsufficientData", err)
	}
}

func TestCompose_NoSeasons(t *testing.T) {
	_, err := Compose(leagueFixture(), homeTeam, awayTeam, venue, nil, Options{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("empty window: err = %v, want ErrInsufficientData", err)
	}
}

func TestCompose_LineupFallsBackToEarlierSeason(t *testing.T) {
	store := leagueFixture()
	// Season 15 has no lineup rows at the venue; the window [14,15] must use
	// season 14's lineup.
	report, err := Compose(store, homeTeam, awayTeam, venue, []int{season, season + 1}, Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(report.Machines) != 2 {
		t.Errorf("machines = %v, want season 14 lineup", report.Machines)
	}
	if report.SeasonLabel != "14-15" {
		t.Errorf("season label = %q, want 14-15", report.SeasonLabel)
	}
}

func TestCompose_MultiSeasonRosterDeduplicated(t *testing.T) {
	store := leagueFixture()
	// The store returns one roster row per (player, season). Over a
	// two-season window each player must still yield one preference entry
	// and one interval row per machine, not one per rostered season.
	store.rosters[homeTeam] = []model.RosterEntry{
		{Player: "Alice", Team: homeTeam, Season: season, IPR: 4},
		{Player: "Alice", Team: homeTeam, Season: season + 1, IPR: 5},
		// Subbed one season, rostered the next: counts as rostered.
		{Player: "Carol", Team: homeTeam, Season: season, IPR: 3, Substitute: true},
		{Player: "Carol", Team: homeTeam, Season: season + 1, IPR: 3},
	}

	report, err := Compose(store, homeTeam, awayTeam, venue, []int{season, season + 1}, Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	seen := map[string]int{}
	for _, p := range report.HomePlayers {
		seen[p.Player]++
	}
	if seen["Alice"] != 1 {
		t.Errorf("Alice appears %d times in preferences, want 1", seen["Alice"])
	}
	if seen["Carol"] != 1 {
		t.Errorf("Carol appears %d times in preferences, want 1 (rostered in one window season)", seen["Carol"])
	}
	for _, p := range report.HomePlayers {
		if p.Player == "Alice" && p.IPR != 5 {
			t.Errorf("Alice IPR = %d, want most recent season's 5", p.IPR)
		}
	}

	cells := map[string]int{}
	for _, pi := range report.HomePlayerIntervals {
		cells[pi.Player+"/"+pi.Machine]++
	}
	for cell, n := range cells {
		if n != 1 {
			t.Errorf("interval row %s appears %d times, want 1", cell, n)
		}
	}
	if cells["Alice/Godzilla"] != 1 || cells["Carol/Medieval"] != 1 {
		t.Errorf("interval cells = %v, want one row per (player, machine)", cells)
	}
}

func TestCompose_TopMachinesCapsPreferences(t *testing.T) {
	store := leagueFixture()
	report, err := Compose(store, homeTeam, awayTeam, venue, []int{season}, Options{TopMachines: 1})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for _, p := range report.HomePlayers {
		if len(p.Machines) > 1 {
			t.Errorf("player %s lists %d machines, want at most 1", p.Player, len(p.Machines))
		}
	}
}
