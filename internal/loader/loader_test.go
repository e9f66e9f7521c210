package loader

import (
	"strings"
	"testing"

	"github.com/salishmushrooms/pinstats/internal/model"
)

const archiveHeader = "season,week,date,match_id,venue,home_team,away_team,round,machine,position,player,team,score,sub\n"

func archive(rows ...string) string {
	return archiveHeader + strings.Join(rows, "\n") + "\n"
}

func TestParseScores_Basic(t *testing.T) {
	in := archive(
		"14,1,2026-01-06,m1,Big Lebens,The Flippers,Drain Gang,1,Godzilla,1,Alice,The Flippers,120000000,0",
		"14,1,2026-01-06,m1,Big Lebens,The Flippers,Drain Gang,1,Godzilla,2,Bob,Drain Gang,80000000,0",
	)
	records, roster, err := parseScores(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	r := records[0]
	if r.MatchID != "m1" || r.Season != 14 || r.Week != 1 || r.Venue != "Big Lebens" {
		t.Errorf("record = %+v", r)
	}
	if r.Player != "Alice" || r.Team != "The Flippers" || r.Score != 120000000 {
		t.Errorf("record = %+v", r)
	}
	if !r.IsHome {
		t.Error("home team row must have IsHome set")
	}
	if records[1].IsHome {
		t.Error("away team row must not have IsHome set")
	}

	if len(roster) != 2 {
		t.Fatalf("roster = %d entries, want 2", len(roster))
	}
	if roster[0].Player != "Alice" || roster[0].Substitute {
		t.Errorf("roster entry = %+v", roster[0])
	}
}

func TestParseScores_SubstituteDerivation(t *testing.T) {
	// Alice plays once as sub and once rostered: not a substitute.
	// Stan only ever appears as sub: substitute.
	in := archive(
		"14,1,2026-01-06,m1,Big Lebens,The Flippers,Drain Gang,2,Godzilla,1,Alice,The Flippers,100,1",
		"14,2,2026-01-13,m2,Big Lebens,The Flippers,Drain Gang,2,Godzilla,1,Alice,The Flippers,200,0",
		"14,3,2026-01-20,m3,Big Lebens,The Flippers,Drain Gang,2,Godzilla,1,Stan,The Flippers,300,1",
	)
	_, roster, err := parseScores(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	byPlayer := map[string]model.RosterEntry{}
	for _, e := range roster {
		byPlayer[e.Player] = e
	}
	if byPlayer["Alice"].Substitute {
		t.Error("Alice appeared rostered once and must not be marked substitute")
	}
	if !byPlayer["Stan"].Substitute {
		t.Error("Stan only ever subbed and must be marked substitute")
	}
}

func TestParseScores_OptionalIPR(t *testing.T) {
	in := "season,week,date,match_id,venue,home_team,away_team,round,machine,position,player,team,score,sub,ipr\n" +
		"14,1,2026-01-06,m1,Big Lebens,The Flippers,Drain Gang,2,Godzilla,1,Alice,The Flippers,100,0,5\n" +
		"14,1,2026-01-06,m1,Big Lebens,The Flippers,Drain Gang,2,Godzilla,2,Bob,Drain Gang,100,0,9\n"
	_, roster, err := parseScores(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	byPlayer := map[string]model.RosterEntry{}
	for _, e := range roster {
		byPlayer[e.Player] = e
	}
	if byPlayer["Alice"].IPR != 5 {
		t.Errorf("Alice IPR = %d, want 5", byPlayer["Alice"].IPR)
	}
	if byPlayer["Bob"].IPR != 0 {
		t.Errorf("Bob IPR = %d, want 0 (9 is out of the 1-6 range)", byPlayer["Bob"].IPR)
	}
}

func TestParseScores_Validation(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"bad round", "14,1,2026-01-06,m1,V,H,A,5,Godzilla,1,Alice,H,100,0"},
		{"singles position 3", "14,1,2026-01-06,m1,V,H,A,2,Godzilla,3,Alice,H,100,0"},
		{"doubles position 5", "14,1,2026-01-06,m1,V,H,A,1,Godzilla,5,Alice,H,100,0"},
		{"negative score", "14,1,2026-01-06,m1,V,H,A,2,Godzilla,1,Alice,H,-5,0"},
		{"unknown team", "14,1,2026-01-06,m1,V,H,A,2,Godzilla,1,Alice,X,100,0"},
		{"bad season", "x,1,2026-01-06,m1,V,H,A,2,Godzilla,1,Alice,H,100,0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseScores(strings.NewReader(archive(tc.row)))
			if err == nil {
				t.Errorf("row %q parsed, want error", tc.row)
			}
		})
	}
}

func TestParseScores_DoublesPosition4Valid(t *testing.T) {
	in := archive("14,1,2026-01-06,m1,V,H,A,4,Godzilla,4,Alice,H,100,0")
	records, _, err := parseScores(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if records[0].Position != 4 {
		t.Errorf("position = %d, want 4", records[0].Position)
	}
}

func TestParseScores_MissingColumn(t *testing.T) {
	in := "season,week,date\n14,1,2026-01-06\n"
	_, _, err := parseScores(strings.NewReader(in))
	if err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Errorf("err = %v, want missing column", err)
	}
}

func TestParseSchedule(t *testing.T) {
	in := "match_id,season,week,date,venue,home_team,away_team\n" +
		"s1,15,1,2026-04-07,Big Lebens,The Flippers,Drain Gang\n" +
		",15,2,2026-04-14,Other Place,Drain Gang,The Flippers\n"
	matches, err := parseSchedule(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].MatchID != "s1" || matches[0].HomeTeam != "The Flippers" {
		t.Errorf("match = %+v", matches[0])
	}
	if matches[1].MatchID == "" {
		t.Error("empty match_id must get a generated id")
	}
	if matches[1].MatchID == matches[0].MatchID {
		t.Error("generated id must not collide with an explicit one")
	}
}
