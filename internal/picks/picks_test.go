package picks

import (
	"testing"

	"github.com/salishmushrooms/pinstats/internal/model"
)

func TestRate_Capped(t *testing.T) {
	// 12 picks over 10 opportunities is a known upstream data defect; the
	// displayed rate caps at exactly 100 instead of 120.
	if got := Rate(12, 10); got != 100 {
		t.Errorf("Rate(12, 10) = %f, want 100", got)
	}
	if got := Rate(7, 10); got != 70 {
		t.Errorf("Rate(7, 10) = %f, want 70", got)
	}
	if got := Rate(0, 10); got != 0 {
		t.Errorf("Rate(0, 10) = %f, want 0", got)
	}
	if got := Rate(3, 0); got != 0 {
		t.Errorf("Rate(3, 0) = %f, want 0", got)
	}
}

func TestWilsonLowerBound_SmallSamplePenalized(t *testing.T) {
	// A perfect 1-for-1 must rank strictly below 7-for-10 despite its 100%
	// raw rate.
	oneForOne := WilsonLowerBound(1, 1)
	sevenForTen := WilsonLowerBound(7, 10)
	if oneForOne >= sevenForTen {
		t.Errorf("WilsonLowerBound(1,1)=%f should be strictly below WilsonLowerBound(7,10)=%f",
			oneForOne, sevenForTen)
	}
}

func TestWilsonLowerBound_Bounds(t *testing.T) {
	if got := WilsonLowerBound(0, 10); got != 0 {
		t.Errorf("WilsonLowerBound(0,10) = %f, want 0", got)
	}
	if got := WilsonLowerBound(5, 0); got != 0 {
		t.Errorf("no opportunities = %f, want 0", got)
	}
	// Inconsistent input (picks > opportunities) must not blow up.
	if got := WilsonLowerBound(12, 10); got <= 0 || got > 1 {
		t.Errorf("WilsonLowerBound(12,10) = %f, want value in (0, 1]", got)
	}
}

func TestRank_FiltersAndOrders(t *testing.T) {
	records := []model.PickRecord{
		{Team: "A", Machine: "Godzilla", TimesPicked: 1, Opportunities: 1},   // perfect, tiny sample
		{Team: "A", Machine: "Medieval", TimesPicked: 7, Opportunities: 10},  // established
		{Team: "A", Machine: "Twilight", TimesPicked: 2, Opportunities: 2},   // below MinOpportunities
		{Team: "A", Machine: "Paragon", TimesPicked: 0, Opportunities: 8},    // never picked
	}
	ranked := Rank(records)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked entries (Twilight excluded), got %d", len(ranked))
	}
	for _, r := range ranked {
		if r.Machine == "Twilight" {
			t.Error("entry below MinOpportunities must be excluded regardless of rate")
		}
	}
	if ranked[0].Machine != "Medieval" {
		t.Errorf("expected Medieval first (7/10 beats 1/1), got %s", ranked[0].Machine)
	}
	if ranked[len(ranked)-1].Machine != "Paragon" {
		t.Errorf("expected Paragon last, got %s", ranked[len(ranked)-1].Machine)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].LowerBound > ranked[i-1].LowerBound {
			t.Errorf("ranked output not descending at %d", i)
		}
	}
}

// ---- pick derivation ----

const (
	homeTeam = "The Flippers"
	awayTeam = "Drain Gang"
)

// doublesInstance builds the four rows of one doubles machine instance.
func doublesInstance(matchID string, round int, machine string, season int) []model.ScoreRecord {
	venue := "Big Lebens"
	return []model.ScoreRecord{
		{MatchID: matchID, Season: season, Venue: venue, Round: round, Position: 1, Machine: machine, Player: "h1", Team: homeTeam, IsHome: true},
		{MatchID: matchID, Season: season, Venue: venue, Round: round, Position: 2, Machine: machine, Player: "a1", Team: awayTeam},
		{MatchID: matchID, Season: season, Venue: venue, Round: round, Position: 3, Machine: machine, Player: "h2", Team: homeTeam, IsHome: true},
		{MatchID: matchID, Season: season, Venue: venue, Round: round, Position: 4, Machine: machine, Player: "a2", Team: awayTeam},
	}
}

func TestCount_PickingTeamAndOpportunities(t *testing.T) {
	// Round 1 is an away pick; round 4 a home pick.
	var records []model.ScoreRecord
	records = append(records, doublesInstance("m1", 1, "Godzilla", 14)...)
	records = append(records, doublesInstance("m1", 4, "Medieval", 14)...)

	lineup := map[LineupKey][]string{
		{Season: 14, Venue: "Big Lebens"}: {"Godzilla", "Medieval", "Paragon"},
	}
	out := Count(records, lineup)

	find := func(team, machine string, ctx model.Context) *model.PickRecord {
		for i := range out {
			r := &out[i]
			if r.Team == team && r.Machine == machine && r.Context == ctx {
				return r
			}
		}
		return nil
	}

	away := find(awayTeam, "Godzilla", model.Away)
	if away == nil {
		t.Fatal("missing away pick record for Godzilla")
	}
	if away.TimesPicked != 1 || away.Opportunities != 1 {
		t.Errorf("away Godzilla = %d/%d, want 1/1", away.TimesPicked, away.Opportunities)
	}
	if away.RoundType != model.Doubles {
		t.Errorf("round 1 pick should be doubles, got %v", away.RoundType)
	}

	// The away team had one pick instance, so every lineup machine gets one
	// opportunity, picked or not.
	neverPicked := find(awayTeam, "Paragon", model.Away)
	if neverPicked == nil {
		t.Fatal("unpicked lineup machine should still have an opportunity record")
	}
	if neverPicked.TimesPicked != 0 || neverPicked.Opportunities != 1 {
		t.Errorf("away Paragon = %d/%d, want 0/1", neverPicked.TimesPicked, neverPicked.Opportunities)
	}

	home := find(homeTeam, "Medieval", model.Home)
	if home == nil {
		t.Fatal("missing home pick record for Medieval")
	}
	if home.TimesPicked != 1 {
		t.Errorf("home Medieval picks = %d, want 1", home.TimesPicked)
	}

	// Home never picked in round 1, so no home opportunities from it.
	if r := find(homeTeam, "Godzilla", model.Home); r != nil && r.TimesPicked > 0 {
		t.Errorf("home should not be credited with the away team's round 1 pick")
	}
}

func TestCount_OneSidedInstanceSkipped(t *testing.T) {
	// A lone home-side row can't resolve the picking team.
	records := []model.ScoreRecord{
		{MatchID: "m1", Season: 14, Venue: "V", Round: 2, Position: 1, Machine: "Godzilla", Team: homeTeam, IsHome: true},
	}
	out := Count(records, map[LineupKey][]string{{Season: 14, Venue: "V"}: {"Godzilla"}})
	if len(out) != 0 {
		t.Errorf("expected no pick records from a one-sided instance, got %d", len(out))
	}
}

func TestPool_SumsAcrossSeasons(t *testing.T) {
	records := []model.PickRecord{
		{Team: "A", Machine: "Godzilla", Season: 13, Context: model.Home, RoundType: model.Doubles, TimesPicked: 2, Opportunities: 5},
		{Team: "A", Machine: "Godzilla", Season: 14, Context: model.Home, RoundType: model.Doubles, TimesPicked: 3, Opportunities: 5},
		{Team: "A", Machine: "Godzilla", Season: 14, Context: model.Home, RoundType: model.Singles, TimesPicked: 1, Opportunities: 4},
	}
	pooled := Pool(records)
	if len(pooled) != 2 {
		t.Fatalf("expected 2 pooled keys, got %d", len(pooled))
	}
	var doubles *model.PickRecord
	for i := range pooled {
		if pooled[i].RoundType == model.Doubles {
			doubles = &pooled[i]
		}
	}
	if doubles == nil {
		t.Fatal("missing pooled doubles record")
	}
	if doubles.TimesPicked != 5 || doubles.Opportunities != 10 {
		t.Errorf("pooled = %d/%d, want 5/10 (summed, not averaged)", doubles.TimesPicked, doubles.Opportunities)
	}
	if doubles.LowerBound != WilsonLowerBound(5, 10) {
		t.Errorf("pooled lower bound not recomputed from pooled counts")
	}
}
