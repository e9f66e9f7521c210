// Package picks counts machine picks from raw score records and ranks them
// with a confidence-adjusted estimator so small samples don't dominate.
package picks

import (
	"math"
	"sort"

	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/rounds"
)

// MinOpportunities is the floor below which a pick record is excluded from
// ranked output entirely, whatever its raw rate.
const MinOpportunities = 3

const wilsonZ = 1.96 // fixed 95% level for the ranking bound

// Rate returns the pick rate as a percentage, capped at 100. Raw capture
// windows can over-count picks relative to opportunities; the cap prevents a
// >100% display artifact without hiding the underlying data issue, which
// should be corrected upstream.
func Rate(picked, opportunities int) float64 {
	if opportunities <= 0 {
		return 0
	}
	rate := float64(picked) / float64(opportunities) * 100
	if rate > 100 {
		return 100
	}
	return rate
}

// WilsonLowerBound returns the lower bound of the Wilson score interval for
// the pick proportion, in [0, 1]. It is the ranking key instead of the raw
// rate so that a 1-for-1 record does not outrank a 7-for-10 record: small
// samples are pulled toward 0.5 in proportion to their uncertainty.
func WilsonLowerBound(picked, opportunities int) float64 {
	if opportunities <= 0 {
		return 0
	}
	n := float64(opportunities)
	p := float64(picked) / n
	if p > 1 {
		p = 1
	}
	z := wilsonZ
	denom := 1 + z*z/n
	center := (p + z*z/(2*n)) / denom
	half := z * math.Sqrt(p*(1-p)/n+z*z/(4*n*n)) / denom
	lo := center - half
	if lo < 0 {
		return 0
	}
	return lo
}

// Rank filters out records below MinOpportunities, fills in each record's
// rate and Wilson lower bound, and sorts by lower bound descending. Equal
// bounds keep their input order.
func Rank(records []model.PickRecord) []model.RankedPick {
	ranked := make([]model.RankedPick, 0, len(records))
	for _, r := range records {
		if r.Opportunities < MinOpportunities {
			continue
		}
		r.LowerBound = WilsonLowerBound(r.TimesPicked, r.Opportunities)
		ranked = append(ranked, model.RankedPick{
			PickRecord: r,
			Rate:       Rate(r.TimesPicked, r.Opportunities),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].LowerBound > ranked[j].LowerBound
	})
	return ranked
}

// LineupKey identifies one venue's machine lineup for a season.
type LineupKey struct {
	Season int
	Venue  string
}

// Count derives pick records from raw score rows. Each distinct
// (match, round, machine) instance is one pick by the round's picking team,
// and one opportunity for every machine in the venue's lineup for that
// season. Keys carry the picking team's home/away context and the round
// type. Output order is team, then machine, then season, then context, then
// round type.
func Count(records []model.ScoreRecord, lineups map[LineupKey][]string) []model.PickRecord {
	type instanceKey struct {
		matchID string
		round   int
		machine string
	}
	type instance struct {
		season   int
		venue    string
		round    int
		machine  string
		homeTeam string
		awayTeam string
	}

	instances := make(map[instanceKey]*instance)
	for _, r := range records {
		k := instanceKey{r.MatchID, r.Round, r.Machine}
		inst := instances[k]
		if inst == nil {
			inst = &instance{season: r.Season, venue: r.Venue, round: r.Round, machine: r.Machine}
			instances[k] = inst
		}
		if r.IsHome {
			inst.homeTeam = r.Team
		} else {
			inst.awayTeam = r.Team
		}
	}

	type pickKey struct {
		team      string
		machine   string
		season    int
		context   model.Context
		roundType model.RoundType
	}
	picked := make(map[pickKey]int)
	opps := make(map[pickKey]int)

	for _, inst := range instances {
		if inst.homeTeam == "" || inst.awayTeam == "" {
			continue // one-sided instance, picking team unknowable
		}
		team := rounds.PickingTeam(inst.round, inst.homeTeam, inst.awayTeam)
		ctx := model.Home
		if team == inst.awayTeam {
			ctx = model.Away
		}
		rt := rounds.Type(inst.round)

		for _, m := range lineups[LineupKey{inst.season, inst.venue}] {
			opps[pickKey{team, m, inst.season, ctx, rt}]++
		}
		picked[pickKey{team, inst.machine, inst.season, ctx, rt}]++
	}

	keys := make(map[pickKey]struct{}, len(opps))
	for k := range opps {
		keys[k] = struct{}{}
	}
	for k := range picked {
		keys[k] = struct{}{}
	}

	out := make([]model.PickRecord, 0, len(keys))
	for k := range keys {
		out = append(out, model.PickRecord{
			Team:          k.team,
			Machine:       k.machine,
			Season:        k.season,
			Context:       k.context,
			RoundType:     k.roundType,
			TimesPicked:   picked[k],
			Opportunities: opps[k],
			LowerBound:    WilsonLowerBound(picked[k], opps[k]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Machine != b.Machine {
			return a.Machine < b.Machine
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Context != b.Context {
			return a.Context < b.Context
		}
		return a.RoundType < b.RoundType
	})
	return out
}

// Pool merges records that share (team, machine, context, round type) across
// seasons into one record per key, summing picks and opportunities. Seasons
// are pooled as one sample, never averaged per season then combined. The
// merged record's season is 0.
func Pool(records []model.PickRecord) []model.PickRecord {
	type poolKey struct {
		team      string
		machine   string
		context   model.Context
		roundType model.RoundType
	}
	merged := make(map[poolKey]*model.PickRecord)
	var order []poolKey
	for _, r := range records {
		k := poolKey{r.Team, r.Machine, r.Context, r.RoundType}
		m := merged[k]
		if m == nil {
			m = &model.PickRecord{Team: r.Team, Machine: r.Machine, Context: r.Context, RoundType: r.RoundType}
			merged[k] = m
			order = append(order, k)
		}
		m.TimesPicked += r.TimesPicked
		m.Opportunities += r.Opportunities
	}
	out := make([]model.PickRecord, 0, len(order))
	for _, k := range order {
		m := merged[k]
		m.LowerBound = WilsonLowerBound(m.TimesPicked, m.Opportunities)
		out = append(out, *m)
	}
	return out
}
