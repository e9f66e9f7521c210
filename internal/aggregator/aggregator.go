// Package aggregator turns raw score records into per-machine summary
// statistics for a single subject (player or team).
package aggregator

import (
	"sort"
	"strconv"

	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/percentile"
	"github.com/salishmushrooms/pinstats/internal/rounds"
)

// Filter narrows which score records contribute to the aggregate.
type Filter struct {
	Seasons     []int // empty = all seasons
	Venue       string
	RoundSet    []int // empty = all rounds
	IncludeSubs bool
	MinGames    int // machines with fewer games are dropped from output
}

// ThresholdIndex looks up published percentile thresholds by
// (machine, venue, season), sorted ascending by level. A nil index disables
// percentile columns.
type ThresholdIndex interface {
	Thresholds(machine, venue string, season int) []model.PercentileThreshold
}

// thresholdKey identifies one published threshold table.
type thresholdKey struct {
	Machine string
	Venue   string
	Season  int
}

// MapIndex is a ThresholdIndex backed by an in-memory map.
type MapIndex map[thresholdKey][]model.PercentileThreshold

// Add inserts a threshold row, keeping each table sorted by level.
func (m MapIndex) Add(t model.PercentileThreshold) {
	k := thresholdKey{t.Machine, t.Venue, t.Season}
	rows := append(m[k], t)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Level < rows[j].Level })
	m[k] = rows
}

func (m MapIndex) Thresholds(machine, venue string, season int) []model.PercentileThreshold {
	return m[thresholdKey{machine, venue, season}]
}

// MachineStats aggregates the subject's records per machine. The records
// slice must contain every row for the subject's matches, not only the
// subject's own rows, so win rates can be resolved from peers in the same
// (match, round, machine) group. Win comparison pairs are classified with the
// round-structure rules in the rounds package via a single pre-grouped pass
// over those groups rather than per-row lookups.
func MachineStats(subject string, kind model.SubjectKind, records []model.ScoreRecord, idx ThresholdIndex, f Filter) []model.MachineStat {
	roundOK := roundSetFunc(f.RoundSet)
	seasonOK := seasonSetFunc(f.Seasons)

	var mine []model.ScoreRecord
	for _, r := range records {
		if !seasonOK(r.Season) || !roundOK(r.Round) {
			continue
		}
		if f.Venue != "" && r.Venue != f.Venue {
			continue
		}
		if r.IsSub && !f.IncludeSubs {
			continue
		}
		if !isSubject(r, subject, kind) {
			continue
		}
		mine = append(mine, r)
	}
	if len(mine) == 0 {
		return nil
	}

	// All-pairs join index over (match, round, machine) groups.
	type groupKey struct {
		matchID string
		round   int
		machine string
	}
	groups := make(map[groupKey][]model.ScoreRecord)
	for _, r := range records {
		k := groupKey{r.MatchID, r.Round, r.Machine}
		groups[k] = append(groups[k], r)
	}

	type accum struct {
		venue       string
		scores      []int64
		percentiles []float64
		wins        int
		comparisons int
		roundsSeen  map[string]struct{} // matchID + round
	}
	accums := make(map[string]*accum)
	var machineOrder []string

	for _, r := range mine {
		acc := accums[r.Machine]
		if acc == nil {
			venue := f.Venue
			if venue == "" {
				// Aggregate-by-default: keep the venue of the first record
				// seen for the machine.
				venue = r.Venue
			}
			acc = &accum{venue: venue, roundsSeen: make(map[string]struct{})}
			accums[r.Machine] = acc
			machineOrder = append(machineOrder, r.Machine)
		}
		acc.scores = append(acc.scores, r.Score)
		acc.roundsSeen[r.MatchID+"#"+strconv.Itoa(r.Round)] = struct{}{}

		if idx != nil {
			// An unfiltered aggregate pools scores across venues, so its
			// percentiles come from the all-venues tables, not whichever
			// venue each row happened to be played at.
			venue := f.Venue
			if venue == "" {
				venue = model.AllVenues
			}
			if ths := idx.Thresholds(r.Machine, venue, r.Season); len(ths) > 0 {
				acc.percentiles = append(acc.percentiles, percentile.ScoreToPercentile(float64(r.Score), ths))
			}
		}

		for _, peer := range groups[groupKey{r.MatchID, r.Round, r.Machine}] {
			if isSubject(peer, subject, kind) {
				continue
			}
			if !rounds.IsOpponent(r.Round, r.Position, peer.Position) {
				continue
			}
			acc.comparisons++
			if r.Score > peer.Score {
				acc.wins++
			}
		}
	}

	label := model.SeasonLabel(f.Seasons)
	var out []model.MachineStat
	for _, machine := range machineOrder {
		acc := accums[machine]
		if len(acc.scores) < f.MinGames {
			continue
		}

		st := model.MachineStat{
			Subject:      subject,
			Kind:         kind,
			Machine:      machine,
			Venue:        acc.venue,
			SeasonLabel:  label,
			GamesPlayed:  len(acc.scores),
			RoundsPlayed: len(acc.roundsSeen),
		}

		sorted := make([]float64, len(acc.scores))
		st.BestScore, st.WorstScore = acc.scores[0], acc.scores[0]
		for i, s := range acc.scores {
			st.TotalScore += s
			sorted[i] = float64(s)
			if s > st.BestScore {
				st.BestScore = s
			}
			if s < st.WorstScore {
				st.WorstScore = s
			}
		}
		sort.Float64s(sorted)
		st.MedianScore = median(sorted)
		st.AverageScore = float64(st.TotalScore) / float64(len(acc.scores))

		if len(acc.percentiles) > 0 {
			ps := append([]float64(nil), acc.percentiles...)
			sort.Float64s(ps)
			med := median(ps)
			var sum float64
			for _, p := range ps {
				sum += p
			}
			avg := sum / float64(len(ps))
			st.MedianPercentile = &med
			st.AveragePercentile = &avg
		}

		if acc.comparisons > 0 {
			wp := float64(acc.wins) / float64(acc.comparisons) * 100
			st.WinPercentage = &wp
		}

		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].GamesPlayed != out[j].GamesPlayed {
			return out[i].GamesPlayed > out[j].GamesPlayed
		}
		return out[i].Machine < out[j].Machine
	})
	return out
}

// PlayCounts returns the subject's times-played per machine, most played
// first, optionally restricted to a machine allow-list. Substitute records
// are excluded unless the filter includes them.
func PlayCounts(subject string, kind model.SubjectKind, records []model.ScoreRecord, f Filter, allow map[string]bool) []model.MachinePlayCount {
	roundOK := roundSetFunc(f.RoundSet)
	seasonOK := seasonSetFunc(f.Seasons)

	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		if !seasonOK(r.Season) || !roundOK(r.Round) {
			continue
		}
		if f.Venue != "" && r.Venue != f.Venue {
			continue
		}
		if r.IsSub && !f.IncludeSubs {
			continue
		}
		if !isSubject(r, subject, kind) {
			continue
		}
		if allow != nil && !allow[r.Machine] {
			continue
		}
		if _, seen := counts[r.Machine]; !seen {
			order = append(order, r.Machine)
		}
		counts[r.Machine]++
	}

	out := make([]model.MachinePlayCount, 0, len(order))
	for _, m := range order {
		out = append(out, model.MachinePlayCount{Machine: m, Games: counts[m]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Games != out[j].Games {
			return out[i].Games > out[j].Games
		}
		return out[i].Machine < out[j].Machine
	})
	return out
}

func isSubject(r model.ScoreRecord, subject string, kind model.SubjectKind) bool {
	if kind == model.SubjectTeam {
		return r.Team == subject
	}
	return r.Player == subject
}

func roundSetFunc(set []int) func(int) bool {
	if len(set) == 0 {
		return func(int) bool { return true }
	}
	m := make(map[int]bool, len(set))
	for _, r := range set {
		m[r] = true
	}
	return func(r int) bool { return m[r] }
}

func seasonSetFunc(set []int) func(int) bool {
	if len(set) == 0 {
		return func(int) bool { return true }
	}
	m := make(map[int]bool, len(set))
	for _, s := range set {
		m[s] = true
	}
	return func(s int) bool { return m[s] }
}

// median returns the median of a pre-sorted (ascending) slice of float64.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

