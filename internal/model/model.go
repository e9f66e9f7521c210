package model

import (
	"fmt"
	"time"
)

// RoundType distinguishes the two round formats a league night is built from.
type RoundType int

const (
	RoundUnknown RoundType = 0
	Singles      RoundType = 1 // rounds 2 and 3, two players per machine
	Doubles      RoundType = 2 // rounds 1 and 4, four players per machine
)

func (t RoundType) String() string {
	switch t {
	case Singles:
		return "singles"
	case Doubles:
		return "doubles"
	default:
		return "?"
	}
}

// Context marks whether a team was playing at its home venue for a record.
type Context int

const (
	ContextUnknown Context = 0
	Home           Context = 1
	Away           Context = 2
)

func (c Context) String() string {
	switch c {
	case Home:
		return "home"
	case Away:
		return "away"
	default:
		return "?"
	}
}

// SubjectKind says whether a MachineStat is scoped to a player or a team.
type SubjectKind int

const (
	SubjectPlayer SubjectKind = 1
	SubjectTeam   SubjectKind = 2
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectPlayer:
		return "player"
	case SubjectTeam:
		return "team"
	default:
		return "?"
	}
}

// AllVenues is the venue key used for thresholds aggregated across venues.
const AllVenues = "all"

// ---- Raw facts produced by ingestion ----

// ScoreRecord is one game score as it appears in the league archive. It is
// written once by the loader and only ever read by the stats engine.
type ScoreRecord struct {
	MatchID  string
	Season   int
	Week     int
	Date     string // YYYY-MM-DD
	Venue    string
	Round    int // 1-4
	Position int // 1-4 in doubles, 1-2 in singles
	Machine  string
	Player   string
	Team     string
	Score    int64 // non-negative
	IsHome   bool
	IsSub    bool
}

// RosterEntry records a player's membership on a team for one season.
// IPR is a per-player skill rating (1-6) carried as display metadata only;
// it is never computed here. Substitute is true when the player never
// appeared for the team as a rostered (non-sub) player that season.
type RosterEntry struct {
	Player     string
	Team       string
	Season     int
	IPR        int
	Substitute bool
}

// ScheduledMatch is an upcoming fixture the precompute job builds reports for.
type ScheduledMatch struct {
	MatchID  string
	Season   int
	Week     int
	Date     string
	Venue    string
	HomeTeam string
	AwayTeam string
}

// ---- Derived statistics ----

// PercentileThreshold is one published percentile level for a
// (machine, venue, season) score population. Venue is AllVenues for tables
// pooled across venues. A season's tables are replaced wholesale on
// recomputation, never merged.
type PercentileThreshold struct {
	Machine    string
	Venue      string
	Season     int
	Level      int     // one of 10, 25, 50, 75, 90, 95, 99
	Value      float64 // interpolated score threshold
	SampleSize int
}

// MachineStat is a per-machine summary for one subject (player or team).
// Percentile and win-rate fields are nil when the underlying sample could
// not support them, as opposed to a true zero.
type MachineStat struct {
	Subject     string
	Kind        SubjectKind
	Machine     string
	Venue       string
	SeasonLabel string

	GamesPlayed  int
	RoundsPlayed int
	TotalScore   int64
	MedianScore  float64
	AverageScore float64
	BestScore    int64
	WorstScore   int64

	MedianPercentile  *float64
	AveragePercentile *float64
	WinPercentage     *float64
}

// PickRecord counts how often a team chose a machine when it had the choice.
// Opportunities should never be below TimesPicked; when the archive is
// incomplete it can be, and the engine computes with the data as given (the
// displayed rate is capped downstream). The inconsistency is an upstream
// data defect to fix at the source, not something the engine repairs.
type PickRecord struct {
	Team      string
	Machine   string
	Season    int
	Context   Context
	RoundType RoundType

	TimesPicked   int
	Opportunities int
	LowerBound    float64 // cached Wilson lower bound, 0-1
}

// RankedPick is a PickRecord carrying its display rate, ordered by LowerBound.
type RankedPick struct {
	PickRecord
	Rate float64 // capped at 100
}

// ConfidenceInterval is computed on demand and never persisted on its own;
// it only survives embedded in a MatchupAnalysis snapshot.
type ConfidenceInterval struct {
	Mean       float64
	StdDev     float64
	Lower      float64 // clamped at 0
	Upper      float64
	SampleSize int
	Level      int // 95 or 90
}

// ---- Matchup report ----

// MachinePlayCount is one entry in a player's machine-preference list.
type MachinePlayCount struct {
	Machine string
	Games   int
}

// PlayerPreference lists a rostered player's most-played lineup machines.
type PlayerPreference struct {
	Player   string
	IPR      int
	Machines []MachinePlayCount
}

// MachineInterval is a team-level confidence interval for one lineup machine.
type MachineInterval struct {
	Machine  string
	Interval ConfidenceInterval
}

// PlayerMachineInterval is a per-player confidence interval for one machine.
type PlayerMachineInterval struct {
	Player   string
	Machine  string
	Interval ConfidenceInterval
}

// MatchupAnalysis is a point-in-time head-to-head report for two teams at a
// venue over a season window. It may be cached as an opaque snapshot keyed by
// a scheduled-match id; the cache is advisory and a miss recomputes.
type MatchupAnalysis struct {
	MatchID     string `json:"match_id,omitempty"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	Venue       string `json:"venue"`
	Seasons     []int  `json:"seasons"`
	SeasonLabel string `json:"season_label"`

	GeneratedAt time.Time `json:"generated_at"`

	Machines []string `json:"machines"`

	HomePicks []RankedPick `json:"home_picks"`
	AwayPicks []RankedPick `json:"away_picks"`

	HomePlayers []PlayerPreference `json:"home_players"`
	AwayPlayers []PlayerPreference `json:"away_players"`

	HomeIntervals []MachineInterval `json:"home_intervals"`
	AwayIntervals []MachineInterval `json:"away_intervals"`

	HomePlayerIntervals []PlayerMachineInterval `json:"home_player_intervals"`
	AwayPlayerIntervals []PlayerMachineInterval `json:"away_player_intervals"`
}

// SeasonLabel renders a season set as a single number or a min-max range.
func SeasonLabel(seasons []int) string {
	if len(seasons) == 0 {
		return ""
	}
	lo, hi := seasons[0], seasons[0]
	for _, s := range seasons[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if lo == hi {
		return fmt.Sprintf("%d", lo)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}
