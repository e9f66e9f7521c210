// Package loader parses league archive CSV files into score records and
// roster entries. One archive row is one game score.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/salishmushrooms/pinstats/internal/model"
	"github.com/salishmushrooms/pinstats/internal/rounds"
)

// Archive columns, in header order. The ipr column is optional.
var scoreHeader = []string{
	"season", "week", "date", "match_id", "venue", "home_team", "away_team",
	"round", "machine", "position", "player", "team", "score", "sub",
}

// ParseScores reads a score archive CSV. Returns the score records plus the
// roster entries derivable from them: one entry per (player, team, season),
// marked substitute when the player never appeared as a rostered player.
func ParseScores(path string) ([]model.ScoreRecord, []model.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return parseScores(f)
}

func parseScores(r io.Reader) ([]model.ScoreRecord, []model.RosterEntry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	col, err := headerIndex(header, scoreHeader)
	if err != nil {
		return nil, nil, err
	}
	iprCol := indexOf(header, "ipr") // optional

	type rosterKey struct {
		player string
		team   string
		season int
	}
	type rosterAccum struct {
		ipr      int
		rostered bool // appeared at least once as a non-sub
	}
	rosterAccums := make(map[rosterKey]*rosterAccum)
	var rosterOrder []rosterKey

	var records []model.ScoreRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		rec, err := parseScoreRow(row, col)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)

		k := rosterKey{rec.Player, rec.Team, rec.Season}
		acc := rosterAccums[k]
		if acc == nil {
			acc = &rosterAccum{}
			rosterAccums[k] = acc
			rosterOrder = append(rosterOrder, k)
		}
		if !rec.IsSub {
			acc.rostered = true
		}
		if iprCol >= 0 && iprCol < len(row) {
			if ipr, err := strconv.Atoi(strings.TrimSpace(row[iprCol])); err == nil && ipr >= 1 && ipr <= 6 {
				acc.ipr = ipr
			}
		}
	}

	roster := make([]model.RosterEntry, 0, len(rosterOrder))
	for _, k := range rosterOrder {
		acc := rosterAccums[k]
		roster = append(roster, model.RosterEntry{
			Player:     k.player,
			Team:       k.team,
			Season:     k.season,
			IPR:        acc.ipr,
			Substitute: !acc.rostered,
		})
	}
	return records, roster, nil
}

func parseScoreRow(row []string, col map[string]int) (model.ScoreRecord, error) {
	get := func(name string) string { return strings.TrimSpace(row[col[name]]) }

	season, err := strconv.Atoi(get("season"))
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("bad season %q", get("season"))
	}
	week, err := strconv.Atoi(get("week"))
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("bad week %q", get("week"))
	}
	round, err := strconv.Atoi(get("round"))
	if err != nil || round < 1 || round > 4 {
		return model.ScoreRecord{}, fmt.Errorf("bad round %q (want 1-4)", get("round"))
	}
	position, err := strconv.Atoi(get("position"))
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("bad position %q", get("position"))
	}
	maxPos := 2
	if rounds.Type(round) == model.Doubles {
		maxPos = 4
	}
	if position < 1 || position > maxPos {
		return model.ScoreRecord{}, fmt.Errorf("position %d out of range for round %d (want 1-%d)", position, round, maxPos)
	}
	score, err := strconv.ParseInt(get("score"), 10, 64)
	if err != nil || score < 0 {
		return model.ScoreRecord{}, fmt.Errorf("bad score %q (want non-negative integer)", get("score"))
	}

	team := get("team")
	home := get("home_team")
	away := get("away_team")
	if team != home && team != away {
		return model.ScoreRecord{}, fmt.Errorf("team %q is neither home %q nor away %q", team, home, away)
	}

	return model.ScoreRecord{
		MatchID:  get("match_id"),
		Season:   season,
		Week:     week,
		Date:     get("date"),
		Venue:    get("venue"),
		Round:    round,
		Position: position,
		Machine:  get("machine"),
		Player:   get("player"),
		Team:     team,
		Score:    score,
		IsHome:   team == home,
		IsSub:    parseBool(get("sub")),
	}, nil
}

// Schedule columns, in header order. match_id may be empty; one is generated.
var scheduleHeader = []string{
	"match_id", "season", "week", "date", "venue", "home_team", "away_team",
}

// ParseSchedule reads a fixtures CSV. Rows without a match id get a
// generated one so snapshots have a stable cache key.
func ParseSchedule(path string) ([]model.ScheduledMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schedule: %w", err)
	}
	defer f.Close()
	return parseSchedule(f)
}

func parseSchedule(r io.Reader) ([]model.ScheduledMatch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col, err := headerIndex(header, scheduleHeader)
	if err != nil {
		return nil, err
	}

	var matches []model.ScheduledMatch
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		get := func(name string) string { return strings.TrimSpace(row[col[name]]) }
		season, err := strconv.Atoi(get("season"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad season %q", line, get("season"))
		}
		week, err := strconv.Atoi(get("week"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad week %q", line, get("week"))
		}
		id := get("match_id")
		if id == "" {
			id = uuid.NewString()
		}
		matches = append(matches, model.ScheduledMatch{
			MatchID:  id,
			Season:   season,
			Week:     week,
			Date:     get("date"),
			Venue:    get("venue"),
			HomeTeam: get("home_team"),
			AwayTeam: get("away_team"),
		})
	}
	return matches, nil
}

func headerIndex(header, required []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == name {
			return i
		}
	}
	return -1
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}
