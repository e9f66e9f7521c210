package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salishmushrooms/pinstats/internal/model"
)

// ---- score records ----

// InsertScoreRecords bulk-inserts score rows in a transaction. Uses
// INSERT OR REPLACE so re-loading an archive is idempotent.
func (db *DB) InsertScoreRecords(records []model.ScoreRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO score_records(
			match_id, season, week, date, venue, round, position,
			machine, player, team, score, is_home, is_sub
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err = stmt.Exec(
			r.MatchID, r.Season, r.Week, r.Date, r.Venue, r.Round, r.Position,
			r.Machine, r.Player, r.Team, r.Score, boolInt(r.IsHome), boolInt(r.IsSub),
		)
		if err != nil {
			return fmt.Errorf("insert score record %s/%d/%s: %w", r.MatchID, r.Round, r.Player, err)
		}
	}
	return tx.Commit()
}

const scoreColumns = `match_id, season, week, date, venue, round, position,
	machine, player, team, score, is_home, is_sub`

func scanScoreRecords(rows *sql.Rows) ([]model.ScoreRecord, error) {
	defer rows.Close()
	var out []model.ScoreRecord
	for rows.Next() {
		var r model.ScoreRecord
		var isHome, isSub int
		err := rows.Scan(&r.MatchID, &r.Season, &r.Week, &r.Date, &r.Venue,
			&r.Round, &r.Position, &r.Machine, &r.Player, &r.Team, &r.Score,
			&isHome, &isSub)
		if err != nil {
			return nil, err
		}
		r.IsHome = isHome != 0
		r.IsSub = isSub != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeasonRecords returns every score row for one season.
func (db *DB) SeasonRecords(season int) ([]model.ScoreRecord, error) {
	rows, err := db.conn.Query(
		"SELECT "+scoreColumns+" FROM score_records WHERE season = ?", season)
	if err != nil {
		return nil, err
	}
	return scanScoreRecords(rows)
}

// TeamRecords returns all rows from the team's matches at the venue in the
// given seasons, including the opposing teams' rows so win rates can be
// resolved within each (match, round, machine) group.
func (db *DB) TeamRecords(team, venue string, seasons []int) ([]model.ScoreRecord, error) {
	ph, args := inArgs(seasons)
	query := `SELECT ` + scoreColumns + ` FROM score_records
		WHERE match_id IN (
			SELECT DISTINCT match_id FROM score_records
			WHERE team = ? AND venue = ? AND season IN (` + ph + `)
		)`
	all := append([]any{team, venue}, args...)
	rows, err := db.conn.Query(query, all...)
	if err != nil {
		return nil, err
	}
	return scanScoreRecords(rows)
}

// PlayerRecords returns the player's own score rows across the seasons.
func (db *DB) PlayerRecords(player string, seasons []int) ([]model.ScoreRecord, error) {
	ph, args := inArgs(seasons)
	query := "SELECT " + scoreColumns + " FROM score_records WHERE player = ? AND season IN (" + ph + ")"
	all := append([]any{player}, args...)
	rows, err := db.conn.Query(query, all...)
	if err != nil {
		return nil, err
	}
	return scanScoreRecords(rows)
}

// PlayerMatchRecords returns all rows of every match the player appeared in
// across the seasons, peers included.
func (db *DB) PlayerMatchRecords(player string, seasons []int) ([]model.ScoreRecord, error) {
	ph, args := inArgs(seasons)
	query := `SELECT ` + scoreColumns + ` FROM score_records
		WHERE match_id IN (
			SELECT DISTINCT match_id FROM score_records
			WHERE player = ? AND season IN (` + ph + `)
		)`
	all := append([]any{player}, args...)
	rows, err := db.conn.Query(query, all...)
	if err != nil {
		return nil, err
	}
	return scanScoreRecords(rows)
}

// TeamMatchRecords returns all rows of every match the team played in the
// seasons at any venue, peers included.
func (db *DB) TeamMatchRecords(team string, seasons []int) ([]model.ScoreRecord, error) {
	ph, args := inArgs(seasons)
	query := `SELECT ` + scoreColumns + ` FROM score_records
		WHERE match_id IN (
			SELECT DISTINCT match_id FROM score_records
			WHERE team = ? AND season IN (` + ph + `)
		)`
	all := append([]any{team}, args...)
	rows, err := db.conn.Query(query, all...)
	if err != nil {
		return nil, err
	}
	return scanScoreRecords(rows)
}

// VenueKnown reports whether any score row references the venue.
func (db *DB) VenueKnown(venue string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(1) FROM score_records WHERE venue = ?", venue).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// VenueMachines returns the distinct machines recorded at the venue in one
// season, sorted by name. An empty result means no lineup is known.
func (db *DB) VenueMachines(venue string, season int) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT machine FROM score_records
		WHERE venue = ? AND season = ? ORDER BY machine`, venue, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SeasonInfo is one row of the seasons listing.
type SeasonInfo struct {
	Season  int
	Records int
	Venues  int
	Teams   int
}

// Seasons lists stored seasons with record counts, newest first.
func (db *DB) Seasons() ([]SeasonInfo, error) {
	rows, err := db.conn.Query(`
		SELECT season, COUNT(1), COUNT(DISTINCT venue), COUNT(DISTINCT team)
		FROM score_records GROUP BY season ORDER BY season DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SeasonInfo
	for rows.Next() {
		var s SeasonInfo
		if err := rows.Scan(&s.Season, &s.Records, &s.Venues, &s.Teams); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestSeason returns the most recent stored season, or 0 when empty.
func (db *DB) LatestSeason() (int, error) {
	var season sql.NullInt64
	err := db.conn.QueryRow("SELECT MAX(season) FROM score_records").Scan(&season)
	if err != nil {
		return 0, err
	}
	return int(season.Int64), nil
}

// ---- rosters ----

// InsertRosterEntries bulk-inserts roster rows in a transaction.
func (db *DB) InsertRosterEntries(entries []model.RosterEntry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO rosters(player, team, season, ipr, is_sub)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Player, e.Team, e.Season, e.IPR, boolInt(e.Substitute)); err != nil {
			return fmt.Errorf("insert roster %s/%s/%d: %w", e.Player, e.Team, e.Season, err)
		}
	}
	return tx.Commit()
}

// TeamRoster returns the team's roster entries across the seasons. A player
// appearing in several seasons yields one entry per season.
func (db *DB) TeamRoster(team string, seasons []int) ([]model.RosterEntry, error) {
	ph, args := inArgs(seasons)
	query := "SELECT player, team, season, ipr, is_sub FROM rosters WHERE team = ? AND season IN (" + ph + ") ORDER BY player, season"
	all := append([]any{team}, args...)
	rows, err := db.conn.Query(query, all...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RosterEntry
	for rows.Next() {
		var e model.RosterEntry
		var isSub int
		if err := rows.Scan(&e.Player, &e.Team, &e.Season, &e.IPR, &isSub); err != nil {
			return nil, err
		}
		e.Substitute = isSub != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- percentile thresholds ----

// ReplaceSeasonThresholds replaces a season's threshold tables wholesale:
// stale rows for the season are deleted, not merged with.
func (db *DB) ReplaceSeasonThresholds(season int, thresholds []model.PercentileThreshold) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM percentile_thresholds WHERE season = ?", season); err != nil {
		return fmt.Errorf("clear thresholds for season %d: %w", season, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO percentile_thresholds(machine, venue, season, level, value, sample_size)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range thresholds {
		if _, err := stmt.Exec(t.Machine, t.Venue, season, t.Level, t.Value, t.SampleSize); err != nil {
			return fmt.Errorf("insert threshold %s/%s/p%d: %w", t.Machine, t.Venue, t.Level, err)
		}
	}
	return tx.Commit()
}

// SeasonThresholds returns every threshold row for one season, ordered by
// machine, venue, level.
func (db *DB) SeasonThresholds(season int) ([]model.PercentileThreshold, error) {
	rows, err := db.conn.Query(`
		SELECT machine, venue, season, level, value, sample_size
		FROM percentile_thresholds WHERE season = ?
		ORDER BY machine, venue, level`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PercentileThreshold
	for rows.Next() {
		var t model.PercentileThreshold
		if err := rows.Scan(&t.Machine, &t.Venue, &t.Season, &t.Level, &t.Value, &t.SampleSize); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- machine stats ----

// InsertMachineStats bulk-inserts derived machine stats, replacing any prior
// row for the same key.
func (db *DB) InsertMachineStats(stats []model.MachineStat) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO machine_stats(
			subject, kind, machine, venue, season_label,
			games_played, rounds_played, total_score, median_score,
			average_score, best_score, worst_score,
			median_percentile, average_percentile, win_percentage
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stats {
		_, err := stmt.Exec(
			s.Subject, s.Kind.String(), s.Machine, s.Venue, s.SeasonLabel,
			s.GamesPlayed, s.RoundsPlayed, s.TotalScore, s.MedianScore,
			s.AverageScore, s.BestScore, s.WorstScore,
			nullFloat(s.MedianPercentile), nullFloat(s.AveragePercentile), nullFloat(s.WinPercentage),
		)
		if err != nil {
			return fmt.Errorf("insert machine stat %s/%s: %w", s.Subject, s.Machine, err)
		}
	}
	return tx.Commit()
}

// ---- pick records ----

// ReplaceSeasonPickRecords replaces a season's pick records wholesale.
func (db *DB) ReplaceSeasonPickRecords(season int, records []model.PickRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pick_records WHERE season = ?", season); err != nil {
		return fmt.Errorf("clear pick records for season %d: %w", season, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO pick_records(team, machine, season, context, round_type,
			times_picked, opportunities, lower_bound)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(r.Team, r.Machine, season, r.Context.String(),
			r.RoundType.String(), r.TimesPicked, r.Opportunities, r.LowerBound)
		if err != nil {
			return fmt.Errorf("insert pick record %s/%s: %w", r.Team, r.Machine, err)
		}
	}
	return tx.Commit()
}

// TeamPickRecords returns the team's persisted pick records for one context
// across the seasons.
func (db *DB) TeamPickRecords(team string, seasons []int, ctx model.Context) ([]model.PickRecord, error) {
	ph, args := inArgs(seasons)
	query := `SELECT team, machine, season, context, round_type,
			times_picked, opportunities, lower_bound
		FROM pick_records
		WHERE team = ? AND context = ? AND season IN (` + ph + `)
		ORDER BY machine, season, round_type`
	all := append([]any{team, ctx.String()}, args...)
	rows, err := db.conn.Query(query, all...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PickRecord
	for rows.Next() {
		var r model.PickRecord
		var ctxStr, rtStr string
		err := rows.Scan(&r.Team, &r.Machine, &r.Season, &ctxStr, &rtStr,
			&r.TimesPicked, &r.Opportunities, &r.LowerBound)
		if err != nil {
			return nil, err
		}
		r.Context = parseContext(ctxStr)
		r.RoundType = parseRoundType(rtStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- scheduled matches ----

// InsertScheduledMatches bulk-inserts fixture rows.
func (db *DB) InsertScheduledMatches(matches []model.ScheduledMatch) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO scheduled_matches(
			match_id, season, week, date, venue, home_team, away_team
		) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err := stmt.Exec(m.MatchID, m.Season, m.Week, m.Date, m.Venue, m.HomeTeam, m.AwayTeam)
		if err != nil {
			return fmt.Errorf("insert scheduled match %s: %w", m.MatchID, err)
		}
	}
	return tx.Commit()
}

// ScheduledMatches returns fixtures for one season ordered by week.
func (db *DB) ScheduledMatches(season int) ([]model.ScheduledMatch, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, season, week, date, venue, home_team, away_team
		FROM scheduled_matches WHERE season = ? ORDER BY week, match_id`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ScheduledMatch
	for rows.Next() {
		var m model.ScheduledMatch
		if err := rows.Scan(&m.MatchID, &m.Season, &m.Week, &m.Date, &m.Venue, &m.HomeTeam, &m.AwayTeam); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetScheduledMatch returns one fixture, or nil when unknown.
func (db *DB) GetScheduledMatch(matchID string) (*model.ScheduledMatch, error) {
	var m model.ScheduledMatch
	err := db.conn.QueryRow(`
		SELECT match_id, season, week, date, venue, home_team, away_team
		FROM scheduled_matches WHERE match_id = ?`, matchID).
		Scan(&m.MatchID, &m.Season, &m.Week, &m.Date, &m.Venue, &m.HomeTeam, &m.AwayTeam)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ---- matchup snapshots ----

// SaveSnapshot persists a matchup report as an opaque JSON payload keyed by
// the scheduled-match id, replacing any prior snapshot. Concurrent writers
// race safely: identical inputs produce identical payloads, last writer wins.
func (db *DB) SaveSnapshot(report *model.MatchupAnalysis) error {
	if report.MatchID == "" {
		return fmt.Errorf("snapshot requires a match id")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO matchup_snapshots(
			match_id, home_team, away_team, venue, season_label, generated_at, payload
		) VALUES (?,?,?,?,?,?,?)`,
		report.MatchID, report.HomeTeam, report.AwayTeam, report.Venue,
		report.SeasonLabel, report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		string(payload),
	)
	return err
}

// GetSnapshot returns the cached report for a scheduled match, or nil on a
// cache miss. The cache is advisory; a miss means recompute.
func (db *DB) GetSnapshot(matchID string) (*model.MatchupAnalysis, error) {
	var payload string
	err := db.conn.QueryRow(
		"SELECT payload FROM matchup_snapshots WHERE match_id = ?", matchID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report model.MatchupAnalysis
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", matchID, err)
	}
	return &report, nil
}

// ---- helpers ----

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func inArgs(seasons []int) (string, []any) {
	if len(seasons) == 0 {
		return "NULL", nil
	}
	args := make([]any, len(seasons))
	for i, s := range seasons {
		args[i] = s
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(seasons)), ","), args
}

func parseContext(s string) model.Context {
	switch s {
	case "home":
		return model.Home
	case "away":
		return model.Away
	default:
		return model.ContextUnknown
	}
}

func parseRoundType(s string) model.RoundType {
	switch s {
	case "singles":
		return model.Singles
	case "doubles":
		return model.Doubles
	default:
		return model.RoundUnknown
	}
}
