// Package registry keeps the flat list of tracked matches.
package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// DateLayout is the on-disk date format
const DateLayout = "2006-01-02"

// DefaultRetention keeps one year of matches
const DefaultRetention = 365 * 24 * time.Hour

// Header is the CSV column order.
var Header = []string{"match_id", "date", "home_team", "home_team_id", "away_team", "away_team_id", "label"}

// Match is one tracked fixture.
type Match struct {
	MatchID    int64     `json:"match_id"`
	Date       time.Time `json:"date"`
	HomeTeam   string    `json:"home_team"`
	HomeTeamID int64     `json:"home_team_id"`
	AwayTeam   string    `json:"away_team"`
	AwayTeamID int64     `json:"away_team_id"`
}

// Label is the "Home - Away" display string.
func (m Match) Label() string {
	return m.HomeTeam + " - " + m.AwayTeam
}

// Load reads the registry file. A missing file is an empty registry.
func Load(path string) ([]Match, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses registry CSV. Columns are matched by header name.
func Read(r io.Reader) ([]Match, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, required := range []string{"match_id", "date"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("registry missing column %q", required)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var matches []Match
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id, err := strconv.ParseInt(get(row, "match_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: match_id: %w", line, err)
		}
		date, err := parseDate(get(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: date: %w", line, err)
		}
		homeID, _ := strconv.ParseInt(get(row, "home_team_id"), 10, 64)
		awayID, _ := strconv.ParseInt(get(row, "away_team_id"), 10, 64)

		matches = append(matches, Match{
			MatchID:    id,
			Date:       date,
			HomeTeam:   get(row, "home_team"),
			HomeTeamID: homeID,
			AwayTeam:   get(row, "away_team"),
			AwayTeamID: awayID,
		})
	}
	return matches, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Merge appends fresh matches, keeps the first row per match id, sorts by
// date descending, and drops rows older than retention before now.
func Merge(existing, fresh []Match, now time.Time, retention time.Duration) []Match {
	cutoff := Cutoff(now, retention)

	seen := make(map[int64]bool, len(existing)+len(fresh))
	var out []Match
	for _, list := range [][]Match{existing, fresh} {
		for _, m := range list {
			if seen[m.MatchID] {
				continue
			}
			seen[m.MatchID] = true
			if truncateDay(m.Date).Before(cutoff) {
				continue
			}
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// Cutoff is the first day kept by retention: midnight UTC of now-retention.
func Cutoff(now time.Time, retention time.Duration) time.Time {
	return truncateDay(now.Add(-retention))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Write renders the registry as CSV.
func Write(w io.Writer, matches []Match) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range matches {
		row := []string{
			strconv.FormatInt(m.MatchID, 10),
			m.Date.Format(DateLayout),
			m.HomeTeam,
			strconv.FormatInt(m.HomeTeamID, 10),
			m.AwayTeam,
			strconv.FormatInt(m.AwayTeamID, 10),
			m.Label(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write match %d: %w", m.MatchID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save replaces the registry file atomically.
func Save(path string, matches []Match) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, matches); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// Refresh loads path, merges fresh, and saves the result.
func Refresh(path string, fresh []Match, now time.Time, retention time.Duration) ([]Match, error) {
	existing, err := Load(path)
	if err != nil {
		return nil, err
	}
	merged := Merge(existing, fresh, now, retention)
	if err := Save(path, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
