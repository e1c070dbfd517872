package sofascore

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultMetrics are the statistics rows shown in a match summary, in display order.
var DefaultMetrics = []string{
	"Total shots",
	"Shots on target",
	"Big chances",
	"Touches in penalty area",
	"Final third entries",
	"Ball possession",
	"Passes",
	"Accurate passes",
	"Ground duels",
	"Aerial duels",
	"Tackles",
	"Tackles won",
	"Fouls",
	"Yellow cards",
}

// duel rows are reported as "12/30 (40%)"; only the share is kept
var duelMetrics = map[string]bool{
	"Ground duels": true,
	"Aerial duels": true,
}

var percentInParens = regexp.MustCompile(`\((\d+%)\)`)

// positions sort goalkeeper first, forwards last
var positionOrder = map[string]int{"G": 1, "D": 2, "M": 3, "F": 4}

// Momentum drops the half-time and full-time pause markers.
func Momentum(points []GraphPoint) []GraphPoint {
	out := make([]GraphPoint, 0, len(points))
	for _, p := range points {
		if p.Minute == 45.5 || p.Minute == 90.5 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FinalScore returns the score of the most recent incident carrying both
// scores. Incidents arrive newest first. No such incident means 0-0.
func FinalScore(incidents []Incident) Score {
	for _, inc := range incidents {
		if inc.HomeScore != nil && inc.AwayScore != nil {
			return Score{Home: *inc.HomeScore, Away: *inc.AwayScore}
		}
	}
	return Score{}
}

// ExtractMetrics picks the named rows from the whole-match period, first
// occurrence wins, ordered like metrics. Missing rows are skipped.
func ExtractMetrics(resp StatisticsResponse, metrics []string) []MetricRow {
	period := wholeMatch(resp.Statistics)
	if period == nil {
		return nil
	}

	found := make(map[string]StatisticsItem)
	for _, g := range period.Groups {
		for _, item := range g.StatisticsItems {
			if _, dup := found[item.Name]; !dup {
				found[item.Name] = item
			}
		}
	}

	var rows []MetricRow
	for _, name := range metrics {
		item, ok := found[name]
		if !ok {
			continue
		}
		row := MetricRow{Name: name, Home: item.Home, Away: item.Away}
		if duelMetrics[name] {
			row.Home = duelShare(row.Home)
			row.Away = duelShare(row.Away)
		}
		rows = append(rows, row)
	}
	return rows
}

func wholeMatch(periods []PeriodStatistics) *PeriodStatistics {
	for i := range periods {
		if periods[i].Period == "ALL" {
			return &periods[i]
		}
	}
	if len(periods) > 0 {
		return &periods[0]
	}
	return nil
}

func duelShare(s string) string {
	if m := percentInParens.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// CleanPercentage converts "73%" or "12" to a number.
func CleanPercentage(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// LineupPlayers returns the rated players of one side sorted by position,
// then rating descending. Unrated players (unused substitutes) are dropped.
func LineupPlayers(team TeamLineup) []Player {
	var players []Player
	for _, e := range team.Players {
		if e.Statistics.Rating == nil {
			continue
		}
		p := Player{
			Name:     e.Player.ShortName,
			Jersey:   e.Player.JerseyNumber,
			Position: e.Position,
			Rating:   *e.Statistics.Rating,
		}
		if p.Name == "" {
			p.Name = e.Player.Name
		}
		if e.Statistics.MinutesPlayed != nil {
			p.Minutes = *e.Statistics.MinutesPlayed
		}
		players = append(players, p)
	}

	sort.SliceStable(players, func(i, j int) bool {
		oi, oj := rank(players[i].Position), rank(players[j].Position)
		if oi != oj {
			return oi < oj
		}
		return players[i].Rating > players[j].Rating
	})
	return players
}

func rank(position string) int {
	if o, ok := positionOrder[position]; ok {
		return o
	}
	return len(positionOrder) + 1
}

// MostCommonTeamID returns the team id shared by most players of a side.
// Ties go to the id seen first.
func MostCommonTeamID(team TeamLineup) (int64, bool) {
	counts := make(map[int64]int)
	var order []int64
	for _, e := range team.Players {
		if e.TeamID == nil {
			continue
		}
		if counts[*e.TeamID] == 0 {
			order = append(order, *e.TeamID)
		}
		counts[*e.TeamID]++
	}
	if len(order) == 0 {
		return 0, false
	}

	best := order[0]
	for _, id := range order[1:] {
		if counts[id] > counts[best] {
			best = id
		}
	}
	return best, true
}

// TeamMatches keeps the scheduled events in which teamID plays.
func TeamMatches(events []ScheduledEvent, teamID int64) []ScheduledEvent {
	var out []ScheduledEvent
	for _, ev := range events {
		if ev.HomeTeam != nil && ev.HomeTeam.ID == teamID ||
			ev.AwayTeam != nil && ev.AwayTeam.ID == teamID {
			out = append(out, ev)
		}
	}
	return out
}
