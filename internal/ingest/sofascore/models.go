package sofascore

// SofaScore API response shapes. Only the fields the match summary reads are
// declared.

// GraphPoint is one momentum sample
type GraphPoint struct {
	Minute float64 `json:"minute"`
	Value  float64 `json:"value"`
}

// GraphResponse from /event/{id}/graph
type GraphResponse struct {
	GraphPoints []GraphPoint `json:"graphPoints"`
}

// Incident from /event/{id}/incidents
type Incident struct {
	IncidentType string `json:"incidentType"`
	Text         string `json:"text,omitempty"`
	Time         int    `json:"time"`
	HomeScore    *int   `json:"homeScore,omitempty"`
	AwayScore    *int   `json:"awayScore,omitempty"`
}

// IncidentsResponse from /event/{id}/incidents
type IncidentsResponse struct {
	Incidents []Incident `json:"incidents"`
}

// StatisticsItem is one named row
type StatisticsItem struct {
	Name string `json:"name"`
	Home string `json:"home"`
	Away string `json:"away"`
}

// StatisticsGroup groups related rows
type StatisticsGroup struct {
	GroupName       string           `json:"groupName"`
	StatisticsItems []StatisticsItem `json:"statisticsItems"`
}

// PeriodStatistics holds all groups of one period (ALL, 1ST, 2ND)
type PeriodStatistics struct {
	Period string            `json:"period"`
	Groups []StatisticsGroup `json:"groups"`
}

// StatisticsResponse from /event/{id}/statistics
type StatisticsResponse struct {
	Statistics []PeriodStatistics `json:"statistics"`
}

// PlayerInfo identifies a player
type PlayerInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"shortName"`
	JerseyNumber string `json:"jerseyNumber"`
}

// PlayerStatistics carries the per-match numbers
type PlayerStatistics struct {
	Rating        *float64 `json:"rating,omitempty"`
	MinutesPlayed *int     `json:"minutesPlayed,omitempty"`
}

// LineupEntry is one player row of a lineup
type LineupEntry struct {
	Player     PlayerInfo       `json:"player"`
	Position   string           `json:"position"`
	TeamID     *int64           `json:"teamId,omitempty"`
	Substitute bool             `json:"substitute"`
	Statistics PlayerStatistics `json:"statistics"`
}

// TeamLineup is one side of /event/{id}/lineups
type TeamLineup struct {
	Players []LineupEntry `json:"players"`
}

// LineupsResponse from /event/{id}/lineups
type LineupsResponse struct {
	Home TeamLineup `json:"home"`
	Away TeamLineup `json:"away"`
}

// TeamInfo is a team reference on a scheduled event
type TeamInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`
}

// ScheduledEvent from /sport/football/scheduled-events/{date}
type ScheduledEvent struct {
	ID             int64     `json:"id"`
	StartTimestamp int64     `json:"startTimestamp"`
	HomeTeam       *TeamInfo `json:"homeTeam,omitempty"`
	AwayTeam       *TeamInfo `json:"awayTeam,omitempty"`
}

// ScheduledEventsResponse from /sport/football/scheduled-events/{date}
type ScheduledEventsResponse struct {
	Events []ScheduledEvent `json:"events"`
}

// Score is a final scoreline
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// MetricRow is one compared statistic
type MetricRow struct {
	Name string `json:"name"`
	Home string `json:"home"`
	Away string `json:"away"`
}

// Player is one rated lineup row
type Player struct {
	Name     string  `json:"name"`
	Jersey   string  `json:"jersey"`
	Position string  `json:"position"`
	Rating   float64 `json:"rating"`
	Minutes  int     `json:"minutes"`
}

// TeamSide is one side of a match summary
type TeamSide struct {
	TeamID  int64    `json:"team_id,omitempty"`
	Players []Player `json:"players"`
}

// Summary is the compact post-match view
type Summary struct {
	MatchID  int64        `json:"match_id"`
	Score    Score        `json:"score"`
	Momentum []GraphPoint `json:"momentum"`
	Metrics  []MetricRow  `json:"metrics"`
	Home     TeamSide     `json:"home"`
	Away     TeamSide     `json:"away"`
}
