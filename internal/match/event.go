package match

import (
	"database/sql"
	"encoding/json"
)

// Result classifies an event outcome. The zero value is null: the event had
// no outcome type at all.
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFail    Result = "FAIL"
)

// Pitch geometry in the source's 0-100 coordinate system.
const (
	FinalThirdX    = 66.7
	PenaltyBoxX    = 84.3
	PenaltyBoxHalf = 29.65
	PitchCentreY   = 50.0
)

// Coord keeps a coordinate exactly as the source wrote it.
type Coord struct {
	Num   json.Number
	Valid bool
}

// Float returns the coordinate value, 0 when missing.
func (c Coord) Float() float64 {
	if !c.Valid {
		return 0
	}
	v, _ := c.Num.Float64()
	return v
}

// Cell is a named value in a variable-width column set.
type Cell struct {
	Name  string
	Value interface{}
}

// MatchFields are the match-level values copied onto every row.
type MatchFields struct {
	MatchID   sql.NullString
	StartDate sql.NullString
	StartTime sql.NullString
	Score     sql.NullString
	FTScore   sql.NullString
	HTScore   sql.NullString
	ETScore   sql.NullString
	VenueName sql.NullString
	MaxMinute sql.NullString
	Region    string
	League    string
	Season    string
}

// Event is one normalized row.
type Event struct {
	Match MatchFields

	Period      sql.NullString
	ActionType  sql.NullString
	OutcomeType sql.NullString
	CardType    sql.NullString // exported as false when absent
	Result      Result

	TeamID     sql.NullString
	PlayerID   sql.NullString
	PlayerName sql.NullString
	HomeAway   sql.NullString
	SquadName  sql.NullString

	X    Coord
	Y    Coord
	EndX Coord
	EndY Coord

	FinalThirdStart bool
	FinalThirdEnd   bool
	PenaltyBox      bool
	PenaltyBoxEnd   bool

	// Extra holds the remaining raw event fields, sorted by name.
	Extra []Cell
	// Qualifiers holds expanded qualifier columns in source order.
	Qualifiers []Cell
}

var matchColumns = []string{
	"matchId", "startDate", "startTime", "score", "ftScore", "htScore",
	"etScore", "venueName", "maxMinute", "region", "league", "season",
}

var eventColumns = []string{
	"period", "actionType", "outcomeType", "cardType", "teamId", "playerId",
	"playerName", "h_a", "squadName", "x", "y", "endX", "endY", "result",
	"final_third_start", "final_third_end", "penaltyBox", "penaltyBox_end",
}

// FixedColumns returns the columns every table carries, in export order.
func FixedColumns() []string {
	cols := make([]string, 0, len(matchColumns)+len(eventColumns))
	cols = append(cols, matchColumns...)
	return append(cols, eventColumns...)
}

// Value returns the value exported under column. Null values are returned as
// nil with ok=true; unknown columns report ok=false.
func (e *Event) Value(column string) (interface{}, bool) {
	switch column {
	case "matchId":
		return nullable(e.Match.MatchID), true
	case "startDate":
		return nullable(e.Match.StartDate), true
	case "startTime":
		return nullable(e.Match.StartTime), true
	case "score":
		return nullable(e.Match.Score), true
	case "ftScore":
		return nullable(e.Match.FTScore), true
	case "htScore":
		return nullable(e.Match.HTScore), true
	case "etScore":
		return nullable(e.Match.ETScore), true
	case "venueName":
		return nullable(e.Match.VenueName), true
	case "maxMinute":
		return nullable(e.Match.MaxMinute), true
	case "region":
		return e.Match.Region, true
	case "league":
		return e.Match.League, true
	case "season":
		return e.Match.Season, true
	case "period":
		return nullable(e.Period), true
	case "actionType":
		return nullable(e.ActionType), true
	case "outcomeType":
		return nullable(e.OutcomeType), true
	case "cardType":
		if !e.CardType.Valid {
			return false, true
		}
		return e.CardType.String, true
	case "teamId":
		return nullable(e.TeamID), true
	case "playerId":
		return nullable(e.PlayerID), true
	case "playerName":
		return nullable(e.PlayerName), true
	case "h_a":
		return nullable(e.HomeAway), true
	case "squadName":
		return nullable(e.SquadName), true
	case "x":
		return coord(e.X), true
	case "y":
		return coord(e.Y), true
	case "endX":
		return coord(e.EndX), true
	case "endY":
		return coord(e.EndY), true
	case "result":
		if e.Result == "" {
			return nil, true
		}
		return string(e.Result), true
	case "final_third_start":
		return e.FinalThirdStart, true
	case "final_third_end":
		return e.FinalThirdEnd, true
	case "penaltyBox":
		return e.PenaltyBox, true
	case "penaltyBox_end":
		return e.PenaltyBoxEnd, true
	}

	for _, c := range e.Extra {
		if c.Name == column {
			return c.Value, true
		}
	}
	for _, c := range e.Qualifiers {
		if c.Name == column {
			return c.Value, true
		}
	}
	return nil, false
}

// Float returns a numeric column value, e.g. a quality score qualifier.
func (e *Event) Float(column string) (float64, bool) {
	v, ok := e.Value(column)
	if !ok || v == nil {
		return 0, false
	}
	return Fields{column: v}.Float(column)
}

func nullable(s sql.NullString) interface{} {
	if !s.Valid {
		return nil
	}
	return s.String
}

func coord(c Coord) interface{} {
	if !c.Valid {
		return nil
	}
	return c.Num
}
