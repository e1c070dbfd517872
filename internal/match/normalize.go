package match

import (
	"database/sql"
	"math"
	"sort"
	"strings"
)

// Context carries the competition labels the page shows outside the data object.
type Context struct {
	Region string
	League string
	Season string
}

// Meta is the compact match header handed to renderers.
type Meta struct {
	MatchID   string  `json:"match_id"`
	StartDate string  `json:"start_date"`
	Score     string  `json:"score"`
	Home      TeamRef `json:"home"`
	Away      TeamRef `json:"away"`
	Region    string  `json:"region"`
	League    string  `json:"league"`
	Season    string  `json:"season"`
}

// NewMeta builds the match header.
func NewMeta(rec *Record, ctx Context) Meta {
	return Meta{
		MatchID:   rec.MatchID,
		StartDate: rec.Info.StringOr("startDate", ""),
		Score:     rec.Info.StringOr("score", ""),
		Home:      rec.Home,
		Away:      rec.Away,
		Region:    ctx.Region,
		League:    ctx.League,
		Season:    ctx.Season,
	}
}

// raw event keys that feed the fixed columns
var consumedKeys = map[string]bool{
	"period": true, "type": true, "outcomeType": true, "cardType": true,
	"teamId": true, "playerId": true, "x": true, "y": true, "endX": true,
	"endY": true, "qualifiers": true,
}

// Normalize flattens every raw event of rec into one row. The record is not
// modified. An empty event list yields a zero-row table with NoEvents set.
func Normalize(rec *Record, ctx Context) *Table {
	t := &Table{Meta: NewMeta(rec, ctx)}

	fixed := FixedColumns()
	if len(rec.Events) == 0 {
		t.Columns = fixed
		t.NoEvents = true
		return t
	}

	reserved := make(map[string]bool, len(fixed)+len(consumedKeys))
	for _, c := range fixed {
		reserved[c] = true
	}
	for k := range consumedKeys {
		reserved[k] = true
	}

	extraSet := map[string]bool{}
	for _, ev := range rec.Events {
		for k := range ev.Fields {
			if !reserved[k] {
				extraSet[k] = true
			}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
		reserved[k] = true
	}
	sort.Strings(extras)

	mf := matchFields(rec, ctx)
	sides := map[string]struct{ side, name string }{}
	if rec.Home.ID != "" {
		sides[rec.Home.ID] = struct{ side, name string }{"home", rec.Home.Name}
	}
	if rec.Away.ID != "" {
		sides[rec.Away.ID] = struct{ side, name string }{"away", rec.Away.Name}
	}

	var qualColumns []string
	seenQual := map[string]bool{}

	t.Events = make([]Event, 0, len(rec.Events))
	for _, raw := range rec.Events {
		ev := Event{Match: mf}
		f := raw.Fields

		ev.Period = displayName(f, "period")
		ev.ActionType = displayName(f, "type")
		ev.OutcomeType = displayName(f, "outcomeType")
		ev.CardType = displayName(f, "cardType")
		ev.Result = classify(ev.OutcomeType)

		if id, ok := f.ID("playerId"); ok {
			ev.PlayerID = sql.NullString{String: id, Valid: true}
			if name, ok := rec.PlayerNames[id]; ok {
				ev.PlayerName = sql.NullString{String: name, Valid: true}
			}
		}
		if id, ok := f.ID("teamId"); ok {
			ev.TeamID = sql.NullString{String: id, Valid: true}
			if s, ok := sides[id]; ok {
				ev.HomeAway = sql.NullString{String: s.side, Valid: true}
				ev.SquadName = sql.NullString{String: s.name, Valid: true}
			}
		}

		ev.X = coordOf(f, "x")
		ev.Y = coordOf(f, "y")
		ev.EndX = coordOf(f, "endX")
		ev.EndY = coordOf(f, "endY")
		ev.FinalThirdStart = ev.X.Valid && ev.X.Float() <= FinalThirdX
		ev.FinalThirdEnd = ev.EndX.Valid && ev.EndX.Float() > FinalThirdX
		ev.PenaltyBox = inPenaltyBox(ev.X, ev.Y)
		ev.PenaltyBoxEnd = inPenaltyBox(ev.EndX, ev.EndY)

		for _, name := range extras {
			if v, ok := f[name]; ok {
				ev.Extra = append(ev.Extra, Cell{Name: name, Value: v})
			}
		}

		ev.Qualifiers = expandQualifiers(f.List("qualifiers"), reserved)
		for _, q := range ev.Qualifiers {
			if !seenQual[q.Name] {
				seenQual[q.Name] = true
				qualColumns = append(qualColumns, q.Name)
			}
		}

		t.Events = append(t.Events, ev)
	}

	t.Columns = make([]string, 0, len(fixed)+len(extras)+len(qualColumns))
	t.Columns = append(t.Columns, fixed...)
	t.Columns = append(t.Columns, extras...)
	t.Columns = append(t.Columns, qualColumns...)
	return t
}

func matchFields(rec *Record, ctx Context) MatchFields {
	return MatchFields{
		MatchID:   sql.NullString{String: rec.MatchID, Valid: rec.MatchID != ""},
		StartDate: nullString(rec.Info, "startDate"),
		StartTime: nullString(rec.Info, "startTime"),
		Score:     nullString(rec.Info, "score"),
		FTScore:   nullString(rec.Info, "ftScore"),
		HTScore:   nullString(rec.Info, "htScore"),
		ETScore:   nullString(rec.Info, "etScore"),
		VenueName: nullString(rec.Info, "venueName"),
		MaxMinute: nullString(rec.Info, "maxMinute"),
		Region:    ctx.Region,
		League:    ctx.League,
		Season:    ctx.Season,
	}
}

// expandQualifiers maps [{type:{displayName}, value?}] to cells. A qualifier
// without a value is recorded as true; reserved names are dropped; a repeated
// name keeps its first position and its last value.
func expandQualifiers(list []interface{}, reserved map[string]bool) []Cell {
	var cells []Cell
	index := map[string]int{}

	for _, item := range list {
		q, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, ok := Fields(q).DisplayName("type")
		if !ok || name == "" || reserved[name] {
			continue
		}

		var value interface{} = true
		if Fields(q).Has("value") {
			value = q["value"]
		}

		if i, dup := index[name]; dup {
			cells[i].Value = value
			continue
		}
		index[name] = len(cells)
		cells = append(cells, Cell{Name: name, Value: value})
	}
	return cells
}

func classify(outcome sql.NullString) Result {
	if !outcome.Valid {
		return ""
	}
	if strings.EqualFold(outcome.String, "successful") {
		return ResultSuccess
	}
	return ResultFail
}

func inPenaltyBox(x, y Coord) bool {
	if !x.Valid || !y.Valid {
		return false
	}
	return x.Float() >= PenaltyBoxX && math.Abs(y.Float()-PitchCentreY) <= PenaltyBoxHalf
}

func displayName(f Fields, key string) sql.NullString {
	s, ok := f.DisplayName(key)
	return sql.NullString{String: s, Valid: ok}
}

func nullString(f Fields, key string) sql.NullString {
	s, ok := f.String(key)
	return sql.NullString{String: s, Valid: ok}
}

func coordOf(f Fields, key string) Coord {
	n, ok := f.Number(key)
	return Coord{Num: n, Valid: ok}
}
