package match

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

const sampleMatch = `{
	"matchId": 1874065,
	"matchCentreData": {
		"startDate": "2025-10-12T00:00:00",
		"startTime": "2025-10-12T20:45:00",
		"score": "0 : 2",
		"htScore": "0 : 1",
		"ftScore": "0 : 2",
		"venueName": "Podgorica City Stadium",
		"maxMinute": 95,
		"home": {"teamId": 1244, "name": "Montenegro"},
		"away": {"teamId": 349, "name": "Czechia"},
		"playerIdNameDictionary": {"101": "Ladislav Krejci", "202": "Stefan Mugosa"},
		"events": [
			{"id": 1, "eventId": 3, "minute": 0, "teamId": 349, "playerId": 101,
			 "x": 50.1, "y": 49.6, "endX": 70.25, "endY": 12.0,
			 "period": {"value": 1, "displayName": "FirstHalf"},
			 "type": {"value": 1, "displayName": "Pass"},
			 "outcomeType": {"value": 1, "displayName": "Successful"},
			 "qualifiers": [
				{"type": {"value": 56, "displayName": "Zone"}, "value": "Center"},
				{"type": {"value": 212, "displayName": "Length"}, "value": "20.3"},
				{"type": {"value": 5, "displayName": "FreekickTaken"}},
				{"type": {"value": 9, "displayName": "minute"}, "value": "collides"},
				{"type": {"value": 9, "displayName": "playerName"}, "value": "collides"}
			 ]},
			{"id": 2, "eventId": 4, "minute": 1, "teamId": 1244, "playerId": 202,
			 "x": 85, "y": 81, "endX": 99.5, "endY": 50,
			 "period": {"value": 1, "displayName": "FirstHalf"},
			 "type": {"value": 13, "displayName": "MissedShots"},
			 "outcomeType": {"value": 0, "displayName": "Unsuccessful"},
			 "cardType": {"value": 31, "displayName": "Yellow"}},
			{"id": 3, "eventId": 5, "minute": 2, "teamId": 777, "playerId": 999,
			 "x": 85, "y": 50,
			 "type": {"value": 32, "displayName": "Start"}}
		]
	}
}`

func mustParse(t *testing.T, text string) *Record {
	t.Helper()
	rec, err := ParseJSON([]byte(text))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	return rec
}

func TestParseRecordMergesWrapperKeys(t *testing.T) {
	rec := mustParse(t, sampleMatch)

	if rec.MatchID != "1874065" {
		t.Errorf("MatchID = %q", rec.MatchID)
	}
	if rec.Home != (TeamRef{ID: "1244", Name: "Montenegro"}) {
		t.Errorf("Home = %+v", rec.Home)
	}
	if rec.Away != (TeamRef{ID: "349", Name: "Czechia"}) {
		t.Errorf("Away = %+v", rec.Away)
	}
	if len(rec.Events) != 3 {
		t.Fatalf("events = %d", len(rec.Events))
	}
	if rec.PlayerNames["202"] != "Stefan Mugosa" {
		t.Errorf("player names = %v", rec.PlayerNames)
	}
}

func TestParseRecordWithoutEvents(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"matchId": 1}`)); err != ErrNoEventList {
		t.Fatalf("expected ErrNoEventList, got %v", err)
	}
}

func TestResultClassification(t *testing.T) {
	tests := []struct {
		outcome string
		want    Result
	}{
		{`{"displayName":"Successful"}`, ResultSuccess},
		{`{"displayName":"SUCCESSFUL"}`, ResultSuccess},
		{`{"displayName":"Unsuccessful"}`, ResultFail},
		{``, ""},
	}
	for _, tt := range tests {
		ev := `{"id":1,"teamId":1}`
		if tt.outcome != "" {
			ev = `{"id":1,"teamId":1,"outcomeType":` + tt.outcome + `}`
		}
		rec := mustParse(t, `{"matchId":1,"events":[`+ev+`]}`)
		table := Normalize(rec, Context{})
		if got := table.Events[0].Result; got != tt.want {
			t.Errorf("outcome %s: result = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}

func TestNormalizeFields(t *testing.T) {
	rec := mustParse(t, sampleMatch)
	table := Normalize(rec, Context{Region: "International", League: "World Cup Qualification UEFA", Season: "2025/2026"})

	if table.NoEvents || table.Len() != 3 {
		t.Fatalf("unexpected table: NoEvents=%v len=%d", table.NoEvents, table.Len())
	}

	pass := table.Events[0]
	if pass.ActionType.String != "Pass" || pass.Period.String != "FirstHalf" {
		t.Errorf("flattening failed: %+v", pass)
	}
	if pass.PlayerName.String != "Ladislav Krejci" || pass.HomeAway.String != "away" || pass.SquadName.String != "Czechia" {
		t.Errorf("resolution failed: %+v", pass)
	}
	if v, _ := pass.Value("cardType"); v != false {
		t.Errorf("cardType = %v, want false", v)
	}
	if !pass.FinalThirdStart || !pass.FinalThirdEnd {
		t.Errorf("final third flags = %v/%v", pass.FinalThirdStart, pass.FinalThirdEnd)
	}
	if v, _ := pass.Value("FreekickTaken"); v != true {
		t.Errorf("valueless qualifier = %v, want true", v)
	}
	if v, _ := pass.Value("minute"); v != json.Number("0") {
		t.Errorf("raw minute overwritten by qualifier: %v", v)
	}
	if v, _ := pass.Value("playerName"); v != "Ladislav Krejci" {
		t.Errorf("playerName overwritten by qualifier: %v", v)
	}
	if v, _ := pass.Value("league"); v != "World Cup Qualification UEFA" {
		t.Errorf("league = %v", v)
	}
	if v, _ := pass.Value("maxMinute"); v != "95" {
		t.Errorf("maxMinute = %v", v)
	}

	shot := table.Events[1]
	if v, _ := shot.Value("cardType"); v != "Yellow" {
		t.Errorf("cardType = %v", v)
	}
	if shot.PenaltyBox {
		t.Errorf("x=85,y=81 must be outside the box")
	}
	if !shot.PenaltyBoxEnd {
		t.Errorf("endX=99.5,endY=50 must be inside the box")
	}

	orphan := table.Events[2]
	if orphan.HomeAway.Valid || orphan.SquadName.Valid || orphan.PlayerName.Valid {
		t.Errorf("unresolved refs must be null: %+v", orphan)
	}
	if !orphan.TeamID.Valid || orphan.TeamID.String != "777" {
		t.Errorf("team id must be kept: %+v", orphan.TeamID)
	}
	if !orphan.PenaltyBox {
		t.Errorf("x=85,y=50 must be inside the box")
	}
	if orphan.Result != "" || orphan.OutcomeType.Valid || orphan.Period.Valid {
		t.Errorf("missing nested fields must be null: %+v", orphan)
	}
}

func TestColumnsAreUniqueAndOrdered(t *testing.T) {
	table := Normalize(mustParse(t, sampleMatch), Context{})

	seen := map[string]bool{}
	for _, c := range table.Columns {
		if seen[c] {
			t.Fatalf("duplicate column %q in %v", c, table.Columns)
		}
		seen[c] = true
	}

	fixed := FixedColumns()
	for i, c := range fixed {
		if table.Columns[i] != c {
			t.Fatalf("column %d = %q, want %q", i, table.Columns[i], c)
		}
	}
	tail := table.Columns[len(fixed):]
	want := []string{"eventId", "id", "minute", "Zone", "Length", "FreekickTaken"}
	if strings.Join(tail, ",") != strings.Join(want, ",") {
		t.Fatalf("variable columns = %v, want %v", tail, want)
	}
}

func TestCoordinatePassThrough(t *testing.T) {
	rec := mustParse(t, sampleMatch)
	table := Normalize(rec, Context{})

	for i, raw := range rec.Events {
		ev := table.Events[i]
		for _, key := range []string{"x", "y", "endX", "endY"} {
			in, hasIn := raw.Number(key)
			out, _ := ev.Value(key)
			if !hasIn {
				if out != nil {
					t.Errorf("event %d %s: expected null, got %v", i, key, out)
				}
				continue
			}
			if out != in {
				t.Errorf("event %d %s: %v != %v", i, key, out, in)
			}
		}
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.Contains(buf.String(), ",50.1,49.6,70.25,12.0,") {
		t.Fatalf("coordinates not exported verbatim:\n%s", buf.String())
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rec := mustParse(t, sampleMatch)
	ctx := Context{League: "L", Season: "S"}

	var first, second bytes.Buffer
	if err := Normalize(rec, ctx).WriteCSV(&first); err != nil {
		t.Fatal(err)
	}
	if err := Normalize(rec, ctx).WriteCSV(&second); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("outputs differ:\n%s\n---\n%s", first.String(), second.String())
	}
	if _, ok := rec.Events[0].Fields["qualifiers"]; !ok {
		t.Fatalf("normalization must not mutate the record")
	}
}

func TestEmptyEvents(t *testing.T) {
	rec := mustParse(t, `{"matchId": 5, "home": {"teamId": 1, "name": "A"}, "away": {"teamId": 2, "name": "B"}, "events": []}`)
	table := Normalize(rec, Context{})

	if !table.NoEvents {
		t.Fatalf("expected NoEvents")
	}
	if table.Len() != 0 {
		t.Fatalf("expected zero rows, got %d", table.Len())
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 1 {
		t.Fatalf("expected header only, got %d lines", lines)
	}
	if table.Meta.Home.Name != "A" || table.Meta.MatchID != "5" {
		t.Fatalf("meta = %+v", table.Meta)
	}
}

func TestPenaltyBoxThresholds(t *testing.T) {
	tests := []struct {
		x, y string
		want bool
	}{
		{"85", "50", true},
		{"85", "81", false},
		{"84.3", "79", true},
		{"84.2", "50", false},
		{"90", "21", true},
		{"90", "20", false},
	}
	for _, tt := range tests {
		rec := mustParse(t, `{"matchId":1,"events":[{"x":`+tt.x+`,"y":`+tt.y+`}]}`)
		if got := Normalize(rec, Context{}).Events[0].PenaltyBox; got != tt.want {
			t.Errorf("x=%s y=%s: penaltyBox = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}
