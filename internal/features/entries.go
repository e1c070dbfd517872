// Package features derives per-team pitch-entry summaries from a normalized
// event table. Everything here is pure and deterministic.
package features

import (
	"strconv"

	"github.com/fortuna/pitchside/internal/match"
)

// DefaultQualityColumn is the per-event pass quality score read when present.
const DefaultQualityColumn = "PXT_PASS"

// five equal 20-unit lateral bands
const zoneCount = 5

// Options tunes the aggregation.
type Options struct {
	QualityColumn string
}

func (o Options) qualityColumn() string {
	if o.QualityColumn == "" {
		return DefaultQualityColumn
	}
	return o.QualityColumn
}

// Segment is one entry drawn from start to end.
type Segment struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	EndX float64 `json:"end_x"`
	EndY float64 `json:"end_y"`
}

// Zone is one lateral band.
type Zone struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Count       int      `json:"count"`
	Share       float64  `json:"share"`
	MeanQuality *float64 `json:"mean_quality"`
}

// FinalThirdSummary aggregates entries into the attacking third.
type FinalThirdSummary struct {
	Total   int       `json:"total"`
	Zones   []Zone    `json:"zones"`
	Entries []Segment `json:"entries"`
}

// BoxSummary aggregates entries into the opposing penalty box. StartZones
// counts entry starts inside the opponent half by lateral band.
type BoxSummary struct {
	Total      int       `json:"total"`
	Entries    []Segment `json:"entries"`
	StartZones []Zone    `json:"start_zones"`
}

// TeamSummary bundles both summaries for one side.
type TeamSummary struct {
	Team       match.TeamRef     `json:"team"`
	Side       string            `json:"side"`
	FinalThird FinalThirdSummary `json:"final_third"`
	Box        BoxSummary        `json:"box"`
}

// Summary is what the rendering layer consumes for one match.
type Summary struct {
	Meta     match.Meta  `json:"meta"`
	Home     TeamSummary `json:"home"`
	Away     TeamSummary `json:"away"`
	Events   int         `json:"events"`
	NoEvents bool        `json:"no_events"`
}

// ForTeam returns the events whose team id equals teamID.
func ForTeam(events []match.Event, teamID string) []match.Event {
	var out []match.Event
	for _, ev := range events {
		if ev.TeamID.Valid && ev.TeamID.String == teamID {
			out = append(out, ev)
		}
	}
	return out
}

// IsFinalThirdEntry reports a successful pass or dribble that starts outside
// the final third and ends inside it.
func IsFinalThirdEntry(ev *match.Event) bool {
	return isCompletedCarry(ev) && ev.FinalThirdStart && ev.FinalThirdEnd
}

// IsBoxEntry reports a successful pass or dribble that starts outside the
// penalty box and ends inside it.
func IsBoxEntry(ev *match.Event) bool {
	return isCompletedCarry(ev) && !ev.PenaltyBox && ev.PenaltyBoxEnd
}

func isCompletedCarry(ev *match.Event) bool {
	if !ev.ActionType.Valid || ev.Result != match.ResultSuccess {
		return false
	}
	if !ev.X.Valid || !ev.Y.Valid || !ev.EndX.Valid || !ev.EndY.Valid {
		return false
	}
	switch ev.ActionType.String {
	case "Pass", "Dribble":
		return true
	}
	return false
}

// FinalThirdEntries counts entries into the final third per lateral band of
// the end point and averages the quality column where it is present.
func FinalThirdEntries(events []match.Event, opts Options) FinalThirdSummary {
	col := opts.qualityColumn()
	zones := newZones()
	sums := make([]float64, zoneCount)
	samples := make([]int, zoneCount)

	var s FinalThirdSummary
	for i := range events {
		ev := &events[i]
		if !IsFinalThirdEntry(ev) {
			continue
		}
		s.Total++
		s.Entries = append(s.Entries, segment(ev))

		z := ZoneIndex(ev.EndY.Float()) - 1
		zones[z].Count++
		if q, ok := ev.Float(col); ok {
			sums[z] += q
			samples[z]++
		}
	}

	for i := range zones {
		if s.Total > 0 {
			zones[i].Share = float64(zones[i].Count) * 100 / float64(s.Total)
		}
		if samples[i] > 0 {
			mean := sums[i] / float64(samples[i])
			zones[i].MeanQuality = &mean
		}
	}
	s.Zones = zones
	return s
}

// BoxEntries collects entries into the penalty box.
func BoxEntries(events []match.Event) BoxSummary {
	s := BoxSummary{StartZones: newZones()}
	for i := range events {
		ev := &events[i]
		if !IsBoxEntry(ev) {
			continue
		}
		s.Total++
		s.Entries = append(s.Entries, segment(ev))
		if ev.X.Float() >= 50 {
			s.StartZones[ZoneIndex(ev.Y.Float())-1].Count++
		}
	}

	var starts int
	for _, z := range s.StartZones {
		starts += z.Count
	}
	if starts > 0 {
		for i := range s.StartZones {
			s.StartZones[i].Share = float64(s.StartZones[i].Count) * 100 / float64(starts)
		}
	}
	return s
}

// Summarize builds both summaries for the home and away teams of a table.
func Summarize(t *match.Table, opts Options) Summary {
	build := func(team match.TeamRef, side string) TeamSummary {
		events := ForTeam(t.Events, team.ID)
		return TeamSummary{
			Team:       team,
			Side:       side,
			FinalThird: FinalThirdEntries(events, opts),
			Box:        BoxEntries(events),
		}
	}
	return Summary{
		Meta:     t.Meta,
		Home:     build(t.Meta.Home, "home"),
		Away:     build(t.Meta.Away, "away"),
		Events:   t.Len(),
		NoEvents: t.NoEvents,
	}
}

// ZoneIndex maps a lateral coordinate to its band, 1..5. Band 1 is [0,20],
// each following band is left-open. Values outside 0-100 clamp to the edge
// bands so every entry lands in exactly one zone.
func ZoneIndex(y float64) int {
	switch {
	case y <= 20:
		return 1
	case y <= 40:
		return 2
	case y <= 60:
		return 3
	case y <= 80:
		return 4
	}
	return 5
}

func newZones() []Zone {
	zones := make([]Zone, zoneCount)
	for i := range zones {
		zones[i] = Zone{Index: i + 1, Name: zoneName(i + 1)}
	}
	return zones
}

func zoneName(i int) string {
	return "Zone " + strconv.Itoa(i)
}

func segment(ev *match.Event) Segment {
	return Segment{X: ev.X.Float(), Y: ev.Y.Float(), EndX: ev.EndX.Float(), EndY: ev.EndY.Float()}
}
