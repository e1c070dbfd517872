// Package match turns a raw match-centre object into a flat event table.
package match

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/fortuna/pitchside/internal/extract"
)

// ErrNoEventList is returned when the object has no "events" array at all.
var ErrNoEventList = errors.New("object has no events list")

// TeamRef identifies one side of the match.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawEvent is one action as delivered by the match centre.
type RawEvent struct {
	Fields
}

// Record is the parsed match object.
type Record struct {
	MatchID     string
	Home        TeamRef
	Away        TeamRef
	PlayerNames map[string]string
	Events      []RawEvent

	// Info holds the match-level fields (the events holder merged with any
	// wrapper keys it lacks).
	Info Fields
	// Raw is the untouched root object, kept for diagnostic export.
	Raw Fields
}

// ParseJSON decodes a match object from JSON text.
func ParseJSON(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root map[string]interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode match object: %w", err)
	}
	return ParseRecord(root)
}

// ParseRecord builds a Record from a decoded object. The object may either be
// the match data itself or a wrapper (e.g. {"matchId":..,"matchCentreData":{..}}).
func ParseRecord(root map[string]interface{}) (*Record, error) {
	holder := eventsObject(root)
	if holder == nil {
		return nil, ErrNoEventList
	}

	info := make(Fields, len(holder)+len(root))
	for k, v := range holder {
		info[k] = v
	}
	for k, v := range root {
		if _, ok := info[k]; !ok {
			info[k] = v
		}
	}

	matchID, _ := info.ID("matchId")
	rec := &Record{
		MatchID:     matchID,
		Home:        teamRef(info.Object("home")),
		Away:        teamRef(info.Object("away")),
		PlayerNames: map[string]string{},
		Info:        info,
		Raw:         Fields(root),
	}

	for id, name := range info.Object("playerIdNameDictionary") {
		if s, ok := name.(string); ok {
			rec.PlayerNames[id] = s
		}
	}

	for _, item := range info.List("events") {
		if obj, ok := item.(map[string]interface{}); ok {
			rec.Events = append(rec.Events, RawEvent{Fields: obj})
		}
	}

	return rec, nil
}

// MarshalRaw exports the untouched root object as indented JSON.
func (r *Record) MarshalRaw() ([]byte, error) {
	return json.MarshalIndent(map[string]interface{}(r.Raw), "", "  ")
}

func teamRef(f Fields) TeamRef {
	id, _ := f.ID("teamId")
	return TeamRef{ID: id, Name: f.StringOr("name", "")}
}

// eventsObject prefers an object with a non-empty events array and falls back
// to the shallowest object that has an events array at all.
func eventsObject(root map[string]interface{}) map[string]interface{} {
	if holder := extract.EventsHolder(root); holder != nil {
		return holder
	}

	queue := []map[string]interface{}{root}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		if _, ok := obj["events"].([]interface{}); ok {
			return obj
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if child, ok := obj[k].(map[string]interface{}); ok {
				queue = append(queue, child)
			}
		}
	}
	return nil
}
