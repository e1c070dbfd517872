// Package extract finds the match-centre data object inside uncontrolled page text.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
)

// Stage identifies where candidate text came from.
type Stage string

const (
	StageInlineScripts Stage = "inline_scripts"
	StageNetwork       Stage = "network_responses"
	StagePageText      Stage = "page_text"
)

const (
	// MarkerEvents must be a key holding a non-empty array
	MarkerEvents = "events"
	// MarkerMatchID must be a key somewhere in the same object tree
	MarkerMatchID = "matchId"
)

// Source lazily supplies the texts searched by one stage. Load is only called
// when every earlier stage came up empty.
type Source struct {
	Stage Stage
	Load  func() ([]string, error)
}

// Texts returns a Source over an already collected set of texts.
func Texts(stage Stage, texts ...string) Source {
	return Source{
		Stage: stage,
		Load:  func() ([]string, error) { return texts, nil },
	}
}

// Blob is the accepted candidate together with its parsed tree.
type Blob struct {
	Stage Stage
	Index int // position of the source text within its stage
	Span  Span
	Text  string
	Root  map[string]interface{}
}

// Locator runs the staged search.
type Locator struct {
	logger *log.Logger
}

// NewLocator creates a Locator. A nil logger discards output.
func NewLocator(logger *log.Logger) *Locator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Locator{logger: logger}
}

type candidate struct {
	index int
	span  Span
}

// Locate tries each source in order and returns the first blob found.
func (l *Locator) Locate(sources ...Source) (*Blob, error) {
	notFound := &BlobNotFoundError{}

	for _, src := range sources {
		attempt := StageAttempt{Stage: src.Stage}

		texts, err := src.Load()
		if err != nil {
			l.logger.Printf("⚠️  %s: loading texts failed: %v", src.Stage, err)
			attempt.Err = err
			notFound.Attempts = append(notFound.Attempts, attempt)
			continue
		}
		attempt.Texts = len(texts)

		blob := l.search(src.Stage, texts, &attempt)
		notFound.Attempts = append(notFound.Attempts, attempt)
		if blob != nil {
			l.logger.Printf("✓ match blob found in %s #%d (%d bytes)", blob.Stage, blob.Index, blob.Span.Len())
			return blob, nil
		}
		l.logger.Printf("  %s: no qualifying blob (%d candidates, %d malformed)", src.Stage, attempt.Candidates, attempt.Malformed)
	}

	return nil, notFound
}

// search returns the largest qualifying candidate across all texts of a stage.
// Equal sizes keep discovery order (text order, then position).
func (l *Locator) search(stage Stage, texts []string, attempt *StageAttempt) *Blob {
	var cands []candidate
	for i, text := range texts {
		if !containsMarkers(text) {
			continue
		}
		for _, sp := range Scan(text) {
			if containsMarkers(text[sp.Start:sp.End]) {
				cands = append(cands, candidate{index: i, span: sp})
			}
		}
	}
	attempt.Candidates = len(cands)

	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].span.Len() > cands[b].span.Len()
	})

	for _, c := range cands {
		raw := texts[c.index][c.span.Start:c.span.End]
		root, err := parseObject(raw)
		if err != nil {
			attempt.Malformed++
			l.logger.Printf("  skipping malformed candidate in %s #%d at %d: %v", stage, c.index, c.span.Start, err)
			continue
		}
		if !qualifies(root) {
			continue
		}
		return &Blob{
			Stage: stage,
			Index: c.index,
			Span:  c.span,
			Text:  raw,
			Root:  root,
		}
	}
	return nil
}

func containsMarkers(s string) bool {
	return strings.Contains(s, MarkerEvents) && strings.Contains(s, MarkerMatchID)
}

// parseObject decodes strict JSON first and falls back to the relaxed form.
func parseObject(raw string) (map[string]interface{}, error) {
	root, err := decodeObject(raw)
	if err == nil {
		return root, nil
	}
	if relaxed, rerr := decodeObject(relax(raw)); rerr == nil {
		return relaxed, nil
	}
	return nil, err
}

func decodeObject(raw string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var root map[string]interface{}
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	if root == nil {
		return nil, fmt.Errorf("not an object")
	}
	return root, nil
}

// qualifies reports whether matchId is a real key and events a real key with a
// non-empty array somewhere in the tree.
func qualifies(root map[string]interface{}) bool {
	return hasKey(root, MarkerMatchID) && EventsHolder(root) != nil
}

func hasKey(v interface{}, key string) bool {
	switch t := v.(type) {
	case map[string]interface{}:
		if _, ok := t[key]; ok {
			return true
		}
		for _, child := range t {
			if hasKey(child, key) {
				return true
			}
		}
	case []interface{}:
		for _, child := range t {
			if hasKey(child, key) {
				return true
			}
		}
	}
	return false
}

// EventsHolder returns the shallowest object whose "events" key holds a
// non-empty array, searching breadth-first with sorted keys so the choice is
// deterministic.
func EventsHolder(root map[string]interface{}) map[string]interface{} {
	queue := []map[string]interface{}{root}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]

		if arr, ok := obj[MarkerEvents].([]interface{}); ok && len(arr) > 0 {
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
