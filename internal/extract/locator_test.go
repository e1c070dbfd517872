package extract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

const blobJSON = `{"matchId":1874065,"events":[{"id":1,"x":50.1,"y":49.9}]}`

func TestScanReturnsBalancedSpanRegardlessOfNoise(t *testing.T) {
	for _, noise := range []string{"", "x", "var a = 1;", strings.Repeat("lorem ipsum ", 200), "it's } odd"} {
		text := noise + blobJSON + noise
		var found bool
		for _, sp := range Scan(text) {
			if text[sp.Start:sp.End] == blobJSON {
				found = true
			}
		}
		if !found {
			t.Errorf("noise %q: balanced span not found", noise)
		}

		blob, err := NewLocator(nil).Locate(Texts(StagePageText, text))
		if err != nil {
			t.Fatalf("noise %q: Locate: %v", noise, err)
		}
		if blob.Text != blobJSON {
			t.Errorf("noise %q: got %q", noise, blob.Text)
		}
	}
}

func TestScanIgnoresBracesInsideStrings(t *testing.T) {
	text := `{"a":"}{","b":{"c":1}}`
	spans := Scan(text)
	want := []Span{{Start: 0, End: len(text)}, {Start: 14, End: 21}}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("spans = %v, want %v", spans, want)
	}
}

func TestScanDropsUnbalanced(t *testing.T) {
	if spans := Scan(`{ "open": 1 `); len(spans) != 0 {
		t.Fatalf("expected no spans, got %v", spans)
	}
	spans := Scan(`} {}`)
	if len(spans) != 1 || spans[0] != (Span{Start: 2, End: 4}) {
		t.Fatalf("unexpected spans %v", spans)
	}
}

func TestMarkerPrecision(t *testing.T) {
	decoy := `{"comment":"events and matchId live here","other":[1,2]}`
	script := decoy + "\n" + blobJSON

	blob, err := NewLocator(nil).Locate(Texts(StageInlineScripts, script))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if blob.Text != blobJSON {
		t.Fatalf("selected %q", blob.Text)
	}
}

func TestEmptyEventsDoNotQualify(t *testing.T) {
	_, err := NewLocator(nil).Locate(Texts(StageInlineScripts, `{"matchId":1,"events":[]}`))
	if !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestMalformedCandidateIsSkipped(t *testing.T) {
	bad := `{"matchId":1,"events":[{"x":1}] oops}`
	blob, err := NewLocator(nil).Locate(Texts(StageInlineScripts, bad, blobJSON))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if blob.Index != 1 {
		t.Fatalf("expected blob from second script, got #%d", blob.Index)
	}
}

func TestLargestQualifyingSpanWins(t *testing.T) {
	small := `{"matchId":2,"events":[{"id":1}]}`
	large := `{"matchId":3,"events":[{"id":1},{"id":2},{"id":3}]}`
	blob, err := NewLocator(nil).Locate(Texts(StageInlineScripts, small, large))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if blob.Text != large {
		t.Fatalf("selected %q", blob.Text)
	}
}

func TestWrapperObjectIsPreferredOverNestedData(t *testing.T) {
	inner := `{"home":{"teamId":1},"events":[{"id":1}]}`
	wrapper := fmt.Sprintf(`{"matchId":9,"matchCentreData":%s}`, inner)
	blob, err := NewLocator(nil).Locate(Texts(StageInlineScripts, "x = "+wrapper+";"))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if blob.Text != wrapper {
		t.Fatalf("selected %q", blob.Text)
	}
	holder := EventsHolder(blob.Root)
	if _, ok := holder["home"]; !ok {
		t.Fatalf("events holder should be matchCentreData, got %v", holder)
	}
}

func TestRelaxedScriptAssignment(t *testing.T) {
	script := `require.config.params["args"] = {
            matchId: 1874065,
            matchCentreData: {"events":[{"id":1,"type":{"displayName":"Pass"}}]},
            formationIdNameMappings: {'2': '442',},
        };`
	blob, err := NewLocator(nil).Locate(Texts(StageInlineScripts, script))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got := blob.Root["matchId"]; fmt.Sprint(got) != "1874065" {
		t.Fatalf("matchId = %v", got)
	}
	mappings, ok := blob.Root["formationIdNameMappings"].(map[string]interface{})
	if !ok || mappings["2"] != "442" {
		t.Fatalf("formation mappings = %v", blob.Root["formationIdNameMappings"])
	}
}

func TestFallbackOrdering(t *testing.T) {
	var loaded []Stage
	source := func(stage Stage, texts ...string) Source {
		return Source{Stage: stage, Load: func() ([]string, error) {
			loaded = append(loaded, stage)
			return texts, nil
		}}
	}

	blob, err := NewLocator(nil).Locate(
		source(StageInlineScripts, "window.dataLayer = [];", `{"matchId":1}`),
		source(StageNetwork, blobJSON),
		source(StagePageText, "<html>"+blobJSON+"</html>"),
	)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if blob.Stage != StageNetwork {
		t.Fatalf("blob stage = %s", blob.Stage)
	}
	if want := []Stage{StageInlineScripts, StageNetwork}; !reflect.DeepEqual(loaded, want) {
		t.Fatalf("loaded stages = %v, want %v", loaded, want)
	}
}

func TestBlobNotFoundListsStages(t *testing.T) {
	_, err := NewLocator(nil).Locate(
		Texts(StageInlineScripts, "nothing"),
		Source{Stage: StageNetwork, Load: func() ([]string, error) { return nil, errors.New("capture disabled") }},
		Texts(StagePageText, "<html></html>"),
	)

	var nf *BlobNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *BlobNotFoundError, got %v", err)
	}
	want := []Stage{StageInlineScripts, StageNetwork, StagePageText}
	if !reflect.DeepEqual(nf.Stages(), want) {
		t.Fatalf("stages = %v, want %v", nf.Stages(), want)
	}
	if !strings.Contains(err.Error(), "capture disabled") {
		t.Fatalf("error should mention source failure: %v", err)
	}
}

func TestRelax(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{a: 1}`, `{"a": 1}`},
		{`{a: 'it\'s', b: "x:y"}`, `{"a": "it's", "b": "x:y"}`},
		{`{list: [1, 2,], ok: true,}`, `{"list": [1, 2], "ok": true}`},
		{`{v: 1e5}`, `{"v": 1e5}`},
		{`{q: 'say "hi"'}`, `{"q": "say \"hi\""}`},
	}
	for _, tt := range tests {
		if got := relax(tt.in); got != tt.want {
			t.Errorf("relax(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrayBraceInNoiseDoesNotHideBlob(t *testing.T) {
	for _, noise := range []string{
		`var a = "{"; var b = `,
		`var css = ".a { color: red"; var b = `,
		`Don't { click `,
		`var t = '}{'; x = "{{"; var b = `,
	} {
		text := noise + blobJSON + ";"

		var found bool
		for _, sp := range Scan(text) {
			if text[sp.Start:sp.End] == blobJSON {
				found = true
			}
		}
		if !found {
			t.Errorf("noise %q: balanced span not found", noise)
		}

		blob, err := NewLocator(nil).Locate(Texts(StageInlineScripts, text))
		if err != nil {
			t.Fatalf("noise %q: Locate: %v", noise, err)
		}
		if blob.Text != blobJSON {
			t.Errorf("noise %q: got %q", noise, blob.Text)
		}
	}
}

func TestScanNestedSpansMatchIndependentScans(t *testing.T) {
	text := `x = "{"; y = {"a":{"b":"}"},"c":[{"d":1}]};`
	spans := Scan(text)

	want := map[string]bool{
		`{"a":{"b":"}"},"c":[{"d":1}]}`: true,
		`{"b":"}"}`:                     true,
		`{"d":1}`:                       true,
	}
	got := map[string]bool{}
	for _, sp := range spans {
		got[text[sp.Start:sp.End]] = true
	}
	for s := range want {
		if !got[s] {
			t.Errorf("span %q missing from %v", s, spans)
		}
	}
	for i := 1; i < len(spans); i++ {
		if spans[i-1].Start >= spans[i].Start {
			t.Fatalf("spans not ordered by start: %v", spans)
		}
	}
}
