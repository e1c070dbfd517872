package extract

// Span is a brace-balanced region of a text, [Start, End) in byte offsets.
type Span struct {
	Start int
	End   int
}

// Len returns the span width in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Scan pairs every opening brace in text with its matching closing brace and
// returns the resulting spans ordered by opening position.
//
// Each opening brace gets its own forward depth scan, string-aware from that
// brace on, so a stray brace or quote in the surrounding text cannot hide a
// later object. Unmatched braces never produce a span.
func Scan(text string) []Span {
	// opening offset -> end offset, or -1 when the brace never closes
	ends := make(map[int]int)

	var spans []Span
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if _, done := ends[i]; !done {
			scanFrom(text, i, ends)
		}
		if end := ends[i]; end > 0 {
			spans = append(spans, Span{Start: i, End: end})
		}
	}
	return spans
}

// scanFrom runs the depth scan for the brace at start. A nested brace met
// outside a string literal starts from the same scanner state its own scan
// would, so its result is recorded on the way.
func scanFrom(text string, start int, ends map[int]int) {
	stack := []int{start}
	var (
		quote byte
		esc   bool
	)

	for i := start + 1; i < len(text) && len(stack) > 0; i++ {
		c := text[i]

		if quote != 0 {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == quote:
				quote = 0
			case c == '\n' && quote != '`':
				// JS string literals cannot span lines; treat as recovered
				quote = 0
			}
			continue
		}

		switch c {
		case '{':
			stack = append(stack, i)
		case '}':
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ends[open] = i + 1
		case '"', '\'', '`':
			quote = c
		}
	}

	for _, open := range stack {
		ends[open] = -1
	}
}
