package extract

import "strings"

// relax rewrites a JavaScript object literal into JSON. It quotes bare
// identifier keys, converts single-quoted strings and drops trailing commas.
// Anything else is copied through, so the result may still be invalid JSON.
func relax(src string) string {
	var b strings.Builder
	b.Grow(len(src) + len(src)/16)

	// last significant byte written, used to recognise key positions
	var last byte

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"':
			j := skipString(src, i, '"')
			b.WriteString(src[i:j])
			i = j - 1
			last = '"'

		case c == '\'':
			j := skipString(src, i, '\'')
			b.WriteByte('"')
			body := src[i+1 : max(i+1, j-1)]
			for k := 0; k < len(body); k++ {
				switch {
				case body[k] == '\\' && k+1 < len(body) && body[k+1] == '\'':
					b.WriteByte('\'')
					k++
				case body[k] == '\\' && k+1 < len(body):
					b.WriteByte('\\')
					b.WriteByte(body[k+1])
					k++
				case body[k] == '"':
					b.WriteString(`\"`)
				default:
					b.WriteByte(body[k])
				}
			}
			b.WriteByte('"')
			i = j - 1
			last = '"'

		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			ident := src[i:j]
			k := j
			for k < len(src) && isSpace(src[k]) {
				k++
			}
			if (last == '{' || last == ',') && k < len(src) && src[k] == ':' {
				b.WriteByte('"')
				b.WriteString(ident)
				b.WriteByte('"')
			} else {
				b.WriteString(ident)
			}
			i = j - 1
			last = 'a'

		case c == ',':
			k := i + 1
			for k < len(src) && isSpace(src[k]) {
				k++
			}
			if k < len(src) && (src[k] == '}' || src[k] == ']') {
				continue
			}
			b.WriteByte(c)
			last = c

		default:
			b.WriteByte(c)
			if !isSpace(c) {
				last = c
			}
		}
	}

	return b.String()
}

// skipString returns the offset just past the string literal opening at i.
func skipString(src string, i int, quote byte) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(src)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
