package match

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Table is the normalized event table for one match.
type Table struct {
	Columns []string
	Events  []Event
	Meta    Meta

	// NoEvents is set when the match object carried an empty event list.
	// The table is still valid and exports a header-only file.
	NoEvents bool
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Events)
}

// Row returns the exported cell texts of row i in column order.
func (t *Table) Row(i int) []string {
	ev := &t.Events[i]
	out := make([]string, len(t.Columns))
	for j, col := range t.Columns {
		v, ok := ev.Value(col)
		if !ok {
			continue
		}
		out[j] = formatCell(v)
	}
	return out
}

// WriteCSV writes the header and all rows as comma-separated text.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range t.Events {
		if err := cw.Write(t.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatCell renders a value for delimited export; null is the empty string.
func formatCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case sql.NullString:
		if !t.Valid {
			return ""
		}
		return t.String
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
