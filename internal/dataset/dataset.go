package dataset

import (
	"sort"
)

// Table is a column-major table. Columns preserves insertion order so
// prompt text and executed code see columns in a stable order.
type Table struct {
	Columns []string
	Values  map[string][]any
}

// NewTable returns an empty table ready for AddColumn.
func NewTable() Table {
	return Table{Values: map[string][]any{}}
}

// AddColumn appends a column. A repeated name replaces the values but
// keeps the original position.
func (t *Table) AddColumn(name string, values []any) {
	if t.Values == nil {
		t.Values = map[string][]any{}
	}
	if _, ok := t.Values[name]; !ok {
		t.Columns = append(t.Columns, name)
	}
	t.Values[name] = values
}

// Empty reports whether the table has no columns.
func (t Table) Empty() bool {
	return len(t.Columns) == 0
}

// Rows returns the longest column length.
func (t Table) Rows() int {
	n := 0
	for _, vals := range t.Values {
		if len(vals) > n {
			n = len(vals)
		}
	}
	return n
}

// Column returns the raw values for name, nil when absent.
func (t Table) Column(name string) []any {
	return t.Values[name]
}

// Floats returns the numeric values of a column, skipping anything that
// is not a JSON number. Used for statistics, not for plotting.
func (t Table) Floats(name string) []float64 {
	vals := t.Values[name]
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		switch x := v.(type) {
		case float64:
			out = append(out, x)
		case int:
			out = append(out, float64(x))
		case int64:
			out = append(out, float64(x))
		}
	}
	return out
}

// NumericColumns returns the columns holding at least one number,
// excluding the time axis.
func (t Table) NumericColumns() []string {
	var out []string
	for _, name := range t.Columns {
		if name == "time" {
			continue
		}
		if len(t.Floats(name)) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// TimeRange returns the min and max of the "time" column as strings.
// ISO-8601 timestamps order lexicographically, so no parsing is needed.
func (t Table) TimeRange() (min, max string, ok bool) {
	vals := t.Values["time"]
	var times []string
	for _, v := range vals {
		if s, isStr := v.(string); isStr {
			times = append(times, s)
		}
	}
	if len(times) == 0 {
		return "", "", false
	}
	sort.Strings(times)
	return times[0], times[len(times)-1], true
}

// AsMap returns the table as name -> values, suitable for handing to
// executed code as a plain object.
func (t Table) AsMap() map[string]any {
	out := make(map[string]any, len(t.Columns))
	for _, name := range t.Columns {
		out[name] = t.Values[name]
	}
	return out
}

// Normalized is one weather response split by time resolution. All
// three tables are always present, possibly empty; Metadata holds at
// most one row of scalars.
type Normalized struct {
	Metadata Table
	Hourly   Table
	Daily    Table
}

// Normalize splits a decoded JSON record: "hourly" and "daily" objects
// become their own tables, every remaining top-level value becomes a
// single-row metadata column.
func Normalize(raw map[string]any) Normalized {
	n := Normalized{Metadata: NewTable(), Hourly: NewTable(), Daily: NewTable()}
	if raw == nil {
		return n
	}
	if hourly, ok := raw["hourly"].(map[string]any); ok {
		fillSeries(&n.Hourly, hourly)
	}
	scalarKeys := make([]string, 0, len(raw))
	if daily, ok := raw["daily"].(map[string]any); ok {
		fillSeries(&n.Daily, daily)
	}
	for key := range raw {
		if key == "hourly" || key == "daily" {
			continue
		}
		scalarKeys = append(scalarKeys, key)
	}
	sort.Strings(scalarKeys)
	for _, key := range scalarKeys {
		n.Metadata.AddColumn(key, []any{raw[key]})
	}
	return n
}

func fillSeries(t *Table, record map[string]any) {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	// time first so downstream code can rely on it leading.
	for _, key := range keys {
		if key != "time" {
			continue
		}
		t.AddColumn(key, toSlice(record[key]))
	}
	for _, key := range keys {
		if key == "time" {
			continue
		}
		t.AddColumn(key, toSlice(record[key]))
	}
}

func toSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

// AsMap returns the dataset as metadata/hourly/daily objects for
// executed code.
func (n Normalized) AsMap() map[string]any {
	return map[string]any{
		"metadata": n.Metadata.AsMap(),
		"hourly":   n.Hourly.AsMap(),
		"daily":    n.Daily.AsMap(),
	}
}

// Empty reports whether no table holds data.
func (n Normalized) Empty() bool {
	return n.Metadata.Empty() && n.Hourly.Empty() && n.Daily.Empty()
}

// Collection is the ordered set of datasets retrieved for one run.
// A failed fetch simply never joins the collection.
type Collection []Normalized

// Empty reports whether the collection holds no datasets at all.
func (c Collection) Empty() bool {
	for _, n := range c {
		if !n.Empty() {
			return false
		}
	}
	return true
}

// AsMaps returns the collection in executable form.
func (c Collection) AsMaps() []map[string]any {
	out := make([]map[string]any, len(c))
	for i, n := range c {
		out[i] = n.AsMap()
	}
	return out
}
