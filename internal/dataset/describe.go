package dataset

import (
	"fmt"
	"strings"
)

// Describe returns the statistical summary fed into narrative
// generation: time range and mean/min/max per numeric column, for the
// hourly and daily tables.
func (n Normalized) Describe() string {
	var parts []string
	if block := describeTable("Hourly Data", n.Hourly); block != "" {
		parts = append(parts, block)
	}
	if block := describeTable("Daily Data", n.Daily); block != "" {
		parts = append(parts, block)
	}
	return strings.Join(parts, "\n\n")
}

// Describe summarizes every dataset in order.
func (c Collection) Describe() string {
	var parts []string
	for i, n := range c {
		desc := n.Describe()
		if desc == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Dataset %d:\n%s", i+1, desc))
	}
	return strings.Join(parts, "\n\n")
}

func describeTable(label string, t Table) string {
	cols := t.NumericColumns()
	if len(cols) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString(label + ":")
	if min, max, ok := t.TimeRange(); ok {
		fmt.Fprintf(&buf, "\nTime range: %s to %s", min, max)
	}
	for _, col := range cols {
		mean, min, max := stats(t.Floats(col))
		fmt.Fprintf(&buf, "\n%s: mean=%.2f, min=%.2f, max=%.2f", col, mean, min, max)
	}
	return buf.String()
}

func stats(vals []float64) (mean, min, max float64) {
	if len(vals) == 0 {
		return 0, 0, 0
	}
	min, max = vals[0], vals[0]
	sum := 0.0
	for _, v := range vals {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return sum / float64(len(vals)), min, max
}
