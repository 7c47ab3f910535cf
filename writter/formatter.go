package writter

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/tp-distribuidos-2c2025/measurements/shared/aggregate"
)

// Output formats
const (
	FormatText  = "text"
	FormatLines = "lines"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Formats lists every format NewResultWriter accepts
var Formats = []string{FormatText, FormatLines, FormatCSV, FormatJSON}

var csvHeader = []string{"key", "min", "mean", "max"}

// Entry is the reported form of one key
type Entry struct {
	Key   string  `json:"key"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Count uint64  `json:"count"`
}

// Entries lists the table in ascending key order
func Entries(table *aggregate.Table) []Entry {
	entries := make([]Entry, 0, table.Len())
	for key, agg := range table.All() {
		entries = append(entries, Entry{
			Key:   key,
			Min:   agg.Min(),
			Mean:  agg.Mean(),
			Max:   agg.Max(),
			Count: agg.Count(),
		})
	}
	return entries
}

// round rounds to one decimal, halves toward positive infinity
func round(v float64) float64 {
	r := math.Floor(v*10+0.5) / 10
	if r == 0 {
		return 0 // no "-0.0"
	}
	return r
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(round(v), 'f', 1, 64)
}

func (e Entry) summary() string {
	return fmt.Sprintf("%s=%s/%s/%s", e.Key, oneDecimal(e.Min), oneDecimal(e.Mean), oneDecimal(e.Max))
}

// ResultWriter renders the final table in one output format
type ResultWriter struct {
	format string
}

// NewResultWriter creates a writer for format
func NewResultWriter(format string) (*ResultWriter, error) {
	if !slices.Contains(Formats, format) {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &ResultWriter{format: format}, nil
}

// Write renders table to w
func (rw *ResultWriter) Write(w io.Writer, table *aggregate.Table) error {
	entries := Entries(table)
	switch rw.format {
	case FormatLines:
		return writeLines(w, entries)
	case FormatCSV:
		return writeCSV(w, entries)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return writeText(w, entries)
	}
}

// writeText prints {a=min/mean/max, b=...} on a single line
func writeText(w io.Writer, entries []Entry) error {
	out := bufio.NewWriter(w)
	out.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(e.summary())
	}
	out.WriteString("}\n")
	return out.Flush()
}

func writeLines(w io.Writer, entries []Entry) error {
	out := bufio.NewWriter(w)
	for _, e := range entries {
		out.WriteString(e.summary())
		out.WriteByte('\n')
	}
	return out.Flush()
}

func writeCSV(w io.Writer, entries []Entry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, e := range entries {
		row := []string{e.Key, oneDecimal(e.Min), oneDecimal(e.Mean), oneDecimal(e.Max)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", e.Key, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
