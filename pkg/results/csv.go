package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/transitlab/route-miner/pkg/query"
)

var recordsExportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "miner_records_exported_total",
	Help: "Exported result records by format",
}, []string{"format"})

// TabularDelimiter separates tabular export cells. It is deliberately not a
// comma: address strings routinely contain commas.
const TabularDelimiter = '|'

// Column is one configured summary column: a name plus either a typed
// extraction path or a JMESPath expression over the decoded response.
type Column struct {
	Name string
	Path Path
	Expr string
}

// DefaultColumns is the default extraction set: distance, duration, start
// and end coordinates, taken from the first route's first leg.
func DefaultColumns() []Column {
	return []Column{
		{Name: "distance", Path: P("routes", 0, "legs", 0, "distance", "text")},
		{Name: "distance_m", Path: P("routes", 0, "legs", 0, "distance", "value")},
		{Name: "duration", Path: P("routes", 0, "legs", 0, "duration", "text")},
		{Name: "duration_s", Path: P("routes", 0, "legs", 0, "duration", "value")},
		{Name: "duration_in_traffic", Path: P("routes", 0, "legs", 0, "duration_in_traffic", "text")},
		{Name: "duration_in_traffic_s", Path: P("routes", 0, "legs", 0, "duration_in_traffic", "value")},
		{Name: "start_x", Path: P("routes", 0, "legs", 0, "start_location", "lng")},
		{Name: "start_y", Path: P("routes", 0, "legs", 0, "start_location", "lat")},
		{Name: "end_x", Path: P("routes", 0, "legs", 0, "end_location", "lng")},
		{Name: "end_y", Path: P("routes", 0, "legs", 0, "end_location", "lat")},
	}
}

// TabularWriter renders records into the '|'-delimited summary format.
type TabularWriter struct {
	columns  []Column
	compiled map[string]jmespath.JMESPath
}

// NewTabularWriter creates a writer with the given summary columns (nil for
// the default set). JMESPath expressions are compiled once up front; an
// invalid expression is a configuration error.
func NewTabularWriter(columns []Column) (*TabularWriter, error) {
	if columns == nil {
		columns = DefaultColumns()
	}
	compiled := make(map[string]jmespath.JMESPath)
	for _, col := range columns {
		if col.Expr == "" {
			continue
		}
		expr, err := jmespath.Compile(col.Expr)
		if err != nil {
			return nil, fmt.Errorf("column %q: compile %q: %w", col.Name, col.Expr, err)
		}
		compiled[col.Name] = expr
	}
	return &TabularWriter{columns: columns, compiled: compiled}, nil
}

// Write renders one row per record: the populated direct parameters (header
// is the union of populated columns across all records, in canonical order)
// followed by the extracted summary columns. Cells that do not apply to a
// record are left empty.
func (t *TabularWriter) Write(w io.Writer, records []Record) error {
	populated := make(map[string]bool)
	for _, r := range records {
		for col := range r.Spec.Columns() {
			populated[col] = true
		}
	}
	var directCols []string
	for _, col := range query.ColumnOrder {
		if populated[col] {
			directCols = append(directCols, col)
		}
	}

	header := make([]string, 0, len(directCols)+len(t.columns)+1)
	header = append(header, directCols...)
	for _, col := range t.columns {
		header = append(header, col.Name)
	}
	header = append(header, "error")

	writer := csv.NewWriter(w)
	writer.Comma = TabularDelimiter

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		row := make([]string, 0, len(header))
		specCols := r.Spec.Columns()
		for _, col := range directCols {
			row = append(row, specCols[col])
		}

		doc, ok := r.Document()
		for _, col := range t.columns {
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, t.extract(col, doc))
		}
		row = append(row, r.FailureReason)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	recordsExportedTotal.WithLabelValues("tabular").Add(float64(len(records)))
	return nil
}

func (t *TabularWriter) extract(col Column, doc any) string {
	if expr, ok := t.compiled[col.Name]; ok {
		value, err := expr.Search(doc)
		if err != nil {
			return ""
		}
		return renderCell(value)
	}
	value, ok := col.Path.Walk(doc)
	if !ok {
		return ""
	}
	return renderCell(value)
}

// renderCell formats an extracted value. JSON numbers decode as float64;
// whole values render without a fractional part.
func renderCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}
