package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Row is one sparse input row: populated column name to raw cell value.
type Row map[string]string

// Input is a parsed input file: the declared header plus its data rows.
// The header order is preserved because range groups expand in declaration
// order.
type Input struct {
	Header []string
	Rows   []Row
}

// Column name fragments for range parameter families.
const (
	suffixMin     = "_min"
	suffixMax     = "_max"
	suffixDelta   = "_delta"
	suffixCount   = "_count"
	suffixArrange = "_arrange"
)

// timeRangeBases are the direct columns that accept a _min/_max/_delta
// range family; spatialRangeBases accept _min/_max/_count/_arrange.
var (
	timeRangeBases    = []string{"departure_time", "arrival_time"}
	spatialRangeBases = []string{"origin", "destination"}
)

// directColumns is the set of accepted direct parameter columns.
var directColumns = map[string]bool{
	"origin":                     true,
	"destination":                true,
	"mode":                       true,
	"timezone":                   true,
	"waypoints":                  true,
	"optimize_waypoints":         true,
	"alternatives":               true,
	"avoid":                      true,
	"units":                      true,
	"region":                     true,
	"departure_time":             true,
	"arrival_time":               true,
	"transit_mode":               true,
	"transit_routing_preference": true,
	"traffic_model":              true,
	"split_on_leg":               true,
}

// validColumns returns the full accepted column set: direct parameters plus
// every range family column.
func validColumns() map[string]bool {
	valid := make(map[string]bool, len(directColumns)+16)
	for c := range directColumns {
		valid[c] = true
	}
	for _, base := range timeRangeBases {
		for _, suf := range []string{suffixMin, suffixMax, suffixDelta} {
			valid[base+suf] = true
		}
	}
	for _, base := range spatialRangeBases {
		for _, suf := range []string{suffixMin, suffixMax, suffixCount, suffixArrange} {
			valid[base+suf] = true
		}
	}
	return valid
}

// ReadInput parses a comma-delimited input file with a header row. Rows whose
// first cell starts with '#' are comments. Empty cells leave the column
// unpopulated on that row. An invalid header is an error (batch-fatal): the
// whole file would be unusable, unlike a single bad row.
func ReadInput(r io.Reader) (*Input, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	valid := validColumns()
	var invalid []string
	for _, h := range header {
		if !valid[h] {
			invalid = append(invalid, h)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, fmt.Errorf("header contains invalid columns: %s", strings.Join(invalid, ", "))
	}

	in := &Input{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(record) > 0 && strings.HasPrefix(record[0], "#") {
			continue
		}
		row := make(Row, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				row[header[i]] = cell
			}
		}
		if len(row) > 0 {
			in.Rows = append(in.Rows, row)
		}
	}
	return in, nil
}
