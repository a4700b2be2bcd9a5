package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/transitlab/route-miner/pkg/logging"
)

// Prometheus metrics for parameter resolution.
var (
	rowsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "miner_rows_resolved_total",
		Help: "Input rows processed by the resolver, by outcome",
	}, []string{"outcome"})

	specsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "miner_specs_resolved_total",
		Help: "Query specs produced by range expansion",
	})
)

// Warning records a non-fatal resolution problem: the row (or single spec)
// it refers to is dropped and processing continues.
type Warning struct {
	Row     int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("row %d: %s", w.Row, w.Message)
}

// Accepted time layouts for direct and range time cells.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"1/2/2006 15:04",
}

// Resolver expands input rows into concrete query specs. One bad row never
// aborts a batch: it yields zero specs and a warning.
type Resolver struct {
	header []string
	logger zerolog.Logger
}

// NewResolver creates a resolver for an input with the given header. The
// header order fixes the range-group expansion order.
func NewResolver(header []string) *Resolver {
	return &Resolver{
		header: header,
		logger: logging.NewLogger("resolver"),
	}
}

// ResolveAll resolves every row in order and concatenates the resulting spec
// sequences. Re-running on identical input reproduces an identical sequence.
func (r *Resolver) ResolveAll(rows []Row) ([]Spec, []Warning) {
	var specs []Spec
	var warnings []Warning
	for i, row := range rows {
		rowSpecs, rowWarnings := r.Resolve(i, row)
		specs = append(specs, rowSpecs...)
		warnings = append(warnings, rowWarnings...)
	}
	return specs, warnings
}

// Resolve expands one row. The result is the cartesian product across the
// row's declared range groups combined with its fixed direct values; a row
// with no range groups yields exactly one spec.
func (r *Resolver) Resolve(rowIdx int, row Row) ([]Spec, []Warning) {
	loc, warning := r.rowLocation(rowIdx, row)
	if warning != nil {
		rowsResolvedTotal.WithLabelValues("invalid").Inc()
		return nil, []Warning{*warning}
	}

	groups, err := r.rangeGroups(row, loc)
	if err != nil {
		r.logger.Warn().Int("row", rowIdx).Err(err).Msg("Row dropped: malformed range group")
		rowsResolvedTotal.WithLabelValues("invalid").Inc()
		return nil, []Warning{{Row: rowIdx, Message: err.Error()}}
	}

	base, err := r.baseSpec(row, groups, loc)
	if err != nil {
		r.logger.Warn().Int("row", rowIdx).Err(err).Msg("Row dropped: invalid direct parameter")
		rowsResolvedTotal.WithLabelValues("invalid").Inc()
		return nil, []Warning{{Row: rowIdx, Message: err.Error()}}
	}

	var specs []Spec
	var warnings []Warning
	expandGroups(base, groups, func(spec Spec) {
		if err := spec.Validate(); err != nil {
			warnings = append(warnings, Warning{Row: rowIdx, Message: err.Error()})
			return
		}
		specs = append(specs, spec)
	})

	if len(specs) == 0 && len(warnings) == 0 {
		warnings = append(warnings, Warning{Row: rowIdx, Message: "row produced no valid specs"})
	}
	if len(specs) > 0 {
		rowsResolvedTotal.WithLabelValues("ok").Inc()
	} else {
		rowsResolvedTotal.WithLabelValues("invalid").Inc()
	}
	specsResolvedTotal.Add(float64(len(specs)))

	r.logger.Debug().
		Int("row", rowIdx).
		Int("specs", len(specs)).
		Int("range_groups", len(groups)).
		Msg("Row resolved")
	return specs, warnings
}

// rowLocation parses the row's timezone column. Rows without one default to
// UTC; time cells are interpreted in this location and converted to the
// process-wide internal clock (UTC) when formatted.
func (r *Resolver) rowLocation(rowIdx int, row Row) (*time.Location, *Warning) {
	tz, ok := row["timezone"]
	if !ok {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &Warning{Row: rowIdx, Message: fmt.Sprintf("timezone %q: %v", tz, err)}
	}
	return loc, nil
}

// rangeGroup is one declared range family on a row: either a time expansion
// or a spatial expansion for the base column.
type rangeGroup struct {
	base   string
	times  []time.Time
	coords []Coordinate
}

func (g rangeGroup) size() int {
	if len(g.times) > 0 {
		return len(g.times)
	}
	return len(g.coords)
}

// rangeGroups collects the row's declared range groups in header declaration
// order (order of each group's _min column). An incomplete or malformed
// family fails the whole row.
func (r *Resolver) rangeGroups(row Row, loc *time.Location) ([]rangeGroup, error) {
	var groups []rangeGroup
	for _, col := range r.header {
		if !strings.HasSuffix(col, suffixMin) {
			continue
		}
		base := strings.TrimSuffix(col, suffixMin)
		if !groupDeclared(row, base) {
			continue
		}
		group, err := r.parseGroup(row, base, loc)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// groupDeclared reports whether any column of the base's range family is
// populated on the row.
func groupDeclared(row Row, base string) bool {
	for _, suf := range []string{suffixMin, suffixMax, suffixDelta, suffixCount, suffixArrange} {
		if _, ok := row[base+suf]; ok {
			return true
		}
	}
	return false
}

func (r *Resolver) parseGroup(row Row, base string, loc *time.Location) (rangeGroup, error) {
	for _, b := range timeRangeBases {
		if base == b {
			return r.parseTimeGroup(row, base, loc)
		}
	}
	return r.parseSpatialGroup(row, base)
}

func (r *Resolver) parseTimeGroup(row Row, base string, loc *time.Location) (rangeGroup, error) {
	minStr, okMin := row[base+suffixMin]
	maxStr, okMax := row[base+suffixMax]
	deltaStr, okDelta := row[base+suffixDelta]
	if !okMin || !okMax || !okDelta {
		return rangeGroup{}, fmt.Errorf("range %s needs %s, %s and %s",
			base, base+suffixMin, base+suffixMax, base+suffixDelta)
	}

	min, err := parseTimeIn(minStr, loc)
	if err != nil {
		return rangeGroup{}, fmt.Errorf("%s: %w", base+suffixMin, err)
	}
	max, err := parseTimeIn(maxStr, loc)
	if err != nil {
		return rangeGroup{}, fmt.Errorf("%s: %w", base+suffixMax, err)
	}
	deltaMinutes, err := strconv.Atoi(deltaStr)
	if err != nil {
		return rangeGroup{}, fmt.Errorf("%s %q: whole minutes required", base+suffixDelta, deltaStr)
	}

	tr := TimeRange{Min: min, Max: max, Delta: time.Duration(deltaMinutes) * time.Minute}
	if err := tr.Validate(); err != nil {
		return rangeGroup{}, fmt.Errorf("range %s: %w", base, err)
	}
	return rangeGroup{base: base, times: tr.Expand()}, nil
}

func (r *Resolver) parseSpatialGroup(row Row, base string) (rangeGroup, error) {
	minStr, okMin := row[base+suffixMin]
	maxStr, okMax := row[base+suffixMax]
	countStr, okCount := row[base+suffixCount]
	arrangeStr, okArrange := row[base+suffixArrange]
	if !okMin || !okMax || !okCount || !okArrange {
		return rangeGroup{}, fmt.Errorf("range %s needs %s, %s, %s and %s",
			base, base+suffixMin, base+suffixMax, base+suffixCount, base+suffixArrange)
	}

	min, err := ParseCoordinate(minStr)
	if err != nil {
		return rangeGroup{}, fmt.Errorf("%s: %w", base+suffixMin, err)
	}
	max, err := ParseCoordinate(maxStr)
	if err != nil {
		return rangeGroup{}, fmt.Errorf("%s: %w", base+suffixMax, err)
	}
	latCount, lngCount, err := parseCounts(countStr)
	if err != nil {
		return rangeGroup{}, fmt.Errorf("%s: %w", base+suffixCount, err)
	}

	sr := SpatialRange{
		Min:         min,
		Max:         max,
		LatCount:    latCount,
		LngCount:    lngCount,
		Arrangement: Arrangement(arrangeStr),
	}
	if err := sr.Validate(); err != nil {
		return rangeGroup{}, fmt.Errorf("range %s: %w", base, err)
	}
	return rangeGroup{base: base, coords: sr.Expand()}, nil
}

// parseCounts parses a "latN;longN" count cell.
func parseCounts(s string) (int, int, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("count %q: want \"latN;longN\"", s)
	}
	latCount, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("count %q: %w", s, err)
	}
	lngCount, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("count %q: %w", s, err)
	}
	return latCount, lngCount, nil
}

// baseSpec builds the row's fixed direct values into a spec. Direct values
// overridden by a declared range group are ignored.
func (r *Resolver) baseSpec(row Row, groups []rangeGroup, loc *time.Location) (Spec, error) {
	overridden := make(map[string]bool, len(groups))
	for _, g := range groups {
		overridden[g.base] = true
	}

	var spec Spec
	var err error
	for col, value := range row {
		if overridden[col] || !directColumns[col] || col == "timezone" {
			continue
		}
		switch col {
		case "origin":
			spec.Origin, err = ParseLocation(value)
		case "destination":
			spec.Destination, err = ParseLocation(value)
		case "mode":
			spec.Mode = Mode(strings.ToLower(value))
		case "waypoints":
			spec.Waypoints = strings.Split(value, "|")
		case "optimize_waypoints":
			spec.OptimizeWaypoints, err = strconv.ParseBool(value)
		case "alternatives":
			spec.Alternatives, err = strconv.ParseBool(value)
		case "avoid":
			spec.Avoid = value
		case "units":
			spec.Units = value
		case "region":
			spec.Region = value
		case "departure_time":
			if strings.EqualFold(value, "now") {
				spec.DepartNow = true
			} else {
				var t time.Time
				t, err = parseTimeIn(value, loc)
				spec.DepartureTime = &t
			}
		case "arrival_time":
			var t time.Time
			t, err = parseTimeIn(value, loc)
			spec.ArrivalTime = &t
		case "transit_mode":
			spec.TransitMode = value
		case "transit_routing_preference":
			spec.TransitRoutingPreference = value
		case "traffic_model":
			spec.TrafficModel = value
		case "split_on_leg":
			spec.SplitOnLeg = SplitLeg(strings.ToLower(value))
		}
		if err != nil {
			return Spec{}, fmt.Errorf("%s: %w", col, err)
		}
	}
	return spec, nil
}

// expandGroups walks the cartesian product across the groups in declaration
// order, each group iterated min to max, and calls emit for each combination
// applied to the base spec.
func expandGroups(base Spec, groups []rangeGroup, emit func(Spec)) {
	if len(groups) == 0 {
		emit(base)
		return
	}

	indices := make([]int, len(groups))
	for {
		spec := base
		for gi, g := range groups {
			applyGroupValue(&spec, g, indices[gi])
		}
		emit(spec)

		// Odometer increment, last group fastest.
		pos := len(groups) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < groups[pos].size() {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

func applyGroupValue(spec *Spec, g rangeGroup, i int) {
	switch g.base {
	case "departure_time":
		t := g.times[i]
		spec.DepartureTime = &t
		spec.DepartNow = false
	case "arrival_time":
		t := g.times[i]
		spec.ArrivalTime = &t
	case "origin":
		c := g.coords[i]
		spec.Origin = Location{Coord: &c}
	case "destination":
		c := g.coords[i]
		spec.Destination = Location{Coord: &c}
	}
}

// parseTimeIn tries the accepted layouts in the given location and converts
// the result to UTC, the single internal clock.
func parseTimeIn(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q: want one of %s", s, strings.Join(timeLayouts, ", "))
}
