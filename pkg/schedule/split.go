package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/transitlab/route-miner/pkg/directions"
	"github.com/transitlab/route-miner/pkg/geo"
	"github.com/transitlab/route-miner/pkg/query"
)

// splitDepartureLead is how far after the full query's dispatch the first
// follow-up leg departs. It keeps follow-up targets strictly after the
// current task so queue ordering is preserved.
const splitDepartureLead = 3 * time.Minute

// stationDistanceLimitMiles rejects place results too far off the transit
// leg's polyline. Station spacing is uneven, so interpolation sometimes
// lands near an unrelated station of the same type.
const stationDistanceLimitMiles = 0.1

// station is an intermediate transit stop found along a leg.
type station struct {
	Name    string
	Address string
	Point   query.Coordinate
}

// splitApplies reports whether a successful dispatch should produce
// intermediate-station follow-up queries.
func (s *Scheduler) splitApplies(spec query.Spec) bool {
	return s.cfg.SplitTransit &&
		s.cfg.Stations != nil &&
		spec.SplitOnLeg != query.SplitNone &&
		spec.Mode == query.ModeTransit &&
		spec.ArrivalTime == nil
}

// splitTasks builds the to-station and from-station query pairs for every
// intermediate station on the split leg. Follow-up specs drop split_on_leg
// so they never split again.
func (s *Scheduler) splitTasks(ctx context.Context, t *Task, spec query.Spec, resp *directions.Response, dispatchedAt time.Time) []*Task {
	leg := transitStep(resp, spec.SplitOnLeg)
	if leg == nil {
		s.logger.Debug().Int("seq", t.Seq).Msg("No transit step to split on")
		return nil
	}

	stations := s.findStations(ctx, leg)
	if len(stations) == 0 {
		s.logger.Debug().Int("seq", t.Seq).Msg("No intermediate stations found")
		return nil
	}

	firstDepart := dispatchedAt.Add(splitDepartureLead).UTC()
	tripDuration, ok := predictedDuration(resp)
	if !ok {
		tripDuration = time.Hour
	}
	secondDepart := firstDepart.Add(tripDuration).UTC()

	var tasks []*Task
	seq := t.Seq
	for _, st := range stations {
		stop := query.Location{Address: st.Address}

		leg1 := spec
		leg1.SplitOnLeg = query.SplitNone
		leg1.Destination = stop
		leg1.DepartureTime = &firstDepart
		leg1.DepartNow = false
		if spec.SplitOnLeg == query.SplitBegin {
			leg1.Mode = query.ModeDriving
			leg1.TransitMode = ""
			leg1.TransitRoutingPreference = ""
		}

		leg2 := spec
		leg2.SplitOnLeg = query.SplitNone
		leg2.Origin = stop
		leg2.DepartureTime = &secondDepart
		leg2.DepartNow = false
		if spec.SplitOnLeg == query.SplitEnd {
			leg2.Mode = query.ModeDriving
			leg2.TransitMode = ""
			leg2.TransitRoutingPreference = ""
		}

		for _, followUp := range []query.Spec{leg1, leg2} {
			if err := followUp.Validate(); err != nil {
				s.logger.Warn().Err(err).Str("station", st.Name).Msg("Dropping invalid follow-up query")
				continue
			}
			target := *followUp.DepartureTime
			if !s.cfg.ExecuteInTime {
				target = s.clock.Now()
			}
			seq++
			tasks = append(tasks, &Task{Spec: followUp, Target: target, Seq: seq, State: TaskPending})
		}
	}

	s.logger.Info().
		Int("seq", t.Seq).
		Int("stations", len(stations)).
		Int("follow_ups", len(tasks)).
		Msg("Built split-transit follow-up queries")
	return tasks
}

// transitStep returns the first transit step of the first leg, walking the
// steps in reverse for end splits.
func transitStep(resp *directions.Response, split query.SplitLeg) *directions.Step {
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil
	}
	steps := resp.Routes[0].Legs[0].Steps
	if split == query.SplitEnd {
		for i := len(steps) - 1; i >= 0; i-- {
			if steps[i].TravelMode == "TRANSIT" && steps[i].TransitDetails != nil {
				return &steps[i]
			}
		}
		return nil
	}
	for i := range steps {
		if steps[i].TravelMode == "TRANSIT" && steps[i].TransitDetails != nil {
			return &steps[i]
		}
	}
	return nil
}

// findStations interpolates expected station positions along the step's
// polyline and resolves each through a place search, keeping results that
// actually sit on the line.
func (s *Scheduler) findStations(ctx context.Context, step *directions.Step) []station {
	line, err := geo.DecodePolyline(step.Polyline.Points)
	if err != nil || len(line) < 2 {
		s.logger.Warn().Err(err).Msg("Unusable step polyline")
		return nil
	}

	numStops := step.TransitDetails.NumStops
	stationType := strings.ToLower(step.TransitDetails.Line.Vehicle.Type) + "_station"

	// Endpoints first: their station names rule out duplicate top results
	// at the interpolated interior points.
	points := []query.Coordinate{line[0], line[len(line)-1]}
	points = append(points, geo.InterpolateAlong(line, geo.StationFractions(numStops))...)

	seen := make(map[string]bool)
	var stations []station
	for _, point := range points {
		place, ok := s.lookupStation(ctx, point, stationType, seen)
		if !ok {
			continue
		}
		resultPoint := query.Coordinate{Lat: place.Geometry.Location.Lat, Lng: place.Geometry.Location.Lng}
		if miles := geo.DistToPolyline(resultPoint, line) * geo.DegreesToMiles; miles > stationDistanceLimitMiles {
			s.logger.Debug().
				Str("station", place.Name).
				Float64("miles_off_line", miles).
				Msg("Skipping station too far from polyline")
			continue
		}
		seen[place.Name] = true
		stations = append(stations, station{
			Name: place.Name,
			// Addresses feed back into query cells; strip commas there.
			Address: strings.ReplaceAll(place.FormattedAddress, ",", ""),
			Point:   resultPoint,
		})
	}
	return stations
}

// lookupStation returns the best unseen place result near the point. Place
// searches go through the same rate gate as every other call on the
// credential.
func (s *Scheduler) lookupStation(ctx context.Context, point query.Coordinate, stationType string, seen map[string]bool) (directions.Place, bool) {
	if err := s.gate.Wait(ctx); err != nil {
		return directions.Place{}, false
	}
	resp, err := s.cfg.Stations.PlaceSearch(ctx, "station", point, stationType)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Place search failed")
		return directions.Place{}, false
	}
	for _, place := range resp.Results {
		if !seen[place.Name] {
			return place, true
		}
	}
	return directions.Place{}, false
}
