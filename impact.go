package ltn

import (
	"math"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// DemandTrip is one origin-destination demand record: a number of trips
// per day between two points, snapped to the base graph's intersections
// the same way a user click is. Expanded from a DemandModel's zone matrix
// by demandTrips, or resolved directly from a trips FeatureCollection by
// resolveDemandTrips for callers that already have point-to-point demand.
type DemandTrip struct {
	Origin      IntersectionID
	Destination IntersectionID
	Count       float64
}

// DemandZone is one zone of the demand matrix (§6 Input formats): a
// MultiPolygon region carrying a trip count to, and from, every other
// zone in the FeatureCollection, indexed by the zone's position in it.
type DemandZone struct {
	Name       string
	Ring       []GeoPoint
	CountsFrom []float64
	CountsTo   []float64
}

// DemandModel is the parsed demand input: either a zone-to-zone trip
// matrix (Zones) or already-resolved point-to-point trips (Trips), used
// to weight the Impact Analyzer's per-edge flow aggregation (§4.6).
// Exactly one of the two is populated, depending on which shape the input
// FeatureCollection carried.
type DemandModel struct {
	Zones []DemandZone
	Trips []DemandTrip
}

// resolveDemand dispatches a demand FeatureCollection to the zone-matrix
// parser or the point-to-point trips parser, based on the geometry type
// of its first feature (§6 Input formats documents the MultiPolygon zone
// shape; the LineString trips shape is the original system's separate
// demand-trips input, still accepted directly).
func resolveDemand(model *MapModel, fc *geojson.FeatureCollection) (*DemandModel, error) {
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		switch {
		case f.Geometry.IsMultiPolygon():
			zones, err := resolveDemandZones(fc)
			if err != nil {
				return nil, err
			}
			return &DemandModel{Zones: zones}, nil
		case f.Geometry.IsLineString():
			trips, err := resolveDemandTrips(model, fc)
			if err != nil {
				return nil, err
			}
			return &DemandModel{Trips: trips}, nil
		}
	}
	return nil, newError(ErrMalformedInput, "demand FeatureCollection carried no MultiPolygon zones or LineString trips")
}

// resolveDemandZones parses §6's demand MultiPolygon FeatureCollection:
// each feature is one zone, and its counts_from/counts_to arrays name the
// trips it sends to, and receives from, the zone at that array index.
func resolveDemandZones(fc *geojson.FeatureCollection) ([]DemandZone, error) {
	var zones []DemandZone
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsMultiPolygon() {
			continue
		}
		polys := f.Geometry.MultiPolygon
		if len(polys) == 0 || len(polys[0]) == 0 || len(polys[0][0]) < 3 {
			continue
		}
		outer := polys[0][0]
		ring := make([]GeoPoint, len(outer))
		for i, c := range outer {
			ring[i] = GeoPoint{Lon: c[0], Lat: c[1]}
		}
		name, _ := f.Properties["name"].(string)
		zones = append(zones, DemandZone{
			Name:       name,
			Ring:       ring,
			CountsFrom: propertyFloatSlice(f, "counts_from"),
			CountsTo:   propertyFloatSlice(f, "counts_to"),
		})
	}
	if len(zones) == 0 {
		return nil, newError(ErrMalformedInput, "demand FeatureCollection carried no usable MultiPolygon zones")
	}
	return zones, nil
}

func propertyFloatSlice(f *geojson.Feature, key string) []float64 {
	raw, _ := f.Properties[key].([]interface{})
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i], _ = v.(float64)
	}
	return out
}

// resolveDemandTrips parses a trips FeatureCollection directly (one
// LineString per OD pair, a `count` property) rather than expanding a
// zone matrix — the shape the original system's separate demand-trips
// input uses when a caller already has point-to-point demand instead of
// zone aggregates.
func resolveDemandTrips(model *MapModel, fc *geojson.FeatureCollection) ([]DemandTrip, error) {
	var trips []DemandTrip
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsLineString() {
			continue
		}
		line := f.Geometry.LineString
		if len(line) < 2 {
			continue
		}
		count, _ := f.Properties["count"].(float64)
		if count <= 0 {
			count = 1
		}
		o := GeoPoint{Lon: line[0][0], Lat: line[0][1]}
		d := GeoPoint{Lon: line[len(line)-1][0], Lat: line[len(line)-1][1]}
		oIx, ok := model.closestIntersection(o)
		if !ok {
			continue
		}
		dIx, ok := model.closestIntersection(d)
		if !ok {
			continue
		}
		trips = append(trips, DemandTrip{Origin: oIx, Destination: dIx, Count: count})
	}
	if len(trips) == 0 {
		return nil, newError(ErrMalformedInput, "demand FeatureCollection carried no usable LineString trips")
	}
	return trips, nil
}

// demandTrips resolves a DemandModel into the OD trips Analyze/RouteDemand
// route: already-resolved Trips pass through unchanged; a zone matrix is
// expanded per §4.6 ("pick representative points in zone i and zone j"),
// using each zone's vertex centroid snapped to the nearest base-graph
// intersection, one trip per non-zero counts_from[j] entry. counts_to is
// the matrix's redundant transpose view and isn't consulted here;
// demandTrips only needs one canonical direction per pair.
func demandTrips(d *DemandModel, model *MapModel) ([]DemandTrip, error) {
	if len(d.Trips) > 0 {
		return d.Trips, nil
	}
	reps := make([]IntersectionID, len(d.Zones))
	snapped := make([]bool, len(d.Zones))
	for i, z := range d.Zones {
		reps[i], snapped[i] = model.closestIntersection(findCentroid(z.Ring))
	}

	var trips []DemandTrip
	for i, z := range d.Zones {
		if !snapped[i] {
			continue
		}
		for j, count := range z.CountsFrom {
			if count <= 0 || i == j || j >= len(snapped) || !snapped[j] {
				continue
			}
			trips = append(trips, DemandTrip{Origin: reps[i], Destination: reps[j], Count: count})
		}
	}
	if len(trips) == 0 {
		return nil, newError(ErrMalformedInput, "demand matrix carried no non-zero OD pairs")
	}
	return trips, nil
}

// EdgeImpact is the per-road aggregate the Impact Analyzer produces
// (§4.6): how many demand trips now cross this road, and the highest
// time-ratio any single trip crossing it experienced.
type EdgeImpact struct {
	Road             RoadID
	TripsBefore      float64
	TripsAfter       float64
	HighestTimeRatio float64
}

// ImpactAnalyzer compares routing "before" (no EditLayer overrides) and
// "after" (the Project's current EditLayer) for every demand trip,
// producing per-edge flow deltas (§4.6).
type ImpactAnalyzer struct {
	project *Project
	before  *Router
	after   *Router
}

// newImpactAnalyzer snapshots the current EditLayer for the "after" router
// rather than sharing p.Layer by reference, so a planner who keeps editing
// while a multi-trip Analyze call is in flight can't shift the after-route
// results mid-analysis.
func newImpactAnalyzer(p *Project) *ImpactAnalyzer {
	return &ImpactAnalyzer{
		project: p,
		before:  newRouter(p.Model, newEditLayer(), p.cfg.mainRoadPenalty),
		after:   newRouter(p.Model, p.Layer.clone(), p.cfg.mainRoadPenalty),
	}
}

// Analyze implements §4.6's impact analysis: every demand trip is routed
// through both Routers; roads on the after-route accumulate flow and
// trips that become unroutable contribute a +Inf time ratio rather than
// being dropped, matching the spec's "unroutable after edits reports as
// +infinity, not as an error" edge case.
func (ia *ImpactAnalyzer) Analyze(trips []DemandTrip) (map[RoadID]*EdgeImpact, error) {
	if len(trips) == 0 {
		return nil, newError(ErrMalformedInput, "no demand trips to analyze")
	}
	impacts := make(map[RoadID]*EdgeImpact)
	ensure := func(id RoadID) *EdgeImpact {
		if e, ok := impacts[id]; ok {
			return e
		}
		e := &EdgeImpact{Road: id}
		impacts[id] = e
		return e
	}

	for _, trip := range trips {
		beforeRoute, err := ia.before.Route(trip.Origin, trip.Destination)
		if err != nil {
			return nil, errors.Wrapf(err, "before-route for trip %d->%d", trip.Origin, trip.Destination)
		}
		for _, step := range beforeRoute.Steps {
			ensure(step.Road).TripsBefore += trip.Count
		}

		afterRoute, err := ia.after.Route(trip.Origin, trip.Destination)
		ratio := math.Inf(1)
		if err == nil {
			for _, step := range afterRoute.Steps {
				ensure(step.Road).TripsAfter += trip.Count
			}
			if beforeRoute.CostSeconds > 0 {
				ratio = afterRoute.CostSeconds / beforeRoute.CostSeconds
			} else {
				ratio = 1
			}
		}
		if err != nil || ratio > 1 {
			for _, step := range beforeRoute.Steps {
				e := ensure(step.Road)
				if ratio > e.HighestTimeRatio {
					e.HighestTimeRatio = ratio
				}
			}
		}
	}
	return impacts, nil
}

// RouteDemand implements §4.6's first bullet: resolve d into OD trips,
// route them all, and return a feature per affected edge carrying
// before/after flow and its road id.
func (ia *ImpactAnalyzer) RouteDemand(d *DemandModel) (*geojson.FeatureCollection, error) {
	trips, err := demandTrips(d, ia.project.Model)
	if err != nil {
		return nil, err
	}
	impacts, err := ia.Analyze(trips)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for roadID, e := range impacts {
		r, ok := ia.project.Model.Roads[roadID]
		if !ok {
			continue
		}
		f := geojson.NewLineStringFeature(lineToCoords(r.Geometry))
		f.SetProperty("kind", "edge_impact")
		f.SetProperty("id", int(roadID))
		f.SetProperty("before", e.TripsBefore)
		f.SetProperty("after", e.TripsAfter)
		fc.AddFeature(f)
	}
	return fc, nil
}

// impactGridCells is the resolution impactToOneDestination's bbox sweep
// samples origins at, in both lon and lat — coarse enough to stay cheap
// at city scale, fine enough to surface a representative worst-case
// ratio per §8 scenario 6.
const impactGridCells = 8

// ImpactToDestination implements §4.6 impactToOneDestination(p): a grid
// covering the boundary's bbox stands in for "a bounded sample of
// origins". Every distinct grid sample that snaps to an intersection is
// routed to dest before and after edits, emitting a line feature from
// that origin toward dest and tracking the worst before/after time ratio
// across all samples that had a before-route at all — unroutable-after
// samples score +Inf and still contribute to highest_time_ratio, per the
// "never fatal" failure semantics.
func (ia *ImpactAnalyzer) ImpactToDestination(dest IntersectionID) (*geojson.FeatureCollection, float64, error) {
	destIx, ok := ia.project.Model.Intersections[dest]
	if !ok {
		return nil, 0, newError(ErrInvalidIntersection, "unknown intersection %d", dest)
	}
	bound := ia.project.Model.Bounds()
	lonStep := (bound.Max[0] - bound.Min[0]) / impactGridCells
	latStep := (bound.Max[1] - bound.Min[1]) / impactGridCells

	fc := geojson.NewFeatureCollection()
	highest := 0.0
	any := false
	seen := make(map[IntersectionID]bool)

	for i := 0; i <= impactGridCells; i++ {
		for j := 0; j <= impactGridCells; j++ {
			origin, ok := ia.project.Model.closestIntersection(GeoPoint{
				Lon: bound.Min[0] + float64(i)*lonStep,
				Lat: bound.Min[1] + float64(j)*latStep,
			})
			if !ok || origin == dest || seen[origin] {
				continue
			}
			seen[origin] = true

			beforeRoute, err := ia.before.Route(origin, dest)
			if err != nil {
				continue
			}
			any = true
			distBefore := routeDistanceM(ia.project.Model, beforeRoute)
			timeBefore := beforeRoute.CostSeconds

			var distAfter, timeAfter, ratio float64
			afterRoute, err := ia.after.Route(origin, dest)
			if err != nil {
				distAfter, timeAfter, ratio = math.Inf(1), math.Inf(1), math.Inf(1)
			} else {
				distAfter = routeDistanceM(ia.project.Model, afterRoute)
				timeAfter = afterRoute.CostSeconds
				if timeBefore > 0 {
					ratio = timeAfter / timeBefore
				} else {
					ratio = 1
				}
			}
			if ratio > highest {
				highest = ratio
			}

			originPt := ia.project.Model.Intersections[origin].Pt
			f := geojson.NewLineStringFeature([][]float64{
				{originPt.Lon, originPt.Lat},
				{destIx.Pt.Lon, destIx.Pt.Lat},
			})
			f.SetProperty("kind", "impact_to_destination")
			f.SetProperty("distance_before", distBefore)
			f.SetProperty("distance_after", distAfter)
			f.SetProperty("time_before", timeBefore)
			f.SetProperty("time_after", timeAfter)
			f.SetProperty("pt1_x", originPt.Lon)
			f.SetProperty("pt1_y", originPt.Lat)
			fc.AddFeature(f)
		}
	}
	if !any {
		return nil, 0, newError(ErrMalformedInput, "no grid sample routed to intersection %d", dest)
	}
	return fc, highest, nil
}

func routeDistanceM(model *MapModel, route *Route) float64 {
	var total float64
	for _, step := range route.Steps {
		total += model.Roads[step.Road].LengthM
	}
	return total
}
