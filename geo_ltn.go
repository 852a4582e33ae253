package ltn

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// toOrbPoint bridges the teacher's GeoPoint (geomath.go) with the orb.Point
// primitives orb/geo, orb/planar and orb/quadtree expect.
func toOrbPoint(gp GeoPoint) orb.Point {
	return orb.Point{gp.Lon, gp.Lat}
}

func ringToOrb(ring []GeoPoint) orb.Ring {
	r := make(orb.Ring, len(ring))
	for i, pt := range ring {
		r[i] = toOrbPoint(pt)
	}
	return r
}

// bearingDegrees returns the initial compass bearing from p to q, in
// [0, 360), measured clockwise from north. Used to sort an Intersection's
// incident roads clockwise (§4.2 step 4).
func bearingDegrees(p, q GeoPoint) float64 {
	lat1 := degreesToRadians(p.Lat)
	lat2 := degreesToRadians(q.Lat)
	dLon := degreesToRadians(q.Lon - p.Lon)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := radiansTodegrees(math.Atan2(y, x))
	if brng < 0 {
		brng += 360
	}
	return brng
}

// closestPointOnPolyline scores every segment of line against pt and returns
// the best: the fraction of the total polyline length reached at the
// closest point (percent_along), the lateral distance in meters from pt to
// that point, and the point itself. Mirrors map_model.rs
// closest_point_on_road's per-candidate exact scoring step.
func closestPointOnPolyline(line []GeoPoint, pt GeoPoint) (percentAlong, lateralMeters float64, closest GeoPoint) {
	total := getSphericalLength(line) * 1000
	if total == 0 || len(line) < 2 {
		if len(line) > 0 {
			return 0, greatCircleDistance(line[0], pt) * 1000, line[0]
		}
		return 0, math.Inf(1), GeoPoint{}
	}
	bestDist := math.Inf(1)
	var bestPoint GeoPoint
	lenBefore := 0.0
	bestLenBefore := 0.0
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		segLen := greatCircleDistance(a, b) * 1000
		cand, fraction := closestOnSegmentMeters(a, b, pt)
		d := greatCircleDistance(cand, pt) * 1000
		if d < bestDist {
			bestDist = d
			bestPoint = cand
			bestLenBefore = lenBefore + fraction*segLen
		}
		lenBefore += segLen
	}
	return bestLenBefore / total, bestDist, bestPoint
}

// closestOnSegmentMeters projects pt onto segment a-b in an equirectangular
// approximation valid for short segments, returning the projected point and
// the fraction of the segment (clamped to [0,1]) at which it lies.
func closestOnSegmentMeters(a, b, pt GeoPoint) (GeoPoint, float64) {
	ax, ay := a.Lon, a.Lat
	bx, by := b.Lon, b.Lat
	px, py := pt.Lon, pt.Lat
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a, 0
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return GeoPoint{Lon: ax + t*dx, Lat: ay + t*dy}, t
}

// polygonAreaKM2 returns the spherical area of a closed ring in km^2.
func polygonAreaKM2(ring []GeoPoint) float64 {
	poly := orb.Polygon{ringToOrb(ring)}
	return geo.Area(poly) / 1e6
}

// pointInPolygonStrict reports whether pt lies strictly inside ring (planar
// approximation; adequate at neighbourhood scale). A point exactly on the
// ring is reported as outside, per SPEC_FULL.md's documented tie-break.
func pointInPolygonStrict(ring []GeoPoint, pt GeoPoint) bool {
	return planar.RingContains(ringToOrb(ring), toOrbPoint(pt))
}

// offsetMeters returns the point meters away from pt along bearingDeg,
// using the same equirectangular approximation as closestOnSegmentMeters
// (adequate at neighbourhood scale; exact geodesics are overkill for a
// rendering glyph).
func offsetMeters(pt GeoPoint, bearingDeg, meters float64) GeoPoint {
	rad := degreesToRadians(bearingDeg)
	dLat := meters * math.Cos(rad) / 110540
	dLon := meters * math.Sin(rad) / (111320 * math.Cos(degreesToRadians(pt.Lat)))
	return GeoPoint{Lon: pt.Lon + dLon, Lat: pt.Lat + dLat}
}

// arrowPolygon builds a small closed dart pointing from origin along
// bearingDeg, the border_arrow glyph renderNeighbourhood emits at each
// border intersection to show traffic direction across the boundary.
func arrowPolygon(origin GeoPoint, bearingDeg float64) [][]float64 {
	tip := offsetMeters(origin, bearingDeg, 12)
	left := offsetMeters(origin, bearingDeg+140, 6)
	right := offsetMeters(origin, bearingDeg-140, 6)
	return [][]float64{
		{tip.Lon, tip.Lat},
		{left.Lon, left.Lat},
		{right.Lon, right.Lat},
		{tip.Lon, tip.Lat},
	}
}

// crossesBoundary reports whether any vertex of line falls outside ring,
// i.e. the road's polyline actually leaves the boundary rather than merely
// having a midpoint that lies inside it. Used to enforce §4.4 step 1's
// "perimeter (boundary-crossing) roads are always excluded" rule.
func crossesBoundary(line []GeoPoint, ring []GeoPoint) bool {
	for _, pt := range line {
		if !pointInPolygonStrict(ring, pt) {
			return true
		}
	}
	return false
}
