package ltn

import (
	"fmt"
	"sort"

	"github.com/paulmach/osm"
)

// IntersectionID stably identifies an Intersection within a frozen
// MapModel (§3).
type IntersectionID int

func (id IntersectionID) String() string { return fmt.Sprintf("intersection#%d", id) }

// turnTriple is a forbidden (from-road, to-road) transition recorded at an
// Intersection, decoded from a turnRestriction relation (§3 "optional set
// of forbidden turn triples").
type turnTriple struct {
	From RoadID
	To   RoadID
}

// Intersection is the Map Model Builder's frozen Intersection entity (§3):
// a stable id, a geographic point, and its incident Roads sorted clockwise
// by bearing. Created once during build; never mutated.
type Intersection struct {
	ID   IntersectionID
	Node osm.NodeID
	Pt   GeoPoint

	// Roads is the clockwise-ordered list of incident RoadIDs, sorted by
	// the bearing of each Road's polyline as it leaves this intersection
	// (§4.2 step 4).
	Roads []RoadID

	Forbidden map[turnTriple]struct{}
}

func (i *Intersection) forbids(from, to RoadID) bool {
	if i.Forbidden == nil {
		return false
	}
	_, ok := i.Forbidden[turnTriple{From: from, To: to}]
	return ok
}

// sortRoadsClockwise orders an intersection's incident roads by the
// bearing of each road's first segment leaving the intersection point,
// generalizing connect_intersection.go's angle-sort idiom from lane
// connections to intersection arms.
func sortRoadsClockwise(pt GeoPoint, roads map[RoadID]*Road, ids []RoadID) []RoadID {
	type arm struct {
		id      RoadID
		bearing float64
	}
	arms := make([]arm, len(ids))
	for i, id := range ids {
		r := roads[id]
		near := outgoingPoint(r, pt)
		arms[i] = arm{id: id, bearing: bearingDegrees(pt, near)}
	}
	sort.Slice(arms, func(a, b int) bool { return arms[a].bearing < arms[b].bearing })
	out := make([]RoadID, len(arms))
	for i, a := range arms {
		out[i] = a.id
	}
	return out
}

// outgoingPoint returns the first polyline vertex of r that differs from
// the intersection point, used as the bearing target when sorting arms.
func outgoingPoint(r *Road, from GeoPoint) GeoPoint {
	if len(r.Geometry) < 2 {
		return from
	}
	if closeEnough(r.Geometry[0], from) {
		return r.Geometry[1]
	}
	return r.Geometry[len(r.Geometry)-2]
}

func closeEnough(a, b GeoPoint) bool {
	return greatCircleDistance(a, b) < 1e-6
}
