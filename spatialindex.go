package ltn

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// roadPoint/intersectionPoint adapt RoadID/IntersectionID to orb.Pointer so
// they can live in an orb/quadtree.Quadtree. The teacher's dependency tree
// carries no R-tree (the original Rust implementation's closest_road/
// closest_intersection are `rstar::RTree`s); orb/quadtree is the point
// index from the same library family the teacher already depends on
// (paulmach/orb), so roads and intersections are indexed by a
// representative point (Road.Midpoint / Intersection.Pt) instead of by
// bounding box, and Snap recovers exactness with a per-candidate
// closest-point-on-polyline scoring pass (geo_ltn.go).
type roadPoint struct {
	id RoadID
	pt orb.Point
}

func (p roadPoint) Point() orb.Point { return p.pt }

type intersectionPoint struct {
	id IntersectionID
	pt orb.Point
}

func (p intersectionPoint) Point() orb.Point { return p.pt }

// roadIndex answers "which roads are near this point" queries for Snap
// (§4.2 Output contracts) by scanning every midpoint within a padded
// bounding box of the query, then exact-scoring in geo_ltn.go.
type roadIndex struct {
	tree *quadtree.Quadtree
}

func buildRoadIndex(bound orb.Bound, roads map[RoadID]*Road) *roadIndex {
	tree := quadtree.New(bound)
	for id, r := range roads {
		mid := toOrbPoint(r.Midpoint())
		tree.Add(roadPoint{id: id, pt: mid})
	}
	return &roadIndex{tree: tree}
}

// candidatesWithin returns every indexed road whose representative point
// falls within radiusMeters (approximated in degrees) of pt.
func (idx *roadIndex) candidatesWithin(pt GeoPoint, radiusMeters float64) []RoadID {
	degPad := radiusMeters / 111000.0
	center := toOrbPoint(pt)
	b := orb.Bound{
		Min: orb.Point{center[0] - degPad, center[1] - degPad},
		Max: orb.Point{center[0] + degPad, center[1] + degPad},
	}
	matches := idx.tree.InBound(nil, b)
	out := make([]RoadID, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.(roadPoint).id)
	}
	return out
}

type intersectionIndex struct {
	tree *quadtree.Quadtree
}

func buildIntersectionIndex(bound orb.Bound, intersections map[IntersectionID]*Intersection) *intersectionIndex {
	tree := quadtree.New(bound)
	for id, ix := range intersections {
		tree.Add(intersectionPoint{id: id, pt: toOrbPoint(ix.Pt)})
	}
	return &intersectionIndex{tree: tree}
}

func (idx *intersectionIndex) nearest(pt GeoPoint) (IntersectionID, bool) {
	found := idx.tree.Find(toOrbPoint(pt))
	if found == nil {
		return 0, false
	}
	return found.(intersectionPoint).id, true
}
