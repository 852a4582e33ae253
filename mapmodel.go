package ltn

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// MapModel is the Map Model Builder's frozen output (§3, §4.2): the Road
// and Intersection sets, a spatial index for Snap, and the bits the Router
// needs to build the routable edge graph on demand. Built once per project
// and never mutated afterward.
type MapModel struct {
	Roads         map[RoadID]*Road
	Intersections map[IntersectionID]*Intersection

	roadIdx *roadIndex
	ixIdx   *intersectionIndex
	bound   orb.Bound

	snapCapMeters   float64
	mainRoadPenalty float64

	routeSnapperCache []byte
}

// buildMapModel runs §4.2's algorithm over Loader output, generalizing the
// teacher's prepareWaysAndNodes (osm_prepare_ways.go/osm_prepare_nodes.go,
// now folded in here) from a traffic-assignment macroscopic network into
// the frozen Road/Intersection graph this spec needs. It additionally
// returns the baseline NoEntry modal filters scraped from OSM barrier=*
// nodes (§3.1 SUPPLEMENT, grounded on original_source/backend/src/scrape.rs
// ReadBarriers), for the caller to seed into the EditLayer before the
// Journal starts recording.
func buildMapModel(data *osmData, cfg *buildConfig) (*MapModel, map[RoadID]ModalFilter, error) {
	refCount := make(map[osm.NodeID]int)
	for _, way := range data.Ways {
		for _, n := range way.Nodes {
			refCount[n]++
		}
	}

	splitPoints := make(map[osm.NodeID]bool)
	for _, way := range data.Ways {
		splitPoints[way.Nodes[0]] = true
		splitPoints[way.Nodes[len(way.Nodes)-1]] = true
		for _, n := range way.Nodes[1 : len(way.Nodes)-1] {
			if refCount[n] >= 2 {
				splitPoints[n] = true
			}
			if rn, ok := data.Nodes[n]; ok && rn.Signal {
				splitPoints[n] = true
			}
		}
	}

	intersectionByNode := make(map[osm.NodeID]IntersectionID)
	intersections := make(map[IntersectionID]*Intersection)
	nextIx := IntersectionID(1)
	intersectionFor := func(n osm.NodeID) (IntersectionID, error) {
		if id, ok := intersectionByNode[n]; ok {
			return id, nil
		}
		rn, ok := data.Nodes[n]
		if !ok {
			return 0, fmt.Errorf("no node data for node %d", n)
		}
		id := nextIx
		nextIx++
		intersectionByNode[n] = id
		intersections[id] = &Intersection{
			ID:   id,
			Node: n,
			Pt:   GeoPoint{Lat: rn.Node.Lat, Lon: rn.Node.Lon},
		}
		return id, nil
	}

	roads := make(map[RoadID]*Road)
	roadsByWayAtNode := make(map[osm.WayID]map[osm.NodeID][]RoadID)
	nextRoad := RoadID(1)

	for _, way := range data.Ways {
		ht := getHighwayType(way.Highway)
		comp, ok := linkTypeByHighway[ht]
		if !ok {
			continue
		}

		segStart := 0
		for i := 1; i < len(way.Nodes); i++ {
			if !splitPoints[way.Nodes[i]] {
				continue
			}
			segNodes := way.Nodes[segStart : i+1]
			if len(segNodes) < 2 {
				segStart = i
				continue
			}
			srcIx, err := intersectionFor(segNodes[0])
			if err != nil {
				return nil, nil, errors.Wrap(err, "resolve source intersection")
			}
			dstIx, err := intersectionFor(segNodes[len(segNodes)-1])
			if err != nil {
				return nil, nil, errors.Wrap(err, "resolve destination intersection")
			}

			geometry := make([]GeoPoint, len(segNodes))
			for j, n := range segNodes {
				rn := data.Nodes[n]
				geometry[j] = GeoPoint{Lat: rn.Node.Lat, Lon: rn.Node.Lon}
			}

			speed := way.MaxSpeedKMH
			if speed <= 0 {
				speed = defaultSpeedByLinkType[comp.linkType]
			}

			flow := DirBothWays
			signed := false
			if way.Oneway {
				signed = !way.OnewayDefault
				if way.IsReversed {
					flow = DirBackwards
				} else {
					flow = DirForwards
				}
			} else if onewayDefaultByLink[comp.linkType] {
				// No explicit oneway tag, but this link class (cycleway,
				// footway, track, railway, aeroway) defaults to one-way in
				// the direction the way was drawn.
				flow = DirForwards
			}

			id := nextRoad
			nextRoad++
			roads[id] = &Road{
				ID:           id,
				WayID:        way.ID,
				Node1:        segNodes[0],
				Node2:        segNodes[len(segNodes)-1],
				Tags:         way.Tags,
				Highway:      way.Highway,
				Geometry:     geometry,
				NodeIDs:      append([]osm.NodeID{}, segNodes...),
				LengthM:      getSphericalLength(geometry) * 1000,
				Src:          RoadEndpoint{Intersection: srcIx},
				Dst:          RoadEndpoint{Intersection: dstIx},
				Class:        comp.linkType,
				IsLink:       comp.linkConnectionType == IS_LINK,
				SpeedKMH:     speed,
				OriginalFlow: flow,
				OnewaySigned: signed,
				HasBusRoute:  way.HasBusRoute,
			}
			intersections[srcIx].Roads = append(intersections[srcIx].Roads, id)
			intersections[dstIx].Roads = append(intersections[dstIx].Roads, id)
			if roadsByWayAtNode[way.ID] == nil {
				roadsByWayAtNode[way.ID] = make(map[osm.NodeID][]RoadID)
			}
			roadsByWayAtNode[way.ID][segNodes[0]] = append(roadsByWayAtNode[way.ID][segNodes[0]], id)
			roadsByWayAtNode[way.ID][segNodes[len(segNodes)-1]] = append(roadsByWayAtNode[way.ID][segNodes[len(segNodes)-1]], id)

			segStart = i
		}
	}

	for _, ix := range intersections {
		ix.Roads = sortRoadsClockwise(ix.Pt, roads, ix.Roads)
	}

	applyRestrictions(data.Restrictions, intersectionByNode, intersections, roadsByWayAtNode)

	filters := scrapeBarrierFilters(data, roads)

	bound := orb.Bound{}
	first := true
	for _, r := range roads {
		for _, pt := range r.Geometry {
			p := toOrbPoint(pt)
			if first {
				bound.Min, bound.Max = p, p
				first = false
				continue
			}
			bound = bound.Extend(p)
		}
	}

	mm := &MapModel{
		Roads:           roads,
		Intersections:   intersections,
		bound:           bound,
		snapCapMeters:   cfg.snapCapMeters,
		mainRoadPenalty: cfg.mainRoadPenalty,
	}
	mm.roadIdx = buildRoadIndex(bound, roads)
	mm.ixIdx = buildIntersectionIndex(bound, intersections)
	return mm, filters, nil
}

// applyRestrictions resolves each Loader-level turnRestriction into a
// forbidden (from-road, to-road) pair stored on the relevant Intersection
// (§4.2 step 6). "no_*" kinds forbid exactly the named movement; "only_*"
// kinds forbid every other movement away from the same from-road at that
// intersection. Restrictions that can't be resolved to roads actually
// incident at the via-intersection are dropped silently, same as an
// unsupported member-role combination during loading.
func applyRestrictions(trs []turnRestriction, ixByNode map[osm.NodeID]IntersectionID, intersections map[IntersectionID]*Intersection, roadsByWayAtNode map[osm.WayID]map[osm.NodeID][]RoadID) {
	for _, tr := range trs {
		ixID, ok := ixByNode[tr.ViaNode]
		if !ok {
			continue
		}
		ix := intersections[ixID]
		fromRoads := roadsByWayAtNode[tr.FromWay][tr.ViaNode]
		toRoads := roadsByWayAtNode[tr.ToWay][tr.ViaNode]
		if len(fromRoads) == 0 || len(toRoads) == 0 {
			continue
		}
		if ix.Forbidden == nil {
			ix.Forbidden = make(map[turnTriple]struct{})
		}
		isOnly := len(tr.Kind) > 5 && tr.Kind[:5] == "only_"
		for _, from := range fromRoads {
			if isOnly {
				for _, candidate := range ix.Roads {
					if candidate == from {
						continue
					}
					allowed := false
					for _, to := range toRoads {
						if candidate == to {
							allowed = true
						}
					}
					if !allowed {
						ix.Forbidden[turnTriple{From: from, To: candidate}] = struct{}{}
					}
				}
				continue
			}
			for _, to := range toRoads {
				ix.Forbidden[turnTriple{From: from, To: to}] = struct{}{}
			}
		}
	}
}

// scrapeBarrierFilters mirrors scrape.rs's ReadBarriers + the conversion of
// baseline barriers into modal filters: every barrier=* node (excluding
// barrier=gate) that lies on a road becomes a NoEntry filter at the node's
// position along that road's polyline.
func scrapeBarrierFilters(data *osmData, roads map[RoadID]*Road) map[RoadID]ModalFilter {
	out := make(map[RoadID]ModalFilter)
	nodeOnRoad := make(map[osm.NodeID]RoadID)
	for id, r := range roads {
		for _, n := range r.NodeIDs {
			if _, already := nodeOnRoad[n]; !already {
				nodeOnRoad[n] = id
			}
		}
	}
	for nodeID, rn := range data.Nodes {
		if rn.Barrier == "" {
			continue
		}
		if _, excluded := barrierTagsExcluded[rn.Barrier]; excluded {
			continue
		}
		roadID, ok := nodeOnRoad[nodeID]
		if !ok {
			continue
		}
		r := roads[roadID]
		pt := GeoPoint{Lat: rn.Node.Lat, Lon: rn.Node.Lon}
		percent, _, _ := closestPointOnPolyline(r.Geometry, pt)
		out[roadID] = ModalFilter{Kind: FilterNoEntry, PercentAlong: percent}
	}
	return out
}

// Bounds returns the min/max lon/lat of the base map (§4.2 Output
// contracts).
func (m *MapModel) Bounds() orb.Bound {
	return m.bound
}

// Snap implements §4.2's Snap(pt) -> (road_id, distance_along_polyline,
// lateral_distance) contract: candidates are pulled from the spatial index
// within the configured cap, then each is exact-scored by its closest
// point on the actual polyline, mirroring map_model.rs
// closest_point_on_road's two-stage approach.
func (m *MapModel) Snap(pt GeoPoint) (RoadID, float64, float64, error) {
	candidates := m.roadIdx.candidatesWithin(pt, m.snapCapMeters*1.5)
	best := RoadID(0)
	bestLateral := -1.0
	bestPercent := 0.0
	for _, id := range candidates {
		r := m.Roads[id]
		percent, lateral, _ := closestPointOnPolyline(r.Geometry, pt)
		if lateral > m.snapCapMeters {
			continue
		}
		if bestLateral < 0 || lateral < bestLateral {
			best, bestLateral, bestPercent = id, lateral, percent
		}
	}
	if bestLateral < 0 {
		return 0, 0, 0, newError(ErrOutOfBounds, "no road within %.1fm of (%f, %f)", m.snapCapMeters, pt.Lon, pt.Lat)
	}
	return best, bestPercent, bestLateral, nil
}

// closestIntersection finds the nearest Intersection to pt, used by
// savefile round-tripping of diagonal filters (§4.5) the way
// map_model.rs's closest_intersection RTree is used.
func (m *MapModel) closestIntersection(pt GeoPoint) (IntersectionID, bool) {
	return m.ixIdx.nearest(pt)
}
