package ltn

import (
	"container/heap"
	"math"
)

// Router answers shortest-path queries over the current effective graph:
// base Roads overlaid with an EditLayer's modal filters, diagonal filters
// and direction overrides (§4.3). A Router is cheap to build and is
// rebuilt by the Impact Analyzer for "before" and "after" comparisons
// rather than mutated in place.
type Router struct {
	model           *MapModel
	layer           *EditLayer
	mainRoadPenalty float64
}

func newRouter(model *MapModel, layer *EditLayer, mainRoadPenalty float64) *Router {
	return &Router{model: model, layer: layer, mainRoadPenalty: mainRoadPenalty}
}

// effectiveDirection combines a Road's signed OriginalFlow with any
// Directions override, same rule Project.effectiveDirection uses.
func (rt *Router) effectiveDirection(r *Road) Direction {
	if d, ok := rt.layer.Directions[r.ID]; ok {
		return d
	}
	return r.OriginalFlow
}

// blocked reports whether a road is impassable to motor traffic under the
// current EditLayer. Every ModalFilter kind stops motor through-traffic
// for routing purposes (walk_cycle_only/no_entry/bus_gate/school_street
// all exist precisely to do that); the Router only ever routes motor
// vehicles (§1 Non-goals: no multi-modal routing), so the distinction
// between filter kinds doesn't matter here and only resurfaces in
// rendering.
func (rt *Router) blocked(id RoadID) bool {
	_, ok := rt.layer.ModalFilters[id]
	return ok
}

// traversable reports whether a road can be driven from "from" towards
// its other endpoint, given its effective direction.
func traversable(r *Road, flow Direction, from IntersectionID) bool {
	switch flow {
	case DirBothWays:
		return true
	case DirForwards:
		return r.Src.Intersection == from
	case DirBackwards:
		return r.Dst.Intersection == from
	}
	return false
}

// reverseTraversable reports whether a road can be driven so as to arrive
// at "to", the mirror of traversable that the backward half of Route's
// bidirectional search uses when it explores outward from the
// destination instead of the origin.
func reverseTraversable(r *Road, flow Direction, to IntersectionID) bool {
	return traversable(r, flow, otherEnd(r, to))
}

func otherEnd(r *Road, from IntersectionID) IntersectionID {
	if r.Src.Intersection == from {
		return r.Dst.Intersection
	}
	return r.Src.Intersection
}

// edgeCost is CostSeconds with the interior main-road penalty multiplier
// applied (§4.3, grounded on the teacher's cost_seconds idiom extended
// with a configurable penalty instead of a hardcoded constant).
func (rt *Router) edgeCost(r *Road) float64 {
	cost := r.CostSeconds()
	if r.IsMain() {
		cost *= rt.mainRoadPenalty
	}
	return cost
}

// dijkstraState is a priority-queue entry keyed by (intersection, via
// road): the via road is carried along so forbidden-turn checks at the
// next intersection can see which road the path arrived on, the same way
// a node-only Dijkstra can't respect turn restrictions but an edge-aware
// one can.
type dijkstraState struct {
	node IntersectionID
	via  RoadID
	dist float64
}

type stateQueue []dijkstraState

func (q stateQueue) Len() int            { return len(q) }
func (q stateQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q stateQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *stateQueue) Push(x interface{}) { *q = append(*q, x.(dijkstraState)) }
func (q *stateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// RouteStep is one road traversed by a Route, in travel order.
type RouteStep struct {
	Road RoadID
	From IntersectionID
	To   IntersectionID
}

// Route is the result of Router.Route: the sequence of roads driven and
// the total cost in seconds.
type Route struct {
	Steps      []RouteStep
	CostSeconds float64
}

// routeKey is a settled search state: the intersection reached, and the
// road that state's half of the search is pinned to at that intersection
// (the road arrived on, for the forward search; the road about to be
// driven onward towards d, for the backward search). Carrying it lets
// turn-restriction and diagonal-filter checks see which road a path used
// on either side of an intersection, the same way single-directional
// Dijkstra needs it.
type routeKey struct {
	node IntersectionID
	via  RoadID
}

// Route finds the minimum-cost path from o to d (§4.3 route(o, d, P)) with
// a bidirectional Dijkstra: a forward search grows out from o over the
// normal graph while a backward search grows out from d over the same
// graph traversed in reverse, and the two meet in the middle at whichever
// intersection first yields a legal forward-via/backward-via turn whose
// combined cost can no longer be beaten by either frontier growing
// further. Deterministic tie-breaking is by road id (RoadIDs are assigned
// in a fixed order during MapModel construction, so re-running Route on
// an unedited graph always walks ties the same way): dijkstraState
// entries with equal dist compare stable since container/heap preserves
// insertion order among equal keys only loosely, so tie-break explicitly
// by preferring the lower RoadID when relaxing.
func (rt *Router) Route(o, d IntersectionID) (*Route, error) {
	if _, ok := rt.model.Intersections[o]; !ok {
		return nil, newError(ErrInvalidIntersection, "unknown origin intersection %d", o)
	}
	if _, ok := rt.model.Intersections[d]; !ok {
		return nil, newError(ErrInvalidIntersection, "unknown destination intersection %d", d)
	}
	if o == d {
		return &Route{}, nil
	}

	distF := map[routeKey]float64{{node: o, via: 0}: 0}
	prevRoadF := make(map[routeKey]RoadID)
	prevKeyF := make(map[routeKey]routeKey)
	settledF := make(map[routeKey]bool)
	byNodeF := make(map[IntersectionID]map[RoadID]float64)

	distB := map[routeKey]float64{{node: d, via: 0}: 0}
	prevRoadB := make(map[routeKey]RoadID)
	prevKeyB := make(map[routeKey]routeKey)
	settledB := make(map[routeKey]bool)
	byNodeB := make(map[IntersectionID]map[RoadID]float64)

	pqF := &stateQueue{{node: o, via: 0, dist: 0}}
	pqB := &stateQueue{{node: d, via: 0, dist: 0}}
	heap.Init(pqF)
	heap.Init(pqB)

	// legal reports whether a path may continue straight through an
	// intersection having arrived via road a and about to leave via road
	// b; a or b of 0 means "no road" (the very start or very end of the
	// route), which is always legal.
	legal := func(node IntersectionID, a, b RoadID) bool {
		if a == 0 || b == 0 {
			return true
		}
		ix := rt.model.Intersections[node]
		if ix.forbids(a, b) {
			return false
		}
		if df, ok := rt.layer.DiagonalFilters[node]; ok && !df.allowsMovement(a, b) {
			return false
		}
		return true
	}

	best := math.Inf(1)
	found := false
	var meetF, meetB routeKey

	// tryMeet stitches a state just settled on one frontier against every
	// state already settled on the other frontier at the same
	// intersection, keeping the cheapest legal combination seen so far.
	tryMeet := func(node IntersectionID, viaThis RoadID, distThis float64, other map[RoadID]float64, forwardIsThis bool) {
		for viaOther, distOther := range other {
			a, b := viaThis, viaOther
			if !forwardIsThis {
				a, b = viaOther, viaThis
			}
			if !legal(node, a, b) {
				continue
			}
			if cand := distThis + distOther; cand < best {
				best = cand
				found = true
				if forwardIsThis {
					meetF, meetB = routeKey{node, viaThis}, routeKey{node, viaOther}
				} else {
					meetF, meetB = routeKey{node, viaOther}, routeKey{node, viaThis}
				}
			}
		}
	}

	for pqF.Len() > 0 || pqB.Len() > 0 {
		topF, topB := math.Inf(1), math.Inf(1)
		if pqF.Len() > 0 {
			topF = (*pqF)[0].dist
		}
		if pqB.Len() > 0 {
			topB = (*pqB)[0].dist
		}
		if found && topF+topB >= best {
			break
		}
		if math.IsInf(topF, 1) && math.IsInf(topB, 1) {
			break
		}

		if pqB.Len() == 0 || (pqF.Len() > 0 && topF <= topB) {
			cur := heap.Pop(pqF).(dijkstraState)
			k := routeKey{cur.node, cur.via}
			if settledF[k] || cur.dist > distF[k] {
				continue
			}
			settledF[k] = true
			if byNodeF[cur.node] == nil {
				byNodeF[cur.node] = make(map[RoadID]float64)
			}
			byNodeF[cur.node][cur.via] = cur.dist
			if other, ok := byNodeB[cur.node]; ok {
				tryMeet(cur.node, cur.via, cur.dist, other, true)
			}

			ix := rt.model.Intersections[cur.node]
			for _, roadID := range sortedRoadIDs(ix.Roads) {
				if rt.blocked(roadID) {
					continue
				}
				if cur.via != 0 && ix.forbids(cur.via, roadID) {
					continue
				}
				if df, ok := rt.layer.DiagonalFilters[cur.node]; ok && cur.via != 0 {
					if !df.allowsMovement(cur.via, roadID) {
						continue
					}
				}
				r := rt.model.Roads[roadID]
				if !r.AllowsAgent(AGENT_AUTO) {
					continue
				}
				flow := rt.effectiveDirection(r)
				if !traversable(r, flow, cur.node) {
					continue
				}
				next := otherEnd(r, cur.node)
				nk := routeKey{next, roadID}
				nd := cur.dist + rt.edgeCost(r)
				if existing, ok := distF[nk]; !ok || nd < existing {
					distF[nk] = nd
					prevRoadF[nk] = roadID
					prevKeyF[nk] = k
					heap.Push(pqF, dijkstraState{node: next, via: roadID, dist: nd})
				}
			}
			continue
		}

		cur := heap.Pop(pqB).(dijkstraState)
		k := routeKey{cur.node, cur.via}
		if settledB[k] || cur.dist > distB[k] {
			continue
		}
		settledB[k] = true
		if byNodeB[cur.node] == nil {
			byNodeB[cur.node] = make(map[RoadID]float64)
		}
		byNodeB[cur.node][cur.via] = cur.dist
		if other, ok := byNodeF[cur.node]; ok {
			tryMeet(cur.node, cur.via, cur.dist, other, false)
		}

		ix := rt.model.Intersections[cur.node]
		for _, roadID := range sortedRoadIDs(ix.Roads) {
			if rt.blocked(roadID) {
				continue
			}
			// The backward search walks roads in the opposite real-world
			// order, so a forbidden-turn/diagonal-filter check here must
			// test (candidate road, already-settled via) rather than
			// (via, candidate road).
			if cur.via != 0 && ix.forbids(roadID, cur.via) {
				continue
			}
			if df, ok := rt.layer.DiagonalFilters[cur.node]; ok && cur.via != 0 {
				if !df.allowsMovement(roadID, cur.via) {
					continue
				}
			}
			r := rt.model.Roads[roadID]
			if !r.AllowsAgent(AGENT_AUTO) {
				continue
			}
			flow := rt.effectiveDirection(r)
			if !reverseTraversable(r, flow, cur.node) {
				continue
			}
			next := otherEnd(r, cur.node)
			nk := routeKey{next, roadID}
			nd := cur.dist + rt.edgeCost(r)
			if existing, ok := distB[nk]; !ok || nd < existing {
				distB[nk] = nd
				prevRoadB[nk] = roadID
				prevKeyB[nk] = k
				heap.Push(pqB, dijkstraState{node: next, via: roadID, dist: nd})
			}
		}
	}

	if !found {
		return nil, newError(ErrUnroutable, "no route from intersection %d to %d", o, d)
	}

	var steps []RouteStep
	k := meetF
	for k.via != 0 {
		pk := prevKeyF[k]
		steps = append(steps, RouteStep{Road: prevRoadF[k], From: pk.node, To: k.node})
		k = pk
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}

	k = meetB
	for k.via != 0 {
		pk := prevKeyB[k]
		steps = append(steps, RouteStep{Road: prevRoadB[k], From: k.node, To: pk.node})
		k = pk
	}

	return &Route{Steps: steps, CostSeconds: best}, nil
}

// CompareRoute implements §4.3 compare_route(o, d, P): the same query
// issued against both a "before" Router (no edits) and the receiver,
// reporting how much longer the trip became.
func (rt *Router) CompareRoute(before *Router, o, d IntersectionID) (beforeRoute, afterRoute *Route, err error) {
	beforeRoute, err = before.Route(o, d)
	if err != nil {
		return nil, nil, err
	}
	afterRoute, err = rt.Route(o, d)
	if err != nil {
		return beforeRoute, nil, err
	}
	return beforeRoute, afterRoute, nil
}

func sortedRoadIDs(ids []RoadID) []RoadID {
	out := append([]RoadID{}, ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
