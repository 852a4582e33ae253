package ltn

import (
	"sort"
	"strconv"
)

// NeighbourhoodEngine classifies the roads and intersections inside a
// Boundary and answers the cell-decomposition / cell-coloring / shortcut
// queries the UI needs to render and critique an LTN design (§4.4).
type NeighbourhoodEngine struct {
	project  *Project
	boundary *Boundary

	interior map[RoadID]bool
	border   map[IntersectionID]bool
}

// newNeighbourhoodEngine classifies every Road against the boundary ring
// per §4.4 step 1: interior requires the polyline's midpoint to fall
// strictly inside the polygon (§9's resolution of the on-boundary Open
// Question — favoring strict point-in-polygon over "touches counts as
// inside" so a road that merely grazes the boundary line is treated as a
// border road, not interior), excludes a road whose polyline leaves the
// polygon anywhere (a "perimeter" road is always excluded, even if its
// midpoint happens to fall inside), and excludes main roads unless the
// Project's IncludePerimeter flag is set.
func newNeighbourhoodEngine(p *Project, b *Boundary) *NeighbourhoodEngine {
	ne := &NeighbourhoodEngine{
		project:  p,
		boundary: b,
		interior: make(map[RoadID]bool),
		border:   make(map[IntersectionID]bool),
	}
	for id, r := range p.Model.Roads {
		if !pointInPolygonStrict(b.Ring, r.Midpoint()) {
			continue
		}
		if crossesBoundary(r.Geometry, b.Ring) {
			continue
		}
		if r.IsMain() && !p.IncludePerimeter {
			continue
		}
		ne.interior[id] = true
	}
	for id, ix := range p.Model.Intersections {
		var anyInterior, anyOutside bool
		for _, roadID := range ix.Roads {
			if ne.interior[roadID] {
				anyInterior = true
			} else {
				anyOutside = true
			}
		}
		if anyInterior && anyOutside {
			ne.border[id] = true
		}
	}
	return ne
}

// IsInterior reports whether a road is inside the active boundary.
func (ne *NeighbourhoodEngine) IsInterior(id RoadID) bool { return ne.interior[id] }

// BorderIntersections returns every intersection incident to both an
// interior road and a road leaving the boundary (§4.4 step 2).
func (ne *NeighbourhoodEngine) BorderIntersections() []IntersectionID {
	out := make([]IntersectionID, 0, len(ne.border))
	for id := range ne.border {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Cell is a maximal connected component of interior roads that cannot
// reach each other without crossing a modal filter or a forbidden
// diagonal-filter movement (§4.4 step 3). Disconnected marks a cell with
// no motor-legal transition from any of its roads onto a road outside the
// neighbourhood — through-traffic, and the resident, are equally unable
// to drive out of it.
type Cell struct {
	ID           int
	Roads        []RoadID
	Disconnected bool
}

// Cells decomposes the interior road network into cells under the
// current EditLayer, mirroring a connected-components sweep over an
// undirected adjacency graph built from shared intersections, refusing
// to cross any road with an active modal filter or a diagonal-filter
// movement the two roads don't share a group in.
func (ne *NeighbourhoodEngine) Cells() []Cell {
	adj := make(map[RoadID]map[RoadID]bool)
	add := func(a, b RoadID) {
		if adj[a] == nil {
			adj[a] = make(map[RoadID]bool)
		}
		adj[a][b] = true
	}

	for ixID := range ne.project.Model.Intersections {
		ix := ne.project.Model.Intersections[ixID]
		df := ne.project.Layer.DiagonalFilters[ixID]
		for i := 0; i < len(ix.Roads); i++ {
			for j := i + 1; j < len(ix.Roads); j++ {
				a, b := ix.Roads[i], ix.Roads[j]
				if !ne.interior[a] || !ne.interior[b] {
					continue
				}
				if ne.filtered(a) || ne.filtered(b) {
					continue
				}
				if df != nil && !df.allowsMovement(a, b) {
					continue
				}
				add(a, b)
				add(b, a)
			}
		}
	}

	visited := make(map[RoadID]bool)
	var cells []Cell
	nextID := 0
	for id := range ne.interior {
		if visited[id] {
			continue
		}
		var roads []RoadID
		queue := []RoadID{id}
		visited[id] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			roads = append(roads, cur)
			for next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Slice(roads, func(i, j int) bool { return roads[i] < roads[j] })
		cells = append(cells, Cell{ID: nextID, Roads: roads})
		nextID++
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Roads[0] < cells[j].Roads[0] })
	for i := range cells {
		cells[i].ID = i
		cells[i].Disconnected = !ne.cellReachesBorder(cells[i])
	}
	return cells
}

// cellReachesBorder reports whether any road in the cell has a
// motor-legal transition onto a road outside the neighbourhood, per
// §4.4 step 3's definition of "disconnected".
func (ne *NeighbourhoodEngine) cellReachesBorder(c Cell) bool {
	for _, id := range c.Roads {
		if ne.roadReachesBorder(id) {
			return true
		}
	}
	return false
}

// roadReachesBorder reports whether a road has at least one motor-legal
// transition, at either of its endpoints, onto a road outside the
// neighbourhood.
func (ne *NeighbourhoodEngine) roadReachesBorder(id RoadID) bool {
	if ne.filtered(id) {
		return false
	}
	r := ne.project.Model.Roads[id]
	return ne.roadReachesBorderAt(id, r.Src.Intersection) || ne.roadReachesBorderAt(id, r.Dst.Intersection)
}

// roadReachesBorderAt checks one endpoint of a road for a border
// intersection carrying an outside road the interior road can legally
// transition onto: not modal-filtered, not a forbidden turn, and not
// split off by a diagonal filter.
func (ne *NeighbourhoodEngine) roadReachesBorderAt(id RoadID, ixID IntersectionID) bool {
	if !ne.border[ixID] {
		return false
	}
	ix := ne.project.Model.Intersections[ixID]
	df := ne.project.Layer.DiagonalFilters[ixID]
	for _, other := range ix.Roads {
		if other == id || ne.interior[other] || ne.filtered(other) {
			continue
		}
		if ix.forbids(id, other) || ix.forbids(other, id) {
			continue
		}
		if df != nil && !df.allowsMovement(id, other) {
			continue
		}
		return true
	}
	return false
}

func (ne *NeighbourhoodEngine) filtered(id RoadID) bool {
	_, ok := ne.project.Layer.ModalFilters[id]
	return ok
}

// CellColor is ColorCells' per-cell result: either a small nonnegative
// greedy-coloring index, or the "disconnected" sentinel §4.4 step 4
// reserves for a cell with no motor-legal exit to the boundary.
type CellColor struct {
	Color        int
	Disconnected bool
}

// String renders the color the way the documented output format does:
// the integer, or the literal "disconnected".
func (c CellColor) String() string {
	if c.Disconnected {
		return "disconnected"
	}
	return strconv.Itoa(c.Color)
}

// ColorCells assigns each non-disconnected cell the smallest nonnegative
// integer color not already used by a cell it's adjacent to (two cells
// are adjacent if they share a border intersection), matching the
// greedy-coloring idiom §4.4 step 4 calls for: distinct colors for
// abutting cells, not a proper minimum coloring. Disconnected cells take
// no part in the adjacency/coloring pass and carry the sentinel instead.
func (ne *NeighbourhoodEngine) ColorCells(cells []Cell) map[int]CellColor {
	roadToCell := make(map[RoadID]int)
	disconnected := make(map[int]bool, len(cells))
	for _, c := range cells {
		for _, r := range c.Roads {
			roadToCell[r] = c.ID
		}
		disconnected[c.ID] = c.Disconnected
	}

	adjacency := make(map[int]map[int]bool)
	for ixID := range ne.border {
		ix := ne.project.Model.Intersections[ixID]
		var seen []int
		for _, r := range ix.Roads {
			if c, ok := roadToCell[r]; ok && !disconnected[c] {
				seen = append(seen, c)
			}
		}
		for i := 0; i < len(seen); i++ {
			for j := i + 1; j < len(seen); j++ {
				if seen[i] == seen[j] {
					continue
				}
				if adjacency[seen[i]] == nil {
					adjacency[seen[i]] = make(map[int]bool)
				}
				if adjacency[seen[j]] == nil {
					adjacency[seen[j]] = make(map[int]bool)
				}
				adjacency[seen[i]][seen[j]] = true
				adjacency[seen[j]][seen[i]] = true
			}
		}
	}

	colors := make(map[int]int)
	var order []int
	for _, c := range cells {
		if !c.Disconnected {
			order = append(order, c.ID)
		}
	}
	sort.Ints(order)
	for _, id := range order {
		used := make(map[int]bool)
		for neighbour := range adjacency[id] {
			if c, ok := colors[neighbour]; ok {
				used[c] = true
			}
		}
		color := 0
		for used[color] {
			color++
		}
		colors[id] = color
	}

	out := make(map[int]CellColor, len(cells))
	for _, c := range cells {
		if c.Disconnected {
			out[c.ID] = CellColor{Disconnected: true}
			continue
		}
		out[c.ID] = CellColor{Color: colors[c.ID]}
	}
	return out
}

// Shortcut is a simple path between two border intersections that cuts
// through the interior without respecting the neighbourhood's role as a
// through-route deterrent (§4.4 step 5: "rat run"). Directness is
// straight_line_distance(From, To) / path_length: 1.0 for a shortcut
// that runs dead straight between its endpoints, smaller the more it
// winds.
type Shortcut struct {
	From       IntersectionID
	To         IntersectionID
	Route      *Route
	Directness float64
}

// Shortcuts enumerates up to maxPerPair distinct simple paths (by total
// road set) between every pair of border intersections, each capped at
// maxHops roads, restricted to interior (and border-incident) roads only
// — the Neighbourhood Engine's bounded stand-in for Yen's algorithm's
// K-shortest-simple-paths (§4.4.5), since full Yen's requires repeated
// whole-graph Dijkstra reruns with edge removal that isn't worth the cost
// against a subgraph this small.
func (ne *NeighbourhoodEngine) Shortcuts(maxPerPair, maxHops int) []Shortcut {
	rt := newRouter(ne.project.Model, ne.project.Layer, ne.project.cfg.mainRoadPenalty)
	borders := ne.BorderIntersections()

	var out []Shortcut
	for i := 0; i < len(borders); i++ {
		for j := 0; j < len(borders); j++ {
			if i == j {
				continue
			}
			from, to := borders[i], borders[j]
			paths := ne.kShortestInterior(rt, from, to, maxPerPair, maxHops)
			for _, route := range paths {
				out = append(out, Shortcut{
					From:       from,
					To:         to,
					Route:      route,
					Directness: ne.directness(from, to, route),
				})
			}
		}
	}
	return out
}

// directness computes Shortcut.Directness. greatCircleDistance returns
// kilometers, so it's scaled to meters to match Road.LengthM before the
// ratio is taken.
func (ne *NeighbourhoodEngine) directness(from, to IntersectionID, route *Route) float64 {
	var pathLen float64
	for _, step := range route.Steps {
		pathLen += ne.project.Model.Roads[step.Road].LengthM
	}
	if pathLen == 0 {
		return 0
	}
	straight := greatCircleDistance(ne.project.Model.Intersections[from].Pt, ne.project.Model.Intersections[to].Pt) * 1000
	return straight / pathLen
}

// ShortcutCounts tallies shortcut_count(r) (§4.4 step 5): how many
// enumerated shortcut paths traverse each interior road.
func ShortcutCounts(shortcuts []Shortcut) map[RoadID]int {
	counts := make(map[RoadID]int)
	for _, sc := range shortcuts {
		if sc.Route == nil {
			continue
		}
		for _, step := range sc.Route.Steps {
			counts[step.Road]++
		}
	}
	return counts
}

// kShortestInterior does a bounded DFS over interior-only roads, ranking
// complete paths by cost and returning the best maxPerPair under maxHops.
func (ne *NeighbourhoodEngine) kShortestInterior(rt *Router, from, to IntersectionID, maxPerPair, maxHops int) []*Route {
	var found []*Route
	visited := make(map[IntersectionID]bool)
	var path []RouteStep
	var cost float64

	var dfs func(node IntersectionID, via RoadID, depth int)
	dfs = func(node IntersectionID, via RoadID, depth int) {
		if len(found) >= maxPerPair*4 || depth > maxHops {
			return
		}
		if node == to && depth > 0 {
			cp := append([]RouteStep{}, path...)
			found = append(found, &Route{Steps: cp, CostSeconds: cost})
			return
		}
		ix := ne.project.Model.Intersections[node]
		for _, roadID := range ix.Roads {
			if !ne.interior[roadID] && roadID != via {
				if node != from && node != to {
					continue
				}
			}
			if _, ok := ne.project.Layer.ModalFilters[roadID]; ok {
				continue
			}
			if via != 0 && ix.forbids(via, roadID) {
				continue
			}
			if df, ok := ne.project.Layer.DiagonalFilters[node]; ok && via != 0 {
				if !df.allowsMovement(via, roadID) {
					continue
				}
			}
			r := ne.project.Model.Roads[roadID]
			if !r.AllowsAgent(AGENT_AUTO) {
				continue
			}
			flow := rt.effectiveDirection(r)
			if !traversable(r, flow, node) {
				continue
			}
			next := otherEnd(r, node)
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, RouteStep{Road: roadID, From: node, To: next})
			cost += rt.edgeCost(r)
			dfs(next, roadID, depth+1)
			cost -= rt.edgeCost(r)
			path = path[:len(path)-1]
			visited[next] = false
		}
	}

	visited[from] = true
	dfs(from, 0, 0)

	sort.Slice(found, func(i, j int) bool { return found[i].CostSeconds < found[j].CostSeconds })
	if len(found) > maxPerPair {
		found = found[:maxPerPair]
	}
	return found
}

// outflowBearing returns the compass bearing from a border intersection
// toward one of its outside roads — the direction a border_arrow glyph
// should point to show traffic leaving the neighbourhood there.
func (ne *NeighbourhoodEngine) outflowBearing(ixID IntersectionID) (float64, bool) {
	ix, ok := ne.project.Model.Intersections[ixID]
	if !ok {
		return 0, false
	}
	for _, roadID := range ix.Roads {
		if ne.interior[roadID] {
			continue
		}
		r := ne.project.Model.Roads[roadID]
		return bearingDegrees(ix.Pt, outgoingPoint(r, ix.Pt)), true
	}
	return 0, false
}

// AreaKM2 is the spherical area of the active boundary polygon (§4.4).
func (ne *NeighbourhoodEngine) AreaKM2() float64 {
	return polygonAreaKM2(ne.boundary.Ring)
}

// ShortcutsDefault runs Shortcuts with the Project's configured
// maxShortcutsPerPair/maxShortcutHops (§9 "cap K and path length").
func (ne *NeighbourhoodEngine) ShortcutsDefault() []Shortcut {
	return ne.Shortcuts(ne.project.cfg.maxShortcutsPerPair, ne.project.cfg.maxShortcutHops)
}
