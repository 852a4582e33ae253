package ltn

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// Waypoint is one vertex of a Boundary's editable outline (§6 Input
// formats: boundary properties.waypoints[]).
type Waypoint struct {
	Lon     float64
	Lat     float64
	Snapped bool
}

// Boundary is a user-drawn polygon (§6) identifying a neighbourhood to
// analyze. A Project may accumulate several over its lifetime (only one is
// active at a time); each is journalled via setNeighbourhoodBoundary /
// renameNeighbourhoodBoundary / deleteNeighbourhoodBoundary (§4.5).
type Boundary struct {
	Name      string
	Ring      []GeoPoint
	Waypoints []Waypoint
}

// Project is the opaque handle §6's `new(...)` constructor returns: the
// frozen MapModel, the mutable EditLayer, the Journal, and the set of
// boundaries/demand the caller analyzes against it.
type Project struct {
	Model *MapModel
	Layer *EditLayer

	journal *Journal

	// OriginalModalFilters are the baseline barrier-derived filters
	// (§3.1 SUPPLEMENT) applied before the journal started recording;
	// they live outside EditLayer.ModalFilters's undo history entirely
	// in the sense that the journal never records their initial
	// application, matching scrape_osm clearing undo/redo after seeding
	// them.
	OriginalModalFilters map[RoadID]ModalFilter

	StudyAreaName string
	Boundaries    map[string]*Boundary
	ActiveBoundary string
	IncludePerimeter bool

	Demand *DemandModel

	cfg *buildConfig
}

// NewProject implements §6's construction contract:
// new(osm_bytes, optional demand_bytes, boundary_polygon_geojson, optional
// study_area_name).
func NewProject(osmBytes []byte, demand *geojson.FeatureCollection, boundary *geojson.Feature, studyAreaName string, opts ...BuildOption) (*Project, error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	data, err := loadOSM(osmBytes, cfg.verbose)
	if err != nil {
		return nil, errors.Wrap(err, "load OSM")
	}

	model, baselineFilters, err := buildMapModel(data, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "build map model")
	}

	layer := newEditLayer()
	for roadID, f := range baselineFilters {
		layer.ModalFilters[roadID] = f
	}

	p := &Project{
		Model:                model,
		Layer:                layer,
		journal:              newJournal(),
		OriginalModalFilters: baselineFilters,
		StudyAreaName:        studyAreaName,
		Boundaries:           make(map[string]*Boundary),
		cfg:                  cfg,
	}

	if boundary != nil {
		b, err := decodeBoundary(boundary)
		if err != nil {
			return nil, errors.Wrap(err, "decode boundary")
		}
		p.SetNeighbourhoodBoundary(b)
	}

	if demand != nil {
		p.Demand, err = resolveDemand(model, demand)
		if err != nil {
			return nil, errors.Wrap(err, "resolve demand")
		}
	}

	return p, nil
}

func decodeBoundary(f *geojson.Feature) (*Boundary, error) {
	if f.Geometry == nil || !f.Geometry.IsPolygon() {
		return nil, newError(ErrMalformedInput, "boundary feature must carry Polygon geometry")
	}
	poly := f.Geometry.Polygon
	if len(poly) == 0 || len(poly[0]) < 3 {
		return nil, newError(ErrMalformedInput, "boundary polygon has no outer ring")
	}
	ring := make([]GeoPoint, len(poly[0]))
	for i, c := range poly[0] {
		ring[i] = GeoPoint{Lon: c[0], Lat: c[1]}
	}

	name, _ := f.Properties["name"].(string)
	if name == "" {
		name = "default"
	}

	var waypoints []Waypoint
	if raw, ok := f.Properties["waypoints"].([]interface{}); ok {
		for _, wRaw := range raw {
			w, ok := wRaw.(map[string]interface{})
			if !ok {
				continue
			}
			lon, _ := w["lon"].(float64)
			lat, _ := w["lat"].(float64)
			snapped, _ := w["snapped"].(bool)
			waypoints = append(waypoints, Waypoint{Lon: lon, Lat: lat, Snapped: snapped})
		}
	}
	if len(waypoints) == 0 {
		// §9 Open Question: back-fill from the ring itself when no
		// explicit waypoints property is present, each marked unsnapped.
		for _, pt := range ring {
			waypoints = append(waypoints, Waypoint{Lon: pt.Lon, Lat: pt.Lat, Snapped: false})
		}
	}

	return &Boundary{Name: name, Ring: ring, Waypoints: waypoints}, nil
}

func (p *Project) activeBoundary() (*Boundary, error) {
	b, ok := p.Boundaries[p.ActiveBoundary]
	if !ok {
		return nil, newError(ErrInternal, "no active boundary set")
	}
	return b, nil
}

// SetNeighbourhoodBoundary sets or replaces a named boundary and makes it
// active. Boundary edits are not modeled as invertible EditLayer deltas —
// boundary drawing is a setup step, not a filter/direction edit a planner
// undoes mid-session, so it carries no journal entry.
func (p *Project) SetNeighbourhoodBoundary(b *Boundary) {
	p.Boundaries[b.Name] = b
	p.ActiveBoundary = b.Name
}

func (p *Project) RenameNeighbourhoodBoundary(oldName, newName string) error {
	b, ok := p.Boundaries[oldName]
	if !ok {
		return newError(ErrInternal, "no such boundary %q", oldName)
	}
	delete(p.Boundaries, oldName)
	b.Name = newName
	p.Boundaries[newName] = b
	if p.ActiveBoundary == oldName {
		p.ActiveBoundary = newName
	}
	return nil
}

func (p *Project) DeleteNeighbourhoodBoundary(name string) {
	delete(p.Boundaries, name)
	if p.ActiveBoundary == name {
		p.ActiveBoundary = ""
	}
}

// SetIncludePerimeter flips the F flag in §4.4 step 1's interior
// classification (main roads whose midpoint lies in the boundary count as
// interior when set). Not journalled: it's a view setting on the
// Neighbourhood Engine, not an EditLayer mutation, so it carries no undo
// entry — matching how EditLayer scopes only road/intersection overrides.
func (p *Project) SetIncludePerimeter(v bool) {
	p.IncludePerimeter = v
}

func (p *Project) UndoLength() int { return p.journal.UndoLength() }
func (p *Project) RedoLength() int { return p.journal.RedoLength() }

func (p *Project) Undo() error { return p.journal.performUndo(p.Layer) }
func (p *Project) Redo() error { return p.journal.performRedo(p.Layer) }

// effectiveFilter returns the modal filter in force on a road, combining
// baseline scraped barriers with EditLayer overrides the way
// EffectiveDirection combines OriginalFlow with Directions overrides.
func (p *Project) effectiveFilter(id RoadID) (ModalFilter, bool) {
	if f, ok := p.Layer.ModalFilters[id]; ok {
		return f, true
	}
	return ModalFilter{}, false
}

// FilterOn exposes effectiveFilter publicly so a caller can query what, if
// anything, blocks a given road before deciding whether to add or replace
// a modal filter there.
func (p *Project) FilterOn(id RoadID) (ModalFilter, bool) {
	return p.effectiveFilter(id)
}

func (p *Project) effectiveDirection(id RoadID) Direction {
	if d, ok := p.Layer.Directions[id]; ok {
		return d
	}
	return p.Model.Roads[id].OriginalFlow
}

// AddModalFilter implements §4.5 add_modal_filter(pt, kind): snap pt to
// its nearest road and journal a filter there, auto-upgrading to BusGate
// when the road carries a bus route (§3.1 SUPPLEMENT).
func (p *Project) AddModalFilter(pt GeoPoint, kind FilterKind) (RoadID, error) {
	roadID, percent, _, err := p.Model.Snap(pt)
	if err != nil {
		return 0, err
	}
	if _, already := p.Layer.ModalFilters[roadID]; already {
		return 0, newError(ErrAlreadyFiltered, "road %d already carries a modal filter", roadID)
	}
	resolved := resolveFilterKind(kind, p.Model.Roads[roadID].HasBusRoute)
	filter := ModalFilter{Kind: resolved, PercentAlong: percent}
	err = p.journal.apply(p.Layer, Command{Kind: CmdSetModalFilter, Road: roadID, Filter: &filter})
	if err != nil {
		return 0, err
	}
	return roadID, nil
}

// AddManyModalFilters implements §4.5 add_many_modal_filters(line, kind):
// every distinct road the line snaps across gets a filter, applied as one
// atomic compound command so a single undo removes all of them.
func (p *Project) AddManyModalFilters(line []GeoPoint, kind FilterKind) ([]RoadID, error) {
	seen := make(map[RoadID]bool)
	var roadIDs []RoadID
	var subs []Command
	for _, pt := range line {
		roadID, percent, _, err := p.Model.Snap(pt)
		if err != nil {
			continue
		}
		if seen[roadID] {
			continue
		}
		if _, already := p.Layer.ModalFilters[roadID]; already {
			continue
		}
		seen[roadID] = true
		resolved := resolveFilterKind(kind, p.Model.Roads[roadID].HasBusRoute)
		filter := ModalFilter{Kind: resolved, PercentAlong: percent}
		subs = append(subs, Command{Kind: CmdSetModalFilter, Road: roadID, Filter: &filter})
		roadIDs = append(roadIDs, roadID)
	}
	if len(subs) == 0 {
		return nil, newError(ErrMalformedInput, "line did not cross any unfiltered road")
	}
	if err := p.journal.apply(p.Layer, Command{Kind: CmdMultiple, Sub: subs}); err != nil {
		return nil, err
	}
	return roadIDs, nil
}

// DeleteModalFilter implements §4.5 delete_modal_filter(road_id).
func (p *Project) DeleteModalFilter(roadID RoadID) error {
	if _, ok := p.Layer.ModalFilters[roadID]; !ok {
		return newError(ErrInternal, "road %d carries no modal filter", roadID)
	}
	return p.journal.apply(p.Layer, Command{Kind: CmdSetModalFilter, Road: roadID})
}

// ResetModalFilters reverts every road's modal filter back to
// OriginalModalFilters, undoing any filters the planner added, removed, or
// changed since load — a journalled version of map_model.rs's
// `self.modal_filters = self.original_modal_filters.clone()`. Roads whose
// current filter already matches the baseline are left alone.
func (p *Project) ResetModalFilters() error {
	seen := make(map[RoadID]bool, len(p.Layer.ModalFilters)+len(p.OriginalModalFilters))
	var subs []Command
	for roadID, cur := range p.Layer.ModalFilters {
		seen[roadID] = true
		if orig, ok := p.OriginalModalFilters[roadID]; ok && orig == cur {
			continue
		}
		cmd := Command{Kind: CmdSetModalFilter, Road: roadID}
		if orig, ok := p.OriginalModalFilters[roadID]; ok {
			cmd.Filter = &orig
		}
		subs = append(subs, cmd)
	}
	for roadID, orig := range p.OriginalModalFilters {
		if seen[roadID] {
			continue
		}
		f := orig
		subs = append(subs, Command{Kind: CmdSetModalFilter, Road: roadID, Filter: &f})
	}
	if len(subs) == 0 {
		return nil
	}
	return p.journal.apply(p.Layer, Command{Kind: CmdMultiple, Sub: subs})
}

// ToggleTravelFlow implements §4.5 toggle_travel_flow(road_id): a
// two-step forwards/backwards swap on a road that was already signed
// oneway in OSM (reversing it never implies two-way, since the signage
// says otherwise), or a three-step both-ways -> forwards -> backwards ->
// both-ways cycle on an unsigned road.
func (p *Project) ToggleTravelFlow(roadID RoadID) error {
	r, ok := p.Model.Roads[roadID]
	if !ok {
		return newError(ErrInternal, "unknown road %d", roadID)
	}
	cur := p.effectiveDirection(roadID)
	var next Direction
	if r.OnewaySigned {
		if cur == DirForwards {
			next = DirBackwards
		} else {
			next = DirForwards
		}
	} else {
		switch cur {
		case DirBothWays:
			next = DirForwards
		case DirForwards:
			next = DirBackwards
		default:
			next = DirBothWays
		}
	}
	flow := next
	if flow == r.OriginalFlow {
		flow = 0 // revert to "no override" rather than storing a redundant copy
	}
	return p.journal.apply(p.Layer, Command{Kind: CmdSetDirection, Road: roadID, Flow: flow})
}

// AddDiagonalFilter implements §4.5 add_diagonal_filter(intersection_id).
func (p *Project) AddDiagonalFilter(ixID IntersectionID) error {
	ix, ok := p.Model.Intersections[ixID]
	if !ok {
		return newError(ErrInvalidIntersection, "unknown intersection %d", ixID)
	}
	df, err := newDiagonalFilter(ix.Roads)
	if err != nil {
		return err
	}
	return p.journal.apply(p.Layer, Command{Kind: CmdSetDiagonalFilter, Intersection: ixID, Diagonal: df})
}

// RotateDiagonalFilter implements §4.5 rotate_diagonal_filter(intersection_id).
func (p *Project) RotateDiagonalFilter(ixID IntersectionID) error {
	ix, ok := p.Model.Intersections[ixID]
	if !ok {
		return newError(ErrInvalidIntersection, "unknown intersection %d", ixID)
	}
	cur, ok := p.Layer.DiagonalFilters[ixID]
	if !ok {
		return newError(ErrInternal, "intersection %d carries no diagonal filter", ixID)
	}
	next, err := cur.rotated(ix.Roads)
	if err != nil {
		return err
	}
	return p.journal.apply(p.Layer, Command{Kind: CmdSetDiagonalFilter, Intersection: ixID, Diagonal: next})
}

// DeleteDiagonalFilter implements §4.5 delete_diagonal_filter(intersection_id).
func (p *Project) DeleteDiagonalFilter(ixID IntersectionID) error {
	if _, ok := p.Layer.DiagonalFilters[ixID]; !ok {
		return newError(ErrInternal, "intersection %d carries no diagonal filter", ixID)
	}
	return p.journal.apply(p.Layer, Command{Kind: CmdSetDiagonalFilter, Intersection: ixID})
}

// NeighbourhoodEngine builds a NeighbourhoodEngine for the active
// boundary (§4.4).
func (p *Project) NeighbourhoodEngine() (*NeighbourhoodEngine, error) {
	b, err := p.activeBoundary()
	if err != nil {
		return nil, err
	}
	return newNeighbourhoodEngine(p, b), nil
}

// ImpactAnalyzer builds an ImpactAnalyzer comparing the current EditLayer
// against an unedited baseline (§4.6).
func (p *Project) ImpactAnalyzer() *ImpactAnalyzer {
	return newImpactAnalyzer(p)
}

// RouteSnapper exposes the frozen base map's contraction-hierarchy
// snapping graph (§4.2.2).
func (p *Project) RouteSnapper() ([]byte, error) {
	return p.Model.ToRouteSnapper()
}
