package ltn

import "testing"

func crossBoundary() *Boundary {
	ring := []GeoPoint{
		{Lon: -0.003, Lat: -0.003},
		{Lon: 0.003, Lat: -0.003},
		{Lon: 0.003, Lat: 0.003},
		{Lon: -0.003, Lat: 0.003},
		{Lon: -0.003, Lat: -0.003},
	}
	return &Boundary{Name: "test", Ring: ring}
}

func testProject(t *testing.T) *Project {
	model, filters, _, _ := buildCrossModel(t)
	layer := newEditLayer()
	for id, f := range filters {
		layer.ModalFilters[id] = f
	}
	return &Project{
		Model:      model,
		Layer:      layer,
		journal:    newJournal(),
		Boundaries: map[string]*Boundary{"test": crossBoundary()},
		ActiveBoundary: "test",
		cfg:        defaultBuildConfig(),
	}
}

func TestNeighbourhoodEngineClassifiesInterior(t *testing.T) {
	p := testProject(t)
	ne, err := p.NeighbourhoodEngine()
	if err != nil {
		t.Fatalf("NeighbourhoodEngine failed: %v", err)
	}
	for id := range p.Model.Roads {
		if !ne.IsInterior(id) {
			t.Errorf("road %d should be interior to a boundary that contains the whole cross", id)
		}
	}
}

func TestNeighbourhoodEngineCellsMergeWithoutFilters(t *testing.T) {
	p := testProject(t)
	ne, err := p.NeighbourhoodEngine()
	if err != nil {
		t.Fatalf("NeighbourhoodEngine failed: %v", err)
	}
	cells := ne.Cells()
	if len(cells) != 1 {
		t.Fatalf("expected a single connected cell with no filters, got %d", len(cells))
	}
	if len(cells[0].Roads) != 4 {
		t.Errorf("the single cell should contain all 4 roads, got %d", len(cells[0].Roads))
	}
}

func TestNeighbourhoodEngineCellsSplitByModalFilter(t *testing.T) {
	p := testProject(t)
	var oneRoad RoadID
	for id := range p.Model.Roads {
		oneRoad = id
		break
	}
	p.Layer.ModalFilters[oneRoad] = ModalFilter{Kind: FilterNoEntry}

	ne, err := p.NeighbourhoodEngine()
	if err != nil {
		t.Fatalf("NeighbourhoodEngine failed: %v", err)
	}
	cells := ne.Cells()
	if len(cells) != 2 {
		t.Fatalf("filtering a road at the only intersection should split the cross into 2 cells, got %d", len(cells))
	}
}

func TestNeighbourhoodEngineExcludesMainRoadsUnlessIncludePerimeter(t *testing.T) {
	model := buildTwoNodeModel(t, "primary")
	ring := []GeoPoint{
		{Lon: -0.001, Lat: -0.001},
		{Lon: 0.003, Lat: -0.001},
		{Lon: 0.003, Lat: 0.001},
		{Lon: -0.001, Lat: 0.001},
		{Lon: -0.001, Lat: -0.001},
	}
	p := &Project{
		Model:          model,
		Layer:          newEditLayer(),
		journal:        newJournal(),
		Boundaries:     map[string]*Boundary{"test": {Name: "test", Ring: ring}},
		ActiveBoundary: "test",
		cfg:            defaultBuildConfig(),
	}

	ne, err := p.NeighbourhoodEngine()
	if err != nil {
		t.Fatalf("NeighbourhoodEngine failed: %v", err)
	}
	for id := range model.Roads {
		if ne.IsInterior(id) {
			t.Errorf("a primary road should not be interior when IncludePerimeter is false")
		}
	}

	p.SetIncludePerimeter(true)
	ne, err = p.NeighbourhoodEngine()
	if err != nil {
		t.Fatalf("NeighbourhoodEngine failed: %v", err)
	}
	for id := range model.Roads {
		if !ne.IsInterior(id) {
			t.Errorf("a primary road wholly inside the boundary should be interior once IncludePerimeter is true")
		}
	}
}

func TestNeighbourhoodEngineExcludesBoundaryCrossingRoad(t *testing.T) {
	p := testProject(t)
	tight := []GeoPoint{
		{Lon: -0.0015, Lat: -0.0015},
		{Lon: 0.0015, Lat: -0.0015},
		{Lon: 0.0015, Lat: 0.0015},
		{Lon: -0.0015, Lat: 0.0015},
		{Lon: -0.0015, Lat: -0.0015},
	}
	p.Boundaries["test"] = &Boundary{Name: "test", Ring: tight}

	ne, err := p.NeighbourhoodEngine()
	if err != nil {
		t.Fatalf("NeighbourhoodEngine failed: %v", err)
	}
	for id, r := range p.Model.Roads {
		if ne.IsInterior(id) {
			t.Errorf("road %d reaches a dead-end node (+-0.002) outside the +-0.0015 boundary and should be excluded as a perimeter road, midpoint=%v", id, r.Midpoint())
		}
	}
}

func TestNeighbourhoodEngineAreaPositive(t *testing.T) {
	p := testProject(t)
	ne, err := p.NeighbourhoodEngine()
	if err != nil {
		t.Fatalf("NeighbourhoodEngine failed: %v", err)
	}
	if ne.AreaKM2() <= 0 {
		t.Errorf("boundary area should be positive, got %f", ne.AreaKM2())
	}
}
