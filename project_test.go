package ltn

import "testing"

func TestAddModalFilterSnapsAndJournals(t *testing.T) {
	p := testProject(t)
	roadID, err := p.AddModalFilter(GeoPoint{Lon: 0.0009, Lat: 0.00001}, FilterNoEntry)
	if err != nil {
		t.Fatalf("AddModalFilter failed: %v", err)
	}
	f, ok := p.FilterOn(roadID)
	if !ok || f.Kind != FilterNoEntry {
		t.Fatalf("expected road %d to carry a no_entry filter, got %v ok=%v", roadID, f, ok)
	}
	if p.UndoLength() != 1 {
		t.Fatalf("expected 1 undo entry, got %d", p.UndoLength())
	}

	if err := p.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if _, ok := p.FilterOn(roadID); ok {
		t.Error("undo should have removed the filter")
	}
}

func TestResetModalFiltersRestoresBaseline(t *testing.T) {
	p := testProject(t)
	var baselineRoad, untouchedRoad RoadID
	i := 0
	for id := range p.Model.Roads {
		if i == 0 {
			baselineRoad = id
		} else if i == 1 {
			untouchedRoad = id
		}
		i++
	}
	baseline := ModalFilter{Kind: FilterNoEntry, PercentAlong: 0.5}
	p.OriginalModalFilters = map[RoadID]ModalFilter{baselineRoad: baseline}
	p.Layer.ModalFilters[baselineRoad] = baseline

	// Planner removes the baseline filter and adds a new one elsewhere.
	if err := p.DeleteModalFilter(baselineRoad); err != nil {
		t.Fatalf("DeleteModalFilter failed: %v", err)
	}
	p.Layer.ModalFilters[untouchedRoad] = ModalFilter{Kind: FilterBusGate, PercentAlong: 0.3}

	if err := p.ResetModalFilters(); err != nil {
		t.Fatalf("ResetModalFilters failed: %v", err)
	}
	if got, ok := p.Layer.ModalFilters[baselineRoad]; !ok || got != baseline {
		t.Errorf("expected baseline filter restored on road %d, got %v ok=%v", baselineRoad, got, ok)
	}
	if _, ok := p.Layer.ModalFilters[untouchedRoad]; ok {
		t.Errorf("expected the planner-added filter on road %d to be reverted away", untouchedRoad)
	}
}

func TestRedoReappliesUndoneFilter(t *testing.T) {
	p := testProject(t)
	roadID, err := p.AddModalFilter(GeoPoint{Lon: 0.0009, Lat: 0.00001}, FilterNoEntry)
	if err != nil {
		t.Fatalf("AddModalFilter failed: %v", err)
	}
	if err := p.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if p.RedoLength() != 1 {
		t.Fatalf("expected 1 redo entry after undo, got %d", p.RedoLength())
	}
	if err := p.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if _, ok := p.FilterOn(roadID); !ok {
		t.Error("redo should have reapplied the filter")
	}
	if p.RedoLength() != 0 {
		t.Errorf("expected redo stack to drain after Redo, got %d", p.RedoLength())
	}
}

func TestAddModalFilterUpgradesToBusGateOnBusRoute(t *testing.T) {
	p := testProject(t)
	var roadID RoadID
	for id, r := range p.Model.Roads {
		r.HasBusRoute = true
		roadID = id
		break
	}
	pt := p.Model.Roads[roadID].Midpoint()
	got, err := p.AddModalFilter(pt, FilterWalkCycleOnly)
	if err != nil {
		t.Fatalf("AddModalFilter failed: %v", err)
	}
	if got != roadID {
		t.Fatalf("expected the snap to land on road %d, got %d", roadID, got)
	}
	f, _ := p.FilterOn(roadID)
	if f.Kind != FilterBusGate {
		t.Errorf("a requested walk_cycle_only filter on a bus route road should resolve to bus_gate, got %v", f.Kind)
	}
}

func TestAddModalFilterRejectsAlreadyFiltered(t *testing.T) {
	p := testProject(t)
	pt := GeoPoint{Lon: 0.0009, Lat: 0.00001}
	if _, err := p.AddModalFilter(pt, FilterNoEntry); err != nil {
		t.Fatalf("first AddModalFilter failed: %v", err)
	}
	if _, err := p.AddModalFilter(pt, FilterNoEntry); err == nil {
		t.Fatal("expected the second filter on the same road to fail")
	} else if !IsKind(err, ErrAlreadyFiltered) {
		t.Errorf("expected ErrAlreadyFiltered, got %v", err)
	}
}

func TestToggleTravelFlowSignedTwoStepCycle(t *testing.T) {
	p := testProject(t)
	var roadID RoadID
	for id, r := range p.Model.Roads {
		r.OnewaySigned = true
		r.OriginalFlow = DirForwards
		roadID = id
		break
	}

	if err := p.ToggleTravelFlow(roadID); err != nil {
		t.Fatalf("ToggleTravelFlow failed: %v", err)
	}
	if got := p.effectiveDirection(roadID); got != DirBackwards {
		t.Errorf("a signed oneway should flip forwards->backwards, got %v", got)
	}

	if err := p.ToggleTravelFlow(roadID); err != nil {
		t.Fatalf("ToggleTravelFlow failed: %v", err)
	}
	if got := p.effectiveDirection(roadID); got != DirForwards {
		t.Errorf("toggling a signed oneway twice should return to the original flow, got %v", got)
	}
	if _, ok := p.Layer.Directions[roadID]; ok {
		t.Error("returning to OriginalFlow should clear the override rather than store a redundant copy")
	}
}

func TestToggleTravelFlowUnsignedThreeStepCycle(t *testing.T) {
	p := testProject(t)
	var roadID RoadID
	for id, r := range p.Model.Roads {
		r.OnewaySigned = false
		r.OriginalFlow = DirBothWays
		roadID = id
		break
	}

	want := []Direction{DirForwards, DirBackwards, DirBothWays}
	for i, w := range want {
		if err := p.ToggleTravelFlow(roadID); err != nil {
			t.Fatalf("ToggleTravelFlow step %d failed: %v", i, err)
		}
		if got := p.effectiveDirection(roadID); got != w {
			t.Errorf("step %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestDiagonalFilterAddRotateDelete(t *testing.T) {
	p := testProject(t)
	var centerIx IntersectionID
	for id, ix := range p.Model.Intersections {
		if len(ix.Roads) == 4 {
			centerIx = id
			break
		}
	}

	if err := p.AddDiagonalFilter(centerIx); err != nil {
		t.Fatalf("AddDiagonalFilter failed: %v", err)
	}
	first := *p.Layer.DiagonalFilters[centerIx]

	if err := p.RotateDiagonalFilter(centerIx); err != nil {
		t.Fatalf("RotateDiagonalFilter failed: %v", err)
	}
	second := p.Layer.DiagonalFilters[centerIx]
	if second.Offset == first.Offset {
		t.Error("rotating should advance to a different partition offset")
	}

	if err := p.DeleteDiagonalFilter(centerIx); err != nil {
		t.Fatalf("DeleteDiagonalFilter failed: %v", err)
	}
	if _, ok := p.Layer.DiagonalFilters[centerIx]; ok {
		t.Error("delete should remove the diagonal filter")
	}
}

func TestSetIncludePerimeterAffectsNeighbourhoodEngine(t *testing.T) {
	p := testProject(t)
	if p.IncludePerimeter {
		t.Fatal("IncludePerimeter should default to false")
	}
	p.SetIncludePerimeter(true)
	if !p.IncludePerimeter {
		t.Error("SetIncludePerimeter(true) should set the flag")
	}
}

func TestRenameAndDeleteNeighbourhoodBoundary(t *testing.T) {
	p := testProject(t)
	if err := p.RenameNeighbourhoodBoundary("test", "renamed"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if p.ActiveBoundary != "renamed" {
		t.Errorf("renaming the active boundary should update ActiveBoundary, got %q", p.ActiveBoundary)
	}
	if _, ok := p.Boundaries["test"]; ok {
		t.Error("old boundary name should no longer be present")
	}

	p.DeleteNeighbourhoodBoundary("renamed")
	if _, ok := p.Boundaries["renamed"]; ok {
		t.Error("boundary should have been deleted")
	}
	if p.ActiveBoundary != "" {
		t.Errorf("deleting the active boundary should clear ActiveBoundary, got %q", p.ActiveBoundary)
	}
}
