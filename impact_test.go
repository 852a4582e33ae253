package ltn

import (
	"math"
	"testing"
)

func TestImpactAnalyzerNoEditsMeansNoChange(t *testing.T) {
	model, filters, _, ixByLabel := buildCrossModel(t)
	layer := newEditLayer()
	for id, f := range filters {
		layer.ModalFilters[id] = f
	}

	p := &Project{Model: model, Layer: layer, cfg: defaultBuildConfig()}
	ia := p.ImpactAnalyzer()

	trips := []DemandTrip{{Origin: ixByLabel["N"], Destination: ixByLabel["S"], Count: 10}}
	impacts, err := ia.Analyze(trips)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for _, e := range impacts {
		if e.TripsBefore != e.TripsAfter {
			t.Errorf("road %d: before=%f after=%f should match with no edits", e.Road, e.TripsBefore, e.TripsAfter)
		}
		if e.HighestTimeRatio > 1.001 {
			t.Errorf("road %d: time ratio should be ~1 with no edits, got %f", e.Road, e.HighestTimeRatio)
		}
	}
}

func TestImpactAnalyzerFilterMakesTripUnroutable(t *testing.T) {
	model, _, _, ixByLabel := buildCrossModel(t)
	before := newEditLayer()
	rtBefore := newRouter(model, before, 1)
	baseline, err := rtBefore.Route(ixByLabel["N"], ixByLabel["S"])
	if err != nil {
		t.Fatalf("baseline route failed: %v", err)
	}

	after := newEditLayer()
	after.ModalFilters[baseline.Steps[0].Road] = ModalFilter{Kind: FilterNoEntry}

	p := &Project{Model: model, Layer: after, cfg: defaultBuildConfig()}
	ia := p.ImpactAnalyzer()

	trips := []DemandTrip{{Origin: ixByLabel["N"], Destination: ixByLabel["S"], Count: 5}}
	impacts, err := ia.Analyze(trips)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	e := impacts[baseline.Steps[0].Road]
	if e == nil || !math.IsInf(e.HighestTimeRatio, 1) {
		t.Errorf("expected +Inf time ratio once the only path is filtered, got %+v", e)
	}
	if e.TripsAfter != 0 {
		t.Errorf("a filtered road should carry no after-edit flow, got %f", e.TripsAfter)
	}
}

func TestImpactToDestinationGridSamplesOrigins(t *testing.T) {
	model, _, _, ixByLabel := buildCrossModel(t)
	layer := newEditLayer()
	p := &Project{Model: model, Layer: layer, cfg: defaultBuildConfig()}
	ia := p.ImpactAnalyzer()

	fc, highest, err := ia.ImpactToDestination(ixByLabel["S"])
	if err != nil {
		t.Fatalf("ImpactToDestination failed: %v", err)
	}
	if len(fc.Features) == 0 {
		t.Fatalf("expected at least one grid-sampled origin feature")
	}
	for _, f := range fc.Features {
		if f.Properties["kind"] != "impact_to_destination" {
			t.Errorf("unexpected feature kind %v", f.Properties["kind"])
		}
		if _, ok := f.Properties["pt1_x"].(float64); !ok {
			t.Errorf("feature missing pt1_x")
		}
	}
	if highest > 1.001 {
		t.Errorf("time ratio should be ~1 with no edits, got %f", highest)
	}
}

func TestImpactToDestinationReportsInfinityWhenOnlyPathFiltered(t *testing.T) {
	model, _, _, ixByLabel := buildCrossModel(t)
	before := newEditLayer()
	rtBefore := newRouter(model, before, 1)
	baseline, err := rtBefore.Route(ixByLabel["N"], ixByLabel["S"])
	if err != nil {
		t.Fatalf("baseline route failed: %v", err)
	}

	after := newEditLayer()
	after.ModalFilters[baseline.Steps[0].Road] = ModalFilter{Kind: FilterNoEntry}

	p := &Project{Model: model, Layer: after, cfg: defaultBuildConfig()}
	ia := p.ImpactAnalyzer()

	_, highest, err := ia.ImpactToDestination(ixByLabel["S"])
	if err != nil {
		t.Fatalf("ImpactToDestination failed: %v", err)
	}
	if !math.IsInf(highest, 1) {
		t.Errorf("expected +Inf highest_time_ratio once the N->S path is filtered, got %f", highest)
	}
}

func TestRouteDemandReturnsPerEdgeFeatures(t *testing.T) {
	model, filters, _, ixByLabel := buildCrossModel(t)
	layer := newEditLayer()
	for id, f := range filters {
		layer.ModalFilters[id] = f
	}
	p := &Project{Model: model, Layer: layer, cfg: defaultBuildConfig()}
	ia := p.ImpactAnalyzer()

	demand := &DemandModel{Trips: []DemandTrip{{Origin: ixByLabel["N"], Destination: ixByLabel["S"], Count: 10}}}
	fc, err := ia.RouteDemand(demand)
	if err != nil {
		t.Fatalf("RouteDemand failed: %v", err)
	}
	if len(fc.Features) == 0 {
		t.Fatalf("expected at least one edge_impact feature")
	}
	for _, f := range fc.Features {
		if f.Properties["kind"] != "edge_impact" {
			t.Errorf("unexpected feature kind %v", f.Properties["kind"])
		}
		if f.Properties["before"].(float64) != 10 {
			t.Errorf("expected before=10 on every edge of the N->S route, got %v", f.Properties["before"])
		}
	}
}
