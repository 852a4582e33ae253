package ltn

import (
	"testing"

	"github.com/paulmach/osm"
)

func buildTwoNodeModel(t *testing.T, highway string) *MapModel {
	nodes := map[osm.NodeID]*rawNode{
		1: {ID: 1, Node: osm.Node{ID: 1, Lat: 0, Lon: 0}},
		2: {ID: 2, Node: osm.Node{ID: 2, Lat: 0, Lon: 0.002}},
	}
	way := &rawWay{
		ID:            1,
		Nodes:         []osm.NodeID{1, 2},
		Highway:       highway,
		OnewayDefault: true,
		MaxSpeedKMH:   -1,
	}
	data := &osmData{Ways: []*rawWay{way}, Nodes: nodes, BusWays: map[osm.WayID]struct{}{}}
	model, _, err := buildMapModel(data, defaultBuildConfig())
	if err != nil {
		t.Fatalf("buildMapModel failed: %v", err)
	}
	return model
}

func TestBuildMapModelDefaultsCyclewayToOneway(t *testing.T) {
	model := buildTwoNodeModel(t, "cycleway")
	if len(model.Roads) != 1 {
		t.Fatalf("expected 1 road, got %d", len(model.Roads))
	}
	for _, r := range model.Roads {
		if r.OriginalFlow != DirForwards {
			t.Errorf("a tagless cycleway should default to one-way forwards, got %v", r.OriginalFlow)
		}
		if r.OnewaySigned {
			t.Error("a class-default oneway should not count as explicitly signed")
		}
	}
}

func TestBuildMapModelResidentialDefaultsBothWays(t *testing.T) {
	model := buildTwoNodeModel(t, "residential")
	for _, r := range model.Roads {
		if r.OriginalFlow != DirBothWays {
			t.Errorf("a tagless residential road should default both-ways, got %v", r.OriginalFlow)
		}
	}
}

func TestBuildMapModelLinkRoadIsNotMain(t *testing.T) {
	model := buildTwoNodeModel(t, "motorway_link")
	for _, r := range model.Roads {
		if !r.IsLink {
			t.Error("motorway_link should be classified IsLink")
		}
		if r.IsMain() {
			t.Error("a motorway_link ramp should not count as a main road")
		}
	}

	full := buildTwoNodeModel(t, "motorway")
	for _, r := range full.Roads {
		if r.IsLink {
			t.Error("a plain motorway should not be classified IsLink")
		}
		if !r.IsMain() {
			t.Error("a plain motorway should count as a main road")
		}
	}
}

func TestBuildMapModelCrossIntersection(t *testing.T) {
	model, _, _, ixByLabel := buildCrossModel(t)

	if len(model.Roads) != 4 {
		t.Fatalf("expected 4 roads (2 ways split at the shared node), got %d", len(model.Roads))
	}

	center, ok := ixByLabel["C"]
	if !ok {
		t.Fatal("expected an intersection at the shared node")
	}
	ix := model.Intersections[center]
	if len(ix.Roads) != 4 {
		t.Errorf("center intersection should have 4 incident roads, got %d", len(ix.Roads))
	}

	for _, label := range []string{"N", "S", "E", "W"} {
		id, ok := ixByLabel[label]
		if !ok {
			t.Fatalf("expected an intersection at %s", label)
		}
		if got := len(model.Intersections[id].Roads); got != 1 {
			t.Errorf("dead-end intersection %s should have 1 incident road, got %d", label, got)
		}
	}
}

func TestSnapFindsNearestRoad(t *testing.T) {
	model, _, _, _ := buildCrossModel(t)

	roadID, percent, lateral, err := model.Snap(GeoPoint{Lon: 0.0009, Lat: 0.00001})
	if err != nil {
		t.Fatalf("Snap failed: %v", err)
	}
	if roadID == 0 {
		t.Fatal("Snap should return a road id")
	}
	if percent < 0 || percent > 1 {
		t.Errorf("percent_along should be in [0,1], got %f", percent)
	}
	if lateral < 0 || lateral > model.snapCapMeters {
		t.Errorf("lateral distance should be within the snap cap, got %f", lateral)
	}
}

func TestSnapOutOfBounds(t *testing.T) {
	model, _, _, _ := buildCrossModel(t)

	_, _, _, err := model.Snap(GeoPoint{Lon: 50, Lat: 50})
	if err == nil {
		t.Fatal("Snap should fail for a point far from every road")
	}
	if !IsKind(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
}
