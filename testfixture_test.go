package ltn

import "github.com/paulmach/osm"

// buildCrossModel constructs a small synthetic map by hand instead of
// through an OSM byte payload: two residential ways crossing at a shared
// node, giving a 4-arm intersection plus four dead-end intersections.
// Used across router/neighbourhood/impact/mapmodel tests since a real OSM
// extract isn't worth encoding just to exercise graph logic.
//
//	   N
//	   |
//	W--C--E
//	   |
//	   S
func buildCrossModel(t testHelper) (*MapModel, map[RoadID]ModalFilter, map[string]osm.NodeID, map[string]IntersectionID) {
	nodeIDs := map[string]osm.NodeID{
		"C": 1, "N": 2, "S": 3, "E": 4, "W": 5,
	}
	coords := map[string]GeoPoint{
		"C": {Lon: 0, Lat: 0},
		"N": {Lon: 0, Lat: 0.002},
		"S": {Lon: 0, Lat: -0.002},
		"E": {Lon: 0.002, Lat: 0},
		"W": {Lon: -0.002, Lat: 0},
	}

	nodes := make(map[osm.NodeID]*rawNode)
	for label, id := range nodeIDs {
		pt := coords[label]
		nodes[id] = &rawNode{
			ID:   id,
			Node: osm.Node{ID: id, Lat: pt.Lat, Lon: pt.Lon},
		}
	}

	wayNS := &rawWay{
		ID:            1,
		Nodes:         []osm.NodeID{nodeIDs["S"], nodeIDs["C"], nodeIDs["N"]},
		Highway:       "residential",
		OnewayDefault: true,
		MaxSpeedKMH:   -1,
	}
	wayEW := &rawWay{
		ID:            2,
		Nodes:         []osm.NodeID{nodeIDs["W"], nodeIDs["C"], nodeIDs["E"]},
		Highway:       "residential",
		OnewayDefault: true,
		MaxSpeedKMH:   -1,
	}

	data := &osmData{
		Ways:    []*rawWay{wayNS, wayEW},
		Nodes:   nodes,
		BusWays: map[osm.WayID]struct{}{},
	}

	model, filters, err := buildMapModel(data, defaultBuildConfig())
	if err != nil {
		t.Fatalf("buildMapModel failed: %v", err)
	}

	ixByLabel := make(map[string]IntersectionID)
	for id, ix := range model.Intersections {
		for label, nodeID := range nodeIDs {
			if ix.Node == nodeID {
				ixByLabel[label] = id
			}
		}
	}

	return model, filters, nodeIDs, ixByLabel
}

// testHelper is the subset of *testing.T the fixture builder needs, kept
// narrow so it can be reused from Fatalf-happy call sites without an
// import cycle on the testing package's full surface.
type testHelper interface {
	Fatalf(format string, args ...interface{})
}
