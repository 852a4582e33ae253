package ltn

import (
	"testing"

	"github.com/paulmach/osm"
)

func wayWithTags(id osm.WayID, tags map[string]string, nodeIDs ...osm.NodeID) *osm.Way {
	w := &osm.Way{ID: id}
	for k, v := range tags {
		w.Tags = append(w.Tags, osm.Tag{Key: k, Value: v})
	}
	for _, n := range nodeIDs {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: n})
	}
	return w
}

func TestDecodeWayOneway(t *testing.T) {
	cases := []struct {
		name          string
		tags          map[string]string
		wantOneway    bool
		wantDefault   bool
		wantReversed  bool
	}{
		{"signed yes", map[string]string{"highway": "residential", "oneway": "yes"}, true, false, false},
		{"signed reversed", map[string]string{"highway": "residential", "oneway": "-1"}, true, false, true},
		{"signed no", map[string]string{"highway": "residential", "oneway": "no"}, false, false, false},
		{"roundabout implies oneway", map[string]string{"highway": "residential", "junction": "roundabout"}, true, false, false},
		{"unset is default two-way", map[string]string{"highway": "residential"}, false, true, false},
		{"reversible treated as two-way", map[string]string{"highway": "residential", "oneway": "reversible"}, false, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			way := wayWithTags(1, c.tags, 1, 2)
			rw := decodeWay(way, false)
			if rw == nil {
				t.Fatal("decodeWay returned nil for a valid highway way")
			}
			if rw.Oneway != c.wantOneway {
				t.Errorf("Oneway should be %v, got %v", c.wantOneway, rw.Oneway)
			}
			if rw.OnewayDefault != c.wantDefault {
				t.Errorf("OnewayDefault should be %v, got %v", c.wantDefault, rw.OnewayDefault)
			}
			if rw.IsReversed != c.wantReversed {
				t.Errorf("IsReversed should be %v, got %v", c.wantReversed, rw.IsReversed)
			}
		})
	}
}

func TestDecodeWaySkipsNonHighway(t *testing.T) {
	way := wayWithTags(1, map[string]string{"building": "yes"}, 1, 2)
	if rw := decodeWay(way, false); rw != nil {
		t.Errorf("decodeWay should skip ways without a highway tag, got %+v", rw)
	}
}

func TestDecodeWaySkipsAreas(t *testing.T) {
	way := wayWithTags(1, map[string]string{"highway": "pedestrian", "area": "yes"}, 1, 2)
	if rw := decodeWay(way, false); rw != nil {
		t.Errorf("decodeWay should skip area=yes ways, got %+v", rw)
	}
}

func TestParseMaxSpeedKMH(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"50", 50},
		{"30 mph", 48.2803},
		{"", -1},
		{"not a number", -1},
	}
	for _, c := range cases {
		tags := Tags(osm.Tags{{Key: "maxspeed", Value: c.raw}})
		got := parseMaxSpeedKMH(tags)
		if c.raw == "" {
			if got != -1 {
				t.Errorf("empty maxspeed should return -1, got %f", got)
			}
			continue
		}
		if diff := got - c.want; diff > 0.01 || diff < -0.01 {
			t.Errorf("parseMaxSpeedKMH(%q) = %f, want ~%f", c.raw, got, c.want)
		}
	}
}

func TestDecodeRestriction(t *testing.T) {
	rel := &osm.Relation{
		ID: 1,
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 10, Role: "from"},
			{Type: osm.TypeNode, Ref: 99, Role: "via"},
			{Type: osm.TypeWay, Role: "to", Ref: 20},
		},
	}
	tr, ok := decodeRestriction(rel, "no_left_turn")
	if !ok {
		t.Fatal("decodeRestriction should accept a well-formed 3-member relation")
	}
	if tr.FromWay != 10 || tr.ToWay != 20 || tr.ViaNode != 99 || tr.Kind != "no_left_turn" {
		t.Errorf("unexpected restriction: %+v", tr)
	}
}

func TestDecodeRestrictionSkipsMalformed(t *testing.T) {
	rel := &osm.Relation{
		ID: 2,
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 10, Role: "from"},
			{Type: osm.TypeNode, Ref: 99, Role: "via"},
		},
	}
	if _, ok := decodeRestriction(rel, "no_left_turn"); ok {
		t.Error("decodeRestriction should reject a relation missing a role")
	}
}

func TestSniffXML(t *testing.T) {
	if !sniffXML([]byte("<?xml version=\"1.0\"?><osm></osm>")) {
		t.Error("sniffXML should detect an XML prolog")
	}
	if sniffXML([]byte{0x1f, 0x8b, 0x00}) {
		t.Error("sniffXML should not misdetect binary PBF data as XML")
	}
}
