package ltn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
)

// OSMScanner is the subset of osmpbf.Scanner/osmxml.Scanner the loader
// drives; generalizes the teacher's identically named interface so either
// backing format can be scanned through the same multi-pass pipeline.
type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// rawNode is the Loader's Node{id, lat, lon, tags} record (§4.1), enriched
// with the traffic-signal/barrier flags the Map Model Builder needs for
// split-point detection and baseline filter scraping (§4.2 step 2, §3.1).
type rawNode struct {
	ID      osm.NodeID
	Node    osm.Node
	Signal  bool
	Barrier string
}

// rawWay is the Loader's Way{id, node_refs[], tags} record.
type rawWay struct {
	ID            osm.WayID
	Nodes         []osm.NodeID
	Tags          Tags
	Highway       string
	Oneway        bool
	OnewayDefault bool
	IsReversed    bool
	MaxSpeedKMH   float64
	HasBusRoute   bool
}

// turnRestriction is a Loader-level (from-way, via-node, to-way) triple
// decoded from a `type=restriction` relation (§4.2 step 6).
type turnRestriction struct {
	FromWay osm.WayID
	ViaNode osm.NodeID
	ToWay   osm.WayID
	Kind    string // e.g. "restriction", "no_left_turn", "only_straight_on"
}

// osmData is the Loader's output: typed records plus the two supplemental
// passes (turn restrictions, barrier nodes) §4.1/§3.1 require.
type osmData struct {
	Ways         []*rawWay
	Nodes        map[osm.NodeID]*rawNode
	Restrictions []turnRestriction
	BusWays      map[osm.WayID]struct{}
}

func newScanner(ctx context.Context, r io.ReadSeeker, looksXML bool) OSMScanner {
	if looksXML {
		return osmxml.New(ctx, r)
	}
	return osmpbf.New(ctx, r, 4)
}

func sniffXML(data []byte) bool {
	head := bytes.TrimSpace(data)
	if len(head) > 256 {
		head = head[:256]
	}
	s := strings.ToLower(string(head))
	return strings.HasPrefix(s, "<?xml") || strings.HasPrefix(s, "<osm")
}

// loadOSM runs the three sequential passes (ways, nodes, relations) the
// teacher's readOSM ran over a file, generalized to operate on an in-memory
// byte slice via bytes.Reader + Seek, since the Loader's contract (§4.1) is
// "bytes of an OSM PBF or XML extract", not a filename.
func loadOSM(data []byte, verbose bool) (*osmData, error) {
	if len(data) == 0 {
		return nil, newError(ErrMalformedInput, "empty OSM payload")
	}
	isXML := sniffXML(data)
	r := bytes.NewReader(data)
	ctx := context.Background()

	if verbose {
		fmt.Printf("Scanning ways...")
	}
	st := time.Now()
	ways := []*rawWay{}
	busWays := make(map[osm.WayID]struct{})
	nodesSeen := make(map[osm.NodeID]struct{})
	{
		scanner := newScanner(ctx, r, isXML)
		for scanner.Scan() {
			obj := scanner.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			rw := decodeWay(way, verbose)
			if rw == nil {
				continue
			}
			for _, n := range way.Nodes {
				nodesSeen[n.ID] = struct{}{}
			}
			ways = append(ways, rw)
		}
		err := scanner.Err()
		scanner.Close()
		if err != nil {
			return nil, errors.Wrap(err, "scanner error on ways")
		}
	}
	if verbose {
		fmt.Printf("done in %v, ways=%d\n", time.Since(st), len(ways))
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "can't rewind after ways pass")
	}

	if verbose {
		fmt.Printf("Scanning nodes...")
	}
	st = time.Now()
	nodes := make(map[osm.NodeID]*rawNode, len(nodesSeen))
	{
		scanner := newScanner(ctx, r, isXML)
		for scanner.Scan() {
			obj := scanner.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			if _, ok := nodesSeen[node.ID]; !ok {
				continue
			}
			tagMap := node.Tags
			signal := Tags(tagMap).Is("highway", "traffic_signals")
			barrier := Tags(tagMap).Find("barrier")
			nodes[node.ID] = &rawNode{
				ID:      node.ID,
				Node:    *node,
				Signal:  signal,
				Barrier: barrier,
			}
		}
		err := scanner.Err()
		scanner.Close()
		if err != nil {
			return nil, errors.Wrap(err, "scanner error on nodes")
		}
	}
	if verbose {
		fmt.Printf("done in %v, nodes=%d\n", time.Since(st), len(nodes))
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "can't rewind after nodes pass")
	}

	if verbose {
		fmt.Printf("Scanning relations...")
	}
	st = time.Now()
	var restrictions []turnRestriction
	skipped := 0
	{
		scanner := newScanner(ctx, r, isXML)
		for scanner.Scan() {
			obj := scanner.Object()
			if obj.ObjectID().Type() != "relation" {
				continue
			}
			relation := obj.(*osm.Relation)
			tagMap := relation.TagMap()
			if routeTag, ok := tagMap["route"]; ok && routeTag == "bus" {
				for _, m := range relation.Members {
					if m.Type == osm.TypeWay {
						busWays[osm.WayID(m.Ref)] = struct{}{}
					}
				}
				continue
			}
			kind, ok := tagMap["restriction"]
			if !ok {
				continue
			}
			tr, ok := decodeRestriction(relation, kind)
			if !ok {
				skipped++
				continue
			}
			restrictions = append(restrictions, tr)
		}
		err := scanner.Err()
		scanner.Close()
		if err != nil {
			return nil, errors.Wrap(err, "scanner error on relations")
		}
	}
	if verbose {
		fmt.Printf("done in %v, restrictions=%d, skipped=%d\n", time.Since(st), len(restrictions), skipped)
	}

	for _, way := range ways {
		if _, ok := busWays[way.ID]; ok {
			way.HasBusRoute = true
		}
	}

	return &osmData{Ways: ways, Nodes: nodes, Restrictions: restrictions, BusWays: busWays}, nil
}

// decodeWay mirrors the teacher's oneway/junction parsing in osm_raw.go's
// readOSM: yes/1, no/0, -1 (reversed), reversible/alternating (time
// conditioned, left as non-oneway), unknown values warned and treated as
// two-way. junction=roundabout defaults to oneway when the tag is absent.
func decodeWay(way *osm.Way, verbose bool) *rawWay {
	tags := Tags(way.Tags)
	if !tags.Has("highway") {
		return nil
	}
	highway := tags.Find("highway")
	if _, negligible := negligibleHighwayTags[highway]; negligible {
		return nil
	}
	if tags.IsAny("area", "yes") {
		return nil
	}
	if len(way.Nodes) < 2 {
		return nil
	}

	oneway, onewayDefault, reversed := false, false, false
	onewayText := tags.Find("oneway")
	switch {
	case onewayText == "yes" || onewayText == "1":
		oneway = true
	case onewayText == "no" || onewayText == "0":
		oneway = false
	case onewayText == "-1":
		oneway, reversed = true, true
	case onewayText != "":
		if _, ok := onewayReversible[onewayText]; ok {
			oneway = false
		} else if verbose {
			fmt.Printf("[WARNING]: unhandled oneway value %q on way %d\n", onewayText, way.ID)
		}
	default:
		if _, ok := junctionTypes[tags.Find("junction")]; ok {
			oneway = true
		} else {
			onewayDefault = true
		}
	}

	nodeIDs := make([]osm.NodeID, len(way.Nodes))
	for i, n := range way.Nodes {
		nodeIDs[i] = n.ID
	}

	return &rawWay{
		ID:            way.ID,
		Nodes:         nodeIDs,
		Tags:          tags,
		Highway:       highway,
		Oneway:        oneway,
		OnewayDefault: onewayDefault,
		IsReversed:    reversed,
		MaxSpeedKMH:   parseMaxSpeedKMH(tags),
	}
}

func parseMaxSpeedKMH(tags Tags) float64 {
	raw := tags.Find("maxspeed")
	if raw == "" {
		return -1
	}
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "mph") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "mph")), 64)
		if err != nil {
			return -1
		}
		return v * 1.609344
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "km/h")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return -1
	}
	return v
}

// decodeRestriction reads the (from, via, to) triple out of a restriction
// relation's members, skipping (with a warning upstream, never fatal) any
// relation that doesn't have exactly 3 members in the expected roles —
// mirrors osm_raw.go's readOSM relation pass.
func decodeRestriction(relation *osm.Relation, kind string) (turnRestriction, bool) {
	if len(relation.Members) != 3 {
		return turnRestriction{}, false
	}
	var from, to osm.WayID
	var via osm.NodeID
	var haveFrom, haveTo, haveVia bool
	for _, m := range relation.Members {
		switch m.Role {
		case "from":
			if m.Type != osm.TypeWay {
				return turnRestriction{}, false
			}
			from, haveFrom = osm.WayID(m.Ref), true
		case "to":
			if m.Type != osm.TypeWay {
				return turnRestriction{}, false
			}
			to, haveTo = osm.WayID(m.Ref), true
		case "via":
			if m.Type != osm.TypeNode {
				return turnRestriction{}, false
			}
			via, haveVia = osm.NodeID(m.Ref), true
		default:
			return turnRestriction{}, false
		}
	}
	if !haveFrom || !haveTo || !haveVia {
		return turnRestriction{}, false
	}
	return turnRestriction{FromWay: from, ViaNode: via, ToWay: to, Kind: kind}, true
}
