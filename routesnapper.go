package ltn

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
)

// ToRouteSnapper implements §4.2.2's decision to hand the frontend a
// contraction-hierarchy-accelerated snapping graph built once over the
// frozen base map (edits never touch it — a deleted modal filter or a
// new diagonal filter doesn't invalidate the cache), generalizing the
// teacher's cmd/osm2ch wiring (ch.Graph / CreateVertex / AddEdge /
// PrepareContractionHierarchies) from a CSV exporter into an in-memory
// binary blob the caller ships to its own map-matching client.
//
// The result is cached on the MapModel the first time it's asked for,
// since PrepareContractionHierarchies is the expensive step and nothing
// about the base graph changes across calls.
func (m *MapModel) ToRouteSnapper() ([]byte, error) {
	if m.routeSnapperCache != nil {
		return m.routeSnapperCache, nil
	}

	ixIDs := make([]IntersectionID, 0, len(m.Intersections))
	for id := range m.Intersections {
		ixIDs = append(ixIDs, id)
	}
	sort.Slice(ixIDs, func(i, j int) bool { return ixIDs[i] < ixIDs[j] })

	graph := ch.Graph{}
	for _, id := range ixIDs {
		if err := graph.CreateVertex(int64(id)); err != nil {
			return nil, errors.Wrapf(err, "create vertex for intersection %d", id)
		}
	}

	roadIDs := make([]RoadID, 0, len(m.Roads))
	for id := range m.Roads {
		roadIDs = append(roadIDs, id)
	}
	sort.Slice(roadIDs, func(i, j int) bool { return roadIDs[i] < roadIDs[j] })

	for _, id := range roadIDs {
		r := m.Roads[id]
		src, dst := int64(r.Src.Intersection), int64(r.Dst.Intersection)
		switch r.OriginalFlow {
		case DirForwards:
			if err := graph.AddEdge(src, dst, r.LengthM); err != nil {
				return nil, errors.Wrapf(err, "add edge for road %d", id)
			}
		case DirBackwards:
			if err := graph.AddEdge(dst, src, r.LengthM); err != nil {
				return nil, errors.Wrapf(err, "add edge for road %d", id)
			}
		default:
			if err := graph.AddEdge(src, dst, r.LengthM); err != nil {
				return nil, errors.Wrapf(err, "add edge for road %d", id)
			}
			if err := graph.AddEdge(dst, src, r.LengthM); err != nil {
				return nil, errors.Wrapf(err, "add edge for road %d", id)
			}
		}
	}

	graph.PrepareContractionHierarchies()

	buf := &bytes.Buffer{}
	writeUint32(buf, uint32(len(graph.Vertices)))
	for i := range graph.Vertices {
		v := graph.Vertices[i]
		ixID := IntersectionID(v.Label)
		ix := m.Intersections[ixID]
		writeInt64(buf, v.Label)
		writeFloat64(buf, ix.Pt.Lon)
		writeFloat64(buf, ix.Pt.Lat)
		writeInt64(buf, int64(v.OrderPos()))
		writeInt64(buf, int64(v.Importance()))
	}

	writeUint32(buf, uint32(len(roadIDs)))
	for _, id := range roadIDs {
		r := m.Roads[id]
		writeInt64(buf, int64(id))
		writeInt64(buf, int64(r.Src.Intersection))
		writeInt64(buf, int64(r.Dst.Intersection))
		writeFloat64(buf, r.LengthM)
		writeByte(buf, byte(r.Class))
		writeByte(buf, boolByte(r.OriginalFlow != DirBothWays))
	}

	m.routeSnapperCache = buf.Bytes()
	return m.routeSnapperCache, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func writeByte(buf *bytes.Buffer, v byte) {
	buf.WriteByte(v)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
