package ltn

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// ToSavefile implements §6's save format: a FeatureCollection whose
// features are the boundary polygons plus one Feature per EditLayer
// override, each carrying enough metadata to round-trip exactly.
// Roads/Intersections are not serialized — a savefile only makes sense
// replayed against the same base map it was produced from.
func (p *Project) ToSavefile() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	meta := &geojson.Feature{Type: "Feature"}
	meta.SetProperty("kind", "metadata")
	meta.SetProperty("study_area_name", p.StudyAreaName)
	meta.SetProperty("active_boundary", p.ActiveBoundary)
	meta.SetProperty("include_perimeter", p.IncludePerimeter)
	fc.AddFeature(meta)

	for _, b := range p.Boundaries {
		coords := make([][]float64, len(b.Ring))
		for i, pt := range b.Ring {
			coords[i] = []float64{pt.Lon, pt.Lat}
		}
		f := geojson.NewPolygonFeature([][][]float64{coords})
		f.SetProperty("kind", "boundary")
		f.SetProperty("name", b.Name)
		var wps []interface{}
		for _, w := range b.Waypoints {
			wps = append(wps, map[string]interface{}{
				"lon": w.Lon, "lat": w.Lat, "snapped": w.Snapped,
			})
		}
		f.SetProperty("waypoints", wps)
		fc.AddFeature(f)
	}

	for roadID, filter := range p.Layer.ModalFilters {
		r := p.Model.Roads[roadID]
		pt := pointAtPercent(r.Geometry, filter.PercentAlong)
		f := geojson.NewPointFeature([]float64{pt.Lon, pt.Lat})
		f.SetProperty("kind", "modal_filter")
		f.SetProperty("road_id", int(roadID))
		f.SetProperty("filter_kind", filter.Kind.String())
		f.SetProperty("percent_along", filter.PercentAlong)
		f.SetProperty("edited", p.OriginalModalFilters[roadID] != filter)
		fc.AddFeature(f)
	}

	for roadID, dir := range p.Layer.Directions {
		r := p.Model.Roads[roadID]
		f := geojson.NewLineStringFeature(lineToCoords(r.Geometry))
		f.SetProperty("kind", "direction_override")
		f.SetProperty("road_id", int(roadID))
		f.SetProperty("direction", dir.String())
		fc.AddFeature(f)
	}

	for ixID, df := range p.Layer.DiagonalFilters {
		ix := p.Model.Intersections[ixID]
		f := geojson.NewPointFeature([]float64{ix.Pt.Lon, ix.Pt.Lat})
		f.SetProperty("kind", "diagonal_filter")
		f.SetProperty("intersection_id", int(ixID))
		f.SetProperty("offset", df.Offset)
		fc.AddFeature(f)
	}

	return fc
}

// LoadSavefile replays a savefile produced by ToSavefile against the
// Project's already-built MapModel, clearing the journal first so the
// restored state becomes the new undo/redo baseline, matching scrape.rs's
// "load then clear history" semantics used when seeding baseline barriers.
func (p *Project) LoadSavefile(fc *geojson.FeatureCollection) error {
	layer := newEditLayer()
	p.Boundaries = make(map[string]*Boundary)

	for _, f := range fc.Features {
		kind, _ := f.Properties["kind"].(string)
		switch kind {
		case "metadata":
			if name, ok := f.Properties["study_area_name"].(string); ok {
				p.StudyAreaName = name
			}
			if active, ok := f.Properties["active_boundary"].(string); ok {
				p.ActiveBoundary = active
			}
			if inc, ok := f.Properties["include_perimeter"].(bool); ok {
				p.IncludePerimeter = inc
			}

		case "boundary":
			b, err := decodeBoundary(f)
			if err != nil {
				return errors.Wrap(err, "decode boundary feature")
			}
			p.Boundaries[b.Name] = b

		case "modal_filter":
			roadID := roadIDFromProperty(f, "road_id")
			kindStr, _ := f.Properties["filter_kind"].(string)
			fk, ok := filterKindFromString(kindStr)
			if !ok {
				return newError(ErrMalformedInput, "unknown filter_kind %q", kindStr)
			}
			percent, _ := f.Properties["percent_along"].(float64)
			if _, ok := p.Model.Roads[roadID]; !ok {
				return newError(ErrMalformedInput, "savefile references unknown road %d; base map drifted", roadID)
			}
			layer.ModalFilters[roadID] = ModalFilter{Kind: fk, PercentAlong: percent}

		case "direction_override":
			roadID := roadIDFromProperty(f, "road_id")
			dirStr, _ := f.Properties["direction"].(string)
			dir, ok := directionFromString(dirStr)
			if !ok {
				return newError(ErrMalformedInput, "unknown direction %q", dirStr)
			}
			if _, ok := p.Model.Roads[roadID]; !ok {
				return newError(ErrMalformedInput, "savefile references unknown road %d; base map drifted", roadID)
			}
			layer.Directions[roadID] = dir

		case "diagonal_filter":
			ixID := IntersectionID(int(propertyFloat(f, "intersection_id")))
			ix, ok := p.Model.Intersections[ixID]
			if !ok {
				return newError(ErrMalformedInput, "savefile references unknown intersection %d; base map drifted", ixID)
			}
			offset := int(propertyFloat(f, "offset"))
			parts := diagonalPartitions(ix.Roads)
			if offset < 0 || offset >= len(parts) {
				return newError(ErrMalformedInput, "diagonal filter offset %d out of range for intersection %d", offset, ixID)
			}
			layer.DiagonalFilters[ixID] = &DiagonalFilter{GroupA: parts[offset][0], GroupB: parts[offset][1], Offset: offset}
		}
	}

	p.Layer = layer
	p.journal = newJournal()
	return nil
}

func roadIDFromProperty(f *geojson.Feature, key string) RoadID {
	return RoadID(int(propertyFloat(f, key)))
}

func propertyFloat(f *geojson.Feature, key string) float64 {
	v, _ := f.Properties[key].(float64)
	return v
}

func lineToCoords(line []GeoPoint) [][]float64 {
	out := make([][]float64, len(line))
	for i, pt := range line {
		out[i] = []float64{pt.Lon, pt.Lat}
	}
	return out
}

// pointAtPercent walks line and returns the point at the given fraction
// of its total length, the inverse of closestPointOnPolyline's
// percentAlong output.
func pointAtPercent(line []GeoPoint, percent float64) GeoPoint {
	if len(line) == 0 {
		return GeoPoint{}
	}
	if len(line) == 1 || percent <= 0 {
		return line[0]
	}
	total := getSphericalLength(line) * 1000
	target := percent * total
	walked := 0.0
	for i := 1; i < len(line); i++ {
		segLen := greatCircleDistance(line[i-1], line[i]) * 1000
		if walked+segLen >= target || i == len(line)-1 {
			if segLen == 0 {
				return line[i]
			}
			t := (target - walked) / segLen
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			return GeoPoint{
				Lon: line[i-1].Lon + t*(line[i].Lon-line[i-1].Lon),
				Lat: line[i-1].Lat + t*(line[i].Lat-line[i-1].Lat),
			}
		}
		walked += segLen
	}
	return line[len(line)-1]
}
