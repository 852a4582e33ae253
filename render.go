package ltn

import (
	geojson "github.com/paulmach/go.geojson"
)

// kmhToMph converts a Road's SpeedKMH/effectiveSpeedKMH into the mph unit
// renderNeighbourhood's interior_road features report (§6).
const kmhToMph = 0.621371

// renderNeighbourhood assembles the Neighbourhood Engine's derived view
// into the documented wire format (§6): the active boundary, every
// interior road carrying its shortcut count, travel flow and cell color,
// each cell's outline, a border_arrow/border_intersection pair at every
// boundary crossing, a crosses overlay showing where rat-running
// concentrates, and the undo/redo/area counters a front end needs for its
// header chrome.
func (p *Project) renderNeighbourhood() (*geojson.FeatureCollection, error) {
	ne, err := p.NeighbourhoodEngine()
	if err != nil {
		return nil, err
	}
	b, err := p.activeBoundary()
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()

	meta := &geojson.Feature{Type: "Feature"}
	meta.SetProperty("kind", "metadata")
	meta.SetProperty("undo_length", p.UndoLength())
	meta.SetProperty("redo_length", p.RedoLength())
	meta.SetProperty("area_km2", ne.AreaKM2())
	fc.AddFeature(meta)

	boundaryFeature := geojson.NewPolygonFeature([][][]float64{lineToCoords(b.Ring)})
	boundaryFeature.SetProperty("kind", "boundary")
	boundaryFeature.SetProperty("name", b.Name)
	fc.AddFeature(boundaryFeature)

	cells := ne.Cells()
	colors := ne.ColorCells(cells)
	shortcuts := ne.ShortcutsDefault()
	counts := ShortcutCounts(shortcuts)
	totalShortcuts := len(shortcuts)

	for _, c := range cells {
		color := colors[c.ID]
		cellLines := make([][][]float64, 0, len(c.Roads))

		for _, roadID := range c.Roads {
			r := p.Model.Roads[roadID]
			cellLines = append(cellLines, lineToCoords(r.Geometry))

			rf := geojson.NewLineStringFeature(lineToCoords(r.Geometry))
			rf.SetProperty("kind", "interior_road")
			rf.SetProperty("road", int(roadID))
			rf.SetProperty("shortcuts", counts[roadID])
			dir := p.effectiveDirection(roadID)
			flowEdited := dir != r.OriginalFlow
			rf.SetProperty("travel_flow", dir.String())
			rf.SetProperty("travel_flow_edited", flowEdited)
			_, filtered := p.effectiveFilter(roadID)
			rf.SetProperty("edited", filtered || flowEdited)
			if color.Disconnected {
				rf.SetProperty("cell_color", "disconnected")
			} else {
				rf.SetProperty("cell_color", color.Color)
			}
			rf.SetProperty("speed_mph", r.effectiveSpeedKMH()*kmhToMph)
			fc.AddFeature(rf)

			if totalShortcuts > 0 && counts[roadID] > 0 {
				cf := geojson.NewLineStringFeature(lineToCoords(r.Geometry))
				cf.SetProperty("kind", "crosses")
				cf.SetProperty("road", int(roadID))
				cf.SetProperty("pct", float64(counts[roadID])/float64(totalShortcuts)*100)
				fc.AddFeature(cf)
			}
		}

		cellFeature := geojson.NewMultiLineStringFeature(cellLines...)
		cellFeature.SetProperty("kind", "cell")
		cellFeature.SetProperty("cell_id", c.ID)
		if color.Disconnected {
			cellFeature.SetProperty("cell_color", "disconnected")
		} else {
			cellFeature.SetProperty("cell_color", color.Color)
		}
		fc.AddFeature(cellFeature)
	}

	for _, ixID := range ne.BorderIntersections() {
		ix := p.Model.Intersections[ixID]

		bf := geojson.NewPointFeature([]float64{ix.Pt.Lon, ix.Pt.Lat})
		bf.SetProperty("kind", "border_intersection")
		bf.SetProperty("intersection_id", int(ixID))
		fc.AddFeature(bf)

		if bearing, ok := ne.outflowBearing(ixID); ok {
			af := geojson.NewPolygonFeature([][][]float64{arrowPolygon(ix.Pt, bearing)})
			af.SetProperty("kind", "border_arrow")
			af.SetProperty("intersection_id", int(ixID))
			fc.AddFeature(af)
		}
	}

	return fc, nil
}

// renderModalFilters assembles every active modal filter into the
// documented wire format (§6): a Point feature per filter carrying its
// kind and the road it sits on.
func (p *Project) renderModalFilters() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for roadID, filter := range p.Layer.ModalFilters {
		r, ok := p.Model.Roads[roadID]
		if !ok {
			continue
		}
		pt := pointAtPercent(r.Geometry, filter.PercentAlong)
		f := geojson.NewPointFeature([]float64{pt.Lon, pt.Lat})
		f.SetProperty("kind", filter.Kind.String())
		f.SetProperty("road_id", int(roadID))
		fc.AddFeature(f)
	}
	return fc
}
