package main

import (
	"flag"
	"fmt"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/ltnplanner/ltn"
)

var (
	osmFileName     = flag.String("osm", "", "Filename of *.osm.pbf or *.osm.xml extract")
	boundaryFile    = flag.String("boundary", "", "Filename of a GeoJSON Feature describing the neighbourhood boundary polygon")
	demandFile      = flag.String("demand", "", "Filename of a GeoJSON FeatureCollection of demand: either MultiPolygon zones carrying counts_from/counts_to, or point-to-point LineStrings carrying count (optional)")
	impactDest      = flag.Int("impact-dest", -1, "Intersection id to run impactToOneDestination against (optional)")
	studyAreaName   = flag.String("name", "", "Study area name")
	savefileOut     = flag.String("savefile-out", "", "Where to write the initial savefile (optional)")
	routeSnapperOut = flag.String("route-snapper-out", "", "Where to write the contraction-hierarchy route-snapper blob (optional)")
	mainRoadPenalty = flag.Float64("main-road-penalty", 1, "Main road penalty multiplier used when routing")
	verbose         = flag.Bool("verbose", false, "Print loader/build progress")
	dumpCells       = flag.Bool("dump-cells", false, "Print each cell's road geometries after decomposition")
	geomFormat      = flag.String("geom-format", "wkt", "Geometry format for -dump-cells output: wkt or geojson")
)

func main() {
	flag.Parse()

	if *osmFileName == "" {
		fmt.Println("-osm is required")
		os.Exit(1)
	}

	osmBytes, err := os.ReadFile(*osmFileName)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var boundary *geojson.Feature
	if *boundaryFile != "" {
		raw, err := os.ReadFile(*boundaryFile)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		boundary, err = geojson.UnmarshalFeature(raw)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	var demand *geojson.FeatureCollection
	if *demandFile != "" {
		raw, err := os.ReadFile(*demandFile)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		demand, err = geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	project, err := ltn.NewProject(osmBytes, demand, boundary, *studyAreaName,
		ltn.WithMainRoadPenalty(*mainRoadPenalty),
		ltn.WithVerbose(*verbose),
	)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d roads, %d intersections\n", len(project.Model.Roads), len(project.Model.Intersections))

	if project.ActiveBoundary != "" {
		engine, err := project.NeighbourhoodEngine()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		cells := engine.Cells()
		fmt.Printf("Boundary %q: area=%.3fkm2, border intersections=%d, cells=%d\n",
			project.ActiveBoundary, engine.AreaKM2(), len(engine.BorderIntersections()), len(cells))

		if *dumpCells {
			for _, cell := range cells {
				for _, roadID := range cell.Roads {
					road := project.Model.Roads[roadID]
					var geomStr string
					switch *geomFormat {
					case "geojson":
						geomStr = ltn.PrepareGeoJSONLinestring(road.Geometry)
					default:
						geomStr = ltn.PrepareWKTLinestring(road.Geometry)
					}
					fmt.Printf("cell=%d road=%d %s\n", cell.ID, roadID, geomStr)
				}
			}
		}
	}

	if project.Demand != nil {
		fc, err := project.ImpactAnalyzer().RouteDemand(project.Demand)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Routed demand across %d affected edges\n", len(fc.Features))
	}

	if *impactDest >= 0 {
		fc, highest, err := project.ImpactAnalyzer().ImpactToDestination(ltn.IntersectionID(*impactDest))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Impact to intersection %d: %d grid samples, highest_time_ratio=%.3f\n", *impactDest, len(fc.Features), highest)
	}

	if *routeSnapperOut != "" {
		blob, err := project.RouteSnapper()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := os.WriteFile(*routeSnapperOut, blob, 0644); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Wrote route-snapper blob to %s\n", *routeSnapperOut)
	}

	if *savefileOut != "" {
		fc := project.ToSavefile()
		out, err := fc.MarshalJSON()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := os.WriteFile(*savefileOut, out, 0644); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("Wrote savefile to %s\n", *savefileOut)
	}
}
