package ltn

import (
	"fmt"

	"github.com/paulmach/osm"
)

// RoadID stably identifies a Road within a frozen MapModel (§3).
type RoadID int

func (id RoadID) String() string { return fmt.Sprintf("road#%d", id) }

// Direction is a Road's effective travel flow, either as built from OSM
// tags or as overridden by an EditLayer toggleTravelFlow edit (§4.5).
type Direction uint8

const (
	DirForwards = Direction(iota + 1)
	DirBackwards
	DirBothWays
)

func (d Direction) String() string {
	return [...]string{"forwards", "backwards", "both"}[d-1]
}

func directionFromString(s string) (Direction, bool) {
	switch s {
	case "forwards":
		return DirForwards, true
	case "backwards":
		return DirBackwards, true
	case "both":
		return DirBothWays, true
	}
	return 0, false
}

// Road is the Map Model Builder's frozen Road entity (§3): an ordered
// polyline between two Intersections, classification, speed, original
// travel flow and preserved tags. Immutable post-build.
type Road struct {
	ID RoadID

	WayID   osm.WayID
	Node1   osm.NodeID
	Node2   osm.NodeID
	Tags    Tags
	Highway string

	Geometry []GeoPoint
	NodeIDs  []osm.NodeID
	LengthM  float64

	Src RoadEndpoint
	Dst RoadEndpoint

	Class    LinkType
	// IsLink marks a Road built from a "_link" highway variant (a ramp or
	// slip road connecting to Class, e.g. motorway_link), not a true
	// instance of Class itself.
	IsLink   bool
	SpeedKMH float64

	// OriginalFlow is the travel flow as tagged in OSM; OnewaySigned
	// records whether the source data asserted a direction explicitly
	// (oneway=yes/-1), which governs toggleTravelFlow's cycle length
	// (§4.5: two-step cycle when signed, three-step otherwise).
	OriginalFlow Direction
	OnewaySigned bool

	HasBusRoute bool
}

// RoadEndpoint names one end of a Road's polyline by Intersection id.
type RoadEndpoint struct {
	Intersection IntersectionID
}

// IsMain reports whether this Road counts as a main road for interior
// classification and the routing penalty (§4.3, §4.4). A ramp/slip road
// onto a main road (IsLink) is excluded even when its Class is a main
// LinkType: it's a short connector, not the through-route the penalty and
// "keep through-traffic on main roads" guidance are aimed at.
func (r *Road) IsMain() bool {
	return IsMainRoad(r.Class) && !r.IsLink
}

// effectiveSpeedKMH resolves SpeedKMH against the classification-keyed
// fallback table, then a flat 30 km/h, for roads with no tagged maxspeed.
func (r *Road) effectiveSpeedKMH() float64 {
	speed := r.SpeedKMH
	if speed <= 0 {
		speed = defaultSpeedByLinkType[r.Class]
		if speed <= 0 {
			speed = 30
		}
	}
	return speed
}

// CostSeconds returns the travel time of the whole Road at its signed
// speed, generalizing map_model.rs Road::cost_seconds (length / (speed_mph
// * 0.44704)); SPEC_FULL.md works in km/h throughout so the conversion
// factor is km/h -> m/s (/3.6) instead.
func (r *Road) CostSeconds() float64 {
	mps := r.effectiveSpeedKMH() / 3.6
	if mps <= 0 {
		return 0
	}
	return r.LengthM / mps
}

// AllowsAgent reports whether agent can use this road at all, independent
// of any modal filter, by reading the same access tags the teacher's
// findIncludedAgent/findExcludedAgent checked: an explicit include tag
// (motor_vehicle/motorcar for auto, bicycle for bike, foot for walk) wins
// outright, otherwise an exclude tag (highway class, access, service, or
// the mode-specific tag) rules the road out. With neither present the road
// is assumed open to the agent.
func (r *Road) AllowsAgent(agent AgentType) bool {
	if _, ok := agentTypesAll[agent]; !ok {
		return false
	}
	if include, ok := agentsAccessIncludeValues[agent]; ok {
		switch agent {
		case AGENT_AUTO:
			if _, ok := include[ACCESS_MOTOR_VEHICLE][r.Tags.Find("motor_vehicle")]; ok {
				return true
			}
			if _, ok := include[ACCESS_MOTORCAR][r.Tags.Find("motorcar")]; ok {
				return true
			}
		case AGENT_BIKE:
			if _, ok := include[ACCESS_BICYCLE][r.Tags.Find("bicycle")]; ok {
				return true
			}
		case AGENT_WALK:
			if _, ok := include[ACCESS_FOOT][r.Tags.Find("foot")]; ok {
				return true
			}
		}
	}

	exclude, ok := agentsAccessExcludeValues[agent]
	if !ok {
		return true
	}
	if _, ok := exclude[ACCESS_HIGHWAY][r.Highway]; ok {
		return false
	}
	if _, ok := exclude[ACCESS_OSM_ACCESS][r.Tags.Find("access")]; ok {
		return false
	}
	if _, ok := exclude[ACCESS_SERVICE][r.Tags.Find("service")]; ok {
		return false
	}
	switch agent {
	case AGENT_AUTO:
		if _, ok := exclude[ACCESS_MOTOR_VEHICLE][r.Tags.Find("motor_vehicle")]; ok {
			return false
		}
		if _, ok := exclude[ACCESS_MOTORCAR][r.Tags.Find("motorcar")]; ok {
			return false
		}
	case AGENT_BIKE:
		if _, ok := exclude[ACCESS_BICYCLE][r.Tags.Find("bicycle")]; ok {
			return false
		}
	case AGENT_WALK:
		if _, ok := exclude[ACCESS_FOOT][r.Tags.Find("foot")]; ok {
			return false
		}
	}
	return true
}

// Midpoint returns the point used by interior classification (§4.4 step 1)
// and cell-polygon rendering: the point at half the Road's polyline length,
// not the centroid of its vertices.
func (r *Road) Midpoint() GeoPoint {
	_, mid := findMiddlePoint(r.Geometry)
	return mid
}
