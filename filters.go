package ltn

import "sort"

// FilterKind is the kind of a modal filter (§3, GLOSSARY): a point barrier
// that blocks some or all motor traffic while permitting walking/cycling.
type FilterKind uint8

const (
	FilterWalkCycleOnly = FilterKind(iota + 1)
	FilterNoEntry
	FilterBusGate
	FilterSchoolStreet
)

func (k FilterKind) String() string {
	return [...]string{"walk_cycle_only", "no_entry", "bus_gate", "school_street"}[k-1]
}

func filterKindFromString(s string) (FilterKind, bool) {
	switch s {
	case "walk_cycle_only":
		return FilterWalkCycleOnly, true
	case "no_entry":
		return FilterNoEntry, true
	case "bus_gate":
		return FilterBusGate, true
	case "school_street":
		return FilterSchoolStreet, true
	}
	return 0, false
}

// ModalFilter is the EditLayer's per-road override: a filter kind placed at
// a position along the Road's polyline (§3, §4.5 addModalFilter).
type ModalFilter struct {
	Kind         FilterKind
	PercentAlong float64
}

// resolveFilterKind forces BusGate on any road carrying a scraped bus
// route, because that's the only filter kind that still lets buses
// through (§3.1 SUPPLEMENT, grounded on map_model.rs's bus-route check in
// add_modal_filter/add_many_modal_filters).
func resolveFilterKind(requested FilterKind, hasBusRoute bool) FilterKind {
	if hasBusRoute {
		return FilterBusGate
	}
	return requested
}

// DiagonalFilter is the EditLayer's per-intersection override (§3): a
// partition of the intersection's clockwise-ordered incident roads into
// two non-empty groups, forbidding any transition between the groups.
type DiagonalFilter struct {
	GroupA []RoadID
	GroupB []RoadID
	// Offset indexes into diagonalPartitions(roads) so rotateDiagonalFilter
	// can advance deterministically and wrap around (§9).
	Offset int
}

// allowsMovement reports whether from->to is permitted under this diagonal
// filter: both roads must fall in the same group.
func (f *DiagonalFilter) allowsMovement(from, to RoadID) bool {
	return sameGroup(f.GroupA, from) == sameGroup(f.GroupA, to)
}

func sameGroup(group []RoadID, id RoadID) bool {
	for _, r := range group {
		if r == id {
			return true
		}
	}
	return false
}

// diagonalPartitions enumerates every non-trivial bipartition of a
// clockwise-ordered incident-road list, in lexicographic order of the
// group-A bitmask, per §9's "canonical enumeration is the lexicographically
// sorted list of bipartitions ... into two non-empty groups". Complementary
// partitions ({a},{b}) and ({b},{a}) are the same partition and appear
// once, keyed by the bitmask that excludes the first road (so the first
// road is always in GroupA, halving the enumeration).
func diagonalPartitions(roads []RoadID) [][2][]RoadID {
	n := len(roads)
	if n < 3 {
		return nil
	}
	var masks []int
	for mask := 1; mask < (1 << (n - 1)); mask++ {
		masks = append(masks, mask)
	}
	sort.Ints(masks)

	out := make([][2][]RoadID, 0, len(masks))
	for _, mask := range masks {
		var a, b []RoadID
		a = append(a, roads[0])
		for i := 1; i < n; i++ {
			if mask&(1<<(i-1)) != 0 {
				a = append(a, roads[i])
			} else {
				b = append(b, roads[i])
			}
		}
		if len(b) == 0 {
			continue
		}
		out = append(out, [2][]RoadID{a, b})
	}
	return out
}

// newDiagonalFilter builds the canonical partition at offset 0: roads are
// paired by opposite clockwise position, the simplest non-trivial split,
// matching map_model.rs DiagonalFilter::new's "pair opposite arms" intent
// generalized beyond its hardcoded 4-way case.
func newDiagonalFilter(roads []RoadID) (*DiagonalFilter, error) {
	if len(roads) < 3 {
		return nil, newError(ErrInvalidIntersection, "diagonal filter requires >= 3 incident roads, got %d", len(roads))
	}
	parts := diagonalPartitions(roads)
	if len(parts) == 0 {
		return nil, newError(ErrInvalidIntersection, "no non-trivial bipartition available")
	}
	return &DiagonalFilter{GroupA: parts[0][0], GroupB: parts[0][1], Offset: 0}, nil
}

// rotated returns the next partition in the fixed enumeration, wrapping
// around to 0 (§4.5 rotateDiagonalFilter, §8 "rotation cycles through
// exactly the distinct partitions and returns to origin").
func (f *DiagonalFilter) rotated(roads []RoadID) (*DiagonalFilter, error) {
	parts := diagonalPartitions(roads)
	if len(parts) == 0 {
		return nil, newError(ErrInvalidIntersection, "no non-trivial bipartition available")
	}
	next := (f.Offset + 1) % len(parts)
	return &DiagonalFilter{GroupA: parts[next][0], GroupB: parts[next][1], Offset: next}, nil
}
