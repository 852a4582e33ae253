package ltn

import "testing"

func TestDiagonalPartitionsFourWay(t *testing.T) {
	roads := []RoadID{1, 2, 3, 4}
	parts := diagonalPartitions(roads)
	// n=4 -> masks 1..(1<<3 - 1) = 1..7, minus the one that leaves GroupB
	// empty (mask 7), giving 6 non-trivial bipartitions.
	if len(parts) != 6 {
		t.Fatalf("expected 6 non-trivial bipartitions of 4 roads, got %d", len(parts))
	}
	for _, p := range parts {
		if len(p[0]) == 0 || len(p[1]) == 0 {
			t.Errorf("bipartition must have two non-empty groups, got %v / %v", p[0], p[1])
		}
	}
}

func TestDiagonalPartitionsTooFewRoads(t *testing.T) {
	if parts := diagonalPartitions([]RoadID{1, 2}); parts != nil {
		t.Errorf("expected no partitions for fewer than 3 roads, got %v", parts)
	}
}

func TestNewDiagonalFilterRejectsSmallIntersections(t *testing.T) {
	if _, err := newDiagonalFilter([]RoadID{1, 2}); err == nil {
		t.Fatal("expected an error for an intersection with fewer than 3 roads")
	} else if !IsKind(err, ErrInvalidIntersection) {
		t.Errorf("expected ErrInvalidIntersection, got %v", err)
	}
}

func TestDiagonalFilterAllowsMovement(t *testing.T) {
	roads := []RoadID{1, 2, 3, 4}
	df, err := newDiagonalFilter(roads)
	if err != nil {
		t.Fatalf("newDiagonalFilter failed: %v", err)
	}
	if !df.allowsMovement(df.GroupA[0], df.GroupA[0]) {
		t.Error("a road should always be able to reach itself under any diagonal filter")
	}
	if len(df.GroupA) > 0 && len(df.GroupB) > 0 {
		if df.allowsMovement(df.GroupA[0], df.GroupB[0]) {
			t.Error("movement between different groups should be forbidden")
		}
	}
}

func TestDiagonalFilterRotationCyclesToOrigin(t *testing.T) {
	roads := []RoadID{1, 2, 3, 4}
	df, err := newDiagonalFilter(roads)
	if err != nil {
		t.Fatalf("newDiagonalFilter failed: %v", err)
	}
	parts := diagonalPartitions(roads)
	cur := df
	for i := 0; i < len(parts); i++ {
		cur, err = cur.rotated(roads)
		if err != nil {
			t.Fatalf("rotated failed at step %d: %v", i, err)
		}
	}
	if cur.Offset != df.Offset {
		t.Errorf("rotating through every partition should return to offset %d, got %d", df.Offset, cur.Offset)
	}
}
