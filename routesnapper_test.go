package ltn

import "testing"

func TestToRouteSnapperProducesStableCachedBlob(t *testing.T) {
	model, _, _, _ := buildCrossModel(t)
	blob, err := model.ToRouteSnapper()
	if err != nil {
		t.Fatalf("ToRouteSnapper failed: %v", err)
	}
	if len(blob) == 0 {
		t.Fatal("expected a non-empty route-snapper blob")
	}

	again, err := model.ToRouteSnapper()
	if err != nil {
		t.Fatalf("second ToRouteSnapper call failed: %v", err)
	}
	if &blob[0] != &again[0] {
		t.Error("expected the second call to return the cached blob, not rebuild it")
	}
}

func TestProjectRouteSnapperDelegatesToModel(t *testing.T) {
	p := testProject(t)
	blob, err := p.RouteSnapper()
	if err != nil {
		t.Fatalf("RouteSnapper failed: %v", err)
	}
	if len(blob) == 0 {
		t.Fatal("expected a non-empty route-snapper blob")
	}
}
