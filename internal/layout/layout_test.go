package layout

import (
	"testing"
	"time"
)

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, time.March, 14, hour, minute, 0, 0, time.UTC)
}

func placementByID(t *testing.T, placements []Placement, id string) Placement {
	t.Helper()
	for _, p := range placements {
		if p.ItemID == id {
			return p
		}
	}
	t.Fatalf("no placement for %s", id)
	return Placement{}
}

func TestAssign_LocalClusterWidth(t *testing.T) {
	t.Parallel()

	// A and B overlap; C starts exactly when B ends, so the half-open
	// intervals do not overlap and C opens a fresh cluster.
	placements := Assign([]Item{
		{ID: "A", Start: at(t, 9, 0), End: at(t, 10, 0)},
		{ID: "B", Start: at(t, 9, 30), End: at(t, 10, 30)},
		{ID: "C", Start: at(t, 10, 30), End: at(t, 11, 0)},
	})

	a := placementByID(t, placements, "A")
	b := placementByID(t, placements, "B")
	c := placementByID(t, placements, "C")

	if a.Col != 0 || a.Cols != 2 {
		t.Fatalf("A: expected col0/cols2, got col%d/cols%d", a.Col, a.Cols)
	}
	if b.Col != 1 || b.Cols != 2 {
		t.Fatalf("B: expected col1/cols2, got col%d/cols%d", b.Col, b.Cols)
	}
	if c.Col != 0 || c.Cols != 1 {
		t.Fatalf("C: expected col0/cols1, got col%d/cols%d", c.Col, c.Cols)
	}
}

func TestAssign_ReusesEarliestFreedColumn(t *testing.T) {
	t.Parallel()

	placements := Assign([]Item{
		{ID: "long", Start: at(t, 9, 0), End: at(t, 12, 0)},
		{ID: "first", Start: at(t, 9, 0), End: at(t, 10, 0)},
		{ID: "second", Start: at(t, 10, 0), End: at(t, 11, 0)},
		{ID: "third", Start: at(t, 11, 0), End: at(t, 12, 0)},
	})

	for _, p := range placements {
		if p.Cols != 2 {
			t.Fatalf("%s: cluster needs exactly two columns, got %d", p.ItemID, p.Cols)
		}
	}
	// "first" sorts before "long" at 09:00, so it takes column 0 and the
	// chain keeps reusing it once freed.
	for _, id := range []string{"first", "second", "third"} {
		if got := placementByID(t, placements, id).Col; got != 0 {
			t.Fatalf("%s: expected reuse of column 0, got %d", id, got)
		}
	}
	if got := placementByID(t, placements, "long").Col; got != 1 {
		t.Fatalf("long: expected column 1, got %d", got)
	}
}

func TestAssign_Deterministic(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "b", Start: at(t, 9, 0), End: at(t, 10, 0)},
		{ID: "a", Start: at(t, 9, 0), End: at(t, 10, 0)},
		{ID: "c", Start: at(t, 9, 30), End: at(t, 11, 0)},
	}
	reversed := []Item{items[2], items[0], items[1]}

	first := Assign(items)
	second := Assign(reversed)

	for _, id := range []string{"a", "b", "c"} {
		p1 := placementByID(t, first, id)
		p2 := placementByID(t, second, id)
		if p1.Col != p2.Col || p1.Cols != p2.Cols {
			t.Fatalf("%s: assignment depends on input order: %+v vs %+v", id, p1, p2)
		}
	}
	if placementByID(t, first, "a").Col != 0 {
		t.Fatal("ties on start must break by id")
	}
}

func TestAssign_Empty(t *testing.T) {
	t.Parallel()
	if got := Assign(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
