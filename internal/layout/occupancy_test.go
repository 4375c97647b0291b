package layout

import (
	"testing"
)

func namerFromMap(names map[string]string) ResourceNamer {
	return func(id string) string { return names[id] }
}

func TestProject_ByBookingIgnoresResources(t *testing.T) {
	t.Parallel()

	placements := Project([]Slot{
		{ID: "s1", Start: at(t, 9, 0), End: at(t, 10, 0), ResourceIDs: []string{"room-1", "room-2"}},
		{ID: "s2", Start: at(t, 9, 30), End: at(t, 10, 30), ResourceIDs: []string{"room-3"}},
	}, ModeByBooking, nil, nil)

	if len(placements) != 2 {
		t.Fatalf("by-booking mode must emit one item per slot, got %d", len(placements))
	}
	if placementByID(t, placements, "s1").Cols != 2 {
		t.Fatal("overlapping bookings must share a two-column cluster")
	}
	for _, p := range placements {
		if p.LaneResourceID != "" {
			t.Fatalf("by-booking placements carry no lane, got %q", p.LaneResourceID)
		}
	}
}

func TestProject_ByResourceLanes(t *testing.T) {
	t.Parallel()

	names := namerFromMap(map[string]string{"room-1": "Chemistry", "room-2": "Biology"})

	// s1 spans both rooms, so it appears once per lane. Within room-1 it
	// overlaps s2; room-2 stays single-column.
	placements := Project([]Slot{
		{ID: "s1", Start: at(t, 9, 0), End: at(t, 10, 0), ResourceIDs: []string{"room-1", "room-2"}},
		{ID: "s2", Start: at(t, 9, 30), End: at(t, 10, 30), ResourceIDs: []string{"room-1"}},
	}, ModeByResource, nil, names)

	if len(placements) != 3 {
		t.Fatalf("expected 3 expanded items, got %d", len(placements))
	}

	byLane := make(map[string][]Placement)
	for _, p := range placements {
		byLane[p.LaneResourceID] = append(byLane[p.LaneResourceID], p)
	}
	if len(byLane["room-1"]) != 2 || len(byLane["room-2"]) != 1 {
		t.Fatalf("unexpected lane population: %v", byLane)
	}

	// Biology sorts before Chemistry, so room-2 is lane 0. Max sub-columns
	// across lanes is 2, giving a shared width of 4.
	for _, p := range placements {
		if p.Cols != 4 {
			t.Fatalf("%s: all lanes must share the global width, got %d", p.ItemID, p.Cols)
		}
	}
	if got := byLane["room-2"][0].Col; got != 0 {
		t.Fatalf("room-2 occupies lane 0, got column %d", got)
	}
	for _, p := range byLane["room-1"] {
		if p.Col < 2 || p.Col > 3 {
			t.Fatalf("room-1 columns must land in lane 1's span, got %d", p.Col)
		}
	}
}

func TestProject_FilterExcludesExpansion(t *testing.T) {
	t.Parallel()

	placements := Project([]Slot{
		{ID: "s1", Start: at(t, 9, 0), End: at(t, 10, 0), ResourceIDs: []string{"room-1", "room-2"}},
		{ID: "s2", Start: at(t, 9, 0), End: at(t, 10, 0), ResourceIDs: []string{"room-2"}},
	}, ModeByResource, []string{"room-1"}, nil)

	if len(placements) != 1 {
		t.Fatalf("filter must exclude non-selected resources entirely, got %d items", len(placements))
	}
	p := placements[0]
	if p.ItemID != "s1" || p.LaneResourceID != "room-1" {
		t.Fatalf("unexpected placement: %+v", p)
	}
	if p.Cols != 1 {
		t.Fatalf("a single filtered lane needs one column, got %d", p.Cols)
	}
}

func TestProject_LaneOrderFallsBackToID(t *testing.T) {
	t.Parallel()

	// Without a directory both lanes use the "Resource {id}" fallback, so
	// ordering reduces to the id tie-break.
	placements := Project([]Slot{
		{ID: "s1", Start: at(t, 9, 0), End: at(t, 10, 0), ResourceIDs: []string{"b-room", "a-room"}},
	}, ModeByResource, nil, nil)

	if len(placements) != 2 {
		t.Fatalf("expected 2 items, got %d", len(placements))
	}
	first := placements[0]
	if first.LaneResourceID != "a-room" || first.Col != 0 {
		t.Fatalf("a-room must take the leftmost lane, got %+v", first)
	}
}
