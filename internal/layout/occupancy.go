package layout

import (
	"fmt"
	"sort"
	"time"
)

// Mode selects how slots are expanded into layout items.
type Mode string

const (
	// ModeByBooking lays out one item per slot regardless of resources.
	ModeByBooking Mode = "byBooking"
	// ModeByResource expands each slot into one item per referenced
	// resource and packs every resource lane independently.
	ModeByResource Mode = "byResource"
)

// Slot is the projector's view of a booked time slot.
type Slot struct {
	ID          string
	Start       time.Time
	End         time.Time
	ResourceIDs []string
}

// ResourceNamer resolves a resource id to its display name for lane
// ordering. A nil namer falls back to "Resource {id}".
type ResourceNamer func(id string) string

// Project expands slots into layout items and assigns columns.
//
// In by-booking mode every slot is one item and the whole set is packed
// together. In by-resource mode each slot becomes one item per resource it
// references; items are grouped into lanes keyed by resource id, each lane
// is packed independently, and lanes are concatenated into one global
// column space so every resource occupies an equal share of the grid
// width. A non-empty resourceFilter excludes non-selected resources from
// the expansion entirely, keeping the computation bounded by the caller's
// selection rather than the resource catalog.
func Project(slots []Slot, mode Mode, resourceFilter []string, names ResourceNamer) []Placement {
	switch mode {
	case ModeByResource:
		return projectByResource(slots, resourceFilter, names)
	default:
		return projectByBooking(slots)
	}
}

func projectByBooking(slots []Slot) []Placement {
	items := make([]Item, 0, len(slots))
	for _, slot := range slots {
		items = append(items, Item{ID: slot.ID, Start: slot.Start, End: slot.End})
	}
	return Assign(items)
}

func projectByResource(slots []Slot, resourceFilter []string, names ResourceNamer) []Placement {
	allowed := make(map[string]struct{}, len(resourceFilter))
	for _, id := range resourceFilter {
		allowed[id] = struct{}{}
	}

	lanes := make(map[string][]Item)
	for _, slot := range slots {
		for _, resourceID := range slot.ResourceIDs {
			if len(allowed) > 0 {
				if _, ok := allowed[resourceID]; !ok {
					continue
				}
			}
			lanes[resourceID] = append(lanes[resourceID], Item{ID: slot.ID, Start: slot.Start, End: slot.End})
		}
	}
	if len(lanes) == 0 {
		return nil
	}

	laneIDs := make([]string, 0, len(lanes))
	for id := range lanes {
		laneIDs = append(laneIDs, id)
	}
	// Lanes render left to right by display name; ids break ties so
	// repeated projections are stable.
	sort.Slice(laneIDs, func(i, j int) bool {
		a, b := resourceName(names, laneIDs[i]), resourceName(names, laneIDs[j])
		if a == b {
			return laneIDs[i] < laneIDs[j]
		}
		return a < b
	})

	perLane := make([][]Placement, len(laneIDs))
	maxSubCols := 1
	for i, laneID := range laneIDs {
		perLane[i] = Assign(lanes[laneID])
		for _, placement := range perLane[i] {
			if placement.Cols > maxSubCols {
				maxSubCols = placement.Cols
			}
		}
	}

	totalCols := len(laneIDs) * maxSubCols
	out := make([]Placement, 0, len(slots))
	for i, laneID := range laneIDs {
		offset := i * maxSubCols
		for _, placement := range perLane[i] {
			out = append(out, Placement{
				ItemID:         placement.ItemID,
				Col:            placement.Col + offset,
				Cols:           totalCols,
				LaneResourceID: laneID,
			})
		}
	}
	return out
}

func resourceName(names ResourceNamer, id string) string {
	if names != nil {
		if name := names(id); name != "" {
			return name
		}
	}
	return fmt.Sprintf("Resource %s", id)
}
