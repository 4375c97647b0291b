// Package layout turns sets of time-bounded items into conflict-free
// column assignments. Intervals are half-open: [Start, End). Items whose
// intervals merely touch do not overlap and may share a column.
package layout

import (
	"sort"
	"time"
)

// Item is one time-bounded entry to place, typically a booking slot for a
// single resource and day.
type Item struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Placement assigns an item to a column. Cols is the width of the item's
// local cluster, not of the whole day, so short overlaps do not shrink
// unrelated items. LaneResourceID is set by the occupancy projector when
// items are laid out per resource lane.
type Placement struct {
	ItemID         string
	Col            int
	Cols           int
	LaneResourceID string
}

// Assign computes a conflict-free column assignment using greedy interval
// coloring: items are sorted by start (id breaks ties for determinism),
// partitioned into temporally connected clusters, and placed into the first
// column freed before they begin. The column count per cluster equals the
// maximum simultaneous overlap, which is optimal for interval graphs.
func Assign(items []Item) []Placement {
	if len(items) == 0 {
		return nil
	}

	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	placements := make([]Placement, 0, len(ordered))

	clusterStart := 0
	clusterMaxEnd := ordered[0].End
	for i := 1; i <= len(ordered); i++ {
		// A clean gap, with no interval carrying over, closes the cluster.
		if i < len(ordered) && ordered[i].Start.Before(clusterMaxEnd) {
			if ordered[i].End.After(clusterMaxEnd) {
				clusterMaxEnd = ordered[i].End
			}
			continue
		}
		placements = append(placements, packCluster(ordered[clusterStart:i])...)
		if i < len(ordered) {
			clusterStart = i
			clusterMaxEnd = ordered[i].End
		}
	}

	return placements
}

// packCluster assigns columns within one temporally connected cluster,
// reusing the earliest-freed column before allocating a new one.
func packCluster(cluster []Item) []Placement {
	type column struct {
		end time.Time
	}

	columns := make([]column, 0, 4)
	placements := make([]Placement, len(cluster))

	for i, item := range cluster {
		assigned := -1
		for col := range columns {
			if !columns[col].end.After(item.Start) {
				assigned = col
				break
			}
		}
		if assigned == -1 {
			columns = append(columns, column{})
			assigned = len(columns) - 1
		}
		columns[assigned].end = item.End
		placements[i] = Placement{ItemID: item.ID, Col: assigned}
	}

	for i := range placements {
		placements[i].Cols = len(columns)
	}
	return placements
}
