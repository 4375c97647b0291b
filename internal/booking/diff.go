package booking

import (
	"encoding/json"
	"sort"
	"time"
)

// SlotChanged reports whether two slots differ in any semantically
// meaningful field: start, end, status, resource set, group set, or the
// free-text note. Object identity and field order are irrelevant; two slots
// carrying identical values are never considered changed.
func SlotChanged(a, b TimeSlot) bool {
	if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
		return true
	}
	if a.Status != b.Status {
		return true
	}
	if a.Note != b.Note {
		return true
	}
	if !sameIDSet(a.ResourceIDs, b.ResourceIDs) {
		return true
	}
	if !sameIDSet(a.GroupIDs, b.GroupIDs) {
		return true
	}
	return false
}

// Reconciliation is the outcome of matching a proposed slot set against the
// stored one. Slots holds the surviving set in proposal order; DeletedIDs
// lists stored slots absent from the proposal, which callers soft-delete
// rather than purge so their audit trails survive.
type Reconciliation struct {
	Slots      []TimeSlot
	DeletedIDs []string
}

// ReconcileSlots matches newSlots against originalSlots by id and keeps
// audit trails minimal: unchanged slots pass through untouched, changed
// slots gain exactly one modified entry authored by actorID, and slots
// without a stored counterpart are created with a seeded trail. The
// function is pure; determinism comes from the injected clock and id
// generator and from preserving proposal order.
func ReconcileSlots(newSlots, originalSlots []TimeSlot, actorID string, now time.Time, nextID func() string) Reconciliation {
	originals := make(map[string]TimeSlot, len(originalSlots))
	for _, slot := range originalSlots {
		originals[slot.ID] = slot
	}

	result := Reconciliation{Slots: make([]TimeSlot, 0, len(newSlots))}
	seen := make(map[string]struct{}, len(newSlots))

	for _, proposed := range newSlots {
		original, ok := originals[proposed.ID]
		if !ok || proposed.ID == "" {
			created := proposed.Clone()
			if created.ID == "" && nextID != nil {
				created.ID = nextID()
			}
			if created.Status == "" {
				created.Status = SlotStatusActive
			}
			created.CreatedBy = actorID
			created.ModifiedBy = []AuditEntry{{UserID: actorID, Timestamp: now, Action: AuditActionCreated}}
			seen[created.ID] = struct{}{}
			result.Slots = append(result.Slots, created)
			continue
		}

		seen[proposed.ID] = struct{}{}
		if !SlotChanged(proposed, original) {
			result.Slots = append(result.Slots, original.Clone())
			continue
		}

		updated := proposed.Clone()
		updated.CreatedBy = original.CreatedBy
		updated.ModifiedBy = append(append([]AuditEntry(nil), original.ModifiedBy...),
			AuditEntry{UserID: actorID, Timestamp: now, Action: AuditActionModified})
		result.Slots = append(result.Slots, updated)
	}

	for _, slot := range originalSlots {
		if _, ok := seen[slot.ID]; !ok {
			result.DeletedIDs = append(result.DeletedIDs, slot.ID)
		}
	}

	return result
}

// canonicalSlot is the serialization shape used for signatures. Identifier
// lists are sorted so insertion order cannot leak into the signature.
type canonicalSlot struct {
	ID        string   `json:"id"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Status    string   `json:"status"`
	Resources []string `json:"resources"`
	Groups    []string `json:"groups"`
	Note      string   `json:"note,omitempty"`
}

type canonicalEvent struct {
	Proposed    []canonicalSlot `json:"proposed"`
	Accepted    []canonicalSlot `json:"accepted"`
	Attachments []string        `json:"attachments,omitempty"`
}

// Signature serializes the observable content of an event — its slot sets
// and attachment references — into a canonical string. Events with the same
// observable content produce identical signatures regardless of field
// insertion order; callers compare before/after signatures to suppress
// spurious "changed" notifications.
func Signature(event CalendarEvent, attachments []string) string {
	canonical := canonicalEvent{
		Proposed:    canonicalSlots(event.ProposedSlots),
		Accepted:    canonicalSlots(event.AcceptedSlots),
		Attachments: sortedCopy(attachments),
	}
	encoded, err := json.Marshal(canonical)
	if err != nil {
		// Marshalling plain strings cannot fail; keep the signature total.
		return ""
	}
	return string(encoded)
}

// SlotSetSignature canonically serializes one slot set. It backs the
// proposed-versus-accepted comparison behind ValidationState.
func SlotSetSignature(slots []TimeSlot) string {
	encoded, err := json.Marshal(canonicalSlots(slots))
	if err != nil {
		return ""
	}
	return string(encoded)
}

func canonicalSlots(slots []TimeSlot) []canonicalSlot {
	out := make([]canonicalSlot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, canonicalSlot{
			ID:        slot.ID,
			Start:     slot.Start.UTC().Format(time.RFC3339Nano),
			End:       slot.End.UTC().Format(time.RFC3339Nano),
			Status:    string(slot.Status),
			Resources: sortedCopy(slot.ResourceIDs),
			Groups:    sortedCopy(slot.GroupIDs),
			Note:      slot.Note,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func sameIDSet(a, b []string) bool {
	return equalStrings(uniqueSorted(a), uniqueSorted(b))
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
