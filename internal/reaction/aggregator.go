// Package reaction computes reaction aggregates and applies toggle mutations.
// Everything here is pure: no I/O, no clocks, no shared state, so the same
// rules run on the server (store) and in the optimistic client (optimistic).
package reaction

import (
	"discuss/internal/models"
	"time"
)

// Dedupe keeps one reaction per user: the one with the latest CreatedAt, the
// later position winning ties. Reactions with an unknown category are dropped.
// The result lists users in order of first appearance.
func Dedupe(reactions []models.Reaction) []models.Reaction {
	if len(reactions) == 0 {
		return []models.Reaction{}
	}

	index := make(map[models.UserID]int, len(reactions))
	out := make([]models.Reaction, 0, len(reactions))
	for _, r := range reactions {
		if !r.Action.Valid() {
			continue
		}
		i, seen := index[r.UserID]
		if !seen {
			index[r.UserID] = len(out)
			out = append(out, r)
			continue
		}
		if !r.CreatedAt.Before(out[i].CreatedAt) {
			out[i] = r
		}
	}
	return out
}

// ComputeSnapshot derives counts, total and the viewer projection from a raw
// reaction list. viewer may be nil for an anonymous reader.
func ComputeSnapshot(reactions []models.Reaction, viewer *models.UserID) models.ReactionSnapshot {
	current := Dedupe(reactions)

	counts := make(map[models.ReactionCategory]int, len(models.Categories))
	for _, c := range models.Categories {
		counts[c] = 0
	}

	snap := models.ReactionSnapshot{Reactions: current, Counts: counts}
	for _, r := range current {
		counts[r.Action]++
		snap.Total++
		if viewer != nil && r.UserID == *viewer {
			snap.ViewerReaction = r.Action
		}
	}
	return snap
}

// Toggle applies one viewer click:
//   - no reaction yet: append one
//   - same category: remove it
//   - other category: replace it in place
//
// The input slice is never modified.
func Toggle(reactions []models.Reaction, viewer models.UserID, category models.ReactionCategory, now time.Time) []models.Reaction {
	current := viewerReaction(reactions, viewer)
	return Apply(reactions, viewer, Next(current, category), now)
}

// Apply sets the viewer's reaction to target, removing it when target is empty.
// An existing reaction that already matches target is kept untouched.
func Apply(reactions []models.Reaction, viewer models.UserID, target models.ReactionCategory, now time.Time) []models.Reaction {
	out := make([]models.Reaction, 0, len(reactions)+1)
	placed := false
	for _, r := range Dedupe(reactions) {
		if r.UserID != viewer {
			out = append(out, r)
			continue
		}
		if target == "" {
			continue
		}
		if r.Action != target {
			r = models.Reaction{UserID: viewer, Action: target, CreatedAt: now}
		}
		out = append(out, r)
		placed = true
	}
	if target != "" && !placed {
		out = append(out, models.Reaction{UserID: viewer, Action: target, CreatedAt: now})
	}
	return out
}

// Next is the viewer reaction that results from clicking category while
// current is the viewer's reaction.
func Next(current, category models.ReactionCategory) models.ReactionCategory {
	if current == category {
		return ""
	}
	return category
}

// CategoryToReach is the click that moves a viewer from current to target
// under Toggle semantics. It returns "" when no click is needed.
func CategoryToReach(current, target models.ReactionCategory) models.ReactionCategory {
	switch {
	case current == target:
		return ""
	case target == "":
		return current
	default:
		return target
	}
}

func viewerReaction(reactions []models.Reaction, viewer models.UserID) models.ReactionCategory {
	for _, r := range Dedupe(reactions) {
		if r.UserID == viewer {
			return r.Action
		}
	}
	return ""
}
