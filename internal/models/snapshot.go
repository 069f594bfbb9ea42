package models

// ReactionSnapshot is the render-ready reaction summary of one entity.
//
// Total always equals the sum of Counts. ViewerReaction is empty when the
// viewer has no reaction on the entity.
type ReactionSnapshot struct {
	Reactions      []Reaction               `json:"reactions"`
	Counts         map[ReactionCategory]int `json:"counts"`
	Total          int                      `json:"total"`
	ViewerReaction ReactionCategory         `json:"viewer_reaction,omitempty"`
}

// HasViewerReaction reports whether the viewer currently reacts on the entity.
func (s ReactionSnapshot) HasViewerReaction() bool {
	return s.ViewerReaction != ""
}

// Count returns the number of reactions of category c.
func (s ReactionSnapshot) Count(c ReactionCategory) int {
	return s.Counts[c]
}

// Clone returns a deep copy so readers never share mutable state with the writer.
func (s ReactionSnapshot) Clone() ReactionSnapshot {
	out := ReactionSnapshot{
		Total:          s.Total,
		ViewerReaction: s.ViewerReaction,
	}
	if s.Reactions != nil {
		out.Reactions = make([]Reaction, len(s.Reactions))
		copy(out.Reactions, s.Reactions)
	}
	if s.Counts != nil {
		out.Counts = make(map[ReactionCategory]int, len(s.Counts))
		for k, v := range s.Counts {
			out.Counts[k] = v
		}
	}
	return out
}
