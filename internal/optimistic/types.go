package optimistic

import (
	"context"
	"discuss/internal/models"
)

// Mutator sends one toggle to the server and returns the authoritative
// snapshot afterwards. The server applies the same toggle rules as
// reaction.Toggle.
type Mutator interface {
	React(ctx context.Context, entity models.EntityRef, category models.ReactionCategory) (models.ReactionSnapshot, error)
}

// Viewer reports the identity reactions are made under.
type Viewer interface {
	CurrentViewerID() (models.UserID, bool)
}

// Phase is the state of one entity in the controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSpeculating
	PhaseReconciled
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSpeculating:
		return "speculating"
	case PhaseReconciled:
		return "reconciled"
	case PhaseRolledBack:
		return "rolled_back"
	}
	return "unknown"
}

// Update is delivered to listeners every time an entity's published snapshot
// changes.
type Update struct {
	Entity   models.EntityRef
	Snapshot models.ReactionSnapshot
	Phase    Phase
}

// Listener receives updates in publication order. It runs with the
// controller lock held and must not call back into the Controller.
type Listener func(Update)

// PendingMutation describes a toggle between click and server answer.
type PendingMutation struct {
	Entity      models.EntityRef
	Previous    models.ReactionSnapshot
	Speculative models.ReactionSnapshot
	InFlight    bool
}
