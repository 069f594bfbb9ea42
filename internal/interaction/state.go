// Package interaction keeps per-viewer view state of a rendered thread:
// which reply composer and overflow menu are open, and which subtrees are
// expanded. It is never persisted.
package interaction

import (
	"discuss/internal/models"
	"sync"
)

// Snapshot is a read-only copy of State.
type Snapshot struct {
	ReplyComposerOpenFor *models.CommentID
	OverflowMenuOpenFor  *models.CommentID
	Expanded             map[models.CommentID]bool
}

// State is keyed by comment id. At most one reply composer and one overflow
// menu are open at a time. The zero value is ready to use.
type State struct {
	mu        sync.Mutex
	composer  *models.CommentID
	menu      *models.CommentID
	expanded  map[models.CommentID]bool
	collapsed bool // default for ids not in expanded
}

func New() *State {
	return &State{}
}

// OpenReplyComposer opens the composer under id, closing any other one.
func (s *State) OpenReplyComposer(id models.CommentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composer = &id
	s.menu = nil
}

func (s *State) CloseReplyComposer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composer = nil
}

// ReplyComposerOpenFor returns the comment whose composer is open.
func (s *State) ReplyComposerOpenFor() (models.CommentID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.composer == nil {
		return 0, false
	}
	return *s.composer, true
}

// ToggleOverflowMenu opens the menu of id, or closes it when already open.
func (s *State) ToggleOverflowMenu(id models.CommentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu != nil && *s.menu == id {
		s.menu = nil
		return
	}
	s.menu = &id
}

func (s *State) CloseOverflowMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu = nil
}

func (s *State) OverflowMenuOpenFor() (models.CommentID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.menu == nil {
		return 0, false
	}
	return *s.menu, true
}

// SetExpanded records whether the replies under id are shown.
func (s *State) SetExpanded(id models.CommentID, expanded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded == nil {
		s.expanded = make(map[models.CommentID]bool)
	}
	s.expanded[id] = expanded
}

func (s *State) ToggleExpanded(id models.CommentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded == nil {
		s.expanded = make(map[models.CommentID]bool)
	}
	next := !s.isExpanded(id)
	s.expanded[id] = next
	return next
}

// IsExpanded reports the state of id. Subtrees are expanded unless
// CollapseByDefault was called.
func (s *State) IsExpanded(id models.CommentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isExpanded(id)
}

func (s *State) isExpanded(id models.CommentID) bool {
	if v, ok := s.expanded[id]; ok {
		return v
	}
	return !s.collapsed
}

// CollapseByDefault makes ids without an explicit choice render collapsed.
func (s *State) CollapseByDefault(collapsed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collapsed = collapsed
}

// Forget drops all state attached to ids, e.g. after they were deleted.
func (s *State) Forget(ids ...models.CommentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if s.composer != nil && *s.composer == id {
			s.composer = nil
		}
		if s.menu != nil && *s.menu == id {
			s.menu = nil
		}
		delete(s.expanded, id)
	}
}

// Reset tears everything down, used when the viewer leaves the thread.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.composer = nil
	s.menu = nil
	s.expanded = nil
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{Expanded: make(map[models.CommentID]bool, len(s.expanded))}
	if s.composer != nil {
		id := *s.composer
		out.ReplyComposerOpenFor = &id
	}
	if s.menu != nil {
		id := *s.menu
		out.OverflowMenuOpenFor = &id
	}
	for k, v := range s.expanded {
		out.Expanded[k] = v
	}
	return out
}
