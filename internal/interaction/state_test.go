package interaction

import (
	"discuss/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplyComposer_OneAtATime(t *testing.T) {
	s := New()
	s.ToggleOverflowMenu(1)

	s.OpenReplyComposer(2)
	s.OpenReplyComposer(3)

	id, ok := s.ReplyComposerOpenFor()
	assert.True(t, ok)
	assert.Equal(t, models.CommentID(3), id)
	_, menuOpen := s.OverflowMenuOpenFor()
	assert.False(t, menuOpen, "opening a composer closes the menu")

	s.CloseReplyComposer()
	_, ok = s.ReplyComposerOpenFor()
	assert.False(t, ok)
}

func TestOverflowMenu_Toggle(t *testing.T) {
	var s State

	s.ToggleOverflowMenu(4)
	id, ok := s.OverflowMenuOpenFor()
	assert.True(t, ok)
	assert.Equal(t, models.CommentID(4), id)

	s.ToggleOverflowMenu(5)
	id, _ = s.OverflowMenuOpenFor()
	assert.Equal(t, models.CommentID(5), id)

	s.ToggleOverflowMenu(5)
	_, ok = s.OverflowMenuOpenFor()
	assert.False(t, ok)
}

func TestExpanded(t *testing.T) {
	s := New()
	assert.True(t, s.IsExpanded(1))

	assert.False(t, s.ToggleExpanded(1))
	assert.False(t, s.IsExpanded(1))

	s.CollapseByDefault(true)
	assert.False(t, s.IsExpanded(2))
	s.SetExpanded(2, true)
	assert.True(t, s.IsExpanded(2))
}

func TestForgetAndReset(t *testing.T) {
	s := New()
	s.OpenReplyComposer(1)
	s.ToggleOverflowMenu(2)
	s.SetExpanded(3, false)

	s.Forget(1, 3)
	_, composer := s.ReplyComposerOpenFor()
	assert.False(t, composer)
	_, menu := s.OverflowMenuOpenFor()
	assert.True(t, menu)
	assert.True(t, s.IsExpanded(3))

	s.Reset()
	snap := s.Snapshot()
	assert.Nil(t, snap.ReplyComposerOpenFor)
	assert.Nil(t, snap.OverflowMenuOpenFor)
	assert.Empty(t, snap.Expanded)
}
