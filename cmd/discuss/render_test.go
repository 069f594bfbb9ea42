package main

import (
	"bytes"
	"discuss/internal/models"
	"discuss/internal/optimistic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func comment(id models.CommentID, name, content string, children ...models.CommentNode) models.CommentNode {
	return models.CommentNode{
		ID:            id,
		AuthorDisplay: models.AuthorDisplay{Name: name},
		CreatedAt:     at,
		Content:       content,
		ReplyCount:    len(children),
		Children:      children,
	}
}

func TestFormatReactions(t *testing.T) {
	s := models.ReactionSnapshot{
		Counts:         map[models.ReactionCategory]int{models.ReactionLove: 1, models.ReactionLike: 2},
		Total:          3,
		ViewerReaction: models.ReactionLike,
	}
	assert.Equal(t, "👍 2 ❤️ 1 (you: like)", formatReactions(s))
	assert.Equal(t, "", formatReactions(models.ReactionSnapshot{}))
}

func TestWriteThread(t *testing.T) {
	nodes := []models.CommentNode{
		comment(1, "alice", "first", comment(2, "bob", "reply", comment(3, "alice", "deep"))),
		comment(4, "carol", "second\nline"),
	}

	var buf bytes.Buffer
	writeThread(&buf, 7, models.ReactionSnapshot{}, nodes, 0)

	want := "post #7\n" +
		"#1 alice (2024-05-01 09:30)\n" +
		"  first\n" +
		"  #2 bob (2024-05-01 09:30)\n" +
		"    reply\n" +
		"    #3 alice (2024-05-01 09:30)\n" +
		"      deep\n" +
		"#4 carol (2024-05-01 09:30)\n" +
		"  second\n" +
		"  line\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteThread_DepthLimit(t *testing.T) {
	nodes := []models.CommentNode{
		comment(1, "alice", "first", comment(2, "bob", "reply", comment(3, "alice", "deep"))),
	}

	var buf bytes.Buffer
	writeThread(&buf, 7, models.ReactionSnapshot{}, nodes, 1)

	out := buf.String()
	assert.Contains(t, out, "#1 alice")
	assert.Contains(t, out, "[2 more replies]")
	assert.NotContains(t, out, "#2 bob")
}

func TestWriteThread_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeThread(&buf, 3, models.ReactionSnapshot{Counts: map[models.ReactionCategory]int{models.ReactionWow: 1}, Total: 1}, nil, 0)
	assert.Equal(t, "post #3 😮 1\n(no comments)\n", buf.String())
}

func TestPrintMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := optimistic.NewMetrics(reg)
	m.Speculations.Inc()
	m.Speculations.Inc()

	var buf bytes.Buffer
	printMetrics(&buf, reg)
	assert.Contains(t, buf.String(), "discuss_optimistic_speculations_total 2\n")
	assert.Contains(t, buf.String(), "discuss_optimistic_rolled_back_total 0\n")
}

func TestParseEntity(t *testing.T) {
	e, err := parseEntity("comment", "12")
	require.NoError(t, err)
	assert.Equal(t, models.CommentRef(12), e)

	_, err = parseEntity("note", "12")
	assert.Error(t, err)
	_, err = parseEntity("post", "0")
	assert.Error(t, err)
	_, err = parseEntity("post", "abc")
	assert.Error(t, err)
}
