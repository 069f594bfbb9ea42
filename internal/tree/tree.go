// Package tree implements the comment tree of a post as pure functions over
// []models.CommentNode.
//
// Every operation returns a new forest and never mutates its input. Nodes off
// the path to the target keep sharing their backing arrays with the input, so
// a caller can detect unchanged subtrees by slice identity. A missing target
// id is not an error: the input is returned as is.
package tree

import (
	"discuss/internal/models"
)

// Insert appends node as the last reply of parentID, or at top level when
// parentID is nil.
func Insert(nodes []models.CommentNode, parentID *models.CommentID, node models.CommentNode) []models.CommentNode {
	if parentID == nil {
		out := make([]models.CommentNode, len(nodes), len(nodes)+1)
		copy(out, nodes)
		return append(out, node)
	}
	out, _ := edit(nodes, *parentID, func(parent models.CommentNode) models.CommentNode {
		children := make([]models.CommentNode, len(parent.Children), len(parent.Children)+1)
		copy(children, parent.Children)
		parent.Children = append(children, node)
		parent.ReplyCount++
		return parent
	})
	return out
}

// ReplaceContent replaces the content of comment id.
func ReplaceContent(nodes []models.CommentNode, id models.CommentID, content string) []models.CommentNode {
	out, _ := edit(nodes, id, func(n models.CommentNode) models.CommentNode {
		n.Content = content
		return n
	})
	return out
}

// MapReaction sets the reaction state of exactly one comment.
func MapReaction(nodes []models.CommentNode, id models.CommentID, snap models.ReactionSnapshot) []models.CommentNode {
	out, _ := edit(nodes, id, func(n models.CommentNode) models.CommentNode {
		n.ReactionState = snap
		return n
	})
	return out
}

// Remove deletes comment id together with its whole subtree.
func Remove(nodes []models.CommentNode, id models.CommentID) []models.CommentNode {
	out, _ := remove(nodes, id)
	return out
}

func edit(nodes []models.CommentNode, id models.CommentID, fn func(models.CommentNode) models.CommentNode) ([]models.CommentNode, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := make([]models.CommentNode, len(nodes))
			copy(out, nodes)
			out[i] = fn(nodes[i])
			return out, true
		}
		if children, ok := edit(nodes[i].Children, id, fn); ok {
			out := make([]models.CommentNode, len(nodes))
			copy(out, nodes)
			out[i].Children = children
			return out, true
		}
	}
	return nodes, false
}

func remove(nodes []models.CommentNode, id models.CommentID) ([]models.CommentNode, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := make([]models.CommentNode, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			return append(out, nodes[i+1:]...), true
		}
		if children, ok := remove(nodes[i].Children, id); ok {
			out := make([]models.CommentNode, len(nodes))
			copy(out, nodes)
			out[i].Children = children
			if len(children) < len(nodes[i].Children) && out[i].ReplyCount > 0 {
				out[i].ReplyCount--
			}
			return out, true
		}
	}
	return nodes, false
}
