package tree

import "discuss/internal/models"

// Walk visits nodes depth-first, parents before children. depth is 0 at top
// level. Returning false from fn skips the node's children.
func Walk(nodes []models.CommentNode, fn func(n models.CommentNode, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []models.CommentNode, depth int, fn func(models.CommentNode, int) bool) {
	for _, n := range nodes {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Find returns comment id and whether it exists.
func Find(nodes []models.CommentNode, id models.CommentID) (models.CommentNode, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := Find(n.Children, id); ok {
			return found, true
		}
	}
	return models.CommentNode{}, false
}

// Path returns the ids from the top-level ancestor down to id, or nil.
func Path(nodes []models.CommentNode, id models.CommentID) []models.CommentID {
	for _, n := range nodes {
		if n.ID == id {
			return []models.CommentID{n.ID}
		}
		if p := Path(n.Children, id); p != nil {
			return append([]models.CommentID{n.ID}, p...)
		}
	}
	return nil
}

// SubtreeIDs returns id and the ids of all its descendants.
func SubtreeIDs(nodes []models.CommentNode, id models.CommentID) []models.CommentID {
	root, ok := Find(nodes, id)
	if !ok {
		return nil
	}
	var ids []models.CommentID
	Walk([]models.CommentNode{root}, func(n models.CommentNode, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Transform rebuilds the whole forest, applying fn to every node bottom-up.
func Transform(nodes []models.CommentNode, fn func(models.CommentNode) models.CommentNode) []models.CommentNode {
	if nodes == nil {
		return nil
	}
	out := make([]models.CommentNode, len(nodes))
	for i, n := range nodes {
		n.Children = Transform(n.Children, fn)
		out[i] = fn(n)
	}
	return out
}

// Count is the number of nodes in the forest.
func Count(nodes []models.CommentNode) int {
	total := 0
	Walk(nodes, func(models.CommentNode, int) bool {
		total++
		return true
	})
	return total
}

// Depth is the number of levels: 0 for an empty forest, 1 for top level only.
func Depth(nodes []models.CommentNode) int {
	deepest := 0
	Walk(nodes, func(_ models.CommentNode, d int) bool {
		if d+1 > deepest {
			deepest = d + 1
		}
		return true
	})
	return deepest
}
