package main

import (
	"discuss/internal/discussion"
	"discuss/internal/models"
	"discuss/internal/tree"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const indent = "  "

func renderThread(w io.Writer, f *discussion.Facade, depth int) error {
	postID, ok := f.PostID()
	if !ok {
		return fmt.Errorf("no thread loaded")
	}
	post, _ := f.Snapshot(models.PostRef(postID))
	writeThread(w, postID, post, f.Tree(), depth)
	return nil
}

// writeThread 缩进打印评论树，depth>0 时只展开到该层
func writeThread(w io.Writer, postID models.PostID, post models.ReactionSnapshot, nodes []models.CommentNode, depth int) {
	fmt.Fprintln(w, strings.TrimSpace(fmt.Sprintf("post #%d %s", postID, formatReactions(post))))
	if len(nodes) == 0 {
		fmt.Fprintln(w, "(no comments)")
		return
	}
	tree.Walk(nodes, func(n models.CommentNode, d int) bool {
		pad := strings.Repeat(indent, d)
		fmt.Fprintf(w, "%s#%d %s (%s)\n", pad, n.ID, n.AuthorDisplay.Name, n.CreatedAt.Format("2006-01-02 15:04"))
		for _, line := range strings.Split(n.Content, "\n") {
			fmt.Fprintf(w, "%s%s%s\n", pad, indent, line)
		}
		if r := formatReactions(n.ReactionState); r != "" {
			fmt.Fprintf(w, "%s%s%s\n", pad, indent, r)
		}
		if depth > 0 && d+1 >= depth && len(n.Children) > 0 {
			fmt.Fprintf(w, "%s%s[%d more replies]\n", pad, indent, tree.Count(n.Children))
			return false
		}
		return true
	})
}

// formatReactions e.g. "👍 2 ❤️ 1 (you: like)"
func formatReactions(s models.ReactionSnapshot) string {
	var parts []string
	for _, c := range models.Categories {
		if n := s.Count(c); n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", c.Emoji(), n))
		}
	}
	if s.HasViewerReaction() {
		parts = append(parts, fmt.Sprintf("(you: %s)", s.ViewerReaction))
	}
	return strings.Join(parts, " ")
}

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// printMetrics 打印本次命令累计的计数器
func printMetrics(w io.Writer, g prometheus.Gatherer) {
	mfs, err := g.Gather()
	if err != nil {
		fmt.Fprintf(w, "metrics: %v\n", err)
		return
	}
	var lines []string
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, value))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
