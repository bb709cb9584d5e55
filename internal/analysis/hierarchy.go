package analysis

import (
	"strings"

	"healthdash/internal/record"
)

// HierarchyNode is one node of a nested categorical breakdown. ID is the
// "/"-joined path of labels from the root, with any "/" inside a label
// written as "∕"; Parent is "" at depth 1. Label is the raw value.
type HierarchyNode struct {
	ID     string `json:"id"`
	Parent string `json:"parent"`
	Label  string `json:"label"`
	Depth  int    `json:"depth"`
	Count  int    `json:"count"`
}

type hierNode struct {
	HierarchyNode
	children []*hierNode
	byLabel  map[string]*hierNode
}

func (n *hierNode) child(label string) *hierNode {
	c, ok := n.byLabel[label]
	if !ok {
		id := strings.ReplaceAll(label, "/", "∕")
		if n.ID != "" {
			id = n.ID + "/" + id
		}
		c = &hierNode{
			HierarchyNode: HierarchyNode{ID: id, Parent: n.ID, Label: label, Depth: n.Depth + 1},
			byLabel:       make(map[string]*hierNode),
		}
		n.byLabel[label] = c
		n.children = append(n.children, c)
	}
	return c
}

// Hierarchy counts records along path (outermost field first). A record
// contributes to every prefix of its path up to its first missing value.
// Nodes are returned depth-first with siblings in first-encountered order,
// so every parent precedes its children.
func Hierarchy(records []record.Record, path []record.Field) []HierarchyNode {
	root := &hierNode{byLabel: make(map[string]*hierNode)}
	for i := range records {
		n := root
		for _, f := range path {
			v, ok := records[i].Category(f)
			if !ok {
				break
			}
			n = n.child(v)
			n.Count++
		}
	}

	out := []HierarchyNode{}
	var walk func(*hierNode)
	walk = func(n *hierNode) {
		for _, c := range n.children {
			out = append(out, c.HierarchyNode)
			walk(c)
		}
	}
	walk(root)
	return out
}
