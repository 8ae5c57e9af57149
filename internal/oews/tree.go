package oews

import (
	"fmt"
	"sort"
)

// Tree is an immutable industry classification hierarchy.
type Tree struct {
	nodes    map[string]Node
	children map[string][]Node
	roots    []Node
}

// BuildTree indexes nodes into a tree. Nodes whose parent is missing are
// returned as orphans and left out of the tree; a duplicate code or a node
// whose level disagrees with its code is an error.
func BuildTree(nodes []Node) (*Tree, []Node, error) {
	t := &Tree{
		nodes:    make(map[string]Node, len(nodes)),
		children: make(map[string][]Node),
	}
	for _, n := range nodes {
		if n.Level != len(n.Code) || n.Level < MinLevel || n.Level > MaxLevel {
			return nil, nil, fmt.Errorf("build tree: node %q has level %d", n.Code, n.Level)
		}
		if _, dup := t.nodes[n.Code]; dup {
			return nil, nil, fmt.Errorf("build tree: duplicate node %q", n.Code)
		}
		t.nodes[n.Code] = n
	}

	// Sort by level so every parent is attached before its children.
	ordered := make([]Node, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Level != ordered[j].Level {
			return ordered[i].Level < ordered[j].Level
		}
		return ordered[i].Code < ordered[j].Code
	})

	attached := make(map[string]bool, len(ordered))
	var orphans []Node
	for _, n := range ordered {
		if n.IsRoot() {
			t.roots = append(t.roots, n)
			attached[n.Code] = true
			continue
		}
		parent, ok := t.nodes[n.Parent]
		if !ok || !attached[parent.Code] || parent.Level != n.Level-1 {
			orphans = append(orphans, n)
			delete(t.nodes, n.Code)
			continue
		}
		t.children[n.Parent] = append(t.children[n.Parent], n)
		attached[n.Code] = true
	}
	return t, orphans, nil
}

// Roots returns the level-2 nodes in code order.
func (t *Tree) Roots() []Node {
	out := make([]Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// Children returns the direct children of code in code order.
func (t *Tree) Children(code string) []Node {
	kids := t.children[code]
	out := make([]Node, len(kids))
	copy(out, kids)
	return out
}

// Node looks up a node by code.
func (t *Tree) Node(code string) (Node, bool) {
	n, ok := t.nodes[code]
	return n, ok
}

// Len reports the number of nodes reachable from the roots.
func (t *Tree) Len() int {
	return len(t.nodes)
}
