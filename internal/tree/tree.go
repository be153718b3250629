// Package tree reconstructs the logical conversation forest from a flat
// set of normalized messages, linking records by parentUuid and marking
// branch points where sidechains diverge.
package tree

import (
	"fmt"
	"sort"

	"github.com/ndokutovich/claude-code-history-viewer/internal/parse"
)

// Node wraps one message in the conversation forest. Each node has
// exactly one parent; children are ordered by timestamp.
type Node struct {
	Message  *parse.Message
	Children []*Node

	// Depth is the distance from the forest root (root = 0).
	Depth int
	// IsBranchRoot is true when the node's children diverge into
	// sidechains or parallel branches.
	IsBranchRoot bool
	// BranchDepth is the ordinal among sibling branches (first
	// child = 0).
	BranchDepth int

	parent *Node
}

// Forest is the result of one full rebuild. It is replaced wholesale on
// every reload, never patched incrementally.
type Forest struct {
	Roots []*Node
	// Warnings records defused corruption: cycles, duplicate uuids.
	Warnings []string
}

// Build indexes messages by uuid and links them into a forest. Summary
// records are excluded; messages with absent or unresolved parents
// become roots. A parent chain that loops back onto itself is broken by
// promoting the offending message to a root, reported as a warning.
func Build(messages []parse.Message) *Forest {
	f := &Forest{}

	nodes := make(map[string]*Node, len(messages))
	order := make([]*Node, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if m.Type == parse.TypeSummary {
			continue
		}
		if _, dup := nodes[m.UUID]; dup {
			f.Warnings = append(f.Warnings, fmt.Sprintf("duplicate uuid %s ignored during tree build", m.UUID))
			continue
		}
		n := &Node{Message: m}
		nodes[m.UUID] = n
		order = append(order, n)
	}

	for _, n := range order {
		pid := n.Message.ParentUUID
		if pid == "" || pid == n.Message.UUID {
			f.Roots = append(f.Roots, n)
			continue
		}
		parent, ok := nodes[pid]
		if !ok {
			// unresolved parent: the referenced record was lost or
			// lives outside this load
			f.Roots = append(f.Roots, n)
			continue
		}
		if createsCycle(parent, n) {
			f.Warnings = append(f.Warnings, fmt.Sprintf("parent chain of %s loops back onto itself; promoted to root", n.Message.UUID))
			f.Roots = append(f.Roots, n)
			continue
		}
		n.parent = parent
		parent.Children = append(parent.Children, n)
	}

	for _, n := range order {
		sort.SliceStable(n.Children, func(i, j int) bool {
			return n.Children[i].Message.Time().Before(n.Children[j].Message.Time())
		})
	}

	sort.SliceStable(f.Roots, func(i, j int) bool {
		return f.Roots[i].Message.Time().Before(f.Roots[j].Message.Time())
	})

	for _, root := range f.Roots {
		annotate(root, 0)
	}
	return f
}

// createsCycle walks ancestor links from parent; attaching child would
// close a loop if child is already an ancestor. The visited guard keeps
// the walk finite even over corrupt data.
func createsCycle(parent, child *Node) bool {
	visited := map[string]struct{}{child.Message.UUID: {}}
	for p := parent; p != nil; p = p.parent {
		if _, seen := visited[p.Message.UUID]; seen {
			return true
		}
		visited[p.Message.UUID] = struct{}{}
	}
	return false
}

// annotate assigns depth and branch markers. A parent becomes a branch
// root when it has divergent children: more than one child, or any
// child flagged as a sidechain.
func annotate(n *Node, depth int) {
	n.Depth = depth
	for i, ch := range n.Children {
		ch.BranchDepth = i
		if i > 0 || ch.Message.IsSidechain {
			n.IsBranchRoot = true
		}
		annotate(ch, depth+1)
	}
}

// Size returns the number of nodes in the forest.
func (f *Forest) Size() int {
	count := 0
	var walk func(*Node)
	walk = func(n *Node) {
		count++
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	for _, r := range f.Roots {
		walk(r)
	}
	return count
}

// Find returns the node for a uuid, nil if absent.
func (f *Forest) Find(uuid string) *Node {
	var found *Node
	var walk func(*Node)
	walk = func(n *Node) {
		if found != nil {
			return
		}
		if n.Message.UUID == uuid {
			found = n
			return
		}
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	for _, r := range f.Roots {
		walk(r)
		if found != nil {
			break
		}
	}
	return found
}
