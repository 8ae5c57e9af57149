// Package frontier is the per-occupation work list of the hierarchy crawl.
//
// Each industry node moves through Pending -> Resolved -> Expanded or
// Terminal. A code is accepted at most once per frontier, so a crawl over a
// finite tree always terminates, even when every node reports data.
package frontier

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/oews-ingest/internal/oews"
)

// Order selects how Pop picks the next node.
type Order int

const (
	// OrderFIFO walks the tree breadth first.
	OrderFIFO Order = iota
	// OrderLIFO walks the tree depth first.
	OrderLIFO
)

func (o Order) String() string {
	if o == OrderLIFO {
		return "lifo"
	}
	return "fifo"
}

// ParseOrder accepts "fifo" or "lifo".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fifo":
		return OrderFIFO, nil
	case "lifo":
		return OrderLIFO, nil
	default:
		return OrderFIFO, fmt.Errorf("unknown frontier order %q", s)
	}
}

// State is the lifecycle position of a node.
type State int

// Node states.
const (
	Pending State = iota
	Resolved
	Expanded
	Terminal
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Expanded:
		return "expanded"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type entry struct {
	node  oews.Node
	state State
	found bool
}

// Frontier is not safe for concurrent use; one worker owns one frontier.
type Frontier struct {
	key     string
	order   Order
	queue   []oews.Node
	head    int
	entries map[string]*entry
}

// New returns an empty frontier for the grouping key.
func New(key string, order Order) *Frontier {
	return &Frontier{key: key, order: order, entries: make(map[string]*entry)}
}

// Key returns the grouping key, the occupation code.
func (f *Frontier) Key() string {
	return f.key
}

// Push enqueues nodes never seen before and returns how many were accepted.
func (f *Frontier) Push(nodes ...oews.Node) int {
	accepted := 0
	for _, n := range nodes {
		if _, ok := f.entries[n.Code]; ok {
			continue
		}
		f.entries[n.Code] = &entry{node: n, state: Pending}
		f.queue = append(f.queue, n)
		accepted++
	}
	return accepted
}

// Pop removes the next pending node.
func (f *Frontier) Pop() (oews.Node, bool) {
	if f.Len() == 0 {
		return oews.Node{}, false
	}
	var n oews.Node
	if f.order == OrderLIFO {
		last := len(f.queue) - 1
		n = f.queue[last]
		f.queue = f.queue[:last]
	} else {
		n = f.queue[f.head]
		f.queue[f.head] = oews.Node{}
		f.head++
		if f.head > len(f.queue)/2 {
			f.queue = append(f.queue[:0], f.queue[f.head:]...)
			f.head = 0
		}
	}
	return n, true
}

// Len reports the number of queued nodes.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// Seen reports how many distinct codes were ever accepted.
func (f *Frontier) Seen() int {
	return len(f.entries)
}

// State returns the state of code.
func (f *Frontier) State(code string) (State, bool) {
	e, ok := f.entries[code]
	if !ok {
		return Pending, false
	}
	return e.state, true
}

// Resolve records whether the node's series returned data.
func (f *Frontier) Resolve(code string, found bool) error {
	e, err := f.expect(code, Pending)
	if err != nil {
		return err
	}
	e.state = Resolved
	e.found = found
	return nil
}

// Expand pushes the children of a found node and returns how many were new.
// Children must name code as their parent and sit one level deeper.
func (f *Frontier) Expand(code string, children []oews.Node) (int, error) {
	e, err := f.expect(code, Resolved)
	if err != nil {
		return 0, err
	}
	if !e.found {
		return 0, fmt.Errorf("frontier %s: expand %s: node has no data", f.key, code)
	}
	if !e.node.Expandable() {
		return 0, fmt.Errorf("frontier %s: expand %s: level %d is the deepest", f.key, code, e.node.Level)
	}
	for _, c := range children {
		if c.Parent != code || c.Level != e.node.Level+1 {
			return 0, fmt.Errorf("frontier %s: expand %s: %s is not a direct child", f.key, code, c.Code)
		}
	}
	e.state = Expanded
	return f.Push(children...), nil
}

// Terminate closes a resolved node without expanding it.
func (f *Frontier) Terminate(code string) error {
	e, err := f.expect(code, Resolved)
	if err != nil {
		return err
	}
	e.state = Terminal
	return nil
}

func (f *Frontier) expect(code string, want State) (*entry, error) {
	e, ok := f.entries[code]
	if !ok {
		return nil, fmt.Errorf("frontier %s: unknown node %s", f.key, code)
	}
	if e.state != want {
		return nil, fmt.Errorf("frontier %s: node %s is %s, want %s", f.key, code, e.state, want)
	}
	return e, nil
}
