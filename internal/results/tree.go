// Package results turns the host's asynchronously populated test result tree
// into a flat, classified summary, with bounded retry while the tree fills in.
package results

import (
	"strings"
	"sync"
)

// LeafState is the raw outcome the host reports for a terminal test case.
type LeafState int

const (
	LeafPassed LeafState = iota
	LeafIgnored
	LeafFailed
)

// Node is one element of the result tree. Suite nodes are containers to
// recurse into; leaf nodes are terminal cases carrying an outcome and any
// captured diagnostic text.
type Node struct {
	Name        string
	Suite       bool
	Children    []*Node
	State       LeafState
	Diagnostics string
	DurationMs  int64
}

// Tree is the shared structure the host's reporting pipeline populates while
// the extraction side polls it. Empty until the first root arrives.
type Tree struct {
	mu    sync.Mutex
	roots []*Node
}

func NewTree() *Tree {
	return &Tree{}
}

func (t *Tree) AddRoot(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roots = append(t.roots, n)
}

// Roots returns a snapshot of the current root nodes.
func (t *Tree) Roots() []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// CaseStatus is the classified outcome of a terminal case.
type CaseStatus string

const (
	StatusPassed  CaseStatus = "passed"
	StatusIgnored CaseStatus = "ignored"
	StatusFailed  CaseStatus = "failed"
)

// DefectKind distinguishes an assertion failure from an unexpected exception,
// based on the captured diagnostic text.
type DefectKind string

const (
	DefectNone      DefectKind = ""
	DefectAssertion DefectKind = "assertion"
	DefectException DefectKind = "exception"
)

var assertionMarkers = []string{
	"assertionerror",
	"assertionfailederror",
	"assert",
	"expected:",
	"expected <",
}

func classifyDefect(diagnostics string) DefectKind {
	lower := strings.ToLower(diagnostics)
	for _, marker := range assertionMarkers {
		if strings.Contains(lower, marker) {
			return DefectAssertion
		}
	}
	return DefectException
}

// CaseResult is one classified terminal case.
type CaseResult struct {
	Name       string
	Status     CaseStatus
	Defect     DefectKind
	Message    string
	DurationMs int64
}

// Summary is the flattened result of a test operation.
type Summary struct {
	Cases   []CaseResult
	Passed  int
	Failed  int
	Ignored int

	// Synthetic is true when the summary was derived from the process exit
	// code because the result tree never populated.
	Synthetic bool
}

func flatten(roots []*Node) Summary {
	var s Summary
	for _, root := range roots {
		collect(root, "", &s)
	}
	return s
}

func collect(n *Node, prefix string, s *Summary) {
	name := n.Name
	if prefix != "" {
		name = prefix + "." + n.Name
	}

	if n.Suite {
		for _, child := range n.Children {
			collect(child, name, s)
		}
		return
	}

	c := CaseResult{
		Name:       name,
		DurationMs: n.DurationMs,
	}
	switch n.State {
	case LeafPassed:
		c.Status = StatusPassed
		s.Passed++
	case LeafIgnored:
		c.Status = StatusIgnored
		s.Ignored++
	case LeafFailed:
		c.Status = StatusFailed
		c.Defect = classifyDefect(n.Diagnostics)
		c.Message = n.Diagnostics
		s.Failed++
	}
	s.Cases = append(s.Cases, c)
}
