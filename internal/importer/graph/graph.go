// Package graph implements the import pipeline's dependency graph.
// Nodes are keyed by canonical file path and hold the parsed entity
// document; an edge A -> B means A depends on B, so B must be saved first.
package graph

import (
	"fmt"

	apperrors "github.com/platewise/platewise/pkg/errors"
)

// Node is a graph vertex: a canonical path and its parsed document
type Node struct {
	Key   string
	Value interface{}
}

// Graph is a directed dependency graph. Not safe for concurrent use;
// the import pipeline is single-writer.
type Graph struct {
	nodes map[string]*Node
	edges map[string][]string // insertion-ordered adjacency
	order []string            // node insertion order
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
	}
}

// AddNode registers a node. Re-adding an existing key is a no-op and the
// original value is kept.
func (g *Graph) AddNode(key string, value interface{}) {
	if _, exists := g.nodes[key]; exists {
		return
	}
	g.nodes[key] = &Node{Key: key, Value: value}
	g.order = append(g.order, key)
}

// Node returns the node for a key
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Keys returns all node keys in insertion order
func (g *Graph) Keys() []string {
	keys := make([]string, len(g.order))
	copy(keys, g.order)
	return keys
}

// SetDependency records that from depends on to. Both nodes must exist.
func (g *Graph) SetDependency(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("dependency source %q is not in the graph", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("dependency target %q is not in the graph", to)
	}
	for _, existing := range g.edges[from] {
		if existing == to {
			return nil
		}
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

// visit colours for cycle detection
type colour uint8

const (
	white colour = iota // unvisited
	grey                // on the current DFS stack
	black               // fully explored
)

// Dependencies returns the transitive dependencies of a node in DFS
// post-order: every entry appears after all of its own dependencies.
// A back edge to a node on the DFS stack fails with DependencyCycle
// carrying the full cycle path X -> Y -> ... -> X.
func (g *Graph) Dependencies(of string) ([]string, error) {
	if _, ok := g.nodes[of]; !ok {
		return nil, fmt.Errorf("node %q is not in the graph", of)
	}

	colours := make(map[string]colour, len(g.nodes))
	var ordered []string
	var stack []string

	var visit func(key string) error
	visit = func(key string) error {
		switch colours[key] {
		case black:
			return nil
		case grey:
			return apperrors.NewDependencyCycleError(cyclePath(stack, key))
		}
		colours[key] = grey
		stack = append(stack, key)
		for _, dep := range g.edges[key] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		colours[key] = black
		if key != of {
			ordered = append(ordered, key)
		}
		return nil
	}

	if err := visit(of); err != nil {
		return nil, err
	}
	return ordered, nil
}

// TopoOrder returns every node in a valid commit order: dependencies
// before dependents. Fails with DependencyCycle if the graph is cyclic.
func (g *Graph) TopoOrder() ([]string, error) {
	colours := make(map[string]colour, len(g.nodes))
	var ordered []string
	var stack []string

	var visit func(key string) error
	visit = func(key string) error {
		switch colours[key] {
		case black:
			return nil
		case grey:
			return apperrors.NewDependencyCycleError(cyclePath(stack, key))
		}
		colours[key] = grey
		stack = append(stack, key)
		for _, dep := range g.edges[key] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		colours[key] = black
		ordered = append(ordered, key)
		return nil
	}

	for _, key := range g.order {
		if err := visit(key); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// FindPath searches for any dependency path between two nodes by
// backtracking. Used for diagnostic reports only.
func (g *Graph) FindPath(from, to string) ([]string, bool) {
	if _, ok := g.nodes[from]; !ok {
		return nil, false
	}
	visited := make(map[string]bool)

	var walk func(key string, path []string) ([]string, bool)
	walk = func(key string, path []string) ([]string, bool) {
		path = append(path, key)
		if key == to {
			return path, true
		}
		visited[key] = true
		for _, next := range g.edges[key] {
			if visited[next] {
				continue
			}
			if found, ok := walk(next, path); ok {
				return found, true
			}
		}
		return nil, false
	}

	return walk(from, nil)
}

// cyclePath extracts the cycle X -> ... -> X from the DFS stack
func cyclePath(stack []string, repeat string) []string {
	start := 0
	for i, key := range stack {
		if key == repeat {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	path = append(path, stack[start:]...)
	path = append(path, repeat)
	return path
}
