package queue

import (
	"fmt"
	"sort"
)

// TypeDefinition declares a task type and the types it may enqueue on success.
type TypeDefinition struct {
	Name          string
	Category      string
	Continuations []string
}

// Graph is the declared set of task types and their on-success edges.
type Graph struct {
	types map[string]TypeDefinition
}

// NewGraph builds a graph from definitions. Call Validate before use.
func NewGraph(defs ...TypeDefinition) *Graph {
	g := &Graph{types: make(map[string]TypeDefinition, len(defs))}
	for _, def := range defs {
		g.Add(def)
	}
	return g
}

// Add declares or replaces a task type.
func (g *Graph) Add(def TypeDefinition) {
	def.Continuations = append([]string(nil), def.Continuations...)
	g.types[def.Name] = def
}

// Has reports whether the type is declared.
func (g *Graph) Has(name string) bool {
	_, ok := g.types[name]
	return ok
}

// Types returns the declared type names in sorted order.
func (g *Graph) Types() []string {
	names := make([]string, 0, len(g.types))
	for name := range g.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the declaration of a type.
func (g *Graph) Definition(name string) (TypeDefinition, bool) {
	def, ok := g.types[name]
	return def, ok
}

// Allowed reports whether from may enqueue to on success.
func (g *Graph) Allowed(from, to string) bool {
	def, ok := g.types[from]
	if !ok {
		return false
	}
	for _, c := range def.Continuations {
		if c == to {
			return true
		}
	}
	return false
}

// CheckEdge returns an UndeclaredEdgeError when from -> to is not declared.
func (g *Graph) CheckEdge(from, to string) error {
	if !g.Allowed(from, to) {
		return &UndeclaredEdgeError{From: from, To: to}
	}
	return nil
}

// Validate rejects edges to unknown types and cycles.
func (g *Graph) Validate() error {
	for _, name := range g.Types() {
		for _, next := range g.types[name].Continuations {
			if !g.Has(next) {
				return &GraphError{Type: name, Message: fmt.Sprintf("unknown continuation type %q", next)}
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.types))
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return &GraphError{Type: name, Message: "cycle detected"}
		case done:
			return nil
		}
		state[name] = visiting
		for _, next := range g.types[name].Continuations {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, name := range g.Types() {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
