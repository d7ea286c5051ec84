// Package graph holds the prerequisite-constrained knowledge graph. A Graph is
// immutable once built and is guaranteed acyclic: construction fails fast on a
// prerequisite cycle.
package graph

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/model"
)

// DefaultThreshold is the mastery a prerequisite needs before its dependents
// become available.
const DefaultThreshold = 0.6

// Graph is a DAG of concepts connected by prerequisite → dependent edges.
type Graph struct {
	order      []string
	concepts   map[string]model.Concept
	dependents map[string][]string
	depth      map[string]int
}

// New builds a graph from concepts given in canonical (declaration) order.
// It rejects empty or duplicate ids, prerequisites that name undeclared
// concepts, and prerequisite cycles.
func New(concepts []model.Concept) (*Graph, error) {
	g := &Graph{
		order:      make([]string, 0, len(concepts)),
		concepts:   make(map[string]model.Concept, len(concepts)),
		dependents: make(map[string][]string, len(concepts)),
		depth:      make(map[string]int, len(concepts)),
	}

	for _, c := range concepts {
		if strings.TrimSpace(c.ID) == "" {
			return nil, eris.Wrap(apperr.ErrFormat, "graph: concept with empty id")
		}
		if _, dup := g.concepts[c.ID]; dup {
			return nil, eris.Wrapf(apperr.ErrFormat, "graph: duplicate concept %q", c.ID)
		}
		c.Prerequisites = slices.Clone(c.Prerequisites)
		c.CommonErrors = slices.Clone(c.CommonErrors)
		g.concepts[c.ID] = c
		g.order = append(g.order, c.ID)
	}

	for _, id := range g.order {
		for _, p := range g.concepts[id].Prerequisites {
			if _, ok := g.concepts[p]; !ok {
				return nil, eris.Wrapf(apperr.ErrFormat, "graph: concept %q requires undeclared concept %q", id, p)
			}
			g.dependents[p] = append(g.dependents[p], id)
		}
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// sort runs Kahn's algorithm over the canonical order, filling in depths.
// Any concept left unprocessed sits on or behind a cycle.
func (g *Graph) sort() error {
	indegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indegree[id] = len(g.concepts[id].Prerequisites)
	}

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
			g.depth[id] = 0
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, dep := range g.dependents[id] {
			if d := g.depth[id] + 1; d > g.depth[dep] {
				g.depth[dep] = d
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed == len(g.order) {
		return nil
	}

	remaining := make(map[string]bool)
	for _, id := range g.order {
		if indegree[id] > 0 {
			remaining[id] = true
		}
	}
	return eris.Wrap(&apperr.CycleError{Path: g.findCycle(remaining)}, "graph")
}

// findCycle walks prerequisite edges inside the unprocessed set until a
// concept repeats. Every unprocessed concept has an unprocessed prerequisite,
// so the walk always closes.
func (g *Graph) findCycle(remaining map[string]bool) []string {
	var start string
	for _, id := range g.order {
		if remaining[id] {
			start = id
			break
		}
	}

	seen := map[string]int{}
	var path []string
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			cycle := append(slices.Clone(path[at:]), cur)
			slices.Reverse(cycle)
			return cycle
		}
		seen[cur] = len(path)
		path = append(path, cur)
		for _, p := range g.concepts[cur].Prerequisites {
			if remaining[p] {
				cur = p
				break
			}
		}
	}
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	return len(g.order)
}

// IDs returns concept ids in canonical order.
func (g *Graph) IDs() []string {
	return slices.Clone(g.order)
}

// Concept returns the concept with the given id.
func (g *Graph) Concept(id string) (model.Concept, error) {
	c, ok := g.concepts[id]
	if !ok {
		return model.Concept{}, eris.Wrapf(apperr.ErrNotFound, "graph: concept %q", id)
	}
	c.Prerequisites = slices.Clone(c.Prerequisites)
	c.CommonErrors = slices.Clone(c.CommonErrors)
	return c, nil
}

// ConceptName returns the display name of a concept.
func (g *Graph) ConceptName(id string) (string, error) {
	c, ok := g.concepts[id]
	if !ok {
		return "", eris.Wrapf(apperr.ErrNotFound, "graph: concept %q", id)
	}
	return c.Name, nil
}

// CommonErrors returns the misconception vocabulary of a concept.
func (g *Graph) CommonErrors(id string) ([]string, error) {
	c, ok := g.concepts[id]
	if !ok {
		return nil, eris.Wrapf(apperr.ErrNotFound, "graph: concept %q", id)
	}
	return slices.Clone(c.CommonErrors), nil
}

// Depth returns the length of the longest prerequisite chain below a
// concept. Roots have depth 0.
func (g *Graph) Depth(id string) (int, error) {
	d, ok := g.depth[id]
	if !ok {
		return 0, eris.Wrapf(apperr.ErrNotFound, "graph: concept %q", id)
	}
	return d, nil
}

// Dependents returns the concepts that list id as a prerequisite, in
// canonical order.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// AvailableConcepts returns, in canonical order, every concept whose
// prerequisites all have mastery >= threshold. Unseen concepts count as 0.0.
// A concept without prerequisites is always available.
func (g *Graph) AvailableConcepts(mastery map[string]float64, threshold float64) []string {
	var available []string
	for _, id := range g.order {
		ok := true
		for _, p := range g.concepts[id].Prerequisites {
			if mastery[p] < threshold {
				ok = false
				break
			}
		}
		if ok {
			available = append(available, id)
		}
	}
	return available
}
