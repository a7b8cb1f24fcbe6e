package elk

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/matzehuels/elkbridge/pkg/errors"
)

// AlgorithmOption is the layoutOptions key that selects the layout algorithm.
const AlgorithmOption = "elk.algorithm"

// Properties holds element properties in the legacy "properties" object.
type Properties struct {
	Algorithm string `json:"algorithm,omitempty"`
}

// LayoutOptions maps ELK option ids (e.g. "elk.direction") to scalar values.
type LayoutOptions map[string]any

// Graph is the root of an ELK graph document.
type Graph struct {
	ID            string        `json:"id"`
	LayoutOptions LayoutOptions `json:"layoutOptions,omitempty"`
	Properties    *Properties   `json:"properties,omitempty"`
	Children      []Node        `json:"children,omitempty"`
	Edges         []Edge        `json:"edges,omitempty"`
}

// Node is a shape inside the graph. Nodes may nest.
type Node struct {
	ID            string        `json:"id"`
	X             *float64      `json:"x,omitempty"`
	Y             *float64      `json:"y,omitempty"`
	Width         *float64      `json:"width,omitempty"`
	Height        *float64      `json:"height,omitempty"`
	LayoutOptions LayoutOptions `json:"layoutOptions,omitempty"`
	Properties    *Properties   `json:"properties,omitempty"`
	Labels        []Label       `json:"labels,omitempty"`
	Ports         []Port        `json:"ports,omitempty"`
	Children      []Node        `json:"children,omitempty"`
	Edges         []Edge        `json:"edges,omitempty"`
}

// Port is an attachment point on a node's border.
type Port struct {
	ID            string        `json:"id"`
	X             *float64      `json:"x,omitempty"`
	Y             *float64      `json:"y,omitempty"`
	Width         *float64      `json:"width,omitempty"`
	Height        *float64      `json:"height,omitempty"`
	LayoutOptions LayoutOptions `json:"layoutOptions,omitempty"`
	Properties    *Properties   `json:"properties,omitempty"`
	Labels        []Label       `json:"labels,omitempty"`
}

// Label is text attached to a node, port or edge.
type Label struct {
	ID     string   `json:"id,omitempty"`
	Text   string   `json:"text"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// Edge connects one or more sources to one or more targets.
type Edge struct {
	ID            string        `json:"id"`
	Sources       []string      `json:"sources"`
	Targets       []string      `json:"targets"`
	LayoutOptions LayoutOptions `json:"layoutOptions,omitempty"`
	Properties    *Properties   `json:"properties,omitempty"`
	Labels        []Label       `json:"labels,omitempty"`
}

// Float returns a pointer to v, for populating optional coordinates.
func Float(v float64) *float64 { return &v }

// ParseGraph decodes a graph document and validates it.
// Decoding failures are reported as ErrCodeInvalidInput; schema violations
// as ErrCodeValidation with the offending fields attached.
func ParseGraph(data []byte) (*Graph, error) {
	var g Graph
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&g); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode graph")
	}
	normalizeOptions(&g)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// ReadGraphFile loads and validates a graph document from path.
func ReadGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGraph(data)
}

// Marshal encodes g as a single-line JSON document with absent fields omitted.
func (g *Graph) Marshal() ([]byte, error) {
	return json.Marshal(g)
}

// Algorithm returns the layout algorithm requested on the root, preferring
// layoutOptions over the legacy properties object. Empty means engine default.
func (g *Graph) Algorithm() string {
	if v, ok := g.LayoutOptions[AlgorithmOption].(string); ok {
		return v
	}
	if g.Properties != nil {
		return g.Properties.Algorithm
	}
	return ""
}

// SetAlgorithm sets the root layout algorithm.
func (g *Graph) SetAlgorithm(name string) {
	if g.LayoutOptions == nil {
		g.LayoutOptions = LayoutOptions{}
	}
	g.LayoutOptions[AlgorithmOption] = name
}

// Walk calls fn for every node in depth-first order.
func (g *Graph) Walk(fn func(n *Node)) {
	var walk func(ns []Node)
	walk = func(ns []Node) {
		for i := range ns {
			fn(&ns[i])
			walk(ns[i].Children)
		}
	}
	walk(g.Children)
}

// AllEdges returns every edge in the graph, including those nested in nodes.
func (g *Graph) AllEdges() []Edge {
	edges := append([]Edge(nil), g.Edges...)
	g.Walk(func(n *Node) { edges = append(edges, n.Edges...) })
	return edges
}

// IDs returns the ids of the root, every node and every edge.
// These are the ids a successful layout must contain.
func (g *Graph) IDs() []string {
	ids := []string{g.ID}
	g.Walk(func(n *Node) { ids = append(ids, n.ID) })
	for _, e := range g.AllEdges() {
		ids = append(ids, e.ID)
	}
	return ids
}

// normalizeOptions converts json.Number option values to float64 so that
// validated graphs carry plain Go scalars.
func normalizeOptions(g *Graph) {
	fix := func(o LayoutOptions) {
		for k, v := range o {
			if n, ok := v.(json.Number); ok {
				if f, err := n.Float64(); err == nil {
					o[k] = f
				}
			}
		}
	}
	fix(g.LayoutOptions)
	fixEdges := func(es []Edge) {
		for i := range es {
			fix(es[i].LayoutOptions)
		}
	}
	fixEdges(g.Edges)
	g.Walk(func(n *Node) {
		fix(n.LayoutOptions)
		for i := range n.Ports {
			fix(n.Ports[i].LayoutOptions)
		}
		fixEdges(n.Edges)
	})
}
