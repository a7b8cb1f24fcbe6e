package elk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Point is a coordinate in the engine's coordinate system (y grows downward).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimension is the size of a shape.
type Dimension struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ShapeLayout is the computed placement of a shape.
type ShapeLayout struct {
	Position Point     `json:"position"`
	Size     Dimension `json:"size"`
}

// EdgeLayout is the computed route of an edge.
type EdgeLayout struct {
	Route []Point `json:"route"`
}

// Kind discriminates the variants of [Element].
type Kind int

const (
	KindShape Kind = iota + 1
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindShape:
		return "shape"
	case KindEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// Element is the layout of one graph element: exactly one of Shape or Edge is
// set, as indicated by Kind.
type Element struct {
	Kind  Kind
	Shape ShapeLayout
	Edge  EdgeLayout
}

// ShapeElement builds a shape variant.
func ShapeElement(x, y, w, h float64) Element {
	return Element{Kind: KindShape, Shape: ShapeLayout{Position: Point{x, y}, Size: Dimension{w, h}}}
}

// EdgeElement builds an edge variant.
func EdgeElement(route ...Point) Element {
	return Element{Kind: KindEdge, Edge: EdgeLayout{Route: route}}
}

// wireElement is the union of both variants as they appear on the wire.
type wireElement struct {
	Position *Point     `json:"position,omitempty"`
	Size     *Dimension `json:"size,omitempty"`
	Route    []Point    `json:"route,omitempty"`
}

// MarshalJSON encodes the active variant only.
func (e Element) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindShape:
		return json.Marshal(e.Shape)
	case KindEdge:
		return json.Marshal(e.Edge)
	default:
		return nil, fmt.Errorf("elk: cannot encode element of kind %v", e.Kind)
	}
}

// UnmarshalJSON discriminates on field presence: position and size make a
// shape, route makes an edge. Anything else is rejected.
func (e *Element) UnmarshalJSON(data []byte) error {
	var w wireElement
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Position != nil && w.Size != nil:
		*e = Element{Kind: KindShape, Shape: ShapeLayout{Position: *w.Position, Size: *w.Size}}
	case w.Route != nil:
		if len(w.Route) < 2 {
			return fmt.Errorf("elk: edge route has %d points, need at least 2", len(w.Route))
		}
		*e = Element{Kind: KindEdge, Edge: EdgeLayout{Route: w.Route}}
	default:
		return fmt.Errorf("elk: element has neither position+size nor route")
	}
	return nil
}

// Layout maps element ids to their computed layout.
type Layout map[string]Element

// ParseLayout decodes an engine response into a Layout.
func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("elk: layout response is not an object")
	}
	return l, nil
}

// Shape returns the shape layout for id.
func (l Layout) Shape(id string) (ShapeLayout, bool) {
	e, ok := l[id]
	if !ok || e.Kind != KindShape {
		return ShapeLayout{}, false
	}
	return e.Shape, true
}

// Edge returns the edge layout for id.
func (l Layout) Edge(id string) (EdgeLayout, bool) {
	e, ok := l[id]
	if !ok || e.Kind != KindEdge {
		return EdgeLayout{}, false
	}
	return e.Edge, true
}

// IDs returns the element ids in sorted order.
func (l Layout) IDs() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Missing returns the ids of g that have no entry in l.
func (l Layout) Missing(g *Graph) []string {
	var missing []string
	for _, id := range g.IDs() {
		if _, ok := l[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Counts returns the number of shape and edge entries.
func (l Layout) Counts() (shapes, edges int) {
	for _, e := range l {
		switch e.Kind {
		case KindShape:
			shapes++
		case KindEdge:
			edges++
		}
	}
	return shapes, edges
}

// MarshalIndent encodes l as indented JSON with sorted keys.
func (l Layout) MarshalIndent() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteLayoutFile writes l to path as indented JSON.
func WriteLayoutFile(l Layout, path string) error {
	data, err := l.MarshalIndent()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
