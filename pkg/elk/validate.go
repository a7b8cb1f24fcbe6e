package elk

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/elkbridge/pkg/errors"
)

// Validate checks the graph against the ELK JSON schema and reports every
// offending field at once. It returns nil for a valid graph, otherwise an
// ErrCodeValidation error wrapping [errors.FieldErrors].
func (g *Graph) Validate() error {
	v := validator{seen: make(map[string]string)}
	v.id("id", g.ID)
	v.options("layoutOptions", g.LayoutOptions)
	for i := range g.Children {
		v.node(fmt.Sprintf("children[%d]", i), &g.Children[i])
	}
	for i := range g.Edges {
		v.edge(fmt.Sprintf("edges[%d]", i), &g.Edges[i])
	}
	return v.errs.Err("graph")
}

type validator struct {
	errs errors.FieldErrors
	seen map[string]string // element id -> path of first occurrence
}

func (v *validator) id(path, id string) {
	if strings.TrimSpace(id) == "" {
		v.errs.Add(path, "is required")
		return
	}
	if first, dup := v.seen[id]; dup {
		v.errs.Add(path, "duplicate id %q (first used at %s)", id, first)
		return
	}
	v.seen[id] = path
}

func (v *validator) node(path string, n *Node) {
	v.id(path+".id", n.ID)
	v.coords(path, n.X, n.Y)
	v.size(path, n.Width, n.Height)
	v.options(path+".layoutOptions", n.LayoutOptions)
	for i := range n.Labels {
		v.label(fmt.Sprintf("%s.labels[%d]", path, i), &n.Labels[i])
	}
	for i := range n.Ports {
		v.port(fmt.Sprintf("%s.ports[%d]", path, i), &n.Ports[i])
	}
	for i := range n.Children {
		v.node(fmt.Sprintf("%s.children[%d]", path, i), &n.Children[i])
	}
	for i := range n.Edges {
		v.edge(fmt.Sprintf("%s.edges[%d]", path, i), &n.Edges[i])
	}
}

func (v *validator) port(path string, p *Port) {
	v.id(path+".id", p.ID)
	v.coords(path, p.X, p.Y)
	v.size(path, p.Width, p.Height)
	v.options(path+".layoutOptions", p.LayoutOptions)
	for i := range p.Labels {
		v.label(fmt.Sprintf("%s.labels[%d]", path, i), &p.Labels[i])
	}
}

func (v *validator) label(path string, l *Label) {
	if l.ID != "" {
		v.id(path+".id", l.ID)
	}
	if l.Text == "" {
		v.errs.Add(path+".text", "is required")
	}
	v.coords(path, l.X, l.Y)
	v.size(path, l.Width, l.Height)
}

func (v *validator) edge(path string, e *Edge) {
	v.id(path+".id", e.ID)
	v.endpoints(path+".sources", e.Sources)
	v.endpoints(path+".targets", e.Targets)
	v.options(path+".layoutOptions", e.LayoutOptions)
	for i := range e.Labels {
		v.label(fmt.Sprintf("%s.labels[%d]", path, i), &e.Labels[i])
	}
}

func (v *validator) endpoints(path string, ids []string) {
	if len(ids) == 0 {
		v.errs.Add(path, "must reference at least one element")
		return
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			v.errs.Add(fmt.Sprintf("%s[%d]", path, i), "must not be blank")
		}
	}
}

func (v *validator) coords(path string, x, y *float64) {
	v.finite(path+".x", x)
	v.finite(path+".y", y)
}

func (v *validator) size(path string, w, h *float64) {
	for _, d := range []struct {
		name string
		val  *float64
	}{{"width", w}, {"height", h}} {
		if !v.finite(path+"."+d.name, d.val) {
			continue
		}
		if d.val != nil && *d.val < 0 {
			v.errs.Add(path+"."+d.name, "must be >= 0, got %g", *d.val)
		}
	}
}

func (v *validator) finite(path string, f *float64) bool {
	if f != nil && (math.IsNaN(*f) || math.IsInf(*f, 0)) {
		v.errs.Add(path, "must be a finite number")
		return false
	}
	return true
}

func (v *validator) options(path string, o LayoutOptions) {
	for k, val := range o {
		if strings.TrimSpace(k) == "" {
			v.errs.Add(path, "option key must not be blank")
			continue
		}
		switch val.(type) {
		case string, bool, float64, int, json.Number:
		default:
			v.errs.Add(path+"."+k, "must be a string, number or boolean")
		}
	}
}
