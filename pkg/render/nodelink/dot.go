package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/errors"
)

// Options configures diagram generation.
type Options struct {
	// Labels writes the first label of each node and edge. When false,
	// nodes show their id.
	Labels bool
	// Ports draws ports as small boxes on their node's border.
	Ports bool
}

// ToDOT converts a graph and its layout to Graphviz DOT with pinned node
// positions. Every node (and port, if enabled) must have a shape entry in l.
func ToDOT(g *elk.Graph, l elk.Layout, opts Options) (string, error) {
	root, ok := l.Shape(g.ID)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "layout has no shape for root %q", g.ID)
	}
	height := root.Size.Height

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  notranslate=true;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fixedsize=true, fontsize=10, pin=true];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")

	owner := map[string]string{}
	var missing []string
	var writeNode func(n *elk.Node)
	writeNode = func(n *elk.Node) {
		s, ok := l.Shape(n.ID)
		if !ok {
			missing = append(missing, n.ID)
			return
		}
		attrs := []string{
			fmt.Sprintf("label=%q", nodeLabel(n, opts)),
			pinned(s, height),
		}
		if len(n.Children) > 0 {
			attrs = append(attrs, "fillcolor=\"#f3f4f6\"", "labelloc=t")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))

		for i := range n.Ports {
			p := &n.Ports[i]
			owner[p.ID] = n.ID
			if !opts.Ports {
				continue
			}
			ps, ok := l.Shape(p.ID)
			if !ok {
				missing = append(missing, p.ID)
				continue
			}
			fmt.Fprintf(&buf, "  %q [label=\"\", shape=rect, style=filled, fillcolor=black, %s];\n", p.ID, pinned(ps, height))
		}
		for i := range n.Children {
			writeNode(&n.Children[i])
		}
	}
	for i := range g.Children {
		writeNode(&g.Children[i])
	}
	if len(missing) > 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "layout has no shape for %s", strings.Join(missing, ", "))
	}

	endpoint := func(id string) string {
		if n, ok := owner[id]; ok && !opts.Ports {
			return n
		}
		return id
	}
	for _, e := range g.AllEdges() {
		var attrs []string
		if opts.Labels && len(e.Labels) > 0 {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Labels[0].Text))
		}
		for _, src := range e.Sources {
			for _, dst := range e.Targets {
				fmt.Fprintf(&buf, "  %q -> %q", endpoint(src), endpoint(dst))
				if len(attrs) > 0 {
					fmt.Fprintf(&buf, " [%s]", strings.Join(attrs, ", "))
				}
				buf.WriteString(";\n")
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func nodeLabel(n *elk.Node, opts Options) string {
	if opts.Labels && len(n.Labels) > 0 {
		return n.Labels[0].Text
	}
	return n.ID
}

// pinned returns the pos, width and height attributes for s. Graphviz
// positions are node centers with y up; sizes are inches.
func pinned(s elk.ShapeLayout, height float64) string {
	cx := s.Position.X + s.Size.Width/2
	cy := height - (s.Position.Y + s.Size.Height/2)
	return fmt.Sprintf("pos=\"%s,%s!\", width=%s, height=%s",
		num(cx), num(cy), num(s.Size.Width/72), num(s.Size.Height/72))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG with the neato engine, which respects
// pinned positions.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a
// unitless one so the SVG scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
