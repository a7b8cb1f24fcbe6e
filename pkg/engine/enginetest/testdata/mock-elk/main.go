//go:build ignore

// Command mock-elk stands in for "elk-server --stdio" in tests.
//
// It reads one graph per line on stdin and answers with one layout per line
// on stdout, followed by the end-of-input diagnostic the real server prints
// on stderr. The layout is a deterministic layered arrangement: within each
// container, nodes are assigned to layers by longest path along the edges
// and layers run left to right.
//
// Graphs referencing unknown ids, or leaf nodes without a size, produce "{}"
// on stdout and an error line on stderr, like the real server.
//
// ELK_MOCK_MODE selects a failure mode:
//
//	error     - answer "{}" and report an exception on stderr
//	malformed - answer with a line that is not JSON
//	silent    - answer normally without the stderr trailer
//	crash     - report a fatal error on stderr and exit 3 on the first request
//	crash-once - like crash, but only for the first process; needs ELK_MOCK_STATE
//	hang      - read requests and never answer
//	slow      - answer normally after 300ms
//	echo-env  - answer with {"java_home": $JAVA_HOME, "args": os.Args[1:]}
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	trailer = "com.google.gson.JsonSyntaxException: java.io.EOFException: End of input at line 2 column 1 path $"
	padding = 12.0
	spacing = 40.0
)

type label struct {
	ID     string   `json:"id"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

type port struct {
	ID     string   `json:"id"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
	Labels []label  `json:"labels"`
}

type edge struct {
	ID      string   `json:"id"`
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
	Labels  []label  `json:"labels"`
}

type node struct {
	ID       string   `json:"id"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	Labels   []label  `json:"labels"`
	Ports    []port   `json:"ports"`
	Children []node   `json:"children"`
	Edges    []edge   `json:"edges"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type element struct {
	Position *point  `json:"position,omitempty"`
	Size     *size   `json:"size,omitempty"`
	Route    []point `json:"route,omitempty"`
}

type layouter struct {
	out   map[string]element
	owner map[string]string // port id -> node id
	known map[string]bool
}

func main() {
	mode := os.Getenv("ELK_MOCK_MODE")
	if mode == "crash-once" {
		state := os.Getenv("ELK_MOCK_STATE")
		if _, err := os.Stat(state); err == nil {
			mode = ""
		} else {
			_ = os.WriteFile(state, []byte("crashed"), 0o644)
			mode = "crash"
		}
	}

	in := bufio.NewReader(os.Stdin)
	for {
		line, err := in.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			if err == io.EOF {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		switch mode {
		case "hang":
			continue
		case "slow":
			time.Sleep(300 * time.Millisecond)
		case "crash":
			fmt.Fprintln(os.Stderr, "Exception in thread \"main\" java.lang.OutOfMemoryError: Java heap space")
			os.Exit(3)
		case "malformed":
			fmt.Println("this is not json")
			fmt.Fprintln(os.Stderr, trailer)
			continue
		case "error":
			fmt.Println("{}")
			fmt.Fprintln(os.Stderr, "org.eclipse.elk.core.UnsupportedGraphException: mock failure")
			continue
		case "echo-env":
			data, _ := json.Marshal(map[string]any{"java_home": os.Getenv("JAVA_HOME"), "args": os.Args[1:]})
			fmt.Println(string(data))
			fmt.Fprintln(os.Stderr, trailer)
			continue
		}

		out, lerr := layout(line)
		if lerr != nil {
			fmt.Println("{}")
			fmt.Fprintln(os.Stderr, "org.eclipse.elk.graph.json.JsonImportException: "+lerr.Error())
			continue
		}
		data, _ := json.Marshal(out)
		os.Stdout.Write(append(data, '\n'))
		if mode != "silent" {
			// The real server writes its trailer shortly after the response.
			time.Sleep(5 * time.Millisecond)
			fmt.Fprintln(os.Stderr, trailer)
		}
	}
}

func layout(line []byte) (map[string]element, error) {
	var root node
	if err := json.Unmarshal(line, &root); err != nil {
		return nil, err
	}
	l := &layouter{
		out:   map[string]element{},
		owner: map[string]string{},
		known: map[string]bool{},
	}
	l.index(root)
	w, h, err := l.container(root)
	if err != nil {
		return nil, err
	}
	l.out[root.ID] = element{Position: &point{}, Size: &size{w, h}}
	return l.out, nil
}

func (l *layouter) index(n node) {
	l.known[n.ID] = true
	for _, p := range n.Ports {
		l.known[p.ID] = true
		l.owner[p.ID] = n.ID
	}
	for _, c := range n.Children {
		l.index(c)
	}
}

// container lays out n's children and edges relative to n and returns n's
// size.
func (l *layouter) container(n node) (float64, float64, error) {
	sizes := map[string]size{}
	var order []string
	for _, c := range n.Children {
		var s size
		if len(c.Children) > 0 {
			w, h, err := l.container(c)
			if err != nil {
				return 0, 0, err
			}
			s = size{w, h}
		} else {
			if c.Width == nil || c.Height == nil {
				return 0, 0, fmt.Errorf("node %q has no size", c.ID)
			}
			s = size{*c.Width, *c.Height}
		}
		sizes[c.ID] = s
		order = append(order, c.ID)
		l.ports(c, s)
	}

	for _, e := range n.Edges {
		for _, ref := range append(append([]string{}, e.Sources...), e.Targets...) {
			if !l.known[ref] {
				return 0, 0, fmt.Errorf("edge %q references unknown element %q", e.ID, ref)
			}
		}
	}

	layer := l.layers(n, sizes, order)

	var widths []float64
	for _, id := range order {
		for len(widths) <= layer[id] {
			widths = append(widths, 0)
		}
		widths[layer[id]] = max(widths[layer[id]], sizes[id].Width)
	}
	xs := make([]float64, len(widths))
	x := padding
	for i, w := range widths {
		xs[i] = x
		x += w + spacing
	}

	ys := map[int]float64{}
	maxX, maxY := 0.0, 0.0
	for _, id := range order {
		li := layer[id]
		if _, ok := ys[li]; !ok {
			ys[li] = padding
		}
		pos := point{xs[li], ys[li]}
		s := sizes[id]
		l.out[id] = element{Position: &pos, Size: &s}
		ys[li] += s.Height + spacing/2
		maxX = max(maxX, pos.X+s.Width)
		maxY = max(maxY, pos.Y+s.Height)
	}

	for _, e := range n.Edges {
		l.out[e.ID] = element{Route: l.route(e)}
		for _, lb := range e.Labels {
			l.label(lb)
		}
	}
	for _, lb := range n.Labels {
		l.label(lb)
	}

	if len(order) == 0 {
		return 2 * padding, 2 * padding, nil
	}
	return maxX + padding, maxY + padding, nil
}

// layers assigns each child its longest-path distance from a source.
func (l *layouter) layers(n node, sizes map[string]size, order []string) map[string]int {
	layer := map[string]int{}
	for _, id := range order {
		layer[id] = 0
	}
	for range order {
		changed := false
		for _, e := range n.Edges {
			for _, s := range e.Sources {
				for _, t := range e.Targets {
					src, tgt := l.node(s), l.node(t)
					_, okS := sizes[src]
					_, okT := sizes[tgt]
					if !okS || !okT || src == tgt {
						continue
					}
					if layer[tgt] < layer[src]+1 {
						layer[tgt] = layer[src] + 1
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}
	return layer
}

func (l *layouter) node(id string) string {
	if owner, ok := l.owner[id]; ok {
		return owner
	}
	return id
}

func (l *layouter) ports(n node, s size) {
	for i, p := range n.Ports {
		ps := size{}
		if p.Width != nil {
			ps.Width = *p.Width
		}
		if p.Height != nil {
			ps.Height = *p.Height
		}
		pos := point{s.Width, s.Height * float64(i+1) / float64(len(n.Ports)+1)}
		l.out[p.ID] = element{Position: &pos, Size: &ps}
		for _, lb := range p.Labels {
			l.label(lb)
		}
	}
	for _, lb := range n.Labels {
		l.label(lb)
	}
}

func (l *layouter) label(lb label) {
	if lb.ID == "" {
		return
	}
	s := size{}
	if lb.Width != nil {
		s.Width = *lb.Width
	}
	if lb.Height != nil {
		s.Height = *lb.Height
	}
	l.out[lb.ID] = element{Position: &point{}, Size: &s}
}

func (l *layouter) route(e edge) []point {
	start := l.anchor(e.Sources[0], true)
	end := l.anchor(e.Targets[0], false)
	return []point{start, end}
}

// anchor returns the right-middle (source) or left-middle (target) point of
// an already placed element.
func (l *layouter) anchor(id string, source bool) point {
	el, ok := l.out[l.node(id)]
	if !ok || el.Position == nil {
		return point{}
	}
	y := el.Position.Y + el.Size.Height/2
	if source {
		return point{el.Position.X + el.Size.Width, y}
	}
	return point{el.Position.X, y}
}
