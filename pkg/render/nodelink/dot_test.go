package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/errors"
)

func sampleGraph() (*elk.Graph, elk.Layout) {
	g := &elk.Graph{
		ID: "root",
		Children: []elk.Node{
			{ID: "n1", Width: elk.Float(30), Height: elk.Float(30), Labels: []elk.Label{{Text: "Parser"}},
				Ports: []elk.Port{{ID: "n1.out", Width: elk.Float(4), Height: elk.Float(4)}}},
			{ID: "n2", Width: elk.Float(30), Height: elk.Float(30)},
		},
		Edges: []elk.Edge{{ID: "e1", Sources: []string{"n1.out"}, Targets: []string{"n2"}, Labels: []elk.Label{{Text: "ast"}}}},
	}
	l := elk.Layout{
		"root":   elk.ShapeElement(0, 0, 124, 54),
		"n1":     elk.ShapeElement(12, 12, 30, 30),
		"n1.out": elk.ShapeElement(40, 25, 4, 4),
		"n2":     elk.ShapeElement(82, 12, 30, 30),
		"e1":     elk.EdgeElement(elk.Point{X: 42, Y: 27}, elk.Point{X: 82, Y: 27}),
	}
	return g, l
}

func TestToDOT(t *testing.T) {
	g, l := sampleGraph()

	dot, err := ToDOT(g, l, Options{})
	if err != nil {
		t.Fatalf("ToDOT() error: %v", err)
	}
	for _, want := range []string{
		"digraph G {",
		"inputscale=72;",
		// center (27, 27) with y flipped against height 54
		`"n1" [label="n1", pos="27,27!", width=0.4166666666666667, height=0.4166666666666667];`,
		`"n2" [label="n2", pos="97,27!"`,
		// port endpoints collapse onto the owning node
		`"n1" -> "n2";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "n1.out") {
		t.Error("ports should not be drawn unless enabled")
	}
}

func TestToDOTLabelsAndPorts(t *testing.T) {
	g, l := sampleGraph()

	dot, err := ToDOT(g, l, Options{Labels: true, Ports: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"n1" [label="Parser"`,
		`"n1.out" [label="", shape=rect`,
		`"n1.out" -> "n2" [label="ast"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTFlipsY(t *testing.T) {
	g := &elk.Graph{ID: "root", Children: []elk.Node{{ID: "top"}, {ID: "bottom"}}}
	l := elk.Layout{
		"root":   elk.ShapeElement(0, 0, 100, 200),
		"top":    elk.ShapeElement(0, 0, 100, 20),
		"bottom": elk.ShapeElement(0, 180, 100, 20),
	}
	dot, err := ToDOT(g, l, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dot, `"top" [label="top", pos="50,190!"`) {
		t.Errorf("top node should sit near the top in Graphviz coordinates:\n%s", dot)
	}
	if !strings.Contains(dot, `"bottom" [label="bottom", pos="50,10!"`) {
		t.Errorf("bottom node should sit near y=0:\n%s", dot)
	}
}

func TestToDOTNested(t *testing.T) {
	g := &elk.Graph{ID: "root", Children: []elk.Node{{ID: "group", Children: []elk.Node{{ID: "leaf"}}}}}
	l := elk.Layout{
		"root":  elk.ShapeElement(0, 0, 100, 100),
		"group": elk.ShapeElement(10, 10, 80, 80),
		"leaf":  elk.ShapeElement(20, 30, 20, 20),
	}
	dot, err := ToDOT(g, l, Options{})
	if err != nil {
		t.Fatal(err)
	}
	group := strings.Index(dot, `"group" [`)
	leaf := strings.Index(dot, `"leaf" [`)
	if group < 0 || leaf < 0 || group > leaf {
		t.Errorf("containers should be drawn before their children:\n%s", dot)
	}
	if !strings.Contains(dot, "labelloc=t") {
		t.Error("containers should put their label at the top")
	}
}

func TestToDOTMissingShape(t *testing.T) {
	g, l := sampleGraph()
	delete(l, "n2")
	_, err := ToDOT(g, l, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) || !strings.Contains(err.Error(), "n2") {
		t.Errorf("got %v, want INVALID_INPUT naming n2", err)
	}

	delete(l, "root")
	if _, err := ToDOT(g, l, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing root: got %v", err)
	}
}

func TestRenderSVG(t *testing.T) {
	g, l := sampleGraph()
	dot, err := ToDOT(g, l, Options{Labels: true})
	if err != nil {
		t.Fatal(err)
	}
	svg, err := RenderSVG(context.Background(), dot)
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	s := string(svg)
	if !strings.Contains(s, "<svg") || !strings.Contains(s, "Parser") {
		t.Errorf("unexpected SVG output:\n%.400s", s)
	}
	if root := svgTagRe.Find(svg); strings.Contains(string(root), "pt\"") {
		t.Errorf("root svg element should be unitless after normalization: %s", root)
	}
}

func TestRenderSVGInvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "digraph {"); err == nil {
		t.Error("expected a parse error")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s", got)
	}

	plain := []byte("<svg><g/></svg>")
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("SVG without viewBox should be unchanged")
	}
}
