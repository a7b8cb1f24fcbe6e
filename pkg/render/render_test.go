package render

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/render/nodelink"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", FormatSVG, false},
		{" DOT ", FormatDOT, false},
		{"png", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ParseFormat(%q) error code = %s", tt.in, errors.GetCode(err))
		}
	}
}

func TestContentType(t *testing.T) {
	if FormatSVG.ContentType() != "image/svg+xml" || FormatDOT.ContentType() != "text/vnd.graphviz" {
		t.Error("unexpected content types")
	}
}

func TestRender(t *testing.T) {
	g := &elk.Graph{ID: "root", Children: []elk.Node{{ID: "a"}, {ID: "b"}},
		Edges: []elk.Edge{{ID: "e", Sources: []string{"a"}, Targets: []string{"b"}}}}
	l := elk.Layout{
		"root": elk.ShapeElement(0, 0, 100, 50),
		"a":    elk.ShapeElement(10, 10, 30, 30),
		"b":    elk.ShapeElement(60, 10, 30, 30),
		"e":    elk.EdgeElement(elk.Point{X: 40, Y: 25}, elk.Point{X: 60, Y: 25}),
	}
	ctx := context.Background()

	dot, err := Render(ctx, g, l, FormatDOT, nodelink.Options{})
	if err != nil || !strings.HasPrefix(string(dot), "digraph G {") {
		t.Fatalf("Render(dot) = %.80s, %v", dot, err)
	}

	svg, err := Render(ctx, g, l, FormatSVG, nodelink.Options{})
	if err != nil || !strings.Contains(string(svg), "<svg") {
		t.Fatalf("Render(svg) = %.80s, %v", svg, err)
	}

	if _, err := Render(ctx, g, l, "pdf", nodelink.Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown format: got %v", err)
	}
}
