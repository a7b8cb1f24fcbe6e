package render

import (
	"context"
	"strings"

	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/render/nodelink"
)

// Format is an output format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatDOT Format = "dot"
)

// Formats lists the supported formats.
var Formats = []Format{FormatSVG, FormatDOT}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want svg or dot)", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "text/vnd.graphviz"
}

// Render draws g at the positions in l.
func Render(ctx context.Context, g *elk.Graph, l elk.Layout, f Format, opts nodelink.Options) ([]byte, error) {
	dot, err := nodelink.ToDOT(g, l, opts)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		svg, err := nodelink.RenderSVG(ctx, dot)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
		return svg, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format %q", f)
	}
}
