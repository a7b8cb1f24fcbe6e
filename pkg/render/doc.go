// Package render turns a computed layout into something to look at.
//
// Two formats are supported:
//
//   - [FormatDOT]: Graphviz source with pinned positions
//   - [FormatSVG]: the same diagram rendered in-process
//
// Drawing is done by the [nodelink] subpackage; this package picks the
// format:
//
//	out, err := render.Render(ctx, graph, layout, render.FormatSVG, nodelink.Options{Labels: true})
//
// [nodelink]: github.com/matzehuels/elkbridge/pkg/render/nodelink
package render
