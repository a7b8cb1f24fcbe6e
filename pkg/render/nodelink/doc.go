// Package nodelink draws a computed ELK layout as a node-link diagram.
//
// # Overview
//
// The engine already decides where every node goes, so nothing is laid out
// here. [ToDOT] emits Graphviz DOT with each node pinned at its computed
// position and [RenderSVG] hands that to the neato engine, which keeps pinned
// nodes in place and only draws the edges between them.
//
//	dot, err := nodelink.ToDOT(graph, layout, nodelink.Options{Labels: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Coordinates
//
// ELK coordinates are points with y growing downward; Graphviz grows y
// upward. ToDOT flips the y axis against the root height and sets
// inputscale=72 so positions are read as points.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering; no Graphviz installation is needed.
package nodelink
