// Package elk defines the graph and layout documents exchanged with the ELK
// layout server.
//
// # Graphs
//
// [Graph] mirrors the ELK JSON graph format: a root with optional
// layoutOptions, a tree of [Node] children (each with optional ports, labels
// and nested children), and [Edge] lists that reference node or port ids via
// sources and targets. Fields without a value are omitted when encoding, so a
// graph round-trips to exactly the document the engine expects.
//
// Graphs are validated before they ever reach the engine:
//
//	g, err := elk.ParseGraph(data)
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    for _, f := range errors.ValidationFields(err) {
//	        fmt.Println(f.Path, f.Message)
//	    }
//	}
//
// Validation covers the document's shape only. Whether an edge references an
// existing element is decided by the engine.
//
// # Layouts
//
// The engine answers with a mapping from element id to layout data. Each
// [Element] is a tagged variant: shapes (the root, nodes, ports, labels)
// carry a position and size, edges carry a route of at least two points.
//
//	l, _ := elk.ParseLayout(response)
//	if s, ok := l.Shape("n1"); ok {
//	    fmt.Println(s.Position.X, s.Size.Width)
//	}
package elk
