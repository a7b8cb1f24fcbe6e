package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/render"
	"github.com/matzehuels/elkbridge/pkg/render/nodelink"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		format     string
		layoutFile string
		algorithm  string
		opts       nodelink.Options
	)

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Draw an ELK graph at its computed positions",
		Long: `Draw an ELK graph at its computed positions.

The layout is computed by the ELK server unless --layout names a file written
by 'elkbridge layout'. Output is SVG (rendered in-process) or Graphviz DOT.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			g, err := elk.ReadGraphFile(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}
			if algorithm != "" {
				g.SetAlgorithm(algorithm)
			}

			var l elk.Layout
			if layoutFile != "" {
				l, err = readLayoutFile(layoutFile)
			} else {
				l, err = c.computeLayout(cmd.Context(), g)
			}
			if err != nil {
				return err
			}

			out, err := render.Render(cmd.Context(), g, l, f, opts)
			if err != nil {
				return err
			}
			if output == "" {
				output = defaultOutput(args[0], f)
			}
			if err := writeOutput(output, out); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered %s", strings.ToUpper(string(f)))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatSVG), "output format: svg, dot")
	cmd.Flags().StringVar(&layoutFile, "layout", "", "use a precomputed layout instead of running the server")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "layout algorithm, e.g. layered, force, stress")
	cmd.Flags().BoolVar(&opts.Labels, "labels", true, "draw label text instead of ids")
	cmd.Flags().BoolVar(&opts.Ports, "ports", false, "draw ports")
	return cmd
}

func readLayoutFile(path string) (elk.Layout, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	l, err := elk.ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return l, nil
}

// defaultOutput derives "graph.svg" from "graph.json".
func defaultOutput(input string, f render.Format) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "." + string(f)
}
