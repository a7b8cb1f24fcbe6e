package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/elkbridge/pkg/elk"
)

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output    string
		algorithm string
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute the layout of an ELK graph",
		Long: `Compute the layout of an ELK JSON graph.

The graph is validated, sent to the ELK server and the resulting layout (one
entry per node, port, label and edge id) is written as JSON. Without -o the
layout is printed to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := elk.ReadGraphFile(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}
			if algorithm != "" {
				g.SetAlgorithm(algorithm)
			}
			l, err := c.computeLayout(cmd.Context(), g)
			if err != nil {
				return err
			}

			if output == "" {
				data, err := l.MarshalIndent()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := elk.WriteLayoutFile(l, output); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			shapes, edges := l.Counts()
			printSuccess("Layout computed")
			printStats(shapes, edges, g.Algorithm())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "layout algorithm, e.g. layered, force, stress")
	return cmd
}

// computeLayout runs one layout through a short-lived client.
func (c *CLI) computeLayout(ctx context.Context, g *elk.Graph) (elk.Layout, error) {
	client, err := c.openClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()
	l, err := client.Compute(ctx, g)
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	nodes := 0
	g.Walk(func(*elk.Node) { nodes++ })
	prog.done(fmt.Sprintf("Computed layout of %d nodes", nodes))
	return l, nil
}

func writeOutput(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
