// Command fmobfmt converts an edge list between the engine's binary and
// text formats, a small standalone tool ported from the original project's
// edge-list format converters (SPEC_FULL.md §1 and §6).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

func main() {
	var inputPath, outputPath, fromFormat, toFormat string

	root := &cobra.Command{
		Use:   "fmobfmt",
		Short: "Convert an edge list between binary and text graph formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(inputPath, outputPath, fromFormat, toFormat)
		},
	}
	root.Flags().StringVarP(&inputPath, "input", "i", "", "input edge-list path")
	root.Flags().StringVarP(&outputPath, "output", "o", "", "output edge-list path")
	root.Flags().StringVar(&fromFormat, "from", "text", "input format: binary | text")
	root.Flags().StringVar(&toFormat, "to", "binary", "output format: binary | text")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convert(inputPath, outputPath, fromFormat, toFormat string) error {
	if inputPath == "" || outputPath == "" {
		return fmt.Errorf("%w: --input and --output are required", types.ErrInvalidInput)
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	reader, err := edgeReader(fromFormat, in)
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	writeEdge, err := edgeWriter(toFormat)
	if err != nil {
		return err
	}

	var n uint64
	for {
		src, dst, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := writeEdge(w, src, dst); err != nil {
			return err
		}
		n++
	}
	fmt.Printf("converted %d edges\n", n)
	return w.Flush()
}

func edgeReader(format string, r *os.File) (graph.EdgeReader, error) {
	switch format {
	case "binary":
		return graph.NewBinaryReader(r), nil
	case "text":
		return graph.NewTextReader(r), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", types.ErrInvalidInput, format)
	}
}

func edgeWriter(format string) (func(w io.Writer, src, dst uint32) error, error) {
	switch format {
	case "binary":
		return graph.WriteBinary, nil
	case "text":
		return graph.WriteText, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", types.ErrInvalidInput, format)
	}
}
