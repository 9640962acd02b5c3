// Command node2vec runs second-order biased random walks over a graph and
// writes one walker per output line, mirroring src/core/node2vec.cpp.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flashmobwalk/flashmob/internal/cliflags"
	"github.com/flashmobwalk/flashmob/internal/engineapp"
)

func main() {
	root := &cobra.Command{
		Use:   "node2vec",
		Short: "Run node2vec second-order random walks over a graph",
	}
	flags := cliflags.Register(root)
	var p, q float64
	root.Flags().Float64VarP(&p, "p", "p", 1.0, "node2vec return parameter p")
	root.Flags().Float64VarP(&q, "q", "q", 1.0, "node2vec in-out parameter q")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := flags.Resolve()
		if err != nil {
			return err
		}
		cfg.Node2Vec = true
		cfg.P = p
		cfg.Q = q
		cfg.Print()
		return engineapp.Run(cfg, true)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
