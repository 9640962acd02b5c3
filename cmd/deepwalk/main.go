// Command deepwalk runs first-order random walks over a graph and writes
// one walker per output line, mirroring src/core/deepwalk.cpp.
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
		Use:   "deepwalk",
		Short: "Run DeepWalk random walks over a graph",
	}
	flags := cliflags.Register(root)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := flags.Resolve()
		if err != nil {
			return err
		}
		cfg.Print()
		return engineapp.Run(cfg, false)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
