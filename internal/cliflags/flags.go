// Package cliflags binds the Cobra flags shared by cmd/deepwalk and
// cmd/node2vec to an internal/config.Config, grounded on
// include/option.hpp's ThreadsOptionHelper/NumaOptionHelper/
// GraphOptionHelper/WalkOptionHelper flag layering.
package cliflags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flashmobwalk/flashmob/internal/config"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// WalkFlags holds the raw flag values for a walk run, bound to a
// cobra.Command by Register and resolved into a config.Config by Resolve.
type WalkFlags struct {
	GraphPath     string
	Format        string
	OutputPath    string
	ThreadNum     int
	SocketNum     int
	SocketMapping string
	MemQuotaGiB   uint64
	EpochNum      int
	WalkerNum     uint64
	WalkLen       int
}

// Register adds the graph/numa/walk flags to cmd, mirroring WalkOptionParser
// (GraphOptionHelper + NumaOptionHelper + WalkOptionHelper). Node2vec's own
// -p/-q flags are registered separately by the caller.
func Register(cmd *cobra.Command) *WalkFlags {
	f := &WalkFlags{}
	cmd.Flags().StringVarP(&f.GraphPath, "graph", "g", "", "graph path")
	cmd.Flags().StringVarP(&f.Format, "format", "f", "text", "graph format: binary | text")
	cmd.Flags().StringVarP(&f.OutputPath, "output", "o", "", "output path")
	cmd.Flags().IntVarP(&f.ThreadNum, "threads", "t", 1, "number of threads to use")
	cmd.Flags().IntVarP(&f.SocketNum, "sockets", "s", 1, "number of sockets")
	cmd.Flags().StringVar(&f.SocketMapping, "socket-mapping", "", "e.g. --socket-mapping=0,1,2,3")
	cmd.Flags().Uint64Var(&f.MemQuotaGiB, "mem", 1, "maximum memory this run will use, in GiB")
	cmd.Flags().IntVarP(&f.EpochNum, "epoch", "e", 0, "walk epoch number")
	cmd.Flags().Uint64VarP(&f.WalkerNum, "walker", "w", 0, "walker number")
	cmd.Flags().IntVarP(&f.WalkLen, "length", "l", 80, "walk length")
	return f
}

// Resolve validates the bound flags and builds a config.Config, mirroring
// WalkOptionHelper::parse's CHECK(epoch_num_flag || walker_num_flag) /
// CHECK(!(epoch_num_flag && walker_num_flag)) exclusivity rule.
func (f *WalkFlags) Resolve() (config.Config, error) {
	cfg := config.NewConfig()

	if f.GraphPath == "" {
		return cfg, fmt.Errorf("%w: --graph is required", types.ErrInvalidInput)
	}
	cfg.GraphPath = f.GraphPath

	switch f.Format {
	case "binary":
		cfg.BinaryGraph = true
	case "text":
		cfg.BinaryGraph = false
	default:
		return cfg, fmt.Errorf("%w: unknown graph format %q", types.ErrInvalidInput, f.Format)
	}

	if f.OutputPath == "" {
		return cfg, fmt.Errorf("%w: --output is required", types.ErrInvalidInput)
	}
	cfg.OutputPath = f.OutputPath

	if (f.EpochNum == 0) == (f.WalkerNum == 0) {
		return cfg, fmt.Errorf("%w: exactly one of --epoch or --walker must be set", types.ErrInvalidInput)
	}
	cfg.EpochNum = f.EpochNum
	cfg.WalkerNum = f.WalkerNum

	if f.WalkLen < 2 {
		return cfg, fmt.Errorf("%w: --length must be at least 2", types.ErrInvalidInput)
	}
	cfg.WalkLen = f.WalkLen

	cfg.Topology.ThreadNum = f.ThreadNum
	cfg.Topology.SocketNum = f.SocketNum
	if f.SocketMapping != "" {
		mapping, err := parseIntList(f.SocketMapping)
		if err != nil {
			return cfg, fmt.Errorf("%w: --socket-mapping: %v", types.ErrInvalidInput, err)
		}
		if len(mapping) != f.SocketNum {
			return cfg, fmt.Errorf("%w: --socket-mapping has %d entries, want %d", types.ErrInvalidInput, len(mapping), f.SocketNum)
		}
		cfg.Topology.SocketMapping = mapping
	} else {
		cfg.Topology.SetDefaultSocketMapping()
	}
	cfg.Topology.NumaAvailable = f.SocketNum > 1

	cfg.MemQuota = f.MemQuotaGiB << 30

	return cfg, nil
}

func parseIntList(val string) ([]int, error) {
	fields := strings.Split(val, ",")
	out := make([]int, len(fields))
	for i, s := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
