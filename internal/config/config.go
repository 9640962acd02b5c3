// Package config loads the walk engine's runtime configuration from
// environment variables (optionally sourced from a .env file), mirroring
// the teacher's cmd/config.go LoadConfig switch pattern but exposing the
// engine's own settings instead of a crawler's relay/queue configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/flashmobwalk/flashmob/pkg/types"
)

// Config holds every setting a cmd/deepwalk or cmd/node2vec run needs:
// machine topology, memory budget, walk shape, and I/O paths.
type Config struct {
	Topology types.MultiThreadConfig

	MemQuota uint64

	GraphPath   string
	BinaryGraph bool
	OutputPath  string

	WalkerNum uint64
	EpochNum  int
	WalkLen   int

	Node2Vec bool
	P, Q     float64

	BenchmarkCacheDir string
	RedisAddr         string

	LogPath      string
	DisplayStats bool
}

// NewConfig returns a Config with the original engine's own defaults.
func NewConfig() Config {
	return Config{
		Topology: types.MultiThreadConfig{
			ThreadNum: 1,
			SocketNum: 1,
		},
		MemQuota:          1 << 30,
		WalkLen:           80,
		WalkerNum:         0,
		P:                 1.0,
		Q:                 1.0,
		BenchmarkCacheDir: types.BenchmarkCacheDir,
		LogPath:           "fmob.log",
		DisplayStats:      true,
	}
}

// Print writes a human-readable dump of the configuration, matching the
// teacher's Config.Print layout.
func (c Config) Print() {
	fmt.Println("==== config ====")
	fmt.Printf("thread_num: %d\n", c.Topology.ThreadNum)
	fmt.Printf("socket_num: %d\n", c.Topology.SocketNum)
	fmt.Printf("socket_mapping: %v\n", c.Topology.SocketMapping)
	fmt.Printf("l2_cache_size: %d\n", c.Topology.L2CacheSize)
	fmt.Printf("numa_available: %t\n", c.Topology.NumaAvailable)
	fmt.Printf("mem_quota: %d\n", c.MemQuota)
	fmt.Printf("graph_path: %s (binary=%t)\n", c.GraphPath, c.BinaryGraph)
	fmt.Printf("output_path: %s\n", c.OutputPath)
	fmt.Printf("walker_num: %d\n", c.WalkerNum)
	fmt.Printf("walk_len: %d\n", c.WalkLen)
	fmt.Printf("node2vec: %t (p=%.3f q=%.3f)\n", c.Node2Vec, c.P, c.Q)
	fmt.Printf("benchmark_cache_dir: %s\n", c.BenchmarkCacheDir)
	fmt.Printf("redis_addr: %s\n", c.RedisAddr)
	fmt.Printf("log_path: %s\n", c.LogPath)
	fmt.Println("================")
}

// LoadConfig reads FMOB_* environment variables over NewConfig's defaults,
// loading a .env file first if one is present in the working directory.
// Unset variables keep their default; malformed values return an error
// naming the offending variable.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	c := NewConfig()

	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch key {
		case "FMOB_THREAD_NUM":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_THREAD_NUM: %w", err)
			}
			c.Topology.ThreadNum = n

		case "FMOB_SOCKET_NUM":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_SOCKET_NUM: %w", err)
			}
			c.Topology.SocketNum = n

		case "FMOB_SOCKET_MAPPING":
			mapping, err := parseIntList(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_SOCKET_MAPPING: %w", err)
			}
			c.Topology.SocketMapping = mapping

		case "FMOB_L2_CACHE_SIZE":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_L2_CACHE_SIZE: %w", err)
			}
			c.Topology.L2CacheSize = n

		case "FMOB_NUMA_AVAILABLE":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_NUMA_AVAILABLE: %w", err)
			}
			c.Topology.NumaAvailable = b

		case "FMOB_MEM_QUOTA":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_MEM_QUOTA: %w", err)
			}
			c.MemQuota = n

		case "FMOB_GRAPH_PATH":
			c.GraphPath = val

		case "FMOB_GRAPH_BINARY":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_GRAPH_BINARY: %w", err)
			}
			c.BinaryGraph = b

		case "FMOB_OUTPUT_PATH":
			c.OutputPath = val

		case "FMOB_WALKER_NUM":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_WALKER_NUM: %w", err)
			}
			c.WalkerNum = n

		case "FMOB_EPOCH_NUM":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_EPOCH_NUM: %w", err)
			}
			c.EpochNum = n

		case "FMOB_WALK_LEN":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_WALK_LEN: %w", err)
			}
			c.WalkLen = n

		case "FMOB_NODE2VEC":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_NODE2VEC: %w", err)
			}
			c.Node2Vec = b

		case "FMOB_P":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_P: %w", err)
			}
			c.P = f

		case "FMOB_Q":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_Q: %w", err)
			}
			c.Q = f

		case "FMOB_BENCHMARK_CACHE_DIR":
			c.BenchmarkCacheDir = val

		case "FMOB_REDIS_ADDR":
			c.RedisAddr = val

		case "FMOB_LOG_PATH":
			c.LogPath = val

		case "FMOB_DISPLAY_STATS":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Config{}, fmt.Errorf("FMOB_DISPLAY_STATS: %w", err)
			}
			c.DisplayStats = b
		}
	}

	return c, nil
}

func parseIntList(val string) ([]int, error) {
	if val == "" {
		return nil, nil
	}
	fields := strings.Split(val, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
