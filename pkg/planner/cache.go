package planner

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/flashmobwalk/flashmob/pkg/types"
)

// cacheKey identifies one benchmarked (partition_bits, degree, sampler
// class) combination, matching MiniBMKCatManager's std::set key.
type cacheKey struct {
	partitionBits int
	degree        uint32
	samplerClass  types.SamplerClass
}

// BenchmarkCache is the on-disk micro-benchmark catalogue, keyed by walker
// density (walkerPerEdge) and machine topology, mirroring
// MiniBMKCatManager.
type BenchmarkCache struct {
	dir            string
	walkerPerEdge  float64
	socketNum      int
	threadNum      int
	seen           mapset.Set[cacheKey]
	rows           []cacheRow
}

type cacheRow struct {
	partitionBits int
	degree        uint32
	samplerClass  types.SamplerClass
	stepTimeNs    float64
}

// NewBenchmarkCache opens (without yet loading) the cache for the given
// run shape, rooted at dir (pass "" for types.BenchmarkCacheDir).
func NewBenchmarkCache(dir string, walkerPerEdge float64, socketNum, threadNum int) *BenchmarkCache {
	if dir == "" {
		dir = types.BenchmarkCacheDir
	}
	return &BenchmarkCache{
		dir:           dir,
		walkerPerEdge: walkerPerEdge,
		socketNum:     socketNum,
		threadNum:     threadNum,
		seen:          mapset.NewSet[cacheKey](),
	}
}

// filename reproduces MiniBMKCatManager's cache filename:
// "<floor(log_1.5(walker_per_edge))>_<sockets>_<threads>.txt".
func (c *BenchmarkCache) filename() string {
	bucket := int(math.Floor(math.Log(c.walkerPerEdge) / math.Log(1.5)))
	return filepath.Join(c.dir, fmt.Sprintf("%d_%d_%d.txt", bucket, c.socketNum, c.threadNum))
}

// Load reads the catalogue file if present. A missing file is not an
// error (an empty catalogue is the natural starting state).
func (c *BenchmarkCache) Load() error {
	f, err := os.Open(c.filename())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrCorruptBenchmarkCache, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var bits int
		var degree uint32
		var cls int
		var ns float64
		n, err := fmt.Sscanf(sc.Text(), "%d %d %d %f", &bits, &degree, &cls, &ns)
		if err != nil || n != 4 {
			return fmt.Errorf("%w: malformed line %q", types.ErrCorruptBenchmarkCache, sc.Text())
		}
		c.addItem(bits, degree, types.SamplerClass(cls), ns)
	}
	return sc.Err()
}

func (c *BenchmarkCache) addItem(bits int, degree uint32, cls types.SamplerClass, stepTimeNs float64) {
	key := cacheKey{bits, degree, cls}
	if c.seen.Contains(key) {
		return
	}
	c.seen.Add(key)
	c.rows = append(c.rows, cacheRow{bits, degree, cls, stepTimeNs})
}

// HasItem reports whether (partitionBits, degree, class) has already been
// benchmarked in this run shape.
func (c *BenchmarkCache) HasItem(partitionBits int, degree uint32, cls types.SamplerClass) bool {
	return c.seen.Contains(cacheKey{partitionBits, degree, cls})
}

// AddItem records a freshly benchmarked result.
func (c *BenchmarkCache) AddItem(partitionBits int, degree uint32, cls types.SamplerClass, stepTimeNs float64) {
	c.addItem(partitionBits, degree, cls, stepTimeNs)
}

// Save writes the catalogue back to disk, creating the directory if
// needed, matching save_catalogue.
func (c *BenchmarkCache) Save() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(c.filename())
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, r := range c.rows {
		fmt.Fprintf(w, "%d %d %d %f\n", r.partitionBits, r.degree, int(r.samplerClass), r.stepTimeNs)
	}
	return w.Flush()
}

// RedisKey names the hash this cache's rows share with other hosts over
// RedisCache, derived from the same (walkerPerEdge bucket, sockets,
// threads) shape as filename so hosts with identical topology and walker
// density converge on the same hash.
func (c *BenchmarkCache) RedisKey() string {
	return "fmob:bench:" + filepath.Base(c.filename())
}

// Methods returns the benchmarked results as a DegreeMethods map keyed by
// degree. Rows with partition_bits above internalMaxBits are left out, and
// the remaining rows of one degree are appended in catalogue order with no
// partition_bits key, so rows measured at different partition sizes sit
// side by side in the same degree's list.
func (c *BenchmarkCache) Methods(internalMaxBits int) DegreeMethods {
	out := make(DegreeMethods)
	for _, r := range c.rows {
		if r.partitionBits > internalMaxBits {
			continue
		}
		out[r.degree] = append(out[r.degree], Method{SamplerClass: r.samplerClass, StepTimeNs: r.stepTimeNs})
	}
	return out
}
