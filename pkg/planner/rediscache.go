package planner

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/flashmobwalk/flashmob/pkg/types"
)

// RedisCache shares one machine's micro-benchmark results with others
// over Redis, so a fleet of similarly-shaped hosts only pays the
// benchmarking cost once. The hash layout mirrors
// pkg/store/redistore's struct-tag field encoding, repurposed here for
// (partition_bits, degree, sampler_class) -> step_time_ns rows rather
// than random-walk storage.
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache returns a cache backed by client, namespaced under key
// (e.g. BenchmarkCache.RedisKey's "fmob:bench:<bucket>_<sockets>_<threads>.txt").
func NewRedisCache(client *redis.Client, key string) *RedisCache {
	return &RedisCache{client: client, key: key}
}

func fieldName(bits int, degree uint32, cls types.SamplerClass) string {
	return fmt.Sprintf("%d:%d:%d", bits, degree, int(cls))
}

// Pull loads every row currently in Redis into local.
func (r *RedisCache) Pull(ctx context.Context, local *BenchmarkCache) error {
	vals, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return fmt.Errorf("redis cache pull: %w", err)
	}
	for field, val := range vals {
		parts := strings.Split(field, ":")
		if len(parts) != 3 {
			continue
		}
		bits, _ := strconv.Atoi(parts[0])
		degree, _ := strconv.ParseUint(parts[1], 10, 32)
		cls, _ := strconv.Atoi(parts[2])
		ns, _ := strconv.ParseFloat(val, 64)
		local.addItem(bits, uint32(degree), types.SamplerClass(cls), ns)
	}
	return nil
}

// Push uploads every row in local that is not yet in Redis.
func (r *RedisCache) Push(ctx context.Context, local *BenchmarkCache) error {
	if len(local.rows) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(local.rows))
	for _, row := range local.rows {
		fields[fieldName(row.partitionBits, row.degree, row.samplerClass)] = row.stepTimeNs
	}
	if err := r.client.HSet(ctx, r.key, fields).Err(); err != nil {
		return fmt.Errorf("redis cache push: %w", err)
	}
	return nil
}
