//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
)

// SeedRedis loads a JSON seed file into db. The format is
// { "TABLE": { "id": { "field": "value", ... }, ... }, ... } and each entry
// becomes the hash "TABLE|id". Entries without fields get the NULL
// placeholder field so the key exists.
func SeedRedis(t *testing.T, client *redis.Client, seedFile string) {
	t.Helper()

	data, err := os.ReadFile(seedFile)
	if err != nil {
		t.Fatalf("reading seed file %s: %v", seedFile, err)
	}

	var tables map[string]map[string]map[string]string
	if err := json.Unmarshal(data, &tables); err != nil {
		t.Fatalf("parsing seed file %s: %v", seedFile, err)
	}

	ctx := context.Background()
	pipe := client.Pipeline()
	for table, entries := range tables {
		for id, fields := range entries {
			key := table + "|" + id
			if len(fields) == 0 {
				pipe.HSet(ctx, key, "NULL", "NULL")
				continue
			}
			args := make([]interface{}, 0, len(fields)*2)
			for k, v := range fields {
				args = append(args, k, v)
			}
			pipe.HSet(ctx, key, args...)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		t.Fatalf("seeding from %s: %v", seedFile, err)
	}
}

// FlushDB empties the client's database
func FlushDB(t *testing.T, client *redis.Client) {
	t.Helper()
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing DB: %v", err)
	}
}
