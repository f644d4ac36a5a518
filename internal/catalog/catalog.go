package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"finassist/internal/db"
	"finassist/internal/finance"
	"finassist/internal/logging"
)

const DefaultTTL = 5 * time.Minute

// Source lists every function descriptor.
type Source interface {
	List(ctx context.Context) ([]finance.FunctionDescriptor, error)
}

// DynamoSource reads the function catalog table with a paginated Scan.
type DynamoSource struct {
	ddb   db.Scanner
	table string
}

func NewDynamoSource(ddb db.Scanner, table string) *DynamoSource {
	return &DynamoSource{ddb: ddb, table: table}
}

func (s *DynamoSource) List(ctx context.Context) ([]finance.FunctionDescriptor, error) {
	items, err := db.ScanAll(ctx, s.ddb, s.table)
	if err != nil {
		return nil, fmt.Errorf("catalog scan: %w", err)
	}

	var out []finance.FunctionDescriptor
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("catalog unmarshal: %w", err)
	}

	kept := out[:0]
	for _, d := range out {
		if d.FunctionID == "" {
			continue
		}
		kept = append(kept, d)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].FunctionID < kept[j].FunctionID })
	return kept, nil
}

// Cache keeps the last catalog snapshot for ttl. Safe for concurrent use.
type Cache struct {
	src Source
	ttl time.Duration
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	snapshot  []finance.FunctionDescriptor
	fetchedAt time.Time
}

func NewCache(src Source, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{src: src, ttl: ttl, log: logging.OrNop(log), now: time.Now}
}

// List returns a copy of the cached snapshot, refreshing it once the ttl has elapsed.
// A failed refresh falls back to a stale snapshot when one exists.
func (c *Cache) List(ctx context.Context) ([]finance.FunctionDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return clone(c.snapshot), nil
	}

	fresh, err := c.src.List(ctx)
	if err != nil {
		if c.snapshot != nil {
			c.log.Warn("catalog refresh failed, serving stale snapshot", zap.Error(err))
			return clone(c.snapshot), nil
		}
		return nil, err
	}
	if fresh == nil {
		fresh = []finance.FunctionDescriptor{}
	}
	c.snapshot = fresh
	c.fetchedAt = c.now()
	c.log.Debug("catalog refreshed", zap.Int("functions", len(fresh)))
	return clone(fresh), nil
}

// Invalidate forces the next List to hit the source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

func clone(in []finance.FunctionDescriptor) []finance.FunctionDescriptor {
	return append([]finance.FunctionDescriptor(nil), in...)
}

// Static serves a fixed catalog, used by tests and offline runs.
type Static []finance.FunctionDescriptor

func (s Static) List(context.Context) ([]finance.FunctionDescriptor, error) {
	return clone(s), nil
}
