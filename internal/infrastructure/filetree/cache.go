package filetree

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// DefaultCacheSize bounds the snapshots kept during one pass.
const DefaultCacheSize = 256

// CachingScanner memoizes snapshots per FileRoot so the baseline is walked
// once per pass. Reset must be called between passes.
type CachingScanner struct {
	next  application.TreeScanner
	cache *lru.Cache[string, domain.TreeSnapshot]
}

func NewCachingScanner(next application.TreeScanner, size int) (*CachingScanner, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, domain.TreeSnapshot](size)
	if err != nil {
		return nil, err
	}
	return &CachingScanner{next: next, cache: cache}, nil
}

func (c *CachingScanner) Scan(ctx context.Context, root domain.FileRoot) (domain.TreeSnapshot, error) {
	key := root.Key()
	if snap, ok := c.cache.Get(key); ok {
		ctxlog.FromContext(ctx).Debug("file tree cache hit", "root", root.String())
		return snap, nil
	}
	snap, err := c.next.Scan(ctx, root)
	if err != nil {
		return domain.TreeSnapshot{}, err
	}
	c.cache.Add(key, snap)
	return snap, nil
}

// Reset drops every cached snapshot.
func (c *CachingScanner) Reset() {
	c.cache.Purge()
}

// Len returns the number of cached snapshots.
func (c *CachingScanner) Len() int {
	return c.cache.Len()
}

// NewPassScanner builds the scanner of one resolution pass: a Scanner with
// the include filter behind a fresh cache. It is an application.ScannerFactory.
func NewPassScanner(include domain.IncludeFilter) (application.TreeScanner, error) {
	cached, err := NewCachingScanner(&Scanner{Include: include}, DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
