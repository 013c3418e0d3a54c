/*
Copyright 2021 The Kubecc Authors.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package search

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v2"
	"go.uber.org/atomic"
)

// ResultCache memoizes the results of a Func. Entries are keyed by the
// file's size and modification time as well as the query, so editing the
// data file makes older entries unreachable.
type ResultCache struct {
	fn     Func
	cache  *ccache.Cache
	ttl    time.Duration
	hits   *atomic.Int64
	misses *atomic.Int64
	stop   sync.Once

	observer func(hit bool)
}

type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// NewResultCache wraps fn with a cache holding at most size results for
// ttl each.
func NewResultCache(fn Func, size int64, ttl time.Duration) *ResultCache {
	conf := ccache.Configure().
		MaxSize(size).
		ItemsToPrune(uint32(size/10 + 1))
	return &ResultCache{
		fn:     fn,
		cache:  ccache.New(conf),
		ttl:    ttl,
		hits:   atomic.NewInt64(0),
		misses: atomic.NewInt64(0),
	}
}

// Search looks up query in the file at path, consulting the cache first.
// Errors are never cached.
func (c *ResultCache) Search(ctx context.Context, path string, query string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		// let fn produce the canonical error
		c.record(false)
		return c.fn(ctx, path, query)
	}
	key := fmt.Sprintf("%s\x00%d\x00%d\x00%s",
		path, info.Size(), info.ModTime().UnixNano(), query)
	if item := c.cache.Get(key); item != nil && !item.Expired() {
		c.record(true)
		return item.Value().(bool), nil
	}
	c.record(false)
	found, err := c.fn(ctx, path, query)
	if err != nil {
		return false, err
	}
	c.cache.Set(key, found, c.ttl)
	return found, nil
}

// Observe registers fn to be called after every lookup. It must be set
// before the cache is shared between goroutines.
func (c *ResultCache) Observe(fn func(hit bool)) {
	c.observer = fn
}

func (c *ResultCache) record(hit bool) {
	if hit {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	if c.observer != nil {
		c.observer(hit)
	}
}

func (c *ResultCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.cache.ItemCount(),
	}
}

// Clear drops all cached results.
func (c *ResultCache) Clear() {
	c.cache.Clear()
}

// Stop shuts down the cache's background worker. It is safe to call more
// than once.
func (c *ResultCache) Stop() {
	c.stop.Do(c.cache.Stop)
}
