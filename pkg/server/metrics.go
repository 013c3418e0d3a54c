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

package server

/*
Stats exported:

- Number of queries answered: linesearch_queries_total (counter, by result)
- Query latency: linesearch_query_duration_seconds (histogram, by mode)
- Number of open connections: linesearch_active_connections (gauge)
- Result cache hits and misses: linesearch_cache_{hits,misses}_total (counter)
*/

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/pkg/meta"
)

const (
	resultFound    = "found"
	resultNotFound = "not_found"
	resultError    = "error"

	modeBuffer = "buffer"
	modeReread = "reread"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linesearch",
		Name:      "queries_total",
		Help:      "Total number of queries answered",
	}, []string{
		"result",
	})
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "linesearch",
		Name:      "query_duration_seconds",
		Help:      "Time taken to answer a query",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{
		"mode",
	})
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "linesearch",
		Name:      "active_connections",
		Help:      "Current number of open client connections",
	})
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linesearch",
		Name:      "cache_hits_total",
		Help:      "Total number of queries answered from the result cache",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linesearch",
		Name:      "cache_misses_total",
		Help:      "Total number of queries that missed the result cache",
	})
)

func observeQuery(mode, result string, elapsed time.Duration) {
	queriesTotal.WithLabelValues(result).Inc()
	queryDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ServeMetrics serves the default prometheus registry on address until
// ctx is canceled.
func ServeMetrics(ctx context.Context, address string) error {
	lg := meta.Log(ctx)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    address,
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	lg.With(
		zap.String("addr", address+"/metrics"),
	).Info("Serving Prometheus metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
