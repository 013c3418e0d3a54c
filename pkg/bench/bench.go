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

// Package bench measures search algorithms and running servers.
package bench

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/pkg/client"
	"github.com/kubecc-io/linesearch/pkg/meta"
	"github.com/kubecc-io/linesearch/pkg/search"
)

type Result struct {
	Name      string
	Samples   Samples
	Succeeded int64
	Failed    int64
	Elapsed   time.Duration
}

func (r Result) Summary() Summary {
	return r.Samples.Summarize()
}

// RunAlgorithms times iterations lookups of query in the file at path with
// every search algorithm.
func RunAlgorithms(
	ctx context.Context,
	path string,
	query string,
	iterations int,
) ([]Result, error) {
	lg := meta.Log(ctx)
	names := search.Names()
	results := make([]Result, 0, len(names))
	for _, name := range names {
		fn, err := search.Lookup(name)
		if err != nil {
			return nil, err
		}
		result := Result{
			Name:    name,
			Samples: make(Samples, 0, iterations),
		}
		start := time.Now()
		for i := 0; i < iterations; i++ {
			t := time.Now()
			_, err := fn(ctx, path, query)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s failed", name)
			}
			result.Samples = append(result.Samples, Sample{
				X: t,
				Y: milliseconds(time.Since(t)),
			})
			result.Succeeded++
		}
		result.Elapsed = time.Since(start)
		lg.With(
			zap.String("algorithm", name),
			zap.Duration("elapsed", result.Elapsed),
		).Debug("Benchmark finished")
		results = append(results, result)
	}
	return results, nil
}

// ErrInvalidClients is returned by RunClients for a client count below one.
var ErrInvalidClients = errors.New("client count must be at least 1")

// DialFunc opens a connection to the server under test.
type DialFunc func(ctx context.Context) (*client.Client, error)

// RunClients starts clients concurrent clients which each connect with
// dial, send query once and disconnect. Failed connections and queries are
// counted rather than returned.
func RunClients(
	ctx context.Context,
	dial DialFunc,
	clients int,
	query string,
) (Result, error) {
	if clients < 1 {
		return Result{}, errors.WithMessagef(ErrInvalidClients, "got %d", clients)
	}
	lg := meta.Log(ctx)
	succeeded := atomic.NewInt64(0)
	failed := atomic.NewInt64(0)
	var mu sync.Mutex
	samples := make(Samples, 0, clients)

	var wg sync.WaitGroup
	wg.Add(clients)
	start := time.Now()
	for i := 0; i < clients; i++ {
		go func() {
			defer wg.Done()
			c, err := dial(ctx)
			if err != nil {
				lg.With(zap.Error(err)).Debug("Dial failed")
				failed.Inc()
				return
			}
			defer c.Close()
			resp, err := c.Query(ctx, query)
			if err != nil || resp.Err() != nil {
				failed.Inc()
				return
			}
			succeeded.Inc()
			mu.Lock()
			samples = append(samples, Sample{
				X: time.Now(),
				Y: milliseconds(resp.RTT),
			})
			mu.Unlock()
		}()
	}
	wg.Wait()
	SortByTime(samples)
	return Result{
		Name:      fmt.Sprintf("%d clients", clients),
		Samples:   samples,
		Succeeded: succeeded.Load(),
		Failed:    failed.Load(),
		Elapsed:   time.Since(start),
	}, nil
}

// WriteTable prints one row of summary statistics per result.
func WriteTable(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "NAME\tOK\tFAILED\tMEAN\tSTDDEV\tP50\tP99\tMIN\tMAX\t")
	for _, r := range results {
		s := r.Summary()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t\n",
			r.Name, r.Succeeded, r.Failed,
			s.Mean, s.StdDev, s.P50, s.P99, s.Min, s.Max)
	}
	return tw.Flush()
}
