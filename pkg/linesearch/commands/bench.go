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

package commands

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/pkg/bench"
	"github.com/kubecc-io/linesearch/pkg/client"
	"github.com/kubecc-io/linesearch/pkg/linesearch/internal"
	"github.com/kubecc-io/linesearch/pkg/types"
)

var (
	benchQuery      string
	benchIterations int
	benchAddress    string
	benchClients    []int
	benchPlot       string
	benchSeries     string
	benchHalfLife   time.Duration
	benchLogLevel   string
)

func runBench(cmd *cobra.Command, args []string) {
	ctx, lg := internal.NewContext(types.Bench, internal.ParseLevel(benchLogLevel))
	if len(args) == 0 && benchAddress == "" {
		lg.Fatal("Nothing to benchmark: give a data file and/or --address")
	}

	var results []bench.Result
	if len(args) > 0 {
		lg.With(
			zap.String("path", args[0]),
			zap.Int("iterations", benchIterations),
		).Info("Benchmarking search algorithms")
		algResults, err := bench.RunAlgorithms(ctx, args[0], benchQuery, benchIterations)
		if err != nil {
			lg.With(zap.Error(err)).Fatal("Benchmark failed")
		}
		results = append(results, algResults...)
	}
	if benchAddress != "" {
		for _, n := range benchClients {
			if n < 1 {
				lg.With(zap.Int("clients", n)).Fatal("Client counts must be at least 1")
			}
		}
		dial := func(ctx context.Context) (*client.Client, error) {
			return client.Dial(ctx, benchAddress, dialOptions()...)
		}
		for _, n := range benchClients {
			lg.With(
				zap.String("address", benchAddress),
				zap.Int("clients", n),
			).Info("Benchmarking server")
			result, err := bench.RunClients(ctx, dial, n, benchQuery)
			if err != nil {
				lg.With(zap.Error(err)).Fatal("Benchmark failed")
			}
			if result.Failed > 0 {
				lg.With(
					zap.Int64("failed", result.Failed),
				).Warn("Some clients failed")
			}
			results = append(results, result)
		}
	}

	if err := bench.WriteTable(os.Stdout, results); err != nil {
		lg.With(zap.Error(err)).Fatal("Could not print results")
	}
	if benchPlot != "" {
		if err := bench.Plot(results, benchPlot); err != nil {
			lg.With(zap.Error(err)).Fatal("Could not plot results")
		}
		lg.With(zap.String("file", benchPlot)).Info("Plot saved")
	}
	if benchSeries != "" {
		if err := bench.PlotSeries(results, benchHalfLife, benchSeries); err != nil {
			lg.With(zap.Error(err)).Fatal("Could not plot results")
		}
		lg.With(zap.String("file", benchSeries)).Info("Plot saved")
	}
}

var BenchCmd = &cobra.Command{
	Use:   "bench [file]",
	Short: "Benchmark search algorithms and servers",
	Long: `Benchmark search algorithms and servers.

With a file argument, every search algorithm is timed in-process. With
--address, groups of concurrent clients are run against a server. Latencies
are reported in milliseconds.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runBench,
}

func init() {
	BenchCmd.Flags().StringVarP(&benchQuery, "query", "q", "7;0;6;28;0;23;5;0;",
		"String to look up")
	BenchCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 100,
		"Lookups per algorithm")
	BenchCmd.Flags().StringVarP(&benchAddress, "address", "a", "",
		"Benchmark the server at this address")
	BenchCmd.Flags().IntSliceVar(&benchClients, "clients", []int{1, 10, 100},
		"Concurrent client counts to run")
	BenchCmd.Flags().BoolVar(&queryTLS, "tls", false,
		"Connect with TLS")
	BenchCmd.Flags().BoolVarP(&queryInsecure, "insecure", "k", false,
		"Connect with TLS, skipping certificate verification")
	BenchCmd.Flags().StringVar(&benchPlot, "plot", "",
		"Save a bar chart of mean latencies to this file (.png, .svg, .pdf)")
	BenchCmd.Flags().StringVar(&benchSeries, "series", "",
		"Save smoothed latency over time to this file")
	BenchCmd.Flags().DurationVar(&benchHalfLife, "half-life", 10*time.Millisecond,
		"EWMA half-life used by --series")
	BenchCmd.Flags().StringVar(&benchLogLevel, "log-level", "info",
		"Log level")
}
