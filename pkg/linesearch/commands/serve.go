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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/internal/logls"
	"github.com/kubecc-io/linesearch/pkg/config"
	"github.com/kubecc-io/linesearch/pkg/linesearch/internal"
	"github.com/kubecc-io/linesearch/pkg/server"
	"github.com/kubecc-io/linesearch/pkg/types"
)

var (
	serveConfigPath string
	serveAlgorithm  string
	serveBuffer     string
	serveReread     bool
)

func loadServeConfig(cmd *cobra.Command) (*config.ServerSpec, error) {
	var spec *config.ServerSpec
	var err error
	if serveConfigPath != "" {
		spec, err = config.LoadFile(serveConfigPath)
	} else {
		spec, err = config.Provider.Load()
	}
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("algorithm") {
		spec.Algorithm = serveAlgorithm
	}
	if cmd.Flags().Changed("buffer") {
		spec.Buffer = serveBuffer
	}
	if cmd.Flags().Changed("reread") {
		spec.RereadOnQuery = serveReread
	}
	return spec, nil
}

func runServe(cmd *cobra.Command, args []string) {
	spec, err := loadServeConfig(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logls.PrintHeader()
	ctx, lg := internal.NewContext(types.Server, spec.LogLevel.Level())
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := server.NewServer(ctx, *spec)
	if err != nil {
		lg.With(zap.Error(err)).Fatal("Could not start server")
	}
	if spec.MetricsAddress != "" {
		go func() {
			if err := server.ServeMetrics(ctx, spec.MetricsAddress); err != nil {
				lg.With(zap.Error(err)).Error("Failed to serve metrics")
			}
		}()
	}
	if err := srv.Serve(ctx); err != nil {
		lg.With(zap.Error(err)).Fatal("Server error")
	}
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lookup server",
	Long: `Run the lookup server.

Without --config, the first of config.yaml, config.yml, config.json or
config.txt found in /etc/linesearch or ~/.linesearch is used.`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	ServeCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "",
		"Path to a configuration file")
	ServeCmd.Flags().StringVar(&serveAlgorithm, "algorithm", "",
		"Override the search algorithm used in reread mode")
	ServeCmd.Flags().StringVar(&serveBuffer, "buffer", "",
		"Override the preloaded buffer (lineset, trie or none)")
	ServeCmd.Flags().BoolVar(&serveReread, "reread", false,
		"Override reread_on_query")
}
