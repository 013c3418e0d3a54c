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
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/morikuni/aec"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/internal/zapls"
	"github.com/kubecc-io/linesearch/pkg/client"
	"github.com/kubecc-io/linesearch/pkg/config"
	"github.com/kubecc-io/linesearch/pkg/linesearch/internal"
	"github.com/kubecc-io/linesearch/pkg/types"
)

var (
	queryAddress     string
	queryTLS         bool
	queryInsecure    bool
	queryInteractive bool
	queryTimeout     time.Duration
	queryLogLevel    string
)

func dialOptions() []client.Option {
	var opts []client.Option
	if queryInsecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	} else if queryTLS {
		opts = append(opts, client.WithTLS(true))
	}
	return opts
}

func colorize(b aec.ANSI, s string) string {
	if !zapls.UseColor {
		return s
	}
	return b.Apply(s)
}

func printResponse(query string, resp *client.Response) {
	var message string
	switch {
	case resp.Found:
		message = colorize(aec.GreenF, resp.Message)
	case resp.Err() != nil:
		message = colorize(aec.RedF, resp.Message)
	default:
		message = colorize(aec.YellowF, resp.Message)
	}
	fmt.Printf("%s: %s %s\n",
		colorize(aec.Bold, query), message,
		colorize(aec.Faint, fmt.Sprintf("(%.3fms)", float64(resp.RTT)/float64(time.Millisecond))))
}

func sendQuery(ctx context.Context, c *client.Client, query string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	resp, err := c.Query(ctx, query)
	if err != nil {
		return err
	}
	printResponse(query, resp)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) {
	ctx, lg := internal.NewContext(types.Client, internal.ParseLevel(queryLogLevel))
	if len(args) == 0 && !queryInteractive {
		lg.Fatal("No queries given (use -i for an interactive prompt)")
	}

	c, err := client.Dial(ctx, queryAddress, dialOptions()...)
	if err != nil {
		lg.With(zap.Error(err)).Fatal("Could not connect")
	}
	defer c.Close()

	for _, q := range args {
		if err := sendQuery(ctx, c, q); err != nil {
			lg.With(zap.Error(err)).Error("Query failed")
			os.Exit(1)
		}
	}
	if !queryInteractive {
		return
	}
	for {
		var q string
		err := survey.AskOne(&survey.Input{
			Message: "Query (empty to exit)",
		}, &q)
		if err == terminal.InterruptErr || q == "" {
			return
		}
		if err != nil {
			lg.With(zap.Error(err)).Fatal("Prompt failed")
		}
		if err := sendQuery(ctx, c, q); err != nil {
			lg.With(zap.Error(err)).Error("Query failed")
		}
	}
}

var QueryCmd = &cobra.Command{
	Use:   "query [string...]",
	Short: "Send queries to a running server",
	Run:   runQuery,
}

func init() {
	QueryCmd.Flags().StringVarP(&queryAddress, "address", "a", "127.0.0.1:"+config.DefaultPort,
		"Server address")
	QueryCmd.Flags().BoolVar(&queryTLS, "tls", false,
		"Connect with TLS")
	QueryCmd.Flags().BoolVarP(&queryInsecure, "insecure", "k", false,
		"Connect with TLS, skipping certificate verification")
	QueryCmd.Flags().BoolVarP(&queryInteractive, "interactive", "i", false,
		"Prompt for queries after sending the ones given as arguments")
	QueryCmd.Flags().DurationVar(&queryTimeout, "timeout", 10*time.Second,
		"Timeout for each query")
	QueryCmd.Flags().StringVar(&queryLogLevel, "log-level", "warn",
		"Log level")
}
