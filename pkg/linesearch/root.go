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

package linesearch

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kubecc-io/linesearch/internal/logls"
	"github.com/kubecc-io/linesearch/internal/zapls"
	"github.com/kubecc-io/linesearch/pkg/linesearch/commands"
)

func CreateRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "linesearch",
		Short: "Exact line lookups over a text file",
		Long: fmt.Sprintf("%s\n%s", zapls.Yellow.Add(logls.Banner), `
Serve, query and benchmark exact whole-line lookups over a text file.`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.AddCommand(
		commands.ServeCmd,
		commands.QueryCmd,
		commands.CheckCmd,
		commands.BenchCmd,
	)
	return rootCmd
}

func Execute() {
	if err := CreateRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
