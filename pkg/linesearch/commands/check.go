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

	"github.com/morikuni/aec"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/pkg/linesearch/internal"
	"github.com/kubecc-io/linesearch/pkg/lineset"
	"github.com/kubecc-io/linesearch/pkg/types"
)

var (
	checkMaxLineLength int
	checkLogLevel      string
)

func runCheck(cmd *cobra.Command, args []string) {
	_, lg := internal.NewContext(types.CLI, internal.ParseLevel(checkLogLevel))
	set := lineset.New(
		lineset.WithMaxLineLength(checkMaxLineLength),
		lineset.WithLogger(lg),
	)
	if err := set.TryLoad(args[0]); err != nil {
		lg.With(zap.Error(err)).Fatal("Could not load file")
	}
	lg.With(
		zap.String("path", args[0]),
		zap.Int("lines", set.Len()),
	).Debug("File loaded")

	missing := 0
	for _, q := range args[1:] {
		if set.Exists(q) {
			fmt.Printf("%s: %s\n", colorize(aec.Bold, q), colorize(aec.GreenF, "STRING EXISTS"))
		} else {
			missing++
			fmt.Printf("%s: %s\n", colorize(aec.Bold, q), colorize(aec.YellowF, "STRING NOT FOUND"))
		}
	}
	if missing > 0 {
		os.Exit(1)
	}
}

var CheckCmd = &cobra.Command{
	Use:   "check file string...",
	Short: "Look up strings in a file without a server",
	Long: `Load a file into memory and look up each string as a whole line.

Exits with status 1 if any string was not found.`,
	Args: cobra.MinimumNArgs(2),
	Run:  runCheck,
}

func init() {
	CheckCmd.Flags().IntVar(&checkMaxLineLength, "max-line-length", 0,
		"Truncate lines longer than this many bytes (0 for no limit)")
	CheckCmd.Flags().StringVar(&checkLogLevel, "log-level", "warn",
		"Log level")
}
