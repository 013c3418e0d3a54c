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

// Package testutil contains helpers shared by linesearch test suites.
package testutil

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/onsi/ginkgo"
	"github.com/onsi/gomega"
	"go.uber.org/zap/zapcore"

	"github.com/kubecc-io/linesearch/internal/logls"
	"github.com/kubecc-io/linesearch/pkg/meta"
	"github.com/kubecc-io/linesearch/pkg/types"
)

// InGithubWorkflow returns true if the test is running inside github
// workflow CI, otherwise false.
func InGithubWorkflow() bool {
	_, ok := os.LookupEnv("GITHUB_WORKFLOW")
	return ok
}

// SkipInGithubWorkflow will skip the current ginkgo test if running inside
// github workflow CI.
func SkipInGithubWorkflow() {
	if InGithubWorkflow() {
		ginkgo.Skip("Skipping test inside Github workflow")
	}
}

func ExtendTimeoutsIfDebugging() {
	self, _ := os.Executable()
	if filepath.Base(self) == "debug.test" {
		gomega.SetDefaultEventuallyTimeout(1 * time.Hour)
	}
}

// NewTestContext returns a context carrying a test component identity and
// a logger that only prints warnings and errors. Set LINESEARCH_TEST_DEBUG
// to see everything.
func NewTestContext() context.Context {
	level := zapcore.WarnLevel
	if _, ok := os.LookupEnv("LINESEARCH_TEST_DEBUG"); ok {
		level = zapcore.DebugLevel
	}
	return meta.NewContext(context.Background(),
		meta.WithComponent(types.TestComponent),
		meta.WithUUID(),
		meta.WithLog(logls.New(types.TestComponent,
			logls.WithLogLevel(level),
			logls.WithQuiet(),
		)),
	)
}

// WriteLines writes lines to dir/name, each followed by a newline, and
// returns the file's path.
func WriteLines(dir, name string, lines ...string) string {
	path := filepath.Join(dir, name)
	contents := strings.Join(lines, "\n")
	if len(lines) > 0 {
		contents += "\n"
	}
	gomega.Expect(os.WriteFile(path, []byte(contents), 0644)).To(gomega.Succeed())
	return path
}

const wordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789;"

// RandomWords returns n distinct pseudo-random words generated from seed.
func RandomWords(seed int64, n int) []string {
	rng := rand.New(rand.NewSource(seed))
	seen := make(map[string]struct{}, n)
	words := make([]string, 0, n)
	for len(words) < n {
		b := make([]byte, 4+rng.Intn(20))
		for i := range b {
			b[i] = wordChars[rng.Intn(len(wordChars))]
		}
		w := string(b)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
