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

package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/kubecc-io/linesearch/pkg/config"
)

func writeFile(name, contents string) string {
	path := filepath.Join(testDir, name)
	Expect(os.WriteFile(path, []byte(contents), 0644)).To(Succeed())
	return path
}

var _ = Describe("Config", func() {
	var dataPath string
	BeforeEach(func() {
		dataPath = writeFile("data.txt", "apple\nbanana\n")
	})

	Context("key=value format", func() {
		It("Should parse a complete file", func() {
			path := writeFile("full.txt", fmt.Sprintf(`
# server configuration
linuxpath=%s
REREAD_ON_QUERY = True
port=8443
use_ssl=no
host = 127.0.0.1
algorithm=trie
buffer=none
this line is ignored
max_line_length=1023
cache_size=-1
cache_ttl=30s
log_level=debug
`, dataPath))
			spec, err := config.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())

			expected := config.Defaults()
			expected.DataPath = dataPath
			expected.RereadOnQuery = true
			expected.ListenAddress = "127.0.0.1:8443"
			expected.Algorithm = "trie"
			expected.Buffer = "none"
			expected.MaxLineLength = 1023
			expected.Cache.Size = -1
			expected.Cache.TTL = "30s"
			expected.LogLevel = "debug"
			expected.TLS.CertDir = spec.TLS.CertDir
			Expect(cmp.Diff(expected, *spec)).To(BeEmpty())

			Expect(spec.Cache.Enabled()).To(BeFalse())
			Expect(spec.Cache.TTLDuration()).To(Equal(30 * time.Second))
			Expect(spec.LogLevel.Level()).To(Equal(zapcore.DebugLevel))
		})
		It("Should apply defaults", func() {
			path := writeFile("minimal.txt", fmt.Sprintf(
				"linuxpath=%s\nreread_on_query=0\nport=44445\nuse_ssl=1\n", dataPath))
			spec, err := config.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(spec.ListenAddress).To(Equal(config.DefaultListenAddress))
			Expect(spec.UseTLS).To(BeTrue())
			Expect(spec.RereadOnQuery).To(BeFalse())
			Expect(spec.Algorithm).To(Equal("linear"))
			Expect(spec.Buffer).To(Equal("lineset"))
			Expect(spec.Cache.Enabled()).To(BeTrue())
			Expect(spec.Cache.TTLDuration()).To(Equal(config.DefaultCacheTTL))
			Expect(spec.TLS.CertDir).NotTo(HavePrefix("~"))
		})
		It("Should require all mandatory keys", func() {
			for _, missing := range []string{"linuxpath", "reread_on_query", "port", "use_ssl"} {
				lines := map[string]string{
					"linuxpath":       dataPath,
					"reread_on_query": "false",
					"port":            "1234",
					"use_ssl":         "false",
				}
				delete(lines, missing)
				contents := ""
				for k, v := range lines {
					contents += k + "=" + v + "\n"
				}
				_, err := config.LoadFile(writeFile("missing.txt", contents))
				Expect(errors.Is(err, config.ErrMissingField)).To(BeTrue(), missing)
				Expect(err.Error()).To(ContainSubstring(missing))
			}
		})
		It("Should reject invalid booleans", func() {
			path := writeFile("badbool.txt", fmt.Sprintf(
				"linuxpath=%s\nreread_on_query=maybe\nport=1\nuse_ssl=false\n", dataPath))
			_, err := config.LoadFile(path)
			Expect(errors.Is(err, config.ErrInvalidBool)).To(BeTrue())
		})
		It("Should reject invalid ports", func() {
			for _, port := range []string{"http", "-1", "65536"} {
				path := writeFile("badport.txt", fmt.Sprintf(
					"linuxpath=%s\nreread_on_query=true\nport=%s\nuse_ssl=false\n", dataPath, port))
				_, err := config.LoadFile(path)
				Expect(errors.Is(err, config.ErrInvalidValue)).To(BeTrue(), port)
			}
		})
		It("Should require the data file to exist", func() {
			path := writeFile("nodata.txt",
				"linuxpath=/does/not/exist\nreread_on_query=true\nport=1\nuse_ssl=false\n")
			_, err := config.LoadFile(path)
			Expect(errors.Is(err, config.ErrDataFileNotFound)).To(BeTrue())
		})
	})

	Context("YAML and JSON", func() {
		It("Should parse YAML", func() {
			path := writeFile("config.yaml", fmt.Sprintf(`
dataPath: %s
rereadOnQuery: true
listenAddress: 127.0.0.1:9000
useTLS: true
tls:
  certDir: %s
cache:
  size: 50
`, dataPath, testDir))
			spec, err := config.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())

			expected := config.Defaults()
			expected.DataPath = dataPath
			expected.RereadOnQuery = true
			expected.ListenAddress = "127.0.0.1:9000"
			expected.UseTLS = true
			expected.TLS.CertDir = testDir
			expected.Cache.Size = 50
			Expect(cmp.Diff(expected, *spec)).To(BeEmpty())
		})
		It("Should parse JSON", func() {
			path := writeFile("config.json", fmt.Sprintf(
				`{"dataPath": %q, "algorithm": "binary", "logLevel": "warn"}`, dataPath))
			spec, err := config.LoadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(spec.Algorithm).To(Equal("binary"))
			Expect(spec.LogLevel.Level()).To(Equal(zapcore.WarnLevel))
			Expect(spec.ListenAddress).To(Equal(config.DefaultListenAddress))
		})
		It("Should reject unknown fields", func() {
			path := writeFile("unknown.yaml", fmt.Sprintf("dataPath: %s\nbogus: 1\n", dataPath))
			_, err := config.LoadFile(path)
			Expect(err).To(HaveOccurred())
		})
		It("Should require dataPath", func() {
			_, err := config.LoadFile(writeFile("empty.yaml", "rereadOnQuery: true\n"))
			Expect(errors.Is(err, config.ErrMissingField)).To(BeTrue())
		})
		It("Should reject invalid log levels", func() {
			path := writeFile("level.yaml", fmt.Sprintf("dataPath: %s\nlogLevel: loud\n", dataPath))
			_, err := config.LoadFile(path)
			Expect(errors.Is(err, config.ErrInvalidValue)).To(BeTrue())
		})
	})

	It("Should report missing config files", func() {
		_, err := config.LoadFile(filepath.Join(testDir, "nope.yaml"))
		Expect(errors.Is(err, config.ErrConfigNotFound)).To(BeTrue())
	})
})

var _ = Describe("ParseBool", func() {
	DescribeTable("values",
		func(in string, expected bool, ok bool) {
			b, err := config.ParseBool("key", in)
			if ok {
				Expect(err).NotTo(HaveOccurred())
				Expect(b).To(Equal(expected))
			} else {
				Expect(errors.Is(err, config.ErrInvalidBool)).To(BeTrue())
			}
		},
		Entry("true", "true", true, true),
		Entry("TRUE", "TRUE", true, true),
		Entry("1", "1", true, true),
		Entry("yes", " Yes ", true, true),
		Entry("false", "False", false, true),
		Entry("0", "0", false, true),
		Entry("no", "NO", false, true),
		Entry("empty", "", false, false),
		Entry("on", "on", false, false),
		Entry("2", "2", false, false),
	)
})
