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

package config

import (
	"fmt"
	"time"

	"github.com/imdario/mergo"
	"go.uber.org/zap/zapcore"
)

type LogLevelString string

func (str LogLevelString) Level() (l zapcore.Level) {
	if err := l.Set(string(str)); err != nil {
		panic(fmt.Sprintf("Could not parse log level string %q", str))
	}
	return
}

// ServerSpec is the full configuration of a linesearch server.
type ServerSpec struct {
	// DataPath is the file whose lines are searched. Called "linuxpath"
	// in the key=value format.
	DataPath      string `json:"dataPath,omitempty"`
	RereadOnQuery bool   `json:"rereadOnQuery,omitempty"`
	ListenAddress string `json:"listenAddress,omitempty"`
	UseTLS        bool   `json:"useTLS,omitempty"`
	// Algorithm is used when RereadOnQuery is set.
	Algorithm string `json:"algorithm,omitempty"`
	// Buffer is the preloaded lookup structure used otherwise.
	Buffer        string `json:"buffer,omitempty"`
	MaxLineLength int    `json:"maxLineLength,omitempty"`
	// Workers limits concurrent searches in reread mode. Zero means one
	// per CPU.
	Workers        int            `json:"workers,omitempty"`
	MetricsAddress string         `json:"metricsAddress,omitempty"`
	LogLevel       LogLevelString `json:"logLevel,omitempty"`
	TLS            TLSSpec        `json:"tls,omitempty"`
	Cache          CacheSpec      `json:"cache,omitempty"`
}

type TLSSpec struct {
	CertDir  string `json:"certDir,omitempty"`
	CertFile string `json:"certFile,omitempty"`
	KeyFile  string `json:"keyFile,omitempty"`
}

// CacheSpec configures the result cache used in reread mode. A negative
// Size disables the cache.
type CacheSpec struct {
	Size int64  `json:"size,omitempty"`
	TTL  string `json:"ttl,omitempty"`
}

func (c CacheSpec) Enabled() bool {
	return c.Size > 0
}

func (c CacheSpec) TTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return DefaultCacheTTL
	}
	return d
}

const (
	DefaultPort          = "44445"
	DefaultListenAddress = "0.0.0.0:" + DefaultPort
	DefaultCacheTTL      = 5 * time.Minute
)

// Defaults returns the values used for every field a config file leaves
// unset.
func Defaults() ServerSpec {
	return ServerSpec{
		ListenAddress: DefaultListenAddress,
		Algorithm:     "linear",
		Buffer:        "lineset",
		LogLevel:      "info",
		TLS: TLSSpec{
			CertDir:  "~/.linesearch/certs",
			CertFile: "cert.pem",
			KeyFile:  "key.pem",
		},
		Cache: CacheSpec{
			Size: 10000,
			TTL:  DefaultCacheTTL.String(),
		},
	}
}

// ApplyDefaults fills every unset field from Defaults.
func (s *ServerSpec) ApplyDefaults() {
	if err := mergo.Merge(s, Defaults()); err != nil {
		panic(err)
	}
}
