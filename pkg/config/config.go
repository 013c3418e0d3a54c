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

// Package config loads linesearch server configuration from YAML, JSON or
// the legacy key=value text format.
package config

import (
	"bufio"
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/yaml"
)

var (
	ErrConfigNotFound   = errors.New("configuration file not found")
	ErrMissingField     = errors.New("missing required configuration")
	ErrInvalidBool      = errors.New("invalid boolean value")
	ErrInvalidValue     = errors.New("invalid configuration value")
	ErrDataFileNotFound = errors.New("data file does not exist")
)

// ParseBool accepts true/false, 1/0 and yes/no, ignoring case and
// surrounding whitespace.
func ParseBool(key, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, errors.WithMessagef(ErrInvalidBool,
		"key %q: expected true, false, 1, 0, yes or no, got %q", key, value)
}

// LoadFile reads the configuration at path, applies defaults and
// validates it. Files ending in .yaml, .yml or .json are decoded as YAML
// (which includes JSON); anything else is read as key=value lines.
func LoadFile(path string) (*ServerSpec, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithMessage(ErrConfigNotFound, path)
		}
		return nil, errors.WithMessage(err, "error reading config file")
	}
	var spec *ServerSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		spec = &ServerSpec{}
		if err := yaml.Unmarshal(contents, spec, yaml.DisallowUnknownFields); err != nil {
			return nil, errors.WithMessagef(err, "error parsing config file %s", path)
		}
		if spec.DataPath == "" {
			return nil, errors.WithMessage(ErrMissingField, "dataPath")
		}
	default:
		spec, err = parseKeyValue(contents)
		if err != nil {
			return nil, errors.WithMessagef(err, "error parsing config file %s", path)
		}
	}
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseKeyValue reads the legacy text format. Blank lines, lines
// starting with '#' and lines without '=' are skipped; keys are case
// insensitive. linuxpath, reread_on_query, port and use_ssl are required.
func parseKeyValue(contents []byte) (*ServerSpec, error) {
	spec := &ServerSpec{}
	required := map[string]bool{
		"linuxpath":       false,
		"reread_on_query": false,
		"port":            false,
		"use_ssl":         false,
	}
	host := "0.0.0.0"
	port := ""

	scan := bufio.NewScanner(bytes.NewReader(contents))
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx == -1 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if _, ok := required[key]; ok {
			required[key] = true
		}

		var err error
		switch key {
		case "linuxpath":
			spec.DataPath = value
		case "reread_on_query":
			spec.RereadOnQuery, err = ParseBool(key, value)
		case "use_ssl":
			spec.UseTLS, err = ParseBool(key, value)
		case "port":
			port = value
		case "host":
			host = value
		case "algorithm":
			spec.Algorithm = value
		case "buffer":
			spec.Buffer = value
		case "cert_dir":
			spec.TLS.CertDir = value
		case "metrics_address":
			spec.MetricsAddress = value
		case "log_level":
			spec.LogLevel = LogLevelString(value)
		case "max_line_length":
			spec.MaxLineLength, err = parseInt(key, value)
		case "workers":
			spec.Workers, err = parseInt(key, value)
		case "cache_size":
			var size int
			size, err = parseInt(key, value)
			spec.Cache.Size = int64(size)
		case "cache_ttl":
			spec.Cache.TTL = value
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scan.Err(); err != nil {
		return nil, err
	}
	for _, key := range []string{"linuxpath", "reread_on_query", "port", "use_ssl"} {
		if !required[key] {
			return nil, errors.WithMessage(ErrMissingField, key)
		}
	}
	if _, err := validatePort(port); err != nil {
		return nil, err
	}
	spec.ListenAddress = net.JoinHostPort(host, port)
	return spec, nil
}

func parseInt(key, value string) (int, error) {
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.WithMessagef(ErrInvalidValue, "key %q: %q is not an integer", key, value)
	}
	return i, nil
}

func validatePort(port string) (int, error) {
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return 0, errors.WithMessagef(ErrInvalidValue, "invalid port %q", port)
	}
	return p, nil
}

// Validate checks the configuration for consistency. The data file must exist.
func (s *ServerSpec) Validate() error {
	if s.DataPath == "" {
		return errors.WithMessage(ErrMissingField, "dataPath")
	}
	expanded, err := homedir.Expand(s.DataPath)
	if err != nil {
		return errors.WithMessage(ErrInvalidValue, err.Error())
	}
	s.DataPath = expanded
	if _, err := os.Stat(s.DataPath); err != nil {
		return errors.WithMessage(ErrDataFileNotFound, s.DataPath)
	}
	if _, port, err := net.SplitHostPort(s.ListenAddress); err != nil {
		return errors.WithMessagef(ErrInvalidValue, "listen address %q", s.ListenAddress)
	} else if _, err := validatePort(port); err != nil {
		return err
	}
	if s.MaxLineLength < 0 {
		return errors.WithMessage(ErrInvalidValue, "maxLineLength must not be negative")
	}
	if s.Workers < 0 {
		return errors.WithMessage(ErrInvalidValue, "workers must not be negative")
	}
	if dir, err := homedir.Expand(s.TLS.CertDir); err == nil {
		s.TLS.CertDir = dir
	}
	var l zapcore.Level
	if err := l.Set(string(s.LogLevel)); err != nil {
		return errors.WithMessagef(ErrInvalidValue, "log level %q", s.LogLevel)
	}
	return nil
}

type providerPaths struct {
	dirs      []string
	filenames []string
}

// Provider searches the standard locations for a configuration file.
var Provider = providerPaths{
	dirs: []string{
		"/etc/linesearch",
		"~/.linesearch",
	},
	filenames: []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.txt",
	},
}

// Load returns the first configuration found in /etc/linesearch or
// ~/.linesearch.
func (p providerPaths) Load() (*ServerSpec, error) {
	for _, dir := range p.dirs {
		dir, err := homedir.Expand(dir)
		if err != nil {
			continue
		}
		for _, f := range p.filenames {
			abs := filepath.Join(dir, f)
			if _, err := os.Stat(abs); err != nil {
				continue
			}
			return LoadFile(abs)
		}
	}
	return nil, errors.WithMessage(ErrConfigNotFound,
		"searched /etc/linesearch and ~/.linesearch")
}
