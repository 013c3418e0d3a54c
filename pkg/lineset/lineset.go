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

// Package lineset implements an in-memory set of the lines of one or more
// text files.
package lineset

import (
	"io"
	"os"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LineSet holds every distinct line loaded into it. Members are compared
// by exact byte content. Loads accumulate; nothing is ever removed.
//
// Load and Exists may be called from multiple goroutines. A Load blocks
// lookups until it has finished reading its file.
type LineSet struct {
	mu            sync.RWMutex
	members       mapset.Set
	maxLineLength int
	lg            *zap.SugaredLogger
}

type LineSetOptions struct {
	maxLineLength int
	lg            *zap.SugaredLogger
}

type lineSetOption func(*LineSetOptions)

func (o *LineSetOptions) Apply(opts ...lineSetOption) {
	for _, op := range opts {
		op(o)
	}
}

// WithMaxLineLength truncates every line to at most n bytes. The rest of
// an overlong line is discarded, it does not become a separate member.
// n <= 0 means no limit, which is the default.
func WithMaxLineLength(n int) lineSetOption {
	return func(o *LineSetOptions) {
		o.maxLineLength = n
	}
}

// WithLogger sets the logger used to report skipped files.
func WithLogger(lg *zap.SugaredLogger) lineSetOption {
	return func(o *LineSetOptions) {
		o.lg = lg
	}
}

// New creates an empty LineSet.
func New(opts ...lineSetOption) *LineSet {
	options := LineSetOptions{}
	options.Apply(opts...)
	if options.lg == nil {
		options.lg = zap.NewNop().Sugar()
	}
	return &LineSet{
		members:       mapset.NewThreadUnsafeSet(),
		maxLineLength: options.maxLineLength,
		lg:            options.lg,
	}
}

// Load adds every line of the file at path to the set. Loading is best
// effort: if the file cannot be opened or read, the error is logged at
// debug level and otherwise ignored. Lines read before a read error
// stay in the set.
func (s *LineSet) Load(path string) {
	if err := s.TryLoad(path); err != nil {
		s.lg.With(
			zap.Error(err),
			zap.String("path", path),
		).Debug("Skipping unreadable file")
	}
}

// TryLoad behaves like Load but returns open and read errors to the
// caller. A file that could not be opened leaves the set unchanged.
func (s *LineSet) TryLoad(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithMessage(err, "could not open file")
	}
	defer f.Close()
	return errors.WithMessagef(s.LoadReader(f), "error reading %s", path)
}

// LoadReader adds every line read from r to the set, until EOF.
func (s *LineSet) LoadReader(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ForEachLine(r, s.maxLineLength, func(line []byte) bool {
		s.members.Add(string(line))
		return true
	})
}

// Exists reports whether query is a member of the set.
func (s *LineSet) Exists(query string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members.Contains(query)
}

// Len returns the number of members.
func (s *LineSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members.Cardinality()
}
