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

// Package search implements whole-line lookups over a data file, both by
// re-reading the file on every query and through preloaded buffers.
package search

import (
	"bytes"
	"context"
	"hash/fnv"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/kubecc-io/linesearch/pkg/lineset"
	"github.com/kubecc-io/linesearch/pkg/trie"
)

var (
	ErrFileNotFound     = errors.New("file not found")
	ErrUnknownAlgorithm = errors.New("unknown search algorithm")
)

// Func reports whether the file at path contains a line exactly equal to
// query. The file is read on every call.
type Func func(ctx context.Context, path string, query string) (bool, error)

type Algorithm string

const (
	Linear    Algorithm = "linear"
	HashSet   Algorithm = "hashset"
	Binary    Algorithm = "binary"
	Trie      Algorithm = "trie"
	RabinKarp Algorithm = "rabinkarp"
)

var algorithms = map[Algorithm]Func{
	Linear:    LinearSearch,
	HashSet:   HashSetSearch,
	Binary:    BinarySearch,
	Trie:      TrieSearch,
	RabinKarp: RabinKarpSearch,
}

// Lookup returns the search function registered under name.
func Lookup(name string) (Func, error) {
	if fn, ok := algorithms[Algorithm(name)]; ok {
		return fn, nil
	}
	return nil, errors.WithMessage(ErrUnknownAlgorithm, name)
}

// Names returns all algorithm names, sorted.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// checkEvery controls how often long scans poll their context.
const checkEvery = 1024

// scan opens path and feeds each line to fn until fn returns false, the
// file ends, or ctx is done.
func scan(ctx context.Context, path string, fn func(line []byte) bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.WithMessage(ErrFileNotFound, path)
		}
		return errors.WithMessage(err, "could not open data file")
	}
	defer f.Close()

	var ctxErr error
	n := 0
	err = lineset.ForEachLine(f, 0, func(line []byte) bool {
		n++
		if n%checkEvery == 0 {
			if ctxErr = ctx.Err(); ctxErr != nil {
				return false
			}
		}
		return fn(line)
	})
	if ctxErr != nil {
		return ctxErr
	}
	return errors.WithMessagef(err, "error reading %s", path)
}

func LinearSearch(ctx context.Context, path string, query string) (bool, error) {
	q := []byte(query)
	found := false
	err := scan(ctx, path, func(line []byte) bool {
		found = bytes.Equal(line, q)
		return !found
	})
	return found, err
}

// HashSetSearch loads the whole file into a LineSet before looking up the
// query.
func HashSetSearch(ctx context.Context, path string, query string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, errors.WithMessage(ErrFileNotFound, path)
	}
	set := lineset.New()
	if err := set.TryLoad(path); err != nil {
		return false, err
	}
	return set.Exists(query), nil
}

// BinarySearch sorts all lines of the file and bisects for the query.
func BinarySearch(ctx context.Context, path string, query string) (bool, error) {
	lines := []string{}
	err := scan(ctx, path, func(line []byte) bool {
		lines = append(lines, string(line))
		return true
	})
	if err != nil {
		return false, err
	}
	sort.Strings(lines)
	i := sort.SearchStrings(lines, query)
	return i < len(lines) && lines[i] == query, nil
}

func TrieSearch(ctx context.Context, path string, query string) (bool, error) {
	t := trie.New()
	err := scan(ctx, path, func(line []byte) bool {
		t.Insert(string(line))
		return true
	})
	if err != nil {
		return false, err
	}
	return t.Search(query), nil
}

// RabinKarpSearch compares a hash of each line of matching length with
// the hash of the query, and only compares bytes when the hashes match.
func RabinKarpSearch(ctx context.Context, path string, query string) (bool, error) {
	q := []byte(query)
	want := fingerprint(q)
	found := false
	err := scan(ctx, path, func(line []byte) bool {
		if len(line) != len(q) {
			return true
		}
		found = fingerprint(line) == want && bytes.Equal(line, q)
		return !found
	})
	return found, err
}

func fingerprint(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}
