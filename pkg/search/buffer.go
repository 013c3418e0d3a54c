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

package search

import (
	"os"

	"github.com/pkg/errors"

	"github.com/kubecc-io/linesearch/pkg/lineset"
	"github.com/kubecc-io/linesearch/pkg/trie"
)

var ErrUnknownBuffer = errors.New("unknown buffer kind")

// A Buffer answers lookups from data loaded ahead of time.
type Buffer interface {
	Exists(query string) bool
	Len() int
}

type BufferKind string

const (
	LineSetBuffer BufferKind = "lineset"
	TrieBuffer    BufferKind = "trie"
	NoBuffer      BufferKind = "none"
)

type trieBuffer struct {
	*trie.Trie
}

func (b trieBuffer) Exists(query string) bool {
	return b.Search(query)
}

// NewBuffer loads the file at path into a buffer of the given kind. For
// NoBuffer it returns a nil Buffer and no error. Unlike LineSet.Load, a
// missing file is an error here since a server without data cannot
// answer anything meaningfully.
func NewBuffer(kind BufferKind, path string, maxLineLength int) (Buffer, error) {
	switch kind {
	case NoBuffer, "":
		return nil, nil
	case LineSetBuffer:
		set := lineset.New(lineset.WithMaxLineLength(maxLineLength))
		if err := set.TryLoad(path); err != nil {
			return nil, bufferError(err, path)
		}
		return set, nil
	case TrieBuffer:
		f, err := os.Open(path)
		if err != nil {
			return nil, bufferError(err, path)
		}
		defer f.Close()
		t := trie.New()
		err = lineset.ForEachLine(f, maxLineLength, func(line []byte) bool {
			t.Insert(string(line))
			return true
		})
		if err != nil {
			return nil, errors.WithMessagef(err, "error reading %s", path)
		}
		return trieBuffer{t}, nil
	}
	return nil, errors.WithMessage(ErrUnknownBuffer, string(kind))
}

func bufferError(err error, path string) error {
	if os.IsNotExist(errors.Cause(err)) {
		return errors.WithMessage(ErrFileNotFound, path)
	}
	return err
}
