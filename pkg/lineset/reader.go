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

package lineset

import (
	"bufio"
	"bytes"
	"io"
)

// readLine returns the next line from br with its terminator removed.
// ok is false once the reader has no more data. Anything from the first
// '\r' or '\n' onwards is dropped, so a returned line never contains
// either byte. If max > 0 the line is truncated to max bytes.
func readLine(br *bufio.Reader, max int) (line []byte, ok bool, err error) {
	for {
		chunk, readErr := br.ReadSlice('\n')
		if len(chunk) > 0 {
			ok = true
			if max <= 0 || len(line) < max {
				line = append(line, chunk...)
			}
		}
		switch readErr {
		case bufio.ErrBufferFull:
			continue
		case nil, io.EOF:
			return trimLine(line, max), ok, nil
		default:
			return trimLine(line, max), ok, readErr
		}
	}
}

func trimLine(line []byte, max int) []byte {
	if idx := bytes.IndexAny(line, "\r\n"); idx != -1 {
		line = line[:idx]
	}
	if max > 0 && len(line) > max {
		line = line[:max]
	}
	return line
}

// ForEachLine calls fn with every line read from r, terminators removed
// exactly as LineSet does it. Iteration stops early when fn returns
// false. The slice passed to fn is only valid until fn returns.
func ForEachLine(r io.Reader, maxLineLength int, fn func(line []byte) bool) error {
	br := bufio.NewReader(r)
	for {
		line, ok, err := readLine(br, maxLineLength)
		if ok && !fn(line) {
			return nil
		}
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}
