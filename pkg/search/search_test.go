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

package search_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/kubecc-io/linesearch/pkg/search"
)

func writeData(name, contents string) string {
	path := filepath.Join(testDir, name)
	Expect(os.WriteFile(path, []byte(contents), 0644)).To(Succeed())
	return path
}

var _ = Describe("Search algorithms", func() {
	ctx := context.Background()
	data := "7;0;6;28;0;23;5;0;\nbanana\r\napple\n\nzebra\nhéllo wörld\nlast"

	It("Should list all algorithms", func() {
		Expect(search.Names()).To(Equal([]string{
			"binary", "hashset", "linear", "rabinkarp", "trie",
		}))
	})
	It("Should reject unknown algorithms", func() {
		_, err := search.Lookup("bogus")
		Expect(errors.Is(err, search.ErrUnknownAlgorithm)).To(BeTrue())
	})

	for _, name := range search.Names() {
		name := name
		Context(name, func() {
			var fn search.Func
			var path string
			BeforeEach(func() {
				var err error
				fn, err = search.Lookup(name)
				Expect(err).NotTo(HaveOccurred())
				path = writeData(name+".txt", data)
			})
			It("Should find exact lines", func() {
				for _, q := range []string{"7;0;6;28;0;23;5;0;", "banana", "apple", "zebra", "héllo wörld", "last", ""} {
					found, err := fn(ctx, path, q)
					Expect(err).NotTo(HaveOccurred())
					Expect(found).To(BeTrue(), q)
				}
			})
			It("Should not match partial or different lines", func() {
				for _, q := range []string{"Apple", "appl", "apple ", "banana\r", "7;0;6;28;0;23;5;0", "cherry"} {
					found, err := fn(ctx, path, q)
					Expect(err).NotTo(HaveOccurred())
					Expect(found).To(BeFalse(), q)
				}
			})
			It("Should fail on missing files", func() {
				_, err := fn(ctx, filepath.Join(testDir, "missing.txt"), "x")
				Expect(errors.Is(err, search.ErrFileNotFound)).To(BeTrue())
			})
			It("Should handle empty files", func() {
				empty := writeData(name+"-empty.txt", "")
				found, err := fn(ctx, empty, "x")
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeFalse())
			})
		})
	}

	It("Should stop scanning when the context is canceled", func() {
		path := writeData("big.txt", strings.Repeat("line\n", 10000))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := search.LinearSearch(cctx, path, "not present")
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Buffers", func() {
	path := ""
	BeforeEach(func() {
		path = writeData("buffer.txt", "one\r\ntwo\nthree\n")
	})
	for _, kind := range []search.BufferKind{search.LineSetBuffer, search.TrieBuffer} {
		kind := kind
		It("Should preload a "+string(kind)+" buffer", func() {
			buf, err := search.NewBuffer(kind, path, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.Len()).To(Equal(3))
			Expect(buf.Exists("two")).To(BeTrue())
			Expect(buf.Exists("four")).To(BeFalse())
		})
		It("Should fail to preload a missing file into a "+string(kind)+" buffer", func() {
			_, err := search.NewBuffer(kind, filepath.Join(testDir, "nope"), 0)
			Expect(errors.Is(err, search.ErrFileNotFound)).To(BeTrue())
		})
	}
	It("Should return no buffer for the none kind", func() {
		buf, err := search.NewBuffer(search.NoBuffer, path, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf).To(BeNil())
	})
	It("Should reject unknown kinds", func() {
		_, err := search.NewBuffer("bogus", path, 0)
		Expect(errors.Is(err, search.ErrUnknownBuffer)).To(BeTrue())
	})
})

var _ = Describe("Result cache", func() {
	ctx := context.Background()
	var calls *atomic.Int32
	var cache *search.ResultCache
	var path string
	BeforeEach(func() {
		calls = atomic.NewInt32(0)
		cache = search.NewResultCache(func(ctx context.Context, p, q string) (bool, error) {
			calls.Inc()
			return search.LinearSearch(ctx, p, q)
		}, 100, time.Minute)
		path = writeData("cached.txt", "cached\n")
	})
	AfterEach(func() {
		cache.Stop()
	})
	It("Should serve repeated queries from the cache", func() {
		for i := 0; i < 3; i++ {
			found, err := cache.Search(ctx, path, "cached")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		}
		Expect(calls.Load()).To(BeEquivalentTo(1))
		stats := cache.Stats()
		Expect(stats.Hits).To(BeEquivalentTo(2))
		Expect(stats.Misses).To(BeEquivalentTo(1))
		Expect(stats.Entries).To(Equal(1))
	})
	It("Should miss after the file changes", func() {
		found, err := cache.Search(ctx, path, "new")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
		Expect(os.WriteFile(path, []byte("cached\nnew\n"), 0644)).To(Succeed())
		found, err = cache.Search(ctx, path, "new")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(calls.Load()).To(BeEquivalentTo(2))
	})
	It("Should not cache errors", func() {
		missing := filepath.Join(testDir, "missing-cached.txt")
		for i := 0; i < 2; i++ {
			_, err := cache.Search(ctx, missing, "x")
			Expect(errors.Is(err, search.ErrFileNotFound)).To(BeTrue())
		}
		Expect(calls.Load()).To(BeEquivalentTo(2))
		Expect(cache.Stats().Entries).To(Equal(0))
	})
	It("Should be empty after Clear", func() {
		_, err := cache.Search(ctx, path, "cached")
		Expect(err).NotTo(HaveOccurred())
		cache.Clear()
		Expect(cache.Stats().Entries).To(Equal(0))
	})
	It("Should allow Stop to be called more than once", func() {
		Expect(cache.Stop).NotTo(Panic())
		Expect(cache.Stop).NotTo(Panic())
	})
})
