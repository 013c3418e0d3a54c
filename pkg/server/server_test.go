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

package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/kubecc-io/linesearch/internal/testutil"
	"github.com/kubecc-io/linesearch/pkg/client"
	"github.com/kubecc-io/linesearch/pkg/config"
	"github.com/kubecc-io/linesearch/pkg/server"
)

type runningServer struct {
	srv    *server.Server
	addr   string
	cancel context.CancelFunc
	done   chan error
}

func startServer(spec config.ServerSpec) *runningServer {
	spec.ApplyDefaults()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	srv, err := server.NewServer(testCtx, spec, server.WithListener(listener))
	Expect(err).NotTo(HaveOccurred())

	ctx, cancel := context.WithCancel(testCtx)
	rs := &runningServer{
		srv:    srv,
		addr:   listener.Addr().String(),
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() {
		rs.done <- srv.Serve(ctx)
	}()
	return rs
}

func (rs *runningServer) stop() {
	rs.cancel()
	Eventually(rs.done, 5*time.Second).Should(Receive(BeNil()))
}

func dial(addr string) *client.Client {
	c, err := client.Dial(testCtx, addr)
	Expect(err).NotTo(HaveOccurred())
	return c
}

func query(c *client.Client, q string) string {
	ctx, ca := context.WithTimeout(testCtx, 5*time.Second)
	defer ca()
	resp, err := c.Query(ctx, q)
	Expect(err).NotTo(HaveOccurred())
	return resp.Message
}

var _ = Describe("CleanQuery", func() {
	DescribeTable("strips whitespace and NUL bytes",
		func(in, expected string) {
			Expect(server.CleanQuery([]byte(in))).To(Equal(expected))
		},
		Entry("plain", "apple", "apple"),
		Entry("newline", "apple\n", "apple"),
		Entry("crlf", "apple\r\n", "apple"),
		Entry("padding", "  apple \t", "apple"),
		Entry("trailing nuls", "apple\x00\x00", "apple"),
		Entry("embedded nul", "ap\x00ple", "apple"),
		Entry("inner spaces", "red apple", "red apple"),
		Entry("space before trailing nul", "apple \x00", "apple"),
		Entry("only whitespace", " \n\x00", ""),
	)
})

var _ = Describe("Server", func() {
	var dataPath string
	BeforeEach(func() {
		dataPath = testutil.WriteLines(testDir, "data.txt",
			"apple", "banana", "7;0;6;28;0;23;5;0;", "red apple")
	})

	modes := map[string]config.ServerSpec{
		"lineset buffer": {Buffer: "lineset"},
		"trie buffer":    {Buffer: "trie"},
		"linear reread":  {RereadOnQuery: true, Algorithm: "linear"},
		"binary reread":  {RereadOnQuery: true, Algorithm: "binary", Cache: config.CacheSpec{Size: -1}},
		"no buffer":      {Buffer: "none", Algorithm: "rabinkarp"},
	}
	for name, base := range modes {
		base := base
		Context(name, func() {
			var rs *runningServer
			BeforeEach(func() {
				spec := base
				spec.DataPath = dataPath
				rs = startServer(spec)
			})
			AfterEach(func() {
				rs.stop()
			})
			It("Should answer queries", func() {
				c := dial(rs.addr)
				defer c.Close()
				Expect(query(c, "apple")).To(Equal(server.ResponseExists))
				Expect(query(c, "banana\n")).To(Equal(server.ResponseExists))
				Expect(query(c, "7;0;6;28;0;23;5;0;")).To(Equal(server.ResponseExists))
				Expect(query(c, "red apple")).To(Equal(server.ResponseExists))
				Expect(query(c, "Apple")).To(Equal(server.ResponseNotFound))
				Expect(query(c, "red")).To(Equal(server.ResponseNotFound))
				Expect(rs.srv.QueriesServed()).To(BeEquivalentTo(6))
			})
		})
	}

	It("Should serve many concurrent clients", func() {
		rs := startServer(config.ServerSpec{DataPath: dataPath})
		defer rs.stop()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				c := dial(rs.addr)
				defer c.Close()
				for j := 0; j < 10; j++ {
					Expect(query(c, "banana")).To(Equal(server.ResponseExists))
					Expect(query(c, "cherry")).To(Equal(server.ResponseNotFound))
				}
			}()
		}
		wg.Wait()
		Expect(rs.srv.QueriesServed()).To(BeEquivalentTo(400))
	})

	It("Should see file changes in reread mode", func() {
		rs := startServer(config.ServerSpec{
			DataPath:      dataPath,
			RereadOnQuery: true,
		})
		defer rs.stop()
		c := dial(rs.addr)
		defer c.Close()

		Expect(query(c, "cherry")).To(Equal(server.ResponseNotFound))
		Expect(query(c, "cherry")).To(Equal(server.ResponseNotFound))
		stats, ok := rs.srv.CacheStats()
		Expect(ok).To(BeTrue())
		Expect(stats.Hits).To(BeEquivalentTo(1))

		testutil.WriteLines(testDir, "data.txt", "apple", "banana", "cherry pie", "cherry")
		Expect(query(c, "cherry")).To(Equal(server.ResponseExists))
	})

	It("Should not see file changes in buffer mode", func() {
		rs := startServer(config.ServerSpec{DataPath: dataPath})
		defer rs.stop()
		c := dial(rs.addr)
		defer c.Close()

		testutil.WriteLines(testDir, "data.txt", "cherry")
		Expect(query(c, "cherry")).To(Equal(server.ResponseNotFound))
		Expect(query(c, "apple")).To(Equal(server.ResponseExists))
		_, ok := rs.srv.CacheStats()
		Expect(ok).To(BeFalse())
	})

	It("Should report errors when the data file disappears", func() {
		path := testutil.WriteLines(testDir, "vanishing.txt", "apple")
		rs := startServer(config.ServerSpec{
			DataPath:      path,
			RereadOnQuery: true,
		})
		defer rs.stop()
		c := dial(rs.addr)
		defer c.Close()

		Expect(query(c, "apple")).To(Equal(server.ResponseExists))
		Expect(os.Remove(path)).To(Succeed())
		ctx, ca := context.WithTimeout(testCtx, 5*time.Second)
		defer ca()
		resp, err := c.Query(ctx, "apple")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Found).To(BeFalse())
		Expect(resp.Message).To(HavePrefix(server.ResponseError))
		Expect(resp.Err()).To(MatchError(ContainSubstring("file not found")))

		// the connection stays usable
		Expect(query(c, "apple")).To(HavePrefix(server.ResponseError))
	})

	It("Should fail to start without data", func() {
		_, err := server.NewServer(testCtx, config.ServerSpec{
			DataPath:  filepath.Join(testDir, "missing.txt"),
			Algorithm: "linear",
			Buffer:    "lineset",
		})
		Expect(err).To(HaveOccurred())
	})

	It("Should reject unknown algorithms and buffers", func() {
		_, err := server.NewServer(testCtx, config.ServerSpec{
			DataPath:  dataPath,
			Algorithm: "quantum",
		})
		Expect(err).To(HaveOccurred())
		_, err = server.NewServer(testCtx, config.ServerSpec{
			DataPath:  dataPath,
			Algorithm: "linear",
			Buffer:    "bloom",
		})
		Expect(err).To(HaveOccurred())
	})

	It("Should close open connections on shutdown", func() {
		rs := startServer(config.ServerSpec{DataPath: dataPath})
		c := dial(rs.addr)
		defer c.Close()
		Expect(query(c, "apple")).To(Equal(server.ResponseExists))

		rs.stop()
		ctx, ca := context.WithTimeout(testCtx, 5*time.Second)
		defer ca()
		_, err := c.Query(ctx, "apple")
		Expect(err).To(HaveOccurred())
	})

	It("Should refuse to serve twice", func() {
		rs := startServer(config.ServerSpec{
			DataPath:      dataPath,
			RereadOnQuery: true,
			Algorithm:     "linear",
		})
		rs.stop()
		Expect(rs.srv.Serve(testCtx)).To(MatchError(server.ErrAlreadyServed))
	})

	It("Should serve over TLS", func() {
		rs := startServer(config.ServerSpec{
			DataPath: dataPath,
			UseTLS:   true,
			TLS: config.TLSSpec{
				CertDir: filepath.Join(testDir, "certs"),
			},
		})
		defer rs.stop()
		Expect(filepath.Join(testDir, "certs", "cert.pem")).To(BeAnExistingFile())

		c, err := client.Dial(testCtx, rs.addr, client.WithInsecureSkipVerify())
		Expect(err).NotTo(HaveOccurred())
		defer c.Close()
		Expect(query(c, "banana")).To(Equal(server.ResponseExists))
		Expect(query(c, "cherry")).To(Equal(server.ResponseNotFound))
	})
})

var _ = Describe("Client", func() {
	It("Should validate queries", func() {
		dataPath := testutil.WriteLines(testDir, "client.txt", "apple")
		rs := startServer(config.ServerSpec{DataPath: dataPath})
		defer rs.stop()
		c := dial(rs.addr)

		_, err := c.Query(testCtx, "")
		Expect(err).To(MatchError(client.ErrEmptyQuery))
		long := make([]byte, 1025)
		for i := range long {
			long[i] = 'a'
		}
		_, err = c.Query(testCtx, string(long))
		Expect(err).To(MatchError(client.ErrQueryTooLong))

		resp, err := c.Query(testCtx, "apple")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Found).To(BeTrue())
		Expect(resp.Err()).To(BeNil())
		Expect(resp.RTT).To(BeNumerically(">", 0))

		Expect(c.Close()).To(Succeed())
		Expect(c.Close()).To(Succeed())
		_, err = c.Query(testCtx, "apple")
		Expect(err).To(MatchError(client.ErrClosed))
	})

	It("Should fail to connect to a closed port", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr := l.Addr().String()
		l.Close()
		_, err = client.Dial(testCtx, addr)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Metrics", func() {
	It("Should serve prometheus metrics", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr := l.Addr().String()
		l.Close()

		ctx, cancel := context.WithCancel(testCtx)
		done := make(chan error, 1)
		go func() {
			done <- server.ServeMetrics(ctx, addr)
		}()

		var body string
		Eventually(func() error {
			resp, err := http.Get("http://" + addr + "/metrics")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			body = string(data)
			return err
		}, 5*time.Second, 50*time.Millisecond).Should(Succeed())
		Expect(body).To(ContainSubstring("linesearch_cache_hits_total"))
		Expect(body).To(ContainSubstring("linesearch_active_connections"))

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})
})
