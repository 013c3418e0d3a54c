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

// Package server implements the linesearch TCP query server.
package server

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/pkg/config"
	"github.com/kubecc-io/linesearch/pkg/meta"
	"github.com/kubecc-io/linesearch/pkg/search"
	"github.com/kubecc-io/linesearch/pkg/tlsutil"
	"github.com/kubecc-io/linesearch/pkg/types"
)

// MaxQuerySize is the largest number of bytes read from a client at once.
// Each read is treated as one query.
const MaxQuerySize = 1024

const (
	ResponseExists   = "STRING EXISTS"
	ResponseNotFound = "STRING NOT FOUND"
	ResponseError    = "ERROR: "
)

type ServerOptions struct {
	listener  net.Listener
	tlsConfig *tls.Config
}

type serverOption func(*ServerOptions)

func (o *ServerOptions) Apply(opts ...serverOption) {
	for _, op := range opts {
		op(o)
	}
}

// WithListener makes Serve accept connections from l instead of listening
// on the configured address.
func WithListener(l net.Listener) serverOption {
	return func(o *ServerOptions) {
		o.listener = l
	}
}

// WithTLSConfig overrides the certificate handling done when UseTLS is
// set.
func WithTLSConfig(conf *tls.Config) serverOption {
	return func(o *ServerOptions) {
		o.tlsConfig = conf
	}
}

type Server struct {
	ServerOptions

	lg   *zap.SugaredLogger
	spec config.ServerSpec

	buffer   search.Buffer
	searchFn search.Func
	cache    *search.ResultCache
	pool     *workerPool

	conns   mapset.Set
	wg      sync.WaitGroup
	queries *atomic.Int64
	served  *atomic.Bool
}

// ErrAlreadyServed is returned when Serve is called more than once.
var ErrAlreadyServed = errors.New("server has already been started")

// NewServer prepares a server for spec. Unless RereadOnQuery is set the
// data file is loaded into the configured buffer here.
func NewServer(
	ctx context.Context,
	spec config.ServerSpec,
	opts ...serverOption,
) (*Server, error) {
	srv := &Server{
		lg:      meta.Log(ctx),
		spec:    spec,
		conns:   mapset.NewSet(),
		queries: atomic.NewInt64(0),
		served:  atomic.NewBool(false),
	}
	srv.Apply(opts...)

	fn, err := search.Lookup(spec.Algorithm)
	if err != nil {
		return nil, err
	}
	if !spec.RereadOnQuery {
		start := time.Now()
		srv.buffer, err = search.NewBuffer(
			search.BufferKind(spec.Buffer), spec.DataPath, spec.MaxLineLength)
		if err != nil {
			return nil, err
		}
		if srv.buffer != nil {
			srv.lg.With(
				zap.String("path", spec.DataPath),
				zap.String("buffer", spec.Buffer),
				zap.Int("lines", srv.buffer.Len()),
				zap.Duration("elapsed", time.Since(start)),
			).Info("Data file loaded")
		}
	}
	if srv.buffer == nil {
		if spec.Cache.Enabled() {
			srv.cache = search.NewResultCache(fn, spec.Cache.Size, spec.Cache.TTLDuration())
			srv.cache.Observe(func(hit bool) {
				if hit {
					cacheHitsTotal.Inc()
				} else {
					cacheMissesTotal.Inc()
				}
			})
			fn = srv.cache.Search
		}
		srv.searchFn = fn
		srv.pool = newWorkerPool(func(ctx context.Context, query string) (bool, error) {
			return fn(ctx, spec.DataPath, query)
		})
	}

	if spec.UseTLS && srv.tlsConfig == nil {
		certPath, keyPath, err := tlsutil.EnsureCertificate(
			spec.TLS.CertDir, spec.TLS.CertFile, spec.TLS.KeyFile)
		if err != nil {
			return nil, errors.WithMessage(err, "could not prepare certificate")
		}
		srv.tlsConfig, err = tlsutil.ServerConfig(certPath, keyPath)
		if err != nil {
			return nil, err
		}
		srv.lg.With(
			zap.String("dir", filepath.Dir(certPath)),
		).Info("TLS enabled")
	}
	return srv, nil
}

func (s *Server) mode() string {
	if s.buffer != nil {
		return modeBuffer
	}
	return modeReread
}

// Serve accepts connections until ctx is canceled, at which point the
// listener and all open connections are closed. It returns once every
// connection handler has exited. A Server can only be served once.
func (s *Server) Serve(ctx context.Context) error {
	if !s.served.CAS(false, true) {
		return ErrAlreadyServed
	}
	listener := s.listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", s.spec.ListenAddress)
		if err != nil {
			return errors.WithMessage(err, "could not listen")
		}
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.lg.With(
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.String("mode", s.mode()),
	).Info("Server listening")

	if s.pool != nil {
		s.pool.SetWorkerCount(s.workerCount())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		listener.Close()
		for _, c := range s.conns.ToSlice() {
			c.(net.Conn).Close()
		}
	}()

	var serveErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() == nil {
				serveErr = err
				cancel()
			}
			break
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
	s.wg.Wait()
	if s.pool != nil {
		s.pool.SetWorkerCount(0)
	}
	if s.cache != nil {
		s.cache.Stop()
	}
	s.lg.With(
		zap.Int64("queries", s.queries.Load()),
	).Info("Server stopped")
	return serveErr
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	lg := s.lg.With(
		types.ShortID(uuid.NewString()),
		zap.String("client", conn.RemoteAddr().String()),
	)
	s.conns.Add(conn)
	activeConnections.Inc()
	defer func() {
		s.conns.Remove(conn)
		activeConnections.Dec()
		conn.Close()
		lg.Debug("Client disconnected")
	}()
	if ctx.Err() != nil {
		return
	}
	lg.Debug("Client connected")

	buf := make([]byte, MaxQuerySize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := s.reply(ctx, lg, conn, buf[:n]); werr != nil {
				lg.With(zap.Error(werr)).Debug("Write failed")
				return
			}
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				lg.With(zap.Error(err)).Debug("Read failed")
			}
			return
		}
	}
}

func (s *Server) reply(
	ctx context.Context,
	lg *zap.SugaredLogger,
	w io.Writer,
	data []byte,
) error {
	query := CleanQuery(data)
	start := time.Now()
	found, err := s.lookup(ctx, query)
	elapsed := time.Since(start)
	s.queries.Inc()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	result := resultNotFound
	switch {
	case err != nil:
		result = resultError
		buf.WriteString(ResponseError)
		buf.WriteString(err.Error())
	case found:
		result = resultFound
		buf.WriteString(ResponseExists)
	default:
		buf.WriteString(ResponseNotFound)
	}
	observeQuery(s.mode(), result, elapsed)
	lg.With(
		zap.String("query", query),
		zap.String("result", result),
		zap.Duration("elapsed", elapsed),
	).Debug("Query answered")

	buf.WriteByte('\n')
	_, err = w.Write(buf.B)
	return err
}

// Lookup answers a single query from the preloaded buffer or, in reread
// mode, by searching the data file. Unlike queries received over the
// network it does not go through the worker pool.
func (s *Server) Lookup(ctx context.Context, query string) (bool, error) {
	if s.buffer != nil {
		return s.buffer.Exists(query), nil
	}
	return s.searchFn(ctx, s.spec.DataPath, query)
}

func (s *Server) lookup(ctx context.Context, query string) (bool, error) {
	if s.pool != nil {
		return s.pool.Submit(ctx, query)
	}
	return s.buffer.Exists(query), nil
}

func (s *Server) workerCount() int {
	if s.spec.Workers > 0 {
		return s.spec.Workers
	}
	return runtime.NumCPU()
}

// QueriesServed returns the number of queries answered so far.
func (s *Server) QueriesServed() int64 {
	return s.queries.Load()
}

// CacheStats returns result cache statistics. ok is false if the server
// does not use a cache.
func (s *Server) CacheStats() (stats search.CacheStats, ok bool) {
	if s.cache == nil {
		return
	}
	return s.cache.Stats(), true
}

// CleanQuery strips surrounding whitespace and all NUL bytes from data.
// NULs are removed before trimming, so whitespace ahead of a trailing NUL
// is also stripped; the legacy server kept it.
func CleanQuery(data []byte) string {
	return string(bytes.TrimSpace(bytes.ReplaceAll(data, []byte{0}, nil)))
}
