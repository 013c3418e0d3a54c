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

// Package client implements a linesearch protocol client.
package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kubecc-io/linesearch/pkg/tlsutil"
)

var (
	ErrQueryTooLong = errors.New("query exceeds 1024 bytes")
	ErrEmptyQuery   = errors.New("query is empty")
	ErrClosed       = errors.New("client is closed")
)

const maxQuerySize = 1024

const (
	responseExists = "STRING EXISTS"
	responseError  = "ERROR: "
)

type ClientOptions struct {
	tls         bool
	insecure    bool
	tlsConfig   *tls.Config
	dialTimeout time.Duration
}

type Option func(*ClientOptions)

func (o *ClientOptions) Apply(opts ...Option) {
	for _, op := range opts {
		op(o)
	}
}

func WithTLS(enabled bool) Option {
	return func(o *ClientOptions) {
		o.tls = enabled
	}
}

// WithInsecureSkipVerify enables TLS without verifying the server's
// certificate, which is needed for self-signed certificates.
func WithInsecureSkipVerify() Option {
	return func(o *ClientOptions) {
		o.tls = true
		o.insecure = true
	}
}

func WithTLSConfig(conf *tls.Config) Option {
	return func(o *ClientOptions) {
		o.tls = true
		o.tlsConfig = conf
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *ClientOptions) {
		o.dialTimeout = d
	}
}

// Response is the server's answer to one query.
type Response struct {
	Found   bool
	Message string
	RTT     time.Duration
}

// Err returns the server-reported error, if any.
func (r *Response) Err() error {
	if strings.HasPrefix(r.Message, responseError) {
		return errors.New(strings.TrimPrefix(r.Message, responseError))
	}
	return nil
}

// Client holds one connection. Queries are serialized.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// Dial connects to a linesearch server at addr.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	options := ClientOptions{
		dialTimeout: 10 * time.Second,
	}
	options.Apply(opts...)

	dialer := &net.Dialer{
		Timeout: options.dialTimeout,
	}
	var conn net.Conn
	var err error
	if options.tls {
		conf := options.tlsConfig
		if conf == nil {
			conf = tlsutil.ClientConfig(options.insecure)
		}
		if conf.ServerName == "" {
			if host, _, err := net.SplitHostPort(addr); err == nil {
				conf = conf.Clone()
				conf.ServerName = host
			}
		}
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config:    conf,
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "could not connect to %s", addr)
	}
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// Query sends query and waits for the response. Canceling ctx interrupts
// the exchange; a late response would then be read by the next Query, so
// the client should be closed.
func (c *Client) Query(ctx context.Context, query string) (*Response, error) {
	if len(query) > maxQuerySize {
		return nil, ErrQueryTooLong
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	stop := make(chan struct{})
	exited := make(chan struct{})
	defer func() {
		close(stop)
		<-exited
	}()
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			c.conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()

	start := time.Now()
	if _, err := c.conn.Write([]byte(query)); err != nil {
		return nil, errors.WithMessage(err, "could not send query")
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WithMessage(err, "could not read response")
	}
	message := strings.TrimRight(line, "\r\n")
	return &Response{
		Found:   message == responseExists,
		Message: message,
		RTT:     time.Since(start),
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
