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

// Package meta attaches process identity (component, instance UUID and
// logger) to a context.Context.
package meta

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubecc-io/linesearch/pkg/types"
)

type metadataKey int

const (
	componentKey metadataKey = iota
	uuidKey
	logKey
)

type Option func(context.Context) context.Context

// WithComponent stores the component the context belongs to.
func WithComponent(c types.Component) Option {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, componentKey, c)
	}
}

// WithUUID stores a freshly generated instance UUID.
func WithUUID() Option {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, uuidKey, uuid.NewString())
	}
}

// WithLog stores a logger.
func WithLog(lg *zap.SugaredLogger) Option {
	return func(ctx context.Context) context.Context {
		return context.WithValue(ctx, logKey, lg)
	}
}

// NewContext creates a context derived from parent with all the given
// options applied. A nil parent means context.Background().
func NewContext(parent context.Context, opts ...Option) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	ctx := parent
	for _, opt := range opts {
		ctx = opt(ctx)
	}
	return ctx
}

func Component(ctx context.Context) types.Component {
	value := ctx.Value(componentKey)
	if value == nil {
		panic("No component in context")
	}
	return value.(types.Component)
}

func UUID(ctx context.Context) string {
	value := ctx.Value(uuidKey)
	if value == nil {
		panic("No uuid in context")
	}
	return value.(string)
}

func Log(ctx context.Context) *zap.SugaredLogger {
	value := ctx.Value(logKey)
	if value == nil {
		panic("No logger in context")
	}
	return value.(*zap.SugaredLogger)
}
