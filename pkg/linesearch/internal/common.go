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

package internal

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kubecc-io/linesearch/internal/logls"
	"github.com/kubecc-io/linesearch/pkg/meta"
	"github.com/kubecc-io/linesearch/pkg/types"
)

// NewContext returns a context with a fresh identity and logger for the
// given component.
func NewContext(component types.Component, level zapcore.Level) (context.Context, *zap.SugaredLogger) {
	lg := logls.New(component,
		logls.WithLogLevel(level),
		logls.WithQuiet(),
	)
	ctx := meta.NewContext(context.Background(),
		meta.WithComponent(component),
		meta.WithUUID(),
		meta.WithLog(lg),
	)
	return ctx, lg
}

// ParseLevel parses a log level flag, falling back to info.
func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.Set(s); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
