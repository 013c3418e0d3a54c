// Package logls contains project-wide logging configuration and tools
package logls

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kubecc-io/linesearch/internal/zapls"
	"github.com/kubecc-io/linesearch/pkg/types"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Banner = `.__  .__                                          .__
|  | |__| ____   ____   ______ ____ _____ _______ ____ |  |__
|  | |  |/    \_/ __ \ /  ___// __ \\__  \\_  __ \_/ ___\|  |  \
|  |_|  |   |  \  ___/ \___ \\  ___/ / __ \|  | \/\  \___|   Y  \
|____/__|___|  /\___  >____  >\___  >____  /__|    \___  >___|  /
             \/     \/     \/     \/     \/            \/     \/ `

	startTime = atomic.NewInt64(time.Now().Unix())
)

// formatTime prints seconds since process start as a zero-padded
// 4 digit counter, e.g. [0042.
func formatTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	elapsed := t.Unix() - startTime.Load()
	number := strconv.FormatInt(elapsed, 10)
	for len(number) < 4 {
		number = "0" + number
	}
	enc.AppendString("[" + number)
}

type LogOptions struct {
	outputPaths      []string
	errorOutputPaths []string
	logLevel         zapcore.Level
	name             string
	quiet            bool
}

type logOption func(*LogOptions)

func (o *LogOptions) Apply(opts ...logOption) {
	for _, op := range opts {
		op(o)
	}
}

func WithOutputPaths(paths []string) logOption {
	return func(opts *LogOptions) {
		opts.outputPaths = paths
	}
}

func WithErrorOutputPaths(paths []string) logOption {
	return func(opts *LogOptions) {
		opts.errorOutputPaths = paths
	}
}

func WithLogLevel(level zapcore.Level) logOption {
	return func(opts *LogOptions) {
		opts.logLevel = level
	}
}

func WithName(name string) logOption {
	return func(opts *LogOptions) {
		opts.name = name
	}
}

// WithQuiet suppresses the "Starting" line New normally logs.
func WithQuiet() logOption {
	return func(opts *LogOptions) {
		opts.quiet = true
	}
}

func New(component types.Component, ops ...logOption) *zap.SugaredLogger {
	options := LogOptions{
		outputPaths:      []string{"stdout"},
		errorOutputPaths: []string{"stderr"},
		logLevel:         zapcore.InfoLevel,
	}
	options.Apply(ops...)
	color := component.Color()
	conf := zap.Config{
		Level:             zap.NewAtomicLevelAt(options.logLevel),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: true,
		Sampling:          nil,
		Encoding:          "console",
		OutputPaths:       options.outputPaths,
		ErrorOutputPaths:  options.errorOutputPaths,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:       "M",
			LevelKey:         "L",
			TimeKey:          "T",
			NameKey:          "N",
			CallerKey:        "C",
			FunctionKey:      "",
			StacktraceKey:    "S",
			LineEnding:       "\n",
			EncodeLevel:      zapls.CapitalColorLevelEncoder,
			EncodeTime:       formatTime,
			EncodeCaller:     zapls.ShortCallerEncoder,
			EncodeName:       zapls.NameEncoder(color),
			EncodeDuration:   zapcore.MillisDurationEncoder,
			ConsoleSeparator: " ",
		},
	}
	l, err := conf.Build()
	if err != nil {
		panic(err)
	}
	s := l.Sugar().Named(component.ShortName())
	if options.name != "" {
		s = s.Named(options.name)
	}
	if !options.quiet {
		s.Infof(color.Add("Starting %s"), component.Name())
	}
	return s
}

func PrintHeader() {
	fmt.Println(types.CLI.Color().Add(Banner))
}
