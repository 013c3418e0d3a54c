// Package zapls holds the zap encoders and terminal colors used by
// linesearch loggers.
package zapls

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var UseColor = true

// Foreground colors.
const (
	Black termColor = iota + 30
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

var NoColor noColor

// Color represents a text color.
type Color interface {
	Add(string) string
}

type termColor uint8

// Add adds the coloring to the given string.
func (c termColor) Add(s string) string {
	if !UseColor {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", uint8(c), s)
}

type noColor struct{}

func (c noColor) Add(s string) string {
	return s
}

var (
	_levelToColor = map[zapcore.Level]Color{
		zapcore.DebugLevel:  Magenta,
		zapcore.InfoLevel:   Blue,
		zapcore.WarnLevel:   Yellow,
		zapcore.ErrorLevel:  Red,
		zapcore.DPanicLevel: Red,
		zapcore.PanicLevel:  Red,
		zapcore.FatalLevel:  Red,
	}
	_unknownLevelColor = Red

	_levelToCapitalColorString = make(map[zapcore.Level]string, len(_levelToColor))
)

func init() {
	if value, ok := os.LookupEnv("LINESEARCH_LOG_COLOR"); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			fmt.Printf("Invalid value for LINESEARCH_LOG_COLOR: %s\n", value)
		} else {
			UseColor = b
		}
	} else {
		UseColor = term.IsTerminal(int(os.Stdout.Fd()))
	}
	refreshLevelStrings()
}

// SetUseColor overrides terminal detection.
func SetUseColor(enabled bool) {
	UseColor = enabled
	refreshLevelStrings()
}

func refreshLevelStrings() {
	for level, color := range _levelToColor {
		_levelToCapitalColorString[level] = color.Add(level.CapitalString()[:4])
	}
}
