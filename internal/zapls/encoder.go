package zapls

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Width of the caller column, in bytes.
const callerWidth = 18

// CapitalColorLevelEncoder serializes a Level to a 4-character,
// all-caps string and adds color. InfoLevel becomes a blue "INFO".
func CapitalColorLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	s, ok := _levelToCapitalColorString[l]
	if !ok {
		s = _unknownLevelColor.Add(l.CapitalString()[:4])
	}
	enc.AppendString(s)
}

// PadCaller fits a "dir/file.go:123" caller path into exactly width
// bytes. Short paths are right-aligned with spaces. Long paths lose
// their directory first, and if the file name alone is still too long,
// its leading bytes are replaced by a single '+'.
func PadCaller(path string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(path) > width {
		if idx := strings.LastIndexByte(path, '/'); idx != -1 {
			path = path[idx+1:]
		}
	}
	if len(path) > width {
		path = "+" + path[len(path)-width+1:]
	}
	return strings.Repeat(" ", width-len(path)) + path
}

func ShortCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(PadCaller(caller.TrimmedPath(), callerWidth))
}

func NameEncoder(color Color) zapcore.NameEncoder {
	return func(loggerName string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + color.Add(loggerName) + "]")
	}
}
