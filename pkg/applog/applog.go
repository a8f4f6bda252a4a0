// Package applog is a small leveled key-value logger writing to stderr.
//
// The engine's diagnostics (scan progress, drift warnings, gateway
// failures) want structured context without pulling in a logging framework;
// a line format of "timestamp [LEVEL] msg key=value ..." is enough to grep.
package applog

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *stdlog.Logger
	loggerOnce sync.Once
	mu         sync.Mutex
	minLevel   = LevelInfo
)

func initLogger() {
	loggerOnce.Do(func() {
		logger = stdlog.New(os.Stderr, "", 0)
	})
}

// SetLevel sets the minimum level that will be emitted. The value is
// case-insensitive; unknown levels rank as info.
func SetLevel(l Level) {
	initLogger()
	mu.Lock()
	minLevel = Level(strings.ToUpper(string(l)))
	mu.Unlock()
}

func Debug(msg string, kv ...any) { logWithLevel(LevelDebug, msg, kv...) }

func Info(msg string, kv ...any) { logWithLevel(LevelInfo, msg, kv...) }

func Warn(msg string, kv ...any) { logWithLevel(LevelWarn, msg, kv...) }

// Error logs msg with the error prepended to the key-value list.
func Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel(LevelError, msg, extended...)
}

func logWithLevel(level Level, msg string, kv ...any) {
	initLogger()
	if !enabled(level) {
		return
	}

	line := time.Now().Format(time.RFC3339Nano) + " [" + string(level) + "] " + msg
	if len(kv) > 0 {
		line += formatKVs(kv...)
	}
	logger.Println(line)
}

func enabled(level Level) bool {
	mu.Lock()
	min := minLevel
	mu.Unlock()
	return rank(level) >= rank(min)
}

func rank(l Level) int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

func formatKVs(kv ...any) string {
	out := ""
	// Expect kv as pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out += " " + key + "=" + fmt.Sprint(kv[i+1])
	}
	// If odd number of args, last one is ignored.
	return out
}
