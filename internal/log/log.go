package log

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup configures the default slog logger to write JSON records to a
// rotated log file. It is safe to call more than once; only the first call
// has any effect.
func Setup(logFile string, debug bool) {
	initOnce.Do(func() {
		logRotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 0,
			MaxAge:     30, // days
			Compress:   false,
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		logger := slog.NewJSONHandler(logRotator, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})

		slog.SetDefault(slog.New(logger))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// MaskToken masks a gateway auth token by showing only the first and last 5
// characters. For tokens shorter than 10 characters, it shows first 2 and
// last 2 characters. Returns "***EMPTY***" for empty strings.
func MaskToken(token string) string {
	if token == "" {
		return "***EMPTY***"
	}

	tok := strings.TrimPrefix(token, "Bearer ")

	tokLen := len(tok)
	if tokLen <= 4 {
		return strings.Repeat("*", tokLen)
	} else if tokLen <= 10 {
		return tok[:2] + strings.Repeat("*", tokLen-4) + tok[tokLen-2:]
	}
	return tok[:5] + strings.Repeat("*", tokLen-10) + tok[tokLen-5:]
}

// RecoverPanic writes a timestamped crash report for a recovered panic and
// runs the optional cleanup.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		timestamp := time.Now().Format("20060102-150405")
		filename := fmt.Sprintf("clawdeck-panic-%s-%s.log", name, timestamp)

		file, err := os.Create(filename)
		if err == nil {
			defer file.Close()

			fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
			fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
			fmt.Fprintf(file, "Stack Trace:\n%s\n", debug.Stack())

			if cleanup != nil {
				cleanup()
			}
		}
	}
}
