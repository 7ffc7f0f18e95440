// Package logger prints tagged, optionally coloured log lines for the CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level controls which messages are printed.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorBold   = "\033[1m"
)

var (
	mu    sync.Mutex
	level = LevelInfo
	color = IsTerminal(os.Stdout)
	// out is resolved on every call so tests can swap os.Stdout.
	out = func() io.Writer { return os.Stdout }
)

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Unknown names fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel sets the minimum level that is printed.
func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

// SetColor forces ANSI colours on or off.
func SetColor(enabled bool) {
	mu.Lock()
	color = enabled
	mu.Unlock()
}

// SetOutput redirects all output. A nil writer restores os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		out = func() io.Writer { return os.Stdout }
		return
	}
	out = func() io.Writer { return w }
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func write(l Level, c, mark, tag, msg string) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	ts := time.Now().Format("15:04:05")
	if color {
		fmt.Fprintf(out(), "%s%s%s %s%s%s %s[%s]%s %s\n",
			colorGray, ts, colorReset, c, mark, colorReset, colorBold, tag, colorReset, msg)
		return
	}
	fmt.Fprintf(out(), "%s %s [%s] %s\n", ts, mark, tag, msg)
}

// Debug prints a debug line. Suppressed unless the level is LevelDebug.
func Debug(tag, msg string) { write(LevelDebug, colorGray, "·", tag, msg) }

// Info prints an informational line.
func Info(tag, msg string) { write(LevelInfo, colorCyan, "i", tag, msg) }

// Success prints a completion line.
func Success(tag, msg string) { write(LevelInfo, colorGreen, "✓", tag, msg) }

// Warn prints a warning line.
func Warn(tag, msg string) { write(LevelWarn, colorYellow, "!", tag, msg) }

// Error prints an error line.
func Error(tag, msg string) { write(LevelError, colorRed, "✗", tag, msg) }

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	mu.Lock()
	defer mu.Unlock()
	line := strings.Repeat("=", 48)
	if color {
		fmt.Fprintf(out(), "%s%s\n  EVE Hub Arbitrage  %s%s\n%s%s\n", colorCyan, line, version, colorReset+colorCyan, line, colorReset)
		return
	}
	fmt.Fprintf(out(), "%s\n  EVE Hub Arbitrage  %s\n%s\n", line, version, line)
}

// Section prints a section header.
func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	if color {
		fmt.Fprintf(out(), "\n%s── %s ──%s\n", colorBold, title, colorReset)
		return
	}
	fmt.Fprintf(out(), "\n── %s ──\n", title)
}

// Stats prints an indented key/value line.
func Stats(key string, value interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if color {
		fmt.Fprintf(out(), "   %s%-22s%s %v\n", colorGray, key, colorReset, value)
		return
	}
	fmt.Fprintf(out(), "   %-22s %v\n", key, value)
}
