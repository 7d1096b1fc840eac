package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

type Verbosity int

const (
	Quiet Verbosity = iota
	Info
	Warning
	Debug
)

func (v Verbosity) String() string {
	switch v {
	case Quiet:
		return "quiet"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Debug:
		return "debug"
	default:
		return fmt.Sprintf("Verbosity(%d)", int(v))
	}
}

// ParseVerbosity maps a command line verbosity name to its level. Unknown names
// fall back to Quiet and report false.
func ParseVerbosity(s string) (Verbosity, bool) {
	switch strings.ToLower(s) {
	case "", "quiet":
		return Quiet, true
	case "info", "verbose":
		return Info, true
	case "warning":
		return Warning, true
	case "debug":
		return Debug, true
	}
	return Quiet, false
}

// Logger prints messages at or below its verbosity. A nil Logger is silent.
// Writes to Output are serialized, so one Logger may be shared by goroutines.
type Logger struct {
	Verbosity Verbosity
	Output    io.Writer

	mu sync.Mutex
}

func New(verbosity Verbosity, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{
		Verbosity: verbosity,
		Output:    output,
	}
}

func (l *Logger) Printf(verbosity Verbosity, format string, args ...any) {
	if l == nil || l.Output == nil {
		return
	}
	if l.Verbosity >= verbosity {
		l.mu.Lock()
		fmt.Fprintf(l.Output, format, args...)
		l.mu.Unlock()
	}
}

func (l *Logger) Enabled(verbosity Verbosity) bool {
	return l != nil && l.Verbosity >= verbosity
}
