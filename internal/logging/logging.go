// Package logging writes leveled "<timestamp> - <LEVEL> - <message>" lines.
package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// TimestampFormat renders date, time and milliseconds.
const TimestampFormat = "2006-01-02 15:04:05,000"

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var levelColors = map[Level]lipgloss.Color{
	LevelDebug:   lipgloss.Color("240"),
	LevelInfo:    lipgloss.Color("12"),
	LevelWarning: lipgloss.Color("3"),
	LevelError:   lipgloss.Color("9"),
}

// Logger provides leveled logging with verbose mode support.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	styles  map[Level]lipgloss.Style
	verbose bool
	now     func() time.Time
}

// New creates a logger writing to w. Level names are colored only when w is a
// terminal that supports it.
func New(w io.Writer, verbose bool) *Logger {
	renderer := lipgloss.NewRenderer(w)
	styles := make(map[Level]lipgloss.Style, len(levelColors))
	for lvl, c := range levelColors {
		styles[lvl] = renderer.NewStyle().Foreground(c).Bold(lvl == LevelError)
	}

	return &Logger{
		out:     w,
		styles:  styles,
		verbose: verbose,
		now:     time.Now,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, false)
}

// SetVerbose toggles DEBUG output.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

func (l *Logger) log(lvl Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lvl == LevelDebug && !l.verbose {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	msg = strings.TrimRight(msg, "\n")

	fmt.Fprintf(l.out, "%s - %s - %s\n", l.now().Format(TimestampFormat), l.styles[lvl].Render(lvl.String()), msg)
}

// Debugf logs only when verbose is enabled.
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }

func (l *Logger) Infof(format string, args ...any) { l.log(LevelInfo, format, args...) }

func (l *Logger) Warnf(format string, args ...any) { l.log(LevelWarning, format, args...) }

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
