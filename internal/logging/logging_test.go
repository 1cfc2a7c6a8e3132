package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(verbose bool) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(&buf, verbose)
	l.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	}
	return l, &buf
}

func TestLineFormat(t *testing.T) {
	l, buf := newTestLogger(false)

	l.Infof("Running ANALYZE...")
	l.Errorf("Optimization failed: %s", "disk I/O error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2025-03-14 09:26:53,589 - INFO - Running ANALYZE...", lines[0])
	assert.Equal(t, "2025-03-14 09:26:53,589 - ERROR - Optimization failed: disk I/O error", lines[1])
}

func TestDebugRequiresVerbose(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Debugf("hidden")
	assert.Empty(t, buf.String())

	l.SetVerbose(true)
	l.Debugf("shown %d", 1)
	assert.Contains(t, buf.String(), " - DEBUG - shown 1")
}

func TestWarnLevelName(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Warnf("column %q missing", "fulltext")
	assert.Contains(t, buf.String(), ` - WARNING - column "fulltext" missing`)
}

func TestLiteralPercentWithoutArgs(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Infof("100% done")
	assert.Contains(t, buf.String(), "100% done")
}
