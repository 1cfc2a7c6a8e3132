// Package util holds small text helpers shared by the commands.
package util

import "strings"

// Dedent trims every line of s and s as a whole. Runs of blank lines collapse
// into one, so help texts keep their paragraphs.
func Dedent(s string) string {
	var b strings.Builder
	blank := false
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = true
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			if blank {
				b.WriteByte('\n')
			}
		}
		blank = false
		b.WriteString(line)
	}
	return b.String()
}
