package util

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const bytesPerMB = 1024 * 1024

var printer = message.NewPrinter(language.English)

// Grouped renders n with thousands separators, e.g. 1234567 -> "1,234,567".
func Grouped(n int64) string {
	return printer.Sprintf("%d", n)
}

// SignedGrouped is Grouped with an explicit sign, "+0" for zero.
func SignedGrouped(n int64) string {
	if n < 0 {
		return "-" + Grouped(-n)
	}
	return "+" + Grouped(n)
}

// Megabytes converts a byte count to MiB.
func Megabytes(n int64) float64 {
	return float64(n) / bytesPerMB
}

// FormatFileSize formats a file size in bytes into a human-readable string
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}
