package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/folio-hq/folio/internal/markup"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

// renderReply turns assistant markup into terminal text: bold spans are
// emboldened and links show their URL after the label.
func renderReply(text string) string {
	var b strings.Builder
	for _, part := range markup.Parse(text) {
		switch part.Kind {
		case markup.Bold:
			b.WriteString(colorize(colorBold, part.Text))
		case markup.Link:
			b.WriteString(part.Text)
			b.WriteString(" (")
			b.WriteString(colorize(colorCyan, part.URL))
			b.WriteString(")")
		default:
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
