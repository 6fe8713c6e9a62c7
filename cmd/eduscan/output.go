package main

import (
	"fmt"
	"os"
)

// Status notes go to stderr so that row data (document listings, answers,
// exports) stays pipeable on stdout.

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

func notef(color, glyph, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, glyph+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { notef(colorGreen, "✓", format, args...) }

func printError(format string, args ...any) { notef(colorRed, "✗", format, args...) }

func printWarning(format string, args ...any) { notef(colorYellow, "⚠", format, args...) }

func printStep(format string, args ...any) { notef(colorCyan, "→", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}
