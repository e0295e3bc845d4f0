package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kalambet/finplan/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// stderr receives status lines; tests swap it for a buffer.
var stderr io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

func statusColor(s storage.SessionStatus) string {
	switch s {
	case storage.StatusFinalized:
		return colorGreen
	case storage.StatusAborted:
		return colorRed
	case storage.StatusActive:
		return colorYellow
	default:
		return colorCyan
	}
}

// sessionLine renders one row of `finplan sessions list`.
func sessionLine(s storage.Session) string {
	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s  %s  %-10s  %s, %s, %s lakhs, %s",
		colorize(colorCyan, id),
		s.CreatedAt.Local().Format(time.DateTime),
		colorize(statusColor(s.Status), string(s.Status)),
		s.Name, s.Gender, s.Income, s.City,
	)
}
