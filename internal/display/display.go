// Package display renders the ambient, non-interactive status line the
// Controller falls back to when no TUI widget library is attached. It is
// not the TUI (that remains an external collaborator, out of scope) — it
// is the degrade-gracefully path that keeps the core runnable headless.
package display

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// PrintRight writes text right-aligned to the current terminal width,
// overwriting the current line.
func PrintRight(text string) {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width = 80
	}

	padding := width - len(text)
	if padding < 0 {
		padding = 0
	}

	fmt.Printf("\r%s%s", spaces(padding), text)
}

func spaces(n int) string {
	return fmt.Sprintf("%*s", n, "")
}

// ProgressBar renders an ASCII bar of the given width filled to percent.
func ProgressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := (percent * width) / 100

	return fmt.Sprintf("%s%s",
		strings.Repeat("#", filled),
		strings.Repeat(" ", width-filled),
	)
}

// Ticker invokes printF on every tick of refreshRate until ctx is done.
func Ticker(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

// StatusLine formats the outermost frame's live rate/latency next to the
// tracer event channel headroom, in the teacher's fixed-width status idiom.
func StatusLine(rateHz float64, avgLatencyNs float64, chanUtilPercent int) string {
	return fmt.Sprintf("\r%-28s %-22s %-22s",
		fmt.Sprintf("Rate: %8.1f/s", rateHz),
		fmt.Sprintf("Avg latency: %10.0fns", avgLatencyNs),
		fmt.Sprintf("Events buffer: [%s] %3d%%", ProgressBar(chanUtilPercent, 10), chanUtilPercent),
	)
}
