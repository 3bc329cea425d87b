// Package observability prints human-readable run reports.
package observability

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"
)

const (
	// boxWidth is the display width of report boxes, borders included.
	boxWidth = 80
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer writes boxed reports to out.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	inner := boxWidth - 4
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", padRight(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", padRight(truncateWidth(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// runeWidth is 2 for East Asian wide and fullwidth runes, 1 otherwise.
func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// displayWidth is the number of terminal columns s occupies.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		w += runeWidth(r)
	}
	return w
}

// padRight pads s with spaces to n columns.
func padRight(s string, n int) string {
	if gap := n - displayWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// truncateWidth shortens s to at most n columns, ending in "..." when cut.
func truncateWidth(s string, n int) string {
	if displayWidth(s) <= n {
		return s
	}
	limit := n - 3
	var sb strings.Builder
	w := 0
	for _, r := range s {
		rw := runeWidth(r)
		if w+rw > limit {
			break
		}
		sb.WriteRune(r)
		w += rw
	}
	return sb.String() + "..."
}
