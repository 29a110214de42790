package render

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Header formats a boxed title line.
func Header(format string, args ...interface{}) string {
	title := fmt.Sprintf(format, args...)
	bar := strings.Repeat("=", len(title)+4)
	return fmt.Sprintf("%s\n  %s\n%s\n", bar, title, bar)
}

// Section formats a bracketed section title with an underline.
func Section(title string) string {
	return fmt.Sprintf("[%s]\n%s\n", title, strings.Repeat("-", len(title)+2))
}

// Width returns the terminal cell width of s.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces to the given terminal cell width.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// SideBySide lays two text blocks out in columns. padding is the
// minimum gap between them. Column alignment uses terminal cell widths,
// so box drawing and wide runes line up.
func SideBySide(left string, rightLines []string, padding int) string {
	leftLines := strings.Split(strings.TrimRight(left, "\n"), "\n")

	leftWidth := 0
	for _, line := range leftLines {
		if w := runewidth.StringWidth(line); w > leftWidth {
			leftWidth = w
		}
	}

	height := len(leftLines)
	if len(rightLines) > height {
		height = len(rightLines)
	}

	var sb strings.Builder
	for i := 0; i < height; i++ {
		leftPart := ""
		if i < len(leftLines) {
			leftPart = leftLines[i]
		}
		rightPart := ""
		if i < len(rightLines) {
			rightPart = rightLines[i]
		}

		sb.WriteString(leftPart)
		if rightPart != "" {
			gap := leftWidth - runewidth.StringWidth(leftPart) + padding
			if gap > 0 {
				sb.WriteString(strings.Repeat(" ", gap))
			}
			sb.WriteString(rightPart)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
