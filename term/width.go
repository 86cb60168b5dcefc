package term

import "strings"

// RuneWidth returns the number of terminal cells r occupies.
func RuneWidth(r rune) int {
	if r < 0x80 {
		if r < 0x20 || r == 0x7F {
			return 0
		}
		return 1
	}
	if isZeroWidth(r) {
		return 0
	}
	if isWideChar(r) {
		return 2
	}
	return 1
}

// StringWidth returns the number of terminal cells s occupies.
func StringWidth(s string) int {
	width := 0
	for _, r := range s {
		width += RuneWidth(r)
	}
	return width
}

func isZeroWidth(r rune) bool {
	return (r >= 0x0300 && r <= 0x036F) ||
		(r >= 0x1AB0 && r <= 0x1AFF) ||
		(r >= 0x1DC0 && r <= 0x1DFF) ||
		(r >= 0x20D0 && r <= 0x20FF) ||
		(r >= 0xFE00 && r <= 0xFE0F) ||
		(r >= 0xFE20 && r <= 0xFE2F) ||
		r == 0x200B || r == 0x200C || r == 0x200D || r == 0x2060 || r == 0xFEFF
}

func isWideChar(r rune) bool {
	return (r >= 0x1100 && r <= 0x115F) ||
		(r >= 0x2E80 && r <= 0x303E) ||
		(r >= 0x3041 && r <= 0x33FF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x4E00 && r <= 0xA4CF) ||
		(r >= 0xAC00 && r <= 0xD7A3) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0xFE30 && r <= 0xFE4F) ||
		(r >= 0xFF00 && r <= 0xFF60) ||
		(r >= 0xFFE0 && r <= 0xFFE6) ||
		(r >= 0x1F300 && r <= 0x1F64F) ||
		(r >= 0x1F900 && r <= 0x1F9FF) ||
		(r >= 0x20000 && r <= 0x3FFFD)
}

// Truncate cuts s to at most width cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := 0
	for i, r := range s {
		cw := RuneWidth(r)
		if w+cw > width {
			return s[:i]
		}
		w += cw
	}
	return s
}

// WrapText word-wraps text to width cells. Newlines start a new paragraph
// and words longer than width are broken.
func WrapText(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		var line strings.Builder
		lineWidth := 0
		for _, word := range words {
			ww := StringWidth(word)
			switch {
			case lineWidth > 0 && lineWidth+1+ww <= width:
				line.WriteByte(' ')
				line.WriteString(word)
				lineWidth += 1 + ww
				continue
			case lineWidth > 0:
				lines = append(lines, line.String())
				line.Reset()
				lineWidth = 0
			}
			if ww > width {
				for _, seg := range BreakRunes([]rune(word), width) {
					lines = append(lines, string(seg))
				}
				continue
			}
			line.WriteString(word)
			lineWidth = ww
		}
		if lineWidth > 0 {
			lines = append(lines, line.String())
		}
	}
	return lines
}

// BreakRunes hard-wraps a single line into rows of at most width cells.
// An empty line yields one empty row. A rune wider than width gets a row
// of its own.
func BreakRunes(line []rune, width int) [][]rune {
	if len(line) == 0 || width <= 0 {
		return [][]rune{line}
	}
	var rows [][]rune
	start, w := 0, 0
	for i, r := range line {
		cw := RuneWidth(r)
		if w+cw > width && i > start {
			rows = append(rows, line[start:i])
			start, w = i, 0
		}
		w += cw
	}
	return append(rows, line[start:])
}
