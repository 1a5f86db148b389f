package ui

import (
	"github.com/mattn/go-runewidth"
)

// truncate fits s into width terminal cells, padding with spaces if shorter.
// Process names may be wide (CJK), so widths are measured in cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return runewidth.FillRight(s, width)
	}
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// clip shortens s to width cells without padding.
func clip(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
