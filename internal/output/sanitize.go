// Package output turns raw terminal output from the Q CLI into chat-ready text:
// it sanitizes escape sequences and drawing glyphs, extracts the answer from
// conversational output, and splits long bodies into message-sized chunks.
package output

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// controlChars matches C0 controls and DEL. Tab and newline are kept.
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)

	// decorativeGlyphs matches the box-drawing block (U+2500–U+257F) and the
	// Braille block (U+2800–U+28FF) used for spinners and logo art.
	decorativeGlyphs = regexp.MustCompile(`[\x{2500}-\x{257F}\x{2800}-\x{28FF}]`)

	// blankRuns matches a newline followed by two or more further newlines,
	// with only whitespace in between.
	blankRuns = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Sanitize strips ANSI escape sequences, control characters and decorative
// glyphs from raw process output, collapses runs of blank lines to a single
// blank line and trims surrounding whitespace.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	text := ansi.Strip(raw)
	text = controlChars.ReplaceAllString(text, "")
	text = decorativeGlyphs.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// IsDecorative reports whether r is removed by Sanitize as a drawing glyph.
func IsDecorative(r rune) bool {
	return (r >= 0x2500 && r <= 0x257F) || (r >= 0x2800 && r <= 0x28FF)
}
