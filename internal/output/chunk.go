package output

import (
	"fmt"
	"strings"
)

const (
	// TelegramMessageLimit is the hard per-message limit of the Bot API.
	TelegramMessageLimit = 4096

	// DefaultBudget is the content budget per chunk. The difference to
	// TelegramMessageLimit is left for the fenced wrapper and header.
	DefaultBudget = 3800

	// DefaultMaxChunks caps how many messages one reply may produce.
	DefaultMaxChunks = 10

	// MaxLabelLength caps the label rendered in the first chunk's header.
	// With DefaultBudget it keeps every rendered chunk under
	// TelegramMessageLimit.
	MaxLabelLength = 200
)

// Chunk is one display-ready piece of a long reply.
type Chunk struct {
	Seq     int    // 1-based position in the reply
	Label   string // set on the first chunk only
	Body    string
	Omitted int // characters left unsent; non-zero only on the omission notice
}

// IsNotice reports whether c is the trailing omission notice.
func (c Chunk) IsNotice() bool {
	return c.Omitted > 0
}

// Render formats the chunk as a fenced code block. Labels longer than
// MaxLabelLength are shortened.
func (c Chunk) Render() string {
	switch {
	case c.IsNotice():
		return fmt.Sprintf("```\n(remaining output too long, %d characters omitted)\n```", c.Omitted)
	case c.Seq <= 1:
		return fmt.Sprintf("```\n$ %s\n\n%s\n```", Truncate(c.Label, MaxLabelLength, "…"), c.Body)
	default:
		return fmt.Sprintf("```\n(cont. %d)\n\n%s\n```", c.Seq, c.Body)
	}
}

// Chunker splits bodies into at most MaxChunks chunks of at most Budget
// characters each. Lengths are counted in runes.
type Chunker struct {
	Budget    int
	MaxChunks int
}

// NewChunker returns a Chunker, substituting defaults for non-positive values.
func NewChunker(budget, maxChunks int) *Chunker {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if maxChunks <= 1 {
		maxChunks = DefaultMaxChunks
	}
	return &Chunker{Budget: budget, MaxChunks: maxChunks}
}

// Chunk splits body under label. Cuts happen at the last newline inside the
// budget window when there is one, otherwise at the budget itself. Newlines
// following a cut are dropped. When the body needs more than MaxChunks
// chunks, the last slot is used for an omission notice instead.
func (c *Chunker) Chunk(label, body string) []Chunk {
	budget, maxChunks := c.Budget, c.MaxChunks
	if budget <= 0 {
		budget = DefaultBudget
	}
	if maxChunks <= 1 {
		maxChunks = DefaultMaxChunks
	}

	remaining := []rune(body)
	if len(remaining) <= budget {
		return []Chunk{{Seq: 1, Label: label, Body: body}}
	}

	var chunks []Chunk
	for len(remaining) > 0 {
		seq := len(chunks) + 1
		if seq == maxChunks && len(remaining) > budget {
			chunks = append(chunks, Chunk{Seq: seq, Omitted: len(remaining)})
			break
		}

		part := remaining
		if len(part) > budget {
			part = remaining[:budget]
			if idx := lastNewline(part); idx > 0 {
				part = part[:idx]
			}
		}

		chunk := Chunk{Seq: seq, Body: string(part)}
		if seq == 1 {
			chunk.Label = label
		}
		chunks = append(chunks, chunk)

		remaining = trimLeadingNewlines(remaining[len(part):])
	}

	return chunks
}

func lastNewline(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == '\n' {
			return i
		}
	}
	return -1
}

func trimLeadingNewlines(rs []rune) []rune {
	i := 0
	for i < len(rs) && rs[i] == '\n' {
		i++
	}
	return rs[i:]
}

// Truncate shortens text to at most limit runes, appending marker when
// anything was cut.
func Truncate(text string, limit int, marker string) string {
	if limit <= 0 {
		return text
	}
	rs := []rune(text)
	if len(rs) <= limit {
		return text
	}
	return string(rs[:limit]) + marker
}

// Bodies returns the bodies of all content chunks, skipping the notice.
func Bodies(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.IsNotice() {
			continue
		}
		out = append(out, c.Body)
	}
	return out
}

// Join reassembles content chunk bodies with single newlines.
func Join(chunks []Chunk) string {
	return strings.Join(Bodies(chunks), "\n")
}
