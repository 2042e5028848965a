package output

import "strings"

// DefaultPromptMarker is the character the Q CLI prints before its answer.
const DefaultPromptMarker = ">"

// NoiseTables holds the phrase sets used to discard CLI chrome. Matching is a
// case-insensitive substring test.
type NoiseTables struct {
	// Banner lines (welcome text, help hints, MCP loading messages) are
	// dropped wherever they appear.
	Banner []string `yaml:"banner"`

	// Telemetry lines (tool invocations, timing, parameter echoes) are dropped
	// once the answer has started.
	Telemetry []string `yaml:"telemetry"`

	// PromptMarker starts the answer.
	PromptMarker string `yaml:"prompt_marker"`
}

// DefaultNoiseTables returns the tables tuned to the current Q CLI output.
func DefaultNoiseTables() *NoiseTables {
	return &NoiseTables{
		Banner: []string{
			"welcome to amazon q",
			"you can specify",
			"help all commands",
			"ctrl +",
			"fuzzy search",
			"you are chatting with",
			"mcp server",
			"servers still loading",
			"did you know",
			"enable custom tools",
			"learn more with",
			"/help",
			"new lines",
			"all commands",
		},
		Telemetry: []string{
			"using tool:",
			"running aws cli",
			"completed in",
			"service name:",
			"operation name:",
			"parameters:",
			"profile name:",
			"region:",
			"label:",
		},
		PromptMarker: DefaultPromptMarker,
	}
}

// Extractor isolates the answer from sanitized chat output.
type Extractor struct {
	banner    []string
	telemetry []string
	marker    string
}

// NewExtractor builds an Extractor from tables. A nil tables value or an
// empty marker falls back to the defaults.
func NewExtractor(tables *NoiseTables) *Extractor {
	if tables == nil {
		tables = DefaultNoiseTables()
	}
	marker := tables.PromptMarker
	if marker == "" {
		marker = DefaultPromptMarker
	}
	return &Extractor{
		banner:    lowerAll(tables.Banner),
		telemetry: lowerAll(tables.Telemetry),
		marker:    marker,
	}
}

// Extract returns the answer contained in text, or "" when no prompt marker
// was found. It never fails; unexpected input just yields less output.
func (e *Extractor) Extract(text string) string {
	var kept []string
	answering := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if containsAny(lower, e.banner) {
			continue
		}

		if idx := strings.Index(line, e.marker); idx >= 0 {
			answering = true
			if rest := strings.TrimSpace(line[idx+len(e.marker):]); rest != "" {
				kept = append(kept, rest)
			}
			continue
		}

		if !answering {
			continue
		}
		if containsAny(lower, e.telemetry) {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
