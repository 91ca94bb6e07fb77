// Package format turns raw generated prose into a bounded, deduplicated,
// marker-tagged bullet plan suitable for sequential display.
//
// This is a heuristic, not a parser: provider output has no guaranteed
// structure, so the splitter has to cope with arbitrary prose. Formatting is
// deterministic for identical input; the randomized sign-off is a separate,
// optional decoration layer with its own fixed inventory.
package format

import (
	"strings"
	"unicode/utf8"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/util"
)

const (
	// MaxLines caps the number of bullet lines in one plan. The provider is
	// asked for 7-10 suggestions, so the cap matches the upper bound.
	MaxLines = 10
	// MaxLineLength drops runaway lines the chat surface would mangle.
	// Counted in runes: plan lines are emoji-heavy and a byte bound would
	// undercount them badly.
	MaxLineLength = 240
	// minNewlineCandidates is the threshold below which newline splitting is
	// considered degenerate and sentence splitting takes over.
	minNewlineCandidates = 3
)

// FallbackLine is returned when nothing usable survives cleaning.
const FallbackLine = "🤔 I couldn't shape that into a plan. Could you describe your event again?"

// Markers is the fixed ordered set of decorative bullet prefixes, assigned
// round-robin by line index.
var Markers = []string{"🎉", "✨", "🎈", "💡", "📌"}

// SignOffs is the fixed inventory for the optional closing decoration.
var SignOffs = []string{
	"✨ Want me to refine any of these?",
	"🎯 Tell me more and I'll sharpen the plan.",
	"💬 Happy to dig into any of these points.",
}

// Plan formats raw generated text into a bounded bullet plan. The original
// prompt is needed to strip providers that echo their input back.
func Plan(raw string, prompt models.PromptSpec) models.BulletPlan {
	cleaned := stripEcho(raw, prompt.User)

	candidates := splitLines(cleaned)
	if len(candidates) < minNewlineCandidates {
		candidates = splitSentences(cleaned)
	}

	var lines []string
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		line := cleanLine(candidate)
		if line == "" || utf8.RuneCountInString(line) > MaxLineLength {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		marker := Markers[len(lines)%len(Markers)]
		lines = append(lines, marker+" "+line+".")
		if len(lines) >= MaxLines {
			break
		}
	}

	if len(lines) == 0 {
		return models.BulletPlan{Lines: []string{FallbackLine}, Degenerate: true}
	}
	return models.BulletPlan{Lines: lines}
}

// SignOff returns one closing line chosen uniformly at random from the fixed
// inventory. It is decoration only and never part of Plan's output.
func SignOff() string {
	return util.PickString(SignOffs)
}

// stripEcho removes a verbatim copy of the prompt from the start of the raw
// text. Some providers echo the user content before answering.
func stripEcho(raw, userPrompt string) string {
	raw = strings.TrimSpace(raw)
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return raw
	}
	if strings.HasPrefix(raw, userPrompt) {
		return strings.TrimSpace(raw[len(userPrompt):])
	}
	return raw
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitSentences falls back to ". " boundaries when the provider returned a
// single paragraph instead of a list.
func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ". ") {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// cleanLine trims whitespace, trailing periods, and any leading bullet
// decoration (provider-made or our own markers) so re-formatting a plan does
// not stack prefixes.
func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	for _, marker := range Markers {
		line = strings.TrimPrefix(line, marker)
	}
	line = strings.TrimLeft(line, "-*•– \t")
	line = trimOrdinal(line)
	line = strings.TrimSpace(line)
	line = strings.TrimRight(line, ".")
	return strings.TrimSpace(line)
}

// trimOrdinal removes a leading "1." / "2)" style list ordinal.
func trimOrdinal(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return line
	}
	if line[i] == '.' || line[i] == ')' {
		return line[i+1:]
	}
	return line
}
