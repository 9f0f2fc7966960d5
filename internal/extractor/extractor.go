// internal/extractor/extractor.go
// Package extractor builds a service summary out of raw page text when the
// page offers no structured result container.
package extractor

import (
	"strings"

	"github.com/xkilldash9x/svccheck/internal/config"
)

const blockSeparator = "---"

// Extract scans fullText line by line for each category's keywords. A hit on
// line i captures lines i through i+windowSize as one block; at most maxBlocks
// blocks are kept per category. Categories with hits are joined under
// "[Label]" headers in the order given. The result is empty when nothing hit.
func Extract(fullText string, categories []config.KeywordCategory, windowSize, maxBlocks int) string {
	if windowSize < 0 {
		windowSize = 0
	}
	if maxBlocks <= 0 {
		return ""
	}
	lines := Lines(fullText)
	if len(lines) == 0 {
		return ""
	}
	folded := make([]string, len(lines))
	for i, l := range lines {
		folded[i] = strings.ToLower(l)
	}

	var sections []string
	for _, cat := range categories {
		blocks := scan(lines, folded, keywords(cat.Keywords), windowSize, maxBlocks)
		if len(blocks) == 0 {
			continue
		}
		var b strings.Builder
		b.WriteString("[" + cat.Label + "]\n")
		b.WriteString(strings.Join(blocks, "\n"+blockSeparator+"\n"))
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

// Lines splits text into trimmed, non-blank lines.
func Lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func scan(lines, folded, kws []string, windowSize, maxBlocks int) []string {
	if len(kws) == 0 {
		return nil
	}
	var blocks []string
	for i := range lines {
		if !containsAny(folded[i], kws) {
			continue
		}
		end := i + windowSize + 1
		if end > len(lines) {
			end = len(lines)
		}
		blocks = append(blocks, strings.Join(lines[i:end], "\n"))
		if len(blocks) == maxBlocks {
			break
		}
	}
	return blocks
}

// keywords lower-cases the set and drops blanks, which would match every line.
func keywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func containsAny(line string, kws []string) bool {
	for _, k := range kws {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}
