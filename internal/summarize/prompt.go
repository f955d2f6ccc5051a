package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ptdat/paperblog/internal/models"
)

const summarizeSystemPrompt = `You are an expert AI research communicator. Summarize the given research paper for a general audience, using clear Markdown section headings for each part. Use simple, engaging language. Structure your answer with exactly these four headings: "### Problem" (the main problem or challenge the paper addresses), "### Key Innovation" (what is new or unique about this work), "### Practical Impact" (how this research could be applied in the real world, or why it matters), "### Analogy" (the core idea explained with a simple analogy or metaphor). Do not write anything before the first heading or after the last section.`

// SummarizePrompt builds the system and user prompts for the paper
// summarization operation.
func SummarizePrompt(title, abstract string, categories []string) (systemPrompt string, userPrompt string) {
	systemPrompt = summarizeSystemPrompt

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", title)
	if len(categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(categories, ", "))
	}
	b.WriteString("Abstract:\n")
	b.WriteString(abstract)

	userPrompt = b.String()
	return systemPrompt, userPrompt
}

var (
	headingPattern   = regexp.MustCompile(`^\s*#+\s*([A-Za-z0-9 /&-]+?)\s*$`)
	boldLabelPattern = regexp.MustCompile(`^\s*\*\*([A-Za-z0-9 /&-]+?):?\*\*\s*$`)
)

// sectionAliases maps normalized heading text to the section it fills.
// Models phrase headings loosely, so matching is by substring.
var sectionAliases = []struct {
	key   string
	match []string
}{
	{"problem", []string{"problem", "challenge"}},
	{"innovation", []string{"innovation", "novelty", "contribution"}},
	{"impact", []string{"impact", "implications", "why it matters"}},
	{"analogy", []string{"analogy", "intuitive explanation", "metaphor"}},
}

// ParseSections splits a model response on markdown headings (or bold
// labels) into the four required sections. A response missing any section
// is malformed; the caller treats it as a failed attempt.
func ParseSections(text string) (*models.SummarySections, error) {
	found := make(map[string][]string)
	var current string

	for _, line := range strings.Split(text, "\n") {
		if key, ok := sectionKey(line); ok {
			current = key
			continue
		}
		if current != "" {
			found[current] = append(found[current], line)
		}
	}

	sections := &models.SummarySections{
		Problem:    joinSection(found["problem"]),
		Innovation: joinSection(found["innovation"]),
		Impact:     joinSection(found["impact"]),
		Analogy:    joinSection(found["analogy"]),
	}
	if !sections.Complete() {
		return nil, fmt.Errorf("%w: got %v", ErrMalformedSummary, presentSections(found))
	}
	return sections, nil
}

// sectionKey matches a heading or bold-label line against the known
// section aliases.
func sectionKey(line string) (string, bool) {
	var label string
	if m := headingPattern.FindStringSubmatch(line); m != nil {
		label = m[1]
	} else if m := boldLabelPattern.FindStringSubmatch(line); m != nil {
		label = m[1]
	} else {
		return "", false
	}

	label = strings.ToLower(strings.TrimSpace(label))
	for _, alias := range sectionAliases {
		for _, substr := range alias.match {
			if strings.Contains(label, substr) {
				return alias.key, true
			}
		}
	}
	return "", false
}

func joinSection(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func presentSections(found map[string][]string) []string {
	var present []string
	for _, alias := range sectionAliases {
		if joinSection(found[alias.key]) != "" {
			present = append(present, alias.key)
		}
	}
	return present
}
