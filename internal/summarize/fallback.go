package summarize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ptdat/paperblog/internal/models"
)

// FallbackProviderName is recorded on degraded results.
const FallbackProviderName = "fallback"

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// FallbackSections builds a deterministic rule-based summary from the
// paper's title and abstract. It is used only when every configured
// provider has failed, and always fills all four sections so the blog
// artifact can complete.
func FallbackSections(paper *models.Paper) *models.SummarySections {
	sentences := splitSentences(paper.Abstract)

	problem := firstNonEmpty(
		pick(sentences, 0),
		fmt.Sprintf("The paper %q addresses an open problem in its field.", paper.Title),
	)
	innovation := firstNonEmpty(
		pick(sentences, 1),
		fmt.Sprintf("The work introduces the approach described in %q.", paper.Title),
	)
	impact := firstNonEmpty(
		pick(sentences, 2),
		"The results are relevant to practitioners working on related problems.",
	)
	analogy := fmt.Sprintf(
		"Automatic summarization was unavailable for this paper; the sections above quote its abstract. See %q for the authors' full framing.",
		paper.Title,
	)

	return &models.SummarySections{
		Problem:    problem,
		Innovation: innovation,
		Impact:     impact,
		Analogy:    analogy,
	}
}

// splitSentences breaks text into sentences on terminal punctuation.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	var sentences []string
	for _, s := range strings.Split(marked, "\x00") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func pick(sentences []string, i int) string {
	if i < len(sentences) {
		return sentences[i]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
