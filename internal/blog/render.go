package blog

import (
	"fmt"
	"strings"
	"time"

	"github.com/ptdat/paperblog/internal/models"
)

// maxAuthorsShown truncates long author lists in the rendered digest.
const maxAuthorsShown = 3

// RenderMarkdown renders the digest content for an artifact. Entries are
// grouped by topic in the artifact's deterministic order, so rendering
// the same artifact twice yields identical output.
func RenderMarkdown(artifact *models.BlogArtifact) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", artifact.Title)
	fmt.Fprintf(&b, "This week's roundup covers **%d** papers published between %s and %s.\n\n",
		artifact.PaperCount,
		artifact.WindowStart.Format("January 2"),
		artifact.WindowEnd.Format("January 2, 2006"),
	)

	var currentTopic string
	first := true
	for _, entry := range artifact.Entries {
		topic := entry.Paper.Topic
		if topic == "" {
			topic = "General AI"
		}
		if first || topic != currentTopic {
			fmt.Fprintf(&b, "## %s\n\n", topic)
			currentTopic = topic
			first = false
		}
		renderEntry(&b, &entry)
	}

	b.WriteString("*This digest was generated automatically from recently published arXiv papers.*\n")
	return b.String()
}

func renderEntry(b *strings.Builder, entry *models.ArtifactEntry) {
	paper := &entry.Paper
	summary := &entry.Summary

	fmt.Fprintf(b, "### %s\n\n", paper.Title)
	fmt.Fprintf(b, "**Authors:** %s  \n", authorLine(paper.Authors))
	fmt.Fprintf(b, "**Published:** %s\n\n", paper.PublishedAt.Format(time.DateOnly))

	if summary.Status == models.StatusDegraded {
		b.WriteString("> Automatic summarization was unavailable; this entry uses an excerpt-based summary.\n\n")
	}

	fmt.Fprintf(b, "**Problem:** %s\n\n", summary.Sections.Problem)
	fmt.Fprintf(b, "**Key Innovation:** %s\n\n", summary.Sections.Innovation)
	fmt.Fprintf(b, "**Practical Impact:** %s\n\n", summary.Sections.Impact)
	fmt.Fprintf(b, "**Analogy:** %s\n\n", summary.Sections.Analogy)

	fmt.Fprintf(b, "[Read the paper](https://arxiv.org/abs/%s) · [PDF](https://arxiv.org/pdf/%s)\n\n---\n\n",
		paper.ArxivID, paper.ArxivID)
}

// authorLine joins up to maxAuthorsShown author names, marking truncation.
func authorLine(authors []string) string {
	if len(authors) == 0 {
		return "Unknown"
	}
	if len(authors) <= maxAuthorsShown {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:maxAuthorsShown], ", ") + " et al."
}
