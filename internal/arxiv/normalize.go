package arxiv

import (
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ptdat/paperblog/internal/models"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)

	// versionSuffix matches the "v3" tail of an arXiv entry identifier.
	versionSuffix = regexp.MustCompile(`v\d+$`)
)

// paperFromItem converts an Atom entry into a normalized Paper. Entries
// missing an identifier, title, or publication date are rejected.
func paperFromItem(item *gofeed.Item) (models.Paper, bool) {
	id := canonicalID(item)
	title := collapseWhitespace(item.Title)
	if id == "" || title == "" || item.PublishedParsed == nil {
		return models.Paper{}, false
	}

	return models.Paper{
		ArxivID:     id,
		Title:       title,
		Authors:     dedupeAuthors(item.Authors),
		Abstract:    collapseWhitespace(item.Description),
		Categories:  normalizeCategories(item.Categories),
		PublishedAt: item.PublishedParsed.UTC(),
		Source:      "arxiv",
		FetchedAt:   time.Now().UTC(),
	}, true
}

// canonicalID extracts the bare arXiv identifier from an entry ID like
// "http://arxiv.org/abs/2301.00001v2" -> "2301.00001". The version suffix
// is stripped so revised announcements map to the same identity.
func canonicalID(item *gofeed.Item) string {
	raw := item.GUID
	if raw == "" {
		raw = item.Link
	}
	if idx := strings.LastIndex(raw, "/abs/"); idx >= 0 {
		raw = raw[idx+len("/abs/"):]
	}
	raw = strings.TrimSpace(raw)
	return versionSuffix.ReplaceAllString(raw, "")
}

// dedupeAuthors returns author names trimmed and deduplicated, preserving
// the original order. arXiv feeds occasionally repeat an author entry.
func dedupeAuthors(people []*gofeed.Person) []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range people {
		if p == nil {
			continue
		}
		name := collapseWhitespace(p.Name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		names = append(names, name)
	}
	return names
}

// normalizeCategories trims category terms and drops empties, keeping the
// set order stable.
func normalizeCategories(cats []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range cats {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// collapseWhitespace trims s and folds runs of whitespace (arXiv titles
// and abstracts carry hard line wraps) into single spaces.
func collapseWhitespace(s string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}
