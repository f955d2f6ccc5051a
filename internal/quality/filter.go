// Package quality scores fetched papers for topical relevance and novelty
// and discards those below a configurable threshold.
package quality

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ptdat/paperblog/internal/models"
)

// keywordSaturation is the number of distinct keyword hits at which the
// lexical-relevance term reaches its maximum.
const keywordSaturation = 4

// SimilarityIndex is the reference-corpus reader. It returns a similarity
// in [0, 1] between an abstract and the already-summarized content.
type SimilarityIndex interface {
	MaxSimilarity(abstract string) float64
}

// ImpactLookup resolves an aggregate author-impact metric in [0, 1] for a
// list of author names.
type ImpactLookup interface {
	Impact(ctx context.Context, authors []string) (float64, error)
}

// Weights are the tunable coefficients of the quality score. They come
// from configuration; there is no single correct weighting.
type Weights struct {
	Category float64
	Keyword  float64
	Novelty  float64
	Author   float64
}

// Config holds the filter's scoring policy.
type Config struct {
	// Categories is the set of arXiv categories of interest. Papers
	// tagged with any of them earn the full category term.
	Categories []string

	// Keywords is the lexical-relevance keyword set matched against
	// title and abstract.
	Keywords []string

	// Topics maps a display label to its keyword set; each kept paper
	// is labeled with its best-matching topic for digest grouping.
	Topics map[string][]string

	Weights   Weights
	Threshold float64

	// Floor keeps an otherwise-empty day's best candidate eligible when
	// its score is at least this value.
	Floor float64
}

// Filter scores papers and keeps those at or above the threshold.
type Filter struct {
	cfg        Config
	categories map[string]bool
	keywords   []string

	topicNames []string
	topicIndex *Index

	sim    SimilarityIndex // nil when no reference corpus exists yet
	impact ImpactLookup    // nil when author-impact lookup is disabled
}

// NewFilter creates a Filter. Both collaborators are optional: a nil
// similarity index or impact lookup contributes zero to the score rather
// than failing the pass.
func NewFilter(cfg Config, sim SimilarityIndex, impact ImpactLookup) *Filter {
	f := &Filter{
		cfg:        cfg,
		categories: make(map[string]bool, len(cfg.Categories)),
		keywords:   make([]string, len(cfg.Keywords)),
		sim:        sim,
		impact:     impact,
	}
	for _, c := range cfg.Categories {
		f.categories[c] = true
	}
	for i, k := range cfg.Keywords {
		f.keywords[i] = strings.ToLower(k)
	}

	// Topic labeling uses the same vector space as novelty: one
	// document per topic, built from its label and keywords.
	f.topicNames = make([]string, 0, len(cfg.Topics))
	for name := range cfg.Topics {
		f.topicNames = append(f.topicNames, name)
	}
	sort.Strings(f.topicNames)
	docs := make([]string, len(f.topicNames))
	for i, name := range f.topicNames {
		docs[i] = name + " " + strings.Join(cfg.Topics[name], " ")
	}
	if len(docs) > 0 {
		f.topicIndex = NewIndex(docs)
	}
	return f
}

// Filter scores every paper and returns those meeting the threshold,
// ordered by score descending with ties broken by identifier ascending.
// Input papers are not mutated; scored copies are returned so a concurrent
// reader never observes a partially updated record.
//
// A day whose candidates all fall below the threshold keeps its single
// best candidate if that candidate clears the floor score, so a slow day
// does not leave the window empty.
func (f *Filter) Filter(ctx context.Context, papers []models.Paper) []models.Paper {
	scored := make([]models.Paper, 0, len(papers))
	for _, p := range papers {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		sp := p
		sp.Score = f.score(ctx, &p)
		sp.Topic = f.bestTopic(&p)
		scored = append(scored, sp)
	}

	kept := make([]models.Paper, 0, len(scored))
	keptDays := make(map[time.Time]bool)
	for _, p := range scored {
		if p.Score >= f.cfg.Threshold {
			kept = append(kept, p)
			keptDays[p.Day()] = true
		}
	}

	// Floor-eligibility pass for days the threshold emptied.
	best := make(map[time.Time]models.Paper)
	for _, p := range scored {
		if keptDays[p.Day()] {
			continue
		}
		cur, ok := best[p.Day()]
		if !ok || p.Score > cur.Score || (p.Score == cur.Score && p.ArxivID < cur.ArxivID) {
			best[p.Day()] = p
		}
	}
	for _, p := range best {
		if p.Score >= f.cfg.Floor {
			kept = append(kept, p)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ArxivID < kept[j].ArxivID
	})

	slog.Info("filtered papers", "in", len(papers), "kept", len(kept))
	return kept
}

// score computes the weighted sum of the four scoring terms.
func (f *Filter) score(ctx context.Context, p *models.Paper) float64 {
	w := f.cfg.Weights
	score := w.Category*f.categoryTerm(p) + w.Keyword*f.keywordTerm(p)

	// Novelty: similarity to already-summarized content lowers the
	// score, bounded to [0, w.Novelty]. No corpus means no penalty.
	if f.sim != nil {
		score -= w.Novelty * f.sim.MaxSimilarity(p.Abstract)
	}

	if f.impact != nil {
		impact, err := f.impact.Impact(ctx, p.Authors)
		if err != nil {
			slog.Warn("author impact lookup failed", "paper", p.ArxivID, "error", err)
		} else {
			if impact > 1 {
				impact = 1
			}
			score += w.Author * impact
		}
	}
	return score
}

// categoryTerm is 1 when any of the paper's tags is a category of
// interest, 0 otherwise. Non-matching papers stay in the scored set so the
// floor policy can still surface them on an empty day.
func (f *Filter) categoryTerm(p *models.Paper) float64 {
	for _, c := range p.Categories {
		if f.categories[c] {
			return 1
		}
	}
	return 0
}

// keywordTerm measures lexical overlap between the configured keyword set
// and the paper's title and abstract, saturating at keywordSaturation
// distinct hits.
func (f *Filter) keywordTerm(p *models.Paper) float64 {
	text := strings.ToLower(p.Title + " " + p.Abstract)
	var hits int
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	if hits >= keywordSaturation {
		return 1
	}
	return float64(hits) / keywordSaturation
}

// bestTopic returns the configured topic whose keyword document is most
// similar to the paper's title and abstract, or "" when no topics are
// configured.
func (f *Filter) bestTopic(p *models.Paper) string {
	if f.topicIndex == nil {
		return ""
	}
	sims := f.topicIndex.Similarities(p.Title + " " + p.Abstract)
	bestIdx, bestSim := -1, 0.0
	for i, s := range sims {
		if s > bestSim {
			bestIdx, bestSim = i, s
		}
	}
	if bestIdx < 0 {
		return ""
	}
	return f.topicNames[bestIdx]
}
