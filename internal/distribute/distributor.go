// Package distribute selects a balanced subset of scored papers across the
// days of a window, so one prolific day cannot dominate the digest.
package distribute

import (
	"log/slog"
	"sort"
	"time"

	"github.com/ptdat/paperblog/internal/models"
)

// Select picks at most target papers from the scored candidates, balancing
// representation across publication days. The result is deterministic for
// a fixed input set and target: within a day candidates are taken in
// (score descending, identifier ascending) order, and the final selection
// is returned in that same global order.
//
// The algorithm gives each day with candidates an equal share of the
// target (integer division). Remainder slots and any shortfall from days
// with fewer candidates than their share go to the highest-scoring
// surplus candidates across the whole window, so the selection fills the
// target whenever enough candidates exist.
//
// When the candidate count is at or below target, all candidates are
// returned without balancing.
func Select(papers []models.Paper, target int) []models.Paper {
	if target <= 0 {
		return nil
	}
	if len(papers) <= target {
		out := make([]models.Paper, len(papers))
		copy(out, papers)
		sortByRank(out)
		return out
	}

	byDay := make(map[time.Time][]models.Paper)
	for _, p := range papers {
		byDay[p.Day()] = append(byDay[p.Day()], p)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		sortByRank(byDay[day])
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	base := target / len(days)

	// Take each day's base share; everything beyond it joins the
	// surplus pool.
	var selected, pool []models.Paper
	for _, day := range days {
		candidates := byDay[day]
		take := base
		if take > len(candidates) {
			take = len(candidates)
		}
		selected = append(selected, candidates[:take]...)
		pool = append(pool, candidates[take:]...)
	}

	// Remainder slots and slots left unfilled by thin days drain the
	// surplus pool in score order. Within a day the pool holds the
	// day's candidates in rank order, so this matches granting one
	// extra slot at a time to the day with the strongest next
	// candidate, even when a single day wins several grants.
	if missing := target - len(selected); missing > 0 {
		sortByRank(pool)
		if missing > len(pool) {
			missing = len(pool)
		}
		selected = append(selected, pool[:missing]...)
	}

	sortByRank(selected)
	slog.Info("distributed papers across window",
		"candidates", len(papers),
		"days", len(days),
		"selected", len(selected),
	)
	return selected
}

// rankLess orders papers by score descending, then identifier ascending.
func rankLess(a, b models.Paper) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ArxivID < b.ArxivID
}

func sortByRank(papers []models.Paper) {
	sort.Slice(papers, func(i, j int) bool { return rankLess(papers[i], papers[j]) })
}
