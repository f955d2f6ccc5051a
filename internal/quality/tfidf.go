package quality

import (
	"math"
	"strings"
	"unicode"
)

// Index is a TF-IDF vector index over a set of reference documents. It is
// immutable after construction and safe for concurrent readers, which is
// how concurrent filtering passes share the reference corpus.
type Index struct {
	idf  map[string]float64
	docs []map[string]float64 // L2-normalized tf-idf vectors
}

// stopwords excluded from vectorization, mirroring the usual English list
// trimmed to terms that actually occur in paper abstracts.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "our": true, "such": true,
	"that": true, "the": true, "these": true, "this": true, "to": true,
	"we": true, "which": true, "with": true,
}

// NewIndex builds a TF-IDF index over the given documents. Empty documents
// are kept (as zero vectors) so document positions stay stable.
func NewIndex(docs []string) *Index {
	n := len(docs)
	tokenized := make([][]string, n)
	df := make(map[string]int)
	for i, d := range docs {
		tokenized[i] = tokenize(d)
		seen := make(map[string]bool)
		for _, tok := range tokenized[i] {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	// Smoothed IDF so terms present in every document still contribute.
	idf := make(map[string]float64, len(df))
	for tok, count := range df {
		idf[tok] = math.Log(float64(1+n)/float64(1+count)) + 1
	}

	ix := &Index{idf: idf, docs: make([]map[string]float64, n)}
	for i, toks := range tokenized {
		ix.docs[i] = ix.vectorize(toks)
	}
	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// MaxSimilarity returns the highest cosine similarity between text and any
// indexed document, in [0, 1]. An empty index yields 0.
func (ix *Index) MaxSimilarity(text string) float64 {
	sims := ix.Similarities(text)
	var max float64
	for _, s := range sims {
		if s > max {
			max = s
		}
	}
	return max
}

// Similarities returns the cosine similarity between text and each indexed
// document, in document order.
func (ix *Index) Similarities(text string) []float64 {
	query := ix.vectorize(tokenize(text))
	sims := make([]float64, len(ix.docs))
	for i, doc := range ix.docs {
		sims[i] = dot(query, doc)
	}
	return sims
}

// vectorize turns tokens into an L2-normalized tf-idf vector. Tokens the
// index has never seen carry the maximum idf a new term would get.
func (ix *Index) vectorize(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64)
	for _, tok := range tokens {
		tf[tok]++
	}

	unseenIDF := math.Log(float64(1+len(ix.docs))) + 1
	var norm float64
	vec := make(map[string]float64, len(tf))
	for tok, count := range tf {
		idf, ok := ix.idf[tok]
		if !ok {
			idf = unseenIDF
		}
		w := (count / float64(len(tokens))) * idf
		vec[tok] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for tok := range vec {
		vec[tok] /= norm
	}
	return vec
}

// dot computes the inner product of two normalized sparse vectors, which
// for unit vectors equals their cosine similarity.
func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for tok, w := range a {
		sum += w * b[tok]
	}
	// Guard against floating point drift above 1.
	return math.Min(sum, 1)
}

// tokenize lowercases s, splits it on non-alphanumeric runes, and drops
// stopwords and single-character tokens.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
