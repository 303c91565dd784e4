// Package nouns indexes proper nouns found in the database (artist names,
// album titles) so the agent can resolve a user's spelling to the stored
// value before filtering on it.
package nouns

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const embedBatchSize = 100

var standaloneDigits = regexp.MustCompile(`\b\d+\b`)

// Source yields string values for a query
type Source interface {
	QueryStrings(ctx context.Context, query string) ([]string, error)
}

// Embedder turns texts into embedding vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is one search hit
type Match struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// Options configures how an index ranks values
type Options struct {
	// Embedder enables semantic ranking; nil falls back to edit distance
	Embedder Embedder
	// Model namespaces cached vectors
	Model string
	// Cache persists vectors between runs, optional
	Cache *Cache
}

// Index holds cleaned values and, with an embedder, their vectors
type Index struct {
	values  []string
	vectors [][]float32
	opts    Options
	dmp     *diffmatchpatch.DiffMatchPatch
}

// Clean removes standalone numbers, trims, and deduplicates values
func Clean(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(standaloneDigits.ReplaceAllString(v, ""))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Build runs every query against src and indexes the cleaned values
func Build(ctx context.Context, src Source, queries []string, opts Options) (*Index, error) {
	var raw []string
	for _, q := range queries {
		vals, err := src.QueryStrings(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("index query %q: %w", q, err)
		}
		raw = append(raw, vals...)
	}
	return New(ctx, Clean(raw), opts)
}

// New indexes already-cleaned values
func New(ctx context.Context, values []string, opts Options) (*Index, error) {
	idx := &Index{
		values: values,
		opts:   opts,
		dmp:    diffmatchpatch.New(),
	}
	if opts.Embedder != nil {
		vecs, err := idx.embed(ctx, values)
		if err != nil {
			return nil, err
		}
		idx.vectors = vecs
	}
	return idx, nil
}

// Len returns the number of indexed values
func (idx *Index) Len() int {
	return len(idx.values)
}

// embed returns vectors for texts, using the cache where possible
func (idx *Index) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if idx.opts.Cache != nil {
			vec, ok, err := idx.opts.Cache.Get(idx.opts.Model, text)
			if err != nil {
				return nil, err
			}
			if ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	for start := 0; start < len(missing); start += embedBatchSize {
		end := min(start+embedBatchSize, len(missing))
		batch := make([]string, 0, end-start)
		for _, i := range missing[start:end] {
			batch = append(batch, texts[i])
		}

		vecs, err := idx.opts.Embedder.Embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
		}
		for j, i := range missing[start:end] {
			out[i] = vecs[j]
		}
		if idx.opts.Cache != nil {
			if err := idx.opts.Cache.PutAll(idx.opts.Model, batch, vecs); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Search returns up to k values most similar to query, best first
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if k <= 0 {
		k = 5
	}

	var scores []float64
	if idx.vectors != nil {
		// questions are not cached; only indexed values are
		qv, err := idx.opts.Embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(qv) != 1 {
			return nil, fmt.Errorf("embedder returned %d vectors for 1 text", len(qv))
		}
		scores = make([]float64, len(idx.values))
		for i, v := range idx.vectors {
			scores[i] = cosine(qv[0], v)
		}
	} else {
		scores = make([]float64, len(idx.values))
		for i, v := range idx.values {
			scores[i] = idx.lexicalScore(query, v)
		}
	}

	matches := make([]Match, len(idx.values))
	for i, v := range idx.values {
		matches[i] = Match{Value: v, Score: scores[i]}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Value < matches[j].Value
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// lexicalScore is 1 minus the normalized edit distance; substrings of the
// value rank above unrelated strings of similar length
func (idx *Index) lexicalScore(query, value string) float64 {
	q, v := strings.ToLower(query), strings.ToLower(value)
	dist := idx.dmp.DiffLevenshtein(idx.dmp.DiffMain(q, v, false))
	longest := max(utf8.RuneCountInString(q), utf8.RuneCountInString(v))
	if longest == 0 {
		return 1
	}
	score := 1 - float64(dist)/float64(longest)
	if strings.Contains(v, q) {
		ratio := float64(utf8.RuneCountInString(q)) / float64(utf8.RuneCountInString(v))
		score = math.Max(score, 0.75+0.25*ratio)
	}
	return score
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
