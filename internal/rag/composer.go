package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rdeshpande/folio-ai/internal/budget"
)

// Relevance floors. The relaxed floor keeps anything with some topical
// signal; the strict floor is used in "rag" mode where the caller wants
// grounded answers only. Both are calibrated against the local embedding
// scheme — substituting a different embedder requires recalibration.
const (
	// DefaultMinScore is the relaxed relevance floor.
	DefaultMinScore = 0.35
	// StrictMinScore is the floor applied in strict retrieval mode.
	StrictMinScore = 0.7

	// defaultTopK is how many candidates are fetched from the index.
	defaultTopK = 8
	// defaultBundleSize is the target number of diverse items per bundle.
	defaultBundleSize = 5

	// diversityCeiling is the maximum pairwise word-Jaccard similarity
	// allowed between any two items kept in the same bundle.
	diversityCeiling = 0.7
)

// ComposerConfig holds the tunables for the retrieval and context composer.
// Zero values select the defaults above.
type ComposerConfig struct {
	// TopK is the number of candidates fetched per query.
	TopK int
	// BundleSize is the target number of diverse items per bundle.
	BundleSize int
	// MinScore is the relaxed relevance floor.
	MinScore float32
	// StrictScore is the floor applied when Compose is called in strict mode.
	StrictScore float32
	// MaxContextTokens bounds the assembled context string.
	MaxContextTokens int
}

// Bundle is the assembled retrieval context for one query: an ordered,
// diversity-filtered selection of search results plus the annotated context
// string ready for prompt injection.
type Bundle struct {
	// Items are the kept search results, best first.
	Items []Document
	// Context is the concatenated, relevance-annotated context string.
	Context string
	// BestScore is the similarity of the top-ranked kept item.
	BestScore float32
	// MeanScore is the mean similarity across kept items.
	MeanScore float32
	// RelevantScores are the similarities of every candidate that cleared
	// the relevance floor, best first, before diversity filtering. Near
	// duplicates dropped from Items still count as retrieval evidence, so
	// confidence grading reads these rather than the kept items.
	RelevantScores []float32
}

// Composer turns a raw query into a Bundle by embedding it, searching the
// vector store, filtering by relevance, and selecting a diverse subset.
type Composer struct {
	// embedder converts the query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// cfg holds the resolved composer configuration.
	cfg ComposerConfig
}

// NewComposer constructs a Composer from the given Embedder and VectorStore.
func NewComposer(embedder Embedder, store VectorStore, cfg *ComposerConfig) (*Composer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}

	resolved := ComposerConfig{}
	if cfg != nil {
		resolved = *cfg
	}
	if resolved.TopK <= 0 {
		resolved.TopK = defaultTopK
	}
	if resolved.BundleSize <= 0 {
		resolved.BundleSize = defaultBundleSize
	}
	if resolved.MinScore <= 0 {
		resolved.MinScore = DefaultMinScore
	}
	if resolved.StrictScore <= 0 {
		resolved.StrictScore = StrictMinScore
	}
	if resolved.MaxContextTokens <= 0 {
		resolved.MaxContextTokens = budget.DefaultMaxContextTokens
	}

	return &Composer{embedder: embedder, store: store, cfg: resolved}, nil
}

// Compose embeds the query, retrieves candidates, and assembles a diverse
// context bundle. In strict mode the strict relevance floor applies.
// Returns ErrNoRelevantContext when nothing clears the floor — the caller
// must treat that as a retrieval miss, not fabricate an empty-context prompt.
func (c *Composer) Compose(ctx context.Context, query string, strict bool) (*Bundle, error) {
	embeddings, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for query")
	}

	candidates, err := c.store.Search(ctx, embeddings[0], c.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	floor := c.cfg.MinScore
	if strict {
		floor = c.cfg.StrictScore
	}

	relevant := candidates[:0:0]
	for _, d := range candidates {
		if d.Score >= floor {
			relevant = append(relevant, d)
		}
	}
	if len(relevant) == 0 {
		return nil, ErrNoRelevantContext
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Score > relevant[j].Score
	})

	kept := selectDiverse(relevant, c.cfg.BundleSize)

	relevantScores := make([]float32, len(relevant))
	for i, d := range relevant {
		relevantScores[i] = d.Score
	}

	return &Bundle{
		Items:          kept,
		Context:        c.renderContext(kept),
		BestScore:      kept[0].Score,
		MeanScore:      meanScore(kept),
		RelevantScores: relevantScores,
	}, nil
}

// selectDiverse greedily builds a subset of results whose pairwise word
// overlap stays below the diversity ceiling. The top-scored result is always
// kept; later candidates are taken in score order only if they differ
// sufficiently from everything already selected.
func selectDiverse(results []Document, max int) []Document {
	if len(results) == 0 {
		return nil
	}

	selected := []Document{results[0]}

	for _, candidate := range results[1:] {
		if len(selected) >= max {
			break
		}

		diverse := true
		for _, s := range selected {
			if jaccardSimilarity(candidate.Content, s.Content) >= diversityCeiling {
				diverse = false
				break
			}
		}
		if diverse {
			selected = append(selected, candidate)
		}
	}

	return selected
}

// renderContext concatenates kept items into the prompt context, annotating
// each with a relevance tier and stopping once the token budget is spent.
// The top item always fits: budget overflow only trims the tail.
func (c *Composer) renderContext(items []Document) string {
	var sb strings.Builder
	spent := 0

	for i, item := range items {
		block := fmt.Sprintf("%s Context %d:\n%s\n", relevanceTier(item.Score), i+1, item.Content)

		cost := budget.Estimate(block)
		if i > 0 && spent+cost > c.cfg.MaxContextTokens {
			break
		}
		spent += cost

		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(block)
	}

	return sb.String()
}

// relevanceTier maps a similarity score to the tier label injected into the
// context so the model can weigh sources.
func relevanceTier(score float32) string {
	switch {
	case score >= 0.8:
		return "[HIGHLY RELEVANT]"
	case score >= 0.6:
		return "[RELEVANT]"
	default:
		return "[SUPPORTING]"
	}
}

// jaccardSimilarity computes word-level Jaccard similarity between two texts:
// |intersection| / |union| over lowercased word sets.
func jaccardSimilarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// wordSet returns the set of lowercased whitespace-delimited words in s.
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

// meanScore returns the mean similarity across docs. Empty input yields 0.
func meanScore(docs []Document) float32 {
	if len(docs) == 0 {
		return 0
	}
	var sum float32
	for _, d := range docs {
		sum += d.Score
	}
	return sum / float32(len(docs))
}
