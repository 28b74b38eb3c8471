// Package embedder turns text into fixed-size vectors for similarity
// search. The default backend is a deterministic local synthesizer that
// needs no network access; hosted OpenAI-compatible and Ollama backends
// are available for corpora that warrant learned embeddings.
package embedder

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strings"
	"unicode"
)

// LocalDimensions is the vector size produced by the local synthesizer.
// The layout is three 128-dimension bands: lexical, contextual, semantic.
const LocalDimensions = 384

const (
	bandSize            = 128
	contextualBandStart = 128
	semanticBandStart   = 256
)

// LocalConfig configures a LocalEmbedder.
type LocalConfig struct {
	// Jitter adds a small random perturbation to each component before
	// normalization. It breaks determinism — identical texts no longer
	// produce identical vectors — so it is off by default and must stay
	// off for any corpus that relies on reproducible ingestion.
	Jitter bool
	// JitterSeed seeds the perturbation source when Jitter is on. Zero
	// means an unseeded source.
	JitterSeed int64
}

// LocalEmbedder synthesizes embeddings from hand-built text features:
// weighted word frequencies, n-gram co-occurrence, domain vocabulary
// scores and readability statistics. The same text always produces the
// same vector, so ingestion and query embedding stay comparable across
// process restarts without any model download.
type LocalEmbedder struct {
	jitter bool
	rng    *rand.Rand
}

// NewLocalEmbedder returns a LocalEmbedder. A nil cfg means deterministic
// output with no jitter.
func NewLocalEmbedder(cfg *LocalConfig) *LocalEmbedder {
	e := &LocalEmbedder{}
	if cfg != nil && cfg.Jitter {
		e.jitter = true
		e.rng = rand.New(rand.NewSource(cfg.JitterSeed))
	}
	return e
}

// Dimensions returns the synthesizer's vector size.
func (e *LocalEmbedder) Dimensions() int { return LocalDimensions }

// Embed synthesizes one vector per input text. It never fails on content:
// empty or degenerate text yields the zero vector rather than NaNs. The
// context is only consulted between texts for cancellation.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.synthesize(text)
	}
	return out, nil
}

func (e *LocalEmbedder) synthesize(text string) []float32 {
	vec := make([]float64, LocalDimensions)

	cleaned := cleanText(text)
	words := contentWords(cleaned)
	sentences := splitSentences(text)

	fillLexicalBand(vec[:bandSize], words)
	fillContextualBand(vec[contextualBandStart:semanticBandStart], words, sentences)
	fillSemanticBand(vec[semanticBandStart:], cleaned, words)

	if e.jitter {
		for i := range vec {
			vec[i] = vec[i]*0.95 + (e.rng.Float64()-0.5)*0.1
		}
	}

	return normalize(vec)
}

// fillLexicalBand hashes each content word into a slot and accumulates its
// frequency, doubled for technical and professionally important terms. The
// sine of the word hash gives each word a stable sign and magnitude so
// that distinct words landing in one slot do not simply add up.
func fillLexicalBand(band []float64, words []string) {
	freq := make(map[string]int)
	for _, w := range words {
		if len(w) > 2 {
			freq[w]++
		}
	}
	for w, n := range freq {
		importance := 1.0
		if isTechnicalTerm(w) || isImportantTerm(w) {
			importance = 2.0
		}
		h := advancedHash(w)
		slot := int(math.Mod(h, float64(len(band))))
		band[slot] += float64(n) * importance * math.Sin(h*0.001)
	}
	for i := range band {
		band[i] = math.Tanh(band[i])
	}
}

// fillContextualBand encodes word co-occurrence: the most frequent bigrams
// and trigrams each claim one dimension, followed by two sentence-shape
// statistics. Bigrams use sine and trigrams cosine so the two n-gram
// orders occupy distinct regions of the unit interval.
func fillContextualBand(band []float64, words []string, sentences []string) {
	features := make([]float64, 0, len(band))

	for _, g := range topNGrams(words, 2, 32) {
		features = append(features, math.Tanh(float64(g.count)*0.1*math.Sin(advancedHash(g.text)*0.001)))
	}
	for _, g := range topNGrams(words, 3, 32) {
		features = append(features, math.Tanh(float64(g.count)*0.1*math.Cos(advancedHash(g.text)*0.001)))
	}

	if len(sentences) > 0 {
		var totalChars, totalWords int
		for _, s := range sentences {
			totalChars += len(s)
			totalWords += len(strings.Fields(s))
		}
		avgLen := float64(totalChars) / float64(len(sentences))
		avgWords := float64(totalWords) / float64(len(sentences))
		features = append(features, math.Tanh(avgLen/100), math.Tanh(avgWords/20))
	}

	copy(band, features)
}

// fillSemanticBand scores topical domains, sentiment, vocabulary richness
// and professionalism, then tops up the band with positional text hashes
// so that even short texts fill every dimension.
func fillSemanticBand(band []float64, cleaned string, words []string) {
	features := make([]float64, 0, len(band))

	for _, dom := range domainVocabularies {
		score := 0
		for _, w := range dom.words {
			score += strings.Count(cleaned, w)
		}
		features = append(features, math.Tanh(float64(score)*0.1))
	}

	features = append(features,
		math.Tanh(countAny(cleaned, positiveIndicators)*0.2),
		math.Tanh(countAny(cleaned, negativeIndicators)*0.2),
	)

	if len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		var chars int
		for _, w := range words {
			unique[w] = struct{}{}
			chars += len(w)
		}
		features = append(features,
			float64(len(unique))/float64(len(words)),
			math.Tanh(float64(chars)/float64(len(words))/10),
		)
	}

	features = append(features, math.Tanh(countAny(cleaned, professionalTerms)*0.15))

	for i := len(features); i < len(band); i++ {
		lo := i * 10
		hi := lo + 10
		if lo >= len(cleaned) {
			break
		}
		if hi > len(cleaned) {
			hi = len(cleaned)
		}
		features = append(features, math.Tanh(math.Sin(advancedHash(cleaned[lo:hi])*0.001)))
	}

	copy(band, features)
}

type ngram struct {
	text  string
	count int
}

// topNGrams returns the limit most frequent n-grams of words, ordered by
// count descending with lexicographic tie-breaking so the layout is
// deterministic.
func topNGrams(words []string, n, limit int) []ngram {
	if len(words) < n {
		return nil
	}
	counts := make(map[string]int)
	for i := 0; i+n <= len(words); i++ {
		counts[strings.Join(words[i:i+n], " ")]++
	}
	grams := make([]ngram, 0, len(counts))
	for t, c := range counts {
		grams = append(grams, ngram{text: t, count: c})
	}
	sort.Slice(grams, func(i, j int) bool {
		if grams[i].count != grams[j].count {
			return grams[i].count > grams[j].count
		}
		return grams[i].text < grams[j].text
	})
	if len(grams) > limit {
		grams = grams[:limit]
	}
	return grams
}

// advancedHash combines two rolling hashes of s into a non-negative value.
// Arithmetic is 32-bit with wraparound so magnitudes stay in a range where
// the downstream sin/cos arguments keep useful precision.
func advancedHash(s string) float64 {
	var h1 int32 = 5381
	var h2 int32
	for _, r := range s {
		c := int32(r)
		h1 = ((h1 << 5) + h1) ^ c
		h2 = (h2 << 3) + h2 + c
	}
	v := int64(h1) + int64(h2)
	if v < 0 {
		v = -v
	}
	return float64(v)
}

// cleanText lowercases and strips everything but letters, digits and
// underscores, collapsing runs of removed characters into single spaces.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// contentWords splits cleaned text into words longer than one character.
func contentWords(cleaned string) []string {
	fields := strings.Fields(cleaned)
	words := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			words = append(words, f)
		}
	}
	return words
}

// splitSentences splits raw text on terminal punctuation.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// countAny sums the occurrences of every term in text.
func countAny(text string, terms []string) float64 {
	var n int
	for _, t := range terms {
		n += strings.Count(text, t)
	}
	return float64(n)
}

// normalize scales vec to unit length. A zero vector stays zero instead of
// dividing by zero.
func normalize(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		return out
	}
	mag := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(v / mag)
	}
	return out
}
