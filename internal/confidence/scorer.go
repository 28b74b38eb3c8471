// Package confidence estimates how trustworthy a generated answer is from
// cheap observable signals: retrieval strength, match coverage, answer
// shape, and lexical overlap with the question. The estimate gates the
// fallback chain — a low score sends the pipeline to the next answer
// strategy rather than shipping a weak response.
package confidence

import (
	"strings"
	"unicode"
)

// Component weights. They sum to 1 before the strong-evidence boost.
const (
	weightRelevance = 0.35
	weightCoverage  = 0.25
	weightLength    = 0.15
	weightQuality   = 0.15
	weightAlignment = 0.10

	// strongEvidenceBoost rewards answers backed by a near-perfect match
	// with substantial prose.
	strongEvidenceBoost = 1.15
)

// subjectTerms are words that signal the answer is actually about the
// portfolio's subject matter rather than generic filler.
var subjectTerms = []string{
	"rohit", "project", "skill", "experience", "technology", "development",
}

// Score estimates confidence in [0, 1] for a generated response. query is
// the visitor's question and retrievalScores are the similarity scores of
// the context items behind the response, best first or in any order. An
// empty retrievalScores slice scores the response on its own merits, which
// is how non-retrieval answer paths are graded.
func Score(response, query string, retrievalScores []float32) float64 {
	best, mean := bestAndMean(retrievalScores)
	words := len(strings.Fields(response))

	score := weightRelevance*(0.7*best+0.3*mean) +
		weightCoverage*coverage(retrievalScores) +
		weightLength*lengthFactor(words) +
		weightQuality*contentQuality(response) +
		weightAlignment*alignment(response, query)

	if best > 0.8 && words > 50 {
		score *= strongEvidenceBoost
	}

	return clamp01(score)
}

func bestAndMean(scores []float32) (best, mean float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range scores {
		v := float64(s)
		sum += v
		if v > best {
			best = v
		}
	}
	return best, sum / float64(len(scores))
}

// coverage rewards having several solid matches, saturating at three. A
// strong match (>0.7) counts extra on top of its solid (>0.4) credit.
func coverage(scores []float32) float64 {
	var solid, strong int
	for _, s := range scores {
		if s > 0.4 {
			solid++
		}
		if s > 0.7 {
			strong++
		}
	}
	c := (float64(solid)*0.6 + float64(strong)*0.4) / 3
	if c > 1 {
		return 1
	}
	return c
}

// lengthFactor prefers answers in the conversational sweet spot. Very short
// answers rarely carry enough substance and very long ones tend to ramble,
// but neither is disqualifying on its own.
func lengthFactor(words int) float64 {
	switch {
	case words >= 30 && words <= 250:
		return 1.0
	case words >= 15 && words <= 400:
		return 0.9
	default:
		return 0.8
	}
}

// contentQuality scores surface markers of a substantive answer: subject
// vocabulary, concrete numbers, and multi-clause structure.
func contentQuality(response string) float64 {
	lower := strings.ToLower(response)
	q := 0.6

	for _, term := range subjectTerms {
		if strings.Contains(lower, term) {
			q += 0.2
			break
		}
	}
	if strings.ContainsFunc(response, unicode.IsDigit) {
		q += 0.1
	}
	if strings.ContainsAny(response, ",;:\n") {
		q += 0.1
	}

	if q > 1 {
		return 1
	}
	return q
}

// alignment is the fraction of substantive query words (longer than three
// characters) that appear in the response.
func alignment(response, query string) float64 {
	lower := strings.ToLower(response)
	var total, hits int
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(w) <= 3 {
			continue
		}
		total++
		if strings.Contains(lower, w) {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
