package chat

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// patternAcceptThreshold is the minimum similarity for a pattern answer to
// be usable. Below it the match is considered coincidental.
const patternAcceptThreshold = 0.6

// containmentScore is the fixed similarity assigned when one side contains
// the other outright. Containment is strong evidence but not exact-match
// certainty, so it sits below 1.0.
const containmentScore = 0.8

// pattern pairs trigger phrases with canned answers for one conversational
// category. Phrases are matched against the normalized query; one of the
// responses is chosen at random so repeated small talk does not read like a
// broken record.
type pattern struct {
	category  string
	phrases   []string
	responses []string
}

// patterns covers the conversational territory a portfolio visitor reliably
// hits: small talk plus the standard who/what/how questions. Responses stay
// generic on facts — specifics belong to the retrieval path, which runs
// first.
var patterns = []pattern{
	{
		category: "greeting",
		phrases:  []string{"hello", "hi there", "hey", "good morning", "good afternoon", "good evening"},
		responses: []string{
			"Hello! I'm the assistant on Rohit's portfolio site. Ask me about his skills, projects, or experience.",
			"Hi there! Welcome to Rohit's portfolio. What would you like to know about his work?",
			"Hey! Happy to help you explore Rohit's background. Ask away.",
		},
	},
	{
		category: "about",
		phrases:  []string{"who is rohit", "tell me about rohit", "about you", "who are you", "what is this"},
		responses: []string{
			"This is Rohit Deshpande's portfolio. I can tell you about his background, technical skills, and the projects he has built — just ask.",
			"I'm the assistant for Rohit Deshpande's portfolio site. His background, skills, and projects are all fair game.",
		},
	},
	{
		category: "skills",
		phrases:  []string{"what skills", "what technologies", "tech stack", "programming languages", "what can rohit do"},
		responses: []string{
			"Rohit works across the stack. Ask about a specific area — backend, frontend, cloud, or data — and I can go into detail.",
			"Rohit's toolkit spans web development, data work, and machine learning. Name an area and I'll dig into it.",
		},
	},
	{
		category: "projects",
		phrases:  []string{"what projects", "show me projects", "portfolio projects", "what has rohit built"},
		responses: []string{
			"Rohit has built a range of projects, from web applications to data pipelines. Ask about one by name or by technology for specifics.",
			"There's a mix of web apps and machine-learning projects in the portfolio. Pick one, or a technology, and I'll tell you more.",
		},
	},
	{
		category: "experience",
		phrases:  []string{"work experience", "employment history", "where has rohit worked", "professional experience"},
		responses: []string{
			"Rohit has professional software engineering experience across several teams. Ask about a particular role or period for details.",
			"Rohit's experience covers several engineering roles. Ask about a specific position and I'll share what I know.",
		},
	},
	{
		category: "education",
		phrases:  []string{"education", "degree", "where did rohit study", "university"},
		responses: []string{
			"You can ask me about Rohit's degree, coursework, or certifications and I'll share what I know.",
			"Rohit's academic background is in computer engineering. Ask about coursework or certifications for specifics.",
		},
	},
	{
		category: "contact",
		phrases:  []string{"how to contact", "contact rohit", "get in touch", "email address", "hire rohit"},
		responses: []string{
			"The best way to reach Rohit is through the contact section of this site. He's happy to hear about interesting roles and collaborations.",
			"Head to the contact section of the site to get in touch — Rohit responds quickly to messages about roles and collaborations.",
		},
	},
	{
		category: "thanks",
		phrases:  []string{"thank you", "thanks", "appreciate it"},
		responses: []string{
			"You're welcome! Feel free to ask anything else about Rohit's work.",
			"Happy to help! Anything else you'd like to know?",
		},
	},
	{
		category: "goodbye",
		phrases:  []string{"goodbye", "bye", "see you", "talk later"},
		responses: []string{
			"Thanks for stopping by! Come back any time you want to know more about Rohit's work.",
			"Take care! Don't hesitate to come back with more questions.",
		},
	},
}

// PatternMatcher answers small-talk and common portfolio questions from a
// fixed table, with fuzzy matching to absorb typos and phrasing variation.
// It needs no network, no index, and no model, which is exactly why it sits
// late in the fallback chain.
type PatternMatcher struct {
	// mu guards rng; Match is called from concurrent request handlers.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPatternMatcher constructs a PatternMatcher with a time-seeded response
// picker.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Match returns the best canned answer for query together with its match
// similarity. ok is false when no pattern clears the acceptance threshold.
func (m *PatternMatcher) Match(query string) (response, category string, similarity float64, ok bool) {
	q := normalizeQuery(query)
	if q == "" {
		return "", "", 0, false
	}

	var best float64
	var bestPattern *pattern
	for i := range patterns {
		for _, phrase := range patterns[i].phrases {
			s := phraseSimilarity(q, phrase)
			if s > best {
				best = s
				bestPattern = &patterns[i]
			}
		}
	}

	if bestPattern == nil || best <= patternAcceptThreshold {
		return "", "", best, false
	}
	return m.pickResponse(bestPattern), bestPattern.category, best, true
}

// pickResponse chooses one of the pattern's canned responses at random.
func (m *PatternMatcher) pickResponse(p *pattern) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return p.responses[m.rng.Intn(len(p.responses))]
}

// phraseSimilarity scores query against a trigger phrase. Substring
// containment in either direction short-circuits to a fixed high score;
// otherwise normalized Levenshtein distance does the work.
func phraseSimilarity(query, phrase string) float64 {
	if query == phrase {
		return 1.0
	}
	if strings.Contains(query, phrase) || strings.Contains(phrase, query) {
		return containmentScore
	}
	longer := len(query)
	if len(phrase) > longer {
		longer = len(phrase)
	}
	if longer == 0 {
		return 0
	}
	return float64(longer-levenshtein(query, phrase)) / float64(longer)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// normalizeQuery lowercases, strips punctuation, and collapses whitespace.
func normalizeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(q)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'', r == '-':
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
