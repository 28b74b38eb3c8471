// Package generate produces natural-language answers with an LLM chat
// model, either grounded in retrieved portfolio context or directly from
// the model's general knowledge.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Sentinel errors returned by the generator. Callers match these with
// errors.Is to decide whether to fall back to a non-LLM answer path.
var (
	// ErrUpstreamUnavailable indicates the chat completion call failed —
	// network errors, auth failures, rate limits, timeouts.
	ErrUpstreamUnavailable = errors.New("generate: upstream model unavailable")
	// ErrEmptyCompletion indicates the model returned a blank response.
	ErrEmptyCompletion = errors.New("generate: empty completion")
)

// Per-persona completion bounds. Grounded answers get more room because
// they restate retrieved context; direct answers run shorter and slightly
// warmer since they carry no grounding to stay close to.
const (
	groundedMaxTokens   = 600
	groundedTemperature = float32(0.2)
	directMaxTokens     = 400
	directTemperature   = float32(0.4)
)

const (
	// defaultTimeout bounds a single completion call.
	defaultTimeout = 30 * time.Second

	// groundedOverrunRatio is the point at which a grounded answer is
	// considered to have drifted beyond its context: a response more than
	// this many times longer than the supplied context is likely padding
	// retrieved facts with invented ones.
	groundedOverrunRatio = 1.5

	// overrunExcerptLen is how much of an overlong grounded answer is kept.
	overrunExcerptLen = 300
)

const groundedSystem = `You are the assistant on Rohit Deshpande's portfolio website. Answer questions about Rohit's background, skills, projects, and experience using ONLY the context provided below. The context entries are ranked and labeled by relevance.

Rules:
- Base every statement on the context. Do not invent projects, employers, dates, or technologies that are not in it.
- If the context does not contain the answer, say so plainly and suggest what the visitor could ask instead.
- Speak about Rohit in the third person. Be concise, specific, and friendly.

Context:
%s`

const directSystem = `You are the assistant on Rohit Deshpande's portfolio website. The knowledge base had no relevant material for this question, so answer from general knowledge where appropriate. Keep answers brief and honest: for questions about Rohit's specific work history or projects, say that you don't have those details rather than guessing, and suggest asking about his skills, projects, or experience.`

// Config tunes a Generator. Zero values select the defaults above.
type Config struct {
	// Timeout bounds each completion call.
	Timeout time.Duration
}

// Generator wraps a chat model with the portfolio personas and the
// post-processing that keeps grounded answers anchored to their context.
type Generator struct {
	chat    model.ToolCallingChatModel
	timeout time.Duration
}

// NewGenerator constructs a Generator over the given chat model.
func NewGenerator(chat model.ToolCallingChatModel, cfg Config) (*Generator, error) {
	if chat == nil {
		return nil, fmt.Errorf("generate: chat model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Generator{chat: chat, timeout: timeout}, nil
}

// Grounded answers query using only the supplied retrieval context. Answers
// that balloon far beyond the context are truncated to an excerpt with an
// honest framing prefix, since length disproportionate to the source
// material is the cheapest available fabrication signal.
func (g *Generator) Grounded(ctx context.Context, query, contextText string) (string, error) {
	answer, err := g.complete(ctx, fmt.Sprintf(groundedSystem, contextText), query,
		model.WithMaxTokens(groundedMaxTokens), model.WithTemperature(groundedTemperature))
	if err != nil {
		return "", err
	}
	if len(answer) > int(float64(len(contextText))*groundedOverrunRatio) {
		excerpt := answer
		if len(excerpt) > overrunExcerptLen {
			// Walk the cut back to a rune boundary so the excerpt stays
			// valid UTF-8.
			cut := overrunExcerptLen
			for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
				cut--
			}
			excerpt = excerpt[:cut]
		}
		answer = "Based on the available information in my knowledge base, " + strings.TrimSpace(excerpt) + "..."
	}
	return answer, nil
}

// Direct answers query without retrieval context, using the degraded-mode
// persona that declines to guess about specifics.
func (g *Generator) Direct(ctx context.Context, query string) (string, error) {
	return g.complete(ctx, directSystem, query,
		model.WithMaxTokens(directMaxTokens), model.WithTemperature(directTemperature))
}

func (g *Generator) complete(ctx context.Context, system, query string, opts ...model.Option) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(query),
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	answer := cleanResponse(msg.Content)
	if answer == "" {
		return "", ErrEmptyCompletion
	}
	return answer, nil
}

// cleanResponse normalizes raw model output: strips wrapping quotes and
// boilerplate answer labels, and collapses runs of blank lines.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	for _, label := range []string{"Answer:", "Response:"} {
		if rest, ok := strings.CutPrefix(s, label); ok {
			s = strings.TrimSpace(rest)
			break
		}
	}
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
