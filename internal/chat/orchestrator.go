// Package chat runs the staged answer pipeline: retrieval-grounded
// generation first, then direct generation, then pattern matching, and
// finally a static fallback. Every query gets an answer; the stages only
// decide how good it is and what it cost.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rdeshpande/folio-ai/internal/confidence"
	"github.com/rdeshpande/folio-ai/internal/generate"
	"github.com/rdeshpande/folio-ai/internal/logging"
	"github.com/rdeshpande/folio-ai/internal/rag"
)

// Answer sources, reported to clients and used as metric labels.
const (
	// SourceRAG marks an answer grounded in retrieved portfolio context.
	SourceRAG = "rag"
	// SourceLLM marks a direct model answer with no retrieval grounding.
	SourceLLM = "llm"
	// SourcePattern marks a canned answer from the pattern table.
	SourcePattern = "pattern"
	// SourceFallback marks the static last-resort answer.
	SourceFallback = "fallback"
	// SourceCache marks a replayed earlier answer.
	SourceCache = "cache"
)

const (
	// defaultRAGThreshold is the minimum confidence for a grounded answer
	// to ship. Below it the retrieval evidence was too thin to trust.
	defaultRAGThreshold = 0.3
	// directConfidence is the fixed confidence of a direct model answer.
	// There is no retrieval evidence to grade it against, so it gets a
	// flat score reflecting "fluent but unverified".
	directConfidence = 0.8
	// fallbackConfidence marks the static answer as a last resort.
	fallbackConfidence = 0.1
	// maxSources caps the source attributions returned to clients.
	maxSources = 3
)

// staticFallback is the answer of last resort. It must never fail and
// never overclaim.
const staticFallback = "I'm having trouble answering that right now. You can ask me about " +
	"Rohit's skills, projects, work experience, or education — or try rephrasing your question."

// Mode selects how aggressive the pipeline is about non-grounded answers.
type Mode string

const (
	// ModeAuto runs the full four-stage chain.
	ModeAuto Mode = "auto"
	// ModeRAG requires retrieval grounding: the direct-model stage is
	// skipped and retrieval uses the strict relevance floor, so answers
	// are either grounded or explicitly canned.
	ModeRAG Mode = "rag"
)

// ContextComposer is the retrieval dependency of the orchestrator.
// *rag.Composer implements it.
type ContextComposer interface {
	Compose(ctx context.Context, query string, strict bool) (*rag.Bundle, error)
}

// AnswerGenerator is the LLM dependency of the orchestrator.
// *generate.Generator implements it. A nil generator degrades the pipeline
// to its offline stages.
type AnswerGenerator interface {
	Grounded(ctx context.Context, query, contextText string) (string, error)
	Direct(ctx context.Context, query string) (string, error)
}

// Response is a finished answer with its provenance.
type Response struct {
	// Text is the answer shown to the visitor.
	Text string
	// Source names the stage that produced the answer.
	Source string
	// Confidence is the pipeline's trust in the answer, in [0, 1].
	Confidence float64
	// Sources lists up to three corpus attributions for grounded answers.
	Sources []string
}

// Config tunes an Orchestrator. Zero values select the defaults.
type Config struct {
	// Mode selects the stage chain; default ModeAuto.
	Mode Mode
	// RAGThreshold overrides the grounded-answer acceptance confidence.
	RAGThreshold float64
	// DisableCache turns off response caching.
	DisableCache bool
}

// Orchestrator owns the staged pipeline. Construct with NewOrchestrator.
type Orchestrator struct {
	composer     ContextComposer
	generator    AnswerGenerator
	matcher      *PatternMatcher
	cache        *responseCache
	mode         Mode
	ragThreshold float64
}

// NewOrchestrator wires the pipeline. composer may be nil when no vector
// store is configured and generator may be nil when no model provider is
// configured; the remaining stages still answer every query.
func NewOrchestrator(composer ContextComposer, generator AnswerGenerator, cfg Config) *Orchestrator {
	o := &Orchestrator{
		composer:     composer,
		generator:    generator,
		matcher:      NewPatternMatcher(),
		mode:         cfg.Mode,
		ragThreshold: cfg.RAGThreshold,
	}
	if o.mode == "" {
		o.mode = ModeAuto
	}
	if o.ragThreshold <= 0 {
		o.ragThreshold = defaultRAGThreshold
	}
	if !cfg.DisableCache {
		o.cache = newResponseCache()
	}
	return o
}

// Answer runs the stage chain for query in the orchestrator's configured
// mode. It always returns a usable Response; stage failures are logged and
// absorbed, never surfaced.
func (o *Orchestrator) Answer(ctx context.Context, query string) Response {
	return o.AnswerMode(ctx, query, o.mode)
}

// AnswerMode is Answer with a per-request mode override, used by the HTTP
// layer when the request body asks for strict grounding. An empty mode
// selects the orchestrator's configured mode.
func (o *Orchestrator) AnswerMode(ctx context.Context, query string, mode Mode) Response {
	log := logging.FromContext(ctx)
	start := time.Now()

	if mode == "" {
		mode = o.mode
	}

	if o.cache != nil {
		if resp, ok := o.cache.get(mode, query); ok {
			log.Debug("chat: cache hit", slog.String("source", resp.Source))
			resp.Source = SourceCache
			return resp
		}
	}

	resp, ok := o.tryRAG(ctx, query, mode, log)
	if !ok && mode == ModeAuto {
		resp, ok = o.tryDirect(ctx, query, log)
	}
	if !ok {
		resp, ok = o.tryPattern(query, log)
	}
	if !ok {
		// Every earlier stage declined or failed. The static answer is the
		// contract that /chat never errors for pipeline reasons.
		log.Warn("chat: all answer stages exhausted, serving static fallback",
			slog.Duration("elapsed", time.Since(start)))
		resp = Response{Text: staticFallback, Source: SourceFallback, Confidence: fallbackConfidence}
	}

	if o.cache != nil && resp.Source != SourceFallback {
		o.cache.put(mode, query, resp)
	}

	log.Info("chat: answered",
		slog.String("source", resp.Source),
		slog.Float64("confidence", resp.Confidence),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp
}

func (o *Orchestrator) tryRAG(ctx context.Context, query string, mode Mode, log *slog.Logger) (Response, bool) {
	if o.composer == nil || o.generator == nil {
		return Response{}, false
	}

	bundle, err := o.composer.Compose(ctx, query, mode == ModeRAG)
	if err != nil {
		if errors.Is(err, rag.ErrNoRelevantContext) {
			log.Debug("chat: no relevant context, skipping grounded stage")
		} else {
			log.Warn("chat: retrieval failed, skipping grounded stage", slog.Any("error", err))
		}
		return Response{}, false
	}

	answer, err := o.generator.Grounded(ctx, query, bundle.Context)
	if err != nil {
		log.Warn("chat: grounded generation failed", slog.Any("error", err))
		return Response{}, false
	}

	// Grade against every candidate that cleared the relevance floor, not
	// just the diversity-filtered bundle: near-duplicate evidence still
	// counts toward retrieval strength.
	conf := confidence.Score(answer, query, bundle.RelevantScores)
	if conf < o.ragThreshold {
		log.Debug("chat: grounded answer below threshold",
			slog.Float64("confidence", conf),
			slog.Float64("threshold", o.ragThreshold),
		)
		return Response{}, false
	}

	return Response{
		Text:       answer,
		Source:     SourceRAG,
		Confidence: conf,
		Sources:    sourceAttributions(bundle.Items),
	}, true
}

func (o *Orchestrator) tryDirect(ctx context.Context, query string, log *slog.Logger) (Response, bool) {
	if o.generator == nil {
		return Response{}, false
	}
	answer, err := o.generator.Direct(ctx, query)
	if err != nil {
		if errors.Is(err, generate.ErrEmptyCompletion) {
			log.Debug("chat: direct stage returned empty completion")
		} else {
			log.Warn("chat: direct generation failed", slog.Any("error", err))
		}
		return Response{}, false
	}
	return Response{Text: answer, Source: SourceLLM, Confidence: directConfidence}, true
}

func (o *Orchestrator) tryPattern(query string, log *slog.Logger) (Response, bool) {
	answer, category, similarity, ok := o.matcher.Match(query)
	if !ok {
		return Response{}, false
	}
	log.Debug("chat: pattern matched",
		slog.String("category", category),
		slog.Float64("similarity", similarity),
	)
	return Response{Text: answer, Source: SourcePattern, Confidence: similarity}, true
}

// sourceAttributions extracts up to maxSources distinct source names from
// the retrieved items, preferring explicit source metadata over category.
func sourceAttributions(items []rag.Document) []string {
	seen := make(map[string]struct{}, maxSources)
	var out []string
	for _, item := range items {
		name := item.Metadata["source"]
		if name == "" {
			name = item.Category
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) == maxSources {
			break
		}
	}
	return out
}
