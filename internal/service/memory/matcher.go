package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/observability"
	"github.com/sandevgo/muse/pkg/log"
)

const matchInstruction = `Objective:
Determine if the provided context or phrase is similar to another given phrase or message based on predefined criteria.

Guidelines:
1. Content Overlap: Examine if the majority of content in both messages overlaps.
2. Contextual Similarity: Check if the context or the main idea presented in both messages is alike.
3. Linguistic Patterns: Identify if similar linguistic patterns, phrases, or keywords are used.
4. Semantic Similarity: Evaluate if both messages convey the same meaning even if different words are used.

Instructions:
1. Read the provided messages and phrases.
2. Assess each message based on the provided guidelines.
3. Determine if the messages meet one or more of the following criteria:
    a. The content of both messages overlaps significantly.
    b. The contexts or main ideas of both messages align.
    c. Similar linguistic patterns or keywords are used in both messages.
    d. The overall meaning conveyed by both messages is the same.
    e. Be lenient in your comparison; if a phrase has 2/3 keywords, complete the rest.

If the phrase is similar, provide it in the JSON response ONLY. Provide the MOST similar phrase, exactly as written in the list.
Respond with a single JSON object, never a list:

{"is_similar": true/false, "similar_phrase": "the phrase from the list"}

without ANY formatting, i.e., no backticks, no syntax highlighting, no numbered lists.`

// ContextRenderer exposes a conversation's rendered turns.
type ContextRenderer interface {
	Render(convID string) []string
}

type Matcher struct {
	store   core.MemoryStore
	window  ContextRenderer
	gen     core.Generator
	metrics *observability.Metrics
}

func NewMatcher(store core.MemoryStore, window ContextRenderer, gen core.Generator, metrics *observability.Metrics) *Matcher {
	return &Matcher{
		store:   store,
		window:  window,
		gen:     gen,
		metrics: metrics,
	}
}

// Compare asks the model whether the conversation touches one of the guild's
// trigger phrases. Every failure resolves to "no match".
func (m *Matcher) Compare(ctx context.Context, guildID, convID, text string) core.MatchResult {
	res, _ := m.compare(ctx, guildID, convID, text, FetchSorted(ctx, m.store, guildID))
	return res
}

// Recall returns the memory text for the phrase the conversation matched.
func (m *Matcher) Recall(ctx context.Context, guildID, convID, text string) (string, bool) {
	recall := FetchSorted(ctx, m.store, guildID)
	res, memory := m.compare(ctx, guildID, convID, text, recall)
	if !res.IsSimilar {
		return "", false
	}
	return memory, true
}

func (m *Matcher) compare(ctx context.Context, guildID, convID, text string, recall Recall) (core.MatchResult, string) {
	logger := log.FromCtx(ctx).With().Str("guild", guildID).Logger()

	if recall.Empty() {
		m.metrics.Match("empty")
		return core.MatchResult{}, ""
	}

	resp, err := m.gen.Generate(ctx, core.GenerateRequest{
		Contents:          []core.Part{core.TextPart(buildMatchContents(m.window.Render(convID), text, recall.Phrases()))},
		SystemInstruction: matchInstruction,
		ResponseMIMEType:  "application/json",
	})
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		logger.Warn().Err(err).Msg("memory match call failed")
		m.metrics.Match("error")
		return core.MatchResult{}, ""
	}

	raw := resp.Text
	if raw == "" {
		raw, _ = resp.CandidateText(0)
	}

	res, err := parseMatch(raw)
	if err != nil {
		if errors.Is(err, ErrListShaped) {
			logger.Error().Str("raw", raw).Msg("memory matcher returned a list, rejecting")
		} else {
			logger.Warn().Err(err).Str("raw", raw).Msg("unparseable memory match result")
		}
		m.metrics.Match("invalid")
		return core.MatchResult{}, ""
	}

	if !res.IsSimilar {
		m.metrics.Match("miss")
		return core.MatchResult{}, ""
	}

	memory, ok := recall.Lookup(res.SimilarPhrase)
	if !ok {
		logger.Warn().Str("phrase", res.SimilarPhrase).Msg("matched phrase is not a known memory")
		m.metrics.Match("unknown_phrase")
		return core.MatchResult{}, ""
	}

	logger.Debug().Str("phrase", res.SimilarPhrase).Msg("memory matched")
	m.metrics.Match("hit")
	return res, memory
}

func buildMatchContents(turns []string, text string, phrases []string) string {
	return fmt.Sprintf("Context: %s\nLatest message: %s\nList of phrases: %s\n",
		strings.Join(turns, "\n"),
		text,
		strings.Join(phrases, ", "),
	)
}
