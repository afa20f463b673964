package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sandevgo/muse/internal/core"
)

var ErrListShaped = errors.New("match result is a list, expected an object")

const matchSchema = `{
	"type": "object",
	"required": ["is_similar"],
	"properties": {
		"is_similar": {"type": "boolean"},
		"similar_phrase": {"type": ["string", "null"]}
	}
}`

var matchResultSchema = jsonschema.MustCompileString("match_result.json", matchSchema)

// stripFences removes a surrounding markdown code fence, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseMatch decodes the classifier output. List-shaped output is an
// upstream protocol violation and is rejected.
func parseMatch(raw string) (core.MatchResult, error) {
	body := stripFences(raw)
	if body == "" {
		return core.MatchResult{}, fmt.Errorf("empty match result")
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return core.MatchResult{}, fmt.Errorf("decode match result: %w", err)
	}

	if _, ok := doc.([]any); ok {
		return core.MatchResult{}, ErrListShaped
	}

	if err := matchResultSchema.Validate(doc); err != nil {
		return core.MatchResult{}, fmt.Errorf("invalid match result: %w", err)
	}

	var res core.MatchResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return core.MatchResult{}, fmt.Errorf("decode match result: %w", err)
	}
	return res, nil
}
