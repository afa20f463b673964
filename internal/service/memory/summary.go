package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/muse/internal/core"
)

var (
	ErrNothingToSummarize = errors.New("conversation is empty")
	errEmptyResponse      = errors.New("model returned no response")
)

// Summarize condenses the conversation window from the persona's point of view.
func (m *Matcher) Summarize(ctx context.Context, convID, persona string) (string, error) {
	lines := m.window.Render(convID)
	if len(lines) == 0 {
		return "", ErrNothingToSummarize
	}

	prompt := fmt.Sprintf(
		"You're a data analyst whose only purpose is to write large but concise summaries of the text provided to you, retaining most of the information. "+
			"Summarize this conversation from the perspective of %s.\n--- Conversation Start ---\n%s\n--- Conversation End ---",
		persona, strings.Join(lines, "\n"),
	)

	resp, err := m.gen.Generate(ctx, core.GenerateRequest{
		Contents: []core.Part{core.TextPart(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("summarize: %w", errEmptyResponse)
	}

	if resp.Text != "" {
		return resp.Text, nil
	}
	for i := range resp.Candidates {
		if text, ok := resp.CandidateText(i); ok {
			return text, nil
		}
	}
	return "", fmt.Errorf("summarize: empty response")
}
