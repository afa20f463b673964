package responder

import (
	"context"
	"errors"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/tokens"
)

const mediaInstruction = "The latest message came with the attached file. Take its content into account in your answer."

var errNoText = errors.New("model returned no usable text")

// generate makes one model call and always returns text to show. When nothing
// usable comes back the oldest turn is evicted so an oversized or poisoned
// context heals itself over the next attempts.
func (o *Orchestrator) generate(ctx context.Context, convID, system string, file *core.FileHandle) string {
	logger := log.FromCtx(ctx)

	body := system + "\n" + strings.Join(o.deps.Window.Render(convID), "\n")
	if o.cfg.LogPromptTokens {
		n := tokens.Count(body)
		o.deps.Metrics.PromptTokens(n)
		logger.Debug().Int("tokens", n).Msg("prompt rendered")
	}

	contents := []core.Part{core.TextPart(body)}
	if file != nil {
		contents = append(contents, core.TextPart(mediaInstruction), core.FilePart(file))
	}

	resp, err := o.deps.Generator.Generate(ctx, core.GenerateRequest{Contents: contents})
	if err != nil {
		logger.Error().Err(err).Msg("generation failed")
	}

	text, err := extractText(resp, err, o.cfg.RetryCount)
	if err != nil {
		o.deps.Metrics.Generation("failed")
		o.deps.Metrics.Degraded("generation")
		if o.deps.Window.EvictOldest(convID) {
			logger.Warn().Err(err).Msg("no usable reply, evicted oldest turn")
		}
		return o.degradedText(err)
	}

	o.deps.Metrics.Generation("ok")
	return text
}

// extractText reads the reply from resp: the primary text first, then up to
// retries candidates in order. Text is returned trimmed. callErr is reported
// when nothing is usable.
func extractText(resp *core.GenerateResponse, callErr error, retries int) (string, error) {
	if callErr == nil && resp != nil {
		if text, ok := usable(resp.Text); ok {
			return text, nil
		}
	}

	for i := 0; i < retries; i++ {
		candidate, ok := resp.CandidateText(i)
		if !ok {
			continue
		}
		if text, ok := usable(candidate); ok {
			return text, nil
		}
	}

	if callErr != nil {
		return "", callErr
	}
	return "", errNoText
}

func usable(text string) (string, bool) {
	t := strings.TrimSpace(text)
	return t, t != "" && t != "[]"
}
