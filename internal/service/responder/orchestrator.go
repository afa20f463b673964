// Package responder turns an inbound message into the bot's reply.
package responder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/observability"
	"github.com/sandevgo/muse/internal/service/prompt"
	"github.com/sandevgo/muse/pkg/log"
)

type Window interface {
	Append(convID string, t core.Turn) string
	Remove(convID, seqID string) bool
	EvictOldest(convID string) bool
	Render(convID string) []string
	Turns(convID string) []core.Turn
}

type Recaller interface {
	Recall(ctx context.Context, guildID, convID, text string) (string, bool)
}

type Persona interface {
	Current() prompt.Profile
}

type Attachments interface {
	Stage(ctx context.Context, messageID string, a core.Attachment) (string, error)
	Discard(ctx context.Context, path string)
	Prepare(ctx context.Context, path string) (*core.FileHandle, error)
	Release(ctx context.Context, h *core.FileHandle)
}

type Config struct {
	ErrorMessage string
	RetryCount   int
	DebugMode    bool
	ChunkSize    int

	VoiceMessages     bool
	VoiceChance       float64
	VoiceMessageConvo bool

	// Percentages, 0..100
	TextFrequency float64
	KeywordChance float64
	Keywords      []string

	LogPromptTokens bool
	StagingDir      string
}

type Deps struct {
	Window      Window
	Matcher     Recaller
	Persona     Persona
	Attachments Attachments
	Generator   core.Generator
	Transcriber core.Transcriber
	Activation  core.ActivationStore

	// Optional
	Settings    core.SettingsStore
	Synthesizer core.Synthesizer
	Audio       core.AudioProcessor
	Metrics     *observability.Metrics
	Rand        func() float64
}

type Orchestrator struct {
	cfg  Config
	deps Deps

	mu       sync.RWMutex
	settings core.Settings
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 2000
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = "Sorry, could you please repeat that?"
	}
	if deps.Rand == nil {
		deps.Rand = rand.Float64
	}
	return &Orchestrator{cfg: cfg, deps: deps, settings: cfg.settings()}
}

// Respond runs one event through the pipeline. A nil reply means the event
// was ignored. No error or panic escapes; failures become the error message.
func (o *Orchestrator) Respond(ctx context.Context, ev core.Event) (reply core.Reply) {
	ctx = log.WithConversation(ctx, ev.ConversationID, ev.MessageID)
	logger := log.FromCtx(ctx)

	if !o.accept(ctx, ev) {
		return nil
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("reply pipeline panicked")
			o.deps.Metrics.Degraded("panic")
			reply = o.textReply(o.degradedText(fmt.Errorf("panic: %v", r)))
		}
		o.deps.Metrics.ReplyLatency(time.Since(start).Seconds())
	}()

	o.deps.Window.Append(ev.ConversationID, core.Turn{
		Author:     ev.AuthorName,
		Text:       ev.Text,
		SequenceID: ev.MessageID,
	})

	memory, ok := o.deps.Matcher.Recall(ctx, ev.GuildID, ev.ConversationID, ev.Text)
	if ok {
		logger.Debug().Msg("memory recalled")
	}

	persona := o.deps.Persona.Current()
	system := prompt.Render(persona, ev.AuthorName, memory)

	text, voiceNote := o.dispatch(ctx, ev, system)

	if o.wantsVoice(voiceNote) {
		if r, ok := o.voiceReply(ctx, ev.MessageID, text); ok {
			return r
		}
	}
	return o.textReply(text)
}

// Delivered records a reply the transport actually showed to the user.
func (o *Orchestrator) Delivered(convID, messageID, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	o.deps.Window.Append(convID, core.Turn{
		Author:     o.deps.Persona.Current().Name(),
		Text:       text,
		SequenceID: messageID,
	})
}

// Forget retracts one message from the conversation context.
func (o *Orchestrator) Forget(convID, messageID string) bool {
	return o.deps.Window.Remove(convID, messageID)
}

func (o *Orchestrator) accept(ctx context.Context, ev core.Event) bool {
	if ev.FromSelf || ev.IsCommand {
		return false
	}
	if strings.TrimSpace(ev.Text) == "" && len(ev.Attachments) == 0 {
		return false
	}
	if ev.Mentioned {
		return true
	}
	if o.deps.Activation != nil && o.deps.Activation.IsActive(ctx, ev.ConversationID) {
		return true
	}
	return o.freewill(ctx, ev.Text)
}

func (o *Orchestrator) freewill(ctx context.Context, text string) bool {
	s := o.Settings()
	chance := s.TextFrequency
	lower := strings.ToLower(text)
	for _, kw := range s.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			chance += s.KeywordChance
			break
		}
	}
	if chance <= 0 {
		return false
	}

	p := min(chance/100, 1)
	if o.deps.Rand() < p {
		log.FromCtx(ctx).Debug().Float64("chance", p).Msg("answering unprompted")
		return true
	}
	return false
}

// wantsVoice decides the reply medium. VoiceMessages gates every voice reply;
// VoiceMessageConvo only answers voice notes in kind when it is on.
func (o *Orchestrator) wantsVoice(voiceNote bool) bool {
	if o.deps.Synthesizer == nil || o.deps.Audio == nil {
		return false
	}
	s := o.Settings()
	if !s.VoiceMessages {
		return false
	}
	if voiceNote && s.VoiceMessageConvo {
		return true
	}
	return o.deps.Rand() < s.VoiceChance
}

func (o *Orchestrator) textReply(text string) core.Reply {
	return core.TextReply{Text: text, Chunks: Chunk(text, o.cfg.ChunkSize)}
}

func (o *Orchestrator) degradedText(cause error) string {
	if o.cfg.DebugMode && cause != nil {
		return fmt.Sprintf("%s\n\n%v", o.cfg.ErrorMessage, cause)
	}
	return o.cfg.ErrorMessage
}
