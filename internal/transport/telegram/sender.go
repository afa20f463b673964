package telegram

import (
	"context"
	"os"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/conv"
	"github.com/sandevgo/muse/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

type sender struct {
	bot *tele.Bot
}

func newSender(bot *tele.Bot) *sender {
	return &sender{bot: bot}
}

// send delivers a reply and reports every message that reached the chat
// along with the text the user actually sees.
func (s *sender) send(ctx context.Context, to *tele.Message, reply core.Reply, delivered func(id int, shown string)) error {
	switch r := reply.(type) {
	case core.VoiceReply:
		return s.sendVoice(ctx, to, r, delivered)
	case core.TextReply:
		return s.sendChunks(ctx, to, r.Chunks, delivered)
	default:
		return nil
	}
}

func (s *sender) sendChunks(ctx context.Context, to *tele.Message, chunks []string, delivered func(int, string)) error {
	logger := log.FromCtx(ctx)

	for i, chunk := range chunks {
		html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(chunk)))
		if html == "" {
			continue
		}
		for j, part := range splitHTML(html, maxTelegramMsgLen) {
			opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
			if i == 0 && j == 0 {
				opts.ReplyTo = to
			}

			sent, err := s.bot.Send(to.Chat, part, opts)
			if err != nil {
				logger.Error().Err(err).Int("chunk", i).Int("len", len(part)).Msg("failed to send telegram chunk")
				return err
			}
			delivered(sent.ID, conv.TelegramHTMLToText(part))
		}
	}
	return nil
}

func (s *sender) sendVoice(ctx context.Context, to *tele.Message, r core.VoiceReply, delivered func(int, string)) error {
	defer os.Remove(r.Note.Path)

	voice := &tele.Voice{
		File:     tele.FromDisk(r.Note.Path),
		Duration: r.Note.Duration,
		MIME:     "audio/ogg",
	}
	sent, err := s.bot.Send(to.Chat, voice, &tele.SendOptions{ReplyTo: to})
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to send voice reply, sending text")
		return s.sendChunks(ctx, to, []string{r.Text}, delivered)
	}
	delivered(sent.ID, r.Text)
	return nil
}

// sendMarkdown sends a command response without touching the conversation context.
func (s *sender) sendMarkdown(ctx context.Context, to *tele.Message, md string) error {
	html := strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(md)))
	for i, chunk := range splitHTML(html, maxTelegramMsgLen) {
		opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
		if i == 0 {
			opts.ReplyTo = to
		}
		if _, err := s.bot.Send(to.Chat, chunk, opts); err != nil {
			log.FromCtx(ctx).Error().Err(err).Int("chunk", i).Msg("failed to send command response")
			return err
		}
	}
	return nil
}

// splitHTML splits text into chunks respecting Telegram's limit.
// It tries to split at newlines to preserve formatting.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}
		// Never cut inside a multi-byte rune
		for cut > 0 && !utf8RuneStart(text[cut]) {
			cut--
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
