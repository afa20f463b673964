package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const (
	baseContextKey  = "base_context"
	indexedMessages = 4096
)

// Responder is the reply pipeline the bot feeds.
type Responder interface {
	Respond(ctx context.Context, ev core.Event) core.Reply
	Delivered(convID, messageID, text string)
	Reacted(ctx context.Context, convID, messageID, user, emoji string) bool
}

type Bot struct {
	bot       *tele.Bot
	cfg       *config.TelegramConfig
	responder Responder
	router    core.CmdRouter
	sender    *sender
	ownerID   int64
	selfID    int64
	messages  *messageIndex
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	responder Responder,
	router core.CmdRouter,
) (*Bot, error) {
	bot := &Bot{
		cfg:       cfg,
		responder: responder,
		router:    router,
		ownerID:   cfg.OwnerID,
		messages:  newMessageIndex(indexedMessages),
	}

	// Reactions are only delivered when asked for explicitly
	poller := &tele.LongPoller{
		Timeout:        cfg.PollTimeout,
		AllowedUpdates: []string{"message", "message_reaction"},
	}
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: tele.NewMiddlewarePoller(poller, bot.filterUpdates(ctx)),
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.bot = b
	bot.sender = newSender(b)
	if b.Me != nil {
		bot.selfID = b.Me.ID
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	for _, endpoint := range []string{tele.OnText, tele.OnPhoto, tele.OnAudio, tele.OnVoice, tele.OnVideo, tele.OnDocument} {
		b.Handle(endpoint, bot.handleMessage)
	}

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("username", b.bot.Me.Username).Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	msg := c.Message()
	if msg == nil || msg.Sender == nil || msg.Chat == nil {
		return nil
	}

	ev := toEvent(b.bot, msg, b.bot.Me)
	ctx = log.WithConversation(ctx, ev.ConversationID, ev.MessageID)
	b.messages.add(msg.Chat.ID, msg.ID, ev.ConversationID)

	if ev.IsCommand && !ev.FromSelf {
		return b.handleCommand(ctx, c, ev)
	}

	_ = c.Notify(tele.Typing)

	reply := b.responder.Respond(ctx, ev)
	if reply == nil {
		return nil
	}

	return b.sender.send(ctx, msg, reply, func(id int, shown string) {
		b.messages.add(msg.Chat.ID, id, ev.ConversationID)
		b.responder.Delivered(ev.ConversationID, strconv.Itoa(id), shown)
	})
}

func (b *Bot) handleCommand(ctx context.Context, c tele.Context, ev core.Event) error {
	call := core.CommandCall{
		ConversationID: ev.ConversationID,
		GuildID:        ev.GuildID,
		SenderID:       ev.AuthorID,
		Input:          ev.Text,
		IsOwner:        c.Sender().ID == b.ownerID,
	}
	if reply := c.Message().ReplyTo; reply != nil {
		call.ReplyToID = strconv.Itoa(reply.ID)
	}

	out, ok := b.router.Execute(ctx, call)
	if !ok || strings.TrimSpace(out) == "" {
		return nil
	}
	return b.sender.sendMarkdown(ctx, c.Message(), out)
}
