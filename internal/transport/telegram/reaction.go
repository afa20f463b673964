package telegram

import (
	"context"
	"strconv"
	"sync"

	"github.com/sandevgo/muse/pkg/log"
	tele "gopkg.in/telebot.v3"
)

// messageIndex remembers which conversation a recent message belongs to.
// Reaction updates carry only the chat, not the forum topic.
type messageIndex struct {
	mu    sync.Mutex
	limit int
	convs map[string]string
	order []string
}

func newMessageIndex(limit int) *messageIndex {
	return &messageIndex{limit: limit, convs: make(map[string]string, limit)}
}

func indexKey(chatID int64, msgID int) string {
	return strconv.FormatInt(chatID, 10) + "/" + strconv.Itoa(msgID)
}

func (x *messageIndex) add(chatID int64, msgID int, convID string) {
	key := indexKey(chatID, msgID)

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.convs[key]; !ok {
		x.order = append(x.order, key)
	}
	x.convs[key] = convID

	if over := len(x.order) - x.limit; over > 0 {
		for _, k := range x.order[:over] {
			delete(x.convs, k)
		}
		x.order = append([]string(nil), x.order[over:]...)
	}
}

// lookup falls back to the plain chat conversation for unknown messages.
func (x *messageIndex) lookup(chatID int64, msgID int) string {
	x.mu.Lock()
	defer x.mu.Unlock()

	if conv, ok := x.convs[indexKey(chatID, msgID)]; ok {
		return conv
	}
	return strconv.FormatInt(chatID, 10)
}

// filterUpdates takes reaction updates off the poller, telebot has no
// endpoint for them. Everything else goes on to the handlers.
func (b *Bot) filterUpdates(ctx context.Context) func(*tele.Update) bool {
	return func(u *tele.Update) bool {
		if u.MessageReaction == nil {
			return true
		}
		b.handleReaction(ctx, u.MessageReaction)
		return false
	}
}

func (b *Bot) handleReaction(ctx context.Context, r *tele.MessageReaction) {
	if r.Chat == nil || r.User == nil || r.User.ID == b.selfID {
		return
	}
	emoji, ok := addedEmoji(r)
	if !ok {
		return
	}

	convID := b.messages.lookup(r.Chat.ID, r.MessageID)
	msgID := strconv.Itoa(r.MessageID)
	ctx = log.WithConversation(ctx, convID, msgID)

	if b.responder.Reacted(ctx, convID, msgID, displayName(r.User), emoji) {
		log.FromCtx(ctx).Debug().Str("emoji", emoji).Msg("reaction handled")
	}
}

// addedEmoji returns the first plain emoji present in the new reaction set
// but not in the old one. Removed reactions and custom emoji are ignored.
func addedEmoji(r *tele.MessageReaction) (string, bool) {
	old := make(map[string]struct{}, len(r.OldReaction))
	for _, re := range r.OldReaction {
		old[re.Emoji] = struct{}{}
	}
	for _, re := range r.NewReaction {
		if re.Type != "emoji" || re.Emoji == "" {
			continue
		}
		if _, ok := old[re.Emoji]; !ok {
			return re.Emoji, true
		}
	}
	return "", false
}
