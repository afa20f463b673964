package telegram

import (
	"context"
	"testing"

	"github.com/sandevgo/muse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

type reaction struct {
	convID, messageID, user, emoji string
}

type fakeResponder struct {
	reactions []reaction
	forgotten []string
}

func (f *fakeResponder) Respond(ctx context.Context, ev core.Event) core.Reply { return nil }

func (f *fakeResponder) Delivered(convID, messageID, text string) {}

func (f *fakeResponder) Reacted(ctx context.Context, convID, messageID, user, emoji string) bool {
	if emoji == "🔇" {
		f.forgotten = append(f.forgotten, convID+"/"+messageID)
		return true
	}
	f.reactions = append(f.reactions, reaction{convID, messageID, user, emoji})
	return true
}

func newReactionBot() (*Bot, *fakeResponder) {
	r := &fakeResponder{}
	return &Bot{responder: r, selfID: me.ID, messages: newMessageIndex(8)}, r
}

func emojis(list ...string) []tele.Reaction {
	out := make([]tele.Reaction, len(list))
	for i, e := range list {
		out[i] = tele.Reaction{Type: "emoji", Emoji: e}
	}
	return out
}

func TestHandleReaction(t *testing.T) {
	b, r := newReactionBot()
	b.messages.add(-100, 50, "-100:7")

	b.handleReaction(context.Background(), &tele.MessageReaction{
		Chat:        &tele.Chat{ID: -100},
		MessageID:   50,
		User:        &tele.User{ID: 7, FirstName: "Bob"},
		NewReaction: emojis("🔥"),
	})

	require.Len(t, r.reactions, 1)
	assert.Equal(t, reaction{convID: "-100:7", messageID: "50", user: "Bob", emoji: "🔥"}, r.reactions[0])
}

func TestHandleReaction_MuteForgets(t *testing.T) {
	b, r := newReactionBot()

	b.handleReaction(context.Background(), &tele.MessageReaction{
		Chat:        &tele.Chat{ID: 12},
		MessageID:   3,
		User:        &tele.User{ID: 7, FirstName: "Bob"},
		OldReaction: emojis("👍"),
		NewReaction: emojis("👍", "🔇"),
	})

	assert.Equal(t, []string{"12/3"}, r.forgotten)
	assert.Empty(t, r.reactions)
}

func TestHandleReaction_Ignored(t *testing.T) {
	tests := []struct {
		name string
		r    *tele.MessageReaction
	}{
		{
			name: "removed reaction",
			r:    &tele.MessageReaction{Chat: &tele.Chat{ID: 1}, User: &tele.User{ID: 7}, OldReaction: emojis("🔥")},
		},
		{
			name: "own reaction",
			r:    &tele.MessageReaction{Chat: &tele.Chat{ID: 1}, User: me, NewReaction: emojis("🔥")},
		},
		{
			name: "anonymous admin",
			r:    &tele.MessageReaction{Chat: &tele.Chat{ID: 1}, ActorChat: &tele.Chat{ID: 1}, NewReaction: emojis("🔥")},
		},
		{
			name: "custom emoji",
			r: &tele.MessageReaction{Chat: &tele.Chat{ID: 1}, User: &tele.User{ID: 7},
				NewReaction: []tele.Reaction{{Type: "custom_emoji", CustomEmoji: "5368"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, r := newReactionBot()
			b.handleReaction(context.Background(), tt.r)
			assert.Empty(t, r.reactions)
			assert.Empty(t, r.forgotten)
		})
	}
}

func TestFilterUpdates(t *testing.T) {
	b, r := newReactionBot()
	filter := b.filterUpdates(context.Background())

	assert.True(t, filter(&tele.Update{Message: groupMessage("hi")}))
	assert.False(t, filter(&tele.Update{MessageReaction: &tele.MessageReaction{
		Chat:        &tele.Chat{ID: 5},
		MessageID:   9,
		User:        &tele.User{ID: 7, Username: "bob"},
		NewReaction: emojis("👍"),
	}}))
	require.Len(t, r.reactions, 1)
	assert.Equal(t, "5", r.reactions[0].convID)
}

func TestMessageIndex_Evicts(t *testing.T) {
	x := newMessageIndex(2)
	x.add(1, 1, "1:a")
	x.add(1, 2, "1:b")
	x.add(1, 3, "1:c")

	assert.Equal(t, "1", x.lookup(1, 1))
	assert.Equal(t, "1:b", x.lookup(1, 2))
	assert.Equal(t, "1:c", x.lookup(1, 3))
}
