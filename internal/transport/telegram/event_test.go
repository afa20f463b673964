package telegram

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

type fakeDownloader struct {
	got string
}

func (f *fakeDownloader) Download(file *tele.File, path string) error {
	f.got = file.FileID
	return os.WriteFile(path, []byte("bytes"), 0644)
}

var me = &tele.User{ID: 99, Username: "muse_bot", IsBot: true}

func groupMessage(text string) *tele.Message {
	return &tele.Message{
		ID:     42,
		Text:   text,
		Chat:   &tele.Chat{ID: -100, Type: tele.ChatSuperGroup},
		Sender: &tele.User{ID: 7, FirstName: "Bob", LastName: "Stone", Username: "bob"},
	}
}

func TestToEvent(t *testing.T) {
	ev := toEvent(&fakeDownloader{}, groupMessage("hello @Muse_Bot"), me)

	assert.Equal(t, "42", ev.MessageID)
	assert.Equal(t, "7", ev.AuthorID)
	assert.Equal(t, "Bob Stone", ev.AuthorName)
	assert.Equal(t, "-100", ev.ConversationID)
	assert.Equal(t, "-100", ev.GuildID)
	assert.True(t, ev.Mentioned)
	assert.False(t, ev.FromSelf)
	assert.False(t, ev.IsCommand)
	assert.Empty(t, ev.Attachments)
}

func TestToEvent_Mentioned(t *testing.T) {
	tests := []struct {
		name string
		msg  func() *tele.Message
		want bool
	}{
		{name: "plain group message", msg: func() *tele.Message { return groupMessage("hi all") }, want: false},
		{
			name: "private chat",
			msg: func() *tele.Message {
				m := groupMessage("hi")
				m.Chat = &tele.Chat{ID: 7, Type: tele.ChatPrivate}
				return m
			},
			want: true,
		},
		{
			name: "reply to bot",
			msg: func() *tele.Message {
				m := groupMessage("and then?")
				m.ReplyTo = &tele.Message{ID: 41, Sender: me}
				return m
			},
			want: true,
		},
		{
			name: "mention in caption",
			msg: func() *tele.Message {
				m := groupMessage("")
				m.Caption = "look @muse_bot"
				return m
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toEvent(&fakeDownloader{}, tt.msg(), me).Mentioned)
		})
	}
}

func TestToEvent_ForumTopic(t *testing.T) {
	m := groupMessage("hi")
	m.ThreadID = 5
	ev := toEvent(&fakeDownloader{}, m, me)
	assert.Equal(t, "-100:5", ev.ConversationID)
	assert.Equal(t, "-100", ev.GuildID)
}

func TestToEvent_SelfAndCommand(t *testing.T) {
	m := groupMessage("/forget")
	m.Sender = me
	ev := toEvent(&fakeDownloader{}, m, me)
	assert.True(t, ev.FromSelf)
	assert.True(t, ev.IsCommand)
}

func TestToEvent_Attachments(t *testing.T) {
	tests := []struct {
		name string
		set  func(m *tele.Message)
		want string
	}{
		{name: "photo", set: func(m *tele.Message) { m.Photo = &tele.Photo{File: tele.File{FileID: "p"}} }, want: "photo.jpg"},
		{name: "voice", set: func(m *tele.Message) { m.Voice = &tele.Voice{File: tele.File{FileID: "v"}} }, want: "voice.ogg"},
		{name: "audio", set: func(m *tele.Message) { m.Audio = &tele.Audio{File: tele.File{FileID: "a"}, FileName: "song.flac"} }, want: "song.flac"},
		{name: "video", set: func(m *tele.Message) { m.Video = &tele.Video{File: tele.File{FileID: "x"}} }, want: "video.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := groupMessage("")
			m.Caption = "see this"
			tt.set(m)

			dl := &fakeDownloader{}
			ev := toEvent(dl, m, me)
			assert.Equal(t, "see this", ev.Text)
			require.Len(t, ev.Attachments, 1)
			assert.Equal(t, tt.want, ev.Attachments[0].Name())

			path := filepath.Join(t.TempDir(), "file")
			require.NoError(t, ev.Attachments[0].Save(context.Background(), path))
			assert.FileExists(t, path)
			assert.NotEmpty(t, dl.got)
		})
	}
}

func TestSplitHTML(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitHTML("short", 10))

	text := strings.Repeat("a", 30) + "\n" + strings.Repeat("b", 30)
	chunks := splitHTML(text, 40)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 30), chunks[0])
	assert.Equal(t, strings.Repeat("b", 30), chunks[1])

	for _, c := range splitHTML(strings.Repeat("é", 50), 15) {
		assert.LessOrEqual(t, len(c), 15)
		assert.True(t, strings.HasPrefix(c, "é"))
	}
}
