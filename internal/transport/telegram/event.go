package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	tele "gopkg.in/telebot.v3"
)

// downloader is the part of *tele.Bot attachments need.
type downloader interface {
	Download(file *tele.File, localFilename string) error
}

type telegramFile struct {
	bot  downloader
	file tele.File
	name string
}

func (f *telegramFile) Name() string {
	return f.name
}

func (f *telegramFile) Save(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.bot.Download(&f.file, path)
}

func toEvent(bot downloader, msg *tele.Message, me *tele.User) core.Event {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	ev := core.Event{
		MessageID:      strconv.Itoa(msg.ID),
		AuthorName:     displayName(msg.Sender),
		ConversationID: conversationID(msg),
		Text:           text,
		Attachments:    attachments(bot, msg),
		IsCommand:      strings.HasPrefix(msg.Text, "/"),
		Mentioned:      mentioned(msg, me),
	}
	if msg.Chat != nil {
		ev.GuildID = strconv.FormatInt(msg.Chat.ID, 10)
	}
	if msg.Sender != nil {
		ev.AuthorID = strconv.FormatInt(msg.Sender.ID, 10)
		ev.FromSelf = me != nil && msg.Sender.ID == me.ID
	}
	return ev
}

// conversationID keys a chat, or a topic inside a forum chat.
func conversationID(msg *tele.Message) string {
	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	if msg.ThreadID != 0 {
		return fmt.Sprintf("%d:%d", chatID, msg.ThreadID)
	}
	return strconv.FormatInt(chatID, 10)
}

func mentioned(msg *tele.Message, me *tele.User) bool {
	if msg.Private() {
		return true
	}
	if me == nil {
		return false
	}
	if reply := msg.ReplyTo; reply != nil && reply.Sender != nil && reply.Sender.ID == me.ID {
		return true
	}
	if me.Username == "" {
		return false
	}
	handle := "@" + strings.ToLower(me.Username)
	return strings.Contains(strings.ToLower(msg.Text), handle) ||
		strings.Contains(strings.ToLower(msg.Caption), handle)
}

func displayName(u *tele.User) string {
	if u == nil {
		return "unknown"
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

func attachments(bot downloader, msg *tele.Message) []core.Attachment {
	file := func(f tele.File, name string) []core.Attachment {
		return []core.Attachment{&telegramFile{bot: bot, file: f, name: name}}
	}
	orDefault := func(name, def string) string {
		if name == "" {
			return def
		}
		return name
	}

	switch {
	case msg.Photo != nil:
		return file(msg.Photo.File, "photo.jpg")
	case msg.Voice != nil:
		return file(msg.Voice.File, "voice.ogg")
	case msg.Audio != nil:
		return file(msg.Audio.File, orDefault(msg.Audio.FileName, "audio.mp3"))
	case msg.Video != nil:
		return file(msg.Video.File, orDefault(msg.Video.FileName, "video.mp4"))
	case msg.Document != nil:
		return file(msg.Document.File, orDefault(msg.Document.FileName, "document"))
	default:
		return nil
	}
}
