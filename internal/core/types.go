package core

import "context"

const (
	MuseName          = "Muse"
	MuseUserAgent     = "Muse-Bot/0.1"
	MuseRepositoryURL = "https://github.com/sandevgo/muse"
	MuseVersion       = "0.1.0"
)

// Turn is one line of conversation kept in the rolling window.
type Turn struct {
	Author     string
	Text       string
	SequenceID string
}

func (t Turn) String() string {
	return t.Author + ": " + t.Text
}

// MemoryRecord is an operator-curated fact bound to a trigger phrase.
type MemoryRecord struct {
	MemoryID      string `json:"memory_id" yaml:"memory_id"`
	SpecialPhrase string `json:"special_phrase" yaml:"special_phrase"`
	Memory        string `json:"memory" yaml:"memory"`
	Timestamp     int64  `json:"timestamp" yaml:"timestamp"`
}

type MatchResult struct {
	IsSimilar     bool   `json:"is_similar"`
	SimilarPhrase string `json:"similar_phrase,omitempty"`
}

// Attachment is a file that arrived with a message. The gateway owns downloading it.
type Attachment interface {
	Name() string
	Save(ctx context.Context, path string) error
}

// Event is an inbound message normalized by a transport.
type Event struct {
	MessageID      string
	AuthorID       string
	AuthorName     string
	ConversationID string
	GuildID        string
	Text           string
	Attachments    []Attachment

	IsCommand bool
	FromSelf  bool
	Mentioned bool
}

// Settings are the reply flags an operator may change while the bot runs.
// Chances for freewill are percentages; VoiceChance is a probability.
type Settings struct {
	VoiceMessages     bool     `json:"voice_messages"`
	VoiceChance       float64  `json:"voice_chance"`
	VoiceMessageConvo bool     `json:"voice_message_convo"`
	TextFrequency     float64  `json:"freewill_text_frequency"`
	KeywordChance     float64  `json:"freewill_keyword_chance"`
	Keywords          []string `json:"freewill_keywords"`
}
