// Package attachment classifies inbound files and moves them through the model's file service.
package attachment

import (
	"path/filepath"
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	KindMedia
	KindAudio
	KindVoiceNote
)

func (k Kind) String() string {
	switch k {
	case KindMedia:
		return "media"
	case KindAudio:
		return "audio"
	case KindVoiceNote:
		return "voice_note"
	default:
		return "none"
	}
}

var kinds = map[string]Kind{
	".png":  KindMedia,
	".jpg":  KindMedia,
	".jpeg": KindMedia,
	".webp": KindMedia,
	".heic": KindMedia,
	".heif": KindMedia,
	".mp4":  KindMedia,
	".mpeg": KindMedia,
	".mov":  KindMedia,
	".wmv":  KindMedia,

	".wav":  KindAudio,
	".mp3":  KindAudio,
	".aiff": KindAudio,
	".aac":  KindAudio,
	".flac": KindAudio,

	".ogg": KindVoiceNote,
	".oga": KindVoiceNote,
}

// Classify picks the attachment branch from the file extension, case-insensitively.
func Classify(name string) Kind {
	return kinds[strings.ToLower(filepath.Ext(name))]
}
