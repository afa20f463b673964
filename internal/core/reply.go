package core

// Reply is what the orchestrator hands back to a transport.
// A nil Reply means the event was not answered.
type Reply interface {
	isReply()
	Content() string
}

type TextReply struct {
	Text   string
	Chunks []string
}

func (TextReply) isReply() {}

func (r TextReply) Content() string { return r.Text }

// VoiceNote is a synthesized audio file ready to be sent as a voice message.
type VoiceNote struct {
	Path     string
	Duration int // seconds, rounded
	Waveform string
}

type VoiceReply struct {
	Text string
	Note VoiceNote
}

func (VoiceReply) isReply() {}

func (r VoiceReply) Content() string { return r.Text }
