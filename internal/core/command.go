package core

import "context"

type CmdRouter interface {
	Execute(ctx context.Context, call CommandCall) (string, bool)
	ListCommands() []Command
}

// CommandCall carries the chat command text and where it was issued.
type CommandCall struct {
	ConversationID string
	GuildID        string
	SenderID       string
	ReplyToID      string
	Input          string
	Args           []string
	IsOwner        bool
}

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, call CommandCall) (string, error)
}
