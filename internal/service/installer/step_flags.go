package installer

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type flag struct {
	envKey string
	label  string
	on     bool
}

// VoiceFlagsStep toggles the voice reply switches. It is skipped without
// an ElevenLabs key.
type VoiceFlagsStep struct {
	flags  []flag
	cursor int
}

func NewVoiceFlagsStep() Step {
	return &VoiceFlagsStep{flags: []flag{
		{envKey: "VOICE_MESSAGES", label: "Reply with voice messages", on: true},
		{envKey: "VOICE_MESSAGE_CONVO", label: "Answer voice notes with a voice note", on: true},
	}}
}

func (s *VoiceFlagsStep) Init() tea.Cmd {
	return next
}

func (s *VoiceFlagsStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if !state.VoiceConfigured() {
		return nil, nil
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	switch k.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.flags)-1 {
			s.cursor++
		}
	case " ", "x":
		s.flags[s.cursor].on = !s.flags[s.cursor].on
	case "enter":
		for _, f := range s.flags {
			state.EnvVars[f.envKey] = strconv.FormatBool(f.on)
		}
		if state.EnvVars["VOICE_MESSAGES"] == "true" && state.EnvVars["VOICE_CHANCE"] == "" {
			state.EnvVars["VOICE_CHANCE"] = "0.2"
		}
		return nil, nil
	}
	return s, nil
}

func (s *VoiceFlagsStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString("Voice replies:\n\n")
	for i, f := range s.flags {
		box := "[ ]"
		if f.on {
			box = "[x]"
		}
		line := box + " " + f.label
		if s.cursor == i {
			b.WriteString(selStyle.Render("❯ "+line) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + hintStyle.Render("(space to toggle, enter to confirm)") + "\n")
	return b.String()
}
