package installer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// InputStep asks for one environment variable.
type InputStep struct {
	input    textinput.Model
	envKey   string
	title    string
	optional bool
	hint     string
	skip     func(*InstallState) bool
	validate func(string) error
	fallback func() string
	err      error
}

func newInputStep(envKey, title, placeholder string, secret bool) *InputStep {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 48
	ti.Placeholder = placeholder
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return &InputStep{input: ti, envKey: envKey, title: title}
}

func NewGeminiKeyStep() Step {
	s := newInputStep("GEMINI_API_KEY", "Gemini API Key", "AIza...", true)
	s.validate = required
	return s
}

func NewTelegramTokenStep() Step {
	s := newInputStep("TELEGRAM_TOKEN", "Telegram Bot Token", "123456789:ABCDEF...", true)
	s.validate = func(v string) error {
		if !strings.Contains(v, ":") {
			return fmt.Errorf("a bot token looks like 123456789:ABCDEF")
		}
		return nil
	}
	return s
}

func NewTelegramOwnerStep() Step {
	s := newInputStep("TELEGRAM_OWNER_ID", "Telegram User ID (owner)", "123456789", false)
	s.validate = func(v string) error {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("the owner id is a number")
		}
		return nil
	}
	return s
}

func NewElevenLabsKeyStep() Step {
	s := newInputStep("ELEVENLABS_API_KEY", "ElevenLabs API Key", "press enter to skip voice replies", true)
	s.optional = true
	return s
}

func NewElevenLabsVoiceStep() Step {
	s := newInputStep("ELEVENLABS_VOICE_ID", "ElevenLabs Voice ID", "21m00Tcm4TlvDq8ikWAM", false)
	s.validate = required
	s.skip = func(st *InstallState) bool { return !st.VoiceConfigured() }
	return s
}

func NewControlTokenStep() Step {
	s := newInputStep("CONTROL_TOKEN", "Control API token", "press enter to generate one", true)
	s.optional = true
	s.hint = "(press enter to generate one)"
	s.fallback = uuid.NewString
	return s
}

func required(v string) error {
	if v == "" {
		return fmt.Errorf("a value is required")
	}
	return nil
}

func (s *InputStep) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, next)
}

func (s *InputStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if s.skip != nil && s.skip(state) {
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "enter" {
		value := strings.TrimSpace(s.input.Value())
		if value == "" && s.fallback != nil {
			value = s.fallback()
		}
		if s.validate != nil {
			if err := s.validate(value); err != nil {
				s.err = err
				return s, nil
			}
		}
		if value != "" {
			state.EnvVars[s.envKey] = value
		}
		return nil, nil
	}
	return s, cmd
}

func (s *InputStep) View(state *InstallState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Enter your %s:\n\n%s\n\n", s.title, s.input.View())
	if s.err != nil {
		b.WriteString(errorStyle.Render(s.err.Error()) + "\n\n")
	}
	hint := s.hint
	switch {
	case hint != "":
	case s.optional:
		hint = "(optional, press enter to skip)"
	default:
		hint = "(press enter to confirm)"
	}
	b.WriteString(hintStyle.Render(hint) + "\n")
	return b.String()
}
