package installer

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/internal/config"
	menv "github.com/sandevgo/muse/pkg/env"
)

// InstallState collects the answers as environment variables.
type InstallState struct {
	EnvVars map[string]string
	EnvPath string
}

func NewInstallState() *InstallState {
	return &InstallState{EnvVars: make(map[string]string)}
}

func (s *InstallState) VoiceConfigured() bool {
	return s.EnvVars["ELEVENLABS_API_KEY"] != ""
}

// Render resolves the answers against the config defaults and renders the
// .env file. Missing required answers are reported as errors.
func (s *InstallState) Render() (string, error) {
	groups := []struct {
		name string
		cfg  any
	}{
		{"App", &config.AppConfig{}},
		{"Gemini", &config.GeminiConfig{}},
		{"Telegram", &config.TelegramConfig{}},
		{"ElevenLabs", &config.ElevenLabsConfig{}},
		{"Control", &config.ControlConfig{}},
	}

	var b strings.Builder
	for _, g := range groups {
		if err := env.ParseWithOptions(g.cfg, env.Options{Environment: s.EnvVars}); err != nil {
			return "", fmt.Errorf("%s settings: %w", g.name, err)
		}
		out, err := menv.MarshalEnv(g.cfg, false)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "# %s\n%s\n", g.name, out)
	}
	return b.String(), nil
}
