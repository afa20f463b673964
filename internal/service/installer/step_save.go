package installer

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

// SaveEnvStep renders the answers and writes runtimePath/.env.
type SaveEnvStep struct {
	runtimePath string
	force       bool
	err         error
	saved       bool
}

func NewSaveEnvStep(runtimePath string, force bool) Step {
	return &SaveEnvStep{runtimePath: runtimePath, force: force}
}

func (s *SaveEnvStep) Init() tea.Cmd {
	return next
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if s.saved {
		return nil, nil
	}
	if s.err != nil {
		return s, nil
	}

	path, err := s.save(state)
	if err != nil {
		s.err = err
		return s, nil
	}

	state.EnvPath = path
	s.saved = true
	return nil, nil
}

func (s *SaveEnvStep) save(state *InstallState) (string, error) {
	envPath := filepath.Join(s.runtimePath, ".env")
	if _, err := os.Stat(envPath); err == nil && !s.force {
		return "", fmt.Errorf(".env file already exists at %s, rerun with --force to replace it", envPath)
	}

	state.EnvVars["MUSE_RUNTIME_PATH"] = s.runtimePath
	content, err := state.Render()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(s.runtimePath, "data"), 0755); err != nil {
		return "", fmt.Errorf("failed to create runtime directory: %w", err)
	}
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		return "", err
	}
	return envPath, nil
}

func (s *SaveEnvStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.saved {
		return "Configuration saved successfully!\n"
	}
	return "Saving configuration...\n"
}
