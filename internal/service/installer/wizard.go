// Package installer is the terminal wizard behind `muse setup`.
package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("2"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Step is one screen of the wizard. Update returns nil once the step is done.
type Step interface {
	Init() tea.Cmd
	Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd)
	View(state *InstallState) string
}

type nextMsg struct{}

func next() tea.Msg { return nextMsg{} }

func getSteps(runtimePath string, force bool) []Step {
	return []Step{
		NewGeminiKeyStep(),
		NewTelegramTokenStep(),
		NewTelegramOwnerStep(),
		NewElevenLabsKeyStep(),
		NewElevenLabsVoiceStep(),
		NewVoiceFlagsStep(),
		NewMemoryBackendStep(),
		NewControlTokenStep(),
		NewSaveEnvStep(runtimePath, force),
	}
}

type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
}

func newModel(steps []Step) model {
	return model{steps: steps, state: NewInstallState()}
}

func (m model) Init() tea.Cmd {
	if len(m.steps) > 0 {
		return m.steps[0].Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	step, cmd := m.steps[m.currentStep].Update(msg, m.state)
	if step == nil {
		m.currentStep++
		if m.currentStep >= len(m.steps) {
			return m, tea.Quit
		}
		return m, m.steps[m.currentStep].Init()
	}

	m.steps[m.currentStep] = step
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return "Setup cancelled.\n"
	}
	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}
	progress := hintStyle.Render(fmt.Sprintf("step %d of %d", m.currentStep+1, len(m.steps)))
	return titleStyle.Render("Setting up Muse") + "  " + progress + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard asks for the settings and writes runtimePath/.env.
// An existing file is only replaced when force is set.
func RunWizard(runtimePath string, force bool) (*InstallState, error) {
	p := tea.NewProgram(newModel(getSteps(runtimePath, force)), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := m.(model)
	if final.quitting {
		return nil, fmt.Errorf("muse setup interrupted")
	}
	return final.state, nil
}
