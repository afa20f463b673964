package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type choice struct {
	value string
	desc  string
}

// ChoiceStep picks one value from a fixed list.
type ChoiceStep struct {
	envKey  string
	title   string
	choices []choice
	cursor  int
}

func NewMemoryBackendStep() Step {
	return &ChoiceStep{
		envKey: "MEMORY_BACKEND",
		title:  "Where should memories be stored?",
		choices: []choice{
			{value: "json", desc: "one JSON file per bot, easy to edit by hand"},
			{value: "sqlite", desc: "a SQLite database, better for many guilds"},
		},
	}
}

func (s *ChoiceStep) Init() tea.Cmd {
	return nil
}

func (s *ChoiceStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
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
		if s.cursor < len(s.choices)-1 {
			s.cursor++
		}
	case "enter":
		state.EnvVars[s.envKey] = s.choices[s.cursor].value
		return nil, nil
	}
	return s, nil
}

func (s *ChoiceStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString(s.title + "\n\n")
	for i, c := range s.choices {
		line := fmt.Sprintf("%s  %s", c.value, hintStyle.Render(c.desc))
		if s.cursor == i {
			b.WriteString(selStyle.Render("❯ "+line) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + hintStyle.Render("(↑/↓ to move, enter to select)") + "\n")
	return b.String()
}
