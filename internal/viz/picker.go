package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Entry is one scenario offered by the picker.
type Entry struct {
	Name        string
	Description string
	Presets     []string
}

// LaunchFunc builds the live model for a scenario and preset.
type LaunchFunc func(scenario, preset string) (Model, error)

const (
	pickScenario = iota
	pickPreset
	pickLive
)

// Picker lets the user choose a scenario and preset before handing over to
// the live model.
type Picker struct {
	entries []Entry
	launch  LaunchFunc
	styles  Styles

	stage  int
	cursor int
	chosen int
	err    error
	live   Model
}

func NewPicker(entries []Entry, launch LaunchFunc) Picker {
	return Picker{entries: entries, launch: launch, styles: NewStyles(Themes[0])}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.stage == pickLive {
		next, cmd := p.live.Update(msg)
		p.live = next.(Model)
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < p.options()-1 {
			p.cursor++
		}
	case "esc":
		if p.stage == pickPreset {
			p.stage, p.cursor = pickScenario, p.chosen
		}
	case "enter", " ":
		return p.choose()
	}
	return p, nil
}

func (p Picker) options() int {
	if p.stage == pickPreset {
		return len(p.entries[p.chosen].Presets)
	}
	return len(p.entries)
}

func (p Picker) choose() (tea.Model, tea.Cmd) {
	if p.options() == 0 {
		return p, nil
	}
	if p.stage == pickScenario {
		p.chosen, p.cursor, p.stage = p.cursor, 0, pickPreset
		if len(p.entries[p.chosen].Presets) > 0 {
			return p, nil
		}
	}

	e := p.entries[p.chosen]
	preset := ""
	if len(e.Presets) > 0 {
		preset = e.Presets[p.cursor]
	}
	live, err := p.launch(e.Name, preset)
	if err != nil {
		p.err = err
		return p, nil
	}
	p.live, p.stage, p.err = live, pickLive, nil
	return p, p.live.Init()
}

func (p Picker) View() string {
	if p.stage == pickLive {
		return p.live.View()
	}

	st := p.styles
	var b strings.Builder
	b.WriteString("\n\n    " + st.Header.Render("GRAPPLE") + "\n")

	var items, descs []string
	if p.stage == pickScenario {
		b.WriteString("    " + st.Subtle.Render("choose a scenario") + "\n\n")
		for _, e := range p.entries {
			items = append(items, e.Name)
			descs = append(descs, e.Description)
		}
	} else {
		e := p.entries[p.chosen]
		b.WriteString("    " + st.Subtle.Render(e.Name+": choose a preset") + "\n\n")
		items = e.Presets
		descs = make([]string, len(items))
	}

	for i, item := range items {
		line := fmt.Sprintf("%-16s", item)
		if i == p.cursor {
			b.WriteString("    " + st.Active.Render("▸ "+line) + " " + st.Value.Render(descs[i]) + "\n")
		} else {
			b.WriteString("      " + st.Subtle.Render(line) + " " + st.Subtle.Render(descs[i]) + "\n")
		}
	}

	if p.err != nil {
		b.WriteString("\n    " + st.Failed.Render(p.err.Error()) + "\n")
	}
	hint := "j/k navigate  enter select  q quit"
	if p.stage == pickPreset {
		hint = "j/k navigate  enter run  esc back  q quit"
	}
	b.WriteString("\n    " + st.KeyHint.Render(hint) + "\n")
	return b.String()
}

// RunPicker starts the picker full screen.
func RunPicker(p Picker) error {
	_, err := tea.NewProgram(p, tea.WithAltScreen()).Run()
	return err
}
