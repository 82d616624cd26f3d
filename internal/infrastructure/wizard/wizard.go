package wizard

import (
	"fmt"
	"io"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/mrcov/internal/application"
)

type (
	wizardState int

	initWizardModel struct {
		state     wizardState
		cfg       application.Config
		choices   []string // Fixed run candidates: auto, none, then every non-common run
		cursor    int
		format    application.OutputFormat
		confirmed bool
		aborted   bool
	}
)

const (
	stateIntro wizardState = iota
	stateEdit
	stateConfirm
)

// Run shows the detected build and lets the user choose the fixed run and
// the descriptor format before the configuration is written.
func Run(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	return runInitWizard(cfg, stdout, stdin)
}

func runInitWizard(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	model := newInitWizardModel(cfg)
	program := tea.NewProgram(model, tea.WithInput(stdin), tea.WithOutput(stdout))
	res, err := program.Run()
	if err != nil {
		return cfg, false, err
	}
	finalModel, ok := res.(*initWizardModel)
	if !ok {
		return cfg, false, fmt.Errorf("unexpected wizard state")
	}
	if finalModel.aborted || !finalModel.confirmed {
		return cfg, false, nil
	}
	return finalModel.toConfig(), true, nil
}

func newInitWizardModel(cfg application.Config) *initWizardModel {
	common := cfg.CommonRun
	if common == "" {
		common = application.DefaultCommonRun
	}
	choices := []string{application.FixedRunAuto, application.FixedRunNone}
	for _, run := range cfg.Runs {
		if run.Name != common {
			choices = append(choices, run.Name)
		}
	}
	cursor := 0
	for i, c := range choices {
		if c == cfg.FixedRun {
			cursor = i
		}
	}
	format := cfg.Report.Format
	if format == "" {
		format = application.OutputYAML
	}
	return &initWizardModel{
		state:   stateIntro,
		cfg:     cfg,
		choices: choices,
		cursor:  cursor,
		format:  format,
	}
}

func (m *initWizardModel) Init() tea.Cmd {
	return nil
}

func (m *initWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			switch m.state {
			case stateIntro:
				m.state = stateEdit
			case stateEdit:
				m.state = stateConfirm
			case stateConfirm:
				m.confirmed = true
				return m, tea.Quit
			}
		case "esc":
			if m.state == stateConfirm {
				m.state = stateEdit
			}
		case "up":
			if m.state == stateEdit {
				m.moveCursor(-1)
			}
		case "down":
			if m.state == stateEdit {
				m.moveCursor(1)
			}
		case "f":
			if m.state == stateEdit {
				m.toggleFormat()
			}
		}
	}
	return m, nil
}

func (m *initWizardModel) View() string {
	switch m.state {
	case stateIntro:
		return m.viewIntro()
	case stateEdit:
		return m.viewEdit()
	case stateConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

func (m *initWizardModel) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if last := len(m.choices) - 1; m.cursor > last {
		m.cursor = last
	}
}

func (m *initWizardModel) toggleFormat() {
	if m.format == application.OutputJSON {
		m.format = application.OutputYAML
		return
	}
	m.format = application.OutputJSON
}

func (m *initWizardModel) selected() string {
	return m.choices[m.cursor]
}

func (m *initWizardModel) variantIDs() []string {
	ids := make([]string, 0, len(m.cfg.Overrides))
	for id := range m.cfg.Overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *initWizardModel) viewIntro() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nmrcov init wizard\n\n")
	fmt.Fprintf(&b, "mrcov detected %d runs and %d release override(s).\n", len(m.cfg.Runs), len(m.cfg.Overrides))
	for _, id := range m.variantIDs() {
		fmt.Fprintf(&b, "  - %s\n", id)
	}
	fmt.Fprintf(&b, "\nPress Enter to continue, or Ctrl+C to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewEdit() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nChoose the fixed run\n\n")
	fmt.Fprintf(&b, "Its trace data is merged into every report job.\n")
	fmt.Fprintf(&b, "Use ↑/↓ to move, f to switch descriptor format.\n\n")
	for idx, choice := range m.choices {
		prefix := "  "
		if m.cursor == idx {
			prefix = "> "
		}
		hint := ""
		switch choice {
		case application.FixedRunAuto:
			hint = " (run of the lowest release)"
		case application.FixedRunNone:
			hint = " (no fixed run)"
		}
		fmt.Fprintf(&b, "%s%s%s\n", prefix, choice, hint)
	}
	fmt.Fprintf(&b, "\nDescriptor format: %s\n", m.format)
	fmt.Fprintf(&b, "\nEnter to continue, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewConfirm() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReady to write configuration\n\n")
	fmt.Fprintf(&b, "Runs:\n")
	for _, run := range m.cfg.Runs {
		fmt.Fprintf(&b, "  - %s\n", run.Name)
	}
	fmt.Fprintf(&b, "\nFixed run: %s\n", m.selected())
	fmt.Fprintf(&b, "Descriptor format: %s\n", m.format)
	fmt.Fprintf(&b, "\nPress Enter to save, Esc to go back, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) toConfig() application.Config {
	cfg := m.cfg
	cfg.FixedRun = m.selected()
	if cfg.FixedRun == application.FixedRunAuto {
		cfg.FixedRun = ""
	}
	cfg.Report.Format = m.format
	return cfg
}
