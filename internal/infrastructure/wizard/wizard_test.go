package wizard

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/mrcov/internal/application"
)

func TestInitWizardChoices(t *testing.T) {
	model := newInitWizardModel(detectedConfig())
	want := []string{"auto", "none", "java11Test", "java17Test"}
	if strings.Join(model.choices, ",") != strings.Join(want, ",") {
		t.Fatalf("expected choices %v, got %v", want, model.choices)
	}
	if model.selected() != "auto" {
		t.Fatalf("expected auto preselected, got %s", model.selected())
	}
}

func TestInitWizardPreselectsConfiguredRun(t *testing.T) {
	cfg := detectedConfig()
	cfg.FixedRun = "java17Test"
	model := newInitWizardModel(cfg)
	if model.selected() != "java17Test" {
		t.Fatalf("expected java17Test preselected, got %s", model.selected())
	}
}

func TestInitWizardMoveCursor(t *testing.T) {
	model := newInitWizardModel(detectedConfig())
	model.moveCursor(1)
	if model.cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", model.cursor)
	}
	model.moveCursor(-5)
	if model.cursor != 0 {
		t.Fatalf("expected cursor 0, got %d", model.cursor)
	}
	model.moveCursor(len(model.choices) + 5)
	if model.cursor != len(model.choices)-1 {
		t.Fatalf("expected cursor at max %d, got %d", len(model.choices)-1, model.cursor)
	}
}

func TestInitWizardConfigOutput(t *testing.T) {
	model := newInitWizardModel(detectedConfig())
	model.cursor = 3
	model.toggleFormat()

	cfg := model.toConfig()
	if cfg.FixedRun != "java17Test" {
		t.Fatalf("expected fixed run java17Test, got %q", cfg.FixedRun)
	}
	if cfg.Report.Format != application.OutputJSON {
		t.Fatalf("expected json descriptors, got %q", cfg.Report.Format)
	}
	if len(cfg.Runs) != 3 || len(cfg.Overrides) != 2 {
		t.Fatalf("expected detected runs and overrides preserved")
	}

	model.cursor = 0
	if got := model.toConfig().FixedRun; got != "" {
		t.Fatalf("auto should leave the fixed run unset, got %q", got)
	}
}

func TestInitWizardUpdateTransitions(t *testing.T) {
	model := newInitWizardModel(detectedConfig())
	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if model.state != stateEdit {
		t.Fatalf("expected edit state, got %d", model.state)
	}
	model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if model.selected() != "none" || model.format != application.OutputJSON {
		t.Fatalf("unexpected selection %s/%s", model.selected(), model.format)
	}
	model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if model.state != stateConfirm {
		t.Fatalf("expected confirm state, got %d", model.state)
	}
	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.state != stateEdit {
		t.Fatalf("expected edit state on esc, got %d", model.state)
	}
}

func TestInitWizardViews(t *testing.T) {
	model := newInitWizardModel(detectedConfig())
	if view := model.View(); !strings.Contains(view, "3 runs and 2 release override(s)") || !strings.Contains(view, "java11") {
		t.Fatalf("unexpected intro view:\n%s", view)
	}
	model.state = stateEdit
	if view := model.View(); !strings.Contains(view, "> auto (run of the lowest release)") {
		t.Fatalf("unexpected edit view:\n%s", view)
	}
	model.state = stateConfirm
	if view := model.View(); !strings.Contains(view, "Fixed run: auto") || !strings.Contains(view, "Descriptor format: yaml") {
		t.Fatalf("unexpected confirm view:\n%s", view)
	}
}

func TestRunInitWizardCompletes(t *testing.T) {
	var out bytes.Buffer
	stdin := strings.NewReader("\r\r\r")
	cfg, confirmed, err := runInitWizard(detectedConfig(), &out, stdin)
	if err != nil {
		t.Fatalf("wizard error: %v", err)
	}
	if !confirmed {
		t.Fatalf("expected wizard to confirm")
	}
	if cfg.FixedRun != "" || cfg.Report.Format != application.OutputYAML {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func detectedConfig() application.Config {
	return application.Config{
		Version:   1,
		CommonRun: "test",
		Baseline:  application.RootsConfig{Sources: []string{"src/main/java"}, Outputs: []string{"build/classes/java/main"}},
		Runs:      []application.RunConfig{{Name: "test"}, {Name: "java11Test"}, {Name: "java17Test"}},
		Overrides: map[string]application.RootsConfig{
			"java11": {Sources: []string{"src/main/java11"}},
			"java17": {Sources: []string{"src/main/java17"}},
		},
	}
}
