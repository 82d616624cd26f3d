package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/mrcov/internal/application"
)

type Writer struct {
	// Verbose lists every effective file in text output.
	Verbose bool
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func (wr Writer) Write(w io.Writer, plan application.Plan, format application.OutputFormat) error {
	view, err := NewPlanView(plan)
	if err != nil {
		return err
	}
	switch format {
	case application.OutputJSON:
		return encodeJSON(w, view)
	case application.OutputYAML:
		return encodeYAML(w, view)
	case application.OutputText, "":
		return wr.writeText(w, view)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func (wr Writer) writeText(w io.Writer, view PlanView) error {
	colorize := colorEnabled(w)

	fixed := view.FixedRun
	if fixed == "" {
		fixed = "(none)"
	}
	fmt.Fprintf(w, "Common run: %s\nFixed run:  %s\n\n", view.CommonRun, fixed)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Job\tVariant\tRuns\tSources\tClasses\tStatus")
	for _, job := range view.Jobs {
		status := "OK"
		if len(job.Warnings) > 0 {
			status = "WARN"
		}
		if colorize {
			if status == "OK" {
				status = okStyle.Render(status)
			} else {
				status = warnStyle.Render(status)
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d (%d overridden)\t%d (%d overridden)\t%s\n",
			job.Name, job.Variant, strings.Join(job.Runs, ", "),
			len(job.Sources), job.OverriddenSources, len(job.Classes), job.OverriddenClasses, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if wr.Verbose {
		for _, job := range view.Jobs {
			fmt.Fprintf(w, "\n%s:\n", job.Name)
			for _, f := range append(append([]FileView(nil), job.Sources...), job.Classes...) {
				line := "  " + f.Path
				if f.Override {
					line += " (override)"
				} else if colorize {
					line = dimStyle.Render(line)
				}
				fmt.Fprintln(w, line)
			}
			for _, trace := range job.ExecutionData {
				fmt.Fprintf(w, "  exec %s\n", trace)
			}
		}
	}

	var warnings []string
	for _, job := range view.Jobs {
		for _, warn := range job.Warnings {
			warnings = append(warnings, job.Name+": "+warn)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warn := range warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
	return nil
}

// WriteVerify renders the per-job trace status.
func WriteVerify(w io.Writer, result application.VerifyResult, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		return encodeJSON(w, result)
	case application.OutputYAML:
		return encodeYAML(w, result)
	case application.OutputText, "":
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	colorize := colorEnabled(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Job\tStatus\tMissing")
	for _, job := range result.Jobs {
		status, missing := "READY", "-"
		if !job.Ready {
			status = "MISSING"
			names := make([]string, 0, len(job.Missing))
			for _, ref := range job.Missing {
				names = append(names, string(ref))
			}
			missing = strings.Join(names, ", ")
		}
		if colorize {
			if job.Ready {
				status = okStyle.Render(status)
			} else {
				status = failStyle.Render(status)
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", job.Job, status, missing)
	}
	return tw.Flush()
}

// WriteResult renders the outcome of a registration as JSON or YAML.
func WriteResult(w io.Writer, result application.ReportResult, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		return encodeJSON(w, result)
	case application.OutputYAML:
		return encodeYAML(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
