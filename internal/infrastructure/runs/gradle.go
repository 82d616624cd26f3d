package runs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// ErrNotGradle is returned when the project has no Gradle build files.
var ErrNotGradle = errors.New("not a gradle project")

var gradleMarkers = []string{"build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts"}

// GradleExecutor runs test tasks through the project's Gradle build. Runs
// are passed as task names in the given order in a single invocation.
type GradleExecutor struct {
	Dir     string
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	// Exec overrides command execution (for testing).
	Exec func(ctx context.Context, dir string, cmd string, args []string) error
}

// IsGradleProject reports whether dir holds Gradle build files.
func IsGradleProject(dir string) bool {
	for _, marker := range gradleMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

func (g *GradleExecutor) Execute(ctx context.Context, runs []domain.Run) error {
	if len(runs) == 0 {
		return nil
	}
	dir := g.Dir
	if dir == "" {
		dir = "."
	}
	if !IsGradleProject(dir) {
		return fmt.Errorf("%w: %s", ErrNotGradle, dir)
	}

	args := g.args(runs)
	cmd := gradleCommand(dir)
	ctxlog.FromContext(ctx).Info("executing runs", "cmd", cmd, "args", args)

	execFn := g.Exec
	if execFn == nil {
		execFn = g.run
	}
	if err := execFn(ctx, dir, cmd, args); err != nil {
		return fmt.Errorf("gradle failed: %w", err)
	}
	return nil
}

func (g *GradleExecutor) args(runs []domain.Run) []string {
	args := make([]string, 0, len(runs)+1)
	for _, r := range runs {
		args = append(args, string(r.Name))
	}
	if !g.Verbose {
		args = append(args, "-q")
	}
	return args
}

// gradleCommand prefers the wrapper checked into the project.
func gradleCommand(dir string) string {
	if _, err := os.Stat(filepath.Join(dir, "gradlew")); err == nil {
		return "./gradlew"
	}
	return "gradle"
}

func (g *GradleExecutor) run(ctx context.Context, dir string, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = g.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = g.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}
