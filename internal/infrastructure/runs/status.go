// Package runs is the boundary with the external test runner: whether a run
// has recorded its execution trace, and asking Gradle to execute runs.
package runs

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// TraceStatus treats a run as completed once its trace file exists as a
// non-empty regular file. The trace contents are never read.
type TraceStatus struct{}

func (TraceStatus) Completed(ctx context.Context, run domain.Run) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if run.TraceFile == "" {
		return false, nil
	}
	info, err := os.Stat(run.TraceFile)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}
