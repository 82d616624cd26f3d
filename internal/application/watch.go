package application

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
)

// Watch re-plans and re-registers the report jobs whenever a file under a
// configured root changes. Every pass takes fresh file-tree snapshots and
// re-reads the registration, so roots declared or created later are
// watched from the next pass on.
func (s *Service) Watch(ctx context.Context, opts WatchOptions, watcher FileWatcher, callback WatchCallback) error {
	reg, err := s.Registration(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	watched := make(map[string]bool)
	existing, err := watchRoots(ctx, reg, watcher, watched)
	if err != nil {
		return err
	}
	if existing == 0 {
		return fmt.Errorf("failed to watch directory: none of the configured roots exist")
	}

	reportOpts := ReportOptions{ConfigPath: opts.ConfigPath, Jobs: opts.Jobs}
	pass := 0
	runPass := func() {
		pass++
		result, runErr := s.Report(ctx, reportOpts)
		if callback != nil {
			callback(pass, result, runErr)
		}
		reg, err := s.Registration(ctx, opts.ConfigPath)
		if err != nil {
			return
		}
		if _, err := watchRoots(ctx, reg, watcher, watched); err != nil {
			ctxlog.FromContext(ctx).Warn("cannot watch roots", "error", err)
		}
	}

	runPass()
	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			runPass()
		}
	}
}

// watchRoots applies the registration's include filter and watches every
// root not watched yet. Missing roots are handed to the watcher too, which
// picks them up once they are created; they are retried on later calls.
func watchRoots(ctx context.Context, reg Registration, watcher FileWatcher, watched map[string]bool) (int, error) {
	log := ctxlog.FromContext(ctx)
	watcher.SetInclude(reg.Include)

	existing := 0
	for _, dir := range reg.Roots() {
		info, statErr := os.Stat(dir)
		exists := statErr == nil && info.IsDir()
		if exists {
			existing++
		}
		if watched[dir] {
			continue
		}
		if err := watcher.WatchDir(dir); err != nil {
			return existing, fmt.Errorf("failed to watch directory: %w", err)
		}
		if exists {
			watched[dir] = true
		} else {
			log.Debug("waiting for missing root", "dir", dir)
		}
	}
	return existing, nil
}
