package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
	"github.com/felixgeelhaar/mrcov/internal/pathutil"
)

// DescriptorWriter writes one coverage-tool descriptor per job into Dir.
// Descriptors of jobs the plan no longer discovers are removed; those of
// jobs filtered out of the plan are left alone.
type DescriptorWriter struct {
	Dir    string
	Format application.OutputFormat
}

func (w *DescriptorWriter) ext() string {
	if w.Format == application.OutputJSON {
		return ".json"
	}
	return ".yaml"
}

// Path returns the descriptor path for a job.
func (w *DescriptorWriter) Path(job string) string {
	return filepath.Join(w.Dir, job+w.ext())
}

func (w *DescriptorWriter) Register(ctx context.Context, plan application.Plan) error {
	l, err := lock(w.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = l.release() }()

	if err := os.MkdirAll(w.Dir, 0o750); err != nil {
		return err
	}

	known := plan.Known()
	keep := make(map[string]struct{}, len(known))
	for _, name := range known {
		keep[filepath.Base(w.Path(name))] = struct{}{}
	}
	for _, job := range plan.Jobs {
		if !pathutil.IsPathSafe(job.Name) || strings.ContainsAny(job.Name, `/\`) {
			return fmt.Errorf("job name %q is not a valid file name", job.Name)
		}
		data, err := w.encode(NewDescriptor(job))
		if err != nil {
			return fmt.Errorf("encode descriptor %s: %w", job.Name, err)
		}
		path := w.Path(job.Name)
		if err := writeAtomic(path, data); err != nil {
			return err
		}
	}
	removed, err := w.prune(keep)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("wrote job descriptors", "dir", w.Dir, "jobs", len(plan.Jobs), "removed", removed)
	return nil
}

// Load reads the descriptor of a job.
func (w *DescriptorWriter) Load(job string) (Descriptor, error) {
	data, err := os.ReadFile(w.Path(job))
	if err != nil {
		return Descriptor{}, err
	}
	var d Descriptor
	if w.Format == application.OutputJSON {
		err = json.Unmarshal(data, &d)
	} else {
		err = yaml.Unmarshal(data, &d)
	}
	return d, err
}

func (w *DescriptorWriter) encode(d Descriptor) ([]byte, error) {
	if w.Format == application.OutputJSON {
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(d)
}

func (w *DescriptorWriter) prune(keep map[string]struct{}) (int, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, w.ext()) {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(w.Dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
