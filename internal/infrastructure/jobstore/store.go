package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/mrcov/internal/application"
	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
)

// RegistryFile is the registry's name inside the report dir.
const RegistryFile = "jobs.json"

// FileStore keeps the job registry in a JSON file. A registration replaces
// the records of its jobs and of jobs no longer discovered; records of
// jobs filtered out of the plan are kept.
type FileStore struct {
	Path string
}

// Load reads the registry. A missing file yields an empty registry.
func (s *FileStore) Load() (Registry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Registry{Version: registryVersion}, nil
		}
		return Registry{}, err
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return reg, nil
}

// Register merges plan into the stored registry under an exclusive lock.
func (s *FileStore) Register(ctx context.Context, plan application.Plan) error {
	log := ctxlog.FromContext(ctx)
	next, err := NewRegistry(plan)
	if err != nil {
		return err
	}

	l, err := lock(s.Path)
	if err != nil {
		return err
	}
	defer func() { _ = l.release() }()

	prev, err := s.Load()
	if err != nil {
		log.Warn("discarding unreadable job registry", "path", s.Path, "error", err)
		prev = Registry{Version: registryVersion}
	}
	reg, err := prev.Merge(next, plan)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(s.Path, data); err != nil {
		return err
	}
	log.Debug("wrote job registry", "path", s.Path, "jobs", len(reg.Jobs), "registered", len(next.Jobs))
	return nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Sinks registers a plan with every sink in order.
type Sinks []application.JobSink

func (s Sinks) Register(ctx context.Context, plan application.Plan) error {
	for _, sink := range s {
		if err := sink.Register(ctx, plan); err != nil {
			return err
		}
	}
	return nil
}

// DescriptorDir is the descriptor directory inside the report dir.
const DescriptorDir = "jobs"

// ReportDirSink writes the registry and the descriptors under the report
// dir the plan was registered with.
type ReportDirSink struct{}

func (ReportDirSink) Register(ctx context.Context, plan application.Plan) error {
	if plan.ReportDir == "" {
		return errors.New("plan has no report dir")
	}
	sinks := Sinks{
		&FileStore{Path: filepath.Join(plan.ReportDir, RegistryFile)},
		&DescriptorWriter{Dir: filepath.Join(plan.ReportDir, DescriptorDir), Format: plan.DescriptorFormat},
	}
	return sinks.Register(ctx, plan)
}
