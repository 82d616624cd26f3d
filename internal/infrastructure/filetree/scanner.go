// Package filetree enumerates the files below the directories of a FileRoot.
package filetree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// Scanner walks every directory of a FileRoot. Missing directories
// contribute no files, like Gradle's source directories.
type Scanner struct {
	// Include selects the enumerated files. The zero value includes every
	// regular file.
	Include domain.IncludeFilter
}

// NewScanner creates a Scanner after validating the include patterns.
func NewScanner(include ...string) (*Scanner, error) {
	filter, err := domain.NewIncludeFilter(include...)
	if err != nil {
		return nil, err
	}
	return &Scanner{Include: filter}, nil
}

func (s *Scanner) Scan(ctx context.Context, root domain.FileRoot) (domain.TreeSnapshot, error) {
	snap := domain.TreeSnapshot{Root: root}
	for _, dir := range root.Dirs() {
		files, err := s.scanDir(ctx, dir)
		if err != nil {
			return domain.TreeSnapshot{}, err
		}
		snap.Files = append(snap.Files, files...)
	}
	return snap, nil
}

func (s *Scanner) scanDir(ctx context.Context, dir string) ([]domain.TreeFile, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []domain.TreeFile
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() || !s.Include.Match(d.Name()) {
			return nil
		}
		rel, err := domain.NewRelativePath(dir, p)
		if err != nil {
			return err
		}
		files = append(files, domain.TreeFile{Dir: dir, Rel: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}
