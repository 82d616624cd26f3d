package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FileRoot is an ordered sequence of directories that together form one
// logical source or output location. It is immutable.
type FileRoot struct {
	dirs []string
}

// NewFileRoot creates a FileRoot. Directories are cleaned, blank entries are
// dropped and repeated directories keep their first position.
func NewFileRoot(dirs ...string) FileRoot {
	cleaned := make([]string, 0, len(dirs))
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		c := filepath.Clean(dir)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cleaned = append(cleaned, c)
	}
	return FileRoot{dirs: cleaned}
}

// Dirs returns a copy of the directories in declaration order.
func (r FileRoot) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// IsEmpty returns true if the root has no directories.
func (r FileRoot) IsEmpty() bool {
	return len(r.dirs) == 0
}

// Equal reports whether two roots list the same directories in the same order.
func (r FileRoot) Equal(other FileRoot) bool {
	if len(r.dirs) != len(other.dirs) {
		return false
	}
	for i := range r.dirs {
		if r.dirs[i] != other.dirs[i] {
			return false
		}
	}
	return true
}

func (r FileRoot) String() string {
	return "[" + strings.Join(r.dirs, ", ") + "]"
}

// Key identifies the root by its directories. Unlike String it cannot
// collide for directory names holding separators.
func (r FileRoot) Key() string {
	return strings.Join(r.dirs, "\x00")
}

// RelativePath is a slash-separated path relative to the directory that
// holds the file. Equal RelativePaths in a baseline and an override root
// name the same logical file.
type RelativePath string

// NewRelativePath computes the path of target relative to dir.
func NewRelativePath(dir, target string) (RelativePath, error) {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is not inside %s", target, dir)
	}
	return RelativePath(rel), nil
}

func (p RelativePath) String() string {
	return string(p)
}

// Stem strips the extension and any nested-class suffix, so that
// "a/B.java" and "a/B$Inner.class" share the stem "a/B".
func (p RelativePath) Stem() string {
	s := string(p)
	s = strings.TrimSuffix(s, path.Ext(s))
	dir, base := path.Split(s)
	if i := strings.IndexByte(base, '$'); i > 0 {
		base = base[:i]
	}
	return dir + base
}

// TreeFile is one enumerated file: the directory of its FileRoot it was found
// in, plus its path relative to that directory.
type TreeFile struct {
	Dir string
	Rel RelativePath
}

// Path returns the file's full path.
func (f TreeFile) Path() string {
	return filepath.Join(f.Dir, filepath.FromSlash(string(f.Rel)))
}

// TreeSnapshot holds the files enumerated from a FileRoot at one point in time.
type TreeSnapshot struct {
	Root  FileRoot
	Files []TreeFile
}

// Len returns the number of files in the snapshot.
func (s TreeSnapshot) Len() int {
	return len(s.Files)
}

func (s TreeSnapshot) index() (map[RelativePath]TreeFile, error) {
	idx := make(map[RelativePath]TreeFile, len(s.Files))
	for _, f := range s.Files {
		if prev, ok := idx[f.Rel]; ok {
			return nil, &AmbiguousPathError{Path: f.Rel, First: prev.Path(), Second: f.Path()}
		}
		idx[f.Rel] = f
	}
	return idx, nil
}

// EffectiveFile is a member of an EffectiveFileSet.
type EffectiveFile struct {
	TreeFile
	Override bool
}

// EffectiveFileSet is the result of overlaying an override tree on a
// baseline tree. Entries are sorted by RelativePath and unique by it.
type EffectiveFileSet struct {
	files    []EffectiveFile
	shadowed []TreeFile
}

// ResolveOverlay returns every override file plus every baseline file whose
// RelativePath is not among the override's. A RelativePath occurring twice
// inside one snapshot is reported as an *AmbiguousPathError.
func ResolveOverlay(baseline, override TreeSnapshot) (EffectiveFileSet, error) {
	overridden, err := override.index()
	if err != nil {
		return EffectiveFileSet{}, err
	}
	if _, err := baseline.index(); err != nil {
		return EffectiveFileSet{}, err
	}

	files := make([]EffectiveFile, 0, len(override.Files)+len(baseline.Files))
	for _, f := range override.Files {
		files = append(files, EffectiveFile{TreeFile: f, Override: true})
	}
	var shadowed []TreeFile
	for _, f := range baseline.Files {
		if _, ok := overridden[f.Rel]; ok {
			shadowed = append(shadowed, f)
			continue
		}
		files = append(files, EffectiveFile{TreeFile: f})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	sort.Slice(shadowed, func(i, j int) bool { return shadowed[i].Rel < shadowed[j].Rel })
	return EffectiveFileSet{files: files, shadowed: shadowed}, nil
}

// Files returns a copy of the effective files.
func (s EffectiveFileSet) Files() []EffectiveFile {
	return append([]EffectiveFile(nil), s.files...)
}

// Paths returns the full paths of the effective files, sorted by RelativePath.
func (s EffectiveFileSet) Paths() []string {
	out := make([]string, len(s.files))
	for i, f := range s.files {
		out[i] = f.Path()
	}
	return out
}

// Shadowed returns the baseline files excluded because an override file has
// the same RelativePath.
func (s EffectiveFileSet) Shadowed() []TreeFile {
	return append([]TreeFile(nil), s.shadowed...)
}

// Len returns the number of effective files.
func (s EffectiveFileSet) Len() int {
	return len(s.files)
}

// OverrideCount returns how many effective files come from the override tree.
func (s EffectiveFileSet) OverrideCount() int {
	n := 0
	for _, f := range s.files {
		if f.Override {
			n++
		}
	}
	return n
}

// Lookup returns the effective file for a RelativePath.
func (s EffectiveFileSet) Lookup(rel RelativePath) (EffectiveFile, bool) {
	i := sort.Search(len(s.files), func(i int) bool { return s.files[i].Rel >= rel })
	if i < len(s.files) && s.files[i].Rel == rel {
		return s.files[i], true
	}
	return EffectiveFile{}, false
}

// Equal reports value equality.
func (s EffectiveFileSet) Equal(other EffectiveFileSet) bool {
	if len(s.files) != len(other.files) || len(s.shadowed) != len(other.shadowed) {
		return false
	}
	for i := range s.files {
		if s.files[i] != other.files[i] {
			return false
		}
	}
	for i := range s.shadowed {
		if s.shadowed[i] != other.shadowed[i] {
			return false
		}
	}
	return true
}

// ConsistencyWarnings compares the source and output overlays of one variant.
// A source that shadows the baseline must have compiled outputs that shadow
// the baseline outputs too, otherwise the report attributes the override
// source to baseline classes.
func ConsistencyWarnings(sources, outputs EffectiveFileSet) []string {
	if len(sources.shadowed) == 0 {
		return nil
	}
	if outputs.OverrideCount() == 0 {
		return []string{fmt.Sprintf("%d override sources shadow the baseline but no override outputs were found; has the variant been compiled?", len(sources.shadowed))}
	}
	shadowedStems := make(map[string]struct{}, len(outputs.shadowed))
	for _, f := range outputs.shadowed {
		shadowedStems[f.Rel.Stem()] = struct{}{}
	}
	var warnings []string
	for _, f := range sources.shadowed {
		if _, ok := shadowedStems[f.Rel.Stem()]; ok {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("override source %s shadows the baseline but no compiled output for it shadows the baseline outputs", f.Rel))
	}
	return warnings
}

// IncludeFilter selects files by glob patterns matched against the file
// name. An empty filter selects every file.
type IncludeFilter struct {
	patterns []string
}

// NewIncludeFilter validates the patterns.
func NewIncludeFilter(patterns ...string) (IncludeFilter, error) {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return IncludeFilter{}, &ConfigError{Kind: ErrInvalidName, Name: p, Context: "include pattern: " + err.Error()}
		}
		kept = append(kept, p)
	}
	return IncludeFilter{patterns: kept}, nil
}

// Patterns returns the patterns in declaration order.
func (f IncludeFilter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}

// Match reports whether the file at p is selected. Only the base name is
// matched.
func (f IncludeFilter) Match(p string) bool {
	if len(f.patterns) == 0 {
		return true
	}
	name := filepath.Base(p)
	for _, pattern := range f.patterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
