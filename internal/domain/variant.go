package domain

import (
	"sort"
	"strconv"
	"strings"
)

// RunRef identifies a registered test run.
type RunRef string

func (r RunRef) String() string {
	return string(r)
}

// Run is a registered test run and the trace file it records.
type Run struct {
	Name      RunRef
	TraceFile string
}

// Runs is the immutable catalog of registered runs, keyed by name.
type Runs struct {
	byName map[RunRef]Run
	order  []RunRef
}

// NewRuns builds a catalog. Later duplicates replace earlier ones but keep
// the first position.
func NewRuns(runs ...Run) Runs {
	c := Runs{byName: make(map[RunRef]Run, len(runs))}
	for _, r := range runs {
		if _, ok := c.byName[r.Name]; !ok {
			c.order = append(c.order, r.Name)
		}
		c.byName[r.Name] = r
	}
	return c
}

// Lookup returns the run registered under ref.
func (c Runs) Lookup(ref RunRef) (Run, bool) {
	r, ok := c.byName[ref]
	return r, ok
}

// Names returns the registered run names in registration order.
func (c Runs) Names() []RunRef {
	return append([]RunRef(nil), c.order...)
}

// Len returns the number of registered runs.
func (c Runs) Len() int {
	return len(c.order)
}

// Require returns the run registered under ref or a *ConfigError naming it.
func (c Runs) Require(ref RunRef, role string) (Run, error) {
	r, ok := c.byName[ref]
	if !ok {
		return Run{}, &ConfigError{Kind: ErrUnknownRun, Name: string(ref), Context: role}
	}
	return r, nil
}

// ExecutionSet is the ordered, duplicate-free set of runs whose execution
// data must be merged for one report.
type ExecutionSet struct {
	runs []RunRef
}

// NewExecutionSet keeps the first occurrence of every non-empty ref.
func NewExecutionSet(refs ...RunRef) ExecutionSet {
	seen := make(map[RunRef]struct{}, len(refs))
	out := make([]RunRef, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return ExecutionSet{runs: out}
}

// BuildExecutionSet returns {common, fixed, variant} after checking that every
// ref is registered. An empty fixed ref means no fixed run is configured.
func BuildExecutionSet(runs Runs, common, fixed, variant RunRef) (ExecutionSet, error) {
	if _, err := runs.Require(common, "common run"); err != nil {
		return ExecutionSet{}, err
	}
	if fixed != "" {
		if _, err := runs.Require(fixed, "fixed run"); err != nil {
			return ExecutionSet{}, err
		}
	}
	if _, err := runs.Require(variant, "variant run"); err != nil {
		return ExecutionSet{}, err
	}
	return NewExecutionSet(common, fixed, variant), nil
}

// Runs returns the refs in merge order.
func (s ExecutionSet) Runs() []RunRef {
	return append([]RunRef(nil), s.runs...)
}

// Len returns the number of distinct runs.
func (s ExecutionSet) Len() int {
	return len(s.runs)
}

// Contains reports whether ref is part of the set.
func (s ExecutionSet) Contains(ref RunRef) bool {
	for _, r := range s.runs {
		if r == ref {
			return true
		}
	}
	return false
}

// Equal compares membership; order is not significant.
func (s ExecutionSet) Equal(other ExecutionSet) bool {
	if len(s.runs) != len(other.runs) {
		return false
	}
	for _, r := range s.runs {
		if !other.Contains(r) {
			return false
		}
	}
	return true
}

// NamingConvention recognises per-variant runs by name: <Prefix><token><Suffix>.
type NamingConvention struct {
	Prefix string
	Suffix string
}

// DefaultNamingConvention matches runs such as "java17Test".
func DefaultNamingConvention() NamingConvention {
	return NamingConvention{Prefix: "java", Suffix: "Test"}
}

// Match returns the release identifier (name without suffix) and version
// tag (identifier without prefix) for a qualifying run.
func (c NamingConvention) Match(ref RunRef) (id, version string, ok bool) {
	name := string(ref)
	if !strings.HasPrefix(name, c.Prefix) || !strings.HasSuffix(name, c.Suffix) {
		return "", "", false
	}
	if len(name) <= len(c.Prefix)+len(c.Suffix) {
		return "", "", false
	}
	id = strings.TrimSuffix(name, c.Suffix)
	version = strings.TrimPrefix(id, c.Prefix)
	return id, version, true
}

// RunName builds the run name for a version tag.
func (c NamingConvention) RunName(version string) RunRef {
	return RunRef(c.Prefix + version + c.Suffix)
}

// Baseline is the shared pair of roots used by every variant.
type Baseline struct {
	Sources FileRoot
	Outputs FileRoot
}

// Variant is one version-gated override set.
type Variant struct {
	ID      string
	Version string
	Run     RunRef
	Sources FileRoot
	Outputs FileRoot
}

// HasOverride reports whether any override root is registered.
func (v Variant) HasOverride() bool {
	return !v.Sources.IsEmpty() || !v.Outputs.IsEmpty()
}

// SortVariants orders variants by numeric version when both tags are numbers,
// numbers before tokens, and lexically otherwise.
func SortVariants(variants []Variant) {
	sort.SliceStable(variants, func(i, j int) bool {
		return LessVersion(variants[i].Version, variants[j].Version, variants[i].ID, variants[j].ID)
	})
}

// LessVersion compares two version tags, breaking ties by id.
func LessVersion(a, b, idA, idB string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	case a != b:
		return a < b
	}
	return idA < idB
}

// ReportJob is everything the coverage tool needs for one variant report.
type ReportJob struct {
	Name       string
	Variant    Variant
	Executions ExecutionSet
	TraceFiles []string
	Sources    EffectiveFileSet
	Outputs    EffectiveFileSet
	Warnings   []string
}
