// Package version implements the SemVer 2.0.0 parsing and the
// caret/tilde/wildcard/equals/comparison constraint grammar used for
// project versions and usage constraints.
//
// It is a thin, spec-shaped wrapper around github.com/Masterminds/semver/v3
// (already pulled in by the teacher CLI's "self update" command) rather
// than a hand-rolled comparator, because Masterminds/semver already
// implements full SemVer precedence including build-metadata-insensitive
// ordering.
package version

import (
	"fmt"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// Version is a parsed SemVer 2.0.0 triple plus optional pre-release and
// build metadata.
type Version struct {
	v *mmsemver.Version
}

// Parse parses s as a SemVer 2.0.0 version.
func Parse(s string) (Version, error) {
	v, err := mmsemver.StrictNewVersion(s)
	if err != nil {
		return Version{}, errs.New(errs.InvalidSemanticVersion, s, err)
	}
	return Version{v: v}, nil
}

func (v Version) String() string { return v.v.String() }

// Compare returns -1, 0, or 1 per SemVer 2.0.0 item 11 total ordering.
// Build metadata is ignored; pre-release versions order below the
// corresponding release.
func (v Version) Compare(other Version) int { return v.v.Compare(other.v) }

func (v Version) Major() uint64 { return v.v.Major() }
func (v Version) Minor() uint64 { return v.v.Minor() }
func (v Version) Patch() uint64 { return v.v.Patch() }
func (v Version) Prerelease() string { return v.v.Prerelease() }

func (v Version) IsPrerelease() bool { return v.v.Prerelease() != "" }

// Constraint is a non-empty AND-joined list of comparators.
type Constraint struct {
	raw        string
	comparators []comparator
}

type operator int

const (
	opCaret operator = iota
	opTilde
	opWildcard
	opEquals
	opLT
	opLE
	opGT
	opGE
)

type comparator struct {
	op            operator
	version       Version
	hasPrerelease bool
	// wildcardDepth counts the components given before the first
	// wildcard marker in an opWildcard comparator's core version (1
	// for "1.x", 2 for "1.2.x"), so wildcardMatches knows which
	// components were actually pinned rather than treating every
	// wildcard as patch-level. For other comparators it is the number
	// of components written (up to 3); tildeMatches uses it to tell
	// "~1" from "~1.2".
	wildcardDepth int
}

// ParseConstraint parses a space/comma-separated list of comparators.
// Each comparator is one of: ^1.2.3, ~1.2.3, 1.2.x / 1.2.*, =1.2.3,
// 1.2.3 (implicit equals), <1.2.3, <=1.2.3, >1.2.3, >=1.2.3. A version
// may be partial (e.g. "1.2") in every form.
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Constraint{}, errs.New(errs.InvalidValue, s, fmt.Errorf("empty version constraint"))
	}

	fields := splitComparators(s)
	if len(fields) == 0 {
		return Constraint{}, errs.New(errs.InvalidValue, s, fmt.Errorf("no comparators found"))
	}

	var comparators []comparator
	for _, f := range fields {
		c, err := parseComparator(f)
		if err != nil {
			return Constraint{}, errs.New(errs.InvalidValue, s, err)
		}
		comparators = append(comparators, c)
	}

	return Constraint{raw: s, comparators: comparators}, nil
}

func splitComparators(s string) []string {
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Fields(s)
}

func parseComparator(f string) (comparator, error) {
	var op operator
	rest := f
	switch {
	case strings.HasPrefix(f, "^"):
		op, rest = opCaret, f[1:]
	case strings.HasPrefix(f, "~"):
		op, rest = opTilde, f[1:]
	case strings.HasPrefix(f, ">="):
		op, rest = opGE, f[2:]
	case strings.HasPrefix(f, "<="):
		op, rest = opLE, f[2:]
	case strings.HasPrefix(f, ">"):
		op, rest = opGT, f[1:]
	case strings.HasPrefix(f, "<"):
		op, rest = opLT, f[1:]
	case strings.HasPrefix(f, "="):
		op, rest = opEquals, f[1:]
	default:
		op, rest = opEquals, f
	}

	if strings.Contains(rest, "x") || strings.Contains(rest, "X") || strings.Contains(rest, "*") {
		op = opWildcard
	}

	hasPrerelease := strings.Contains(rest, "-")
	depth := wildcardDepth(rest)

	padded := padPartial(rest)
	v, err := Parse(padded)
	if err != nil {
		return comparator{}, fmt.Errorf("invalid comparator %q: %w", f, err)
	}

	return comparator{op: op, version: v, hasPrerelease: hasPrerelease, wildcardDepth: depth}, nil
}

// wildcardDepth counts how many leading version components of s (the
// core before any "-"/"+") are pinned, i.e. given before the first
// wildcard marker: 1 for "1.x"/"1.*" (major only), 2 for "1.2.x"
// (major.minor), 3 if no wildcard marker appears at all.
func wildcardDepth(s string) int {
	core, _, _ := strings.Cut(s, "-")
	if i := strings.IndexByte(core, '+'); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	for i, p := range parts {
		if i >= 3 {
			break
		}
		if p == "" || p == "x" || p == "X" || p == "*" {
			return i
		}
	}
	if len(parts) > 3 {
		return 3
	}
	return len(parts)
}

// padPartial fills in missing minor/patch components (and strips
// wildcard markers) so a partial version like "1.2" or "1.x" parses as
// a full SemVer triple that represents the low end of its range.
func padPartial(s string) string {
	s = strings.ReplaceAll(s, "X", "x")
	s = strings.ReplaceAll(s, "*", "x")

	core, rest, _ := strings.Cut(s, "-")
	if rest != "" {
		rest = "-" + rest
	}
	build := ""
	if i := strings.Index(core, "+"); i >= 0 {
		build = core[i:]
		core = core[:i]
	}

	parts := strings.Split(core, ".")
	for len(parts) < 3 {
		parts = append(parts, "x")
	}
	for i, p := range parts[:3] {
		if p == "x" || p == "" {
			parts[i] = "0"
		}
	}
	return strings.Join(parts[:3], ".") + rest + build
}

// Matches reports whether v satisfies every comparator in c.
//
// Pre-release versions match only if v's (major, minor, patch) equals
// some comparator's and that comparator was itself written with an
// explicit pre-release tag - per spec, a constraint must opt in to
// matching pre-releases on a per-(major,minor,patch) basis.
func (c Constraint) Matches(v Version) bool {
	if v.IsPrerelease() {
		allowed := false
		for _, cmp := range c.comparators {
			if cmp.hasPrerelease &&
				cmp.version.Major() == v.Major() &&
				cmp.version.Minor() == v.Minor() &&
				cmp.version.Patch() == v.Patch() {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	for _, cmp := range c.comparators {
		if !matchesOne(cmp, v) {
			return false
		}
	}
	return true
}

func matchesOne(cmp comparator, v Version) bool {
	switch cmp.op {
	case opEquals:
		return v.Compare(cmp.version) == 0
	case opLT:
		return v.Compare(cmp.version) < 0
	case opLE:
		return v.Compare(cmp.version) <= 0
	case opGT:
		return v.Compare(cmp.version) > 0
	case opGE:
		return v.Compare(cmp.version) >= 0
	case opCaret:
		return caretMatches(cmp.version, v)
	case opTilde:
		return tildeMatches(cmp.version, v, cmp.wildcardDepth)
	case opWildcard:
		return wildcardMatches(cmp.version, v, cmp.wildcardDepth)
	default:
		return false
	}
}

// caretMatches implements "allow changes that do not modify the
// left-most non-zero digit": ^1.2.3 := >=1.2.3 <2.0.0; ^0.2.3 := >=0.2.3 <0.3.0;
// ^0.0.3 := >=0.0.3 <0.0.4.
func caretMatches(base, v Version) bool {
	if v.Compare(base) < 0 {
		return false
	}
	var upperMajor, upperMinor, upperPatch uint64
	switch {
	case base.Major() > 0:
		upperMajor, upperMinor, upperPatch = base.Major()+1, 0, 0
	case base.Minor() > 0:
		upperMajor, upperMinor, upperPatch = 0, base.Minor()+1, 0
	default:
		upperMajor, upperMinor, upperPatch = 0, 0, base.Patch()+1
	}
	return lessByTriple(v, upperMajor, upperMinor, upperPatch)
}

// tildeMatches implements "allow patch-level changes if a minor version
// is specified, or minor-level changes if not": ~1.2.3 := >=1.2.3 <1.3.0;
// ~1 := >=1.0.0 <2.0.0. depth is the number of components written.
func tildeMatches(base, v Version, depth int) bool {
	if v.Compare(base) < 0 {
		return false
	}
	if depth < 2 {
		return lessByTriple(v, base.Major()+1, 0, 0)
	}
	return lessByTriple(v, base.Major(), base.Minor()+1, 0)
}

// wildcardMatches implements 1.2.x / 1.2.* (any patch under 1.2) and
// 1.x / 1.* (any minor.patch under major 1), per depth: the number of
// components the comparator actually pinned before its wildcard.
func wildcardMatches(base, v Version, depth int) bool {
	if depth < 1 {
		return true
	}
	if v.Major() != base.Major() {
		return false
	}
	if depth < 2 {
		return true
	}
	return v.Minor() == base.Minor()
}

func lessByTriple(v Version, major, minor, patch uint64) bool {
	if v.Major() != major {
		return v.Major() < major
	}
	if v.Minor() != minor {
		return v.Minor() < minor
	}
	return v.Patch() < patch
}

func (c Constraint) String() string { return c.raw }
