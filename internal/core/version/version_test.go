// Package version_test contains tests for the version package.
package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/version"
)

func mustVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	require.NoError(t, err)
	return v
}

func mustConstraint(t *testing.T, s string) version.Constraint {
	t.Helper()
	c, err := version.ParseConstraint(s)
	require.NoError(t, err)
	return c
}

func TestParse_RejectsNonSemVer(t *testing.T) {
	t.Parallel()
	_, err := version.Parse("not-a-semver")
	assert.Error(t, err)
}

func TestParse_AcceptsPrereleaseAndBuild(t *testing.T) {
	t.Parallel()
	v := mustVersion(t, "1.2.3-rc.1+build.5")
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, uint64(2), v.Minor())
	assert.Equal(t, uint64(3), v.Patch())
	assert.True(t, v.IsPrerelease())
}

// TestCaretConstraint_Scenario2 implements spec.md §8 scenario 2's
// first case: "^1.2.3 matches 1.2.3 and 1.9.0; rejects 2.0.0 and
// 1.2.3-alpha."
func TestCaretConstraint_Scenario2(t *testing.T) {
	t.Parallel()
	c := mustConstraint(t, "^1.2.3")

	assert.True(t, c.Matches(mustVersion(t, "1.2.3")))
	assert.True(t, c.Matches(mustVersion(t, "1.9.0")))
	assert.False(t, c.Matches(mustVersion(t, "2.0.0")))
	assert.False(t, c.Matches(mustVersion(t, "1.2.3-alpha")))
}

// TestCaretConstraint_PrereleaseOptIn implements spec.md §8 scenario
// 2's second case: "^1.2.3-rc matches 1.2.3."
func TestCaretConstraint_PrereleaseOptIn(t *testing.T) {
	t.Parallel()
	c := mustConstraint(t, "^1.2.3-rc")
	assert.True(t, c.Matches(mustVersion(t, "1.2.3")))
}

// TestGEConstraint_Scenario2 implements spec.md §8 scenario 2's third
// case: ">=5.4.2-beta1 matches 5.4.2 and 6.2.0; rejects 5.4.3-alpha."
func TestGEConstraint_Scenario2(t *testing.T) {
	t.Parallel()
	c := mustConstraint(t, ">=5.4.2-beta1")

	assert.True(t, c.Matches(mustVersion(t, "5.4.2")))
	assert.True(t, c.Matches(mustVersion(t, "6.2.0")))
	assert.False(t, c.Matches(mustVersion(t, "5.4.3-alpha")))
}

func TestPrereleaseMatch_RequiresExactTriple(t *testing.T) {
	t.Parallel()
	// ^1.2.3-rc opts in to pre-releases only at (1,2,3); a pre-release
	// at a different triple is still rejected even though the
	// constraint names a pre-release somewhere.
	c := mustConstraint(t, "^1.2.3-rc")
	assert.False(t, c.Matches(mustVersion(t, "1.2.4-alpha")))
}

func TestTildeConstraint_PatchLevelOnly(t *testing.T) {
	t.Parallel()
	c := mustConstraint(t, "~1.2.3")
	assert.True(t, c.Matches(mustVersion(t, "1.2.9")))
	assert.False(t, c.Matches(mustVersion(t, "1.3.0")))
}

func TestWildcardConstraint_AnyPatch(t *testing.T) {
	t.Parallel()
	c := mustConstraint(t, "1.2.x")
	assert.True(t, c.Matches(mustVersion(t, "1.2.0")))
	assert.True(t, c.Matches(mustVersion(t, "1.2.99")))
	assert.False(t, c.Matches(mustVersion(t, "1.3.0")))
}

func TestWildcardConstraint_AnyMinor(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"1.x", "1.*"} {
		c := mustConstraint(t, raw)
		assert.True(t, c.Matches(mustVersion(t, "1.0.0")), raw)
		assert.True(t, c.Matches(mustVersion(t, "1.5.0")), raw)
		assert.True(t, c.Matches(mustVersion(t, "1.9.9")), raw)
		assert.False(t, c.Matches(mustVersion(t, "2.0.0")), raw)
	}
}

func TestAndedConstraints_BothMustMatch(t *testing.T) {
	t.Parallel()
	c := mustConstraint(t, ">=1.0.0 <2.0.0")
	assert.True(t, c.Matches(mustVersion(t, "1.5.0")))
	assert.False(t, c.Matches(mustVersion(t, "2.0.0")))
}

func TestCompare_TotalOrdering(t *testing.T) {
	t.Parallel()
	assert.Equal(t, -1, mustVersion(t, "1.0.0-alpha").Compare(mustVersion(t, "1.0.0")))
	assert.Equal(t, 0, mustVersion(t, "1.0.0").Compare(mustVersion(t, "1.0.0")))
	assert.Equal(t, 1, mustVersion(t, "1.0.1").Compare(mustVersion(t, "1.0.0")))
}

func TestParseConstraint_RejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := version.ParseConstraint("")
	assert.Error(t, err)
}
