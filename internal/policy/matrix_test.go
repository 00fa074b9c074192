package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck3fence/ck3fence/internal/policy"
)

func TestVisibilityMatrixExactMatch(t *testing.T) {
	m := policy.VisibilityMatrix{
		{Mode: policy.ModeCK3Lens, RootKey: "game", Subdir: ""}: {},
	}
	rule, ok := m.Lookup(policy.ModeCK3Lens, "game", "")
	require.True(t, ok)
	assert.Empty(t, rule.Conditions)
}

func TestVisibilityMatrixFallsBackFromSubdirToRoot(t *testing.T) {
	m := policy.VisibilityMatrix{
		{Mode: policy.ModeCK3Lens, RootKey: "repo", Subdir: ""}: {},
	}
	// No row for subdir "src" — falls back to the root-level row.
	rule, ok := m.Lookup(policy.ModeCK3Lens, "repo", "src")
	require.True(t, ok)
	assert.Empty(t, rule.Conditions)
}

func TestVisibilityMatrixFallsBackToWildcardMode(t *testing.T) {
	m := policy.VisibilityMatrix{
		{Mode: policy.ModeAny, RootKey: "mod", Subdir: ""}: {},
	}
	rule, ok := m.Lookup(policy.ModeCK3Lens, "mod", "")
	require.True(t, ok)
	assert.Empty(t, rule.Conditions)
}

func TestVisibilityMatrixAbsentDeniesStructurally(t *testing.T) {
	m := policy.VisibilityMatrix{}
	_, ok := m.Lookup(policy.ModeCK3Lens, "steam", "")
	assert.False(t, ok)
}

func TestOperationRuleMatchesExecSentinel(t *testing.T) {
	rule := policy.OperationRule{ExecSentinel: true}
	assert.True(t, rule.Matches("exec", "anything"))
	assert.False(t, rule.Matches("file", "read"))
}

func TestOperationRuleMatchesExplicitCommand(t *testing.T) {
	rule := policy.OperationRule{
		Commands: map[policy.CommandKey]bool{{Tool: "file", Command: "read"}: true},
	}
	assert.True(t, rule.Matches("file", "read"))
	assert.False(t, rule.Matches("file", "write"))
}

func TestOperationsMatrixLookupFallback(t *testing.T) {
	m := policy.OperationsMatrix{
		{Mode: policy.ModeCK3RavenDev, RootKey: "repo", Subdir: ""}: {
			{Commands: map[policy.CommandKey]bool{{Tool: "git", Command: "status"}: true}},
		},
	}
	rules, ok := m.Lookup(policy.ModeCK3RavenDev, "repo", "nested")
	require.True(t, ok)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Matches("git", "status"))
}
