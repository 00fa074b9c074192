package resolver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck3fence/ck3fence/internal/capability"
	"github.com/ck3fence/ck3fence/internal/policy"
	"github.com/ck3fence/ck3fence/internal/reply"
	"github.com/ck3fence/ck3fence/internal/resolver"
	"github.com/ck3fence/ck3fence/internal/session"
)

func fixedMode(mode string, ok bool) resolver.ModeSource {
	return func() (string, bool) { return mode, ok }
}

func newDeps(t *testing.T, mode string, visibility policy.VisibilityMatrix) (resolver.Deps, string) {
	t.Helper()
	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "main.go"), []byte("package main"), 0o644))

	roots, err := session.NewRootMap(map[string]string{"repo": repoDir})
	require.NoError(t, err)

	return resolver.Deps{
		Roots:      roots,
		Registry:   capability.NewRegistry(10),
		Visibility: visibility,
		Mode:       fixedMode(mode, true),
		Session:    session.New("sess-1"),
	}, repoDir
}

func TestResolveSuccess(t *testing.T) {
	vis := policy.VisibilityMatrix{
		{Mode: "ck3raven-dev", RootKey: "repo", Subdir: ""}: {},
	}
	deps, _ := newDeps(t, "ck3raven-dev", vis)

	rep, capRef := resolver.Resolve("root:repo/main.go", true, deps)
	require.Equal(t, reply.KindSuccess, rep.Kind())
	require.NotNil(t, capRef)
	assert.Equal(t, "root:repo/main.go", capRef.Display())
}

func TestResolveUninitializedMode(t *testing.T) {
	deps, _ := newDeps(t, "", policy.VisibilityMatrix{})
	deps.Mode = fixedMode("", false)

	rep, capRef := resolver.Resolve("root:repo/main.go", true, deps)
	assert.Equal(t, reply.CodeModeUninitialized, rep.Code)
	assert.Nil(t, capRef)
}

func TestResolveInvalidAddress(t *testing.T) {
	deps, _ := newDeps(t, "ck3raven-dev", policy.VisibilityMatrix{})
	rep, capRef := resolver.Resolve("not-an-address", true, deps)
	assert.Equal(t, reply.KindInvalid, rep.Kind())
	assert.Nil(t, capRef)
}

func TestResolveUnknownRoot(t *testing.T) {
	deps, _ := newDeps(t, "ck3raven-dev", policy.VisibilityMatrix{
		{Mode: "ck3raven-dev", RootKey: "repo", Subdir: ""}: {},
	})
	rep, _ := resolver.Resolve("root:game/launcher.exe", true, deps)
	assert.Equal(t, reply.KindInvalid, rep.Kind())
}

func TestResolveDeniesWhenNotVisible(t *testing.T) {
	// No visibility row at all for repo — structurally not visible.
	deps, _ := newDeps(t, "ck3raven-dev", policy.VisibilityMatrix{})
	rep, capRef := resolver.Resolve("root:repo/main.go", true, deps)
	assert.Equal(t, reply.KindInvalid, rep.Kind())
	assert.Nil(t, capRef)
}

func TestResolveRequireExistsNotFound(t *testing.T) {
	vis := policy.VisibilityMatrix{
		{Mode: "ck3raven-dev", RootKey: "repo", Subdir: ""}: {},
	}
	deps, _ := newDeps(t, "ck3raven-dev", vis)
	rep, capRef := resolver.Resolve("root:repo/missing.go", true, deps)
	assert.Equal(t, reply.KindInvalid, rep.Kind())
	assert.Nil(t, capRef)
}

func TestResolveRejectsPathEscape(t *testing.T) {
	vis := policy.VisibilityMatrix{
		{Mode: "ck3raven-dev", RootKey: "repo", Subdir: ""}: {},
	}
	deps, _ := newDeps(t, "ck3raven-dev", vis)
	rep, _ := resolver.Resolve("root:repo/../../../etc/passwd", false, deps)
	assert.Equal(t, reply.KindInvalid, rep.Kind())
}

func TestResolveCapacityExceeded(t *testing.T) {
	vis := policy.VisibilityMatrix{
		{Mode: "ck3raven-dev", RootKey: "repo", Subdir: ""}: {},
	}
	deps, _ := newDeps(t, "ck3raven-dev", vis)
	deps.Registry = capability.NewRegistry(0) // falls back to default cap, so mint capacity won't be hit at 0; force tiny cap instead
	deps.Registry = capability.NewRegistry(1)

	// First resolve consumes the only slot.
	rep1, capRef1 := resolver.Resolve("root:repo/main.go", true, deps)
	require.Equal(t, reply.KindSuccess, rep1.Kind())
	require.NotNil(t, capRef1)

	rep2, capRef2 := resolver.Resolve("root:repo/main.go", true, deps)
	assert.Equal(t, reply.CodeResolveCapacity, rep2.Code)
	assert.Nil(t, capRef2)
}

func TestResolveModAddress(t *testing.T) {
	deps, repoDir := newDeps(t, "ck3raven-dev", policy.VisibilityMatrix{
		{Mode: "*", RootKey: policy.VirtualModRootKey, Subdir: ""}: {},
	})
	deps.Session.SetMods([]session.Mod{{Name: "MyMod", HostPath: repoDir}})

	rep, capRef := resolver.Resolve("mod:MyMod/main.go", true, deps)
	require.Equal(t, reply.KindSuccess, rep.Kind())
	require.NotNil(t, capRef)
}

func TestResolveUnknownModDeniesClosed(t *testing.T) {
	deps, _ := newDeps(t, "ck3raven-dev", policy.VisibilityMatrix{
		{Mode: "*", RootKey: policy.VirtualModRootKey, Subdir: ""}: {},
	})
	rep, capRef := resolver.Resolve("mod:Unknown/main.go", true, deps)
	assert.Equal(t, reply.KindInvalid, rep.Kind())
	assert.Nil(t, capRef)
}
