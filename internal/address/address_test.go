package address_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck3fence/ck3fence/internal/address"
)

func TestParseCanonicalRoot(t *testing.T) {
	p, err := address.Parse("root:repo/src/main.go")
	require.Nil(t, err)
	assert.Equal(t, address.NamespaceRoot, p.Namespace)
	assert.Equal(t, "repo", p.Key)
	assert.Equal(t, "src/main.go", p.RelativePath)
}

func TestParseCanonicalRootNoPath(t *testing.T) {
	p, err := address.Parse("root:repo/")
	require.Nil(t, err)
	assert.Equal(t, "repo", p.Key)
	assert.Equal(t, "", p.RelativePath)
}

func TestParseCanonicalMod(t *testing.T) {
	p, err := address.Parse("mod:MyMod/common/landed_titles.txt")
	require.Nil(t, err)
	assert.Equal(t, address.NamespaceMod, p.Namespace)
	assert.Equal(t, "MyMod", p.Key)
	assert.Equal(t, "common/landed_titles.txt", p.RelativePath)
}

func TestParseLegacyRootForm(t *testing.T) {
	p, err := address.Parse("ROOT_GAME:/launcher.exe")
	require.Nil(t, err)
	assert.Equal(t, address.NamespaceRoot, p.Namespace)
	assert.Equal(t, "game", p.Key)
	assert.Equal(t, "launcher.exe", p.RelativePath)
}

func TestParseLegacyModForm(t *testing.T) {
	p, err := address.Parse("mod:TestMod:/common")
	require.Nil(t, err)
	assert.Equal(t, address.NamespaceMod, p.Namespace)
	assert.Equal(t, "TestMod", p.Key)
	assert.Equal(t, "common", p.RelativePath)
	assert.Equal(t, "mod:TestMod/common", p.Emit())
}

func TestParseRejectsEmptyInput(t *testing.T) {
	_, err := address.Parse("")
	require.NotNil(t, err)
	assert.Equal(t, address.CauseEmptyInput, err.Cause)
}

func TestParseRejectsMissingNamespace(t *testing.T) {
	_, err := address.Parse("repo/src/main.go")
	require.NotNil(t, err)
	assert.Equal(t, address.CauseMissingNamespace, err.Cause)
}

func TestParseRejectsUnknownNamespace(t *testing.T) {
	_, err := address.Parse("weird:repo/main.go")
	require.NotNil(t, err)
	assert.Equal(t, address.CauseUnknownNamespace, err.Cause)
}

func TestParseRejectsEmptyKey(t *testing.T) {
	_, err := address.Parse("root:/main.go")
	require.NotNil(t, err)
	assert.Equal(t, address.CauseEmptyKey, err.Cause)
}

func TestParseRejectsPathEscape(t *testing.T) {
	_, err := address.Parse("root:repo/../../../etc/passwd")
	require.NotNil(t, err)
	assert.Equal(t, address.CausePathEscape, err.Cause)
}

func TestParseRejectsHostAbsoluteWindows(t *testing.T) {
	_, err := address.Parse(`C:\Users\agent\file.txt`)
	require.NotNil(t, err)
	assert.Equal(t, address.CauseHostAbsolute, err.Cause)
}

func TestParseRejectsHostAbsoluteUNC(t *testing.T) {
	_, err := address.Parse(`\\server\share\file.txt`)
	require.NotNil(t, err)
	assert.Equal(t, address.CauseHostAbsolute, err.Cause)
}

func TestParseRejectsHostAbsolutePOSIX(t *testing.T) {
	_, err := address.Parse("/home/agent/file.txt")
	require.NotNil(t, err)
	assert.Equal(t, address.CauseHostAbsolute, err.Cause)
}

func TestParseNormalizesDotSegments(t *testing.T) {
	p, err := address.Parse("root:repo/./src/./main.go")
	require.Nil(t, err)
	assert.Equal(t, "src/main.go", p.RelativePath)
}

func TestEmitIsIdempotent(t *testing.T) {
	p, err := address.Parse("root:repo/src/main.go")
	require.Nil(t, err)
	emitted := p.Emit()
	assert.Equal(t, "root:repo/src/main.go", emitted)

	reparsed, err2 := address.Parse(emitted)
	require.Nil(t, err2)
	assert.Equal(t, p.Namespace, reparsed.Namespace)
	assert.Equal(t, p.Key, reparsed.Key)
	assert.Equal(t, p.RelativePath, reparsed.RelativePath)
}

func TestEmitEmptyRelativePath(t *testing.T) {
	p, err := address.Parse("root:repo/")
	require.Nil(t, err)
	assert.Equal(t, "root:repo/", p.Emit())
}

func TestFirstSegment(t *testing.T) {
	p, err := address.Parse("root:repo/src/main.go")
	require.Nil(t, err)
	assert.Equal(t, "src", p.FirstSegment())
}

func TestFirstSegmentOfRoot(t *testing.T) {
	p, err := address.Parse("root:repo/")
	require.Nil(t, err)
	assert.Equal(t, "", p.FirstSegment())
}

func TestFirstSegmentSingleComponent(t *testing.T) {
	p, err := address.Parse("root:repo/README.md")
	require.Nil(t, err)
	assert.Equal(t, "README.md", p.FirstSegment())
}
