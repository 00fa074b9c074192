package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck3fence/ck3fence/internal/capability"
)

func TestMintAndLookup(t *testing.T) {
	r := capability.NewRegistry(10)

	token, err := r.Mint("/srv/repo/src/main.go")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	path, ok := r.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, "/srv/repo/src/main.go", path)
	assert.Equal(t, 1, r.Len())
}

func TestLookupUnknownTokenFailsClosed(t *testing.T) {
	r := capability.NewRegistry(10)
	_, ok := r.Lookup("not-a-real-token")
	assert.False(t, ok)
}

func TestMintDistinctTokensPerCall(t *testing.T) {
	r := capability.NewRegistry(10)
	t1, err := r.Mint("/srv/a")
	require.NoError(t, err)
	t2, err := r.Mint("/srv/b")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
}

func TestMintRejectsOverCapacity(t *testing.T) {
	r := capability.NewRegistry(2)
	_, err := r.Mint("/srv/a")
	require.NoError(t, err)
	_, err = r.Mint("/srv/b")
	require.NoError(t, err)

	_, err = r.Mint("/srv/c")
	require.Error(t, err)
	assert.IsType(t, capability.ErrCapacityExceeded{}, err)
	assert.Equal(t, 2, r.Len())
}

func TestDefaultMaxTokensFallback(t *testing.T) {
	r := capability.NewRegistry(0)
	for i := 0; i < 3; i++ {
		_, err := r.Mint("/srv/x")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, r.Len())
}

func TestCapRefExposesOnlyDisplayForm(t *testing.T) {
	ref := capability.NewCapRef("tok-123", "root:repo/src/main.go")
	assert.Equal(t, "tok-123", ref.Token())
	assert.Equal(t, "root:repo/src/main.go", ref.SessionAbs())
	assert.Equal(t, "root:repo/src/main.go", ref.Display())
	assert.Equal(t, "root:repo/src/main.go", ref.String())
}
