package approval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ck3fence/ck3fence/internal/approval"
)

func TestSignIsDeterministic(t *testing.T) {
	secret := []byte("secret")
	sig1 := approval.Sign("root:repo/script.sh", "deadbeef", "sess-1", secret)
	sig2 := approval.Sign("root:repo/script.sh", "deadbeef", "sess-1", secret)
	assert.Equal(t, sig1, sig2)
}

func TestSignDiffersPerSession(t *testing.T) {
	secret := []byte("secret")
	sig1 := approval.Sign("root:repo/script.sh", "deadbeef", "sess-1", secret)
	sig2 := approval.Sign("root:repo/script.sh", "deadbeef", "sess-2", secret)
	assert.NotEqual(t, sig1, sig2)
}

func TestVerifySucceedsForMatchingBinding(t *testing.T) {
	secret := []byte("secret")
	contract := &approval.Contract{Session: "sess-1", Active: true}
	contract.AddSignature("root:repo/script.sh", "deadbeef", secret)

	assert.True(t, approval.Verify(contract, "root:repo/script.sh", "deadbeef", secret))
}

func TestVerifyFailsForInactiveContract(t *testing.T) {
	secret := []byte("secret")
	contract := &approval.Contract{Session: "sess-1", Active: false}
	contract.AddSignature("root:repo/script.sh", "deadbeef", secret)

	assert.False(t, approval.Verify(contract, "root:repo/script.sh", "deadbeef", secret))
}

func TestVerifyFailsForNilContract(t *testing.T) {
	assert.False(t, approval.Verify(nil, "root:repo/script.sh", "deadbeef", []byte("secret")))
}

func TestVerifyFailsForUnknownScript(t *testing.T) {
	secret := []byte("secret")
	contract := &approval.Contract{Session: "sess-1", Active: true}
	contract.AddSignature("root:repo/a.sh", "deadbeef", secret)

	assert.False(t, approval.Verify(contract, "root:repo/b.sh", "deadbeef", secret))
}

func TestVerifyFailsForWrongSecret(t *testing.T) {
	contract := &approval.Contract{Session: "sess-1", Active: true}
	contract.AddSignature("root:repo/script.sh", "deadbeef", []byte("secret-a"))

	assert.False(t, approval.Verify(contract, "root:repo/script.sh", "deadbeef", []byte("secret-b")))
}

func TestVerifyFailsForTamperedContentHash(t *testing.T) {
	secret := []byte("secret")
	contract := &approval.Contract{Session: "sess-1", Active: true}
	contract.AddSignature("root:repo/script.sh", "deadbeef", secret)

	assert.False(t, approval.Verify(contract, "root:repo/script.sh", "tampered", secret))
}
