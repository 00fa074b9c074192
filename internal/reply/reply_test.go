package reply_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ck3fence/ck3fence/internal/reply"
)

func TestKindSuccess(t *testing.T) {
	r := reply.ResolveSuccess("root:repo/a.txt", "repo", "", "a.txt")
	assert.Equal(t, reply.KindSuccess, r.Kind())
}

func TestKindInvalid(t *testing.T) {
	r := reply.ResolveInvalid("not-found")
	assert.Equal(t, reply.KindInvalid, r.Kind())
}

func TestKindDenied(t *testing.T) {
	r := reply.MutationDenied([]string{"has_contract"})
	assert.Equal(t, reply.KindDenied, r.Kind())
	assert.Equal(t, []string{"has_contract"}, r.Data["failed_conditions"])
}

func TestKindError(t *testing.T) {
	r := reply.ToolRuntimeError("disk full")
	assert.Equal(t, reply.KindError, r.Kind())
}

func TestKindOfMalformedCodeIsError(t *testing.T) {
	r := reply.New("not-a-real-code", "", nil)
	assert.Equal(t, reply.KindError, r.Kind())
}

func TestGateDeniedHasNoData(t *testing.T) {
	r := reply.GateDenied()
	assert.Equal(t, reply.CodeGateDenied, r.Code)
	assert.Nil(t, r.Data)
}

func TestLeakDetectedCarriesField(t *testing.T) {
	r := reply.LeakDetected("entries[].path")
	assert.Equal(t, reply.CodeLeakDetected, r.Code)
	assert.Equal(t, "entries[].path", r.Data["field"])
}
