package leakdetect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ck3fence/ck3fence/internal/leakdetect"
	"github.com/ck3fence/ck3fence/internal/reply"
)

func TestMatchWindowsDrive(t *testing.T) {
	assert.True(t, leakdetect.Match(`C:\Users\agent\game.exe`))
}

func TestMatchUNC(t *testing.T) {
	assert.True(t, leakdetect.Match(`\\fileserver\share\data`))
}

func TestMatchMacOSHome(t *testing.T) {
	assert.True(t, leakdetect.Match("/Users/alice/Library/CK3"))
}

func TestMatchLinuxHome(t *testing.T) {
	assert.True(t, leakdetect.Match("/home/bob/.local/share/ck3"))
}

func TestMatchWSLMount(t *testing.T) {
	assert.True(t, leakdetect.Match("/mnt/c/Users/alice"))
}

func TestMatchCanonicalAddressNeverMatches(t *testing.T) {
	assert.False(t, leakdetect.Match("root:repo/src/main.go"))
	assert.False(t, leakdetect.Match("mod:MyMod/common/file.txt"))
}

func TestScanFindsNestedLeak(t *testing.T) {
	value := map[string]interface{}{
		"entries": []interface{}{
			map[string]interface{}{"path": "root:repo/ok.txt"},
			map[string]interface{}{"path": `C:\leaked\path.txt`},
		},
	}
	field, found := leakdetect.Scan(value)
	assert.True(t, found)
	assert.Contains(t, field, "path")
}

func TestScanCleanTreeFindsNothing(t *testing.T) {
	value := map[string]interface{}{
		"entries": []interface{}{
			map[string]interface{}{"path": "root:repo/a.txt", "is_dir": false},
		},
	}
	_, found := leakdetect.Scan(value)
	assert.False(t, found)
}

func TestScanReplyLikeChecksMessageToo(t *testing.T) {
	_, found := leakdetect.ScanReplyLike(nil, `failed reading /home/bob/secret.txt`)
	assert.True(t, found)
}

func TestGuardReplacesLeakedReply(t *testing.T) {
	leaky := reply.New(reply.CodeReadPermitted, "read", map[string]interface{}{
		"content": `see /home/bob/.ck3/output.log for details`,
	})
	guarded := leakdetect.Guard(leaky)
	assert.Equal(t, reply.KindError, guarded.Kind())
}

func TestGuardPassesCleanReplyThrough(t *testing.T) {
	clean := reply.New(reply.CodeReadPermitted, "read", map[string]interface{}{
		"content": "package main",
	})
	guarded := leakdetect.Guard(clean)
	assert.Equal(t, reply.CodeReadPermitted, guarded.Code)
}
