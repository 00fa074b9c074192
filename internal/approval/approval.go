// Package approval implements the script-approval signer/verifier (C11):
// binding a canonical script path and its content hash to a session via an
// HMAC-SHA256 signature, the same pattern used for service-account token
// signing, repurposed here for human-gated script execution rather than
// API authentication.
//
// Signing requires a human step in the host IDE's signing UI — this
// package only ever verifies, plus exposes Sign for that external UI to
// call into.
package approval

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// SignedScript binds one canonical script path to the content hash it was
// signed against and the signature itself.
type SignedScript struct {
	CanonicalPath string
	ContentHash   string // hex-encoded sha256
	Signature     string // base64 HMAC-SHA256
	SignedAt      time.Time
}

// Contract is the opaque "active contract" object the condition
// predicates read: whether mutations are currently gated open, plus any
// scripts signed for privileged execution under it.
type Contract struct {
	Session string
	Active  bool
	Scripts []SignedScript
}

// payload reproduces the exact bind order required for the signature:
// canonical_session_abs || sha256(file_contents) || session_id.
func payload(canonicalPath, contentHash, sessionID string) []byte {
	buf := make([]byte, 0, len(canonicalPath)+len(contentHash)+len(sessionID))
	buf = append(buf, canonicalPath...)
	buf = append(buf, contentHash...)
	buf = append(buf, sessionID...)
	return buf
}

// Sign produces an HMAC-SHA256 signature over the bind payload under
// secret. This is invoked by the host IDE's signing UI after a human
// reviews the script, through the contract-signing HTTP route
// (handlers.SignScript, POST /v1/contracts/{session}/scripts); the
// tool-call route never invokes it.
func Sign(canonicalPath, contentHash, sessionID string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload(canonicalPath, contentHash, sessionID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the bind payload using the contract's session and
// checks it against the contract's stored signature for scriptPath. A
// missing contract, missing script entry, or mismatched signature all
// return false — never an error. Constant-time comparison is used so a
// malformed or forged signature is not distinguishable via timing.
func Verify(contract *Contract, scriptPath, contentHash string, secret []byte) bool {
	if contract == nil || !contract.Active {
		return false
	}
	for _, s := range contract.Scripts {
		if s.CanonicalPath != scriptPath || s.ContentHash != contentHash {
			continue
		}
		want := Sign(scriptPath, contentHash, contract.Session, secret)
		sigBytes, err := base64.StdEncoding.DecodeString(s.Signature)
		if err != nil {
			return false
		}
		wantBytes, err := base64.StdEncoding.DecodeString(want)
		if err != nil {
			return false
		}
		return hmac.Equal(sigBytes, wantBytes)
	}
	return false
}

// AddSignature appends a freshly signed script binding to the contract.
// Called only by the trusted IDE-signing path, never by agent-reachable
// code.
func (c *Contract) AddSignature(scriptPath, contentHash string, secret []byte) {
	sig := Sign(scriptPath, contentHash, c.Session, secret)
	c.Scripts = append(c.Scripts, SignedScript{
		CanonicalPath: scriptPath,
		ContentHash:   contentHash,
		Signature:     sig,
		SignedAt:      time.Now(),
	})
}
