// Package policy implements the visibility matrix (C6), the operations
// matrix (C7), and the condition predicates (C8) that both matrices gate
// mutations on. All three are pure data plus pure functions: nothing here
// touches the filesystem or the capability registry.
package policy

import (
	"github.com/ck3fence/ck3fence/internal/approval"
	"github.com/ck3fence/ck3fence/internal/session"
)

// Context is the predicate context bag. It is assembled by the resolver
// (for visibility conditions) or the enforcer (for operation conditions)
// and passed by value — conditions never mutate it.
type Context struct {
	Session *session.Session
	HostAbs string
	ModName string // set when the resolved namespace is mod:

	HasContract bool
	Contract    *approval.Contract

	ScriptPath    string
	ContentHash   string
	SessionSecret []byte

	RawCommand string
	Whitelist  []string
}

// ConditionFunc evaluates a Context and returns true/false. Conditions are
// pure: they read the context bag and never produce a Reply themselves —
// that is the enforcer's job. A predicate must never panic; any internal
// error is treated as a normal false (deny-by-default).
type ConditionFunc func(ctx Context) bool

// Condition pairs a stable name with its check function. The name is
// surfaced in EN-WRITE-D-001/EN-EXEC-D-001's failed_conditions field.
type Condition struct {
	Name  string
	Check ConditionFunc
}

func (c Condition) eval(ctx Context) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return c.Check(ctx)
}

// EvaluateAll runs conditions in declaration order and returns the names
// of every one that evaluated false. An empty result means all passed.
func EvaluateAll(conditions []Condition, ctx Context) []string {
	var failed []string
	for _, c := range conditions {
		if !c.eval(ctx) {
			failed = append(failed, c.Name)
		}
	}
	return failed
}

// HasContract is true iff an active contract exists in the contract
// subsystem for the current session.
var HasContract = Condition{
	Name: "has_contract",
	Check: func(ctx Context) bool {
		return ctx.HasContract && ctx.Contract != nil && ctx.Contract.Active
	},
}

// ExecSigned is true iff the active contract carries an HMAC binding
// (canonical_script_path, sha256(content), session_id) that verifies
// under the session secret. Verification itself lives in the approval
// package (C11); this predicate is a thin caller.
var ExecSigned = Condition{
	Name: "exec_signed",
	Check: func(ctx Context) bool {
		if ctx.Contract == nil || ctx.ScriptPath == "" || ctx.ContentHash == "" {
			return false
		}
		return approval.Verify(ctx.Contract, ctx.ScriptPath, ctx.ContentHash, ctx.SessionSecret)
	},
}

// PathInActiveMods is true iff the resolved host path lies under some mod
// entry in the session's active mod list.
var PathInActiveMods = Condition{
	Name: "path_in_active_mods",
	Check: func(ctx Context) bool {
		if ctx.Session == nil || ctx.HostAbs == "" {
			return false
		}
		_, ok := ctx.Session.FindModContaining(ctx.HostAbs)
		return ok
	},
}

// CommandWhitelisted is true iff the raw shell string matches a prefix in
// the protected command-whitelist file. Prefix semantics: pattern == cmd
// or cmd starts with pattern + " ".
var CommandWhitelisted = Condition{
	Name: "command_whitelisted",
	Check: func(ctx Context) bool {
		if ctx.RawCommand == "" {
			return false
		}
		for _, pattern := range ctx.Whitelist {
			if pattern == "" {
				continue
			}
			if ctx.RawCommand == pattern || hasPrefixWord(ctx.RawCommand, pattern) {
				return true
			}
		}
		return false
	},
}

func hasPrefixWord(cmd, pattern string) bool {
	if len(cmd) <= len(pattern) {
		return false
	}
	return cmd[:len(pattern)] == pattern && cmd[len(pattern)] == ' '
}
