// Package enforcer implements the enforcer (C9): a single enforce() call
// that scans the operations matrix (C7), runs condition predicates (C8),
// and returns a typed reply (C10). The enforcer never touches the
// filesystem directly — it reasons purely over already-resolved
// coordinates and the context bag, which keeps it deterministic and
// hermetic to test.
package enforcer

import (
	"github.com/rs/zerolog/log"

	"github.com/ck3fence/ck3fence/internal/policy"
	"github.com/ck3fence/ck3fence/internal/reply"
)

// Deps bundles the operations matrix the enforcer scans.
type Deps struct {
	Operations policy.OperationsMatrix
}

// Enforce is C9's single entry point.
func Enforce(mode, tool, command, rootKey, subdir string, ctx policy.Context, deps Deps) reply.Reply {
	rules, ok := deps.Operations.Lookup(mode, rootKey, subdir)
	if !ok {
		return reply.GateDenied()
	}

	var rule *policy.OperationRule
	for i := range rules {
		if rules[i].Matches(tool, command) {
			rule = &rules[i]
			break
		}
	}
	if rule == nil {
		return reply.GateDenied()
	}

	if len(rule.Conditions) == 0 {
		return reply.ReadPermitted()
	}

	failed := policy.EvaluateAll(rule.Conditions, ctx)
	if len(failed) > 0 {
		log.Debug().Str("mode", mode).Str("tool", tool).Str("command", command).
			Str("root_key", rootKey).Str("subdirectory", subdir).
			Strs("failed_conditions", failed).Msg("enforce: denied")
		if tool == "exec" {
			return reply.ExecDenied(failed)
		}
		return reply.MutationDenied(failed)
	}

	if tool == "exec" {
		return reply.ExecPermitted()
	}
	return reply.MutationPermitted()
}
