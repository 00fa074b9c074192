// Package resolver implements the resolver (C4) — the single entry point
// that composes the address parser (C1), the root/session model (C2),
// the capability registry (C3), and the visibility matrix/conditions
// (C6+C8) into one resolve() call. It is the only component permitted to
// mint a capability token.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ck3fence/ck3fence/internal/address"
	"github.com/ck3fence/ck3fence/internal/capability"
	"github.com/ck3fence/ck3fence/internal/policy"
	"github.com/ck3fence/ck3fence/internal/reply"
	"github.com/ck3fence/ck3fence/internal/session"
)

// ModeSource reads the agent's current operational mode lazily, once per
// call. Deployments back this with whatever process-wide mechanism picks
// the active mode; tests back it with a constant.
type ModeSource func() (mode string, ok bool)

// Deps bundles everything resolve() composes, besides the per-call input.
// Root map, matrix, and registry are long-lived and shared across calls;
// Session is the caller's session for this request.
type Deps struct {
	Roots      *session.RootMap
	Registry   *capability.Registry
	Visibility policy.VisibilityMatrix
	Mode       ModeSource
	Session    *session.Session

	// Extra is merged into the predicate Context for visibility
	// conditions beyond the ones the resolver fills in itself (HostAbs,
	// ModName, Session) — e.g. HasContract for a hypothetical gated root.
	Extra policy.Context
}

// Resolve is C4's single entry point. require_exists defaults to true at
// call sites that care about existence; callers that don't need the file
// to exist yet (e.g. pre-creating a path) pass false.
func Resolve(input string, requireExists bool, deps Deps) (reply.Reply, *capability.CapRef) {
	mode, ok := deps.Mode()
	if !ok {
		return reply.ModeUninitialized(), nil
	}

	parsed, perr := address.Parse(input)
	if perr != nil {
		return reply.ResolveInvalid(perr.Cause), nil
	}

	var (
		rootHost  string
		matrixKey string
		modName   string
	)
	switch parsed.Namespace {
	case address.NamespaceRoot:
		h, ok := deps.Roots.HostPath(parsed.Key)
		if !ok {
			return reply.ResolveInvalid("unknown-root"), nil
		}
		rootHost = h
		matrixKey = parsed.Key
	case address.NamespaceMod:
		h, ok := deps.Session.ModHostPath(parsed.Key)
		if !ok {
			return reply.ResolveInvalid("unknown-mod"), nil
		}
		rootHost = h
		matrixKey = policy.VirtualModRootKey
		modName = parsed.Key
	default:
		return reply.ResolveInvalid("unknown-namespace"), nil
	}

	hostAbs, contained := joinContained(rootHost, parsed.RelativePath)
	if !contained {
		return reply.ResolveInvalid("path-escape"), nil
	}

	subdirectory := parsed.FirstSegment()

	rule, ok := deps.Visibility.Lookup(mode, matrixKey, subdirectory)
	if !ok {
		return reply.ResolveInvalid("not-visible"), nil
	}

	ctx := deps.Extra
	ctx.Session = deps.Session
	ctx.HostAbs = hostAbs
	ctx.ModName = modName

	if failed := policy.EvaluateAll(rule.Conditions, ctx); len(failed) > 0 {
		log.Debug().Str("mode", mode).Str("root_key", matrixKey).
			Strs("failed_conditions", failed).Msg("resolve: visibility denied")
		return reply.ResolveInvalid("not-visible"), nil
	}

	if requireExists {
		if _, err := os.Stat(hostAbs); err != nil {
			return reply.ResolveInvalid("not-found"), nil
		}
	}

	token, err := deps.Registry.Mint(hostAbs)
	if err != nil {
		return reply.ResolveCapacityExceeded(), nil
	}

	resolved := parsed.Emit()
	capRef := capability.NewCapRef(token, resolved)

	log.Debug().Str("mode", mode).Str("resolved", resolved).
		Str("root_key", matrixKey).Str("subdirectory", subdirectory).
		Msg("resolve: success")

	return reply.ResolveSuccess(resolved, matrixKey, subdirectory, parsed.RelativePath), &capRef
}

// joinContained lexically joins rootHost and relPath (no symlink
// resolution — the containment invariant is purely textual/lexical) and
// verifies the result stays under rootHost.
func joinContained(rootHost, relPath string) (string, bool) {
	joined := filepath.Join(rootHost, filepath.FromSlash(relPath))
	cleanRoot := filepath.Clean(rootHost)
	cleanJoined := filepath.Clean(joined)
	if cleanJoined == cleanRoot {
		return cleanJoined, true
	}
	if !strings.HasPrefix(cleanJoined, cleanRoot+string(filepath.Separator)) {
		return "", false
	}
	return cleanJoined, true
}
