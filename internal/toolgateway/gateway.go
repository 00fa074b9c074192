// Package toolgateway is the reference "agent tool frontend" the CORE
// spec treats as an external collaborator (§6's "Tool entry (abstract)").
// It is a thin, concrete adapter over dir/file/git/exec operations so the
// resolver–enforcer–capability triad is exercised end-to-end rather than
// left as an interface nobody calls. Production deployments may replace
// this with their own frontend; the triad underneath does not change.
package toolgateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ck3fence/ck3fence/internal/capability"
	"github.com/ck3fence/ck3fence/internal/enforcer"
	"github.com/ck3fence/ck3fence/internal/leakdetect"
	"github.com/ck3fence/ck3fence/internal/policy"
	"github.com/ck3fence/ck3fence/internal/reply"
	"github.com/ck3fence/ck3fence/internal/resolver"
	"github.com/ck3fence/ck3fence/internal/session"
	"github.com/ck3fence/ck3fence/internal/shellexec"
)

// AuditSink receives one event per resolve/enforce decision. Implemented
// by internal/auditsink's Recorder (on top of internal/store's AuditStore)
// in the full server wiring; nil is a valid no-op value for tests.
type AuditSink interface {
	RecordAudit(ctx context.Context, sessionID, mode, tool, command, rootKey, subdir, code string)
}

// Gateway wires together everything a tool call needs: the root map,
// capability registry, and policy matrices the resolver/enforcer consult.
type Gateway struct {
	Roots      *session.RootMap
	Registry   *capability.Registry
	Visibility policy.VisibilityMatrix
	Operations policy.OperationsMatrix
	Mode       resolver.ModeSource
	Audit      AuditSink
}

// Call dispatches one (tool, command, address, payload) request per the
// spec's three-step mutating-tool contract: resolve, enforce, then — only
// on enforcer success — perform the I/O and leak-scan the reply.
func (g *Gateway) Call(ctx context.Context, sess *session.Session, tool, command, addr string, payload map[string]interface{}, predCtx policy.Context) reply.Reply {
	requireExists := needsExist(tool, command)

	resolveReply, capRef := resolver.Resolve(addr, requireExists, resolver.Deps{
		Roots:      g.Roots,
		Registry:   g.Registry,
		Visibility: g.Visibility,
		Mode:       g.Mode,
		Session:    sess,
		Extra:      predCtx,
	})
	if resolveReply.Kind() != reply.KindSuccess {
		g.recordAudit(ctx, sess.ID(), tool, command, "", "", resolveReply.Code)
		return leakdetect.Guard(resolveReply)
	}

	rootKey, _ := resolveReply.Data["root_key"].(string)
	subdir, _ := resolveReply.Data["subdirectory"].(string)
	mode, _ := g.Mode()

	hostAbs, ok := g.Registry.Lookup(capRef.Token())
	if !ok {
		return leakdetect.Guard(reply.ToolRuntimeError("capability vanished between resolve and use"))
	}

	predCtx.HostAbs = hostAbs
	if raw, ok := payload["raw_command"].(string); ok {
		predCtx.RawCommand = raw
	}

	enforceReply := enforcer.Enforce(mode, tool, command, rootKey, subdir, predCtx, enforcer.Deps{
		Operations: g.Operations,
	})
	g.recordAudit(ctx, sess.ID(), tool, command, rootKey, subdir, enforceReply.Code)
	if enforceReply.Kind() != reply.KindSuccess {
		return leakdetect.Guard(enforceReply)
	}

	result := g.perform(ctx, tool, command, hostAbs, capRef.SessionAbs(), payload)
	return leakdetect.Guard(result)
}

func (g *Gateway) recordAudit(ctx context.Context, sessionID, tool, command, rootKey, subdir, code string) {
	if g.Audit == nil {
		return
	}
	mode, _ := g.Mode()
	g.Audit.RecordAudit(ctx, sessionID, mode, tool, command, rootKey, subdir, code)
}

func needsExist(tool, command string) bool {
	switch tool {
	case "file":
		return command == "read" || command == "delete"
	case "dir":
		return true
	case "git":
		return true
	case "exec":
		return true
	default:
		return true
	}
}

func (g *Gateway) perform(ctx context.Context, tool, command, hostAbs, resolved string, payload map[string]interface{}) reply.Reply {
	switch tool {
	case "dir":
		return g.performDir(command, hostAbs, resolved)
	case "file":
		return g.performFile(command, hostAbs, payload)
	case "git":
		return g.performGit(ctx, command, hostAbs, payload)
	case "exec":
		return g.performExec(ctx, hostAbs, payload)
	default:
		return reply.ToolRuntimeError(fmt.Sprintf("unknown tool %q", tool))
	}
}

func (g *Gateway) performDir(command, hostAbs, resolved string) reply.Reply {
	switch command {
	case "list":
		entries, err := os.ReadDir(hostAbs)
		if err != nil {
			return reply.ToolRuntimeError(err.Error())
		}
		items := make([]interface{}, 0, len(entries))
		for _, e := range entries {
			items = append(items, map[string]interface{}{
				"path":   joinResolved(resolved, e.Name()),
				"is_dir": e.IsDir(),
			})
		}
		return reply.New(reply.CodeReadPermitted, "listed", map[string]interface{}{"entries": items})
	case "stat":
		info, err := os.Stat(hostAbs)
		if err != nil {
			return reply.ToolRuntimeError(err.Error())
		}
		return reply.New(reply.CodeReadPermitted, "stat", map[string]interface{}{
			"size":    info.Size(),
			"is_dir":  info.IsDir(),
			"mod_time": info.ModTime().Format(time.RFC3339),
		})
	default:
		return reply.ToolRuntimeError(fmt.Sprintf("unknown dir command %q", command))
	}
}

func joinResolved(resolved, name string) string {
	if resolved == "" {
		return name
	}
	if resolved[len(resolved)-1] == '/' {
		return resolved + name
	}
	return resolved + "/" + name
}

func (g *Gateway) performFile(command, hostAbs string, payload map[string]interface{}) reply.Reply {
	switch command {
	case "read":
		data, err := os.ReadFile(hostAbs)
		if err != nil {
			return reply.ToolRuntimeError(err.Error())
		}
		return reply.New(reply.CodeReadPermitted, "read", map[string]interface{}{"content": string(data)})
	case "write":
		content, _ := payload["content"].(string)
		if err := os.MkdirAll(filepath.Dir(hostAbs), 0o755); err != nil {
			return reply.ToolRuntimeError(err.Error())
		}
		if err := os.WriteFile(hostAbs, []byte(content), 0o644); err != nil {
			return reply.ToolRuntimeError(err.Error())
		}
		return reply.MutationPermitted()
	case "delete":
		if err := os.Remove(hostAbs); err != nil {
			return reply.ToolRuntimeError(err.Error())
		}
		return reply.MutationPermitted()
	default:
		return reply.ToolRuntimeError(fmt.Sprintf("unknown file command %q", command))
	}
}

func (g *Gateway) performGit(ctx context.Context, command, hostAbs string, payload map[string]interface{}) reply.Reply {
	args, _ := payload["args"].(string)
	cmd := "git " + command
	if args != "" {
		cmd += " " + args
	}
	res, err := shellexec.Run(ctx, cmd, hostAbs, 0)
	if err != nil {
		return reply.ToolRuntimeError(err.Error())
	}
	return reply.New(reply.CodeMutationPermitted, "git command ran", map[string]interface{}{
		"stdout":    res.Stdout,
		"stderr":    res.Stderr,
		"exit_code": res.ExitCode,
	})
}

func (g *Gateway) performExec(ctx context.Context, hostAbs string, payload map[string]interface{}) reply.Reply {
	raw, _ := payload["raw_command"].(string)
	res, err := shellexec.Run(ctx, raw, hostAbs, 0)
	if err != nil {
		return reply.ToolRuntimeError(err.Error())
	}
	return reply.New(reply.CodeExecPermitted, "exec ran", map[string]interface{}{
		"stdout":    res.Stdout,
		"stderr":    res.Stderr,
		"exit_code": res.ExitCode,
		"timed_out": res.TimedOut,
	})
}
