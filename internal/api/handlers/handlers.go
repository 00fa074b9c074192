// Package handlers implements the HTTP surface over the resolver–
// enforcer–capability triad. Each handler is a thin adapter: decode
// request, call into toolgateway/resolver/store, encode the returned
// reply.Reply (or error) as JSON. No policy logic lives here.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ck3fence/ck3fence/internal/api/middleware"
	"github.com/ck3fence/ck3fence/internal/approval"
	"github.com/ck3fence/ck3fence/internal/capability"
	"github.com/ck3fence/ck3fence/internal/config"
	"github.com/ck3fence/ck3fence/internal/leakdetect"
	"github.com/ck3fence/ck3fence/internal/policy"
	"github.com/ck3fence/ck3fence/internal/reply"
	"github.com/ck3fence/ck3fence/internal/resolver"
	"github.com/ck3fence/ck3fence/internal/session"
	"github.com/ck3fence/ck3fence/internal/store"
	"github.com/ck3fence/ck3fence/internal/toolgateway"
	"github.com/ck3fence/ck3fence/pkg/models"
)

// Handlers holds every dependency the HTTP surface needs.
type Handlers struct {
	Store      store.Store
	Roots      *session.RootMap
	Registry   *capability.Registry
	Sessions   *session.Manager
	Visibility policy.VisibilityMatrix
	Operations policy.OperationsMatrix
	Whitelist  policy.Whitelist
	Gateway    *toolgateway.Gateway
	Mode       func() (string, bool)
	Cfg        *config.Config
}

// ── request/response helpers ─────────────────────────────────

func writeReply(w http.ResponseWriter, r reply.Reply) {
	status := http.StatusOK
	switch r.Kind() {
	case reply.KindInvalid:
		status = http.StatusBadRequest
	case reply.KindDenied:
		status = http.StatusForbidden
	case reply.KindError:
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handlers) sessionOf(r *http.Request) (*session.Session, bool) {
	id := middleware.GetSession(r.Context())
	if id == "" {
		return nil, false
	}
	return h.Sessions.GetOrCreate(id), true
}

// buildContext assembles the policy.Context condition predicates read for
// a given session: the active contract (from the approval store) and the
// protected command whitelist.
func (h *Handlers) buildContext(r *http.Request, sess *session.Session) policy.Context {
	ctx := policy.Context{
		Session:       sess,
		SessionSecret: h.Cfg.Policy.SessionSecret,
		Whitelist:     h.Whitelist.Commands,
	}

	rec, err := h.Store.GetApproval(r.Context(), sess.ID())
	if err == nil && rec != nil {
		ctx.HasContract = rec.Active
		ctx.Contract = toDomainContract(rec)
	}
	return ctx
}

func toDomainContract(rec *models.ApprovalRecord) *approval.Contract {
	scripts := make([]approval.SignedScript, 0, len(rec.Scripts))
	for _, s := range rec.Scripts {
		scripts = append(scripts, approval.SignedScript{
			CanonicalPath: s.CanonicalPath,
			ContentHash:   s.ContentHash,
			Signature:     s.Signature,
			SignedAt:      s.SignedAt,
		})
	}
	return &approval.Contract{Session: rec.Session, Active: rec.Active, Scripts: scripts}
}

// ── health & version ──────────────────────────────────────────

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "ck3fence"})
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.Cfg.Version, "service": "ck3fence"})
}

// ── resolve (C4, exposed standalone for inspection/debugging) ────

type resolveRequest struct {
	Address       string `json:"address"`
	RequireExists bool   `json:"require_exists"`
}

func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing session (X-Session header or ?session=)")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	deps := resolver.Deps{
		Roots:      h.Roots,
		Registry:   h.Registry,
		Visibility: h.Visibility,
		Mode:       h.Mode,
		Session:    sess,
		Extra:      h.buildContext(r, sess),
	}
	rep, _ := resolver.Resolve(req.Address, req.RequireExists, deps)
	writeReply(w, leakdetect.Guard(rep))
}

// ── tool calls (resolve → enforce → perform, C9 end to end) ──────

type toolCallRequest struct {
	Address    string                 `json:"address"`
	Payload    map[string]interface{} `json:"payload"`
	RawCommand string                 `json:"raw_command"`
}

func (h *Handlers) ToolCall(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing session (X-Session header or ?session=)")
		return
	}

	tool := chi.URLParam(r, "tool")
	command := chi.URLParam(r, "command")

	var req toolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if req.RawCommand != "" {
		payload["raw_command"] = req.RawCommand
	}

	predCtx := h.buildContext(r, sess)
	predCtx.ScriptPath, _ = payload["script_path"].(string)
	predCtx.ContentHash, _ = payload["content_hash"].(string)

	rep := h.Gateway.Call(r.Context(), sess, tool, command, req.Address, payload, predCtx)
	writeReply(w, rep)
}

// ── active mod list (C2, session-scoped) ──────────────────────

type setModsRequest struct {
	Mods []session.Mod `json:"mods"`
}

func (h *Handlers) SetMods(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing session (X-Session header or ?session=)")
		return
	}

	var req setModsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess.SetMods(req.Mods)
	writeJSON(w, http.StatusOK, map[string]interface{}{"mods": sess.Snapshot()})
}

func (h *Handlers) GetMods(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing session (X-Session header or ?session=)")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mods": sess.Snapshot()})
}

// ── approvals / contracts (C11) ────────────────────────────────

// OpenContract activates the session's approval contract, the gate
// has_contract reads. Opening is a human-initiated action in the host
// IDE — ck3fence only records it.
func (h *Handlers) OpenContract(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing session (X-Session header or ?session=)")
		return
	}

	now := time.Now().UTC()
	rec, err := h.Store.GetApproval(r.Context(), sess.ID())
	if err != nil {
		rec = &models.ApprovalRecord{Session: sess.ID(), Active: true, CreatedAt: now, UpdatedAt: now}
		if err := h.Store.CreateApproval(r.Context(), rec); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		rec.Active = true
		rec.UpdatedAt = now
		if err := h.Store.UpdateApproval(r.Context(), rec); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) CloseContract(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing session (X-Session header or ?session=)")
		return
	}

	rec, err := h.Store.GetApproval(r.Context(), sess.ID())
	if err != nil {
		writeError(w, http.StatusNotFound, "no contract for this session")
		return
	}
	rec.Active = false
	rec.UpdatedAt = time.Now().UTC()
	if err := h.Store.UpdateApproval(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) GetContract(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	rec, err := h.Store.GetApproval(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no contract for this session")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) ListContracts(w http.ResponseWriter, r *http.Request) {
	active := r.URL.Query().Get("active") != "false"
	recs, err := h.Store.ListApprovals(r.Context(), active, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// signScriptRequest is submitted by the host IDE's signing UI after a
// human reviews a script — never by the agent itself.
type signScriptRequest struct {
	CanonicalPath string `json:"canonical_path"`
	ContentHash   string `json:"content_hash"`
}

func (h *Handlers) SignScript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	var req signScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CanonicalPath == "" || req.ContentHash == "" {
		writeError(w, http.StatusBadRequest, "canonical_path and content_hash are required")
		return
	}

	rec, err := h.Store.GetApproval(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no contract for this session — open one first")
		return
	}

	sig := approval.Sign(req.CanonicalPath, req.ContentHash, sessionID, h.Cfg.Policy.SessionSecret)
	rec.Scripts = append(rec.Scripts, models.SignedScriptEntry{
		CanonicalPath: req.CanonicalPath,
		ContentHash:   req.ContentHash,
		Signature:     sig,
		SignedAt:      time.Now().UTC(),
	})
	rec.UpdatedAt = time.Now().UTC()
	if err := h.Store.UpdateApproval(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ── audit (read-only — events are created by the gateway) ─────

func (h *Handlers) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter := models.AuditFilter{
		Mode:    r.URL.Query().Get("mode"),
		Code:    r.URL.Query().Get("code"),
		Session: r.URL.Query().Get("session"),
	}
	events, err := h.Store.ListAuditEvents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) CountAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter := models.AuditFilter{
		Mode: r.URL.Query().Get("mode"),
	}
	count, err := h.Store.CountAuditEvents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}
