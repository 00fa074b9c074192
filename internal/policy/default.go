package policy

// DefaultVisibilityMatrix builds the illustrative visibility policy named
// in the external-interfaces section: ck3lens sees game, ck3raven_data,
// vscode, and repo unconditionally, steam and user_docs/mod only inside
// the active mod set; ck3raven-dev sees every root unconditionally.
func DefaultVisibilityMatrix() VisibilityMatrix {
	return VisibilityMatrix{
		{Mode: ModeCK3Lens, RootKey: "game", Subdir: ""}:          {},
		{Mode: ModeCK3Lens, RootKey: "ck3raven_data", Subdir: ""}: {},
		{Mode: ModeCK3Lens, RootKey: "vscode", Subdir: ""}:        {},
		{Mode: ModeCK3Lens, RootKey: "repo", Subdir: ""}:          {},
		{Mode: ModeCK3Lens, RootKey: "steam", Subdir: ""}: {
			Conditions: []Condition{PathInActiveMods},
		},
		{Mode: ModeCK3Lens, RootKey: "user_docs", Subdir: "mod"}: {
			Conditions: []Condition{PathInActiveMods},
		},

		{Mode: ModeCK3RavenDev, RootKey: "repo", Subdir: ""}:          {},
		{Mode: ModeCK3RavenDev, RootKey: "game", Subdir: ""}:          {},
		{Mode: ModeCK3RavenDev, RootKey: "steam", Subdir: ""}:         {},
		{Mode: ModeCK3RavenDev, RootKey: "user_docs", Subdir: ""}:     {},
		{Mode: ModeCK3RavenDev, RootKey: "ck3raven_data", Subdir: ""}: {},
		{Mode: ModeCK3RavenDev, RootKey: "vscode", Subdir: ""}:        {},

		// Virtual root key "mod" covers every mod: address. Membership in
		// the session's active mod list is already the primary gate (C2's
		// lookup fails closed for a mod not in the playset); this row
		// exists only so subdir-specific mod policy has somewhere to live.
		{Mode: ModeAny, RootKey: VirtualModRootKey, Subdir: ""}: {},
	}
}

// VirtualModRootKey is the matrix root_key used for mod: addresses. The
// closed root-key set (§3) names only host-directory roots; mod names are
// unbounded, so mod: addresses are keyed uniformly under this sentinel
// rather than one matrix row per mod.
const VirtualModRootKey = "mod"

func readCommands(tool string, commands ...string) map[CommandKey]bool {
	set := make(map[CommandKey]bool, len(commands))
	for _, c := range commands {
		set[CommandKey{Tool: tool, Command: c}] = true
	}
	return set
}

// DefaultOperationsMatrix builds the illustrative operations policy:
// ck3lens may read game unconditionally; user_docs/mod reads freely and
// writes only with an active contract; ck3raven-dev reads repo freely and
// mutates (file writes, git mutations) only with an active contract;
// ck3raven_data/wip permits exec only when whitelisted or script-signed;
// ck3raven_data/db permits nothing — it belongs to the storage daemon.
func DefaultOperationsMatrix() OperationsMatrix {
	return OperationsMatrix{
		{Mode: ModeCK3Lens, RootKey: "game", Subdir: ""}: {
			{Commands: readCommands("dir", "list", "stat"), Conditions: nil},
			{Commands: readCommands("file", "read"), Conditions: nil},
		},
		{Mode: ModeCK3Lens, RootKey: "user_docs", Subdir: "mod"}: {
			{Commands: readCommands("dir", "list", "stat"), Conditions: nil},
			{Commands: readCommands("file", "read"), Conditions: nil},
			{Commands: readCommands("file", "write", "delete"), Conditions: []Condition{HasContract}},
		},

		{Mode: ModeCK3RavenDev, RootKey: "repo", Subdir: ""}: {
			{Commands: readCommands("dir", "list", "stat"), Conditions: nil},
			{Commands: readCommands("file", "read"), Conditions: nil},
			{Commands: readCommands("file", "write", "delete"), Conditions: []Condition{HasContract}},
			{Commands: readCommands("git", "add", "commit", "push", "checkout", "branch"), Conditions: []Condition{HasContract}},
			{Commands: readCommands("git", "status", "log", "diff"), Conditions: nil},
		},

		{Mode: ModeAny, RootKey: "ck3raven_data", Subdir: "wip"}: {
			{
				Commands:     nil,
				ExecSentinel: true,
				Conditions:   []Condition{anyOf("command_whitelisted_or_signed", CommandWhitelisted, ExecSigned)},
			},
		},
		{Mode: ModeAny, RootKey: "ck3raven_data", Subdir: "db"}: {
			// Deliberately empty rule tuple: every operation falls through
			// to EN-GATE-D-001. The storage/indexing daemon owns this path.
		},

		{Mode: ModeAny, RootKey: VirtualModRootKey, Subdir: ""}: {
			{Commands: readCommands("dir", "list", "stat"), Conditions: nil},
			{Commands: readCommands("file", "read"), Conditions: nil},
			{Commands: readCommands("file", "write", "delete"), Conditions: []Condition{HasContract}},
		},
	}
}

// anyOf combines conditions with OR semantics under a single named
// predicate, used for the exec rule's "whitelisted ∨ signed" gate. The
// enforcer still reports this single name on denial, matching the
// spec's EN-EXEC-D-001 area-specific code rather than two separate
// failed_conditions entries for what is really one gate.
func anyOf(name string, conditions ...Condition) Condition {
	return Condition{
		Name: name,
		Check: func(ctx Context) bool {
			for _, c := range conditions {
				if c.eval(ctx) {
					return true
				}
			}
			return false
		},
	}
}
