package policy

// Mode is the agent's operational role. The closed set is {ck3lens,
// ck3raven-dev}; ModeAny is a matrix-only wildcard meaning "any mode",
// never a value the mode source itself returns.
type Mode = string

const (
	ModeCK3Lens     Mode = "ck3lens"
	ModeCK3RavenDev Mode = "ck3raven-dev"
	ModeAny         Mode = "*"
)

// MatrixKey identifies one row of either matrix. Subdir is "" for a
// root-level (no-subdirectory) entry.
type MatrixKey struct {
	Mode    Mode
	RootKey string
	Subdir  string
}

// VisibilityRule lists the (possibly empty) conditions gating visibility
// of a (mode, root_key, subdir) coordinate. An empty tuple is
// unconditional visibility.
type VisibilityRule struct {
	Conditions []Condition
}

// VisibilityMatrix is pure, immutable data built once at process start.
type VisibilityMatrix map[MatrixKey]VisibilityRule

// Lookup resolves a (mode, rootKey, subdir) coordinate against the
// matrix. Preference order: exact (mode, root, subdir), then
// (mode, root, ""), then the same two with mode replaced by the "*"
// wildcard. Absence at every tier denies structurally.
func (m VisibilityMatrix) Lookup(mode, rootKey, subdir string) (VisibilityRule, bool) {
	for _, k := range candidateKeys(mode, rootKey, subdir) {
		if r, ok := m[k]; ok {
			return r, true
		}
	}
	return VisibilityRule{}, false
}

// CommandKey is a concrete (tool, command) pair an OperationRule's command
// set may contain.
type CommandKey struct {
	Tool    string
	Command string
}

// OperationRule is one entry in an operations-matrix row's ordered tuple.
// ExecSentinel, when true, makes this rule match any command under the
// "exec" tool by tool-name identity alone — the sentinel case for shell
// execution, which has no finite command set.
type OperationRule struct {
	Commands     map[CommandKey]bool
	ExecSentinel bool
	Conditions   []Condition
}

// Matches reports whether this rule governs the given (tool, command)
// call.
func (r OperationRule) Matches(tool, command string) bool {
	if r.ExecSentinel && tool == "exec" {
		return true
	}
	return r.Commands[CommandKey{Tool: tool, Command: command}]
}

// OperationsMatrix is pure, immutable data built once at process start.
type OperationsMatrix map[MatrixKey][]OperationRule

// Lookup resolves a (mode, rootKey, subdir) coordinate to its ordered
// rule tuple, with the same fallback order as VisibilityMatrix.Lookup.
func (m OperationsMatrix) Lookup(mode, rootKey, subdir string) ([]OperationRule, bool) {
	for _, k := range candidateKeys(mode, rootKey, subdir) {
		if rules, ok := m[k]; ok {
			return rules, true
		}
	}
	return nil, false
}

func candidateKeys(mode, rootKey, subdir string) []MatrixKey {
	keys := make([]MatrixKey, 0, 4)
	if subdir != "" {
		keys = append(keys, MatrixKey{Mode: mode, RootKey: rootKey, Subdir: subdir})
	}
	keys = append(keys, MatrixKey{Mode: mode, RootKey: rootKey, Subdir: ""})
	if mode != ModeAny {
		if subdir != "" {
			keys = append(keys, MatrixKey{Mode: ModeAny, RootKey: rootKey, Subdir: subdir})
		}
		keys = append(keys, MatrixKey{Mode: ModeAny, RootKey: rootKey, Subdir: ""})
	}
	return keys
}

// ExecSentinelKey is a reserved CommandKey value. Matches gives it no
// special meaning: inside a Commands set it matches only an exec call whose
// command is literally "*". The exec sentinel itself is expressed with
// OperationRule{ExecSentinel: true}.
var ExecSentinelKey = CommandKey{Tool: "exec", Command: "*"}
