package policy

import (
	"encoding/json"
	"os"
)

// Whitelist is the parsed form of the protected command-whitelist file
// (policy/command_whitelist.json). An empty or missing list means no
// command is whitelisted — command_whitelisted evaluates false for
// everything.
type Whitelist struct {
	SchemaVersion string   `json:"schema_version"`
	Description   string   `json:"description"`
	Commands      []string `json:"commands"`
}

// LoadWhitelist reads and parses the whitelist file at path. A missing
// file is not an error — it is treated the same as an empty list: empty
// or missing means no command is whitelisted.
func LoadWhitelist(path string) (Whitelist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Whitelist{SchemaVersion: "1"}, nil
		}
		return Whitelist{}, err
	}
	var w Whitelist
	if err := json.Unmarshal(data, &w); err != nil {
		return Whitelist{}, err
	}
	return w, nil
}
