package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved paths for the fontkeep state directory.
type Paths struct {
	Home string // fontkeep state root
	Etc  string // <home>/etc
	Var  string // <home>/var

	// Key files
	Policy      string // <home>/etc/policy.yaml
	Journal     string // <home>/var/journal.json
	JournalLock string // <home>/var/journal.lock
}

// ResolvePaths returns all paths based on the FONTKEEP_HOME environment
// variable, falling back to the per-user config directory.
func ResolvePaths() Paths {
	home := os.Getenv("FONTKEEP_HOME")
	if home == "" {
		if cfg, err := os.UserConfigDir(); err == nil {
			home = filepath.Join(cfg, "fontkeep")
		} else {
			home = ".fontkeep"
		}
	}

	p := Paths{
		Home: home,
		Etc:  filepath.Join(home, "etc"),
		Var:  filepath.Join(home, "var"),
	}

	p.Policy = filepath.Join(p.Etc, "policy.yaml")
	p.Journal = filepath.Join(p.Var, "journal.json")
	p.JournalLock = filepath.Join(p.Var, "journal.lock")

	return p
}
