package config

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Default resource limits for the out-of-process validator.
const (
	DefaultMaxFileSizeBytes = 64 * 1024 * 1024
	DefaultTimeoutMS        = 5000
	DefaultJournalMaxAgeHrs = 7 * 24
)

// defaultExtensions is the allow-list of font file extensions the
// validator will even attempt to open.
var defaultExtensions = []string{"ttf", "otf", "ttc", "otc", "woff", "woff2", "dfont"}

// defaultProtectedPaths are OS-owned font locations that must never be
// written to or deleted from.
var defaultProtectedPaths = []string{
	"/System/Library/Fonts",
	"/Library/Fonts",
	"C:\\Windows\\Fonts",
	"/usr/share/fonts",
}

// RawPolicy mirrors the structure of etc/policy.yaml. Pointer fields
// distinguish "absent" from zero values so defaults can be applied
// field-wise.
type RawPolicy struct {
	StderrLevel       *string  `yaml:"stderr_level"`
	ProtectedPaths    []string `yaml:"protected_paths"`
	AllowedExtensions []string `yaml:"allowed_extensions"`

	Validator struct {
		MaxFileSizeBytes *uint64 `yaml:"max_file_size_bytes"`
		TimeoutMS        *uint64 `yaml:"timeout_ms"`
		AllowCollections *bool   `yaml:"allow_collections"`
	} `yaml:"validator"`

	Journal struct {
		MaxAgeHours *uint64 `yaml:"max_age_hours"`
	} `yaml:"journal"`
}

// Policy is the resolved configuration used by the rest of the system.
type Policy struct {
	StderrLevel       string
	ProtectedPaths    []string
	AllowedExtensions []string

	ValidatorMaxFileSizeBytes uint64
	ValidatorTimeoutMS        uint64
	ValidatorAllowCollections bool

	JournalMaxAgeHours uint64

	// Source is "yaml" when loaded from a policy file, "default" otherwise.
	Source string
}

// LoadPolicy loads etc/policy.yaml if present and applies defaults for
// any missing field. A missing file is not an error.
func LoadPolicy(fs afero.Fs, path string) (*Policy, error) {
	raw := &RawPolicy{}
	source := "default"

	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		source = "yaml"
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return buildPolicy(raw, source), nil
}

// DefaultPolicy returns the policy with every field at its default.
func DefaultPolicy() *Policy {
	return buildPolicy(&RawPolicy{}, "default")
}

func buildPolicy(raw *RawPolicy, source string) *Policy {
	p := &Policy{
		StderrLevel:               "warn",
		ProtectedPaths:            defaultProtectedPaths,
		AllowedExtensions:         defaultExtensions,
		ValidatorMaxFileSizeBytes: DefaultMaxFileSizeBytes,
		ValidatorTimeoutMS:        DefaultTimeoutMS,
		ValidatorAllowCollections: true,
		JournalMaxAgeHours:        DefaultJournalMaxAgeHrs,
		Source:                    source,
	}

	if raw.StderrLevel != nil {
		p.StderrLevel = *raw.StderrLevel
	}
	if len(raw.ProtectedPaths) > 0 {
		// Configured paths extend the built-in set; the built-ins are
		// never removable through configuration.
		p.ProtectedPaths = append(append([]string{}, defaultProtectedPaths...), raw.ProtectedPaths...)
	}
	if len(raw.AllowedExtensions) > 0 {
		p.AllowedExtensions = raw.AllowedExtensions
	}
	if raw.Validator.MaxFileSizeBytes != nil {
		p.ValidatorMaxFileSizeBytes = *raw.Validator.MaxFileSizeBytes
	}
	if raw.Validator.TimeoutMS != nil {
		p.ValidatorTimeoutMS = *raw.Validator.TimeoutMS
	}
	if raw.Validator.AllowCollections != nil {
		p.ValidatorAllowCollections = *raw.Validator.AllowCollections
	}
	if raw.Journal.MaxAgeHours != nil {
		p.JournalMaxAgeHours = *raw.Journal.MaxAgeHours
	}

	return p
}
