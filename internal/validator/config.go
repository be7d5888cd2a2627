package validator

// Default resource limits for a validation batch.
const (
	DefaultMaxFileSizeBytes uint64 = 64 * 1024 * 1024
	DefaultTimeoutMS        uint64 = 5000
)

// Config bounds one validation call. It is ephemeral and created per
// call; the zero value is not valid, use DefaultConfig.
type Config struct {
	MaxFileSizeBytes uint64
	TimeoutMS        uint64
	AllowCollections bool
}

// DefaultConfig returns the Normal strictness limits.
func DefaultConfig() Config {
	return Config{
		MaxFileSizeBytes: DefaultMaxFileSizeBytes,
		TimeoutMS:        DefaultTimeoutMS,
		AllowCollections: true,
	}
}

// Strictness selects a preset of validation limits.
type Strictness string

const (
	// StrictnessLenient allows larger files and longer parses.
	StrictnessLenient Strictness = "lenient"
	// StrictnessNormal is the default.
	StrictnessNormal Strictness = "normal"
	// StrictnessParanoid tightens limits for untrusted input.
	StrictnessParanoid Strictness = "paranoid"
)

// ConfigForStrictness maps a preset to concrete limits. Unknown values
// fall back to Normal.
func ConfigForStrictness(s Strictness) Config {
	switch s {
	case StrictnessLenient:
		return Config{
			MaxFileSizeBytes: 128 * 1024 * 1024,
			TimeoutMS:        10000,
			AllowCollections: true,
		}
	case StrictnessParanoid:
		return Config{
			MaxFileSizeBytes: 32 * 1024 * 1024,
			TimeoutMS:        2000,
			AllowCollections: true,
		}
	default:
		return DefaultConfig()
	}
}
