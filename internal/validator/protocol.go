package validator

import (
	"strings"

	"github.com/fontkeep/fontkeep/internal/font"
)

// Request is the single JSON object the supervisor writes to the
// worker's standard input.
type Request struct {
	Paths            []string `json:"paths"`
	MaxFileSizeBytes uint64   `json:"max_file_size_bytes"`
	TimeoutMS        uint64   `json:"timeout_ms"`
	AllowCollections bool     `json:"allow_collections"`
}

// ErrorKind is the coarse classification of a validation failure.
type ErrorKind string

const (
	// KindTimeout: the worker did not finish within the deadline.
	KindTimeout ErrorKind = "Timeout"
	// KindTooLarge: the file exceeds the size limit. Decided from a
	// stat call, before any byte of content is read.
	KindTooLarge ErrorKind = "TooLarge"
	// KindInvalidFormat: the file is structurally not an acceptable font.
	KindInvalidFormat ErrorKind = "InvalidFormat"
	// KindProcessCrashed: the worker exited abnormally before responding.
	KindProcessCrashed ErrorKind = "ProcessCrashed"
)

// WireError is a sanitized validation failure: a coarse kind and a
// short human-readable reason. It never carries absolute paths or
// parser internals.
type WireError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Outcome is the result for a single requested path. Exactly one of
// Info and Error is set; the response array preserves request order.
type Outcome struct {
	OK    bool           `json:"ok"`
	Info  *font.FaceInfo `json:"info,omitempty"`
	Error *WireError     `json:"error,omitempty"`
}

// Failure builds an error outcome with a sanitized message.
func Failure(kind ErrorKind, message string) Outcome {
	return Outcome{
		OK: false,
		Error: &WireError{
			Kind:    kind,
			Message: Sanitize(message),
		},
	}
}

// Success builds an ok outcome.
func Success(info font.FaceInfo) Outcome {
	return Outcome{OK: true, Info: &info}
}

// Sanitize trims a message down to something safe for user display:
// backslashes normalized, length capped, no trailing whitespace.
// Callers are responsible for not embedding absolute paths; this is
// the final backstop against oversized parser output.
func Sanitize(message string) string {
	m := strings.TrimSpace(strings.ReplaceAll(message, "\\", "/"))
	if len(m) > 200 {
		m = m[:200] + "..."
	}
	return m
}
