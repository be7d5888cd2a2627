package font

import "fmt"

// ProtectionError is returned when an operation would modify a font
// under a protected system directory. The operation must abort whole;
// partial auto-resolution is never permitted.
type ProtectionError struct {
	Path string
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("system font protection: cannot modify %s", e.Path)
}

// RegistrationError wraps a failure from the host registration stack.
// Callers treat it as opaque and pass it through.
type RegistrationError struct {
	Op   string // "register" or "unregister"
	Path string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("font %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
