package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fontkeep/fontkeep/internal/font"
)

// Action is one step of a journaled multi-step operation. The variant
// set is closed: CopyFile, RegisterFont, UnregisterFont, DeleteFile and
// ClearCache. Actions are immutable once created.
type Action interface {
	// Kind returns the wire tag of the variant.
	Kind() ActionKind
	// Describe returns a human-readable form for reports and logs.
	Describe() string

	sealed()
}

// ActionKind is the wire tag of an Action variant.
type ActionKind string

const (
	KindCopyFile       ActionKind = "copy_file"
	KindRegisterFont   ActionKind = "register_font"
	KindUnregisterFont ActionKind = "unregister_font"
	KindDeleteFile     ActionKind = "delete_file"
	KindClearCache     ActionKind = "clear_cache"
)

// CopyFile copies a file from From to To.
type CopyFile struct {
	From string
	To   string
}

func (CopyFile) Kind() ActionKind { return KindCopyFile }
func (CopyFile) sealed()          {}
func (a CopyFile) Describe() string {
	return fmt.Sprintf("copy %s to %s", a.From, a.To)
}

// RegisterFont registers the font at Path with the host at Scope.
type RegisterFont struct {
	Path  string
	Scope font.Scope
}

func (RegisterFont) Kind() ActionKind { return KindRegisterFont }
func (RegisterFont) sealed()          {}
func (a RegisterFont) Describe() string {
	return fmt.Sprintf("register %s (%s)", a.Path, a.Scope.Description())
}

// UnregisterFont removes the font at Path from the host at Scope.
type UnregisterFont struct {
	Path  string
	Scope font.Scope
}

func (UnregisterFont) Kind() ActionKind { return KindUnregisterFont }
func (UnregisterFont) sealed()          {}
func (a UnregisterFont) Describe() string {
	return fmt.Sprintf("unregister %s (%s)", a.Path, a.Scope.Description())
}

// DeleteFile deletes the file at Path.
type DeleteFile struct {
	Path string
}

func (DeleteFile) Kind() ActionKind { return KindDeleteFile }
func (DeleteFile) sealed()          {}
func (a DeleteFile) Describe() string {
	return fmt.Sprintf("delete %s", a.Path)
}

// ClearCache flushes the host font caches for Scope.
type ClearCache struct {
	Scope font.Scope
}

func (ClearCache) Kind() ActionKind { return KindClearCache }
func (ClearCache) sealed()          {}
func (a ClearCache) Describe() string {
	return fmt.Sprintf("clear font caches (%s)", a.Scope.Description())
}

// actionEnvelope is the tagged JSON form of an Action.
type actionEnvelope struct {
	Type  ActionKind `json:"type"`
	From  string     `json:"from,omitempty"`
	To    string     `json:"to,omitempty"`
	Path  string     `json:"path,omitempty"`
	Scope font.Scope `json:"scope,omitempty"`
}

func encodeAction(a Action) actionEnvelope {
	switch v := a.(type) {
	case CopyFile:
		return actionEnvelope{Type: KindCopyFile, From: v.From, To: v.To}
	case RegisterFont:
		return actionEnvelope{Type: KindRegisterFont, Path: v.Path, Scope: v.Scope}
	case UnregisterFont:
		return actionEnvelope{Type: KindUnregisterFont, Path: v.Path, Scope: v.Scope}
	case DeleteFile:
		return actionEnvelope{Type: KindDeleteFile, Path: v.Path}
	case ClearCache:
		return actionEnvelope{Type: KindClearCache, Scope: v.Scope}
	default:
		// The variant set is closed; reaching this is a programming error.
		panic(fmt.Sprintf("journal: unknown action type %T", a))
	}
}

func decodeAction(env actionEnvelope) (Action, error) {
	switch env.Type {
	case KindCopyFile:
		return CopyFile{From: env.From, To: env.To}, nil
	case KindRegisterFont:
		return RegisterFont{Path: env.Path, Scope: env.Scope}, nil
	case KindUnregisterFont:
		return UnregisterFont{Path: env.Path, Scope: env.Scope}, nil
	case KindDeleteFile:
		return DeleteFile{Path: env.Path}, nil
	case KindClearCache:
		return ClearCache{Scope: env.Scope}, nil
	default:
		return nil, fmt.Errorf("unknown journal action type %q", env.Type)
	}
}

// Entry is the durable record of one multi-step operation's plan and
// progress. CurrentStep is monotonically non-decreasing and Completed
// is true exactly when CurrentStep equals the number of actions.
type Entry struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	Completed   bool      `json:"completed"`
	CurrentStep uint      `json:"current_step"`
	Actions     []Action  `json:"-"`
	Description string    `json:"description,omitempty"`
}

// entryJSON is Entry with actions in their tagged wire form.
type entryJSON struct {
	ID          string           `json:"id"`
	StartedAt   time.Time        `json:"started_at"`
	Completed   bool             `json:"completed"`
	CurrentStep uint             `json:"current_step"`
	Actions     []actionEnvelope `json:"actions"`
	Description string           `json:"description,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		ID:          e.ID,
		StartedAt:   e.StartedAt,
		Completed:   e.Completed,
		CurrentStep: e.CurrentStep,
		Actions:     make([]actionEnvelope, 0, len(e.Actions)),
		Description: e.Description,
	}
	for _, a := range e.Actions {
		out.Actions = append(out.Actions, encodeAction(a))
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var in entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	actions := make([]Action, 0, len(in.Actions))
	for _, env := range in.Actions {
		a, err := decodeAction(env)
		if err != nil {
			return err
		}
		actions = append(actions, a)
	}
	*e = Entry{
		ID:          in.ID,
		StartedAt:   in.StartedAt,
		Completed:   in.Completed,
		CurrentStep: in.CurrentStep,
		Actions:     actions,
		Description: in.Description,
	}
	return nil
}

// IsIncomplete reports whether the operation started but never finished.
func (e *Entry) IsIncomplete() bool {
	return !e.Completed && len(e.Actions) > 0
}

// RemainingActions returns the actions from the current step onwards.
func (e *Entry) RemainingActions() []Action {
	if int(e.CurrentStep) >= len(e.Actions) {
		return nil
	}
	return e.Actions[e.CurrentStep:]
}
