package calculator

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine, the key dispatcher and the store.
var (
	ErrInvalidDigit     = errors.New("invalid digit")
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrUnknownKey       = errors.New("unknown key")
	ErrInvalidPrecision = errors.New("precision out of range")
	ErrInvalidTheme     = errors.New("invalid theme")
	ErrHistoryIndex     = errors.New("history index out of range")
	ErrSessionNotFound  = errors.New("session not found")
)

// ErrorDisplay is the display sentinel for the fault state.
const ErrorDisplay = "Error"

// HistoryLimit caps the number of retained history entries.
const HistoryLimit = 10

// Operator is one of the four binary operators, stored by its key label.
type Operator string

const (
	OpAdd      Operator = "+"
	OpSubtract Operator = "-"
	OpMultiply Operator = "×"
	OpDivide   Operator = "÷"
)

// Valid reports whether op is one of the four supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	}
	return false
}

// Name is the operator's metric and span name.
func (op Operator) Name() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	}
	return "unknown"
}

// State is the engine's position in its state machine.
type State int

const (
	StateIdle State = iota
	StatePending
	StateFault
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateFault:
		return "fault"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "pending":
		*s = StatePending
	case "fault":
		*s = StateFault
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// PendingOperation is an operator selected but not yet resolved, together with
// its left operand.
type PendingOperation struct {
	Operand  string   `json:"operand"`
	Operator Operator `json:"operator"`
}

// HistoryEntry records one successful evaluation.
type HistoryEntry struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// Theme is a presentation theme. The engine stores it but never reads it.
type Theme string

const (
	ThemeLight    Theme = "light"
	ThemeDark     Theme = "dark"
	ThemeGradient Theme = "gradient"
)

// MaxPrecision is the largest supported number of decimal places.
const MaxPrecision = 4

// Settings configure an engine. Precision applies to computed results only.
type Settings struct {
	Theme        Theme `json:"theme"`
	SoundEnabled bool  `json:"sound_enabled"`
	Precision    int   `json:"precision"`
}

// DefaultSettings returns the settings a fresh calculator starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:        ThemeGradient,
		SoundEnabled: true,
		Precision:    2,
	}
}

// Validate checks the precision range and theme name.
func (s Settings) Validate() error {
	if s.Precision < 0 || s.Precision > MaxPrecision {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidPrecision, s.Precision, MaxPrecision)
	}
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeGradient:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTheme, s.Theme)
	}
	return nil
}

// Snapshot is a read-only view of an engine for the presentation layer.
type Snapshot struct {
	Display  string            `json:"display"`
	State    State             `json:"state"`
	Pending  *PendingOperation `json:"pending,omitempty"`
	Preview  string            `json:"preview,omitempty"` // "<operand> <operator>"
	History  []HistoryEntry    `json:"history"`
	Settings Settings          `json:"settings"`
}

// ---------------------------------------------------------------------------
// HTTP payloads
// ---------------------------------------------------------------------------

// SessionResponse is the JSON response for session endpoints.
type SessionResponse struct {
	ID string `json:"id"`
	Snapshot
}

// KeysRequest is the JSON body for POST /calculator/sessions/{id}/keys.
type KeysRequest struct {
	Keys []string `json:"keys"` // key labels, e.g. "7", "+", "=", "AC"
}

// SettingsPatch is the JSON body for PUT /calculator/sessions/{id}/settings.
// Absent fields keep their current value.
type SettingsPatch struct {
	Theme        *Theme `json:"theme"`
	SoundEnabled *bool  `json:"sound_enabled"`
	Precision    *int   `json:"precision"`
}

// Apply returns s with the patch's present fields replaced.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.Precision != nil {
		s.Precision = *p.Precision
	}
	return s
}

// HistoryResponse is the JSON response for GET /calculator/sessions/{id}/history.
type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}
