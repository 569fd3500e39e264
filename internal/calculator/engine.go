package calculator

import (
	"fmt"
	"strings"
)

// Signaler receives one signal per accepted key event. Implementations must
// return immediately.
type Signaler interface {
	Signal()
}

// SignalFunc adapts a function to the Signaler interface.
type SignalFunc func()

func (f SignalFunc) Signal() { f() }

// Observer is notified about evaluations. It lets the hosting layer attach
// metrics and logs without the engine depending on them.
type Observer interface {
	Evaluated(op Operator, entry HistoryEntry)
	Faulted(op Operator, operand, display string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSignaler sets the feedback signaler.
func WithSignaler(s Signaler) Option {
	return func(e *Engine) { e.signaler = s }
}

// WithObserver sets the evaluation observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithSettings sets the initial settings. Invalid settings are ignored and the
// defaults are kept.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		if s.Validate() == nil {
			e.settings = s
		}
	}
}

// Engine is a four-function calculator driven by key events. It is not safe
// for concurrent use; callers serialise events.
type Engine struct {
	display string
	state   State
	pending PendingOperation // meaningful only in StatePending
	history []HistoryEntry

	settings Settings
	signaler Signaler
	observer Observer
}

// New returns an engine in the idle state showing "0".
func New(opts ...Option) *Engine {
	e := &Engine{
		display:  "0",
		state:    StateIdle,
		history:  make([]HistoryEntry, 0, HistoryLimit),
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Digit enters d. A display of "0" or "Error" is replaced, anything else is
// extended.
func (e *Engine) Digit(d rune) error {
	if d < '0' || d > '9' {
		return fmt.Errorf("%w: %q", ErrInvalidDigit, d)
	}
	e.signal()

	if e.display == "0" || e.state == StateFault {
		e.display = string(d)
	} else {
		e.display += string(d)
	}
	if e.state == StateFault {
		e.state = StateIdle
	}
	return nil
}

// DecimalPoint appends "." unless the display already has one.
func (e *Engine) DecimalPoint() {
	e.signal()

	if e.state == StateFault {
		return
	}
	if !strings.Contains(e.display, ".") {
		e.display += "."
	}
}

// ChooseOperator resolves any pending operation, then holds the display as the
// left operand of op and resets the display to "0". A resolving press signals
// twice.
func (e *Engine) ChooseOperator(op Operator) error {
	if !op.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	e.signal()

	if e.state == StatePending {
		// Resolving counts as its own evaluate event.
		e.signal()
		e.evaluate()
	}
	if e.state == StateFault {
		return nil
	}

	e.pending = PendingOperation{Operand: e.display, Operator: op}
	e.state = StatePending
	e.display = "0"
	return nil
}

// Evaluate resolves the pending operation. It does nothing when none is set.
func (e *Engine) Evaluate() {
	e.signal()
	e.evaluate()
}

func (e *Engine) evaluate() {
	if e.state != StatePending {
		return
	}

	op := e.pending
	prev := ParseNumber(op.Operand)
	current := ParseNumber(e.display)

	var result float64
	switch op.Operator {
	case OpAdd:
		result = prev + current
	case OpSubtract:
		result = prev - current
	case OpMultiply:
		result = prev * current
	case OpDivide:
		if current == 0 {
			divisor := e.display
			e.fault()
			if e.observer != nil {
				e.observer.Faulted(op.Operator, op.Operand, divisor)
			}
			return
		}
		result = prev / current
	}

	entry := HistoryEntry{
		Expression: op.Operand + " " + string(op.Operator) + " " + e.display,
		Result:     FormatNumber(RoundTo(result, e.settings.Precision)),
	}
	e.pushHistory(entry)

	e.display = entry.Result
	e.pending = PendingOperation{}
	e.state = StateIdle

	if e.observer != nil {
		e.observer.Evaluated(op.Operator, entry)
	}
}

func (e *Engine) fault() {
	e.display = ErrorDisplay
	e.pending = PendingOperation{}
	e.state = StateFault
}

func (e *Engine) pushHistory(entry HistoryEntry) {
	n := min(len(e.history)+1, HistoryLimit)
	next := make([]HistoryEntry, n)
	next[0] = entry
	copy(next[1:], e.history)
	e.history = next
}

// Clear resets the display and drops any pending operation. History is kept.
func (e *Engine) Clear() {
	e.signal()

	e.display = "0"
	e.pending = PendingOperation{}
	e.state = StateIdle
}

// ToggleSign negates the display unless it is "0" or "Error".
func (e *Engine) ToggleSign() {
	e.signal()

	if e.display == "0" || e.state == StateFault {
		return
	}
	e.display = FormatNumber(-ParseNumber(e.display))
}

// Percentage divides the display by 100. It does nothing in the fault state.
func (e *Engine) Percentage() {
	e.signal()

	if e.state == StateFault {
		return
	}
	e.display = FormatNumber(ParseNumber(e.display) / 100)
}

// SelectHistoryEntry shows entry's result. The pending operation, if any, is
// kept and no history is recorded.
func (e *Engine) SelectHistoryEntry(entry HistoryEntry) {
	e.display = entry.Result
	if e.state == StateFault {
		e.state = StateIdle
	}
}

// SelectHistory selects the index-th newest history entry.
func (e *Engine) SelectHistory(index int) error {
	if index < 0 || index >= len(e.history) {
		return fmt.Errorf("%w: %d", ErrHistoryIndex, index)
	}
	e.SelectHistoryEntry(e.history[index])
	return nil
}

// SetObserver replaces the evaluation observer. nil disables it.
func (e *Engine) SetObserver(o Observer) { e.observer = o }

// SetSettings replaces the engine's settings.
func (e *Engine) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.settings = s
	return nil
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings { return e.settings }

// Display returns the display text.
func (e *Engine) Display() string { return e.display }

// State returns the state machine position.
func (e *Engine) State() State { return e.state }

// Pending returns the pending operation and whether one is set.
func (e *Engine) Pending() (PendingOperation, bool) {
	return e.pending, e.state == StatePending
}

// History returns a copy of the history, newest first.
func (e *Engine) History() []HistoryEntry {
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// Snapshot returns a copy of the observable state.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Display:  e.display,
		State:    e.state,
		History:  e.History(),
		Settings: e.settings,
	}
	if p, ok := e.Pending(); ok {
		snap.Pending = &p
		snap.Preview = p.Operand + " " + string(p.Operator)
	}
	return snap
}

func (e *Engine) signal() {
	if e.signaler == nil || !e.settings.SoundEnabled {
		return
	}
	defer func() { _ = recover() }()
	e.signaler.Signal()
}
