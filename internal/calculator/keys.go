package calculator

import "fmt"

// Key labels accepted by Press, besides the digits and operators.
const (
	KeyDecimal = "."
	KeyEquals  = "="
	KeyClear   = "AC"
	KeySign    = "±"
	KeyPercent = "%"
)

var keyAliases = map[string]string{
	"*":      string(OpMultiply),
	"x":      string(OpMultiply),
	"/":      string(OpDivide),
	",":      KeyDecimal,
	"Enter":  KeyEquals,
	"C":      KeyClear,
	"Escape": KeyClear,
	"+/-":    KeySign,
}

// Press dispatches a single key label to the matching engine event. Labels
// follow the keypad ("7", "×", "=", "AC", "±", "%"); common ASCII aliases
// such as "*", "/" and "Enter" are accepted too.
func (e *Engine) Press(key string) error {
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}

	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return e.Digit(rune(key[0]))
	}
	if op := Operator(key); op.Valid() {
		return e.ChooseOperator(op)
	}

	switch key {
	case KeyDecimal:
		e.DecimalPoint()
	case KeyEquals:
		e.Evaluate()
	case KeyClear:
		e.Clear()
	case KeySign:
		e.ToggleSign()
	case KeyPercent:
		e.Percentage()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}
