package calculator

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

// press applies keys in order and fails the test on the first rejected key.
func press(t *testing.T, e *Engine, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := e.Press(k); err != nil {
			t.Fatalf("Press(%q): %v", k, err)
		}
	}
}

func assertDisplay(t *testing.T, e *Engine, want string) {
	t.Helper()
	if got := e.Display(); got != want {
		t.Fatalf("expected display %q, got %q", want, got)
	}
}

func TestNewEngineStartsIdleAtZero(t *testing.T) {
	e := New()

	assertDisplay(t, e, "0")
	if e.State() != StateIdle {
		t.Fatalf("expected idle, got %s", e.State())
	}
	if _, ok := e.Pending(); ok {
		t.Fatal("did not expect a pending operation")
	}
	if len(e.History()) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(e.History()))
	}
	if e.Settings() != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", e.Settings())
	}
}

func TestDigitEntry(t *testing.T) {
	e := New()

	press(t, e, "0")
	assertDisplay(t, e, "0")

	press(t, e, "5")
	assertDisplay(t, e, "5")

	press(t, e, "0")
	assertDisplay(t, e, "50")

	press(t, e, "1", "2", "3", "4", "5", "6", "7", "8", "9")
	assertDisplay(t, e, "50123456789")
}

func TestDigitRejectsNonDigits(t *testing.T) {
	e := New()

	for _, d := range []rune{'a', '.', '-', '٣'} {
		if err := e.Digit(d); !errors.Is(err, ErrInvalidDigit) {
			t.Fatalf("Digit(%q): expected ErrInvalidDigit, got %v", d, err)
		}
	}
	assertDisplay(t, e, "0")
}

func TestDecimalPointIsIdempotent(t *testing.T) {
	e := New()

	press(t, e, "3", ".")
	assertDisplay(t, e, "3.")

	press(t, e, ".")
	assertDisplay(t, e, "3.")

	press(t, e, "5", ".")
	assertDisplay(t, e, "3.5")
}

func TestDecimalPointOnZeroKeepsLeadingZero(t *testing.T) {
	e := New()

	press(t, e, ".", "5")
	assertDisplay(t, e, "0.5")
}

func TestChooseOperatorHoldsOperand(t *testing.T) {
	e := New()

	press(t, e, "1", "2", "+")

	assertDisplay(t, e, "0")
	p, ok := e.Pending()
	if !ok {
		t.Fatal("expected a pending operation")
	}
	if p != (PendingOperation{Operand: "12", Operator: OpAdd}) {
		t.Fatalf("unexpected pending operation %+v", p)
	}

	snap := e.Snapshot()
	if snap.State != StatePending || snap.Preview != "12 +" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestChooseOperatorRejectsUnknownOperator(t *testing.T) {
	e := New()

	if err := e.ChooseOperator(Operator("^")); !errors.Is(err, ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}
	if e.State() != StateIdle {
		t.Fatalf("expected idle, got %s", e.State())
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		keys []string
		want string
		expr string
	}{
		{keys: []string{"3", "+", "4", "="}, want: "7", expr: "3 + 4"},
		{keys: []string{"3", "-", "5", "="}, want: "-2", expr: "3 - 5"},
		{keys: []string{"6", "×", "7", "="}, want: "42", expr: "6 × 7"},
		{keys: []string{"9", "÷", "4", "="}, want: "2.25", expr: "9 ÷ 4"},
		{keys: []string{"0", ".", "1", "+", "0", ".", "2", "="}, want: "0.3", expr: "0.1 + 0.2"},
		{keys: []string{"3", ".", "+", "4", "="}, want: "7", expr: "3. + 4"},
		{keys: []string{"5", "+", "="}, want: "5", expr: "5 + 0"},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			e := New()
			press(t, e, tc.keys...)

			assertDisplay(t, e, tc.want)
			if e.State() != StateIdle {
				t.Fatalf("expected idle, got %s", e.State())
			}

			want := []HistoryEntry{{Expression: tc.expr, Result: tc.want}}
			if got := e.History(); !reflect.DeepEqual(got, want) {
				t.Fatalf("expected history %+v, got %+v", want, got)
			}
		})
	}
}

func TestEvaluateWithoutPendingIsNoop(t *testing.T) {
	e := New()

	press(t, e, "4", "2", "=")

	assertDisplay(t, e, "42")
	if len(e.History()) != 0 {
		t.Fatalf("expected no history, got %+v", e.History())
	}
}

func TestDivisionByZeroFaults(t *testing.T) {
	e := New()

	press(t, e, "8", "÷", "0", "=")

	assertDisplay(t, e, ErrorDisplay)
	if e.State() != StateFault {
		t.Fatalf("expected fault, got %s", e.State())
	}
	if _, ok := e.Pending(); ok {
		t.Fatal("expected pending operation to be cleared")
	}
	if len(e.History()) != 0 {
		t.Fatalf("expected no history entry, got %+v", e.History())
	}
}

func TestDivisionByZeroWithDecimalZero(t *testing.T) {
	e := New()

	press(t, e, "8", "÷", "0", ".", "0", "=")

	assertDisplay(t, e, ErrorDisplay)
}

func TestFaultRecovery(t *testing.T) {
	t.Run("digit", func(t *testing.T) {
		e := New()
		press(t, e, "8", "÷", "=", "7")

		assertDisplay(t, e, "7")
		if e.State() != StateIdle {
			t.Fatalf("expected idle, got %s", e.State())
		}
	})

	t.Run("clear", func(t *testing.T) {
		e := New()
		press(t, e, "8", "÷", "=", "AC")

		assertDisplay(t, e, "0")
		if e.State() != StateIdle {
			t.Fatalf("expected idle, got %s", e.State())
		}
	})
}

func TestFaultIgnoresOtherEvents(t *testing.T) {
	for _, key := range []string{".", "±", "%", "+", "="} {
		t.Run(key, func(t *testing.T) {
			e := New()
			press(t, e, "8", "÷", "=", key)

			assertDisplay(t, e, ErrorDisplay)
			if e.State() != StateFault {
				t.Fatalf("expected fault, got %s", e.State())
			}
			if _, ok := e.Pending(); ok {
				t.Fatal("did not expect a pending operation")
			}
		})
	}
}

func TestChainedOperatorsEvaluateLeftToRight(t *testing.T) {
	e := New()

	press(t, e, "3", "+", "4", "×")
	assertDisplay(t, e, "0")
	if p, _ := e.Pending(); p.Operand != "7" || p.Operator != OpMultiply {
		t.Fatalf("expected pending 7 ×, got %+v", p)
	}

	press(t, e, "2", "=")
	assertDisplay(t, e, "14")

	want := []HistoryEntry{
		{Expression: "7 × 2", Result: "14"},
		{Expression: "3 + 4", Result: "7"},
	}
	if got := e.History(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected history %+v, got %+v", want, got)
	}
}

func TestExponentDisplayWithDecimalPointStaysNumeric(t *testing.T) {
	e := New()

	press(t, e, "1")
	for range 21 {
		press(t, e, "0")
	}
	press(t, e, "×", "1", "=")
	assertDisplay(t, e, "1e+21")

	press(t, e, ".")
	assertDisplay(t, e, "1e+21.")

	press(t, e, "+", "1", "=")
	assertDisplay(t, e, "1e+21")
	if got, want := e.History()[0], (HistoryEntry{Expression: "1e+21. + 1", Result: "1e+21"}); got != want {
		t.Fatalf("expected newest entry %+v, got %+v", want, got)
	}
}

func TestChainedDivisionByZeroStaysFaulted(t *testing.T) {
	e := New()

	press(t, e, "8", "÷", "0", "+")

	assertDisplay(t, e, ErrorDisplay)
	if e.State() != StateFault {
		t.Fatalf("expected fault, got %s", e.State())
	}
	if _, ok := e.Pending(); ok {
		t.Fatal("did not expect a pending operation")
	}
}

func TestPrecisionRounding(t *testing.T) {
	tests := []struct {
		precision int
		keys      []string
		want      string
	}{
		{precision: 2, keys: []string{"1", "÷", "3", "="}, want: "0.33"},
		{precision: 0, keys: []string{"7", "÷", "2", "="}, want: "4"},
		{precision: 4, keys: []string{"2", "÷", "3", "="}, want: "0.6667"},
		{precision: 1, keys: []string{"1", "÷", "8", "="}, want: "0.1"},
		{precision: 3, keys: []string{"1", "÷", "4", "="}, want: "0.25"},
	}

	for _, tc := range tests {
		t.Run(strconv.Itoa(tc.precision), func(t *testing.T) {
			s := DefaultSettings()
			s.Precision = tc.precision

			e := New(WithSettings(s))
			press(t, e, tc.keys...)
			assertDisplay(t, e, tc.want)
		})
	}
}

func TestPrecisionDoesNotApplyToEntry(t *testing.T) {
	s := DefaultSettings()
	s.Precision = 0

	e := New(WithSettings(s))
	press(t, e, "1", ".", "2", "3", "4", "5")
	assertDisplay(t, e, "1.2345")
}

func TestHistoryIsCappedNewestFirst(t *testing.T) {
	e := New()

	for i := 1; i <= 11; i++ {
		press(t, e, "AC")
		for _, d := range strconv.Itoa(i) {
			press(t, e, string(d))
		}
		press(t, e, "+", "1", "=")
	}

	history := e.History()
	if len(history) != HistoryLimit {
		t.Fatalf("expected %d entries, got %d", HistoryLimit, len(history))
	}
	if history[0].Expression != "11 + 1" || history[0].Result != "12" {
		t.Fatalf("expected newest entry 11 + 1 = 12, got %+v", history[0])
	}
	if history[9].Expression != "2 + 1" {
		t.Fatalf("expected oldest retained entry 2 + 1, got %+v", history[9])
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	e := New()
	press(t, e, "1", "+", "1", "=")

	h := e.History()
	h[0].Result = "tampered"

	if got := e.History()[0].Result; got != "2" {
		t.Fatalf("expected stored result %q, got %q", "2", got)
	}
}

func TestClearKeepsHistory(t *testing.T) {
	e := New()

	press(t, e, "2", "+", "2", "=", "5", "×", "AC")

	assertDisplay(t, e, "0")
	if _, ok := e.Pending(); ok {
		t.Fatal("expected pending operation to be cleared")
	}
	if len(e.History()) != 1 {
		t.Fatalf("expected history to survive clear, got %+v", e.History())
	}
}

func TestToggleSign(t *testing.T) {
	e := New()

	press(t, e, "±")
	assertDisplay(t, e, "0")

	press(t, e, "5", "±")
	assertDisplay(t, e, "-5")

	press(t, e, "±")
	assertDisplay(t, e, "5")

	e.Clear()
	press(t, e, "0", ".", "±")
	assertDisplay(t, e, "0")
}

func TestPercentage(t *testing.T) {
	e := New()

	press(t, e, "5", "0", "%")
	assertDisplay(t, e, "0.5")

	press(t, e, "%")
	assertDisplay(t, e, "0.005")

	e.Clear()
	press(t, e, "%")
	assertDisplay(t, e, "0")
}

func TestSelectHistoryEntry(t *testing.T) {
	e := New()

	press(t, e, "3", "+", "4", "=", "AC", "9", "×")
	e.SelectHistoryEntry(e.History()[0])

	assertDisplay(t, e, "7")
	if p, ok := e.Pending(); !ok || p.Operand != "9" {
		t.Fatalf("expected pending 9 × to be kept, got %+v", p)
	}
	if len(e.History()) != 1 {
		t.Fatalf("expected no new history entry, got %+v", e.History())
	}

	press(t, e, "=")
	assertDisplay(t, e, "63")
}

func TestSelectHistoryByIndex(t *testing.T) {
	e := New()
	press(t, e, "1", "+", "1", "=", "2", "+", "2", "=")

	if err := e.SelectHistory(1); err != nil {
		t.Fatalf("SelectHistory(1): %v", err)
	}
	assertDisplay(t, e, "2")

	for _, i := range []int{-1, 2} {
		if err := e.SelectHistory(i); !errors.Is(err, ErrHistoryIndex) {
			t.Fatalf("SelectHistory(%d): expected ErrHistoryIndex, got %v", i, err)
		}
	}
}

func TestSelectHistoryLeavesFault(t *testing.T) {
	e := New()
	press(t, e, "1", "+", "1", "=", "8", "÷", "=")

	e.SelectHistoryEntry(e.History()[0])

	assertDisplay(t, e, "2")
	if e.State() != StateIdle {
		t.Fatalf("expected idle, got %s", e.State())
	}
}

func TestSetSettings(t *testing.T) {
	e := New()

	if err := e.SetSettings(Settings{Theme: ThemeDark, Precision: 5}); !errors.Is(err, ErrInvalidPrecision) {
		t.Fatalf("expected ErrInvalidPrecision, got %v", err)
	}
	if err := e.SetSettings(Settings{Theme: "neon", Precision: 1}); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
	if e.Settings() != DefaultSettings() {
		t.Fatalf("expected settings unchanged, got %+v", e.Settings())
	}

	want := Settings{Theme: ThemeLight, SoundEnabled: false, Precision: 0}
	if err := e.SetSettings(want); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}
	if e.Settings() != want {
		t.Fatalf("expected %+v, got %+v", want, e.Settings())
	}

	press(t, e, "1", "0", "÷", "4", "=")
	assertDisplay(t, e, "3")
}

func TestWithSettingsIgnoresInvalid(t *testing.T) {
	e := New(WithSettings(Settings{Theme: ThemeDark, Precision: 9}))

	if e.Settings() != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", e.Settings())
	}
}

func TestSignalerCalledPerAcceptedEvent(t *testing.T) {
	var signals int
	e := New(WithSignaler(SignalFunc(func() { signals++ })))

	press(t, e, "1", ".", "+", "2", "=", "±", "%", "AC")
	if signals != 8 {
		t.Fatalf("expected 8 signals, got %d", signals)
	}

	_ = e.Press("?")
	_ = e.Digit('x')
	if signals != 8 {
		t.Fatalf("expected rejected events not to signal, got %d", signals)
	}

	press(t, e, "1", "+", "1", "=")
	e.SelectHistoryEntry(e.History()[0])
	if signals != 12 {
		t.Fatalf("expected history selection not to signal, got %d", signals)
	}
}

func TestChainedOperatorSignalsForBothEvents(t *testing.T) {
	var signals int
	e := New(WithSignaler(SignalFunc(func() { signals++ })))

	press(t, e, "3", "+", "4")
	if signals != 3 {
		t.Fatalf("expected 3 signals, got %d", signals)
	}

	press(t, e, "×")
	if signals != 5 {
		t.Fatalf("expected resolving operator to signal twice, got %d", signals)
	}

	press(t, e, "-")
	if signals != 6 {
		t.Fatalf("expected operator with nothing to resolve to signal once, got %d", signals)
	}
}

func TestSignalerGatedBySoundSetting(t *testing.T) {
	var signals int
	s := DefaultSettings()
	s.SoundEnabled = false

	e := New(WithSettings(s), WithSignaler(SignalFunc(func() { signals++ })))
	press(t, e, "1", "+", "1", "=")

	if signals != 0 {
		t.Fatalf("expected no signals with sound disabled, got %d", signals)
	}
}

func TestPanickingSignalerDoesNotFailEvent(t *testing.T) {
	e := New(WithSignaler(SignalFunc(func() { panic("audio device gone") })))

	press(t, e, "6", "×", "7", "=")
	assertDisplay(t, e, "42")
}

type recordingObserver struct {
	evaluated []HistoryEntry
	faults    []string
}

func (o *recordingObserver) Evaluated(_ Operator, entry HistoryEntry) {
	o.evaluated = append(o.evaluated, entry)
}

func (o *recordingObserver) Faulted(op Operator, operand, display string) {
	o.faults = append(o.faults, operand+" "+string(op)+" "+display)
}

func TestObserverSeesEvaluationsAndFaults(t *testing.T) {
	obs := &recordingObserver{}
	e := New(WithObserver(obs))

	press(t, e, "3", "+", "4", "×", "2", "=", "AC", "8", "÷", "0", ".", "=")

	if len(obs.evaluated) != 2 || obs.evaluated[1].Result != "14" {
		t.Fatalf("unexpected evaluations %+v", obs.evaluated)
	}
	if !reflect.DeepEqual(obs.faults, []string{"8 ÷ 0."}) {
		t.Fatalf("unexpected faults %+v", obs.faults)
	}

	e.SetObserver(nil)
	press(t, e, "1", "+", "1", "=")
	if len(obs.evaluated) != 2 {
		t.Fatalf("expected detached observer to see nothing, got %+v", obs.evaluated)
	}
}
