package calculator

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ParseNumber converts display text into a float64 from its longest leading
// numeric prefix, so "3." is 3 and "1e+21." is 1e21. Text that overflows
// yields ±Inf and text with no numeric prefix yields NaN.
func ParseNumber(s string) float64 {
	prefix := numericPrefix(strings.TrimLeft(s, " \t\n\r"))
	if prefix == "" {
		return math.NaN()
	}

	v, err := strconv.ParseFloat(prefix, 64)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		return v
	}
	return math.NaN()
}

// numericPrefix returns the longest prefix of s of the form
// [sign] (Infinity | digits [. digits] [e [sign] digits]).
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		return s[:i+len("Infinity")]
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if digits > 0 || j > i+1 {
			digits += j - i - 1
			i = j
		}
	}
	if digits == 0 {
		return ""
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return s[:i]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// FormatNumber renders x in its minimal text form: shortest round-trip digits,
// fixed notation for 1e-6 <= |x| < 1e21 and exponent notation ("1e+21",
// "1.5e-7") outside that range. Negative zero renders as "0".
func FormatNumber(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	case x == 0:
		return "0"
	}

	abs := math.Abs(x)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(x, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}

	return strconv.FormatFloat(x, 'f', -1, 64)
}

var half = big.NewFloat(0.5)

// RoundTo rounds x to precision decimal places, half away from zero, using
// the exact binary value of x. 1.005 is stored below the midpoint and rounds
// to 1.00, while 2.5 rounds to 3.
func RoundTo(x float64, precision int) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	if precision < 0 {
		precision = 0
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)

	scaled := new(big.Float).SetPrec(256).SetFloat64(math.Abs(x))
	scaled.Mul(scaled, new(big.Float).SetPrec(256).SetInt(scale))

	n, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(scaled, new(big.Float).SetPrec(256).SetInt(n))
	if frac.Cmp(half) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	r, _ := new(big.Rat).SetFrac(n, scale).Float64()
	if x < 0 {
		r = -r
	}
	return r
}
