package core

import (
	"math"
	"strconv"
	"strings"
)

// FormatAmount renders a number the way a browser prints it: shortest
// round-trip digits, plain notation for 1e-7 <= |x| < 1e21 and exponent
// notation ("1e+21", "1.5e-7") outside that range. Amount matching in the
// filter runs against this text.
func FormatAmount(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	case x == 0:
		return "0"
	case x < 0:
		return "-" + FormatAmount(-x)
	}

	// d.ddddde±XX
	sci := strconv.FormatFloat(x, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)

	k := len(digits)
	n := exp + 1

	switch {
	case k <= n && n <= 21:
		return digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return "0." + strings.Repeat("0", -n) + digits
	}

	sign := "+"
	e := n - 1
	if e < 0 {
		sign = "-"
		e = -e
	}
	if k == 1 {
		return digits + "e" + sign + strconv.Itoa(e)
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + strconv.Itoa(e)
}
