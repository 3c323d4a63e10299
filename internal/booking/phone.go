// Package booking implements the event-side booking pipeline: extracting and
// validating the metadata bag carried on a completed checkout session,
// resolving the recipient driver, normalizing the customer phone number, and
// deriving the call/SMS quick-action links embedded in driver notifications.
//
// Every function in this package is a pure function of its inputs; no I/O,
// no shared state.
package booking

import "strings"

// frCountryCode is the French country calling code. Numbers entered in the
// national format ("06...") are rewritten to +33; bare digits that neither
// start with the trunk zero nor with "33" pass through unchanged. That
// passthrough can yield an invalid international number for non-French
// input; it is the documented behavior, kept rather than guessed at.
const frCountryCode = "33"

// NormalizePhone canonicalizes a locally formatted phone number into
// international dial form ("+33612345678"). The function is total: every
// string input produces a string output and unparseable input yields "",
// never an error.
//
// Rules, applied to the input stripped of everything but digits and a
// leading "+":
//   - empty result            -> ""
//   - already starts with "+" -> returned as-is
//   - leading trunk "0"       -> "0" replaced by "+33"
//   - leading bare "33"       -> "+" prepended
//   - anything else           -> returned unchanged (best-effort passthrough)
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)

	var b strings.Builder
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	switch {
	case digits == "" || digits == "+":
		return ""
	case strings.HasPrefix(digits, "+"):
		return digits
	case strings.HasPrefix(digits, "0"):
		return "+" + frCountryCode + digits[1:]
	case strings.HasPrefix(digits, frCountryCode):
		return "+" + digits
	default:
		return digits
	}
}
