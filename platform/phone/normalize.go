// Package phone canonicalizes phone numbers for reply matching.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"
)

const (
	countryCode    = "55"
	canonicalLen   = 13
	legacyLocalLen = 10
	localLen       = 11
)

// validDDD lists the Brazilian area codes assigned by ANATEL.
var validDDD = map[string]struct{}{
	"11": {}, "12": {}, "13": {}, "14": {}, "15": {}, "16": {}, "17": {}, "18": {}, "19": {},
	"21": {}, "22": {}, "24": {}, "27": {}, "28": {},
	"31": {}, "32": {}, "33": {}, "34": {}, "35": {}, "37": {}, "38": {},
	"41": {}, "42": {}, "43": {}, "44": {}, "45": {}, "46": {}, "47": {}, "48": {}, "49": {},
	"51": {}, "53": {}, "54": {}, "55": {},
	"61": {}, "62": {}, "63": {}, "64": {}, "65": {}, "66": {}, "67": {}, "68": {}, "69": {},
	"71": {}, "73": {}, "74": {}, "75": {}, "77": {}, "79": {},
	"81": {}, "82": {}, "83": {}, "84": {}, "85": {}, "86": {}, "87": {}, "88": {}, "89": {},
	"91": {}, "92": {}, "93": {}, "94": {}, "95": {}, "96": {}, "97": {}, "98": {}, "99": {},
}

// IsValidDDD reports whether the two-digit prefix is an assigned area code.
func IsValidDDD(ddd string) bool {
	_, ok := validDDD[ddd]
	return ok
}

// Normalize turns a raw phone or WhatsApp JID into a comparable digit string.
// It never fails: input without digits yields "", which matches nothing.
// Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}
	out, _ := canonical(digits)
	return out
}

// Digits drops any JID suffix ("...@s.whatsapp.net") and every non-digit rune.
// A duplicated leading country code is collapsed.
func Digits(raw string) string {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	// Multi-device JIDs carry a ":device" suffix on the user part.
	if colon := strings.IndexByte(raw, ':'); colon >= 0 {
		raw = raw[:colon]
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	digits := b.String()

	for len(digits) > canonicalLen && strings.HasPrefix(digits, countryCode+countryCode) {
		digits = digits[len(countryCode):]
	}
	return digits
}

// canonical applies the Brazilian numbering rules to a digit string and
// reports whether one of them recognized the shape.
func canonical(digits string) (string, bool) {
	switch len(digits) {
	case legacyLocalLen:
		if IsValidDDD(digits[:2]) {
			return countryCode + digits[:2] + "9" + digits[2:], true
		}
	case localLen:
		if IsValidDDD(digits[:2]) {
			return countryCode + digits, true
		}
	case canonicalLen:
		if strings.HasPrefix(digits, countryCode) {
			return digits, true
		}
	}
	return digits, false
}
