package phone

import (
	"github.com/nyaruka/phonenumbers"

	"agenda_backend/platform/logger"
)

const defaultRegion = "BR"

// OutboundFormatter prepares a stored contact phone for sending and for
// registering a watch. Shapes it cannot place are logged and kept as-is.
type OutboundFormatter struct {
	log *logger.Logger
}

// NewOutboundFormatter creates a formatter that logs through log.
func NewOutboundFormatter(log *logger.Logger) *OutboundFormatter {
	if log == nil {
		log = logger.Nop()
	}
	return &OutboundFormatter{log: log}
}

// Format returns the canonical digit string for raw.
func (f *OutboundFormatter) Format(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		f.log.Warn("outbound phone has no digits", "raw", raw)
		return ""
	}

	out, ok := canonical(digits)
	if !ok {
		f.log.Warn("outbound phone has unrecognized shape, using as-is", "phone", digits, "length", len(digits))
		return out
	}

	if !isValidBR(out) {
		f.log.Warn("outbound phone rejected by numbering plan", "phone", out)
	}
	return out
}

// E164 formats a number as +<country><national>. Numbers the library cannot
// parse are returned as "+" followed by their digits.
func E164(raw string) string {
	digits := Normalize(raw)
	if digits == "" {
		return ""
	}
	num, err := phonenumbers.Parse("+"+digits, defaultRegion)
	if err != nil {
		return "+" + digits
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func isValidBR(digits string) bool {
	num, err := phonenumbers.Parse("+"+digits, defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumberForRegion(num, defaultRegion)
}
