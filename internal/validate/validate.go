package validate

import (
	"regexp"
	"strconv"
	"strings"

	"printstore/internal/domain"
)

var (
	// US ZIP: 5 digits or ZIP+4
	reZIP   = regexp.MustCompile(`^[0-9]{5}(-[0-9]{4})?$`)
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[A-Za-z0-9 _'\\-]{1,50}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reState = regexp.MustCompile(`^[A-Za-z]{2}$`)
	rePhone = regexp.MustCompile(`^[0-9 ()+.-]{7,20}$`)
	reSort  = regexp.MustCompile(`^(featured|price-low|price-high|name)$`)
)

func ZIP(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 10 {
		return "", false
	}
	return s, reZIP.MatchString(s)
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 100 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// Qty parses a quantity field. Anything unparsable or below one becomes 1.
func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	if n > 99 {
		return 99
	} // clamp to avoid abuse
	return n
}

// ID validates a simple resource identifier (product ids, PayPal order ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Material accepts only catalog material keys; empty means the default.
func Material(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.DefaultMaterial, true
	}
	return s, domain.KnownMaterial(s)
}

// Sort validates the store listing sort order; unknown values become "featured".
func Sort(s string) string {
	s = strings.TrimSpace(s)
	if !reSort.MatchString(s) {
		return "featured"
	}
	return s
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 50 {
		return "", false
	}
	return s, true
}

// Text trims free text and reports whether it is non-empty and at most max bytes.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && len(s) <= max
}

func State(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, reState.MatchString(s)
}

// Phone is optional; an empty value is valid.
func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return s, rePhone.MatchString(s)
}

// Money parses a non-negative amount.
func Money(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

// Password enforces a simple length window for admin passphrases.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 72 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
			hasLetter = true
		case '0' <= r && r <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
