package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Error makes Violations usable as an error value.
func (v Violations) Error() string {
	if v.Empty() {
		return "no violations"
	}
	parts := make([]string, 0, len(v))
	for field, code := range v {
		parts = append(parts, field+": "+code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

var (
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	keyRe      = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,49}$`)
)

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if utf8.RuneCountInString(value) > max {
		v[field] = "too_long"
	}
}

func HexColor(field, value string, v Violations) {
	if !hexColorRe.MatchString(value) {
		v[field] = "invalid_color"
	}
}

// Email accepts an empty value; combine with Required when mandatory.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v[field] = "invalid_email"
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// Key checks identifiers such as role keys: lowercase, 2-50 chars.
func Key(field, value string, v Violations) {
	if !keyRe.MatchString(value) {
		v[field] = "invalid_key"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "invalid_choice"
}
