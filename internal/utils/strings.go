package utils

import (
	"strings"
)

// phoneSeparators are stripped from phone numbers before validation.
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// NormalizePhone trims a phone number and drops common separators, so
// "+1 (555) 010-9999" is stored as "+15550109999". Other characters are kept
// for validation to reject.
func NormalizePhone(phone string) string {
	return phoneSeparators.Replace(strings.TrimSpace(phone))
}

// MapPtr returns a pointer to fn(*s). A nil s stays nil.
func MapPtr(s *string, fn func(string) string) *string {
	if s == nil {
		return nil
	}
	v := fn(*s)
	return &v
}
