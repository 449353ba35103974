package utils

import "strings"

// SanitizeISBN removes any non-digit characters from the ISBN (X is kept as it
// is a valid ISBN-10 check digit).
func SanitizeISBN(isbn string) string {
	var cleaned strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(isbn)) {
		if (r >= '0' && r <= '9') || r == 'X' {
			cleaned.WriteRune(r)
		}
	}
	return cleaned.String()
}

// IsValidISBN returns true if the sanitized string has a valid ISBN-10 or
// ISBN-13 length.
func IsValidISBN(cleaned string) bool {
	return len(cleaned) == 10 || len(cleaned) == 13
}

// IsISBN13 reports whether the sanitized string is an ISBN-13.
func IsISBN13(cleaned string) bool {
	return len(cleaned) == 13
}
