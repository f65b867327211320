// Package normalize holds the string cleanup every source applies before
// building a feature, so that values coming from different banks compare
// equal when they describe the same thing.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	numberedName   = regexp.MustCompile(`^(.*)\s+\d+$`)
	postalCode     = regexp.MustCompile(`(?i)\s*c\.?p\.?\s*\d{1,5}\s*`)
	numberLabel    = regexp.MustCompile(`(?i)\s+(no|num|numero)(\.?\s+|\.)`)
	colonyLabel    = regexp.MustCompile(`(?i)\s+col\.?\s+\.*`)
	repeatedSpaces = regexp.MustCompile(`\s{2,}`)
)

// StripBranchNumber removes a trailing sequential number from a display
// name: "Plaza Satelite 12" becomes "Plaza Satelite". Names without a
// "<text> <digits>" suffix are returned unchanged.
func StripBranchNumber(name string) string {
	m := numberedName.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return strings.TrimSpace(m[1])
}

// Titleize lowercases s and capitalizes the first letter of every word.
func Titleize(s string) string {
	return cases.Title(language.Spanish).String(strings.ToLower(strings.TrimSpace(s)))
}

// Slug turns a display name into a region key: accents removed, lowercase,
// whitespace runs replaced by a single hyphen.
func Slug(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), "-")
}

// SanitizeAddress keeps the street part of a free-form address: anything
// after the first comma, postal codes, number labels and colony labels are
// dropped.
func SanitizeAddress(address string) string {
	address = strings.ToLower(strings.Split(address, ",")[0])
	address = postalCode.ReplaceAllString(address, " ")
	address = strings.TrimSpace(numberLabel.ReplaceAllString(address, " "))
	address = strings.TrimSpace(colonyLabel.ReplaceAllString(address, " "))
	return Titleize(repeatedSpaces.ReplaceAllString(address, " "))
}

// PadZip left-pads a postal code with zeros to five digits.
func PadZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if zip == "" || len(zip) >= 5 {
		return zip
	}
	return strings.Repeat("0", 5-len(zip)) + zip
}
