// Package pii detects personally identifiable information in free text
// submitted through the portal. The scanner is pure pattern matching: no
// I/O, no state, total over all string inputs.
package pii

import (
	"regexp"
	"strings"
)

// Finding is one PII match. Match is always a verbatim substring of the
// scanned input.
type Finding struct {
	Type  string `json:"type"`
	Match string `json:"match"`
}

// Finding types, in scan order.
const (
	TypeEmail    = "email"
	TypeUKMobile = "uk_mobile"
	TypeNINumber = "ni_number"
	TypePostcode = "postcode"
)

type pattern struct {
	typ string
	re  *regexp.Regexp
	// keep filters out structural matches that are not valid instances,
	// e.g. National Insurance numbers with administrative prefixes.
	keep func(match string) bool
}

// niExcludedPrefixes are never allocated as National Insurance prefixes.
var niExcludedPrefixes = map[string]struct{}{
	"BG": {}, "GB": {}, "NK": {}, "KN": {}, "TN": {}, "NT": {}, "ZZ": {},
}

var patterns = []pattern{
	{
		typ: TypeEmail,
		re:  regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	},
	{
		typ: TypeUKMobile,
		re:  regexp.MustCompile(`(?:\+44\s?7\d{3}|\(?07\d{3}\)?)\s?\d{3}\s?\d{3}`),
	},
	{
		typ: TypeNINumber,
		re:  regexp.MustCompile(`(?i)\b[A-CEGHJ-PR-TW-Z]{2}\s?\d{2}\s?\d{2}\s?\d{2}\s?[A-D]\b`),
		keep: func(match string) bool {
			prefix := strings.ToUpper(strings.ReplaceAll(match, " ", ""))[:2]
			_, excluded := niExcludedPrefixes[prefix]
			return !excluded
		},
	},
	{
		typ: TypePostcode,
		re:  regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}\b`),
	},
}

// Scan returns every PII match in text, in pattern-definition order then
// left-to-right match order, with no deduplication. It never fails; an
// empty or clean input returns an empty slice.
func Scan(text string) []Finding {
	findings := []Finding{}
	for _, p := range patterns {
		for _, match := range p.re.FindAllString(text, -1) {
			if p.keep != nil && !p.keep(match) {
				continue
			}
			findings = append(findings, Finding{Type: p.typ, Match: match})
		}
	}
	return findings
}

// Redact replaces every PII match with a [REDACTED_<TYPE>] marker for safe
// display and audit logging.
func Redact(text string) string {
	for _, p := range patterns {
		marker := "[REDACTED_" + strings.ToUpper(p.typ) + "]"
		text = p.re.ReplaceAllStringFunc(text, func(match string) string {
			if p.keep != nil && !p.keep(match) {
				return match
			}
			return marker
		})
	}
	return text
}
