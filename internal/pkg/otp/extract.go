// Package otp extracts one-time passcodes from free-form SMS text.
//
// SMS bodies from different senders have no fixed grammar, so extraction is
// a best-effort heuristic cascade, not a parser. The cascade order and its
// quirks (last-match-wins fallback in particular) are load-bearing:
// downstream consumers depend on them, so do not "improve" accuracy here.
package otp

import (
	"regexp"
	"strings"
)

// NotFound is returned when the message contains no OTP-shaped digit run.
const NotFound = "N/A"

// otpShape is a 3-8 digit run, optionally split once by a hyphen or space.
const otpShape = `([0-9]{3,8}(?:[- ][0-9]{3,8})?)`

// Ordered cascade; the first pattern that matches wins.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:kode|code|otp|pin|verification)[\s:]*` + otpShape),
	regexp.MustCompile(`(?i)(?:adalah|is|use|gunakan)[\s:]*` + otpShape),
	regexp.MustCompile(`(?::\s*|/|\*)?` + otpShape + `(?:\.|,|$)`),
	regexp.MustCompile(`\b` + otpShape + `\b`),
	regexp.MustCompile(`#\s*` + otpShape),
}

var (
	splitPair = regexp.MustCompile(`\b([0-9]{3,8}[- ][0-9]{3,8})\b`)
	bareRun   = regexp.MustCompile(`\b[0-9]{3,8}\b`)
)

// Extract returns the single most likely OTP in message, or NotFound.
//
// Independent digit runs are never concatenated; a run containing one
// internal space or hyphen counts as a single capture and is normalized to
// use a hyphen.
func Extract(message string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(message); m != nil && m[1] != "" {
			return normalize(m[1])
		}
	}

	if m := splitPair.FindStringSubmatch(message); m != nil && m[1] != "" {
		return normalize(m[1])
	}

	// Last resort: the final standalone 3-8 digit run, scanning from the
	// end, so trailing codes beat leading reference numbers.
	runs := bareRun.FindAllString(message, -1)
	for i := len(runs) - 1; i >= 0; i-- {
		if n := len(runs[i]); n >= 3 && n <= 8 {
			return runs[i]
		}
	}

	return NotFound
}

func normalize(code string) string {
	return strings.ReplaceAll(code, " ", "-")
}
