package ingest

import (
	"regexp"
	"strings"
)

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	pageRef      = regexp.MustCompile(`(?i)Page \d+ of \d+`)
	digitsLine   = regexp.MustCompile(`^\d+\s*$`)
	capsLine     = regexp.MustCompile(`^[A-Z\s]+$`)
	sepLine      = regexp.MustCompile(`^\s*[-_=*]+\s*$`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// Normalize strips common headers, footers and extraction artifacts from raw
// document text. The passes run in a fixed order; later passes assume the
// output of earlier ones. Deterministic and idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.ReplaceAll(raw, "\f", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = pageRef.ReplaceAllString(line, "")
		if digitsLine.MatchString(line) || capsLine.MatchString(line) || sepLine.MatchString(line) {
			line = ""
		}
		lines[i] = line
	}

	return strings.TrimSpace(spaceRun.ReplaceAllString(strings.Join(lines, "\n"), " "))
}
