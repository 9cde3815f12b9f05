// Package scanner flags categories of sensitive data in retrieved chunks
// without ever returning the matched text.
package scanner

import (
	"regexp"
	"sort"

	"securerag/internal/domain"
)

// Pattern is a named sensitive-data detector.
type Pattern struct {
	Label string
	re    *regexp.Regexp
}

// All patterns are case-insensitive.
var registry = []Pattern{
	{"Email Address", regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
	{"SSN", regexp.MustCompile(`(?i)\b\d{3}-\d{2}-\d{4}\b`)},
	{"Credit Card", regexp.MustCompile(`(?i)\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)},
	{"API Key Pattern", regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|api[_-]?secret)[\s:="']([a-zA-Z0-9_\-]{20,})`)},
	{"AWS Access Key", regexp.MustCompile(`(?i)\b(AKIA[0-9A-Z]{16})\b`)},
	{"Phone Number", regexp.MustCompile(`(?i)\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{"IP Address", regexp.MustCompile(`(?i)\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
}

// Patterns returns the labels of every registered pattern.
func Patterns() []string {
	out := make([]string, len(registry))
	for i, p := range registry {
		out[i] = p.Label
	}
	return out
}

// Finding formats the alert emitted for a pattern label.
func Finding(label string) string {
	return label + " pattern detected in source chunk"
}

// Scan returns one finding per pattern that matches anywhere in chunks.
// When enabled is false nothing is evaluated and the result is empty.
// The result is a set; it is returned sorted only for stable output.
func Scan(chunks []domain.Chunk, enabled bool) []string {
	if !enabled {
		return []string{}
	}
	hit := make(map[string]struct{})
	for _, p := range registry {
		for _, ch := range chunks {
			if p.re.MatchString(ch.Text) {
				hit[Finding(p.Label)] = struct{}{}
				break
			}
		}
	}
	findings := make([]string, 0, len(hit))
	for f := range hit {
		findings = append(findings, f)
	}
	sort.Strings(findings)
	return findings
}

// ScanResults is Scan over the chunks of ranked search results.
func ScanResults(results []domain.SearchResult, enabled bool) []string {
	if !enabled {
		return []string{}
	}
	chunks := make([]domain.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return Scan(chunks, true)
}
