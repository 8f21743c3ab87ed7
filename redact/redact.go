// Package redact finds and masks credentials in free text such as commit
// messages and log attributes.
package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// secretPattern matches high-entropy strings that may be secrets.
var secretPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a string to be
// considered a secret. Hex object ids top out at 4.0 and stay below it.
const entropyThreshold = 4.5

// EntropyRule is the rule id reported for entropy-based findings.
const EntropyRule = "high-entropy-string"

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

// Finding is one suspected secret.
type Finding struct {
	// RuleID names the gitleaks rule that matched, or EntropyRule.
	RuleID string `json:"rule_id"`
	// Line is the 1-based line of s the secret starts on.
	Line int `json:"line"`
	// Preview is the secret with everything but its first four characters masked.
	Preview string `json:"preview"`

	start, end int
}

// Scan reports suspected secrets in s using layered detection:
// 1. Entropy-based: high-entropy alphanumeric sequences (threshold 4.5)
// 2. Pattern-based: gitleaks regex rules (180+ known secret formats)
// Findings are ordered by position; overlapping matches are all reported.
func Scan(s string) []Finding {
	var findings []Finding

	for _, loc := range secretPattern.FindAllStringIndex(s, -1) {
		if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
			findings = append(findings, newFinding(s, EntropyRule, loc[0], loc[1]))
		}
	}

	if d := getDetector(); d != nil {
		for _, f := range d.DetectString(s) {
			if f.Secret == "" {
				continue
			}
			searchFrom := 0
			for {
				idx := strings.Index(s[searchFrom:], f.Secret)
				if idx < 0 {
					break
				}
				absIdx := searchFrom + idx
				findings = append(findings, newFinding(s, f.RuleID, absIdx, absIdx+len(f.Secret)))
				searchFrom = absIdx + len(f.Secret)
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].start < findings[j].start
	})
	return findings
}

func newFinding(s, rule string, start, end int) Finding {
	return Finding{
		RuleID:  rule,
		Line:    strings.Count(s[:start], "\n") + 1,
		Preview: mask(s[start:end]),
		start:   start,
		end:     end,
	}
}

func mask(secret string) string {
	const keep = 4
	if len(secret) <= keep {
		return strings.Repeat("*", len(secret))
	}
	return secret[:keep] + strings.Repeat("*", len(secret)-keep)
}

// ContainsSecret reports whether Scan finds anything in s.
func ContainsSecret(s string) bool {
	return len(Scan(s)) > 0
}

// String replaces every suspected secret in s with "REDACTED".
func String(s string) string {
	findings := Scan(s)
	if len(findings) == 0 {
		return s
	}

	// Merge overlapping regions; findings are already sorted by start.
	type region struct{ start, end int }
	merged := []region{{findings[0].start, findings[0].end}}
	for _, f := range findings[1:] {
		last := &merged[len(merged)-1]
		if f.start <= last.end {
			if f.end > last.end {
				last.end = f.end
			}
		} else {
			merged = append(merged, region{f.start, f.end})
		}
	}

	var b strings.Builder
	prev := 0
	for _, r := range merged {
		b.WriteString(s[prev:r.start])
		b.WriteString("REDACTED")
		prev = r.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

// Bytes is a convenience wrapper around String for []byte content.
func Bytes(b []byte) []byte {
	s := string(b)
	redacted := String(s)
	if redacted == s {
		return b
	}
	return []byte(redacted)
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := range len(s) {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
