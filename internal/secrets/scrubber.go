package secrets

import (
	"sort"
	"strings"
)

// Scrubber detects and redacts secrets from content.
type Scrubber interface {
	// Scrub redacts secrets from the content.
	Scrub(content string) *Result

	// IsEnabled returns whether scrubbing is enabled.
	IsEnabled() bool
}

type scrubber struct {
	config *Config
}

type span struct {
	start, end int
}

// New creates a Scrubber. A nil config means DefaultConfig().
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &scrubber{config: cfg}, nil
}

// MustNew creates a Scrubber, panicking on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Scrub redacts secrets from the content. Overlapping matches from
// different rules collapse into one redaction.
func (s *scrubber) Scrub(content string) *Result {
	result := &Result{
		Scrubbed: content,
		ByRule:   make(map[string]int),
	}
	if !s.config.Enabled {
		return result
	}

	var spans []span
	for _, rule := range s.config.compiledRules {
		if !rule.hasKeyword(content) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(content, -1) {
			if s.isAllowed(content[m[0]:m[1]]) {
				continue
			}
			result.Findings = append(result.Findings, Finding{
				RuleID:     rule.ID,
				Severity:   rule.Severity,
				StartIndex: m[0],
				EndIndex:   m[1],
				Line:       strings.Count(content[:m[0]], "\n") + 1,
			})
			result.ByRule[rule.ID]++
			spans = append(spans, span{m[0], m[1]})
		}
	}

	if len(spans) == 0 {
		return result
	}

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, sp := range mergeSpans(spans) {
		b.WriteString(content[last:sp.start])
		b.WriteString(s.config.RedactionString)
		last = sp.end
	}
	b.WriteString(content[last:])
	result.Scrubbed = b.String()
	return result
}

// IsEnabled returns whether scrubbing is enabled.
func (s *scrubber) IsEnabled() bool {
	return s.config.Enabled
}

func (s *scrubber) isAllowed(match string) bool {
	for _, pattern := range s.config.compiledAllowList {
		if pattern.MatchString(match) {
			return true
		}
	}
	return false
}

func (r *compiledRule) hasKeyword(content string) bool {
	if len(r.keywords) == 0 {
		return true
	}
	for _, kw := range r.keywords {
		if kw.MatchString(content) {
			return true
		}
	}
	return false
}

// mergeSpans sorts spans and merges overlapping or adjacent ones.
func mergeSpans(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := []span{spans[0]}
	for _, cur := range spans[1:] {
		last := &merged[len(merged)-1]
		if cur.start <= last.end {
			if cur.end > last.end {
				last.end = cur.end
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// NoopScrubber returns content unchanged.
type NoopScrubber struct{}

// Scrub returns content unchanged.
func (NoopScrubber) Scrub(content string) *Result {
	return &Result{Scrubbed: content, ByRule: map[string]int{}}
}

// IsEnabled returns false.
func (NoopScrubber) IsEnabled() bool { return false }
