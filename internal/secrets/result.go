package secrets

// Result contains the scrubbing result.
type Result struct {
	Scrubbed string         `json:"scrubbed"`
	Findings []Finding      `json:"findings,omitempty"`
	ByRule   map[string]int `json:"by_rule,omitempty"`
}

// Finding represents a detected secret. The matched value is deliberately
// absent.
type Finding struct {
	RuleID     string `json:"rule_id"`
	Severity   string `json:"severity"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Line       int    `json:"line"`
}

// HasFindings returns true if any secrets were found.
func (r *Result) HasFindings() bool {
	return len(r.Findings) > 0
}

// RuleIDs returns the rule IDs that matched, in first-seen order.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	seen := make(map[string]bool, len(r.ByRule))
	for _, f := range r.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	return ids
}
