package mcp

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ToolCategory represents the functional category of a tool.
type ToolCategory string

const (
	// CategoryPublisher is for publisher create/get/list tools.
	CategoryPublisher ToolCategory = "publisher"
	// CategorySolution is for solution create/get/list tools.
	CategorySolution ToolCategory = "solution"
	// CategoryContext is for the active solution context tools.
	CategoryContext ToolCategory = "context"
)

// ToolMetadata contains metadata about a registered MCP tool.
type ToolMetadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ToolCategory `json:"category"`

	// ReadOnly tools never modify Dataverse or the context file.
	ReadOnly bool `json:"read_only"`

	// Remote tools call the Dataverse Web API.
	Remote bool `json:"remote"`

	Keywords []string `json:"keywords,omitempty"`
}

// ToolRegistry holds metadata about registered tools.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*ToolMetadata
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*ToolMetadata),
	}
}

// Register adds a tool to the registry.
func (r *ToolRegistry) Register(tool *ToolMetadata) {
	if tool == nil || tool.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Get returns the metadata for a specific tool.
func (r *ToolRegistry) Get(name string) (*ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by category, then name.
func (r *ToolRegistry) List() []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sortTools(result)
	return result
}

// ListByCategory returns all tools in a specific category.
func (r *ToolRegistry) ListByCategory(category ToolCategory) []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*ToolMetadata, 0)
	for _, tool := range r.tools {
		if tool.Category == category {
			result = append(result, tool)
		}
	}
	sortTools(result)
	return result
}

// Count returns the total number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SearchResult contains a tool match from a search query.
type SearchResult struct {
	Tool *ToolMetadata `json:"tool"`

	// Score indicates match quality (higher is better).
	// 3 = exact name match
	// 2 = name contains query
	// 1 = description/keywords match
	Score int `json:"score"`

	MatchReason string `json:"match_reason"`
}

// Search finds tools matching the query, case-insensitively, against names,
// descriptions and keywords. A query that compiles as a regular expression
// is also matched as one.
func (r *ToolRegistry) Search(query string) []*SearchResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if query == "" {
		return nil
	}

	queryLower := strings.ToLower(query)
	var results []*SearchResult

	var regex *regexp.Regexp
	if re, err := regexp.Compile("(?i)" + query); err == nil {
		regex = re
	}

	for _, tool := range r.tools {
		nameLower := strings.ToLower(tool.Name)

		switch {
		case nameLower == queryLower:
			results = append(results, &SearchResult{Tool: tool, Score: 3, MatchReason: "exact name match"})
		case strings.Contains(nameLower, queryLower):
			results = append(results, &SearchResult{Tool: tool, Score: 2, MatchReason: "name contains query"})
		case regex != nil && regex.MatchString(tool.Name):
			results = append(results, &SearchResult{Tool: tool, Score: 2, MatchReason: "name matches pattern"})
		case strings.Contains(strings.ToLower(tool.Description), queryLower):
			results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "description contains query"})
		case regex != nil && regex.MatchString(tool.Description):
			results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "description matches pattern"})
		default:
			if reason := matchKeywords(tool.Keywords, queryLower, regex); reason != "" {
				results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: reason})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Tool.Name < results[j].Tool.Name
	})
	return results
}

func matchKeywords(keywords []string, queryLower string, regex *regexp.Regexp) string {
	for _, kw := range keywords {
		if strings.Contains(strings.ToLower(kw), queryLower) {
			return "keyword contains query"
		}
		if regex != nil && regex.MatchString(kw) {
			return "keyword matches pattern"
		}
	}
	return ""
}

func sortTools(tools []*ToolMetadata) {
	sort.Slice(tools, func(i, j int) bool {
		if tools[i].Category != tools[j].Category {
			return tools[i].Category < tools[j].Category
		}
		return tools[i].Name < tools[j].Name
	})
}
