package mcp

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ValidationError reports an invalid tool argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	uniqueNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	versionPattern    = regexp.MustCompile(`^\d+(\.\d+){1,3}$`)
)

const (
	minOptionValuePrefix = 10000
	maxOptionValuePrefix = 99999
	defaultVersion       = "1.0.0.0"
)

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

func checkUniqueName(field, v string) error {
	if err := requireText(field, v); err != nil {
		return err
	}
	if !uniqueNamePattern.MatchString(v) {
		return &ValidationError{Field: field, Reason: "must contain only letters, digits and underscores"}
	}
	return nil
}

func checkPrefix(field, v string) error {
	if len(v) < 2 || len(v) > 8 {
		return &ValidationError{Field: field, Reason: "must be 2-8 characters"}
	}
	for i, r := range v {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return &ValidationError{Field: field, Reason: "must be alphanumeric"}
		}
		if i == 0 && !unicode.IsLetter(r) {
			return &ValidationError{Field: field, Reason: "must start with a letter"}
		}
	}
	if strings.HasPrefix(strings.ToLower(v), "mscrm") {
		return &ValidationError{Field: field, Reason: "cannot start with 'mscrm'"}
	}
	return nil
}

func checkTop(top *int) error {
	if top != nil && *top < 1 {
		return &ValidationError{Field: "top", Reason: "must be at least 1"}
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

type createPublisherInput struct {
	FriendlyName                   string `json:"friendlyName" jsonschema:"Friendly name for the publisher"`
	UniqueName                     string `json:"uniqueName" jsonschema:"Unique name for the publisher (e.g. 'examplepublisher')"`
	Description                    string `json:"description,omitempty" jsonschema:"Description of the publisher"`
	CustomizationPrefix            string `json:"customizationPrefix" jsonschema:"Customization prefix for schema names (e.g. 'sample')"`
	CustomizationOptionValuePrefix int    `json:"customizationOptionValuePrefix" jsonschema:"Option value prefix, 10000-99999 (e.g. 72700)"`
}

func (in createPublisherInput) validate() error {
	if err := requireText("friendlyName", in.FriendlyName); err != nil {
		return err
	}
	if err := checkUniqueName("uniqueName", in.UniqueName); err != nil {
		return err
	}
	if err := checkPrefix("customizationPrefix", in.CustomizationPrefix); err != nil {
		return err
	}
	if in.CustomizationOptionValuePrefix < minOptionValuePrefix || in.CustomizationOptionValuePrefix > maxOptionValuePrefix {
		return &ValidationError{
			Field:  "customizationOptionValuePrefix",
			Reason: fmt.Sprintf("must be between %d and %d", minOptionValuePrefix, maxOptionValuePrefix),
		}
	}
	return nil
}

type createSolutionInput struct {
	FriendlyName        string `json:"friendlyName" jsonschema:"Friendly name for the solution"`
	UniqueName          string `json:"uniqueName" jsonschema:"Unique name for the solution (e.g. 'examplesolution')"`
	Description         string `json:"description,omitempty" jsonschema:"Description of the solution"`
	Version             string `json:"version,omitempty" jsonschema:"Version of the solution (default 1.0.0.0)"`
	PublisherUniqueName string `json:"publisherUniqueName" jsonschema:"Unique name of the publisher to associate with this solution"`
}

func (in createSolutionInput) validate() error {
	if err := requireText("friendlyName", in.FriendlyName); err != nil {
		return err
	}
	if err := checkUniqueName("uniqueName", in.UniqueName); err != nil {
		return err
	}
	if in.Version != "" && !versionPattern.MatchString(in.Version) {
		return &ValidationError{Field: "version", Reason: "must look like 1.0 or 1.0.0.0"}
	}
	return checkUniqueName("publisherUniqueName", in.PublisherUniqueName)
}

type getByUniqueNameInput struct {
	UniqueName string `json:"uniqueName" jsonschema:"Unique name to look up"`
}

func (in getByUniqueNameInput) validate() error {
	return checkUniqueName("uniqueName", in.UniqueName)
}

type listPublishersInput struct {
	CustomOnly *bool `json:"customOnly,omitempty" jsonschema:"Whether to list only custom publishers (default true)"`
	Top        *int  `json:"top,omitempty" jsonschema:"Maximum number of publishers to return"`
}

func (in listPublishersInput) validate() error {
	return checkTop(in.Top)
}

type listSolutionsInput struct {
	IncludeManaged *bool `json:"includeManaged,omitempty" jsonschema:"Whether to include managed solutions (default false)"`
	Top            *int  `json:"top,omitempty" jsonschema:"Maximum number of solutions to return"`
}

func (in listSolutionsInput) validate() error {
	return checkTop(in.Top)
}

type setSolutionContextInput struct {
	SolutionUniqueName string `json:"solutionUniqueName" jsonschema:"Unique name of the solution to set as context for subsequent operations"`
}

func (in setSolutionContextInput) validate() error {
	return checkUniqueName("solutionUniqueName", in.SolutionUniqueName)
}

type emptyInput struct{}

func (emptyInput) validate() error { return nil }
