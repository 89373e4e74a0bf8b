package dataverse

import (
	"github.com/google/uuid"
)

// Entity set names.
const (
	publisherSet = "publishers"
	solutionSet  = "solutions"
)

// Publisher is a row of the publisher table.
type Publisher struct {
	ID                             uuid.UUID `json:"publisherid"`
	FriendlyName                   string    `json:"friendlyname"`
	UniqueName                     string    `json:"uniquename"`
	CustomizationPrefix            string    `json:"customizationprefix"`
	CustomizationOptionValuePrefix int       `json:"customizationoptionvalueprefix"`
	Description                    string    `json:"description,omitempty"`
	IsReadOnly                     bool      `json:"isreadonly"`
}

// Solution is a row of the solution table. Publisher is populated only
// when the publisherid navigation property was expanded.
type Solution struct {
	ID           uuid.UUID  `json:"solutionid"`
	FriendlyName string     `json:"friendlyname"`
	UniqueName   string     `json:"uniquename"`
	Version      string     `json:"version"`
	Description  string     `json:"description,omitempty"`
	IsManaged    bool       `json:"ismanaged"`
	PublisherID  *uuid.UUID `json:"_publisherid_value,omitempty"`
	Publisher    *Publisher `json:"publisherid,omitempty"`
}

// OwnerID returns the owning publisher's id from the lookup value or the
// expanded record.
func (s *Solution) OwnerID() (uuid.UUID, bool) {
	if s.PublisherID != nil && *s.PublisherID != uuid.Nil {
		return *s.PublisherID, true
	}
	if s.Publisher != nil && s.Publisher.ID != uuid.Nil {
		return s.Publisher.ID, true
	}
	return uuid.Nil, false
}

// NewPublisher is the create payload for a publisher.
type NewPublisher struct {
	FriendlyName                   string `json:"friendlyname"`
	UniqueName                     string `json:"uniquename"`
	Description                    string `json:"description"`
	CustomizationPrefix            string `json:"customizationprefix"`
	CustomizationOptionValuePrefix int    `json:"customizationoptionvalueprefix"`
}

// NewSolution is the create payload for a solution.
type NewSolution struct {
	FriendlyName string    `json:"friendlyname"`
	UniqueName   string    `json:"uniquename"`
	Description  string    `json:"description"`
	Version      string    `json:"version"`
	PublisherID  uuid.UUID `json:"-"`
}

// solutionBody adds the publisher association to NewSolution.
type solutionBody struct {
	NewSolution
	PublisherBind string `json:"publisherid@odata.bind"`
}

// PublisherSummary is the camelCase projection used by list output.
type PublisherSummary struct {
	FriendlyName                   string `json:"friendlyName"`
	UniqueName                     string `json:"uniqueName"`
	CustomizationPrefix            string `json:"customizationPrefix"`
	CustomizationOptionValuePrefix int    `json:"customizationOptionValuePrefix"`
	Description                    string `json:"description"`
	IsReadOnly                     bool   `json:"isReadOnly"`
}

// Summary projects p for list output.
func (p Publisher) Summary() PublisherSummary {
	return PublisherSummary{
		FriendlyName:                   p.FriendlyName,
		UniqueName:                     p.UniqueName,
		CustomizationPrefix:            p.CustomizationPrefix,
		CustomizationOptionValuePrefix: p.CustomizationOptionValuePrefix,
		Description:                    p.Description,
		IsReadOnly:                     p.IsReadOnly,
	}
}

// SolutionPublisher is the owning publisher inside SolutionSummary.
type SolutionPublisher struct {
	FriendlyName        string `json:"friendlyName,omitempty"`
	UniqueName          string `json:"uniqueName,omitempty"`
	CustomizationPrefix string `json:"customizationPrefix,omitempty"`
}

// SolutionSummary is the camelCase projection used by list output.
type SolutionSummary struct {
	FriendlyName string            `json:"friendlyName"`
	UniqueName   string            `json:"uniqueName"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	IsManaged    bool              `json:"isManaged"`
	Publisher    SolutionPublisher `json:"publisher"`
}

// Summary projects s for list output.
func (s Solution) Summary() SolutionSummary {
	out := SolutionSummary{
		FriendlyName: s.FriendlyName,
		UniqueName:   s.UniqueName,
		Version:      s.Version,
		Description:  s.Description,
		IsManaged:    s.IsManaged,
	}
	if s.Publisher != nil {
		out.Publisher = SolutionPublisher{
			FriendlyName:        s.Publisher.FriendlyName,
			UniqueName:          s.Publisher.UniqueName,
			CustomizationPrefix: s.Publisher.CustomizationPrefix,
		}
	}
	return out
}

// collection is the envelope of an entity set response.
type collection[T any] struct {
	Value []T `json:"value"`
}
