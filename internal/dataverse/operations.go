package dataverse

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

var (
	publisherListFields = []string{
		"friendlyname", "uniquename", "customizationprefix",
		"customizationoptionvalueprefix", "description", "isreadonly",
	}
	solutionListFields = []string{
		"friendlyname", "uniquename", "version", "description", "ismanaged",
	}
	solutionPublisherFields = []string{
		"friendlyname", "uniquename", "customizationprefix", "customizationoptionvalueprefix",
	}
)

// ListPublishersOptions filters ListPublishers.
type ListPublishersOptions struct {
	// CustomOnly excludes read-only (system) publishers.
	CustomOnly bool
	// Top caps the number of records; zero means no cap.
	Top int
}

// ListPublishers returns publishers in server order.
func (c *Client) ListPublishers(ctx context.Context, opts ListPublishersOptions) ([]Publisher, error) {
	q := &Query{Select: publisherListFields, Top: opts.Top}
	if opts.CustomOnly {
		q.Filter = Eq("isreadonly", false)
	}

	var res collection[Publisher]
	if err := c.Get(ctx, publisherSet, q, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// PublisherByUniqueName returns the full publisher record with the given
// unique name.
func (c *Client) PublisherByUniqueName(ctx context.Context, uniqueName string) (*Publisher, error) {
	q := &Query{Filter: Eq("uniquename", uniqueName)}

	var res collection[Publisher]
	if err := c.Get(ctx, publisherSet, q, &res); err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, &NotFoundError{Entity: "Publisher", Key: "unique name", Value: uniqueName}
	}
	return &res.Value[0], nil
}

// PublisherByID fetches a publisher by primary key.
func (c *Client) PublisherByID(ctx context.Context, id uuid.UUID) (*Publisher, error) {
	var p Publisher
	err := c.Get(ctx, fmt.Sprintf("%s(%s)", publisherSet, id), nil, &p)
	if IsStatus(err, http.StatusNotFound) {
		return nil, &NotFoundError{Entity: "Publisher", Key: "id", Value: id.String()}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePublisher creates a publisher and returns the created record.
func (c *Client) CreatePublisher(ctx context.Context, p NewPublisher) (*Publisher, error) {
	var created Publisher
	if err := c.Post(ctx, publisherSet, p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListSolutionsOptions filters ListSolutions.
type ListSolutionsOptions struct {
	IncludeManaged bool
	Top            int
}

// ListSolutions returns solutions with their publisher expanded.
func (c *Client) ListSolutions(ctx context.Context, opts ListSolutionsOptions) ([]Solution, error) {
	q := &Query{
		Select: solutionListFields,
		Expand: []Expand{{
			Property: "publisherid",
			Select:   []string{"friendlyname", "uniquename", "customizationprefix"},
		}},
		Top: opts.Top,
	}
	if !opts.IncludeManaged {
		q.Filter = Eq("ismanaged", false)
	}

	var res collection[Solution]
	if err := c.Get(ctx, solutionSet, q, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// SolutionByUniqueName returns the solution with the given unique name and
// its publisher expanded. Unique names are unique server side; more than
// one match is reported as an error.
func (c *Client) SolutionByUniqueName(ctx context.Context, uniqueName string) (*Solution, error) {
	q := &Query{
		Filter: Eq("uniquename", uniqueName),
		Expand: []Expand{{Property: "publisherid", Select: solutionPublisherFields}},
	}

	var res collection[Solution]
	if err := c.Get(ctx, solutionSet, q, &res); err != nil {
		return nil, err
	}
	switch len(res.Value) {
	case 0:
		return nil, &NotFoundError{Entity: "Solution", Key: "unique name", Value: uniqueName}
	case 1:
		return &res.Value[0], nil
	default:
		return nil, fmt.Errorf("expected one solution with unique name '%s', found %d", uniqueName, len(res.Value))
	}
}

// CreateSolution creates a solution owned by s.PublisherID and returns the
// created record.
func (c *Client) CreateSolution(ctx context.Context, s NewSolution) (*Solution, error) {
	if s.PublisherID == uuid.Nil {
		return nil, fmt.Errorf("publisher id required for solution '%s'", s.UniqueName)
	}

	body := solutionBody{
		NewSolution:   s,
		PublisherBind: fmt.Sprintf("/%s(%s)", publisherSet, s.PublisherID),
	}

	var created Solution
	if err := c.Post(ctx, solutionSet, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
