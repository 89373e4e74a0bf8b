package dataverse

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contosoPublisherID = uuid.MustParse("d21aab71-79e7-11dd-8874-00188b01e34f")
	contosoSolutionID  = uuid.MustParse("fd140aae-4df4-11dd-bd17-0019b9312238")
)

func publisherJSON(unique string, readOnly bool) map[string]any {
	return map[string]any{
		"publisherid":                    contosoPublisherID.String(),
		"friendlyname":                   "Publisher " + unique,
		"uniquename":                     unique,
		"customizationprefix":            "cts",
		"customizationoptionvalueprefix": 10000,
		"description":                    "",
		"isreadonly":                     readOnly,
	}
}

func TestListPublishers(t *testing.T) {
	f := newFakeAPI(t)
	f.on(http.MethodGet, "publishers", http.StatusOK, map[string]any{
		"value": []any{publisherJSON("contoso", false), publisherJSON("fabrikam", false)},
	})
	c := newTestClient(t, f)

	t.Run("custom only", func(t *testing.T) {
		pubs, err := c.ListPublishers(context.Background(), ListPublishersOptions{CustomOnly: true, Top: 10})
		require.NoError(t, err)
		require.Len(t, pubs, 2)
		assert.Equal(t, "contoso", pubs[0].UniqueName)
		assert.Equal(t, 10000, pubs[0].CustomizationOptionValuePrefix)
		assert.Equal(t, contosoPublisherID, pubs[0].ID)

		req := f.recorded()[0]
		assert.Equal(t, "isreadonly eq false", req.Query["$filter"][0])
		assert.Equal(t, "10", req.Query["$top"][0])
		assert.Equal(t,
			"friendlyname,uniquename,customizationprefix,customizationoptionvalueprefix,description,isreadonly",
			req.Query["$select"][0])
	})

	t.Run("all publishers", func(t *testing.T) {
		_, err := c.ListPublishers(context.Background(), ListPublishersOptions{})
		require.NoError(t, err)

		req := f.recorded()[1]
		assert.NotContains(t, req.Query, "$filter")
		assert.NotContains(t, req.Query, "$top")
	})
}

func TestPublisherByUniqueName(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	t.Run("found", func(t *testing.T) {
		f.on(http.MethodGet, "publishers", http.StatusOK, map[string]any{"value": []any{publisherJSON("contoso", false)}})

		p, err := c.PublisherByUniqueName(context.Background(), "contoso")
		require.NoError(t, err)
		assert.Equal(t, "Publisher contoso", p.FriendlyName)
		assert.Equal(t, "uniquename eq 'contoso'", f.recorded()[0].Query["$filter"][0])
	})

	t.Run("not found", func(t *testing.T) {
		f.on(http.MethodGet, "publishers", http.StatusOK, map[string]any{"value": []any{}})

		_, err := c.PublisherByUniqueName(context.Background(), "nobody")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, "Publisher with unique name 'nobody' not found", err.Error())
	})
}

func TestPublisherByID(t *testing.T) {
	f := newFakeAPI(t)
	f.on(http.MethodGet, "publishers("+contosoPublisherID.String()+")", http.StatusOK, publisherJSON("contoso", false))
	c := newTestClient(t, f)

	p, err := c.PublisherByID(context.Background(), contosoPublisherID)
	require.NoError(t, err)
	assert.Equal(t, "contoso", p.UniqueName)

	missing := uuid.New()
	_, err = c.PublisherByID(context.Background(), missing)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), missing.String())
}

func TestCreatePublisher(t *testing.T) {
	f := newFakeAPI(t)
	f.on(http.MethodPost, "publishers", http.StatusCreated, publisherJSON("contoso", false))
	c := newTestClient(t, f)

	p, err := c.CreatePublisher(context.Background(), NewPublisher{
		FriendlyName:                   "Contoso",
		UniqueName:                     "contoso",
		Description:                    "Publisher for Contoso",
		CustomizationPrefix:            "cts",
		CustomizationOptionValuePrefix: 10000,
	})
	require.NoError(t, err)
	assert.Equal(t, contosoPublisherID, p.ID)

	body := f.recorded()[0].Body
	assert.Equal(t, "contoso", body["uniquename"])
	assert.Equal(t, "cts", body["customizationprefix"])
	assert.EqualValues(t, 10000, body["customizationoptionvalueprefix"])
	assert.Equal(t, "Publisher for Contoso", body["description"])
}

func TestListSolutions(t *testing.T) {
	f := newFakeAPI(t)
	f.on(http.MethodGet, "solutions", http.StatusOK, map[string]any{
		"value": []any{
			map[string]any{
				"friendlyname": "Core",
				"uniquename":   "contoso_core",
				"version":      "1.0.0.0",
				"ismanaged":    false,
				"publisherid": map[string]any{
					"friendlyname":        "Contoso",
					"uniquename":          "contoso",
					"customizationprefix": "cts",
				},
			},
		},
	})
	c := newTestClient(t, f)

	sols, err := c.ListSolutions(context.Background(), ListSolutionsOptions{Top: 3})
	require.NoError(t, err)
	require.Len(t, sols, 1)

	sum := sols[0].Summary()
	assert.Equal(t, "contoso_core", sum.UniqueName)
	assert.Equal(t, "cts", sum.Publisher.CustomizationPrefix)

	req := f.recorded()[0]
	assert.Equal(t, "ismanaged eq false", req.Query["$filter"][0])
	assert.Equal(t, "publisherid($select=friendlyname,uniquename,customizationprefix)", req.Query["$expand"][0])
	assert.Equal(t, "friendlyname,uniquename,version,description,ismanaged", req.Query["$select"][0])
	assert.Equal(t, "3", req.Query["$top"][0])

	_, err = c.ListSolutions(context.Background(), ListSolutionsOptions{IncludeManaged: true})
	require.NoError(t, err)
	assert.NotContains(t, f.recorded()[1].Query, "$filter")
}

func TestSolutionByUniqueName(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(t, f)

	solution := map[string]any{
		"solutionid":         contosoSolutionID.String(),
		"friendlyname":       "Core",
		"uniquename":         "contoso_core",
		"_publisherid_value": contosoPublisherID.String(),
		"publisherid":        publisherJSON("contoso", false),
	}

	t.Run("found", func(t *testing.T) {
		f.on(http.MethodGet, "solutions", http.StatusOK, map[string]any{"value": []any{solution}})

		s, err := c.SolutionByUniqueName(context.Background(), "contoso_core")
		require.NoError(t, err)
		require.NotNil(t, s.Publisher)
		assert.Equal(t, "contoso", s.Publisher.UniqueName)

		id, ok := s.OwnerID()
		assert.True(t, ok)
		assert.Equal(t, contosoPublisherID, id)

		assert.Equal(t,
			"publisherid($select=friendlyname,uniquename,customizationprefix,customizationoptionvalueprefix)",
			f.recorded()[0].Query["$expand"][0])
	})

	t.Run("not found", func(t *testing.T) {
		f.on(http.MethodGet, "solutions", http.StatusOK, map[string]any{"value": []any{}})

		_, err := c.SolutionByUniqueName(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "Solution with unique name 'missing' not found", err.Error())
	})

	t.Run("ambiguous", func(t *testing.T) {
		f.on(http.MethodGet, "solutions", http.StatusOK, map[string]any{"value": []any{solution, solution}})

		_, err := c.SolutionByUniqueName(context.Background(), "contoso_core")
		assert.ErrorContains(t, err, "found 2")
	})
}

func TestCreateSolution(t *testing.T) {
	f := newFakeAPI(t)
	f.on(http.MethodPost, "solutions", http.StatusCreated, map[string]any{
		"solutionid": contosoSolutionID.String(),
		"uniquename": "contoso_core",
	})
	c := newTestClient(t, f)

	t.Run("binds publisher", func(t *testing.T) {
		s, err := c.CreateSolution(context.Background(), NewSolution{
			FriendlyName: "Core",
			UniqueName:   "contoso_core",
			Version:      "1.0.0.0",
			PublisherID:  contosoPublisherID,
		})
		require.NoError(t, err)
		assert.Equal(t, contosoSolutionID, s.ID)

		body := f.recorded()[0].Body
		assert.Equal(t, "/publishers("+contosoPublisherID.String()+")", body["publisherid@odata.bind"])
		assert.Equal(t, "1.0.0.0", body["version"])
		assert.NotContains(t, body, "PublisherID")
	})

	t.Run("requires publisher", func(t *testing.T) {
		_, err := c.CreateSolution(context.Background(), NewSolution{UniqueName: "x"})
		assert.Error(t, err)
		assert.Len(t, f.recorded(), 1)
	})
}
