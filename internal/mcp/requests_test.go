package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		reason string
	}{
		{"cts", ""},
		{"abcd1234", ""},
		{"a", "must be 2-8 characters"},
		{"abcdefghi", "must be 2-8 characters"},
		{"1ab", "must start with a letter"},
		{"ab-c", "must be alphanumeric"},
		{"préfix", "must be alphanumeric"},
		{"MSCRMab", "cannot start with 'mscrm'"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			err := checkPrefix("customizationPrefix", tt.prefix)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "customizationPrefix", verr.Field)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestCreateSolutionInput_Version(t *testing.T) {
	base := createSolutionInput{FriendlyName: "Core", UniqueName: "core", PublisherUniqueName: "contoso"}

	for _, v := range []string{"", "1.0", "1.0.0", "2.3.4.5"} {
		in := base
		in.Version = v
		assert.NoError(t, in.validate(), v)
	}
	for _, v := range []string{"1", "1.0.0.0.0", "v1.0", "1..0"} {
		in := base
		in.Version = v
		assert.EqualError(t, in.validate(), "invalid version: must look like 1.0 or 1.0.0.0", v)
	}
}

func TestListInputs_Top(t *testing.T) {
	zero, five := 0, 5
	assert.NoError(t, listPublishersInput{}.validate())
	assert.NoError(t, listPublishersInput{Top: &five}.validate())
	assert.EqualError(t, listSolutionsInput{Top: &zero}.validate(), "invalid top: must be at least 1")
}

func TestDefaults(t *testing.T) {
	no := false
	assert.True(t, boolOr(nil, true))
	assert.False(t, boolOr(&no, true))
	assert.Equal(t, 7, intOr(nil, 7))
}
