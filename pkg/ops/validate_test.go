package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchSpec() Spec {
	return Spec{
		Name: "search",
		Params: map[string]Param{
			"query": {Type: TypeString, Required: true},
			"limit": {Type: TypeInteger, Default: 10},
			"exact": {Type: TypeBoolean, Default: false},
			"boost": {Type: TypeNumber},
		},
		Handler: echoHandler,
	}
}

func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	return ve.Fields
}

func TestValidateHappyPath(t *testing.T) {
	got, err := Validate(searchSpec(), map[string]any{
		"query": "golang",
		"limit": float64(5), // JSON numbers arrive as float64.
		"exact": true,
	})
	require.NoError(t, err)

	assert.Equal(t, "golang", got["query"])
	assert.Equal(t, 5, got["limit"])
	assert.Equal(t, true, got["exact"])
}

func TestValidateAppliesDefaults(t *testing.T) {
	got, err := Validate(searchSpec(), map[string]any{"query": "go"})
	require.NoError(t, err)

	assert.Equal(t, 10, got["limit"])
	assert.Equal(t, false, got["exact"])
	_, present := got["boost"]
	assert.False(t, present, "no default declared, should be absent")
}

func TestValidateMissingRequiredNamesParameter(t *testing.T) {
	_, err := Validate(searchSpec(), map[string]any{})

	fields := fieldErrors(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "query", fields[0].Param)
	assert.Contains(t, err.Error(), "query")
}

func TestValidateReportsAllErrorsInOnePass(t *testing.T) {
	_, err := Validate(searchSpec(), map[string]any{
		"limit":   "not-a-number",
		"exact":   "maybe",
		"bogus":   1,
		"filters": "x",
	})

	fields := fieldErrors(t, err)
	require.Len(t, fields, 5)

	byParam := make(map[string]string, len(fields))
	for _, f := range fields {
		byParam[f.Param] = f.Reason
	}
	assert.Contains(t, byParam["query"], "missing required")
	assert.Contains(t, byParam["limit"], "integer")
	assert.Contains(t, byParam["exact"], "boolean")
	assert.Equal(t, "unknown parameter", byParam["bogus"])
	assert.Equal(t, "unknown parameter", byParam["filters"])
}

func TestValidateUnknownParameter(t *testing.T) {
	_, err := Validate(searchSpec(), map[string]any{
		"query": "go",
		"depth": 3,
	})

	fields := fieldErrors(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "depth", fields[0].Param)
	assert.Equal(t, "unknown parameter", fields[0].Reason)
}

func TestValidateCoercesStringNumber(t *testing.T) {
	got, err := Validate(searchSpec(), map[string]any{
		"query": "go",
		"boost": "1.5",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.5, got["boost"])
}

func TestValidateCoercesStringInteger(t *testing.T) {
	got, err := Validate(searchSpec(), map[string]any{
		"query": "go",
		"limit": "25",
	})
	require.NoError(t, err)
	assert.Equal(t, 25, got["limit"])
}

func TestValidateCoercesBooleanTokens(t *testing.T) {
	for token, want := range map[string]bool{"true": true, "1": true, "false": false, "0": false} {
		got, err := Validate(searchSpec(), map[string]any{
			"query": "go",
			"exact": token,
		})
		require.NoError(t, err, "token %q", token)
		assert.Equal(t, want, got["exact"], "token %q", token)
	}
}

func TestValidateRejectsAmbiguousBoolean(t *testing.T) {
	_, err := Validate(searchSpec(), map[string]any{
		"query": "go",
		"exact": "yes",
	})

	fields := fieldErrors(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "exact", fields[0].Param)
}

func TestValidateRejectsFractionalInteger(t *testing.T) {
	_, err := Validate(searchSpec(), map[string]any{
		"query": "go",
		"limit": 2.5,
	})

	fields := fieldErrors(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "limit", fields[0].Param)
}

func TestValidateRejectsNonStringForString(t *testing.T) {
	_, err := Validate(searchSpec(), map[string]any{"query": 42})

	fields := fieldErrors(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "query", fields[0].Param)
	assert.Contains(t, fields[0].Reason, "string")
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	args := map[string]any{"query": "go"}
	got, err := Validate(searchSpec(), args)
	require.NoError(t, err)

	assert.NotContains(t, args, "limit")
	assert.Contains(t, got, "limit")
}

func TestValidatePassthroughForRawSchema(t *testing.T) {
	spec := Spec{
		Name:      "remote",
		RawSchema: []byte(`{"type":"object"}`),
		Handler:   echoHandler,
	}
	args := map[string]any{"anything": "goes"}

	got, err := Validate(spec, args)
	require.NoError(t, err)
	assert.Equal(t, args, got)
}
