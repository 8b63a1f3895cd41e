package textops

import (
	"context"
	"testing"

	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/germanamz/opwire/pkg/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) *bridge.Dispatcher {
	t.Helper()

	r := ops.NewRegistry()
	require.NoError(t, r.Register(Specs()...))

	return bridge.NewDispatcher(r)
}

func TestSpecsRegisterCleanly(t *testing.T) {
	r := ops.NewRegistry()
	require.NoError(t, r.Register(Specs()...))
	assert.Equal(t, 3, r.Len())
}

func TestEcho(t *testing.T) {
	d := newDispatcher(t)

	res := d.Dispatch(context.Background(), bridge.Request{
		Operation: "echo",
		Arguments: map[string]any{"text": "hi"},
	})

	require.True(t, res.OK)
	assert.Equal(t, "hi", res.Payload)
}

func TestTextDiff(t *testing.T) {
	d := newDispatcher(t)

	res := d.Dispatch(context.Background(), bridge.Request{
		Operation: "text_diff",
		Arguments: map[string]any{
			"a": "one\ntwo\nthree\n",
			"b": "one\n2\nthree\n",
		},
	})

	require.True(t, res.OK, "failure: %s", res.Message)
	diff, ok := res.Payload.(string)
	require.True(t, ok)
	assert.Contains(t, diff, "-two")
	assert.Contains(t, diff, "+2")
}

func TestTextDiffIdenticalInputs(t *testing.T) {
	d := newDispatcher(t)

	res := d.Dispatch(context.Background(), bridge.Request{
		Operation: "text_diff",
		Arguments: map[string]any{"a": "same\n", "b": "same\n"},
	})

	require.True(t, res.OK)
	assert.Empty(t, res.Payload)
}

func TestWordCount(t *testing.T) {
	d := newDispatcher(t)

	res := d.Dispatch(context.Background(), bridge.Request{
		Operation: "word_count",
		Arguments: map[string]any{"text": "one two\nthree"},
	})

	require.True(t, res.OK)
	counts, ok := res.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, counts["words"])
	assert.Equal(t, 2, counts["lines"])
	assert.Equal(t, 13, counts["bytes"])
}
