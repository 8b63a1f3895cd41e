package httpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/germanamz/opwire/pkg/ops"
	"github.com/germanamz/opwire/pkg/transport/httpclient"
	"github.com/germanamz/opwire/pkg/transport/httpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *httpclient.Client) {
	t.Helper()

	r := ops.NewRegistry()
	require.NoError(t, r.Register(
		ops.Spec{
			Name:        "echo",
			Description: "Echoes the given text",
			Params: map[string]ops.Param{
				"text": {Type: ops.TypeString, Required: true},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				return args["text"], nil
			},
		},
		ops.Spec{
			Name:        "stamp",
			Description: "Returns a numbered stamp",
			Params: map[string]ops.Param{
				"n": {Type: ops.TypeInteger, Required: true},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				return fmt.Sprintf("stamp-%d", args["n"]), nil
			},
		},
	))

	srv := httptest.NewServer(httpserver.New(bridge.NewDispatcher(r)).Handler())
	t.Cleanup(srv.Close)

	return srv, httpclient.New(srv.URL)
}

func TestOperationsEndpoint(t *testing.T) {
	_, client := newTestServer(t)

	infos, err := client.Operations(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "echo", infos[0].Name)
	assert.Equal(t, "Echoes the given text", infos[0].Description)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"text": {"type": "string"}},
		"required": ["text"]
	}`, string(infos[0].Schema))
	assert.Equal(t, "stamp", infos[1].Name)
}

func TestInvokeSuccess(t *testing.T) {
	_, client := newTestServer(t)

	res, err := client.Invoke(context.Background(), bridge.Request{
		Operation: "echo",
		Arguments: map[string]any{"text": "hi"},
	})
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, "hi", res.Payload)
}

func TestInvokeValidationFailureTravelsInBand(t *testing.T) {
	_, client := newTestServer(t)

	res, err := client.Invoke(context.Background(), bridge.Request{Operation: "echo"})
	require.NoError(t, err, "a validation failure is an envelope, not a transport error")

	assert.False(t, res.OK)
	assert.Equal(t, bridge.KindValidationError, res.Kind)
	assert.Contains(t, res.Message, "text")
}

func TestInvokeMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res bridge.Result
	require.NoError(t, decodeBody(resp, &res))
	assert.Equal(t, bridge.KindMalformedRequest, res.Kind)
}

func TestInvokeMissingOperationName(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(`{"arguments":{}}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var res bridge.Result
	require.NoError(t, decodeBody(resp, &res))
	assert.Equal(t, bridge.KindMalformedRequest, res.Kind)
	assert.Contains(t, res.Message, "operation")
}

func TestSessionAnswersInOrder(t *testing.T) {
	_, client := newTestServer(t)

	session, err := client.Session(context.Background())
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	for i := 1; i <= 5; i++ {
		res, err := session.Invoke(context.Background(), bridge.Request{
			Operation: "stamp",
			Arguments: map[string]any{"n": i},
		})
		require.NoError(t, err)
		require.True(t, res.OK)
		assert.Equal(t, fmt.Sprintf("stamp-%d", i), res.Payload)
	}
}

func TestSessionSurvivesFailureEnvelopes(t *testing.T) {
	_, client := newTestServer(t)

	session, err := client.Session(context.Background())
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	res, err := session.Invoke(context.Background(), bridge.Request{Operation: "missing"})
	require.NoError(t, err)
	assert.Equal(t, bridge.KindUnknownOperation, res.Kind)

	// The connection is still usable after a failure envelope.
	res, err = session.Invoke(context.Background(), bridge.Request{
		Operation: "echo",
		Arguments: map[string]any{"text": "still here"},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "still here", res.Payload)
}

func decodeBody(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
