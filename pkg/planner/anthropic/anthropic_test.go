package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/opwire/pkg/agent"
	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/germanamz/opwire/pkg/planner/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlanner(t *testing.T, handler http.HandlerFunc) *anthropic.Planner {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return anthropic.New(srv.URL, "test-key", "claude-sonnet-4-5")
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))

	return req
}

func echoMenu() []bridge.OpInfo {
	return []bridge.OpInfo{{
		Name:        "echo",
		Description: "Echoes the given text",
		Schema:      json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
	}}
}

func TestPlanToolUseDecision(t *testing.T) {
	p := newTestPlanner(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		req := readBody(t, r)
		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)
		assert.Equal(t, "echo", tools[0].(map[string]any)["name"])

		writeJSON(t, w, map[string]any{
			"content": []map[string]any{{
				"type":  "tool_use",
				"id":    "toolu-1",
				"name":  "echo",
				"input": map[string]any{"text": "hi"},
			}},
			"stop_reason": "tool_use",
		})
	})

	decision, err := p.Plan(context.Background(), agent.PlanRequest{
		Instruction: "say hi using echo",
		Menu:        echoMenu(),
	})
	require.NoError(t, err)

	require.NotNil(t, decision.Call)
	assert.Equal(t, "echo", decision.Call.Operation)
	assert.Equal(t, map[string]any{"text": "hi"}, decision.Call.Arguments)
}

func TestPlanFinalAnswerDecision(t *testing.T) {
	p := newTestPlanner(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "hi"}},
			"stop_reason": "end_turn",
		})
	})

	decision, err := p.Plan(context.Background(), agent.PlanRequest{
		Instruction: "say hi",
		Menu:        echoMenu(),
	})
	require.NoError(t, err)

	assert.Nil(t, decision.Call)
	assert.Equal(t, "hi", decision.Answer)
}

func TestPlanReplaysTranscriptWithFailure(t *testing.T) {
	p := newTestPlanner(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		// user + assistant tool_use + user tool_result.
		require.Len(t, msgs, 3)

		second := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", second["role"])

		third := msgs[2].(map[string]any)
		assert.Equal(t, "user", third["role"])
		block := third["content"].([]any)[0].(map[string]any)
		assert.Equal(t, "tool_result", block["type"])
		assert.Equal(t, "turn-1", block["tool_use_id"])
		assert.Equal(t, true, block["is_error"])
		assert.Contains(t, block["content"], "validation_error")

		writeJSON(t, w, map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "fixed"}},
			"stop_reason": "end_turn",
		})
	})

	_, err := p.Plan(context.Background(), agent.PlanRequest{
		Instruction: "say hi using echo",
		Menu:        echoMenu(),
		Turns: []agent.Turn{{
			ID:     "turn-1",
			Call:   bridge.Request{Operation: "echo"},
			Result: bridge.Failure(bridge.KindValidationError, "text: missing required parameter"),
		}},
	})
	require.NoError(t, err)
}

func TestPlanAPIErrorPropagates(t *testing.T) {
	p := newTestPlanner(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"type":"error"}`, http.StatusInternalServerError)
	})

	_, err := p.Plan(context.Background(), agent.PlanRequest{Instruction: "hi", Menu: echoMenu()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
