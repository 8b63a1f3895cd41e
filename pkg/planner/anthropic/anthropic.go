// Package anthropic implements agent.Planner over the Anthropic Messages
// API. The operation menu becomes tool definitions; a tool_use block becomes
// a call decision, a text-only reply becomes the final answer.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/germanamz/opwire/pkg/agent"
	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/germanamz/opwire/pkg/planner"
)

const messagesPath = "/v1/messages"

const defaultMaxTokens = 4096

var _ agent.Planner = (*Planner)(nil)

// Planner implements agent.Planner for the Anthropic Messages API.
type Planner struct {
	planner.Backend

	// SystemPrompt, when set, is sent as the request's system field.
	SystemPrompt string
}

// New creates a Planner configured for the Anthropic API.
// The baseURL should be "https://api.anthropic.com" (no trailing slash).
func New(baseURL, apiKey, model string) *Planner {
	p := &Planner{}
	p.BaseURL = baseURL
	p.Auth = planner.Auth{
		Key:    apiKey,
		Header: "x-api-key",
	}
	p.Model = model
	p.MaxTokens = defaultMaxTokens
	p.Headers = map[string]string{
		"anthropic-version": "2023-06-01",
	}

	return p
}

// Plan sends the session transcript to the API and interprets the reply as
// either one operation call or a final answer.
func (p *Planner) Plan(ctx context.Context, req agent.PlanRequest) (agent.Decision, error) {
	apiReq, err := p.buildRequest(req)
	if err != nil {
		return agent.Decision{}, fmt.Errorf("anthropic: %w", err)
	}

	var resp apiResponse
	if err := p.PostJSON(ctx, messagesPath, apiReq, &resp); err != nil {
		return agent.Decision{}, fmt.Errorf("anthropic: %w", err)
	}

	return parseResponse(resp)
}

// --- request types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	Tools     []apiToolDef `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type apiToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// --- response types ---

type apiResponse struct {
	Content    []apiContent `json:"content"`
	StopReason string       `json:"stop_reason"`
}

// --- conversion helpers ---

func (p *Planner) buildRequest(req agent.PlanRequest) (apiRequest, error) {
	out := apiRequest{
		Model:     p.Model,
		MaxTokens: p.MaxTokens,
		System:    p.SystemPrompt,
	}

	out.Tools = make([]apiToolDef, len(req.Menu))
	for i, op := range req.Menu {
		schema := op.Schema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		out.Tools[i] = apiToolDef{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: schema,
		}
	}

	out.Messages = append(out.Messages, apiMessage{
		Role:    "user",
		Content: []apiContent{{Type: "text", Text: req.Instruction}},
	})

	for _, turn := range req.Turns {
		input, err := json.Marshal(turn.Call.Arguments)
		if err != nil {
			return apiRequest{}, fmt.Errorf("marshal arguments for %s: %w", turn.Call.Operation, err)
		}
		if string(input) == "null" {
			input = json.RawMessage(`{}`)
		}

		out.Messages = append(out.Messages,
			apiMessage{
				Role: "assistant",
				Content: []apiContent{{
					Type:  "tool_use",
					ID:    turn.ID,
					Name:  turn.Call.Operation,
					Input: input,
				}},
			},
			// Tool results go back in a "user" role message per the API.
			apiMessage{
				Role:    "user",
				Content: []apiContent{observationBlock(turn)},
			},
		)
	}

	return out, nil
}

func observationBlock(turn agent.Turn) apiContent {
	block := apiContent{
		Type:      "tool_result",
		ToolUseID: turn.ID,
	}

	if turn.Result.OK {
		if s, ok := turn.Result.Payload.(string); ok {
			block.Content = s
		} else if data, err := json.Marshal(turn.Result.Payload); err == nil {
			block.Content = string(data)
		}

		return block
	}

	block.Content = fmt.Sprintf("error (%s): %s", turn.Result.Kind, turn.Result.Message)
	block.IsError = true

	return block
}

// parseResponse interprets the model's reply: the first tool_use block wins
// over text, since the loop dispatches one operation per turn.
func parseResponse(resp apiResponse) (agent.Decision, error) {
	var answer string

	for _, block := range resp.Content {
		switch block.Type {
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return agent.Decision{}, fmt.Errorf("anthropic: parse tool input: %w", err)
				}
			}

			return agent.Decision{Call: &bridge.Request{
				Operation: block.Name,
				Arguments: args,
			}}, nil
		case "text":
			answer += block.Text
		}
	}

	return agent.Decision{Answer: answer}, nil
}
