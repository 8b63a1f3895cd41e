// Package openai implements agent.Planner over the OpenAI Chat Completions
// API. The operation menu becomes function tool definitions; a tool_calls
// reply becomes a call decision, a plain text reply becomes the final answer.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/germanamz/opwire/pkg/agent"
	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/germanamz/opwire/pkg/planner"
)

const completionsPath = "/v1/chat/completions"

const defaultMaxTokens = 4096

var _ agent.Planner = (*Planner)(nil)

// Planner implements agent.Planner for the OpenAI Chat Completions API.
type Planner struct {
	planner.Backend

	// SystemPrompt, when set, is prepended as a system message.
	SystemPrompt string
}

// New creates a Planner configured for the OpenAI API.
// The baseURL should be "https://api.openai.com" (no trailing slash).
func New(baseURL, apiKey, model string) *Planner {
	p := &Planner{}
	p.BaseURL = baseURL
	p.Auth = planner.Auth{Key: apiKey}
	p.Model = model
	p.MaxTokens = defaultMaxTokens

	return p
}

// Plan sends the session transcript to the API and interprets the reply as
// either one operation call or a final answer.
func (p *Planner) Plan(ctx context.Context, req agent.PlanRequest) (agent.Decision, error) {
	apiReq, err := p.buildRequest(req)
	if err != nil {
		return agent.Decision{}, fmt.Errorf("openai: %w", err)
	}

	var resp apiResponse
	if err := p.PostJSON(ctx, completionsPath, apiReq, &resp); err != nil {
		return agent.Decision{}, fmt.Errorf("openai: %w", err)
	}

	if len(resp.Choices) == 0 {
		return agent.Decision{}, fmt.Errorf("openai: empty choices in response")
	}

	return parseChoice(resp.Choices[0])
}

// --- request types ---

type apiRequest struct {
	Model     string       `json:"model"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens,omitempty"`
	Tools     []apiToolDef `json:"tools,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function apiToolFunction `json:"function"`
}

type apiToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type apiToolDef struct {
	Type     string         `json:"type"`
	Function apiToolDefFunc `json:"function"`
}

type apiToolDefFunc struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Content   *string       `json:"content"`
	ToolCalls []apiToolCall `json:"tool_calls,omitempty"`
}

// --- conversion helpers ---

func (p *Planner) buildRequest(req agent.PlanRequest) (apiRequest, error) {
	out := apiRequest{
		Model:     p.Model,
		MaxTokens: p.MaxTokens,
	}

	out.Tools = make([]apiToolDef, len(req.Menu))
	for i, op := range req.Menu {
		schema := op.Schema
		if schema == nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		out.Tools[i] = apiToolDef{
			Type: "function",
			Function: apiToolDefFunc{
				Name:        op.Name,
				Description: op.Description,
				Parameters:  schema,
			},
		}
	}

	if p.SystemPrompt != "" {
		out.Messages = append(out.Messages, textMessage("system", p.SystemPrompt))
	}
	out.Messages = append(out.Messages, textMessage("user", req.Instruction))

	for _, turn := range req.Turns {
		call, err := turnToCall(turn)
		if err != nil {
			return apiRequest{}, err
		}

		out.Messages = append(out.Messages,
			apiMessage{Role: "assistant", ToolCalls: []apiToolCall{call}},
			observationMessage(turn),
		)
	}

	return out, nil
}

func textMessage(role, text string) apiMessage {
	return apiMessage{Role: role, Content: &text}
}

func turnToCall(turn agent.Turn) (apiToolCall, error) {
	args, err := json.Marshal(turn.Call.Arguments)
	if err != nil {
		return apiToolCall{}, fmt.Errorf("marshal arguments for %s: %w", turn.Call.Operation, err)
	}

	return apiToolCall{
		ID:   turn.ID,
		Type: "function",
		Function: apiToolFunction{
			Name:      turn.Call.Operation,
			Arguments: string(args),
		},
	}, nil
}

// observationMessage renders an envelope as the tool role message the model
// observes. Failures are prefixed with their kind so the model can decide
// whether a corrected retry is worthwhile.
func observationMessage(turn agent.Turn) apiMessage {
	var text string
	if turn.Result.OK {
		if s, ok := turn.Result.Payload.(string); ok {
			text = s
		} else if data, err := json.Marshal(turn.Result.Payload); err == nil {
			text = string(data)
		}
	} else {
		text = fmt.Sprintf("error (%s): %s", turn.Result.Kind, turn.Result.Message)
	}

	msg := textMessage("tool", text)
	msg.ToolCallID = turn.ID

	return msg
}

// parseChoice interprets the model's reply: a tool call wins over text, and
// only the first tool call is taken since the loop dispatches one operation
// per turn.
func parseChoice(choice apiChoice) (agent.Decision, error) {
	if len(choice.Message.ToolCalls) > 0 {
		call := choice.Message.ToolCalls[0]

		var args map[string]any
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return agent.Decision{}, fmt.Errorf("openai: parse tool call arguments: %w", err)
			}
		}

		return agent.Decision{Call: &bridge.Request{
			Operation: call.Function.Name,
			Arguments: args,
		}}, nil
	}

	var answer string
	if choice.Message.Content != nil {
		answer = *choice.Message.Content
	}

	return agent.Decision{Answer: answer}, nil
}
