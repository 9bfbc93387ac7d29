package courier

import (
	"encoding/json"
	"fmt"
)

// chatResponseBody is the non-streaming chat-completions response shape.
type chatResponseBody struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role      string         `json:"role"`
			Content   *string        `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

// wireUsage mirrors the token usage block. Counters are pointers so an absent
// counter stays nil instead of collapsing to zero.
type wireUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

func (u *wireUsage) toUsage() Usage {
	if u == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// decodeResponse validates a raw non-streaming response body. A body that
// fails to decode, or that carries no choices, rejects the whole call.
func decodeResponse(raw json.RawMessage) (*chatResponseBody, error) {
	var body chatResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &InvalidResponseError{SDKError: SDKError{
			Message: "response body failed validation",
			Cause:   err,
		}}
	}
	if len(body.Choices) == 0 {
		return nil, &InvalidResponseError{SDKError: SDKError{
			Message: "response contained no choices",
		}}
	}
	return &body, nil
}

// parseResponse maps a validated response body to the normalized result.
// Multi-completion is not supported: only choice index 0 is read.
func parseResponse(body *chatResponseBody) *Response {
	choice := body.Choices[0]

	var content []ContentPart
	if choice.Message.Content != nil && *choice.Message.Content != "" {
		content = append(content, TextPart(*choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		content = append(content, ToolCallPart(call.ID, call.Function.Name, call.Function.Arguments))
	}

	return &Response{
		ID:           body.ID,
		Model:        body.Model,
		Content:      content,
		FinishReason: mapFinishReason(choice.FinishReason),
		Usage:        body.Usage.toUsage(),
	}
}

// validateToolCallIDs checks that tool call IDs are unique within one
// assistant message. Duplicate IDs are a backend contract violation.
func validateToolCallIDs(resp *Response) error {
	seen := make(map[string]bool)
	for _, call := range resp.ToolCalls() {
		if seen[call.ID] {
			return &InvalidResponseError{SDKError: SDKError{
				Message: fmt.Sprintf("duplicate tool call id %q in response", call.ID),
			}}
		}
		seen[call.ID] = true
	}
	return nil
}
