package courier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wireMessage is one entry of the chat-completions messages array. Content is
// either a plain string or a []wireContentPart; nil values are dropped from
// the serialized body by omitempty.
type wireMessage struct {
	Role       string         `json:"role"`
	Content    any            `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// wireContentPart is one entry of a multimodal user message.
type wireContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

// wireToolCall carries a completed tool invocation on an assistant message.
type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// normalizeMessages converts an abstract conversation into the wire message
// array. It is deterministic and side-effect free; warnings accumulate for
// content dropped from the wire representation. Unknown roles cannot occur:
// Role is a closed set of typed constants.
func normalizeMessages(msgs []Message) ([]wireMessage, []Warning) {
	out := make([]wireMessage, 0, len(msgs))
	var warnings []Warning

	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			out = append(out, wireMessage{Role: "system", Content: msg.TextContent()})

		case RoleUser:
			content, w := normalizeUserContent(msg.Content)
			warnings = append(warnings, w...)
			out = append(out, wireMessage{Role: "user", Content: content})

		case RoleAssistant:
			wm := wireMessage{Role: "assistant"}
			if text := msg.TextContent(); text != "" {
				wm.Content = text
			}
			for _, call := range msg.ToolCalls() {
				wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
					ID:   call.ID,
					Type: "function",
					Function: wireToolFunction{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			out = append(out, wm)

		case RoleTool:
			// One wire message per tool result, each bound by ID to its call.
			for _, part := range msg.Content {
				if part.Kind != ContentToolResult || part.ToolResult == nil {
					continue
				}
				out = append(out, wireMessage{
					Role:       "tool",
					ToolCallID: part.ToolResult.ToolCallID,
					Content:    toolResultText(*part.ToolResult),
				})
			}
		}
	}

	return out, warnings
}

// normalizeUserContent renders user content parts. Text-only messages use the
// plain string form; messages with image parts use the multimodal array form.
// Non-image file parts are omitted with a warning.
func normalizeUserContent(parts []ContentPart) (any, []Warning) {
	var warnings []Warning
	var wireParts []wireContentPart
	hasImage := false

	for _, part := range parts {
		switch part.Kind {
		case ContentText:
			wireParts = append(wireParts, wireContentPart{Type: "text", Text: part.Text})
		case ContentFile:
			if part.File == nil {
				continue
			}
			if !part.File.IsImage() {
				warnings = append(warnings, Warning{
					Code:    WarnUnsupportedContent,
					Message: fmt.Sprintf("file part with media type %q is not supported and was omitted", part.File.MediaType),
				})
				continue
			}
			hasImage = true
			wireParts = append(wireParts, wireContentPart{
				Type:     "image_url",
				ImageURL: &wireImageURL{URL: part.File.DataURL()},
			})
		}
	}

	if !hasImage {
		var sb strings.Builder
		for _, p := range wireParts {
			sb.WriteString(p.Text)
		}
		return sb.String(), warnings
	}
	return wireParts, warnings
}

// toolResultText normalizes a tool result value to a single string: JSON
// strings unquote, text part arrays concatenate, anything else is sent as its
// raw JSON text.
func toolResultText(result ToolResultData) string {
	raw := result.Content
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var segments []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil && len(segments) > 0 {
		allText := true
		var sb strings.Builder
		for _, seg := range segments {
			if seg.Type != "text" {
				allText = false
				break
			}
			sb.WriteString(seg.Text)
		}
		if allText {
			return sb.String()
		}
	}

	return string(raw)
}
