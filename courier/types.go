// Package courier presents a uniform chat-completion facade over multiple
// wire-incompatible backend chat APIs.
package courier

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentKind is the discriminator tag for ContentPart.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentFile       ContentKind = "file"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
)

// FileData holds inline file content as a URL, a base64 payload, or raw bytes.
// Exactly one of URL, Base64, or Data should be set.
type FileData struct {
	URL       string `json:"url,omitempty"`
	Base64    string `json:"base64,omitempty"`
	Data      []byte `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// IsImage reports whether the file carries an image media type.
func (f FileData) IsImage() bool {
	return strings.HasPrefix(f.MediaType, "image/")
}

// DataURL renders the file as a data URL. URL references pass through
// unchanged; byte and base64 payloads become data:<mediaType>;base64,<payload>.
func (f FileData) DataURL() string {
	if f.URL != "" {
		return f.URL
	}
	payload := f.Base64
	if payload == "" {
		payload = base64.StdEncoding.EncodeToString(f.Data)
	}
	return "data:" + f.MediaType + ";base64," + payload
}

// ToolCallData represents a model-initiated tool invocation. Arguments is the
// raw JSON argument text exactly as produced by the backend.
type ToolCallData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResultData holds the result of a tool execution, bound to a prior tool
// call by its opaque ID. Content may be a JSON string, a structured value, or
// an array of text parts; it is normalized to a single string on the wire.
type ToolResultData struct {
	ToolCallID string          `json:"tool_call_id"`
	Content    json.RawMessage `json:"content"`
	IsError    bool            `json:"is_error"`
}

// ContentPart is a tagged union representing one part of a message.
type ContentPart struct {
	Kind       ContentKind     `json:"kind"`
	Text       string          `json:"text,omitempty"`
	File       *FileData       `json:"file,omitempty"`
	ToolCall   *ToolCallData   `json:"tool_call,omitempty"`
	ToolResult *ToolResultData `json:"tool_result,omitempty"`
}

// TextPart creates a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// FileURLPart creates a file ContentPart referencing a URL.
func FileURLPart(url, mediaType string) ContentPart {
	return ContentPart{Kind: ContentFile, File: &FileData{URL: url, MediaType: mediaType}}
}

// FileDataPart creates a file ContentPart from raw bytes.
func FileDataPart(data []byte, mediaType string) ContentPart {
	return ContentPart{Kind: ContentFile, File: &FileData{Data: data, MediaType: mediaType}}
}

// ToolCallPart creates a tool call ContentPart.
func ToolCallPart(id, name, arguments string) ContentPart {
	return ContentPart{Kind: ContentToolCall, ToolCall: &ToolCallData{ID: id, Name: name, Arguments: arguments}}
}

// ToolResultPart creates a tool result ContentPart.
func ToolResultPart(toolCallID string, content json.RawMessage, isError bool) ContentPart {
	return ContentPart{
		Kind:       ContentToolResult,
		ToolResult: &ToolResultData{ToolCallID: toolCallID, Content: content, IsError: isError},
	}
}

// Message is the fundamental unit of conversation.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextContent returns the concatenation of all text content parts, in order.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part.Kind == ContentText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ToolCalls extracts all tool call data from the message content.
func (m Message) ToolCalls() []ToolCallData {
	var calls []ToolCallData
	for _, part := range m.Content {
		if part.Kind == ContentToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// AssistantMessage creates an assistant Message with text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// ToolResultMessage creates a tool result Message.
func ToolResultMessage(toolCallID string, content string, isError bool) Message {
	raw, _ := json.Marshal(content)
	return Message{
		Role:    RoleTool,
		Content: []ContentPart{ToolResultPart(toolCallID, raw, isError)},
	}
}

// ToolChoice controls whether and how the model uses tools.
type ToolChoice struct {
	Mode     string `json:"mode"`                // "auto", "none", "required", "named"
	ToolName string `json:"tool_name,omitempty"` // required when mode is "named"
}

// ToolDefinition is the serializable declaration of a tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Tool pairs a ToolDefinition with an optional execute handler used by the
// high-level Generate tool loop.
type Tool struct {
	Name        string                                  `json:"name"`
	Description string                                  `json:"description"`
	Parameters  map[string]any                          `json:"parameters"`
	Execute     func(args json.RawMessage) (any, error) `json:"-"`
}

// Definition returns the serializable part of the tool.
func (t Tool) Definition() ToolDefinition {
	return ToolDefinition{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

// ToolResult is produced by executing a tool.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    any    `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ResponseFormat specifies the desired output format.
type ResponseFormat struct {
	Type string `json:"type"` // "text" or "json"
}

// FinishReason describes why generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content-filter"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishOther         FinishReason = "other"
)

// Usage tracks token consumption. Counters are optional: a nil field means the
// backend never reported it, which is distinct from a reported zero.
type Usage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
	TotalTokens  *int `json:"total_tokens,omitempty"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  addOptionalInt(u.InputTokens, other.InputTokens),
		OutputTokens: addOptionalInt(u.OutputTokens, other.OutputTokens),
		TotalTokens:  addOptionalInt(u.TotalTokens, other.TotalTokens),
	}
}

func addOptionalInt(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	va, vb := 0, 0
	if a != nil {
		va = *a
	}
	if b != nil {
		vb = *b
	}
	sum := va + vb
	return &sum
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// Warning represents a non-fatal issue surfaced alongside a successful call.
type Warning struct {
	Code    string `json:"code"`
	Setting string `json:"setting,omitempty"`
	Message string `json:"message"`
}

const (
	// WarnUnsupportedSetting flags a sampling parameter the backend family
	// cannot accept; the call proceeds without it.
	WarnUnsupportedSetting = "unsupported-setting"
	// WarnUnsupportedContent flags a content part dropped from the wire
	// message, such as a non-image file attachment.
	WarnUnsupportedContent = "unsupported-content"
)

// AdapterFamily selects which wire-format translator governs a request.
type AdapterFamily string

const (
	// FamilyChat is the modern chat-completions dialect: token limit travels
	// as max_completion_tokens and explicit zero sampling values are
	// suppressed because those backends reject them.
	FamilyChat AdapterFamily = "chat"
	// FamilyLegacy is the older dialect: token limit travels as max_tokens
	// and literal zero sampling values are forwarded.
	FamilyLegacy AdapterFamily = "legacy"
	// FamilyClaude is a placeholder for the Anthropic-family wire format.
	// Requesting it fails fast; there is no silent fallback.
	FamilyClaude AdapterFamily = "claude"
)

// ModelSettings holds per-model defaults. Per-call settings take precedence.
type ModelSettings struct {
	MaxTokens   *int     `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"top_p"`
	// ForceZeroSampling forwards a caller-supplied zero temperature/top-p
	// even on families that normally suppress it.
	ForceZeroSampling bool `json:"force_zero_sampling,omitempty" yaml:"force_zero_sampling"`
}

// Request is the input type for both Complete and Stream.
type Request struct {
	Model            string          `json:"model"`
	Messages         []Message       `json:"messages"`
	Family           AdapterFamily   `json:"family,omitempty"` // explicit adapter override; empty means infer
	Tools            []Tool          `json:"-"`                // not serialized; may contain execute handlers
	ToolDefs         []ToolDefinition `json:"tools,omitempty"`
	ToolChoice       *ToolChoice     `json:"tool_choice,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	TopK             *int            `json:"top_k,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	MaxOutputTokens  *int            `json:"max_output_tokens,omitempty"`
	StopSequences    []string        `json:"stop_sequences,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
}

// toolDefinitions returns the wire-facing tool list, preferring ToolDefs and
// falling back to the definitions embedded in Tools.
func (r Request) toolDefinitions() []ToolDefinition {
	if len(r.ToolDefs) > 0 {
		return r.ToolDefs
	}
	if len(r.Tools) == 0 {
		return nil
	}
	defs := make([]ToolDefinition, 0, len(r.Tools))
	for _, t := range r.Tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Response is the normalized output of Complete.
type Response struct {
	ID           string        `json:"id,omitempty"`
	Model        string        `json:"model,omitempty"`
	Content      []ContentPart `json:"content"`
	FinishReason FinishReason  `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Warnings     []Warning     `json:"warnings,omitempty"`
}

// Text returns the concatenated text from all text parts in the response.
func (r Response) Text() string {
	var sb strings.Builder
	for _, part := range r.Content {
		if part.Kind == ContentText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ToolCalls extracts tool calls from the response content.
func (r Response) ToolCalls() []ToolCallData {
	var calls []ToolCallData
	for _, part := range r.Content {
		if part.Kind == ContentToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// StreamEventType identifies the kind of stream event.
type StreamEventType string

const (
	TextStart      StreamEventType = "text_start"
	TextDelta      StreamEventType = "text_delta"
	TextEnd        StreamEventType = "text_end"
	ToolInputStart StreamEventType = "tool_input_start"
	ToolInputDelta StreamEventType = "tool_input_delta"
	ToolInputEnd   StreamEventType = "tool_input_end"
	ToolCallEvent  StreamEventType = "tool_call"
	StreamFinish   StreamEventType = "finish"
	StreamError    StreamEventType = "error"
)

// StreamEvent is a single event from a streaming response. For any span id the
// sequence is start, delta*, end; a tool_call event follows its
// tool_input_end; the finish event is terminal and occurs exactly once.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	TextID       string          `json:"text_id,omitempty"`
	Delta        string          `json:"delta,omitempty"`
	ToolCallID   string          `json:"tool_call_id,omitempty"`
	ToolName     string          `json:"tool_name,omitempty"`
	ToolCall     *ToolCallData   `json:"tool_call,omitempty"`
	FinishReason FinishReason    `json:"finish_reason,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	Err          error           `json:"-"`
}

// Capability names a provider capability callers may probe for.
type Capability string

const (
	CapabilityChat            Capability = "chat"
	CapabilityEmbeddings      Capability = "embeddings"
	CapabilityImageGeneration Capability = "image-generation"
)
