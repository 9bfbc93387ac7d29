package courier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// GenerateOptions configures a high-level Generate call.
type GenerateOptions struct {
	Model           string
	Prompt          string    // simple text prompt (mutually exclusive with Messages)
	Messages        []Message // full conversation (mutually exclusive with Prompt)
	System          string
	Family          AdapterFamily
	Tools           []Tool
	ToolChoice      *ToolChoice
	MaxToolRounds   int // default 1
	ResponseFormat  *ResponseFormat
	Temperature     *float64
	TopP            *float64
	MaxOutputTokens *int
	StopSequences   []string
	Seed            *int
	Client          *Client
}

// GenerateResult is returned by Generate.
type GenerateResult struct {
	Text         string         `json:"text"`
	ToolCalls    []ToolCallData `json:"tool_calls,omitempty"`
	ToolResults  []ToolResult   `json:"tool_results,omitempty"`
	FinishReason FinishReason   `json:"finish_reason"`
	Usage        Usage          `json:"usage"`
	TotalUsage   Usage          `json:"total_usage"`
	Steps        []StepResult   `json:"steps"`
	Response     Response       `json:"response"`
}

// StepResult tracks a single step in a multi-step generation.
type StepResult struct {
	Text         string         `json:"text"`
	ToolCalls    []ToolCallData `json:"tool_calls,omitempty"`
	ToolResults  []ToolResult   `json:"tool_results,omitempty"`
	FinishReason FinishReason   `json:"finish_reason"`
	Usage        Usage          `json:"usage"`
	Response     Response       `json:"response"`
	Warnings     []Warning      `json:"warnings,omitempty"`
}

// Generate is the high-level blocking generation function. It wraps
// Client.Complete with a tool execution loop and prompt standardization.
func Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	if opts.Prompt != "" && len(opts.Messages) > 0 {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "cannot specify both prompt and messages",
		}}
	}
	if opts.Client == nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no client configured",
		}}
	}

	if opts.MaxToolRounds == 0 && len(opts.Tools) > 0 {
		opts.MaxToolRounds = 1
	}

	messages := opts.Messages
	if opts.Prompt != "" {
		messages = []Message{UserMessage(opts.Prompt)}
	}
	if opts.System != "" {
		messages = append([]Message{SystemMessage(opts.System)}, messages...)
	}

	var toolDefs []ToolDefinition
	toolMap := make(map[string]Tool)
	hasActiveTools := false
	for _, t := range opts.Tools {
		toolDefs = append(toolDefs, t.Definition())
		toolMap[t.Name] = t
		if t.Execute != nil {
			hasActiveTools = true
		}
	}

	var steps []StepResult
	var totalUsage Usage
	conversation := make([]Message, len(messages))
	copy(conversation, messages)

	for round := 0; round <= opts.MaxToolRounds; round++ {
		req := Request{
			Model:           opts.Model,
			Messages:        conversation,
			Family:          opts.Family,
			Tools:           opts.Tools,
			ToolDefs:        toolDefs,
			ToolChoice:      opts.ToolChoice,
			ResponseFormat:  opts.ResponseFormat,
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			MaxOutputTokens: opts.MaxOutputTokens,
			StopSequences:   opts.StopSequences,
			Seed:            opts.Seed,
		}

		resp, err := opts.Client.Complete(ctx, req)
		if err != nil {
			return nil, err
		}

		toolCalls := resp.ToolCalls()

		var toolResults []ToolResult
		if len(toolCalls) > 0 && resp.FinishReason == FinishToolCalls && hasActiveTools {
			toolResults = executeToolsConcurrently(toolMap, toolCalls)
		}

		step := StepResult{
			Text:         resp.Text(),
			ToolCalls:    toolCalls,
			ToolResults:  toolResults,
			FinishReason: resp.FinishReason,
			Usage:        resp.Usage,
			Response:     *resp,
			Warnings:     resp.Warnings,
		}
		steps = append(steps, step)
		totalUsage = totalUsage.Add(resp.Usage)

		if len(toolCalls) == 0 || resp.FinishReason != FinishToolCalls {
			break // Natural completion.
		}
		if !hasActiveTools {
			break // Passive tools; return to caller.
		}
		if round >= opts.MaxToolRounds {
			break // Budget exhausted.
		}

		conversation = append(conversation, Message{Role: RoleAssistant, Content: resp.Content})
		for _, result := range toolResults {
			contentBytes, _ := json.Marshal(result.Content)
			conversation = append(conversation, ToolResultMessage(
				result.ToolCallID,
				string(contentBytes),
				result.IsError,
			))
		}
	}

	lastStep := steps[len(steps)-1]
	return &GenerateResult{
		Text:         lastStep.Text,
		ToolCalls:    lastStep.ToolCalls,
		ToolResults:  lastStep.ToolResults,
		FinishReason: lastStep.FinishReason,
		Usage:        lastStep.Usage,
		TotalUsage:   totalUsage,
		Steps:        steps,
		Response:     lastStep.Response,
	}, nil
}

// executeToolsConcurrently executes all tool calls in parallel.
func executeToolsConcurrently(toolMap map[string]Tool, calls []ToolCallData) []ToolResult {
	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc ToolCallData) {
			defer wg.Done()

			tool, ok := toolMap[tc.Name]
			if !ok || tool.Execute == nil {
				results[idx] = ToolResult{
					ToolCallID: tc.ID,
					Content:    fmt.Sprintf("Unknown tool: %s", tc.Name),
					IsError:    true,
				}
				return
			}

			output, err := tool.Execute(json.RawMessage(tc.Arguments))
			if err != nil {
				results[idx] = ToolResult{
					ToolCallID: tc.ID,
					Content:    fmt.Sprintf("Tool execution error: %v", err),
					IsError:    true,
				}
				return
			}

			results[idx] = ToolResult{
				ToolCallID: tc.ID,
				Content:    output,
				IsError:    false,
			}
		}(i, call)
	}

	wg.Wait()
	return results
}

// StreamResult wraps a streaming response with convenience accessors.
type StreamResult struct {
	events   <-chan StreamEvent
	mu       sync.Mutex
	response *Response
}

// Events returns the channel of stream events.
func (sr *StreamResult) Events() <-chan StreamEvent {
	return sr.events
}

// Response returns the accumulated response after the stream ends, or nil if
// the stream has not finished yet.
func (sr *StreamResult) Response() *Response {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.response
}

// StreamGenerate is the high-level streaming generation function.
func StreamGenerate(ctx context.Context, opts GenerateOptions) (*StreamResult, error) {
	if opts.Prompt != "" && len(opts.Messages) > 0 {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "cannot specify both prompt and messages",
		}}
	}
	if opts.Client == nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no client configured",
		}}
	}

	messages := opts.Messages
	if opts.Prompt != "" {
		messages = []Message{UserMessage(opts.Prompt)}
	}
	if opts.System != "" {
		messages = append([]Message{SystemMessage(opts.System)}, messages...)
	}

	var toolDefs []ToolDefinition
	for _, t := range opts.Tools {
		toolDefs = append(toolDefs, t.Definition())
	}

	eventCh, err := opts.Client.Stream(ctx, Request{
		Model:           opts.Model,
		Messages:        messages,
		Family:          opts.Family,
		Tools:           opts.Tools,
		ToolDefs:        toolDefs,
		ToolChoice:      opts.ToolChoice,
		ResponseFormat:  opts.ResponseFormat,
		Temperature:     opts.Temperature,
		TopP:            opts.TopP,
		MaxOutputTokens: opts.MaxOutputTokens,
		StopSequences:   opts.StopSequences,
		Seed:            opts.Seed,
	})
	if err != nil {
		return nil, err
	}

	outCh := make(chan StreamEvent, 64)
	sr := &StreamResult{events: outCh}

	go func() {
		defer close(outCh)
		acc := NewStreamAccumulator()
		for event := range eventCh {
			acc.Process(event)
			outCh <- event
			if event.Type == StreamFinish {
				sr.mu.Lock()
				sr.response = acc.Response()
				sr.mu.Unlock()
			}
		}
	}()

	return sr, nil
}

// StreamAccumulator collects stream events into a complete Response.
type StreamAccumulator struct {
	textOrder    []string
	textParts    map[string]string
	toolCalls    []ToolCallData
	finishReason FinishReason
	usage        *Usage
}

// NewStreamAccumulator creates a new StreamAccumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		textParts: make(map[string]string),
	}
}

// Process ingests a single stream event.
func (sa *StreamAccumulator) Process(event StreamEvent) {
	switch event.Type {
	case TextDelta:
		id := event.TextID
		if id == "" {
			id = "default"
		}
		if _, seen := sa.textParts[id]; !seen {
			sa.textOrder = append(sa.textOrder, id)
		}
		sa.textParts[id] += event.Delta
	case ToolCallEvent:
		if event.ToolCall != nil {
			sa.toolCalls = append(sa.toolCalls, *event.ToolCall)
		}
	case StreamFinish:
		sa.finishReason = event.FinishReason
		sa.usage = event.Usage
	}
}

// Response builds the accumulated response.
func (sa *StreamAccumulator) Response() *Response {
	var content []ContentPart
	for _, id := range sa.textOrder {
		content = append(content, TextPart(sa.textParts[id]))
	}
	for _, tc := range sa.toolCalls {
		content = append(content, ToolCallPart(tc.ID, tc.Name, tc.Arguments))
	}

	finish := sa.finishReason
	if finish == "" {
		finish = FinishOther
	}

	usage := Usage{}
	if sa.usage != nil {
		usage = *sa.usage
	}

	return &Response{
		Content:      content,
		FinishReason: finish,
		Usage:        usage,
	}
}
