package courier

import (
	"encoding/json"
	"strings"
)

// ChunkResult is one frame delivered by the transport during a streaming
// call: either the raw JSON payload of a server-sent event or the error that
// prevented reading it.
type ChunkResult struct {
	Data []byte
	Err  error
}

// streamChunk is the chat-completions streaming chunk shape.
type streamChunk struct {
	ID      string         `json:"id"`
	Choices []streamChoice `json:"choices"`
	Usage   *wireUsage     `json:"usage"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type streamDelta struct {
	Content   *string               `json:"content"`
	ToolCalls []streamToolCallDelta `json:"tool_calls"`
}

// streamToolCallDelta is one fragment of a tool call. Index is the
// wire-provided integer naming the call; ID and Name typically arrive only on
// the first fragment, Arguments accumulates across fragments.
type streamToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// toolAccumulator reconstructs one tool call's argument text from split
// deltas, keyed by the wire index that named it.
type toolAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// streamState is the per-call accumulator. Exactly one instance exists per
// in-flight streaming call; it is created empty at stream start, mutated
// strictly in chunk arrival order, finalized once by flush, and never reused.
type streamState struct {
	newID IDGenerator

	textID   string
	textOpen bool

	// Wire indices are call-local: each names an entry in this table and
	// nothing beyond the current stream.
	tools      map[int]*toolAccumulator
	toolOrder  []int

	finishRaw  string
	usage      Usage
	usageSeen  bool
	flushed    bool
}

func newStreamState(newID IDGenerator) *streamState {
	return &streamState{
		newID:  newID,
		textID: "txt_0",
		tools:  make(map[int]*toolAccumulator),
	}
}

// parseChunk validates one inbound chunk and emits the normalized events it
// implies. A chunk that fails validation yields exactly one error event and
// is otherwise ignored; processing of later chunks continues.
func (s *streamState) parseChunk(res ChunkResult) []StreamEvent {
	if res.Err != nil {
		return []StreamEvent{{Type: StreamError, Err: res.Err}}
	}

	var chunk streamChunk
	if err := json.Unmarshal(res.Data, &chunk); err != nil {
		return []StreamEvent{{Type: StreamError, Err: &InvalidResponseError{SDKError: SDKError{
			Message: "stream chunk failed validation",
			Cause:   err,
		}}}}
	}

	var events []StreamEvent

	// Later usage snapshots supersede earlier ones; a chunk without usage
	// never resets what was already observed.
	if chunk.Usage != nil {
		s.usage = chunk.Usage.toUsage()
		s.usageSeen = true
	}

	// Only choice 0 occurs in practice, but iterate everything present.
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			if !s.textOpen {
				s.textOpen = true
				events = append(events, StreamEvent{Type: TextStart, TextID: s.textID})
			}
			events = append(events, StreamEvent{Type: TextDelta, TextID: s.textID, Delta: *choice.Delta.Content})
		}

		for _, delta := range choice.Delta.ToolCalls {
			events = append(events, s.applyToolDelta(delta)...)
		}

		if choice.FinishReason != "" {
			s.finishRaw = choice.FinishReason
		}
	}

	return events
}

// applyToolDelta folds one tool-call fragment into the accumulator table.
func (s *streamState) applyToolDelta(delta streamToolCallDelta) []StreamEvent {
	acc, known := s.tools[delta.Index]
	if !known {
		id := delta.ID
		if id == "" {
			id = s.newID()
		}
		acc = &toolAccumulator{id: id, name: delta.Function.Name}
		s.tools[delta.Index] = acc
		s.toolOrder = append(s.toolOrder, delta.Index)

		events := []StreamEvent{{Type: ToolInputStart, ToolCallID: acc.id, ToolName: acc.name}}
		if delta.Function.Arguments != "" {
			acc.args.WriteString(delta.Function.Arguments)
			events = append(events, StreamEvent{Type: ToolInputDelta, ToolCallID: acc.id, Delta: delta.Function.Arguments})
		}
		return events
	}

	if acc.name == "" {
		acc.name = delta.Function.Name
	}
	// Empty fragments still count as deltas for accumulation purposes but a
	// zero-length delta event is never emitted.
	if delta.Function.Arguments == "" {
		return nil
	}
	acc.args.WriteString(delta.Function.Arguments)
	return []StreamEvent{{Type: ToolInputDelta, ToolCallID: acc.id, Delta: delta.Function.Arguments}}
}

// flush emits the deferred end-of-stream events: close of the open text span,
// one tool_input_end plus one tool_call per accumulated entry in first-seen
// order, and exactly one terminal finish event. It runs once, after the
// transport signals stream end, even when error events were emitted earlier.
func (s *streamState) flush() []StreamEvent {
	if s.flushed {
		return nil
	}
	s.flushed = true

	var events []StreamEvent

	if s.textOpen {
		s.textOpen = false
		events = append(events, StreamEvent{Type: TextEnd, TextID: s.textID})
	}

	for _, index := range s.toolOrder {
		acc := s.tools[index]
		events = append(events, StreamEvent{Type: ToolInputEnd, ToolCallID: acc.id})
		events = append(events, StreamEvent{
			Type: ToolCallEvent,
			ToolCall: &ToolCallData{
				ID:        acc.id,
				Name:      acc.name,
				Arguments: acc.args.String(),
			},
		})
	}

	finish := StreamEvent{Type: StreamFinish, FinishReason: mapFinishReason(s.finishRaw)}
	if s.usageSeen {
		usage := s.usage
		finish.Usage = &usage
	} else {
		finish.Usage = &Usage{}
	}
	events = append(events, finish)

	return events
}
