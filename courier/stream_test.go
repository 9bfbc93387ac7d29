package courier

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// testIDGen returns a deterministic IDGenerator: gen_0, gen_1, ...
func testIDGen() IDGenerator {
	n := 0
	return func() string {
		id := fmt.Sprintf("gen_%d", n)
		n++
		return id
	}
}

func chunkOf(t *testing.T, data string) ChunkResult {
	t.Helper()
	return ChunkResult{Data: []byte(data)}
}

// collectStream runs a sequence of chunks through a fresh parser and returns
// all events including the flush.
func collectStream(t *testing.T, chunks ...string) []StreamEvent {
	t.Helper()
	state := newStreamState(testIDGen())
	var events []StreamEvent
	for _, c := range chunks {
		events = append(events, state.parseChunk(chunkOf(t, c))...)
	}
	events = append(events, state.flush()...)
	return events
}

func eventTypes(events []StreamEvent) []StreamEventType {
	types := make([]StreamEventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestStreamTextSpans(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	)

	want := []StreamEventType{TextStart, TextDelta, TextDelta, TextEnd, StreamFinish}
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	var text strings.Builder
	for _, e := range events {
		if e.Type == TextDelta {
			text.WriteString(e.Delta)
		}
	}
	if text.String() != "Hello" {
		t.Errorf("expected accumulated text %q, got %q", "Hello", text.String())
	}

	finish := events[len(events)-1]
	if finish.FinishReason != FinishStop {
		t.Errorf("expected finish reason %q, got %q", FinishStop, finish.FinishReason)
	}
}

func TestStreamTextStartEmittedOnce(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"content":"a"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"b"}}]}`,
		`{"choices":[{"index":0,"delta":{"content":"c"}}]}`,
	)

	starts, ends := 0, 0
	for _, e := range events {
		switch e.Type {
		case TextStart:
			starts++
		case TextEnd:
			ends++
		}
	}
	if starts != 1 {
		t.Errorf("expected exactly 1 text_start, got %d", starts)
	}
	if ends != 1 {
		t.Errorf("expected exactly 1 text_end, got %d", ends)
	}
}

func TestStreamSplitToolCallArguments(t *testing.T) {
	// The scenario from the wire: tool call opens at index 0 with partial
	// args, a second fragment completes them, then a finish chunk.
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"calc","arguments":"{\"a\":1"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)

	var calls []ToolCallData
	var deltas []string
	for _, e := range events {
		switch e.Type {
		case ToolInputDelta:
			deltas = append(deltas, e.Delta)
		case ToolCallEvent:
			calls = append(calls, *e.ToolCall)
		}
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].ID != "call_1" {
		t.Errorf("expected wire-supplied id %q, got %q", "call_1", calls[0].ID)
	}
	if calls[0].Name != "calc" {
		t.Errorf("expected name %q, got %q", "calc", calls[0].Name)
	}
	if calls[0].Arguments != `{"a":1}` {
		t.Errorf("expected arguments %q, got %q", `{"a":1}`, calls[0].Arguments)
	}

	// Concatenating deltas in emission order reconstructs the arguments.
	if joined := strings.Join(deltas, ""); joined != calls[0].Arguments {
		t.Errorf("concatenated deltas %q do not match final arguments %q", joined, calls[0].Arguments)
	}

	finish := events[len(events)-1]
	if finish.Type != StreamFinish {
		t.Fatalf("expected terminal finish event, got %q", finish.Type)
	}
	if finish.FinishReason != FinishToolCalls {
		t.Errorf("expected finish reason %q, got %q", FinishToolCalls, finish.FinishReason)
	}
}

func TestStreamConcurrentToolCalls(t *testing.T) {
	// Two tool calls at distinct wire indices with interleaved deltas.
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"alpha","arguments":"{\"x\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"beta","arguments":"{\"y\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"function":{"arguments":"2}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)

	byID := make(map[string]ToolCallData)
	deltasByID := make(map[string][]string)
	for _, e := range events {
		switch e.Type {
		case ToolInputDelta:
			deltasByID[e.ToolCallID] = append(deltasByID[e.ToolCallID], e.Delta)
		case ToolCallEvent:
			byID[e.ToolCall.ID] = *e.ToolCall
		}
	}

	if len(byID) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(byID))
	}
	if got := byID["call_a"].Arguments; got != `{"x":1}` {
		t.Errorf("call_a: expected %q, got %q", `{"x":1}`, got)
	}
	if got := byID["call_b"].Arguments; got != `{"y":2}` {
		t.Errorf("call_b: expected %q, got %q", `{"y":2}`, got)
	}
	for id, call := range byID {
		if joined := strings.Join(deltasByID[id], ""); joined != call.Arguments {
			t.Errorf("%s: concatenated deltas %q do not match arguments %q", id, joined, call.Arguments)
		}
	}
}

func TestStreamGeneratedToolCallID(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"name":"lookup","arguments":"{}"}}]}}]}`,
	)

	var call *ToolCallData
	for _, e := range events {
		if e.Type == ToolCallEvent {
			call = e.ToolCall
		}
	}
	if call == nil {
		t.Fatal("expected a tool call event")
	}
	if call.ID != "gen_0" {
		t.Errorf("expected generated id %q, got %q", "gen_0", call.ID)
	}
}

func TestStreamNeverEmitsEmptyDelta(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"content":""}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"noop","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":""}}]}}]}`,
	)

	for _, e := range events {
		if (e.Type == TextDelta || e.Type == ToolInputDelta) && e.Delta == "" {
			t.Errorf("zero-length %q event emitted", e.Type)
		}
	}

	// The empty-argument tool call still finalizes with empty arguments.
	var call *ToolCallData
	for _, e := range events {
		if e.Type == ToolCallEvent {
			call = e.ToolCall
		}
	}
	if call == nil {
		t.Fatal("expected a tool call event at flush")
	}
	if call.Arguments != "" {
		t.Errorf("expected empty arguments, got %q", call.Arguments)
	}
}

func TestStreamOrderingInvariant(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"content":"hi"}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"f","arguments":"{}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"content":" there"}}]}`,
		`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	)

	started := make(map[string]bool)
	ended := make(map[string]bool)
	finishSeen := false

	for _, e := range events {
		if finishSeen {
			t.Fatalf("event %q after finish", e.Type)
		}
		switch e.Type {
		case TextStart:
			if started[e.TextID] {
				t.Errorf("duplicate start for %q", e.TextID)
			}
			started[e.TextID] = true
		case TextDelta:
			if !started[e.TextID] || ended[e.TextID] {
				t.Errorf("delta outside open span for %q", e.TextID)
			}
		case TextEnd:
			if !started[e.TextID] || ended[e.TextID] {
				t.Errorf("unbalanced end for %q", e.TextID)
			}
			ended[e.TextID] = true
		case ToolInputStart:
			if started[e.ToolCallID] {
				t.Errorf("duplicate start for %q", e.ToolCallID)
			}
			started[e.ToolCallID] = true
		case ToolInputDelta:
			if !started[e.ToolCallID] || ended[e.ToolCallID] {
				t.Errorf("delta outside open span for %q", e.ToolCallID)
			}
		case ToolInputEnd:
			if !started[e.ToolCallID] || ended[e.ToolCallID] {
				t.Errorf("unbalanced end for %q", e.ToolCallID)
			}
			ended[e.ToolCallID] = true
		case ToolCallEvent:
			if !ended[e.ToolCall.ID] {
				t.Errorf("tool_call before tool_input_end for %q", e.ToolCall.ID)
			}
		case StreamFinish:
			finishSeen = true
		}
	}

	if !finishSeen {
		t.Error("expected a terminal finish event")
	}
	for id := range started {
		if !ended[id] {
			t.Errorf("span %q never closed", id)
		}
	}
}

func TestStreamUsageLastWriterWins(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"content":"x"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`,
		`{"choices":[{"index":0,"delta":{"content":"y"}}]}`,
		`{"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`,
	)

	finish := events[len(events)-1]
	if finish.Type != StreamFinish {
		t.Fatalf("expected finish event, got %q", finish.Type)
	}
	if finish.Usage == nil || finish.Usage.TotalTokens == nil {
		t.Fatal("expected usage on finish event")
	}
	if *finish.Usage.TotalTokens != 15 {
		t.Errorf("expected total_tokens 15 (last writer), got %d", *finish.Usage.TotalTokens)
	}
	if *finish.Usage.InputTokens != 10 {
		t.Errorf("expected input_tokens 10, got %d", *finish.Usage.InputTokens)
	}
}

func TestStreamUsageNeverObserved(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"content":"x"},"finish_reason":"stop"}]}`,
	)

	finish := events[len(events)-1]
	if finish.Usage == nil {
		t.Fatal("expected usage snapshot on finish event")
	}
	if finish.Usage.InputTokens != nil || finish.Usage.OutputTokens != nil || finish.Usage.TotalTokens != nil {
		t.Error("expected all usage counters nil when never observed, not zero")
	}
}

func TestStreamFinishReasonDefaultsToOther(t *testing.T) {
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"content":"x"}}]}`,
	)

	finish := events[len(events)-1]
	if finish.FinishReason != FinishOther {
		t.Errorf("expected default finish reason %q, got %q", FinishOther, finish.FinishReason)
	}
}

func TestStreamMalformedChunkEmitsSingleError(t *testing.T) {
	state := newStreamState(testIDGen())

	events := state.parseChunk(ChunkResult{Data: []byte(`{"choices":[`)})
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	if events[0].Type != StreamError {
		t.Errorf("expected error event, got %q", events[0].Type)
	}
	if events[0].Err == nil {
		t.Error("expected error event to carry its cause")
	}

	// Processing continues and flush still runs.
	state.parseChunk(chunkOf(t, `{"choices":[{"index":0,"delta":{"content":"ok"},"finish_reason":"stop"}]}`))
	flushEvents := state.flush()
	last := flushEvents[len(flushEvents)-1]
	if last.Type != StreamFinish {
		t.Errorf("expected finish after error, got %q", last.Type)
	}
}

func TestStreamTransportErrorChunk(t *testing.T) {
	state := newStreamState(testIDGen())
	cause := errors.New("connection reset")

	events := state.parseChunk(ChunkResult{Err: cause})
	if len(events) != 1 || events[0].Type != StreamError {
		t.Fatalf("expected single error event, got %v", eventTypes(events))
	}
	if !errors.Is(events[0].Err, cause) {
		t.Errorf("expected error event to carry the transport error")
	}
}

func TestStreamFlushRunsOnce(t *testing.T) {
	state := newStreamState(testIDGen())
	state.parseChunk(chunkOf(t, `{"choices":[{"index":0,"delta":{"content":"x"}}]}`))

	first := state.flush()
	if len(first) == 0 {
		t.Fatal("expected flush events")
	}
	second := state.flush()
	if len(second) != 0 {
		t.Errorf("expected no events from second flush, got %d", len(second))
	}
}

func TestStreamStateNotSharedAcrossCalls(t *testing.T) {
	// Two independent streams never see each other's accumulator entries.
	a := newStreamState(testIDGen())
	b := newStreamState(testIDGen())

	a.parseChunk(chunkOf(t, `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"fa","arguments":"{\"a\":1}"}}]}}]}`))
	b.parseChunk(chunkOf(t, `{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_b","function":{"name":"fb","arguments":"{\"b\":2}"}}]}}]}`))

	flushA := a.flush()
	flushB := b.flush()

	callOf := func(events []StreamEvent) *ToolCallData {
		for _, e := range events {
			if e.Type == ToolCallEvent {
				return e.ToolCall
			}
		}
		return nil
	}

	callA, callB := callOf(flushA), callOf(flushB)
	if callA == nil || callB == nil {
		t.Fatal("expected one tool call per stream")
	}
	if callA.ID != "call_a" || callA.Arguments != `{"a":1}` {
		t.Errorf("stream a contaminated: %+v", callA)
	}
	if callB.ID != "call_b" || callB.Arguments != `{"b":2}` {
		t.Errorf("stream b contaminated: %+v", callB)
	}
}

func TestStreamNonContiguousIndices(t *testing.T) {
	// Wire indices need not be contiguous; each names its own accumulator.
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":3,"id":"call_3","function":{"name":"three","arguments":"{}"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":7,"id":"call_7","function":{"name":"seven","arguments":"{}"}}]}}]}`,
	)

	var ids []string
	for _, e := range events {
		if e.Type == ToolCallEvent {
			ids = append(ids, e.ToolCall.ID)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(ids))
	}
	if ids[0] != "call_3" || ids[1] != "call_7" {
		t.Errorf("expected first-seen order [call_3 call_7], got %v", ids)
	}
}

func TestStreamLateToolName(t *testing.T) {
	// Name missing on the first fragment arrives on a later one.
	events := collectStream(t,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"arguments":"{"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"name":"late","arguments":"}"}}]}}]}`,
	)

	for _, e := range events {
		if e.Type == ToolCallEvent {
			if e.ToolCall.Name != "late" {
				t.Errorf("expected name %q, got %q", "late", e.ToolCall.Name)
			}
			return
		}
	}
	t.Fatal("expected a tool call event")
}
