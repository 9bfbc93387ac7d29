package courier

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestNormalizeMessagesRoles(t *testing.T) {
	msgs := []Message{
		SystemMessage("be brief"),
		UserMessage("hello"),
		AssistantMessage("hi there"),
	}

	wire, warnings := normalizeMessages(msgs)
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(wire) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(wire))
	}

	wantRoles := []string{"system", "user", "assistant"}
	for i, want := range wantRoles {
		if wire[i].Role != want {
			t.Errorf("message %d: expected role %q, got %q", i, want, wire[i].Role)
		}
	}
	if wire[0].Content != "be brief" {
		t.Errorf("expected system text %q, got %v", "be brief", wire[0].Content)
	}
}

func TestNormalizeTextConcatenation(t *testing.T) {
	msg := Message{Role: RoleUser, Content: []ContentPart{
		TextPart("first "),
		TextPart("second"),
	}}

	wire, _ := normalizeMessages([]Message{msg})
	if wire[0].Content != "first second" {
		t.Errorf("expected concatenated text %q, got %v", "first second", wire[0].Content)
	}
}

func TestNormalizeImageContent(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	msg := Message{Role: RoleUser, Content: []ContentPart{
		TextPart("what is this?"),
		FileDataPart(payload, "image/png"),
	}}

	wire, warnings := normalizeMessages([]Message{msg})
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	parts, ok := wire[0].Content.([]wireContentPart)
	if !ok {
		t.Fatalf("expected multimodal array form, got %T", wire[0].Content)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "what is this?" {
		t.Errorf("unexpected text part %+v", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL == nil {
		t.Fatalf("unexpected image part %+v", parts[1])
	}
	wantURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	if parts[1].ImageURL.URL != wantURL {
		t.Errorf("expected data URL %q, got %q", wantURL, parts[1].ImageURL.URL)
	}
}

func TestNormalizeImageURLPassthrough(t *testing.T) {
	msg := Message{Role: RoleUser, Content: []ContentPart{
		FileURLPart("https://example.com/cat.jpg", "image/jpeg"),
	}}

	wire, _ := normalizeMessages([]Message{msg})
	parts, ok := wire[0].Content.([]wireContentPart)
	if !ok || len(parts) != 1 {
		t.Fatalf("expected single image part, got %v", wire[0].Content)
	}
	if parts[0].ImageURL.URL != "https://example.com/cat.jpg" {
		t.Errorf("expected URL passthrough, got %q", parts[0].ImageURL.URL)
	}
}

func TestNormalizeDropsNonImageFiles(t *testing.T) {
	msg := Message{Role: RoleUser, Content: []ContentPart{
		TextPart("summarize this"),
		FileDataPart([]byte("%PDF-1.4"), "application/pdf"),
	}}

	wire, warnings := normalizeMessages([]Message{msg})

	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Code != WarnUnsupportedContent {
		t.Errorf("expected code %q, got %q", WarnUnsupportedContent, warnings[0].Code)
	}

	// With the file dropped and no images left, the string form applies.
	if wire[0].Content != "summarize this" {
		t.Errorf("expected plain string form, got %v", wire[0].Content)
	}
}

func TestNormalizeAssistantToolCalls(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: []ContentPart{
		TextPart("checking the weather"),
		ToolCallPart("call_1", "get_weather", `{"city":"Oslo"}`),
	}}

	wire, _ := normalizeMessages([]Message{msg})
	wm := wire[0]
	if wm.Content != "checking the weather" {
		t.Errorf("expected assistant text, got %v", wm.Content)
	}
	if len(wm.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(wm.ToolCalls))
	}
	tc := wm.ToolCalls[0]
	if tc.ID != "call_1" || tc.Type != "function" {
		t.Errorf("unexpected tool call envelope %+v", tc)
	}
	if tc.Function.Name != "get_weather" || tc.Function.Arguments != `{"city":"Oslo"}` {
		t.Errorf("unexpected function %+v", tc.Function)
	}
}

func TestNormalizeAssistantToolCallsWithoutText(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: []ContentPart{
		ToolCallPart("call_1", "get_weather", "{}"),
	}}

	wire, _ := normalizeMessages([]Message{msg})
	if wire[0].Content != nil {
		t.Errorf("expected nil content for tool-only message, got %v", wire[0].Content)
	}
}

func TestNormalizeToolResults(t *testing.T) {
	msg := Message{Role: RoleTool, Content: []ContentPart{
		ToolResultPart("call_1", json.RawMessage(`"sunny"`), false),
		ToolResultPart("call_2", json.RawMessage(`{"temp":12}`), false),
	}}

	wire, _ := normalizeMessages([]Message{msg})
	if len(wire) != 2 {
		t.Fatalf("expected one wire message per result, got %d", len(wire))
	}
	if wire[0].ToolCallID != "call_1" || wire[0].Content != "sunny" {
		t.Errorf("unexpected first result %+v", wire[0])
	}
	if wire[1].ToolCallID != "call_2" || wire[1].Content != `{"temp":12}` {
		t.Errorf("unexpected second result %+v", wire[1])
	}
}

func TestToolResultText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"json string unquotes", `"plain text result"`, "plain text result"},
		{"text part array concatenates", `[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]`, "part one part two"},
		{"mixed part array passes raw", `[{"type":"text","text":"a"},{"type":"image","text":""}]`, `[{"type":"text","text":"a"},{"type":"image","text":""}]`},
		{"object passes raw", `{"status":"ok","count":3}`, `{"status":"ok","count":3}`},
		{"number passes raw", `42`, `42`},
		{"empty content", ``, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToolResultData{ToolCallID: "call_1", Content: json.RawMessage(tt.content)}
			if got := toolResultText(result); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
