package courier

import "fmt"

// bodyPolicy parameterizes request-body construction per adapter family. The
// two implemented families share one builder and differ only in these knobs.
type bodyPolicy struct {
	// tokenLimitField names the wire field carrying the output token limit.
	tokenLimitField string
	// suppressZeroSampling drops a caller-supplied temperature or top-p of
	// exactly 0, letting the backend apply its own default. Backends in this
	// family reject explicit zeros. This deliberately deviates from "send
	// what the caller asked for"; ModelSettings.ForceZeroSampling opts out.
	suppressZeroSampling bool
}

var (
	chatPolicy   = bodyPolicy{tokenLimitField: "max_completion_tokens", suppressZeroSampling: true}
	legacyPolicy = bodyPolicy{tokenLimitField: "max_tokens", suppressZeroSampling: false}
)

// policyFor returns the body policy for an implemented adapter family.
func policyFor(family AdapterFamily) bodyPolicy {
	if family == FamilyLegacy {
		return legacyPolicy
	}
	return chatPolicy
}

// chatRequestBody is the full JSON request body. Every optional field is a
// pointer or slice with omitempty: absent values are dropped from the wire,
// never serialized as null or zero.
type chatRequestBody struct {
	Model               string         `json:"model,omitempty"`
	Messages            []wireMessage  `json:"messages"`
	MaxTokens           *int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	TopP                *float64       `json:"top_p,omitempty"`
	Stop                []string       `json:"stop,omitempty"`
	Seed                *int           `json:"seed,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *streamOptions `json:"stream_options,omitempty"`
	Tools               []wireTool     `json:"tools,omitempty"`
	ToolChoice          any            `json:"tool_choice,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// wireTool is one entry of the request tool declaration array.
type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// jsonOnlyInstruction is the synthetic user message appended for JSON-only
// response mode on backends without a native response-format flag.
const jsonOnlyInstruction = "Respond with valid JSON only. Do not include markdown formatting, code fences, or any text outside the JSON."

// buildRequestBody assembles the full request body for one call. Per-call
// settings take precedence over per-model defaults. Settings the family
// cannot express are dropped and surfaced as warnings; the call proceeds.
func buildRequestBody(req Request, modelID string, modelInBody bool, stream bool, defaults ModelSettings, policy bodyPolicy) (chatRequestBody, []Warning) {
	messages, warnings := normalizeMessages(req.Messages)

	body := chatRequestBody{
		Messages: messages,
		Stop:     req.StopSequences,
		Seed:     req.Seed,
		Stream:   stream,
	}
	if modelInBody {
		body.Model = modelID
	}
	if stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	// Token limit: per-call value, else model default, else omitted entirely.
	maxTokens := req.MaxOutputTokens
	if maxTokens == nil {
		maxTokens = defaults.MaxTokens
	}
	if maxTokens != nil {
		if policy.tokenLimitField == "max_completion_tokens" {
			body.MaxCompletionTokens = maxTokens
		} else {
			body.MaxTokens = maxTokens
		}
	}

	body.Temperature = resolveSampling(req.Temperature, defaults.Temperature, defaults.ForceZeroSampling, policy)
	body.TopP = resolveSampling(req.TopP, defaults.TopP, defaults.ForceZeroSampling, policy)

	// Settings no implemented family can express are never sent.
	if req.TopK != nil {
		warnings = append(warnings, unsupportedSetting("top_k"))
	}
	if req.PresencePenalty != nil {
		warnings = append(warnings, unsupportedSetting("presence_penalty"))
	}
	if req.FrequencyPenalty != nil {
		warnings = append(warnings, unsupportedSetting("frequency_penalty"))
	}

	if defs := req.toolDefinitions(); len(defs) > 0 {
		body.Tools = make([]wireTool, 0, len(defs))
		for _, def := range defs {
			body.Tools = append(body.Tools, wireTool{
				Type: "function",
				Function: wireFunction{
					Name:        def.Name,
					Description: def.Description,
					Parameters:  def.Parameters,
				},
			})
		}
	}

	if req.ToolChoice != nil {
		body.ToolChoice = mapToolChoice(*req.ToolChoice)
	}

	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json" {
		body.Messages = append(body.Messages, wireMessage{
			Role:    "user",
			Content: jsonOnlyInstruction,
		})
	}

	return body, warnings
}

// resolveSampling applies precedence and the family's zero-suppression rule
// to one sampling parameter.
func resolveSampling(call, modelDefault *float64, forceZero bool, policy bodyPolicy) *float64 {
	value := call
	if value == nil {
		value = modelDefault
	}
	if value == nil {
		return nil
	}
	if *value == 0 && policy.suppressZeroSampling && !forceZero {
		return nil
	}
	return value
}

// mapToolChoice translates the abstract tool-choice directive to its wire
// representation. A named choice encodes the exact tool name.
func mapToolChoice(choice ToolChoice) any {
	switch choice.Mode {
	case "auto", "none", "required":
		return choice.Mode
	case "named":
		return map[string]any{
			"type": "function",
			"function": map[string]any{
				"name": choice.ToolName,
			},
		}
	default:
		return nil
	}
}

func unsupportedSetting(name string) Warning {
	return Warning{
		Code:    WarnUnsupportedSetting,
		Setting: name,
		Message: fmt.Sprintf("setting %q is not supported by this backend family", name),
	}
}
