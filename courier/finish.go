package courier

// finishReasonTable maps the four known wire finish-reason strings to the
// normalized enum. It is shared by the response parser and the stream parser.
var finishReasonTable = map[string]FinishReason{
	"stop":           FinishStop,
	"length":         FinishLength,
	"content_filter": FinishContentFilter,
	"tool_calls":     FinishToolCalls,
}

// mapFinishReason normalizes a wire finish-reason string. Unrecognized
// strings, including the empty string, map to FinishOther rather than an
// error.
func mapFinishReason(raw string) FinishReason {
	if mapped, ok := finishReasonTable[raw]; ok {
		return mapped
	}
	return FinishOther
}
